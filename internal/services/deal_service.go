package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"dealpulse/internal/dealstore"
	apierrors "dealpulse/internal/errors"
	api "dealpulse/pkg/contracts/api/v1"
	"dealpulse/pkg/contracts/domain"
)

// DealService persists deals and their underwriting results. The store is
// optional: when the application runs without a database every method
// returns ErrStoreUnavailable and the transport maps that to 503.
type DealService struct {
	store  *dealstore.Store
	logger *slog.Logger
}

// NewDealService wraps the deal store. store may be nil.
func NewDealService(store *dealstore.Store, logger *slog.Logger) *DealService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DealService{
		store:  store,
		logger: logger.With(slog.String("component", "deal_service")),
	}
}

// Enabled reports whether persistence is configured.
func (s *DealService) Enabled() bool {
	return s.store != nil
}

// Save validates the payload decodes as deal assumptions, then inserts a
// new record.
func (s *DealService) Save(ctx context.Context, req *api.DealSaveRequest) (*domain.DealRecord, error) {
	if s.store == nil {
		return nil, apierrors.ErrStoreUnavailable
	}

	if _, err := DecodeDealInput(req.Deal); err != nil {
		return nil, apierrors.InvalidRequestWithError(err)
	}

	rec := &domain.DealRecord{
		ID:      uuid.NewString(),
		Name:    req.Name,
		Payload: req.Deal,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "deal saved",
		slog.String("deal_id", rec.ID),
		slog.String("name", rec.Name))
	return rec, nil
}

// Update replaces the payload and name of an existing deal.
func (s *DealService) Update(ctx context.Context, id string, req *api.DealSaveRequest) (*domain.DealRecord, error) {
	if s.store == nil {
		return nil, apierrors.ErrStoreUnavailable
	}

	if _, err := DecodeDealInput(req.Deal); err != nil {
		return nil, apierrors.InvalidRequestWithError(err)
	}

	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.Name = req.Name
	existing.Payload = req.Deal
	if err := s.store.Save(ctx, existing); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "deal updated", slog.String("deal_id", id))
	return existing, nil
}

// Get returns one deal with its full payload.
func (s *DealService) Get(ctx context.Context, id string) (*domain.DealRecord, error) {
	if s.store == nil {
		return nil, apierrors.ErrStoreUnavailable
	}
	return s.store.Get(ctx, id)
}

// List returns a page of deal summaries, newest first.
func (s *DealService) List(ctx context.Context, page, pageSize int) (*domain.DealList, error) {
	if s.store == nil {
		return nil, apierrors.ErrStoreUnavailable
	}
	return s.store.List(ctx, page, pageSize)
}

// Delete removes a deal and its stored result.
func (s *DealService) Delete(ctx context.Context, id string) error {
	if s.store == nil {
		return apierrors.ErrStoreUnavailable
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "deal deleted", slog.String("deal_id", id))
	return nil
}

// SaveResult attaches an underwriting result to a deal.
func (s *DealService) SaveResult(ctx context.Context, dealID string, result json.RawMessage) error {
	if s.store == nil {
		return apierrors.ErrStoreUnavailable
	}
	return s.store.SaveResult(ctx, &domain.DealResultRecord{
		DealID: dealID,
		Result: result,
	})
}

// GetResult returns the most recent stored result for a deal.
func (s *DealService) GetResult(ctx context.Context, dealID string) (*domain.DealResultRecord, error) {
	if s.store == nil {
		return nil, apierrors.ErrStoreUnavailable
	}
	return s.store.GetResult(ctx, dealID)
}
