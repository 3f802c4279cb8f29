package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	apierrors "dealpulse/internal/errors"
	"dealpulse/internal/infrastructure"
	"dealpulse/internal/rentroll"
	"dealpulse/internal/validation"
	"dealpulse/pkg/contracts/domain"
)

// RentRollService turns uploaded rent-roll workbooks into income
// assumptions for the underwriting engine.
type RentRollService struct {
	parser    *rentroll.Parser
	validator *validation.FileValidator
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
}

// NewRentRollService creates the service. metrics may be nil.
func NewRentRollService(parser *rentroll.Parser, validator *validation.FileValidator, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *RentRollService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RentRollService{
		parser:    parser,
		validator: validator,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "rentroll_service")),
	}
}

// ParseUpload validates and parses one uploaded workbook. size is the
// declared upload size, checked against the configured ceiling before any
// bytes are read.
func (s *RentRollService) ParseUpload(ctx context.Context, r io.Reader, filename string, size int64) (*domain.RentRoll, error) {
	start := time.Now()

	if err := s.validator.ValidateUpload(filename, size); err != nil {
		return nil, apierrors.InvalidRequestWithError(err)
	}

	roll, err := s.parser.ParseReader(ctx, r, filename)
	if err != nil {
		infrastructure.RecordRentRollMetrics(ctx, s.metrics, 0, 0, time.Since(start), err)
		s.logger.WarnContext(ctx, "rent roll rejected",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return nil, apierrors.ErrRentRollImport(err)
	}

	infrastructure.RecordRentRollMetrics(ctx, s.metrics, roll.Summary.UnitCount, roll.Summary.SkippedRows, time.Since(start), nil)
	s.logger.InfoContext(ctx, "rent roll parsed",
		slog.String("filename", filename),
		slog.Int("units", roll.Summary.UnitCount),
		slog.Int("skipped_rows", roll.Summary.SkippedRows),
		slog.Duration("duration", time.Since(start)))

	return roll, nil
}
