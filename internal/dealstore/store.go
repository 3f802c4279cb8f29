// Package dealstore persists deals and their underwriting results in
// Postgres. The store is optional: with no DSN configured the application
// runs compute-only and the deal routes answer 503.
package dealstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apierrors "dealpulse/internal/errors"
	"dealpulse/pkg/contracts/domain"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const (
	defaultTable    = "deals"
	defaultPageSize = 25
	maxPageSize     = 100
)

// Config controls the Postgres connection pool behind the deal store.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// querier is the slice of pgxpool.Pool the store uses. pgxmock satisfies
// it, so tests run without a database.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store reads and writes deal records. Results live in a companion table
// named <table>_results.
type Store struct {
	pool         querier
	table        string
	resultsTable string
	logger       *slog.Logger
}

// New connects a deal store using the provided config. The pool connects
// lazily; call Ping to verify reachability.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return NewWithPool(pool, cfg.Table, logger)
}

// NewWithPool constructs a store from an existing pool, primarily for
// testing with pgxmock.
func NewWithPool(pool querier, table string, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		pool:         pool,
		table:        table,
		resultsTable: table + "_results",
		logger:       logger.With(slog.String("component", "dealstore")),
	}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the deal tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`, s.table),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	deal_id UUID PRIMARY KEY REFERENCES %s (id) ON DELETE CASCADE,
	result JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`, s.resultsTable, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at DESC)`, s.table, s.table),
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure deal schema: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "deal schema ready",
		slog.String("table", s.table),
		slog.String("results_table", s.resultsTable))
	return nil
}

// Save inserts a deal or updates it in place when the id already exists.
// A record with no id gets one assigned.
func (s *Store) Save(ctx context.Context, rec *domain.DealRecord) error {
	if rec == nil {
		return fmt.Errorf("deal record is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else if _, err := uuid.Parse(rec.ID); err != nil {
		return fmt.Errorf("invalid deal id %q: %w", rec.ID, err)
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query := fmt.Sprintf(`
INSERT INTO %s (id, name, payload, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name, payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`, s.table)

	if _, err := s.pool.Exec(ctx, query, rec.ID, rec.Name, rec.Payload, rec.CreatedAt, rec.UpdatedAt); err != nil {
		return fmt.Errorf("save deal: %w", err)
	}

	s.logger.DebugContext(ctx, "deal saved",
		slog.String("deal_id", rec.ID),
		slog.String("name", rec.Name))
	return nil
}

// Get returns one deal with its full payload.
func (s *Store) Get(ctx context.Context, id string) (*domain.DealRecord, error) {
	dealID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT id, name, payload, created_at, updated_at
FROM %s
WHERE id = $1`, s.table)

	var rec domain.DealRecord
	err = s.pool.QueryRow(ctx, query, dealID).Scan(
		&rec.ID,
		&rec.Name,
		&rec.Payload,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apierrors.ErrDealMissing
		}
		return nil, fmt.Errorf("get deal: %w", err)
	}
	return &rec, nil
}

// List returns a page of deal summaries, newest first.
func (s *Store) List(ctx context.Context, page, pageSize int) (*domain.DealList, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)
	if err := s.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, fmt.Errorf("count deals: %w", err)
	}

	query := fmt.Sprintf(`
SELECT d.id, d.name, d.created_at, d.updated_at,
	EXISTS (SELECT 1 FROM %s r WHERE r.deal_id = d.id) AS has_result
FROM %s d
ORDER BY d.created_at DESC
LIMIT $1 OFFSET $2`, s.resultsTable, s.table)

	rows, err := s.pool.Query(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()

	list := &domain.DealList{
		Deals:    make([]domain.DealSummary, 0, pageSize),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for rows.Next() {
		var d domain.DealSummary
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt, &d.UpdatedAt, &d.HasResult); err != nil {
			return nil, fmt.Errorf("scan deal row: %w", err)
		}
		list.Deals = append(list.Deals, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	return list, nil
}

// Delete removes a deal and its attached result.
func (s *Store) Delete(ctx context.Context, id string) error {
	dealID, err := parseID(id)
	if err != nil {
		return err
	}

	resultQuery := fmt.Sprintf(`DELETE FROM %s WHERE deal_id = $1`, s.resultsTable)
	if _, err := s.pool.Exec(ctx, resultQuery, dealID); err != nil {
		return fmt.Errorf("delete deal result: %w", err)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, dealID)
	if err != nil {
		return fmt.Errorf("delete deal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierrors.ErrDealMissing
	}

	s.logger.DebugContext(ctx, "deal deleted", slog.String("deal_id", dealID))
	return nil
}

// SaveResult attaches an underwriting result to a deal, replacing any
// earlier one.
func (s *Store) SaveResult(ctx context.Context, rec *domain.DealResultRecord) error {
	if rec == nil {
		return fmt.Errorf("deal result record is required")
	}
	dealID, err := parseID(rec.DealID)
	if err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`
INSERT INTO %s (deal_id, result, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (deal_id) DO UPDATE
SET result = EXCLUDED.result, created_at = EXCLUDED.created_at`, s.resultsTable)

	if _, err := s.pool.Exec(ctx, query, dealID, rec.Result, rec.CreatedAt); err != nil {
		return fmt.Errorf("save deal result: %w", err)
	}

	s.logger.DebugContext(ctx, "deal result saved", slog.String("deal_id", dealID))
	return nil
}

// GetResult returns the result attached to a deal. Absence is two
// different not-founds: ErrDealMissing when the deal itself does not
// exist, ErrResultMissing when it exists but was never underwritten.
func (s *Store) GetResult(ctx context.Context, id string) (*domain.DealResultRecord, error) {
	dealID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT deal_id, result, created_at
FROM %s
WHERE deal_id = $1`, s.resultsTable)

	var rec domain.DealResultRecord
	err = s.pool.QueryRow(ctx, query, dealID).Scan(&rec.DealID, &rec.Result, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			exists, existsErr := s.dealExists(ctx, dealID)
			if existsErr != nil {
				return nil, existsErr
			}
			if !exists {
				return nil, fmt.Errorf("get deal result: %w", apierrors.ErrDealMissing)
			}
			return nil, fmt.Errorf("get deal result: %w", apierrors.ErrResultMissing)
		}
		return nil, fmt.Errorf("get deal result: %w", err)
	}
	return &rec, nil
}

func (s *Store) dealExists(ctx context.Context, dealID string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, s.table)

	var exists bool
	if err := s.pool.QueryRow(ctx, query, dealID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check deal exists: %w", err)
	}
	return exists, nil
}

// parseID normalizes a deal id. Anything that is not a UUID cannot name a
// stored deal, so it maps to the not-found sentinel.
func parseID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("invalid deal id %q: %w", id, apierrors.ErrDealMissing)
	}
	return u.String(), nil
}
