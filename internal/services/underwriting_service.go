package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	apierrors "dealpulse/internal/errors"
	"dealpulse/internal/infrastructure"
	"dealpulse/internal/jobs"
	"dealpulse/internal/underwriting"
	api "dealpulse/pkg/contracts/api/v1"
	"dealpulse/pkg/contracts/domain"
)

// Recommendation thresholds. IRR and cash-on-cash are annual fractions.
const (
	passIRR         = 0.08
	buyIRR          = 0.13
	strongBuyIRR    = 0.18
	minViableDSCR   = 1.0
	buyDSCR         = 1.20
	strongBuyDSCR   = 1.35
	strongBuyCoC    = 0.05
	minViableEquity = 1.2 // equity multiple
)

// UnderwriteReport is a full engine run plus the service's verdict.
type UnderwriteReport struct {
	Result         *underwriting.UnderwritingResult `json:"result"`
	Recommendation domain.Recommendation            `json:"recommendation"`
}

// UnderwritingService runs deals through the engine and grades the outcome.
type UnderwritingService struct {
	calculator *underwriting.Calculator
	metrics    *infrastructure.BusinessMetrics
	logger     *slog.Logger
}

// NewUnderwritingService creates the service around an engine instance.
// metrics may be nil when OpenTelemetry is not wired (CLI usage).
func NewUnderwritingService(calculator *underwriting.Calculator, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *UnderwritingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnderwritingService{
		calculator: calculator,
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "underwriting_service")),
	}
}

// DecodeDealInput parses a raw deal payload strictly: unknown fields are
// rejected so a misspelled assumption fails loudly instead of silently
// falling back to zero.
func DecodeDealInput(raw json.RawMessage) (underwriting.DealInput, error) {
	var input underwriting.DealInput
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		return underwriting.DealInput{}, fmt.Errorf("decode deal: %w", err)
	}
	return input, nil
}

// Underwrite runs one deal and attaches a recommendation. name, when set,
// overrides any name carried in the payload.
func (s *UnderwritingService) Underwrite(ctx context.Context, name string, raw json.RawMessage) (*UnderwriteReport, error) {
	start := time.Now()

	input, err := DecodeDealInput(raw)
	if err != nil {
		return nil, apierrors.InvalidRequestWithError(err)
	}
	if name != "" {
		input.Name = name
	}

	result, err := s.calculator.Run(ctx, input)
	infrastructure.RecordUnderwritingMetrics(ctx, s.metrics, input.Name, time.Since(start), err == nil && result.Metrics.IRRSolved, err)
	if err != nil {
		s.logger.WarnContext(ctx, "underwriting rejected deal",
			slog.String("deal_name", input.Name),
			slog.String("error", err.Error()))
		return nil, apierrors.ErrUnderwriting(err)
	}

	report := &UnderwriteReport{
		Result:         result,
		Recommendation: Recommend(result.Metrics, input.HasDebt()),
	}

	s.logger.InfoContext(ctx, "deal underwritten",
		slog.String("deal_name", input.Name),
		slog.Float64("irr", result.Metrics.IRR),
		slog.String("action", string(report.Recommendation.Action)),
		slog.Duration("duration", time.Since(start)))

	return report, nil
}

// RunSensitivity runs the perturbation sweep synchronously. rawConfig may
// be empty; the engine defaults apply.
func (s *UnderwritingService) RunSensitivity(ctx context.Context, rawDeal, rawConfig json.RawMessage) (*underwriting.SensitivityResult, error) {
	start := time.Now()

	input, cfg, err := decodeSensitivityInputs(rawDeal, rawConfig)
	if err != nil {
		return nil, apierrors.InvalidRequestWithError(err)
	}

	result, err := s.calculator.RunSensitivity(ctx, input, cfg)
	cells, invalid := countCells(result)
	infrastructure.RecordSensitivityMetrics(ctx, s.metrics, cells, invalid, time.Since(start), err)
	if err != nil {
		return nil, apierrors.ErrUnderwriting(err)
	}

	s.logger.InfoContext(ctx, "sensitivity sweep finished",
		slog.String("deal_name", input.Name),
		slog.Int("cells", cells),
		slog.Int("invalid_cells", invalid),
		slog.Duration("duration", time.Since(start)))

	return result, nil
}

// SensitivityRunner adapts the service for the background job queue. The
// job payload is a SensitivityJobRequest; the returned bytes are the
// marshalled sweep result.
func (s *UnderwritingService) SensitivityRunner() jobs.Runner {
	return func(ctx context.Context, job *domain.Job, progress func(percent int)) (json.RawMessage, error) {
		var req api.SensitivityJobRequest
		if err := json.Unmarshal(job.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode job payload: %w", err)
		}
		progress(10)

		result, err := s.RunSensitivity(ctx, req.Deal, req.Config)
		if err != nil {
			return nil, err
		}
		progress(90)

		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("marshal sweep result: %w", err)
		}
		return data, nil
	}
}

// Recommend grades an underwriting run. hasDebt controls whether debt
// coverage participates in the verdict; an all-cash deal has no DSCR.
func Recommend(m underwriting.Metrics, hasDebt bool) domain.Recommendation {
	var rationale []string

	if !m.IRRSolved {
		return domain.Recommendation{
			Action:    domain.ActionPass,
			Rationale: []string{"projected cash flows admit no internal rate of return"},
		}
	}

	if m.IRR < passIRR {
		rationale = append(rationale, fmt.Sprintf("IRR %.1f%% is below the %.0f%% floor", m.IRR*100, passIRR*100))
	}
	if m.EquityMultiple < minViableEquity {
		rationale = append(rationale, fmt.Sprintf("equity multiple %.2fx is below %.1fx", m.EquityMultiple, minViableEquity))
	}
	if hasDebt && m.MinDSCR < minViableDSCR {
		rationale = append(rationale, fmt.Sprintf("minimum DSCR %.2f falls below 1.0x coverage", m.MinDSCR))
	}
	if len(rationale) > 0 {
		return domain.Recommendation{Action: domain.ActionPass, Rationale: rationale}
	}

	if m.IRR >= strongBuyIRR && (!hasDebt || m.AverageDSCR >= strongBuyDSCR) && m.Year1CashOnCash >= strongBuyCoC {
		return domain.Recommendation{
			Action: domain.ActionStrongBuy,
			Rationale: []string{
				fmt.Sprintf("IRR %.1f%% clears the %.0f%% strong-buy bar", m.IRR*100, strongBuyIRR*100),
				fmt.Sprintf("year-1 cash-on-cash %.1f%% with solid coverage", m.Year1CashOnCash*100),
			},
		}
	}

	if m.IRR >= buyIRR && (!hasDebt || m.MinDSCR >= buyDSCR) {
		return domain.Recommendation{
			Action: domain.ActionBuy,
			Rationale: []string{
				fmt.Sprintf("IRR %.1f%% clears the %.0f%% buy bar", m.IRR*100, buyIRR*100),
			},
		}
	}

	return domain.Recommendation{
		Action: domain.ActionHold,
		Rationale: []string{
			fmt.Sprintf("IRR %.1f%% is viable but does not clear the %.0f%% buy bar", m.IRR*100, buyIRR*100),
		},
	}
}

func decodeSensitivityInputs(rawDeal, rawConfig json.RawMessage) (underwriting.DealInput, underwriting.SensitivityConfig, error) {
	input, err := DecodeDealInput(rawDeal)
	if err != nil {
		return underwriting.DealInput{}, underwriting.SensitivityConfig{}, err
	}

	cfg := underwriting.DefaultSensitivityConfig()
	if len(rawConfig) > 0 && !bytes.Equal(bytes.TrimSpace(rawConfig), []byte("null")) {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return underwriting.DealInput{}, underwriting.SensitivityConfig{}, fmt.Errorf("decode sensitivity config: %w", err)
		}
	}
	return input, cfg, nil
}

func countCells(result *underwriting.SensitivityResult) (cells, invalid int) {
	if result == nil {
		return 0, 0
	}
	for _, row := range result.Grid {
		for _, cell := range row {
			cells++
			if !cell.Valid {
				invalid++
			}
		}
	}
	for _, cell := range result.Budget {
		cells++
		if !cell.Valid {
			invalid++
		}
	}
	return cells, invalid
}
