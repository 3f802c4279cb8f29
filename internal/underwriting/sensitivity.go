package underwriting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// RunSensitivity re-underwrites the deal under perturbed assumptions and
// assembles the comparison tables: a rent x exit-cap IRR grid and a
// renovation-budget row. Cells evaluate in parallel, bounded by
// cfg.MaxParallel. A perturbation that produces an invalid deal or an
// unsolvable IRR yields an invalid cell, not a failed sweep.
func (c *Calculator) RunSensitivity(ctx context.Context, input DealInput, cfg SensitivityConfig) (*SensitivityResult, error) {
	start := time.Now()

	if !cfg.IsValid() {
		return nil, &ValidationError{
			Field:   "SensitivityConfig",
			Message: "sensitivity config needs rent deltas, cap-rate deltas, and at least one worker",
		}
	}

	totalCells := len(cfg.RentDeltas)*len(cfg.CapRateDeltas) + len(cfg.BudgetDeltas)
	c.logger.InfoContext(ctx, "starting sensitivity sweep",
		slog.String("deal", input.Name),
		slog.Int("cells", totalCells),
		slog.Int("max_parallel", cfg.MaxParallel),
	)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := ValidateDealInput(input); err != nil {
		return nil, fmt.Errorf("deal validation: %w", err)
	}

	base, err := runDeal(input)
	if err != nil {
		return nil, fmt.Errorf("base case: %w", err)
	}

	result := &SensitivityResult{
		GeneratedAt:   time.Now().UTC(),
		BaseIRR:       base.Metrics.IRR,
		RentDeltas:    cfg.RentDeltas,
		CapRateDeltas: cfg.CapRateDeltas,
		BudgetDeltas:  cfg.BudgetDeltas,
		Grid:          make([][]SensitivityCell, len(cfg.RentDeltas)),
		Budget:        make([]SensitivityCell, len(cfg.BudgetDeltas)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxParallel)

	for i, rentDelta := range cfg.RentDeltas {
		result.Grid[i] = make([]SensitivityCell, len(cfg.CapRateDeltas))
		for j, capDelta := range cfg.CapRateDeltas {
			g.Go(func() error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				result.Grid[i][j] = evaluateCell(input, rentDelta, capDelta, 0)
				return nil
			})
		}
	}

	for k, budgetDelta := range cfg.BudgetDeltas {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			result.Budget[k] = evaluateCell(input, 0, 0, budgetDelta)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sensitivity sweep: %w", err)
	}

	invalid := 0
	for _, row := range result.Grid {
		for _, cell := range row {
			if !cell.Valid {
				invalid++
			}
		}
	}
	for _, cell := range result.Budget {
		if !cell.Valid {
			invalid++
		}
	}
	if invalid > 0 {
		c.logger.WarnContext(ctx, "sensitivity sweep produced invalid cells",
			slog.Int("invalid", invalid),
			slog.Int("total", totalCells))
	}

	c.logger.InfoContext(ctx, "sensitivity sweep complete",
		slog.String("deal", input.Name),
		slog.Int("cells", totalCells),
		slog.Duration("duration", time.Since(start)),
	)

	return result, nil
}

// evaluateCell underwrites one perturbed variant. Rent and budget deltas
// are fractional; the cap delta shifts the exit cap by absolute points.
func evaluateCell(base DealInput, rentDelta, capDelta, budgetDelta float64) SensitivityCell {
	cell := SensitivityCell{
		RentDelta:    rentDelta,
		CapRateDelta: capDelta,
		BudgetDelta:  budgetDelta,
	}

	perturbed := base
	perturbed.Income.GrossRentMonthly *= 1 + rentDelta
	perturbed.Acquisition.ExitCapRate += capDelta
	perturbed.Renovation.Budget *= 1 + budgetDelta

	if err := ValidateDealInput(perturbed); err != nil {
		return cell
	}

	run, err := runDeal(perturbed)
	if err != nil || !run.Metrics.IRRSolved {
		return cell
	}

	cell.IRR = run.Metrics.IRR
	cell.EquityMultiple = run.Metrics.EquityMultiple
	cell.ExitValue = run.Exit.GrossSalePrice
	cell.Valid = true
	return cell
}
