package underwriting

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Calculator orchestrates a full underwriting run: validation, monthly
// projection, annual aggregation, exit valuation, and deal metrics.
type Calculator struct {
	logger  *slog.Logger
	timeout time.Duration
}

// NewCalculator creates a calculator. A nil logger falls back to the
// default slog logger.
func NewCalculator(logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{
		logger:  logger.With(slog.String("component", "underwriting")),
		timeout: DefaultCalculationTimeout,
	}
}

// SetTimeout overrides the per-run timeout.
func (c *Calculator) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.timeout = timeout
	}
}

// Run underwrites a single deal.
func (c *Calculator) Run(ctx context.Context, input DealInput) (*UnderwritingResult, error) {
	start := time.Now()

	c.logger.InfoContext(ctx, "starting underwriting run",
		slog.String("deal", input.Name),
		slog.Float64("purchase_price", input.Acquisition.PurchasePrice),
		slog.Int("hold_years", input.Acquisition.HoldYears),
		slog.Float64("loan_to_value", input.Financing.LoanToValue),
	)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := ValidateDealInput(input); err != nil {
		return nil, fmt.Errorf("deal validation: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("underwriting cancelled: %w", ctx.Err())
	default:
	}

	result, err := runDeal(input)
	if err != nil {
		return nil, err
	}

	if !result.Metrics.IRRSolved {
		c.logger.WarnContext(ctx, "irr has no solution for deal",
			slog.String("deal", input.Name),
			slog.Float64("total_profit", result.Metrics.TotalProfit))
	}

	if err := validateResultFinite(result); err != nil {
		return nil, fmt.Errorf("result validation: %w", err)
	}

	c.logger.InfoContext(ctx, "underwriting run complete",
		slog.String("deal", input.Name),
		slog.Float64("irr", result.Metrics.IRR),
		slog.Float64("equity_multiple", result.Metrics.EquityMultiple),
		slog.Duration("duration", time.Since(start)),
	)

	return result, nil
}

// runDeal is the pure pipeline shared by Run and the sensitivity
// generator. Input must already be validated.
func runDeal(input DealInput) (*UnderwritingResult, error) {
	rows := buildSchedule(input)
	annual := aggregateAnnual(input, rows)
	exit := valueExit(input, rows)
	metrics := computeMetrics(input, rows, annual, exit)

	holdMonths := input.HoldMonths()
	result := &UnderwritingResult{
		DealName:    input.Name,
		GeneratedAt: time.Now().UTC(),
		Monthly:     rows[:holdMonths],
		Annual:      annual,
		Exit:        exit,
		Metrics:     metrics,
	}

	return result, nil
}

// computeMetrics assembles the cash-flow vectors and headline measures.
func computeMetrics(input DealInput, rows []MonthlyCashFlow, annual []AnnualSummary, exit ExitValuation) Metrics {
	holdMonths := input.HoldMonths()
	equity := input.InitialEquity()

	preTax := make([]float64, holdMonths+1)
	afterTax := make([]float64, holdMonths+1)
	preTax[0] = -equity
	afterTax[0] = -equity
	for m := 1; m <= holdMonths; m++ {
		preTax[m] = rows[m-1].PreTaxCashFlow
		afterTax[m] = rows[m-1].AfterTaxCashFlow
	}
	preTax[holdMonths] += exit.NetProceeds
	afterTax[holdMonths] += exit.AfterTaxProceeds

	metrics := Metrics{InitialEquity: equity}

	var totalProfit float64
	for _, cf := range preTax {
		totalProfit += cf
	}
	metrics.TotalProfit = totalProfit
	if equity > 0 {
		metrics.EquityMultiple = 1 + totalProfit/equity
	}

	if rate, err := InternalRateOfReturn(preTax); err == nil {
		metrics.IRR = AnnualizeMonthlyRate(rate)
		metrics.IRRSolved = true
	}
	if metrics.IRRSolved {
		if rate, err := InternalRateOfReturn(afterTax); err == nil {
			metrics.AfterTaxIRR = AnnualizeMonthlyRate(rate)
		}
	}

	var cocSum, dscrSum float64
	dscrYears := 0
	minDSCR := 0.0
	for _, year := range annual {
		cocSum += year.CashOnCash
		if year.DebtService > 0 {
			dscrSum += year.DSCR
			if dscrYears == 0 || year.DSCR < minDSCR {
				minDSCR = year.DSCR
			}
			dscrYears++
		}
	}
	if len(annual) > 0 {
		metrics.AverageCashOnCash = cocSum / float64(len(annual))
		metrics.Year1CashOnCash = annual[0].CashOnCash
	}
	if dscrYears > 0 {
		metrics.AverageDSCR = dscrSum / float64(dscrYears)
		metrics.MinDSCR = minDSCR
	}

	// Break-even occupancy: the share of year-1 gross potential income
	// consumed by operating expenses and debt service.
	if len(annual) > 0 {
		gpi := annual[0].ScheduledRent + annual[0].OtherIncome
		if gpi > 0 {
			metrics.BreakEvenOccupancy = (annual[0].OperatingExpenses + annual[0].DebtService) / gpi
		}
	}

	return metrics
}
