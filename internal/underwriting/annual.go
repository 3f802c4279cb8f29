package underwriting

// aggregateAnnual rolls hold-period monthly rows into yearly summaries.
// The forward extension months past the hold are ignored here.
func aggregateAnnual(input DealInput, rows []MonthlyCashFlow) []AnnualSummary {
	years := input.Acquisition.HoldYears
	equity := input.InitialEquity()

	summaries := make([]AnnualSummary, 0, years)

	for y := 1; y <= years; y++ {
		start := (y - 1) * MonthsPerYear
		end := y * MonthsPerYear

		summary := AnnualSummary{Year: y}
		for _, row := range rows[start:end] {
			summary.ScheduledRent += row.ScheduledRent
			summary.VacancyLoss += row.VacancyLoss
			summary.BadDebtLoss += row.BadDebtLoss
			summary.OtherIncome += row.OtherIncome
			summary.EffectiveGrossIncome += row.EffectiveGrossIncome
			summary.OperatingExpenses += row.OperatingExpenses
			summary.NetOperatingIncome += row.NetOperatingIncome
			summary.Reserves += row.Reserves
			summary.RenovationSpend += row.RenovationSpend
			summary.DebtService += row.DebtService
			summary.InterestPaid += row.InterestPaid
			summary.PrincipalPaid += row.PrincipalPaid
			summary.PreTaxCashFlow += row.PreTaxCashFlow
			summary.AfterTaxCashFlow += row.AfterTaxCashFlow
		}
		summary.EndingLoanBalance = rows[end-1].LoanBalance

		if summary.DebtService > 0 {
			summary.DSCR = summary.NetOperatingIncome / summary.DebtService
		}
		if equity > 0 {
			summary.CashOnCash = summary.PreTaxCashFlow / equity
		}

		summaries = append(summaries, summary)
	}

	return summaries
}
