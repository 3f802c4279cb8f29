package underwriting

import "math"

// valueExit prices the sale at end of hold. Stabilized NOI is the forward
// twelve months observed from the schedule extension, capitalized at the
// exit cap rate; sale costs and the loan payoff come out of the gross.
// With tax enabled, gain splits into depreciation recapture and capital
// gain against the adjusted basis.
func valueExit(input DealInput, rows []MonthlyCashFlow) ExitValuation {
	holdMonths := input.HoldMonths()

	var forwardNOI float64
	for _, row := range rows[holdMonths : holdMonths+MonthsPerYear] {
		forwardNOI += row.NetOperatingIncome
	}

	valuation := ExitValuation{
		ForwardNOI:  forwardNOI,
		ExitCapRate: input.Acquisition.ExitCapRate,
	}

	if input.Acquisition.ExitCapRate > 0 {
		valuation.GrossSalePrice = forwardNOI / input.Acquisition.ExitCapRate
	}
	if valuation.GrossSalePrice < 0 {
		// A deal whose forward NOI is negative has no cap-rate value;
		// carry a zero sale rather than a negative price.
		valuation.GrossSalePrice = 0
	}

	valuation.SaleCosts = valuation.GrossSalePrice * input.Acquisition.SaleCostRate
	valuation.LoanPayoff = rows[holdMonths-1].LoanBalance
	valuation.NetProceeds = valuation.GrossSalePrice - valuation.SaleCosts - valuation.LoanPayoff
	valuation.AfterTaxProceeds = valuation.NetProceeds

	if !input.Tax.Enabled {
		return valuation
	}

	var accumDep float64
	for _, row := range rows[:holdMonths] {
		accumDep += row.Depreciation
	}

	valuation.AccumulatedDepreciation = accumDep
	valuation.AdjustedBasis = input.Acquisition.PurchasePrice + input.ClosingCosts() +
		input.Renovation.Budget - accumDep

	gain := (valuation.GrossSalePrice - valuation.SaleCosts) - valuation.AdjustedBasis
	if gain > 0 {
		recapturable := math.Min(gain, accumDep)
		valuation.RecaptureTax = recapturable * input.Tax.RecaptureRate
		valuation.CapitalGainsTax = (gain - recapturable) * input.Tax.CapitalGainsRate
	}

	valuation.AfterTaxProceeds = valuation.NetProceeds - valuation.RecaptureTax - valuation.CapitalGainsTax

	return valuation
}
