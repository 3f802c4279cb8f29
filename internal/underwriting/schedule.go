package underwriting

import "math"

// buildSchedule projects the deal month by month. It runs twelve months
// past the hold so the exit valuator can observe forward NOI; callers
// trim the extension off the reported result.
//
// Assumes input already passed ValidateDealInput.
func buildSchedule(input DealInput) []MonthlyCashFlow {
	months := input.HoldMonths() + MonthsPerYear

	loan := input.LoanAmount()
	balance := loan
	monthlyRate := input.Financing.MonthlyRate()
	amortPayment := PaymentAmount(monthlyRate, input.Financing.AmortizationYears*MonthsPerYear, loan)

	renoEnd := input.Renovation.DurationMonths
	leaseUpEnd := renoEnd + input.Renovation.LeaseUpMonths

	var renoDraw float64
	if renoEnd > 0 {
		renoDraw = input.Renovation.Budget / float64(renoEnd)
	}

	// Straight-line depreciation. The building depreciates from month 1,
	// the renovation basis from the month after completion.
	var buildingDep, renoDep float64
	if input.Tax.Enabled {
		depMonths := input.Tax.DepreciationYears * MonthsPerYear
		buildingDep = input.Acquisition.PurchasePrice * (1 - input.Tax.LandValueRate) / depMonths
		renoDep = input.Renovation.Budget / depMonths
	}

	// Annual growth compounds as a step function at each anniversary.
	compound := func(rate float64, years int) float64 {
		return math.Pow(1+rate, float64(years))
	}

	rows := make([]MonthlyCashFlow, 0, months)

	for m := 1; m <= months; m++ {
		yearIdx := (m - 1) / MonthsPerYear

		scheduled := input.Income.GrossRentMonthly * compound(input.Income.RentGrowthRate, yearIdx)
		if m > renoEnd {
			scheduled *= 1 + input.Renovation.RentLiftRate
		}

		lossRate := occupancyLossRate(input, m, renoEnd, leaseUpEnd)
		vacancyLoss := scheduled * lossRate
		badDebt := scheduled * input.Income.BadDebtRate
		other := input.Income.OtherIncomeMonthly * compound(input.Income.OtherIncomeGrowthRate, yearIdx)
		egi := scheduled - vacancyLoss - badDebt + other

		expenseFactor := compound(input.Expenses.ExpenseGrowthRate, yearIdx)
		managementFee := egi * input.Expenses.ManagementFeeRate
		variableOpex := egi * input.Expenses.OperatingExpenseRate
		fixedOpex := (input.Expenses.PropertyTaxAnnual + input.Expenses.InsuranceAnnual) /
			MonthsPerYear * expenseFactor
		opex := managementFee + variableOpex + fixedOpex

		noi := egi - opex
		reserves := input.Expenses.ReservesMonthly * expenseFactor

		var reno float64
		if m <= renoEnd {
			reno = renoDraw
		}

		interest := balance * monthlyRate
		var payment, principal float64
		if balance > 0 {
			if m <= input.Financing.InterestOnlyMonths {
				payment = interest
			} else {
				payment = amortPayment
				principal = payment - interest
				if principal > balance {
					// Final payment clamp: never amortize below zero.
					principal = balance
					payment = interest + principal
				}
				balance -= principal
			}
		} else {
			interest = 0
		}

		preTax := noi - reserves - reno - payment

		row := MonthlyCashFlow{
			Month:                m,
			Year:                 yearIdx + 1,
			ScheduledRent:        scheduled,
			VacancyLoss:          vacancyLoss,
			BadDebtLoss:          badDebt,
			OtherIncome:          other,
			EffectiveGrossIncome: egi,
			OperatingExpenses:    opex,
			NetOperatingIncome:   noi,
			Reserves:             reserves,
			RenovationSpend:      reno,
			DebtService:          payment,
			InterestPaid:         interest,
			PrincipalPaid:        principal,
			LoanBalance:          balance,
			PreTaxCashFlow:       preTax,
			AfterTaxCashFlow:     preTax,
		}

		if input.Tax.Enabled {
			dep := buildingDep
			if m > renoEnd && input.Renovation.Budget > 0 {
				dep += renoDep
			}
			taxable := noi - interest - dep
			tax := taxable * input.Tax.IncomeTaxRate
			row.Depreciation = dep
			row.TaxableIncome = taxable
			row.IncomeTax = tax
			row.AfterTaxCashFlow = preTax - tax
		}

		rows = append(rows, row)
	}

	return rows
}

// occupancyLossRate returns the fraction of scheduled rent lost to
// physical vacancy in the given month. Renovation months lose at the
// renovation rate; lease-up months walk linearly back down to the
// stabilized vacancy rate.
func occupancyLossRate(input DealInput, month, renoEnd, leaseUpEnd int) float64 {
	stabilized := input.Income.VacancyRate

	switch {
	case renoEnd == 0:
		return stabilized
	case month <= renoEnd:
		return input.Renovation.IncomeLossRate
	case month <= leaseUpEnd:
		span := float64(leaseUpEnd - renoEnd)
		progress := float64(month-renoEnd) / span
		return input.Renovation.IncomeLossRate + (stabilized-input.Renovation.IncomeLossRate)*progress
	default:
		return stabilized
	}
}
