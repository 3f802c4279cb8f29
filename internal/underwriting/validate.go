package underwriting

import (
	"fmt"
	"math"
)

// ValidateDealInput performs comprehensive validation of a deal before it
// reaches the projector. Invalid input never produces a schedule.
func ValidateDealInput(input DealInput) error {
	if err := validateFinite(input); err != nil {
		return err
	}
	if err := validateAcquisition(input.Acquisition); err != nil {
		return fmt.Errorf("acquisition validation: %w", err)
	}
	if err := validateIncome(input.Income); err != nil {
		return fmt.Errorf("income validation: %w", err)
	}
	if err := validateExpenses(input.Expenses); err != nil {
		return fmt.Errorf("expense validation: %w", err)
	}
	if err := validateRenovation(input.Renovation); err != nil {
		return fmt.Errorf("renovation validation: %w", err)
	}
	if err := validateFinancing(input.Financing); err != nil {
		return fmt.Errorf("financing validation: %w", err)
	}
	if err := validateTax(input.Tax); err != nil {
		return fmt.Errorf("tax validation: %w", err)
	}
	return validateCrossField(input)
}

func validateAcquisition(cfg AcquisitionConfig) error {
	if cfg.PurchasePrice <= 0 {
		return &ValidationError{
			Field:   "PurchasePrice",
			Message: "purchase price must be positive",
			Value:   cfg.PurchasePrice,
		}
	}

	if cfg.ClosingCostRate < 0 || cfg.ClosingCostRate > 0.15 {
		return &ValidationError{
			Field:   "ClosingCostRate",
			Message: "closing cost rate must be between 0 and 0.15",
			Value:   cfg.ClosingCostRate,
		}
	}

	if cfg.HoldYears < MinHoldYears || cfg.HoldYears > MaxHoldYears {
		return &ValidationError{
			Field:   "HoldYears",
			Message: fmt.Sprintf("hold period must be between %d and %d years", MinHoldYears, MaxHoldYears),
			Value:   cfg.HoldYears,
		}
	}

	if cfg.ExitCapRate <= 0 || cfg.ExitCapRate > MaxExitCapRate {
		return &ValidationError{
			Field:   "ExitCapRate",
			Message: fmt.Sprintf("exit cap rate must be in (0, %.2f]", MaxExitCapRate),
			Value:   cfg.ExitCapRate,
		}
	}

	if cfg.SaleCostRate < 0 || cfg.SaleCostRate > 0.15 {
		return &ValidationError{
			Field:   "SaleCostRate",
			Message: "sale cost rate must be between 0 and 0.15",
			Value:   cfg.SaleCostRate,
		}
	}

	return nil
}

func validateIncome(cfg IncomeConfig) error {
	if cfg.GrossRentMonthly <= 0 {
		return &ValidationError{
			Field:   "GrossRentMonthly",
			Message: "gross scheduled rent must be positive",
			Value:   cfg.GrossRentMonthly,
		}
	}

	if cfg.OtherIncomeMonthly < 0 {
		return &ValidationError{
			Field:   "OtherIncomeMonthly",
			Message: "other income cannot be negative",
			Value:   cfg.OtherIncomeMonthly,
		}
	}

	// Growth beyond -20%/+20% a year is almost certainly a unit mistake
	// (percent entered instead of fraction).
	if cfg.RentGrowthRate < -0.20 || cfg.RentGrowthRate > 0.20 {
		return &ValidationError{
			Field:   "RentGrowthRate",
			Message: "annual rent growth must be between -0.20 and 0.20",
			Value:   cfg.RentGrowthRate,
		}
	}

	if cfg.OtherIncomeGrowthRate < -0.20 || cfg.OtherIncomeGrowthRate > 0.20 {
		return &ValidationError{
			Field:   "OtherIncomeGrowthRate",
			Message: "annual other-income growth must be between -0.20 and 0.20",
			Value:   cfg.OtherIncomeGrowthRate,
		}
	}

	if cfg.VacancyRate < 0 || cfg.VacancyRate > 1 {
		return &ValidationError{
			Field:   "VacancyRate",
			Message: "vacancy rate must be between 0 and 1",
			Value:   cfg.VacancyRate,
		}
	}

	if cfg.BadDebtRate < 0 || cfg.BadDebtRate > 1 {
		return &ValidationError{
			Field:   "BadDebtRate",
			Message: "bad debt rate must be between 0 and 1",
			Value:   cfg.BadDebtRate,
		}
	}

	if cfg.VacancyRate+cfg.BadDebtRate >= 1 {
		return &ValidationError{
			Field:   "CollectionLoss",
			Message: "vacancy plus bad debt must leave some collectible rent",
			Value:   map[string]float64{"vacancy": cfg.VacancyRate, "bad_debt": cfg.BadDebtRate},
		}
	}

	return nil
}

func validateExpenses(cfg ExpenseConfig) error {
	if cfg.ManagementFeeRate < 0 || cfg.ManagementFeeRate > 0.25 {
		return &ValidationError{
			Field:   "ManagementFeeRate",
			Message: "management fee rate must be between 0 and 0.25",
			Value:   cfg.ManagementFeeRate,
		}
	}

	if cfg.OperatingExpenseRate < 0 || cfg.OperatingExpenseRate > 0.90 {
		return &ValidationError{
			Field:   "OperatingExpenseRate",
			Message: "operating expense rate must be between 0 and 0.90",
			Value:   cfg.OperatingExpenseRate,
		}
	}

	if cfg.ManagementFeeRate+cfg.OperatingExpenseRate >= 1 {
		return &ValidationError{
			Field:   "ExpenseRatios",
			Message: "expense ratios must leave some operating margin",
			Value:   map[string]float64{"management": cfg.ManagementFeeRate, "operating": cfg.OperatingExpenseRate},
		}
	}

	if cfg.PropertyTaxAnnual < 0 {
		return &ValidationError{
			Field:   "PropertyTaxAnnual",
			Message: "property tax cannot be negative",
			Value:   cfg.PropertyTaxAnnual,
		}
	}

	if cfg.InsuranceAnnual < 0 {
		return &ValidationError{
			Field:   "InsuranceAnnual",
			Message: "insurance cannot be negative",
			Value:   cfg.InsuranceAnnual,
		}
	}

	if cfg.ReservesMonthly < 0 {
		return &ValidationError{
			Field:   "ReservesMonthly",
			Message: "reserves cannot be negative",
			Value:   cfg.ReservesMonthly,
		}
	}

	if cfg.ExpenseGrowthRate < -0.20 || cfg.ExpenseGrowthRate > 0.20 {
		return &ValidationError{
			Field:   "ExpenseGrowthRate",
			Message: "annual expense growth must be between -0.20 and 0.20",
			Value:   cfg.ExpenseGrowthRate,
		}
	}

	return nil
}

func validateRenovation(cfg RenovationConfig) error {
	if cfg.Budget < 0 {
		return &ValidationError{
			Field:   "Budget",
			Message: "renovation budget cannot be negative",
			Value:   cfg.Budget,
		}
	}

	if cfg.DurationMonths < 0 {
		return &ValidationError{
			Field:   "DurationMonths",
			Message: "renovation duration cannot be negative",
			Value:   cfg.DurationMonths,
		}
	}

	if cfg.Budget > 0 && cfg.DurationMonths == 0 {
		return &ValidationError{
			Field:   "DurationMonths",
			Message: "a renovation budget requires a duration",
			Value:   cfg.Budget,
		}
	}

	if cfg.IncomeLossRate < 0 || cfg.IncomeLossRate > 1 {
		return &ValidationError{
			Field:   "IncomeLossRate",
			Message: "renovation income loss must be between 0 and 1",
			Value:   cfg.IncomeLossRate,
		}
	}

	if cfg.LeaseUpMonths < 0 {
		return &ValidationError{
			Field:   "LeaseUpMonths",
			Message: "lease-up months cannot be negative",
			Value:   cfg.LeaseUpMonths,
		}
	}

	if cfg.LeaseUpMonths > 0 && cfg.DurationMonths == 0 {
		return &ValidationError{
			Field:   "LeaseUpMonths",
			Message: "lease-up requires a renovation phase",
			Value:   cfg.LeaseUpMonths,
		}
	}

	if cfg.RentLiftRate < 0 || cfg.RentLiftRate > 1 {
		return &ValidationError{
			Field:   "RentLiftRate",
			Message: "rent lift must be between 0 and 1",
			Value:   cfg.RentLiftRate,
		}
	}

	if cfg.RentLiftRate > 0 && cfg.DurationMonths == 0 {
		return &ValidationError{
			Field:   "RentLiftRate",
			Message: "a rent lift requires a renovation phase",
			Value:   cfg.RentLiftRate,
		}
	}

	return nil
}

func validateFinancing(cfg FinancingConfig) error {
	if cfg.LoanToValue < 0 || cfg.LoanToValue >= 1 {
		return &ValidationError{
			Field:   "LoanToValue",
			Message: "loan-to-value must be in [0, 1)",
			Value:   cfg.LoanToValue,
		}
	}

	if cfg.LoanToValue == 0 {
		// All-cash deal: remaining loan fields are ignored but must not
		// carry garbage that suggests a half-filled request.
		if cfg.LoanFeeRate != 0 {
			return &ValidationError{
				Field:   "LoanFeeRate",
				Message: "loan fee requires a loan",
				Value:   cfg.LoanFeeRate,
			}
		}
		return nil
	}

	if cfg.InterestRate <= 0 || cfg.InterestRate > 0.30 {
		return &ValidationError{
			Field:   "InterestRate",
			Message: "interest rate must be in (0, 0.30]",
			Value:   cfg.InterestRate,
		}
	}

	if cfg.AmortizationYears < 1 || cfg.AmortizationYears > MaxAmortizationYears {
		return &ValidationError{
			Field:   "AmortizationYears",
			Message: fmt.Sprintf("amortization must be between 1 and %d years", MaxAmortizationYears),
			Value:   cfg.AmortizationYears,
		}
	}

	if cfg.InterestOnlyMonths < 0 {
		return &ValidationError{
			Field:   "InterestOnlyMonths",
			Message: "interest-only months cannot be negative",
			Value:   cfg.InterestOnlyMonths,
		}
	}

	if cfg.LoanFeeRate < 0 || cfg.LoanFeeRate > 0.05 {
		return &ValidationError{
			Field:   "LoanFeeRate",
			Message: "loan fee rate must be between 0 and 0.05",
			Value:   cfg.LoanFeeRate,
		}
	}

	return nil
}

func validateTax(cfg TaxConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.LandValueRate < 0 || cfg.LandValueRate >= 1 {
		return &ValidationError{
			Field:   "LandValueRate",
			Message: "land value rate must be in [0, 1)",
			Value:   cfg.LandValueRate,
		}
	}

	if cfg.DepreciationYears < 1 || cfg.DepreciationYears > 50 {
		return &ValidationError{
			Field:   "DepreciationYears",
			Message: "depreciation schedule must be between 1 and 50 years",
			Value:   cfg.DepreciationYears,
		}
	}

	if cfg.IncomeTaxRate < 0 || cfg.IncomeTaxRate > 0.60 {
		return &ValidationError{
			Field:   "IncomeTaxRate",
			Message: "income tax rate must be between 0 and 0.60",
			Value:   cfg.IncomeTaxRate,
		}
	}

	if cfg.CapitalGainsRate < 0 || cfg.CapitalGainsRate > 0.60 {
		return &ValidationError{
			Field:   "CapitalGainsRate",
			Message: "capital gains rate must be between 0 and 0.60",
			Value:   cfg.CapitalGainsRate,
		}
	}

	if cfg.RecaptureRate < 0 || cfg.RecaptureRate > 0.60 {
		return &ValidationError{
			Field:   "RecaptureRate",
			Message: "recapture rate must be between 0 and 0.60",
			Value:   cfg.RecaptureRate,
		}
	}

	return nil
}

// validateCrossField checks relationships that span configs.
func validateCrossField(input DealInput) error {
	holdMonths := input.HoldMonths()

	if input.Renovation.DurationMonths >= holdMonths {
		return &ValidationError{
			Field:   "Renovation.DurationMonths",
			Message: "renovation must finish before the end of the hold",
			Value:   map[string]int{"duration": input.Renovation.DurationMonths, "hold_months": holdMonths},
		}
	}

	if input.Renovation.DurationMonths+input.Renovation.LeaseUpMonths >= holdMonths {
		return &ValidationError{
			Field:   "Renovation.LeaseUpMonths",
			Message: "renovation plus lease-up must finish before the end of the hold",
			Value: map[string]int{
				"duration":    input.Renovation.DurationMonths,
				"lease_up":    input.Renovation.LeaseUpMonths,
				"hold_months": holdMonths,
			},
		}
	}

	if input.HasDebt() && input.Financing.InterestOnlyMonths >= holdMonths {
		return &ValidationError{
			Field:   "Financing.InterestOnlyMonths",
			Message: "interest-only window must end before the end of the hold",
			Value:   map[string]int{"interest_only": input.Financing.InterestOnlyMonths, "hold_months": holdMonths},
		}
	}

	if input.InitialEquity() <= 0 {
		return &ValidationError{
			Field:   "InitialEquity",
			Message: "deal structure requires positive initial equity",
			Value:   input.InitialEquity(),
		}
	}

	return nil
}

// validateFinite rejects NaN or Inf in any numeric assumption before the
// math sees it.
func validateFinite(input DealInput) error {
	fields := map[string]float64{
		"Acquisition.PurchasePrice":      input.Acquisition.PurchasePrice,
		"Acquisition.ClosingCostRate":    input.Acquisition.ClosingCostRate,
		"Acquisition.ExitCapRate":        input.Acquisition.ExitCapRate,
		"Acquisition.SaleCostRate":       input.Acquisition.SaleCostRate,
		"Income.GrossRentMonthly":        input.Income.GrossRentMonthly,
		"Income.OtherIncomeMonthly":      input.Income.OtherIncomeMonthly,
		"Income.RentGrowthRate":          input.Income.RentGrowthRate,
		"Income.OtherIncomeGrowthRate":   input.Income.OtherIncomeGrowthRate,
		"Income.VacancyRate":             input.Income.VacancyRate,
		"Income.BadDebtRate":             input.Income.BadDebtRate,
		"Expenses.ManagementFeeRate":     input.Expenses.ManagementFeeRate,
		"Expenses.OperatingExpenseRate":  input.Expenses.OperatingExpenseRate,
		"Expenses.PropertyTaxAnnual":     input.Expenses.PropertyTaxAnnual,
		"Expenses.InsuranceAnnual":       input.Expenses.InsuranceAnnual,
		"Expenses.ReservesMonthly":       input.Expenses.ReservesMonthly,
		"Expenses.ExpenseGrowthRate":     input.Expenses.ExpenseGrowthRate,
		"Renovation.Budget":              input.Renovation.Budget,
		"Renovation.IncomeLossRate":      input.Renovation.IncomeLossRate,
		"Renovation.RentLiftRate":        input.Renovation.RentLiftRate,
		"Financing.LoanToValue":          input.Financing.LoanToValue,
		"Financing.InterestRate":         input.Financing.InterestRate,
		"Financing.LoanFeeRate":          input.Financing.LoanFeeRate,
		"Tax.LandValueRate":              input.Tax.LandValueRate,
		"Tax.DepreciationYears":          input.Tax.DepreciationYears,
		"Tax.IncomeTaxRate":              input.Tax.IncomeTaxRate,
		"Tax.CapitalGainsRate":           input.Tax.CapitalGainsRate,
		"Tax.RecaptureRate":              input.Tax.RecaptureRate,
	}

	for field, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{
				Field:   field,
				Message: "value is NaN or Inf",
			}
		}
	}

	return nil
}

// validateResultFinite scans a finished result for NaN/Inf leakage.
func validateResultFinite(result *UnderwritingResult) error {
	for i := range result.Annual {
		a := &result.Annual[i]
		values := []float64{
			a.ScheduledRent, a.EffectiveGrossIncome, a.OperatingExpenses,
			a.NetOperatingIncome, a.DebtService, a.PreTaxCashFlow,
			a.AfterTaxCashFlow, a.EndingLoanBalance, a.DSCR, a.CashOnCash,
		}
		for _, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &ValidationError{
					Field:   "Annual",
					Message: "annual summary contains NaN or Inf values",
					Value:   a.Year,
				}
			}
		}
	}

	m := result.Metrics
	e := result.Exit
	values := []float64{
		m.InitialEquity, m.TotalProfit, m.EquityMultiple, m.IRR, m.AfterTaxIRR,
		m.AverageCashOnCash, m.Year1CashOnCash, m.MinDSCR, m.AverageDSCR,
		m.BreakEvenOccupancy,
		e.ForwardNOI, e.GrossSalePrice, e.SaleCosts, e.LoanPayoff,
		e.NetProceeds, e.AfterTaxProceeds,
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{
				Field:   "Metrics",
				Message: "result contains NaN or Inf values",
			}
		}
	}

	return nil
}
