package underwriting

import (
	"fmt"
	"time"
)

// Constants for calculation parameters
const (
	MinHoldYears             = 1
	MaxHoldYears             = 30
	MaxAmortizationYears     = 40
	MaxExitCapRate           = 0.25
	DefaultDepreciationYears = 27.5
	DefaultRecaptureRate     = 0.25
	MonthsPerYear            = 12

	// DefaultCalculationTimeout bounds a single underwriting run
	DefaultCalculationTimeout = 30 * time.Second
)

// DealInput aggregates every assumption needed to underwrite a single deal.
// All rates are fractions (0.05 = 5%) and all amounts are currency units.
type DealInput struct {
	Name        string            `json:"name,omitempty"` // optional deal label
	Acquisition AcquisitionConfig `json:"acquisition"`
	Income      IncomeConfig      `json:"income"`
	Expenses    ExpenseConfig     `json:"expenses"`
	Renovation  RenovationConfig  `json:"renovation"`
	Financing   FinancingConfig   `json:"financing"`
	Tax         TaxConfig         `json:"tax"`
}

// AcquisitionConfig covers entry and exit of the asset
type AcquisitionConfig struct {
	PurchasePrice   float64 `json:"purchase_price"`    // contract price
	ClosingCostRate float64 `json:"closing_cost_rate"` // fraction of purchase price
	HoldYears       int     `json:"hold_years"`        // 1-30
	ExitCapRate     float64 `json:"exit_cap_rate"`     // applied to forward NOI at sale
	SaleCostRate    float64 `json:"sale_cost_rate"`    // fraction of gross sale price
}

// IncomeConfig describes scheduled income and collection losses
type IncomeConfig struct {
	GrossRentMonthly      float64 `json:"gross_rent_monthly"`       // scheduled rent, all units
	OtherIncomeMonthly    float64 `json:"other_income_monthly"`     // parking, laundry, fees
	RentGrowthRate        float64 `json:"rent_growth_rate"`         // annual, compounds at anniversaries
	OtherIncomeGrowthRate float64 `json:"other_income_growth_rate"` // annual
	VacancyRate           float64 `json:"vacancy_rate"`             // stabilized physical vacancy
	BadDebtRate           float64 `json:"bad_debt_rate"`            // collection loss
}

// ExpenseConfig describes operating expenses and reserves
type ExpenseConfig struct {
	ManagementFeeRate    float64 `json:"management_fee_rate"`   // fraction of EGI
	OperatingExpenseRate float64 `json:"operating_expense_rate"` // repairs/utilities/admin, fraction of EGI
	PropertyTaxAnnual    float64 `json:"property_tax_annual"`
	InsuranceAnnual      float64 `json:"insurance_annual"`
	ReservesMonthly      float64 `json:"reserves_monthly"` // replacement reserves, below NOI
	ExpenseGrowthRate    float64 `json:"expense_growth_rate"` // annual, fixed lines and reserves
}

// RenovationConfig describes the value-add program, if any
type RenovationConfig struct {
	Budget         float64 `json:"budget"`           // total capex, drawn evenly over the duration
	DurationMonths int     `json:"duration_months"`  // months 1..N of the hold
	IncomeLossRate float64 `json:"income_loss_rate"` // rent lost while units are down
	LeaseUpMonths  int     `json:"lease_up_months"`  // loss ramps back to stabilized vacancy
	RentLiftRate   float64 `json:"rent_lift_rate"`   // scheduled-rent premium after renovation
}

// FinancingConfig describes the acquisition loan. LoanToValue of zero
// underwrites the deal all-cash.
type FinancingConfig struct {
	LoanToValue        float64 `json:"loan_to_value"`        // fraction of purchase price
	InterestRate       float64 `json:"interest_rate"`        // annual nominal, monthly compounding
	AmortizationYears  int     `json:"amortization_years"`   // level-payment term
	InterestOnlyMonths int     `json:"interest_only_months"` // IO window before amortization
	LoanFeeRate        float64 `json:"loan_fee_rate"`        // points, added to initial equity
}

// TaxConfig drives the after-tax overlay. Disabled leaves after-tax
// figures equal to pre-tax.
type TaxConfig struct {
	Enabled           bool    `json:"enabled"`
	LandValueRate     float64 `json:"land_value_rate"`    // non-depreciable share of price
	DepreciationYears float64 `json:"depreciation_years"` // 27.5 residential, 39 commercial
	IncomeTaxRate     float64 `json:"income_tax_rate"`    // marginal rate on operations
	CapitalGainsRate  float64 `json:"capital_gains_rate"`
	RecaptureRate     float64 `json:"recapture_rate"` // on accumulated depreciation at sale
}

// HoldMonths returns the hold period in months.
func (d *DealInput) HoldMonths() int {
	return d.Acquisition.HoldYears * MonthsPerYear
}

// LoanAmount returns the original loan balance.
func (d *DealInput) LoanAmount() float64 {
	return d.Acquisition.PurchasePrice * d.Financing.LoanToValue
}

// ClosingCosts returns acquisition closing costs.
func (d *DealInput) ClosingCosts() float64 {
	return d.Acquisition.PurchasePrice * d.Acquisition.ClosingCostRate
}

// LoanFee returns financing points paid at close.
func (d *DealInput) LoanFee() float64 {
	return d.LoanAmount() * d.Financing.LoanFeeRate
}

// InitialEquity returns total cash required at close: down payment plus
// closing costs plus loan fee. Renovation draws are funded from operations
// month by month.
func (d *DealInput) InitialEquity() float64 {
	return d.Acquisition.PurchasePrice - d.LoanAmount() + d.ClosingCosts() + d.LoanFee()
}

// HasDebt reports whether the deal carries an acquisition loan.
func (d *DealInput) HasDebt() bool {
	return d.LoanAmount() > 0
}

// MonthlyRate returns the periodic interest rate.
func (f FinancingConfig) MonthlyRate() float64 {
	return f.InterestRate / MonthsPerYear
}

// DefaultDealInput returns a realistic value-add baseline: a small
// multifamily acquisition with a light renovation and agency-style debt.
func DefaultDealInput() DealInput {
	return DealInput{
		Acquisition: AcquisitionConfig{
			PurchasePrice:   2_400_000,
			ClosingCostRate: 0.02,
			HoldYears:       5,
			ExitCapRate:     0.055,
			SaleCostRate:    0.06,
		},
		Income: IncomeConfig{
			GrossRentMonthly:      21_000,
			OtherIncomeMonthly:    900,
			RentGrowthRate:        0.03,
			OtherIncomeGrowthRate: 0.02,
			VacancyRate:           0.05,
			BadDebtRate:           0.01,
		},
		Expenses: ExpenseConfig{
			ManagementFeeRate:    0.04,
			OperatingExpenseRate: 0.18,
			PropertyTaxAnnual:    28_000,
			InsuranceAnnual:      9_500,
			ReservesMonthly:      600,
			ExpenseGrowthRate:    0.025,
		},
		Renovation: RenovationConfig{
			Budget:         150_000,
			DurationMonths: 6,
			IncomeLossRate: 0.20,
			LeaseUpMonths:  3,
			RentLiftRate:   0.08,
		},
		Financing: FinancingConfig{
			LoanToValue:        0.65,
			InterestRate:       0.0625,
			AmortizationYears:  30,
			InterestOnlyMonths: 12,
			LoanFeeRate:        0.01,
		},
		Tax: TaxConfig{
			Enabled:           true,
			LandValueRate:     0.20,
			DepreciationYears: DefaultDepreciationYears,
			IncomeTaxRate:     0.32,
			CapitalGainsRate:  0.20,
			RecaptureRate:     DefaultRecaptureRate,
		},
	}
}

// MonthlyCashFlow is one row of the projection. Amounts are for the month;
// LoanBalance is end of month.
type MonthlyCashFlow struct {
	Month                int     `json:"month"` // 1-based
	Year                 int     `json:"year"`  // 1-based hold year
	ScheduledRent        float64 `json:"scheduled_rent"`
	VacancyLoss          float64 `json:"vacancy_loss"` // includes renovation/lease-up loss
	BadDebtLoss          float64 `json:"bad_debt_loss"`
	OtherIncome          float64 `json:"other_income"`
	EffectiveGrossIncome float64 `json:"effective_gross_income"`
	OperatingExpenses    float64 `json:"operating_expenses"`
	NetOperatingIncome   float64 `json:"net_operating_income"`
	Reserves             float64 `json:"reserves"`
	RenovationSpend      float64 `json:"renovation_spend"`
	DebtService          float64 `json:"debt_service"`
	InterestPaid         float64 `json:"interest_paid"`
	PrincipalPaid        float64 `json:"principal_paid"`
	LoanBalance          float64 `json:"loan_balance"`
	PreTaxCashFlow       float64 `json:"pre_tax_cash_flow"`
	Depreciation         float64 `json:"depreciation"`
	TaxableIncome        float64 `json:"taxable_income"`
	IncomeTax            float64 `json:"income_tax"` // negative is a benefit
	AfterTaxCashFlow     float64 `json:"after_tax_cash_flow"`
}

// AnnualSummary rolls twelve monthly rows into one hold year.
type AnnualSummary struct {
	Year                 int     `json:"year"`
	ScheduledRent        float64 `json:"scheduled_rent"`
	VacancyLoss          float64 `json:"vacancy_loss"`
	BadDebtLoss          float64 `json:"bad_debt_loss"`
	OtherIncome          float64 `json:"other_income"`
	EffectiveGrossIncome float64 `json:"effective_gross_income"`
	OperatingExpenses    float64 `json:"operating_expenses"`
	NetOperatingIncome   float64 `json:"net_operating_income"`
	Reserves             float64 `json:"reserves"`
	RenovationSpend      float64 `json:"renovation_spend"`
	DebtService          float64 `json:"debt_service"`
	InterestPaid         float64 `json:"interest_paid"`
	PrincipalPaid        float64 `json:"principal_paid"`
	PreTaxCashFlow       float64 `json:"pre_tax_cash_flow"`
	AfterTaxCashFlow     float64 `json:"after_tax_cash_flow"`
	EndingLoanBalance    float64 `json:"ending_loan_balance"`
	DSCR                 float64 `json:"dscr"`         // 0 when undebted
	CashOnCash           float64 `json:"cash_on_cash"` // pre-tax cash flow over initial equity
}

// ExitValuation is the sale at end of hold: forward twelve-month NOI
// capitalized at the exit cap rate, net of sale costs and loan payoff.
type ExitValuation struct {
	ForwardNOI              float64 `json:"forward_noi"`
	ExitCapRate             float64 `json:"exit_cap_rate"`
	GrossSalePrice          float64 `json:"gross_sale_price"`
	SaleCosts               float64 `json:"sale_costs"`
	LoanPayoff              float64 `json:"loan_payoff"`
	NetProceeds             float64 `json:"net_proceeds"`
	AccumulatedDepreciation float64 `json:"accumulated_depreciation,omitempty"`
	AdjustedBasis           float64 `json:"adjusted_basis,omitempty"`
	RecaptureTax            float64 `json:"recapture_tax,omitempty"`
	CapitalGainsTax         float64 `json:"capital_gains_tax,omitempty"`
	AfterTaxProceeds        float64 `json:"after_tax_proceeds"`
}

// Metrics are the headline deal-level measures.
type Metrics struct {
	InitialEquity       float64 `json:"initial_equity"`
	TotalProfit         float64 `json:"total_profit"` // pre-tax, net of equity
	EquityMultiple      float64 `json:"equity_multiple"`
	IRR                 float64 `json:"irr"`        // annualized, pre-tax
	AfterTaxIRR         float64 `json:"after_tax_irr"`
	IRRSolved           bool    `json:"irr_solved"` // false when no root exists
	AverageCashOnCash   float64 `json:"average_cash_on_cash"`
	Year1CashOnCash     float64 `json:"year1_cash_on_cash"`
	MinDSCR             float64 `json:"min_dscr"`
	AverageDSCR         float64 `json:"average_dscr"`
	BreakEvenOccupancy  float64 `json:"break_even_occupancy"` // year 1
}

// UnderwritingResult is the full output of one run.
type UnderwritingResult struct {
	DealName    string            `json:"deal_name,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
	Monthly     []MonthlyCashFlow `json:"monthly"`
	Annual      []AnnualSummary   `json:"annual"`
	Exit        ExitValuation     `json:"exit"`
	Metrics     Metrics           `json:"metrics"`
}

// SensitivityConfig defines the perturbation steps for the comparison
// tables. Deltas are fractional for rent and budget, absolute cap-rate
// points for the exit cap (0.005 = 50 bps).
type SensitivityConfig struct {
	RentDeltas    []float64 `json:"rent_deltas"`
	CapRateDeltas []float64 `json:"cap_rate_deltas"`
	BudgetDeltas  []float64 `json:"budget_deltas"`
	MaxParallel   int       `json:"max_parallel"` // concurrent cell evaluations
}

// DefaultSensitivityConfig returns the usual spreads: rent +/-10%,
// exit cap +/-100 bps, renovation budget +/-20%.
func DefaultSensitivityConfig() SensitivityConfig {
	return SensitivityConfig{
		RentDeltas:    []float64{-0.10, -0.05, 0, 0.05, 0.10},
		CapRateDeltas: []float64{-0.010, -0.005, 0, 0.005, 0.010},
		BudgetDeltas:  []float64{-0.20, -0.10, 0, 0.10, 0.20},
		MaxParallel:   4,
	}
}

// IsValid performs a quick sanity check on the sensitivity configuration.
func (c SensitivityConfig) IsValid() bool {
	return len(c.RentDeltas) > 0 && len(c.CapRateDeltas) > 0 && c.MaxParallel >= 1
}

// SensitivityCell is one perturbed re-run. Valid is false when the
// perturbation produced an input the engine rejects or an unsolvable IRR.
type SensitivityCell struct {
	RentDelta      float64 `json:"rent_delta"`
	CapRateDelta   float64 `json:"cap_rate_delta"`
	BudgetDelta    float64 `json:"budget_delta"`
	IRR            float64 `json:"irr"`
	EquityMultiple float64 `json:"equity_multiple"`
	ExitValue      float64 `json:"exit_value"`
	Valid          bool    `json:"valid"`
}

// SensitivityResult holds the rent x exit-cap grid (rows follow
// RentDeltas, columns follow CapRateDeltas) and the budget row.
type SensitivityResult struct {
	GeneratedAt   time.Time           `json:"generated_at"`
	BaseIRR       float64             `json:"base_irr"`
	RentDeltas    []float64           `json:"rent_deltas"`
	CapRateDeltas []float64           `json:"cap_rate_deltas"`
	BudgetDeltas  []float64           `json:"budget_deltas"`
	Grid          [][]SensitivityCell `json:"grid"`
	Budget        []SensitivityCell   `json:"budget"`
}

// ValidationError provides detailed validation error information
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}
