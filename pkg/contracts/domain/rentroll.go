package domain

// RentRollUnit is one parsed unit row from an uploaded rent roll.
type RentRollUnit struct {
	Unit        string  `json:"unit"`
	Status      string  `json:"status,omitempty"` // as written in the sheet
	Occupied    bool    `json:"occupied"`
	CurrentRent float64 `json:"current_rent,omitempty"`
	MarketRent  float64 `json:"market_rent"`
	SquareFeet  float64 `json:"square_feet,omitempty"`
}

// RentRollSummary aggregates a parsed rent roll.
type RentRollSummary struct {
	UnitCount            int     `json:"unit_count"`
	OccupiedCount        int     `json:"occupied_count"`
	ScheduledRentMonthly float64 `json:"scheduled_rent_monthly"` // market rent, all units
	InPlaceRentMonthly   float64 `json:"in_place_rent_monthly"`  // current rent, occupied units
	VacancyRate          float64 `json:"vacancy_rate"`           // observed physical vacancy
	AverageMarketRent    float64 `json:"average_market_rent"`
	AverageInPlaceRent   float64 `json:"average_in_place_rent"`
	TotalSquareFeet      float64 `json:"total_square_feet,omitempty"`
	SkippedRows          int     `json:"skipped_rows"`
	Sheet                string  `json:"sheet"`
}

// IncomeSuggestion maps a parsed rent roll onto underwriting income
// assumptions. Keys line up with the engine's income config.
type IncomeSuggestion struct {
	GrossRentMonthly float64 `json:"gross_rent_monthly"`
	VacancyRate      float64 `json:"vacancy_rate"`
	Basis            string  `json:"basis"` // market or in_place
}

// RentRoll is the full intake result for one workbook.
type RentRoll struct {
	Filename    string             `json:"filename,omitempty"`
	Summary     RentRollSummary    `json:"summary"`
	Units       []RentRollUnit     `json:"units"`
	Suggestions []IncomeSuggestion `json:"suggestions"`
	Warnings    []string           `json:"warnings,omitempty"`
}
