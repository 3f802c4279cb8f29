package rentroll

import (
	"math"

	"dealpulse/pkg/contracts/domain"
)

// summarize rolls parsed units into portfolio totals. When the sheet has
// no current rent column, in-place rent falls back to market rents on
// occupied units.
func summarize(units []domain.RentRollUnit, skipped int, sheet string, hasCurrentRent bool) domain.RentRollSummary {
	s := domain.RentRollSummary{
		UnitCount:   len(units),
		SkippedRows: skipped,
		Sheet:       sheet,
	}

	for _, u := range units {
		s.ScheduledRentMonthly += u.MarketRent
		s.TotalSquareFeet += u.SquareFeet
		if !u.Occupied {
			continue
		}
		s.OccupiedCount++
		if hasCurrentRent {
			s.InPlaceRentMonthly += u.CurrentRent
		} else {
			s.InPlaceRentMonthly += u.MarketRent
		}
	}

	s.ScheduledRentMonthly = round2(s.ScheduledRentMonthly)
	s.InPlaceRentMonthly = round2(s.InPlaceRentMonthly)

	if s.UnitCount > 0 {
		s.VacancyRate = round4(1 - float64(s.OccupiedCount)/float64(s.UnitCount))
		s.AverageMarketRent = round2(s.ScheduledRentMonthly / float64(s.UnitCount))
	}
	if s.OccupiedCount > 0 {
		s.AverageInPlaceRent = round2(s.InPlaceRentMonthly / float64(s.OccupiedCount))
	}

	return s
}

// suggest maps a summary onto income assumptions. The market basis pairs
// scheduled rent with the observed vacancy; the in-place basis carries no
// vacancy because collected rent is already net of it.
func suggest(s domain.RentRollSummary) []domain.IncomeSuggestion {
	out := []domain.IncomeSuggestion{{
		GrossRentMonthly: s.ScheduledRentMonthly,
		VacancyRate:      s.VacancyRate,
		Basis:            "market",
	}}

	if s.InPlaceRentMonthly > 0 {
		out = append(out, domain.IncomeSuggestion{
			GrossRentMonthly: s.InPlaceRentMonthly,
			VacancyRate:      0,
			Basis:            "in_place",
		})
	}

	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
