package underwriting

import (
	"errors"
	"math"
)

// Solver tuning. Rates here are periodic (monthly) rates.
const (
	maxNewtonIterations    = 100
	maxBisectionIterations = 200
	irrRateTolerance       = 1e-9
	irrValueTolerance      = 1e-6
	derivativeFloor        = 1e-12
	minPeriodicRate        = -0.9999
	maxPeriodicRate        = 10.0
	initialRateGuess       = 0.01
)

var (
	// ErrIRRNoSolution means the cash-flow vector cannot have a root:
	// it never changes sign.
	ErrIRRNoSolution = errors.New("irr: cash flows never change sign, no rate exists")

	// ErrIRRNoConvergence means both Newton-Raphson and the bisection
	// fallback failed to locate a root within the iteration budget.
	ErrIRRNoConvergence = errors.New("irr: solver did not converge")
)

// PaymentAmount calculates the level payment that fully amortizes a
// principal over numPayments periods at the periodic rate.
//
// FORMULA: PMT = P * r / (1 - (1+r)^-n)
//
// A zero rate degrades to straight-line principal. Non-positive principal
// or term returns 0.
func PaymentAmount(periodicRate float64, numPayments int, principal float64) float64 {
	if principal <= 0 || numPayments <= 0 {
		return 0
	}
	if periodicRate == 0 {
		return principal / float64(numPayments)
	}
	return principal * periodicRate / (1 - math.Pow(1+periodicRate, -float64(numPayments)))
}

// NetPresentValue discounts a cash-flow vector at the periodic rate.
// flows[0] is at time zero and is not discounted.
//
// FORMULA: NPV = sum(CF_t / (1+r)^t)
func NetPresentValue(periodicRate float64, flows []float64) float64 {
	npv := 0.0
	base := 1 + periodicRate
	discount := 1.0
	for _, cf := range flows {
		npv += cf / discount
		discount *= base
	}
	return npv
}

// npvDerivative is dNPV/dr, used by the Newton step.
//
// FORMULA: NPV'(r) = sum(-t * CF_t / (1+r)^(t+1))
func npvDerivative(periodicRate float64, flows []float64) float64 {
	d := 0.0
	base := 1 + periodicRate
	for t := 1; t < len(flows); t++ {
		d -= float64(t) * flows[t] / math.Pow(base, float64(t+1))
	}
	return d
}

// InternalRateOfReturn solves for the periodic rate that zeroes the net
// present value of the cash-flow vector. Newton-Raphson runs first; when
// the iteration stalls, diverges, or leaves the sane rate range, a
// sign-change scan plus bisection takes over.
func InternalRateOfReturn(flows []float64) (float64, error) {
	if len(flows) < 2 {
		return 0, ErrIRRNoSolution
	}

	hasNegative, hasPositive := false, false
	for _, cf := range flows {
		if cf < 0 {
			hasNegative = true
		}
		if cf > 0 {
			hasPositive = true
		}
	}
	if !hasNegative || !hasPositive {
		return 0, ErrIRRNoSolution
	}

	scale := math.Abs(flows[0])
	if scale < 1 {
		scale = 1
	}

	rate := initialRateGuess
	for i := 0; i < maxNewtonIterations; i++ {
		npv := NetPresentValue(rate, flows)
		if math.Abs(npv) < irrValueTolerance*scale {
			return rate, nil
		}

		d := npvDerivative(rate, flows)
		if math.Abs(d) < derivativeFloor {
			break
		}

		next := rate - npv/d
		if math.IsNaN(next) || next <= minPeriodicRate || next >= maxPeriodicRate {
			break
		}
		if math.Abs(next-rate) < irrRateTolerance {
			rate = next
			if math.Abs(NetPresentValue(rate, flows)) < irrValueTolerance*scale {
				return rate, nil
			}
			break
		}
		rate = next
	}

	return irrBisection(flows, scale)
}

// irrBisection scans for a sign change of NPV across the sane rate range
// and bisects the bracket.
func irrBisection(flows []float64, scale float64) (float64, error) {
	const scanSteps = 400

	lo, hi := minPeriodicRate, maxPeriodicRate
	step := (hi - lo) / scanSteps

	prevRate := lo
	prevNPV := NetPresentValue(prevRate, flows)
	bracketLo, bracketHi := 0.0, 0.0
	found := false

	for i := 1; i <= scanSteps; i++ {
		r := lo + float64(i)*step
		npv := NetPresentValue(r, flows)
		if math.Abs(npv) < irrValueTolerance*scale {
			return r, nil
		}
		if prevNPV*npv < 0 {
			bracketLo, bracketHi = prevRate, r
			found = true
			break
		}
		prevRate, prevNPV = r, npv
	}

	if !found {
		return 0, ErrIRRNoConvergence
	}

	fLo := NetPresentValue(bracketLo, flows)
	for i := 0; i < maxBisectionIterations; i++ {
		mid := (bracketLo + bracketHi) / 2
		fMid := NetPresentValue(mid, flows)

		if math.Abs(fMid) < irrValueTolerance*scale || (bracketHi-bracketLo)/2 < irrRateTolerance {
			return mid, nil
		}

		if fLo*fMid < 0 {
			bracketHi = mid
		} else {
			bracketLo = mid
			fLo = fMid
		}
	}

	return 0, ErrIRRNoConvergence
}

// AnnualizeMonthlyRate converts a monthly rate to an effective annual rate.
//
// FORMULA: annual = (1 + monthly)^12 - 1
func AnnualizeMonthlyRate(monthlyRate float64) float64 {
	return math.Pow(1+monthlyRate, MonthsPerYear) - 1
}
