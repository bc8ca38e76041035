package returns

import (
	"math"
	"sort"
	"time"

	"github.com/aristath/portfolio-engine/internal/domain"
)

// Rate bracket for the IRR root search, as annual rates.
const (
	irrRateFloor = -0.99
	irrRateCeil  = 10.0
)

// InternalRateOfReturn solves for the annual money-weighted rate of
// return: the rate at which the net present value of the cash-flow
// schedule plus the final valuation is zero. Contributions are positive,
// withdrawals negative (investor sign convention is applied internally).
// finalValue is the portfolio value at finalDate and acts as the terminal
// flow.
//
// The solver runs Newton iterations and falls back to bisection whenever
// a step leaves the bracket or the derivative degenerates, so convergence
// is guaranteed once a sign change is found on [-99%, +1000%].
func (s *Service) InternalRateOfReturn(flows []domain.CashFlow, finalValue float64, finalDate time.Time) (float64, error) {
	if len(flows) == 0 {
		return 0, &domain.InsufficientDataError{
			Reason: "no cash flows for internal rate of return",
			Have:   0,
			Need:   1,
		}
	}

	sorted := make([]domain.CashFlow, len(flows))
	copy(sorted, flows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	start := sorted[0].Date

	// Investor perspective: contributions are money out (negative),
	// the terminal valuation is money back in (positive).
	times := make([]float64, 0, len(sorted)+1)
	amounts := make([]float64, 0, len(sorted)+1)
	for _, f := range sorted {
		times = append(times, yearsBetween(start, f.Date))
		amounts = append(amounts, -f.Amount)
	}
	times = append(times, yearsBetween(start, finalDate))
	amounts = append(amounts, finalValue)

	npv := func(rate float64) float64 {
		total := 0.0
		for i, t := range times {
			total += amounts[i] * math.Pow(1+rate, -t)
		}
		return total
	}
	npvDerivative := func(rate float64) float64 {
		total := 0.0
		for i, t := range times {
			total += amounts[i] * -t * math.Pow(1+rate, -t-1)
		}
		return total
	}

	lo, hi, err := bracketRoot(npv)
	if err != nil {
		return 0, err
	}

	rate := 0.1
	if rate < lo || rate > hi {
		rate = (lo + hi) / 2
	}

	for i := 0; i < s.cfg.IRRMaxIterations; i++ {
		value := npv(rate)
		if math.Abs(value) < s.cfg.IRRTolerance {
			return rate, nil
		}

		// Shrink the bisection bracket around the sign change.
		if sameSign(value, npv(lo)) {
			lo = rate
		} else {
			hi = rate
		}

		next := rate
		if d := npvDerivative(rate); math.Abs(d) > 1e-12 {
			next = rate - value/d
		}
		if next <= lo || next >= hi || math.IsNaN(next) {
			next = (lo + hi) / 2
		}

		if math.Abs(next-rate) < s.cfg.IRRTolerance {
			return next, nil
		}
		rate = next
	}

	return 0, &domain.NumericInstabilityError{
		Op:     "internal_rate_of_return",
		Reason: "root-finder did not converge within iteration cap",
	}
}

// bracketRoot finds a sign change of f within the rate bounds, scanning a
// coarse grid when the endpoints do not already bracket a root.
func bracketRoot(f func(float64) float64) (float64, float64, error) {
	lo, hi := irrRateFloor, irrRateCeil
	if !sameSign(f(lo), f(hi)) {
		return lo, hi, nil
	}

	const steps = 100
	width := (hi - lo) / steps
	prev := f(lo)
	for i := 1; i <= steps; i++ {
		x := lo + float64(i)*width
		curr := f(x)
		if !sameSign(prev, curr) {
			return x - width, x, nil
		}
		prev = curr
	}

	return 0, 0, &domain.NumericInstabilityError{
		Op:     "internal_rate_of_return",
		Reason: "net present value has no root in [-99%, +1000%]",
	}
}

func sameSign(a, b float64) bool {
	return (a >= 0) == (b >= 0)
}

func yearsBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24 / 365
}
