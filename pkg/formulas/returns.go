package formulas

import "math"

// SimpleReturns converts prices to periodic simple returns:
// r[i] = p[i+1]/p[i] - 1. A zero price yields a zero return for that step.
func SimpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = prices[i]/prices[i-1] - 1
		}
	}
	return returns
}

// LogReturns converts prices to periodic log returns: r[i] = ln(p[i+1]/p[i]).
// Non-positive prices yield a zero return for that step.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > 0 && prices[i] > 0 {
			returns[i-1] = math.Log(prices[i] / prices[i-1])
		}
	}
	return returns
}

// TotalReturn geometrically compounds a series of periodic returns.
func TotalReturn(returns []float64) float64 {
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return growth - 1
}

// AnnualizeReturn converts a total return realized over nPeriods periodic
// observations into a periodsPerYear-equivalent compound rate:
// (1+total)^(periodsPerYear/nPeriods) - 1.
func AnnualizeReturn(totalReturn float64, nPeriods, periodsPerYear int) float64 {
	if nPeriods <= 0 || 1+totalReturn <= 0 {
		return 0
	}
	exponent := float64(periodsPerYear) / float64(nPeriods)
	return math.Pow(1+totalReturn, exponent) - 1
}

// CumulativeValues builds the growth-of-one-unit value curve implied by a
// return series. The result has len(returns)+1 entries and starts at
// initial.
func CumulativeValues(initial float64, returns []float64) []float64 {
	values := make([]float64, len(returns)+1)
	values[0] = initial
	for i, r := range returns {
		values[i+1] = values[i] * (1 + r)
	}
	return values
}
