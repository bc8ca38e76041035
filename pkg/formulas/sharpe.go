package formulas

import "math"

// SharpeRatio calculates the annualized Sharpe ratio from periodic
// returns:
//
//	Sharpe = (mean(r) - rf/periodsPerYear) / stddev(r) * sqrt(periodsPerYear)
//
// riskFreeRate is annual. Degenerate series (fewer than two observations
// or zero deviation) return 0 rather than NaN.
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	if len(returns) < 2 {
		return 0
	}
	stdDev := StdDev(returns)
	if stdDev == 0 {
		return 0
	}
	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	return (Mean(returns) - periodicRiskFree) / stdDev * math.Sqrt(float64(periodsPerYear))
}

// SortinoRatio calculates the annualized Sortino ratio: like Sharpe, but
// the denominator is the full-sample downside deviation below the minimum
// acceptable return (mar, annual). Degenerate series return 0.
func SortinoRatio(returns []float64, riskFreeRate, mar float64, periodsPerYear int) float64 {
	if len(returns) < 2 {
		return 0
	}
	periodicMAR := mar / float64(periodsPerYear)
	downside := DownsideDeviation(returns, periodicMAR)
	if downside == 0 {
		return 0
	}
	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	return (Mean(returns) - periodicRiskFree) / downside * math.Sqrt(float64(periodsPerYear))
}
