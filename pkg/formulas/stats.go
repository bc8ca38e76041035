package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Skewness calculates the standardized third moment of the sample.
// Returns 0 for degenerate (constant or too short) samples.
func Skewness(data []float64) float64 {
	if len(data) < 2 || StdDev(data) == 0 {
		return 0
	}
	return stat.Skew(data, nil)
}

// ExcessKurtosis calculates the standardized fourth moment minus 3
// (0 for a normal distribution). Returns 0 for degenerate samples.
func ExcessKurtosis(data []float64) float64 {
	if len(data) < 2 || StdDev(data) == 0 {
		return 0
	}
	return stat.ExKurtosis(data, nil)
}

// Quantile returns the empirical p-quantile (0 <= p <= 1) of the sample.
// The input is not modified.
func Quantile(p float64, data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// DownsideDeviation calculates the full-sample downside deviation below
// the minimum acceptable return: sqrt(sum(min(r-mar,0)^2) / n).
func DownsideDeviation(returns []float64, mar float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		if r < mar {
			d := r - mar
			sum += d * d
		}
	}
	return math.Sqrt(sum / float64(len(returns)))
}

// AnnualizedVolatility scales the standard deviation of periodic returns
// by sqrt(periodsPerYear).
func AnnualizedVolatility(returns []float64, periodsPerYear int) float64 {
	if len(returns) < 2 {
		return 0
	}
	return StdDev(returns) * math.Sqrt(float64(periodsPerYear))
}

// Correlation calculates the Pearson correlation coefficient between two datasets
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// Covariance calculates the sample covariance between two datasets
func Covariance(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}
