package optimization

import "github.com/aristath/portfolio-engine/internal/domain"

// Problem is one constrained optimization request over aligned daily
// returns.
type Problem struct {
	Symbols []string
	// Returns is a samples-by-assets matrix of aligned daily returns,
	// column j belonging to Symbols[j].
	Returns [][]float64
	// ExpectedReturns are annualized per-asset expected returns; required
	// for the tangency portfolio, ignored by minimum-variance.
	ExpectedReturns []float64
	// RiskFreeRate is the annual risk-free rate.
	RiskFreeRate float64
	// MaxWeight caps any single weight when positive; 0 means uncapped.
	MaxWeight float64
}

// Result is a solved portfolio.
type Result struct {
	Weights domain.WeightMapping
	// Variance is the annualized portfolio variance at the solution.
	Variance float64
	// ExpectedReturn is the annualized portfolio return at the solution,
	// 0 when the problem carried no expected returns.
	ExpectedReturn float64
	// Regularized reports whether ridge shrinkage was needed to make the
	// covariance matrix positive-definite.
	Regularized bool
	// Iterations counts active-set rounds (0 = closed form was feasible).
	Iterations int
}
