package domain

import "fmt"

// InsufficientDataError reports too few observations, series misalignment,
// or gaps exceeding the fill tolerance. Recoverable by the caller (e.g.
// retry with a longer lookback).
type InsufficientDataError struct {
	Symbol string
	Reason string
	Have   int
	Need   int
}

func (e *InsufficientDataError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("insufficient data for %s: %s (have %d, need %d)",
			e.Symbol, e.Reason, e.Have, e.Need)
	}
	return fmt.Sprintf("insufficient data: %s (have %d, need %d)",
		e.Reason, e.Have, e.Need)
}

// InfeasibleConstraintError reports that no weight assignment can satisfy
// the configured constraints, even after relaxing min_weight to zero.
type InfeasibleConstraintError struct {
	Assets    int
	MaxWeight float64
	Reason    string
}

func (e *InfeasibleConstraintError) Error() string {
	return fmt.Sprintf("infeasible constraints: %s (%d assets, max_weight=%.4f)",
		e.Reason, e.Assets, e.MaxWeight)
}

// NumericInstabilityError reports a solver or root-finder that failed to
// converge, or a covariance matrix that stayed non-positive-definite after
// regularization.
type NumericInstabilityError struct {
	Op     string
	Reason string
}

func (e *NumericInstabilityError) Error() string {
	return fmt.Sprintf("numeric instability in %s: %s", e.Op, e.Reason)
}

// InvalidWeightsError reports a violated post-condition on an output
// weight mapping. It indicates an internal defect: callers should treat it
// as fatal and never correct the weights themselves.
type InvalidWeightsError struct {
	Sum    float64
	Reason string
}

func (e *InvalidWeightsError) Error() string {
	return fmt.Sprintf("invalid weights: %s (sum=%.8f)", e.Reason, e.Sum)
}
