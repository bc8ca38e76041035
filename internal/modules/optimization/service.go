package optimization

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/portfolio-engine/internal/config"
	"github.com/aristath/portfolio-engine/internal/domain"
)

// Service solves constrained mean-variance problems over a covariance
// matrix estimated from aligned daily returns. The closed-form solution
// is used whenever it already satisfies the bounds; otherwise an
// active-set loop fixes violating weights at their bound and re-solves on
// the free assets.
type Service struct {
	cfg *config.Defaults
	log zerolog.Logger
}

// NewService creates a new optimization service.
func NewService(cfg *config.Defaults, log zerolog.Logger) *Service {
	return &Service{
		cfg: cfg,
		log: log.With().Str("component", "optimization").Logger(),
	}
}

// Covariance estimates the sample covariance matrix of the given
// samples-by-assets return matrix.
func (s *Service) Covariance(returns [][]float64) (*mat.SymDense, error) {
	if len(returns) < 2 || len(returns[0]) == 0 {
		return nil, &domain.InsufficientDataError{
			Reason: "too few samples for covariance estimation",
			Have:   len(returns),
			Need:   2,
		}
	}

	rows := len(returns)
	cols := len(returns[0])
	data := make([]float64, 0, rows*cols)
	for _, row := range returns {
		data = append(data, row...)
	}

	cov := mat.NewSymDense(cols, nil)
	stat.CovarianceMatrix(cov, mat.NewDense(rows, cols, data), nil)
	return cov, nil
}

// MinVariance solves min wᵀΣw subject to Σw=1, w≥0 and the optional
// per-asset cap.
func (s *Service) MinVariance(p Problem) (*Result, error) {
	cov, err := s.Covariance(p.Returns)
	if err != nil {
		return nil, err
	}
	return s.solve(p, cov, nil)
}

// MaxSharpe solves for the tangency portfolio: max (wᵀμ-r_f)/sqrt(wᵀΣw)
// under the same constraints. After the change of variables
// y = Σ⁻¹(μ-r_f·1) the unconstrained solution is y normalized to sum 1;
// bounds are then enforced with the same active-set loop as
// minimum-variance.
func (s *Service) MaxSharpe(p Problem) (*Result, error) {
	if len(p.ExpectedReturns) != len(p.Symbols) {
		return nil, &domain.InsufficientDataError{
			Reason: "expected returns missing for tangency portfolio",
			Have:   len(p.ExpectedReturns),
			Need:   len(p.Symbols),
		}
	}

	cov, err := s.Covariance(p.Returns)
	if err != nil {
		return nil, err
	}

	excess := make([]float64, len(p.ExpectedReturns))
	for i, mu := range p.ExpectedReturns {
		excess[i] = mu - p.RiskFreeRate
	}
	return s.solve(p, cov, excess)
}

// solve runs the shared active-set loop. rhs selects the problem: nil
// solves minimum-variance (Σ⁻¹1 normalized), otherwise Σ⁻¹rhs normalized
// (tangency on excess returns).
func (s *Service) solve(p Problem, cov *mat.SymDense, rhs []float64) (*Result, error) {
	n := len(p.Symbols)
	if n == 0 {
		return nil, &domain.InsufficientDataError{
			Reason: "no assets to optimize",
			Have:   0,
			Need:   1,
		}
	}
	maxW := p.MaxWeight
	if maxW > 0 && float64(n)*maxW < 1 {
		return nil, &domain.InfeasibleConstraintError{
			Assets:    n,
			MaxWeight: maxW,
			Reason:    "assets*max_weight < 1",
		}
	}

	weights := make([]float64, n)
	atZero := make([]bool, n)
	atCap := make([]bool, n)
	regularized := false

	iterations := 0
	for ; iterations <= s.cfg.OptimizerMaxIterations; iterations++ {
		free := make([]int, 0, n)
		capped := 0
		for i := 0; i < n; i++ {
			switch {
			case atCap[i]:
				capped++
			case !atZero[i]:
				free = append(free, i)
			}
		}

		mass := 1 - maxW*float64(capped)
		if len(free) == 0 {
			if math.Abs(mass) <= s.cfg.WeightTolerance {
				break
			}
			return nil, &domain.NumericInstabilityError{
				Op:     "optimizer",
				Reason: "active-set loop eliminated every free asset",
			}
		}

		sub := subMatrix(cov, free)
		chol, didRegularize, err := s.factorize(sub)
		if err != nil {
			return nil, err
		}
		regularized = regularized || didRegularize

		b := mat.NewVecDense(len(free), nil)
		for k, idx := range free {
			if rhs == nil {
				b.SetVec(k, 1)
			} else {
				b.SetVec(k, rhs[idx])
			}
		}

		sol := mat.NewVecDense(len(free), nil)
		if err := chol.SolveVecTo(sol, b); err != nil {
			return nil, &domain.NumericInstabilityError{
				Op:     "optimizer",
				Reason: "covariance solve failed: " + err.Error(),
			}
		}

		total := 0.0
		for k := 0; k < len(free); k++ {
			total += sol.AtVec(k)
		}
		if total <= 0 {
			return nil, &domain.NumericInstabilityError{
				Op:     "optimizer",
				Reason: "solution mass is non-positive (no attainable portfolio)",
			}
		}

		for i := range weights {
			switch {
			case atCap[i]:
				weights[i] = maxW
			case atZero[i]:
				weights[i] = 0
			}
		}
		for k, idx := range free {
			weights[idx] = sol.AtVec(k) / total * mass
		}

		// Fix the worst violation and re-solve; terminate when feasible.
		if idx := mostNegative(weights, free); idx >= 0 {
			atZero[idx] = true
			continue
		}
		if maxW > 0 {
			if idx := mostOverCap(weights, free, maxW); idx >= 0 {
				atCap[idx] = true
				continue
			}
		}
		break
	}

	if iterations > s.cfg.OptimizerMaxIterations {
		return nil, &domain.NumericInstabilityError{
			Op:     "optimizer",
			Reason: "active-set loop exceeded iteration cap",
		}
	}

	result := &Result{
		Weights:     make(domain.WeightMapping, n),
		Regularized: regularized,
		Iterations:  iterations,
	}
	wVec := mat.NewVecDense(n, weights)
	result.Variance = mat.Inner(wVec, cov, wVec) * float64(s.cfg.TradingDaysPerYear)
	for i, sym := range p.Symbols {
		result.Weights[sym] = weights[i]
		if len(p.ExpectedReturns) == n {
			result.ExpectedReturn += weights[i] * p.ExpectedReturns[i]
		}
	}

	s.log.Debug().
		Int("assets", n).
		Int("iterations", iterations).
		Bool("regularized", regularized).
		Float64("variance", result.Variance).
		Msg("Solved portfolio optimization")

	return result, nil
}

// factorize Cholesky-factorizes the matrix, applying escalating ridge
// shrinkage (Σ + εI) when it is not positive-definite.
func (s *Service) factorize(sym *mat.SymDense) (*mat.Cholesky, bool, error) {
	var chol mat.Cholesky
	if chol.Factorize(sym) {
		return &chol, false, nil
	}

	n := sym.SymmetricDim()
	eps := s.cfg.RidgeEpsilon
	for attempt := 0; attempt < 8; attempt++ {
		shrunk := mat.NewSymDense(n, nil)
		shrunk.CopySym(sym)
		for i := 0; i < n; i++ {
			shrunk.SetSym(i, i, shrunk.At(i, i)+eps)
		}
		if chol.Factorize(shrunk) {
			return &chol, true, nil
		}
		eps *= 10
	}

	return nil, false, &domain.NumericInstabilityError{
		Op:     "optimizer",
		Reason: "covariance matrix not positive-definite after regularization",
	}
}

// subMatrix extracts the symmetric sub-matrix for the given indices.
func subMatrix(cov *mat.SymDense, idx []int) *mat.SymDense {
	sub := mat.NewSymDense(len(idx), nil)
	for i, a := range idx {
		for j, b := range idx {
			if j < i {
				continue
			}
			sub.SetSym(i, j, cov.At(a, b))
		}
	}
	return sub
}

// mostNegative returns the free index with the most negative weight, or
// -1 when all free weights are non-negative.
func mostNegative(weights []float64, free []int) int {
	best := -1
	worst := -1e-12
	for _, i := range free {
		if weights[i] < worst {
			worst = weights[i]
			best = i
		}
	}
	return best
}

// mostOverCap returns the free index with the largest cap violation, or
// -1 when all free weights respect the cap.
func mostOverCap(weights []float64, free []int, maxW float64) int {
	best := -1
	worst := 1e-12
	for _, i := range free {
		if over := weights[i] - maxW; over > worst {
			worst = over
			best = i
		}
	}
	return best
}
