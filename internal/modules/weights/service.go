package weights

import (
	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-engine/internal/config"
	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/internal/modules/optimization"
	"github.com/aristath/portfolio-engine/pkg/formulas"
)

// Service turns a market-data snapshot plus a strategy selection into a
// constrained target weight mapping. Each strategy variant has exactly
// one handler; min-variance and max-Sharpe delegate to the optimizer.
type Service struct {
	cfg       *config.Defaults
	optimizer *optimization.Service
	log       zerolog.Logger
}

// NewService creates a new weight-calculation service.
func NewService(cfg *config.Defaults, optimizer *optimization.Service, log zerolog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		optimizer: optimizer,
		log:       log.With().Str("component", "weights").Logger(),
	}
}

// Inputs is the per-request market snapshot the strategies draw from.
// Series and Returns are index-aligned with Symbols; Matrix is the
// samples-by-assets aligned return matrix.
type Inputs struct {
	Symbols         []string
	Series          []domain.PriceSeries
	Returns         []domain.ReturnSeries
	Matrix          [][]float64
	MarketCaps      map[string]float64
	ExpectedReturns []float64
}

// Compute produces raw weights for the strategy and projects them onto
// the constraints.
func (s *Service) Compute(strategy domain.StrategyType, in Inputs, c domain.Constraints) (domain.WeightMapping, error) {
	raw, err := s.rawWeights(strategy, in, c)
	if err != nil {
		return nil, err
	}

	final, err := s.ApplyConstraints(raw, c)
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("strategy", string(strategy)).
		Int("assets_in", len(raw)).
		Int("assets_out", len(final)).
		Msg("Computed target weights")

	return final, nil
}

// rawWeights dispatches to the single handler for each strategy variant.
func (s *Service) rawWeights(strategy domain.StrategyType, in Inputs, c domain.Constraints) (domain.WeightMapping, error) {
	switch strategy {
	case domain.StrategyMarketCap:
		return s.marketCapWeights(in)
	case domain.StrategyRiskParity:
		return s.riskParityWeights(in)
	case domain.StrategyMomentum:
		return s.momentumWeights(in, c.LookbackDays)
	case domain.StrategyMinVariance:
		result, err := s.optimizer.MinVariance(optimization.Problem{
			Symbols:   in.Symbols,
			Returns:   in.Matrix,
			MaxWeight: c.MaxWeight,
		})
		if err != nil {
			return nil, err
		}
		return result.Weights, nil
	case domain.StrategyMaxSharpe:
		result, err := s.optimizer.MaxSharpe(optimization.Problem{
			Symbols:         in.Symbols,
			Returns:         in.Matrix,
			ExpectedReturns: in.ExpectedReturns,
			RiskFreeRate:    c.RiskFreeRate,
			MaxWeight:       c.MaxWeight,
		})
		if err != nil {
			return nil, err
		}
		return result.Weights, nil
	default:
		return nil, &domain.InsufficientDataError{
			Reason: "unknown strategy " + string(strategy),
			Have:   0,
			Need:   1,
		}
	}
}

// marketCapWeights allocates proportionally to market capitalization.
func (s *Service) marketCapWeights(in Inputs) (domain.WeightMapping, error) {
	weights := make(domain.WeightMapping, len(in.Symbols))
	total := 0.0
	for _, sym := range in.Symbols {
		capValue, ok := in.MarketCaps[sym]
		if !ok || capValue <= 0 {
			return nil, &domain.InsufficientDataError{
				Symbol: sym,
				Reason: "missing or non-positive market capitalization",
				Have:   0,
				Need:   1,
			}
		}
		weights[sym] = capValue
		total += capValue
	}
	for sym := range weights {
		weights[sym] /= total
	}
	return weights, nil
}

// riskParityWeights allocates inverse to volatility so each asset
// contributes approximately equal risk.
func (s *Service) riskParityWeights(in Inputs) (domain.WeightMapping, error) {
	weights := make(domain.WeightMapping, len(in.Symbols))
	total := 0.0
	for i, sym := range in.Symbols {
		vol := formulas.StdDev(in.Returns[i].Returns)
		if vol == 0 {
			return nil, &domain.NumericInstabilityError{
				Op:     "risk_parity",
				Reason: "zero-volatility asset " + sym + " has unbounded inverse-volatility weight",
			}
		}
		weights[sym] = 1 / vol
		total += 1 / vol
	}
	for sym := range weights {
		weights[sym] /= total
	}
	return weights, nil
}

// momentumWeights allocates proportionally to trailing rate of change
// over the lookback window. Long-only: assets with non-positive momentum
// are excluded.
func (s *Service) momentumWeights(in Inputs, lookbackDays int) (domain.WeightMapping, error) {
	weights := make(domain.WeightMapping, len(in.Symbols))
	total := 0.0
	for i, sym := range in.Symbols {
		closes := in.Series[i].Closes()
		period := lookbackDays
		if period <= 0 || period >= len(closes) {
			period = len(closes) - 1
		}
		if period < 1 {
			return nil, &domain.InsufficientDataError{
				Symbol: sym,
				Reason: "too few observations for momentum",
				Have:   len(closes),
				Need:   2,
			}
		}

		// talib reports rate of change in percent.
		roc := talib.Roc(closes, period)
		momentum := roc[len(roc)-1] / 100

		// Long-only: non-positive momentum assets are left out entirely.
		if momentum > 0 {
			weights[sym] = momentum
			total += momentum
		}
	}

	if total == 0 {
		return nil, &domain.InsufficientDataError{
			Reason: "no asset with positive momentum in lookback window",
			Have:   0,
			Need:   1,
		}
	}
	for sym := range weights {
		weights[sym] /= total
	}
	return weights, nil
}
