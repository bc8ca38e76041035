package benchmark

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-engine/internal/config"
	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/pkg/formulas"
)

// Service combines portfolio and benchmark return series into relative
// performance metrics. Inputs must already be aligned to identical dates.
type Service struct {
	cfg *config.Defaults
	log zerolog.Logger
}

// NewService creates a new benchmark-comparison service.
func NewService(cfg *config.Defaults, log zerolog.Logger) *Service {
	return &Service{
		cfg: cfg,
		log: log.With().Str("component", "benchmark").Logger(),
	}
}

// Comparison is the relative performance record for one invocation.
type Comparison struct {
	// ExcessReturn is the annualized mean of per-period excess returns.
	ExcessReturn float64 `json:"excess_return"`
	// TrackingError is the annualized standard deviation of per-period
	// excess returns.
	TrackingError float64 `json:"tracking_error"`
	// InformationRatio is ExcessReturn / TrackingError, 0 when the
	// portfolio tracks the benchmark exactly.
	InformationRatio float64 `json:"information_ratio"`
	Periods          int     `json:"periods"`
}

// Compare computes excess return and tracking error of a portfolio
// against its benchmark.
func (s *Service) Compare(portfolio, bench domain.ReturnSeries) (Comparison, error) {
	if portfolio.Len() < s.cfg.MinObservations {
		return Comparison{}, &domain.InsufficientDataError{
			Symbol: portfolio.Symbol,
			Reason: "too few observations for benchmark comparison",
			Have:   portfolio.Len(),
			Need:   s.cfg.MinObservations,
		}
	}
	if portfolio.Len() != bench.Len() {
		return Comparison{}, &domain.InsufficientDataError{
			Symbol: bench.Symbol,
			Reason: "portfolio and benchmark series are misaligned",
			Have:   bench.Len(),
			Need:   portfolio.Len(),
		}
	}
	for i := range portfolio.Dates {
		if !portfolio.Dates[i].Equal(bench.Dates[i]) {
			return Comparison{}, &domain.InsufficientDataError{
				Symbol: bench.Symbol,
				Reason: "portfolio and benchmark dates differ",
				Have:   bench.Len(),
				Need:   portfolio.Len(),
			}
		}
	}

	excess := make([]float64, portfolio.Len())
	for i := range excess {
		excess[i] = portfolio.Returns[i] - bench.Returns[i]
	}

	periodsPerYear := float64(s.cfg.TradingDaysPerYear)
	comparison := Comparison{
		ExcessReturn:  formulas.Mean(excess) * periodsPerYear,
		TrackingError: formulas.StdDev(excess) * math.Sqrt(periodsPerYear),
		Periods:       portfolio.Len(),
	}
	if comparison.TrackingError != 0 {
		comparison.InformationRatio = comparison.ExcessReturn / comparison.TrackingError
	}

	s.log.Debug().
		Int("periods", comparison.Periods).
		Float64("excess_return", comparison.ExcessReturn).
		Float64("tracking_error", comparison.TrackingError).
		Msg("Compared portfolio against benchmark")

	return comparison, nil
}
