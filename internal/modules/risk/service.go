package risk

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-engine/internal/config"
	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/pkg/formulas"
)

// Service computes dispersion and tail-risk statistics from a return
// series. All methods are pure; the service carries only defaults and a
// logger.
type Service struct {
	cfg *config.Defaults
	log zerolog.Logger
}

// NewService creates a new risk-calculation service.
func NewService(cfg *config.Defaults, log zerolog.Logger) *Service {
	return &Service{
		cfg: cfg,
		log: log.With().Str("component", "risk").Logger(),
	}
}

// Compute derives the full risk record from a periodic return series.
// Degenerate (zero-variance) series produce 0 for the ratio metrics
// rather than NaN.
func (s *Service) Compute(rs domain.ReturnSeries, riskFreeRate float64) (domain.RiskMetrics, error) {
	if rs.Len() < s.cfg.MinObservations {
		return domain.RiskMetrics{}, &domain.InsufficientDataError{
			Symbol: rs.Symbol,
			Reason: "too few observations for risk metrics",
			Have:   rs.Len(),
			Need:   s.cfg.MinObservations,
		}
	}

	returns := rs.Returns
	periodsPerYear := s.cfg.TradingDaysPerYear

	var95 := formulas.Quantile(0.05, returns)
	var99 := formulas.Quantile(0.01, returns)

	metrics := domain.RiskMetrics{
		VaR95:            var95,
		VaR99:            var99,
		CVaR95:           expectedShortfall(returns, var95),
		CVaR99:           expectedShortfall(returns, var99),
		SharpeRatio:      formulas.SharpeRatio(returns, riskFreeRate, periodsPerYear),
		SortinoRatio:     formulas.SortinoRatio(returns, riskFreeRate, 0, periodsPerYear),
		Skewness:         formulas.Skewness(returns),
		Kurtosis:         formulas.ExcessKurtosis(returns),
		MaxDrawdown:      formulas.MaxDrawdown(formulas.CumulativeValues(1, returns)),
		TailRatio:        tailRatio(returns),
		AnnualVolatility: formulas.AnnualizedVolatility(returns, periodsPerYear),
		Observations:     rs.Len(),
	}

	s.log.Debug().
		Str("symbol", rs.Symbol).
		Int("observations", rs.Len()).
		Float64("var_95", metrics.VaR95).
		Float64("sharpe", metrics.SharpeRatio).
		Msg("Computed risk metrics")

	return metrics, nil
}

// expectedShortfall is the mean of all returns at or below the VaR
// threshold. When no observation sits below the threshold the threshold
// itself is reported.
func expectedShortfall(returns []float64, threshold float64) float64 {
	var sum float64
	count := 0
	for _, r := range returns {
		if r <= threshold {
			sum += r
			count++
		}
	}
	if count == 0 {
		return threshold
	}
	return sum / float64(count)
}

// tailRatio is |95th percentile gain| / |5th percentile loss|. A flat
// lower tail yields the 0 sentinel.
func tailRatio(returns []float64) float64 {
	gain := formulas.Quantile(0.95, returns)
	loss := formulas.Quantile(0.05, returns)
	if loss == 0 {
		return 0
	}
	return math.Abs(gain) / math.Abs(loss)
}
