package domain

import (
	"time"

	"github.com/google/uuid"
)

// StrategyType identifies a weighting strategy. The set is closed: every
// variant has exactly one handler in the weights module.
type StrategyType string

const (
	StrategyMarketCap   StrategyType = "market_cap"
	StrategyRiskParity  StrategyType = "risk_parity"
	StrategyMomentum    StrategyType = "momentum"
	StrategyMinVariance StrategyType = "min_variance"
	StrategyMaxSharpe   StrategyType = "max_sharpe"
)

// ParseStrategy converts a configuration string to a StrategyType.
func ParseStrategy(s string) (StrategyType, bool) {
	switch StrategyType(s) {
	case StrategyMarketCap, StrategyRiskParity, StrategyMomentum,
		StrategyMinVariance, StrategyMaxSharpe:
		return StrategyType(s), true
	}
	return "", false
}

// Frequency is a rebalancing / resampling period.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// PricePoint is a single close observation.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is a date-ordered close-price history for one symbol.
// The engine treats it as immutable caller-owned input; cleaning produces
// a new series.
type PriceSeries struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.Points) }

// Closes returns the close prices in date order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Dates returns the observation dates in order.
func (s PriceSeries) Dates() []time.Time {
	dates := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		dates[i] = p.Date
	}
	return dates
}

// ReturnSeries is a derived, date-ordered periodic return series for one
// symbol. Always recomputed from a PriceSeries, never persisted.
type ReturnSeries struct {
	Symbol  string      `json:"symbol"`
	Dates   []time.Time `json:"dates"`
	Returns []float64   `json:"returns"`
}

// Len returns the number of return observations.
func (r ReturnSeries) Len() int { return len(r.Returns) }

// CashFlow is an external contribution (positive) or withdrawal (negative)
// into the portfolio being measured.
type CashFlow struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// Constraints carries the recognized strategy-configuration options.
type Constraints struct {
	MinWeight          float64   `json:"min_weight"`
	MaxWeight          float64   `json:"max_weight"`
	RiskFreeRate       float64   `json:"risk_free_rate"`
	RebalanceFrequency Frequency `json:"rebalance_frequency"`
	LookbackDays       int       `json:"lookback_days"`
}

// WeightMapping maps symbol to target weight. Weights sum to 1 within
// tolerance and each lies in [0,1].
type WeightMapping map[string]float64

// Sum returns the total of all weights.
func (w WeightMapping) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// RiskMetrics is the immutable risk result record for one invocation.
// VaR values are empirical return quantiles (a loss is negative); CVaR is
// the mean of returns at or below the corresponding VaR threshold.
type RiskMetrics struct {
	VaR95            float64 `json:"var_95"`
	VaR99            float64 `json:"var_99"`
	CVaR95           float64 `json:"cvar_95"`
	CVaR99           float64 `json:"cvar_99"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	Skewness         float64 `json:"skewness"`
	Kurtosis         float64 `json:"kurtosis"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	TailRatio        float64 `json:"tail_ratio"`
	AnnualVolatility float64 `json:"annual_volatility"`
	Observations     int     `json:"observations"`
}

// ReturnMetrics is the immutable return result record for one invocation.
// TWR and IRR are only populated when the request carries the data they
// need (a value series, cash flows); Excess/TrackingError require a
// benchmark.
type ReturnMetrics struct {
	TotalReturn      float64  `json:"total_return"`
	AnnualizedReturn float64  `json:"annualized_return"`
	TimeWeighted     *float64 `json:"time_weighted,omitempty"`
	InternalRate     *float64 `json:"internal_rate,omitempty"`
	ExcessReturn     *float64 `json:"excess_return,omitempty"`
	TrackingError    *float64 `json:"tracking_error,omitempty"`
}

// Snapshot is the market-data input for one analysis: per-asset price
// histories, an optional benchmark, market caps for the market-cap
// strategy, and an optional cash-flow schedule for TWR/IRR.
type Snapshot struct {
	Series     []PriceSeries      `json:"series"`
	Benchmark  *PriceSeries       `json:"benchmark,omitempty"`
	MarketCaps map[string]float64 `json:"market_caps,omitempty"`
	CashFlows  []CashFlow         `json:"cash_flows,omitempty"`
}

// StrategyConfig selects the strategy and its constraints.
type StrategyConfig struct {
	Strategy    StrategyType `json:"strategy"`
	Constraints Constraints  `json:"constraints"`
}

// AnalysisResult is the envelope handed back to the caller for
// persistence or display. It is never mutated after construction.
type AnalysisResult struct {
	ID          uuid.UUID     `json:"id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Strategy    StrategyType  `json:"strategy"`
	Weights     WeightMapping `json:"weights"`
	Risk        RiskMetrics   `json:"risk"`
	Returns     ReturnMetrics `json:"returns"`
}
