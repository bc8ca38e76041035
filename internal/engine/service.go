package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-engine/internal/config"
	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/internal/modules/benchmark"
	"github.com/aristath/portfolio-engine/internal/modules/optimization"
	"github.com/aristath/portfolio-engine/internal/modules/returns"
	"github.com/aristath/portfolio-engine/internal/modules/risk"
	"github.com/aristath/portfolio-engine/internal/modules/validation"
	"github.com/aristath/portfolio-engine/internal/modules/weights"
	"github.com/aristath/portfolio-engine/pkg/formulas"
)

// Engine is the orchestration facade over the specialized services:
// validate -> returns -> {risk, weights, optimizer} -> benchmark. It is
// stateless: every call is a pure function of the request, so one Engine
// may serve concurrent invocations.
type Engine struct {
	cfg       *config.Defaults
	log       zerolog.Logger
	validator *validation.Service
	returns   *returns.Service
	risk      *risk.Service
	weights   *weights.Service
	benchmark *benchmark.Service
}

// New wires the engine services together.
func New(cfg *config.Defaults, log zerolog.Logger) *Engine {
	optimizer := optimization.NewService(cfg, log)
	return &Engine{
		cfg:       cfg,
		log:       log.With().Str("component", "engine").Logger(),
		validator: validation.NewService(cfg, log),
		returns:   returns.NewService(cfg, log),
		risk:      risk.NewService(cfg, log),
		weights:   weights.NewService(cfg, optimizer, log),
		benchmark: benchmark.NewService(cfg, log),
	}
}

// Request is one complete analysis invocation.
type Request struct {
	Snapshot domain.Snapshot
	Config   domain.StrategyConfig
}

// Analyze runs the full pipeline and returns the immutable result record
// for the caller to persist or display.
func (e *Engine) Analyze(req Request) (*domain.AnalysisResult, error) {
	constraints := req.Config.Constraints
	riskFree := constraints.RiskFreeRate
	if riskFree == 0 {
		riskFree = e.cfg.RiskFreeRate
	}

	cleaned, err := e.validator.ValidateAll(req.Snapshot.Series, constraints.LookbackDays)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, len(cleaned))
	series := make([]domain.PriceSeries, len(cleaned))
	returnSeries := make([]domain.ReturnSeries, len(cleaned))
	expectedReturns := make([]float64, len(cleaned))
	for i, res := range cleaned {
		symbols[i] = res.Series.Symbol
		series[i] = res.Series
		rs, err := e.returns.SimpleReturns(res.Series)
		if err != nil {
			return nil, err
		}
		returnSeries[i] = rs
		expectedReturns[i] = e.returns.AnnualizedReturn(rs)
	}

	dates, matrix, err := e.returns.AlignedMatrix(returnSeries)
	if err != nil {
		return nil, err
	}

	mapping, err := e.weights.Compute(req.Config.Strategy, weights.Inputs{
		Symbols:         symbols,
		Series:          series,
		Returns:         returnSeries,
		Matrix:          matrix,
		MarketCaps:      req.Snapshot.MarketCaps,
		ExpectedReturns: expectedReturns,
	}, constraints)
	if err != nil {
		return nil, err
	}

	portfolio := portfolioReturns(symbols, matrix, dates, mapping)

	riskMetrics, err := e.risk.Compute(portfolio, riskFree)
	if err != nil {
		return nil, err
	}

	returnMetrics, err := e.returnMetrics(series[0], portfolio, req.Snapshot.CashFlows)
	if err != nil {
		return nil, err
	}

	if req.Snapshot.Benchmark != nil {
		if err := e.compareBenchmark(req, constraints, portfolio, &returnMetrics); err != nil {
			return nil, err
		}
	}

	result := &domain.AnalysisResult{
		ID:          uuid.New(),
		GeneratedAt: time.Now().UTC(),
		Strategy:    req.Config.Strategy,
		Weights:     mapping,
		Risk:        riskMetrics,
		Returns:     returnMetrics,
	}

	e.log.Info().
		Str("id", result.ID.String()).
		Str("strategy", string(req.Config.Strategy)).
		Int("assets", len(symbols)).
		Int("observations", portfolio.Len()).
		Msg("Analysis complete")

	return result, nil
}

// returnMetrics derives the performance record. When a cash-flow schedule
// is supplied, a portfolio value curve is simulated by investing each
// flow at the portfolio's own returns; TWR and IRR are then computed
// against that curve. Without flows, TWR degenerates to the simple total
// return.
func (e *Engine) returnMetrics(first domain.PriceSeries, portfolio domain.ReturnSeries, flows []domain.CashFlow) (domain.ReturnMetrics, error) {
	metrics := domain.ReturnMetrics{
		TotalReturn:      formulas.TotalReturn(portfolio.Returns),
		AnnualizedReturn: e.returns.AnnualizedReturn(portfolio),
	}

	startDate := first.Points[0].Date
	values := e.valueCurve(startDate, portfolio, flows)

	twr, err := e.returns.TimeWeightedReturn(values, flows)
	if err != nil {
		return domain.ReturnMetrics{}, err
	}
	metrics.TimeWeighted = &twr

	if len(flows) > 0 {
		finalPoint := values.Points[values.Len()-1]
		irr, err := e.returns.InternalRateOfReturn(flows, finalPoint.Close, finalPoint.Date)
		if err != nil {
			return domain.ReturnMetrics{}, err
		}
		metrics.InternalRate = &irr
	}

	return metrics, nil
}

// valueCurve simulates the portfolio value over the analysis window.
// Flows in (d_{i-1}, d_i] arrive immediately before the valuation at d_i
// and are not compounded within that period. Without flows the curve is
// the growth of one unit.
func (e *Engine) valueCurve(startDate time.Time, portfolio domain.ReturnSeries, flows []domain.CashFlow) domain.PriceSeries {
	curve := domain.PriceSeries{
		Symbol: "PORTFOLIO",
		Points: make([]domain.PricePoint, 0, portfolio.Len()+1),
	}

	initial := 1.0
	if len(flows) > 0 {
		initial = 0
		for _, f := range flows {
			if !f.Date.After(startDate) {
				initial += f.Amount
			}
		}
	}
	curve.Points = append(curve.Points, domain.PricePoint{Date: startDate, Close: initial})

	value := initial
	prevDate := startDate
	for i, r := range portfolio.Returns {
		date := portfolio.Dates[i]
		value *= 1 + r
		for _, f := range flows {
			if f.Date.After(prevDate) && !f.Date.After(date) {
				value += f.Amount
			}
		}
		curve.Points = append(curve.Points, domain.PricePoint{Date: date, Close: value})
		prevDate = date
	}

	return curve
}

// compareBenchmark validates the benchmark series, aligns it with the
// portfolio and fills in the relative metrics.
func (e *Engine) compareBenchmark(req Request, constraints domain.Constraints, portfolio domain.ReturnSeries, metrics *domain.ReturnMetrics) error {
	res, err := e.validator.Validate(*req.Snapshot.Benchmark, constraints.LookbackDays)
	if err != nil {
		return err
	}
	benchReturns, err := e.returns.SimpleReturns(res.Series)
	if err != nil {
		return err
	}
	if err := e.returns.Align(portfolio, benchReturns); err != nil {
		return err
	}

	comparison, err := e.benchmark.Compare(portfolio, benchReturns)
	if err != nil {
		return err
	}
	metrics.ExcessReturn = &comparison.ExcessReturn
	metrics.TrackingError = &comparison.TrackingError
	return nil
}

// portfolioReturns collapses the aligned per-asset return matrix into a
// single weighted return series. Assets absent from the mapping carry
// zero weight.
func portfolioReturns(symbols []string, matrix [][]float64, dates []time.Time, mapping domain.WeightMapping) domain.ReturnSeries {
	out := domain.ReturnSeries{
		Symbol:  "PORTFOLIO",
		Dates:   dates,
		Returns: make([]float64, len(matrix)),
	}
	for i, row := range matrix {
		total := 0.0
		for j, sym := range symbols {
			total += mapping[sym] * row[j]
		}
		out.Returns[i] = total
	}
	return out
}
