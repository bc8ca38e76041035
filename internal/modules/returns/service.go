package returns

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-engine/internal/config"
	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/pkg/formulas"
)

// Service converts price series into return series and computes
// cash-flow-aware performance measures (TWR, IRR).
type Service struct {
	cfg *config.Defaults
	log zerolog.Logger
}

// NewService creates a new return-calculation service.
func NewService(cfg *config.Defaults, log zerolog.Logger) *Service {
	return &Service{
		cfg: cfg,
		log: log.With().Str("component", "returns").Logger(),
	}
}

// SimpleReturns converts a price series into periodic simple returns.
func (s *Service) SimpleReturns(series domain.PriceSeries) (domain.ReturnSeries, error) {
	if series.Len() < s.cfg.MinObservations {
		return domain.ReturnSeries{}, &domain.InsufficientDataError{
			Symbol: series.Symbol,
			Reason: "too few observations for returns",
			Have:   series.Len(),
			Need:   s.cfg.MinObservations,
		}
	}
	return domain.ReturnSeries{
		Symbol:  series.Symbol,
		Dates:   series.Dates()[1:],
		Returns: formulas.SimpleReturns(series.Closes()),
	}, nil
}

// LogReturns converts a price series into periodic log returns.
func (s *Service) LogReturns(series domain.PriceSeries) (domain.ReturnSeries, error) {
	if series.Len() < s.cfg.MinObservations {
		return domain.ReturnSeries{}, &domain.InsufficientDataError{
			Symbol: series.Symbol,
			Reason: "too few observations for returns",
			Have:   series.Len(),
			Need:   s.cfg.MinObservations,
		}
	}
	return domain.ReturnSeries{
		Symbol:  series.Symbol,
		Dates:   series.Dates()[1:],
		Returns: formulas.LogReturns(series.Closes()),
	}, nil
}

// PeriodReturns resamples a daily price series to the rebalance frequency
// (last observation of each period) and returns the period-over-period
// simple returns.
func (s *Service) PeriodReturns(series domain.PriceSeries, freq domain.Frequency) (domain.ReturnSeries, error) {
	if freq == domain.FrequencyDaily || freq == "" {
		return s.SimpleReturns(series)
	}

	resampled := domain.PriceSeries{Symbol: series.Symbol}
	for i, p := range series.Points {
		last := i == series.Len()-1
		if last || periodKey(p.Date, freq) != periodKey(series.Points[i+1].Date, freq) {
			resampled.Points = append(resampled.Points, p)
		}
	}

	return s.SimpleReturns(resampled)
}

// AnnualizedReturn compounds a daily return series into a
// trading-days-per-year equivalent rate.
func (s *Service) AnnualizedReturn(rs domain.ReturnSeries) float64 {
	total := formulas.TotalReturn(rs.Returns)
	return formulas.AnnualizeReturn(total, rs.Len(), s.cfg.TradingDaysPerYear)
}

// TimeWeightedReturn computes the time-weighted return of a portfolio
// value series with external cash flows. The series is partitioned at
// every flow so no sub-period contains a flow; each flow is treated as
// arriving immediately before the first valuation at or after its date.
// Sub-period returns are geometrically linked, which makes the result
// insensitive to flow timing and size.
func (s *Service) TimeWeightedReturn(values domain.PriceSeries, flows []domain.CashFlow) (float64, error) {
	if values.Len() < s.cfg.MinObservations {
		return 0, &domain.InsufficientDataError{
			Symbol: values.Symbol,
			Reason: "too few valuations for time-weighted return",
			Have:   values.Len(),
			Need:   s.cfg.MinObservations,
		}
	}

	sorted := make([]domain.CashFlow, len(flows))
	copy(sorted, flows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	growth := 1.0
	flowIdx := 0
	for i := 1; i < values.Len(); i++ {
		prev := values.Points[i-1]
		curr := values.Points[i]

		flow := 0.0
		for flowIdx < len(sorted) && !sorted[flowIdx].Date.After(curr.Date) {
			if sorted[flowIdx].Date.After(prev.Date) {
				flow += sorted[flowIdx].Amount
			}
			flowIdx++
		}

		if prev.Close <= 0 {
			return 0, &domain.NumericInstabilityError{
				Op:     "time_weighted_return",
				Reason: "non-positive portfolio value at sub-period start",
			}
		}
		growth *= (curr.Close - flow) / prev.Close
	}

	return growth - 1, nil
}

// Align verifies that two return series cover identical dates. Relative
// metrics (excess return, tracking error) are undefined otherwise.
func (s *Service) Align(a, b domain.ReturnSeries) error {
	if a.Len() != b.Len() {
		return &domain.InsufficientDataError{
			Symbol: a.Symbol,
			Reason: "return series have different lengths",
			Have:   b.Len(),
			Need:   a.Len(),
		}
	}
	for i := range a.Dates {
		if !a.Dates[i].Equal(b.Dates[i]) {
			return &domain.InsufficientDataError{
				Symbol: a.Symbol,
				Reason: "return series dates are misaligned",
				Have:   a.Len(),
				Need:   a.Len(),
			}
		}
	}
	return nil
}

// AlignedMatrix checks that every series covers identical dates and packs
// the returns into a samples-by-assets matrix for covariance estimation.
func (s *Service) AlignedMatrix(series []domain.ReturnSeries) ([]time.Time, [][]float64, error) {
	if len(series) == 0 {
		return nil, nil, &domain.InsufficientDataError{
			Reason: "no return series supplied",
			Have:   0,
			Need:   1,
		}
	}
	for _, rs := range series[1:] {
		if err := s.Align(series[0], rs); err != nil {
			return nil, nil, err
		}
	}

	n := series[0].Len()
	matrix := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(series))
		for j, rs := range series {
			row[j] = rs.Returns[i]
		}
		matrix[i] = row
	}

	return series[0].Dates, matrix, nil
}

// periodKey buckets a date into its rebalance period.
func periodKey(d time.Time, freq domain.Frequency) string {
	switch freq {
	case domain.FrequencyWeekly:
		year, week := d.ISOWeek()
		return fmt.Sprintf("%d-w%02d", year, week)
	case domain.FrequencyMonthly:
		return d.Format("2006-01")
	case domain.FrequencyQuarterly:
		return fmt.Sprintf("%s-q%d", d.Format("2006"), (int(d.Month())-1)/3+1)
	case domain.FrequencyYearly:
		return d.Format("2006")
	default:
		return d.Format("2006-01-02")
	}
}
