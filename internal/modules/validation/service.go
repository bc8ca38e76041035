package validation

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-engine/internal/config"
	"github.com/aristath/portfolio-engine/internal/domain"
)

// Service cleans and bounds-checks raw price series before any
// calculation. It is a pure function of its input: the caller's series is
// never modified.
type Service struct {
	cfg *config.Defaults
	log zerolog.Logger
}

// NewService creates a new validation service.
func NewService(cfg *config.Defaults, log zerolog.Logger) *Service {
	return &Service{
		cfg: cfg,
		log: log.With().Str("component", "validation").Logger(),
	}
}

// Result is a cleaned series plus counters describing what cleaning did.
type Result struct {
	Series  domain.PriceSeries
	Clipped int
	Filled  int
}

// Validate cleans a single price series:
//   - rejects series shorter than minLookback observations
//   - rejects non-increasing dates
//   - forward-fills gaps of up to MaxFillGap missing trading days,
//     rejecting wider gaps
//   - clips periodic returns to +/- ClipBound, replacing out-of-band
//     closes with the boundary value so series length is preserved
func (s *Service) Validate(series domain.PriceSeries, minLookback int) (Result, error) {
	if minLookback < s.cfg.MinObservations {
		minLookback = s.cfg.MinObservations
	}
	if series.Len() < minLookback {
		return Result{}, &domain.InsufficientDataError{
			Symbol: series.Symbol,
			Reason: "series shorter than minimum lookback",
			Have:   series.Len(),
			Need:   minLookback,
		}
	}

	for i := 1; i < series.Len(); i++ {
		if !series.Points[i].Date.After(series.Points[i-1].Date) {
			return Result{}, &domain.InsufficientDataError{
				Symbol: series.Symbol,
				Reason: "dates not strictly increasing",
				Have:   series.Len(),
				Need:   series.Len(),
			}
		}
	}

	filled, nFilled, err := s.forwardFill(series)
	if err != nil {
		return Result{}, err
	}

	cleaned, nClipped := s.clipReturns(filled)

	if nFilled > 0 || nClipped > 0 {
		s.log.Debug().
			Str("symbol", series.Symbol).
			Int("filled", nFilled).
			Int("clipped", nClipped).
			Msg("Cleaned price series")
	}

	return Result{Series: cleaned, Clipped: nClipped, Filled: nFilled}, nil
}

// ValidateAll cleans every series in the snapshot with the same lookback.
func (s *Service) ValidateAll(series []domain.PriceSeries, minLookback int) ([]Result, error) {
	results := make([]Result, 0, len(series))
	for _, ps := range series {
		res, err := s.Validate(ps, minLookback)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// forwardFill inserts synthetic observations carrying the previous close
// for every missing trading day, as long as no single gap exceeds
// MaxFillGap.
func (s *Service) forwardFill(series domain.PriceSeries) (domain.PriceSeries, int, error) {
	out := domain.PriceSeries{
		Symbol: series.Symbol,
		Points: make([]domain.PricePoint, 0, series.Len()),
	}
	out.Points = append(out.Points, series.Points[0])

	filled := 0
	for i := 1; i < series.Len(); i++ {
		prev := series.Points[i-1]
		curr := series.Points[i]

		missing := tradingDaysBetween(prev.Date, curr.Date)
		if missing > s.cfg.MaxFillGap {
			return domain.PriceSeries{}, 0, &domain.InsufficientDataError{
				Symbol: series.Symbol,
				Reason: "gap exceeds forward-fill tolerance",
				Have:   s.cfg.MaxFillGap,
				Need:   missing,
			}
		}

		day := prev.Date
		for n := 0; n < missing; n++ {
			day = nextTradingDay(day)
			out.Points = append(out.Points, domain.PricePoint{Date: day, Close: prev.Close})
			filled++
		}
		out.Points = append(out.Points, curr)
	}

	return out, filled, nil
}

// clipReturns bounds every periodic return to +/- ClipBound. Clipping is
// applied against the already-clipped previous close so one bad tick does
// not distort the rest of the series.
func (s *Service) clipReturns(series domain.PriceSeries) (domain.PriceSeries, int) {
	bound := s.cfg.ClipBound
	out := domain.PriceSeries{
		Symbol: series.Symbol,
		Points: make([]domain.PricePoint, series.Len()),
	}
	copy(out.Points, series.Points)

	clipped := 0
	for i := 1; i < len(out.Points); i++ {
		prev := out.Points[i-1].Close
		if prev == 0 {
			continue
		}
		r := out.Points[i].Close/prev - 1
		switch {
		case r > bound:
			out.Points[i].Close = prev * (1 + bound)
			clipped++
		case r < -bound:
			out.Points[i].Close = prev * (1 - bound)
			clipped++
		}
	}

	return out, clipped
}

// tradingDaysBetween counts the weekdays strictly between two dates.
func tradingDaysBetween(a, b time.Time) int {
	count := 0
	for d := a.AddDate(0, 0, 1); d.Before(b); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}

// nextTradingDay returns the next weekday after d.
func nextTradingDay(d time.Time) time.Time {
	next := d.AddDate(0, 0, 1)
	for wd := next.Weekday(); wd == time.Saturday || wd == time.Sunday; wd = next.Weekday() {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
