package benchmark

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-engine/internal/config"
	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/pkg/logger"
)

func newService() *Service {
	return NewService(config.Default(), logger.Nop())
}

func datedSeries(symbol string, returns []float64) domain.ReturnSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rs := domain.ReturnSeries{Symbol: symbol, Returns: returns}
	for i := range returns {
		rs.Dates = append(rs.Dates, start.AddDate(0, 0, i))
	}
	return rs
}

func TestCompare_ConstantOutperformance(t *testing.T) {
	portfolio := datedSeries("PORT", []float64{0.02, 0.01, 0.03, 0.00})
	bench := datedSeries("BENCH", []float64{0.01, 0.00, 0.02, -0.01})

	comparison, err := newService().Compare(portfolio, bench)
	require.NoError(t, err)

	// Constant 1% daily edge: tracking error is zero, excess annualizes
	// to 0.01*252.
	assert.InDelta(t, 0.01*252, comparison.ExcessReturn, 1e-9)
	assert.InDelta(t, 0, comparison.TrackingError, 1e-9)
	assert.Zero(t, comparison.InformationRatio)
	assert.Equal(t, 4, comparison.Periods)
}

func TestCompare_TrackingError(t *testing.T) {
	portfolio := datedSeries("PORT", []float64{0.02, -0.01, 0.01, 0.00})
	bench := datedSeries("BENCH", []float64{0.00, 0.00, 0.00, 0.00})

	comparison, err := newService().Compare(portfolio, bench)
	require.NoError(t, err)

	// Excess equals the portfolio returns; tracking error is their
	// annualized standard deviation.
	excess := []float64{0.02, -0.01, 0.01, 0.00}
	mean := 0.005
	var sumSq float64
	for _, e := range excess {
		sumSq += (e - mean) * (e - mean)
	}
	want := math.Sqrt(sumSq/3) * math.Sqrt(252)
	assert.InDelta(t, want, comparison.TrackingError, 1e-9)
	assert.NotZero(t, comparison.InformationRatio)
}

func TestCompare_Misaligned(t *testing.T) {
	portfolio := datedSeries("PORT", []float64{0.01, 0.02, 0.03})
	bench := datedSeries("BENCH", []float64{0.01, 0.02})

	_, err := newService().Compare(portfolio, bench)

	var insufficientErr *domain.InsufficientDataError
	assert.True(t, errors.As(err, &insufficientErr))
}

func TestCompare_DateMismatch(t *testing.T) {
	portfolio := datedSeries("PORT", []float64{0.01, 0.02})
	bench := datedSeries("BENCH", []float64{0.01, 0.02})
	bench.Dates[1] = bench.Dates[1].AddDate(0, 0, 5)

	_, err := newService().Compare(portfolio, bench)

	var insufficientErr *domain.InsufficientDataError
	assert.True(t, errors.As(err, &insufficientErr))
}

func TestCompare_TooFewObservations(t *testing.T) {
	portfolio := datedSeries("PORT", []float64{0.01})
	bench := datedSeries("BENCH", []float64{0.01})

	_, err := newService().Compare(portfolio, bench)
	assert.Error(t, err)
}
