package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimpleReturns(t *testing.T) {
	prices := []float64{100, 110, 99}
	returns := SimpleReturns(prices)

	assert.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-12)
	assert.InDelta(t, -0.10, returns[1], 1e-12)
}

func TestLogReturns(t *testing.T) {
	prices := []float64{100, 110}
	returns := LogReturns(prices)

	assert.Len(t, returns, 1)
	assert.InDelta(t, math.Log(1.1), returns[0], 1e-12)
}

func TestTotalReturnCompounds(t *testing.T) {
	returns := []float64{0.10, -0.10}
	assert.InDelta(t, -0.01, TotalReturn(returns), 1e-12)
}

func TestAnnualizeReturn(t *testing.T) {
	tests := []struct {
		name     string
		total    float64
		nPeriods int
		want     float64
	}{
		{
			name:     "full year is identity",
			total:    0.08,
			nPeriods: 252,
			want:     0.08,
		},
		{
			name:     "half year compounds up",
			total:    0.05,
			nPeriods: 126,
			want:     math.Pow(1.05, 2) - 1,
		},
		{
			name:     "zero periods sentinel",
			total:    0.05,
			nPeriods: 0,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnnualizeReturn(tt.total, tt.nPeriods, 252)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestCumulativeValues(t *testing.T) {
	values := CumulativeValues(1, []float64{0.10, -0.50})
	assert.Equal(t, []float64{1, 1.1, 0.55}, values)
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{
			name:   "single trough",
			values: []float64{100, 120, 60, 90},
			want:   0.5,
		},
		{
			name:   "monotonic rise has no drawdown",
			values: []float64{100, 110, 120},
			want:   0,
		},
		{
			name:   "too short",
			values: []float64{100},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MaxDrawdown(tt.values), 1e-12)
		})
	}
}
