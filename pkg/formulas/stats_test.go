package formulas

import (
	"math"
	"testing"
)

func TestMeanAndStdDev(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		wantMean float64
		wantStd  float64
	}{
		{
			name:     "simple series",
			data:     []float64{1, 2, 3, 4, 5},
			wantMean: 3,
			wantStd:  math.Sqrt(2.5),
		},
		{
			name:     "constant series",
			data:     []float64{2, 2, 2, 2},
			wantMean: 2,
			wantStd:  0,
		},
		{
			name:     "empty series",
			data:     []float64{},
			wantMean: 0,
			wantStd:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mean(tt.data); math.Abs(got-tt.wantMean) > 1e-12 {
				t.Errorf("Mean = %v, want %v", got, tt.wantMean)
			}
			if got := StdDev(tt.data); math.Abs(got-tt.wantStd) > 1e-12 {
				t.Errorf("StdDev = %v, want %v", got, tt.wantStd)
			}
		})
	}
}

func TestQuantileOrdering(t *testing.T) {
	data := make([]float64, 100)
	for i := range data {
		data[i] = -0.001 * float64(i)
	}

	q01 := Quantile(0.01, data)
	q05 := Quantile(0.05, data)
	if q01 > q05 {
		t.Errorf("1%% quantile %v should not exceed 5%% quantile %v", q01, q05)
	}
	if math.Abs(q01) < math.Abs(q05) {
		t.Errorf("deeper tail |%v| should be at least |%v|", q01, q05)
	}
}

func TestQuantileDoesNotMutateInput(t *testing.T) {
	data := []float64{0.03, -0.02, 0.01}
	Quantile(0.5, data)
	if data[0] != 0.03 || data[1] != -0.02 || data[2] != 0.01 {
		t.Errorf("input mutated: %v", data)
	}
}

func TestSkewnessAndKurtosisDegenerate(t *testing.T) {
	constant := []float64{0.01, 0.01, 0.01}
	if got := Skewness(constant); got != 0 {
		t.Errorf("Skewness of constant series = %v, want 0", got)
	}
	if got := ExcessKurtosis(constant); got != 0 {
		t.Errorf("ExcessKurtosis of constant series = %v, want 0", got)
	}
}

func TestDownsideDeviation(t *testing.T) {
	// Only -0.02 and -0.01 fall below a MAR of 0; full-sample divisor n=4.
	returns := []float64{0.02, -0.02, 0.01, -0.01}
	want := math.Sqrt((0.0004 + 0.0001) / 4)
	if got := DownsideDeviation(returns, 0); math.Abs(got-want) > 1e-12 {
		t.Errorf("DownsideDeviation = %v, want %v", got, want)
	}
}

func TestCorrelationPerfect(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{2, 4, 6, 8}
	if got := Correlation(x, y); math.Abs(got-1) > 1e-12 {
		t.Errorf("Correlation = %v, want 1", got)
	}
}
