package formulas

// MaxDrawdown calculates the largest peak-to-trough decline of a value
// curve, as a positive fraction (0.25 = 25% below the prior peak).
// Returns 0 for fewer than two observations.
func MaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	maxDrawdown := 0.0
	peak := values[0]

	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			drawdown := (peak - v) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return maxDrawdown
}
