package weights

import (
	"math"
	"sort"

	"github.com/aristath/portfolio-engine/internal/domain"
)

// ApplyConstraints projects raw strategy weights onto the configured
// bounds:
//
//  1. assets whose normalized raw weight falls below min_weight are
//     dropped
//  2. if the survivors cannot satisfy n*max_weight >= 1, the effective
//     min_weight is progressively relaxed: excluded assets are re-admitted
//     in descending raw-weight order until the cap is satisfiable
//  3. survivors are renormalized to sum 1
//  4. weights above max_weight are capped, the excess redistributed
//     proportionally among uncapped assets until no weight exceeds the cap
//  5. the result is verified to sum to 1 within tolerance with every
//     weight in [0, max_weight]
//
// When even the full universe cannot satisfy N*max_weight >= 1 the
// constraints are unsatisfiable and InfeasibleConstraintError is
// returned. A violated post-condition in step 5 returns
// InvalidWeightsError and indicates an internal defect.
func (s *Service) ApplyConstraints(raw domain.WeightMapping, c domain.Constraints) (domain.WeightMapping, error) {
	if len(raw) == 0 {
		return nil, &domain.InsufficientDataError{
			Reason: "no raw weights to constrain",
			Have:   0,
			Need:   1,
		}
	}

	maxW := c.MaxWeight
	if maxW <= 0 || maxW > 1 {
		maxW = 1
	}
	minW := c.MinWeight
	if minW < 0 {
		minW = 0
	}

	if float64(len(raw))*maxW < 1-s.cfg.WeightTolerance {
		return nil, &domain.InfeasibleConstraintError{
			Assets:    len(raw),
			MaxWeight: maxW,
			Reason:    "even the full universe cannot reach a weight sum of 1 under max_weight",
		}
	}

	normalized, err := normalize(raw, s.cfg.WeightTolerance)
	if err != nil {
		return nil, err
	}

	// Step 1: min-weight filter.
	retained := make(domain.WeightMapping)
	excluded := make([]string, 0)
	for sym, w := range normalized {
		if w >= minW {
			retained[sym] = w
		} else {
			excluded = append(excluded, sym)
		}
	}
	sort.Slice(excluded, func(i, j int) bool {
		if normalized[excluded[i]] == normalized[excluded[j]] {
			return excluded[i] < excluded[j]
		}
		return normalized[excluded[i]] > normalized[excluded[j]]
	})

	// Step 2: relax the effective min_weight until the cap is satisfiable.
	relaxed := 0
	for float64(len(retained))*maxW < 1-s.cfg.WeightTolerance && len(excluded) > 0 {
		sym := excluded[0]
		excluded = excluded[1:]
		retained[sym] = normalized[sym]
		relaxed++
	}
	if relaxed > 0 {
		s.log.Debug().
			Int("readmitted", relaxed).
			Float64("min_weight", minW).
			Float64("max_weight", maxW).
			Msg("Relaxed min_weight to keep constraints satisfiable")
	}

	// Step 3: renormalize survivors.
	result, err := normalize(retained, s.cfg.WeightTolerance)
	if err != nil {
		return nil, err
	}

	// Step 4: cap and redistribute. Summation runs in symbol order so
	// identical inputs produce bit-identical outputs.
	symbols := sortedSymbols(result)
	for range result {
		excess := 0.0
		uncappedTotal := 0.0
		for _, sym := range symbols {
			if w := result[sym]; w > maxW {
				excess += w - maxW
			} else if w < maxW {
				uncappedTotal += w
			}
		}
		if excess == 0 {
			break
		}

		for _, sym := range symbols {
			switch w := result[sym]; {
			case w > maxW:
				result[sym] = maxW
			case uncappedTotal > 0 && w < maxW:
				result[sym] = w + excess*w/uncappedTotal
			}
		}
	}

	// Step 5: post-conditions. Failures here are internal defects, never
	// corrected silently.
	sum := result.Sum()
	if math.Abs(sum-1) > s.cfg.WeightTolerance {
		return nil, &domain.InvalidWeightsError{
			Sum:    sum,
			Reason: "constrained weights do not sum to 1",
		}
	}
	for sym, w := range result {
		if w < -s.cfg.WeightTolerance || w > maxW+s.cfg.WeightTolerance {
			return nil, &domain.InvalidWeightsError{
				Sum:    sum,
				Reason: "weight for " + sym + " outside [0, max_weight]",
			}
		}
	}

	return result, nil
}

// normalize scales weights to sum 1, rejecting non-positive mass. The
// sum runs in symbol order for deterministic rounding.
func normalize(weights domain.WeightMapping, tolerance float64) (domain.WeightMapping, error) {
	sum := 0.0
	for _, sym := range sortedSymbols(weights) {
		sum += weights[sym]
	}
	if sum <= tolerance {
		return nil, &domain.InvalidWeightsError{
			Sum:    sum,
			Reason: "weight mass is non-positive",
		}
	}
	out := make(domain.WeightMapping, len(weights))
	for sym, w := range weights {
		out[sym] = w / sum
	}
	return out, nil
}

func sortedSymbols(weights domain.WeightMapping) []string {
	symbols := make([]string, 0, len(weights))
	for sym := range weights {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}
