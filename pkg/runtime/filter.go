package runtime

import (
	"errors"
	"fmt"
)

// ErrInvalidThreshold is returned for a negative minimum score.
var ErrInvalidThreshold = errors.New("invalid threshold")

// Filter keeps the profiles scoring at least minScore, preserving order.
func Filter(report Report, minScore int) (Report, error) {
	if minScore < 0 {
		return nil, fmt.Errorf("%w: min_score must be non-negative, got %d", ErrInvalidThreshold, minScore)
	}
	out := make(Report, 0, len(report))
	for _, p := range report {
		if p.Score >= minScore {
			out = append(out, p)
		}
	}
	return out, nil
}
