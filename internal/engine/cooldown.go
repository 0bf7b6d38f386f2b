package engine

import "time"

const (
	// HighFailureRatio is the window failure ratio above which the extended
	// cooldown kicks in. Kept as a named constant for future tuning.
	HighFailureRatio = 0.90
	// ExtendedCooldown is the fixed delay applied after a mostly-failed
	// window, long enough for provider-side quota to recover.
	ExtendedCooldown = 60 * time.Second
)

// WindowSummary aggregates the terminal outcomes of one batch window.
// Jobs still in flight at the window boundary are not counted.
type WindowSummary struct {
	Index     int
	Size      int
	Succeeded int
	Failed    int
}

// FailureRatio is failures over terminal outcomes; zero when nothing
// reached a terminal state.
func (s WindowSummary) FailureRatio() float64 {
	total := s.Succeeded + s.Failed
	if total == 0 {
		return 0
	}
	return float64(s.Failed) / float64(total)
}

// NextDelay computes the inter-window delay from the previous window's
// outcome. Pure function of the last window only, so pacing recovers
// immediately once the failure ratio drops.
func NextDelay(prev WindowSummary, baseDelay time.Duration) time.Duration {
	if prev.FailureRatio() > HighFailureRatio {
		return ExtendedCooldown
	}
	return baseDelay
}
