package prompt

import "caricagen/internal/domain"

// StrengthRange is a provider's img2img strength interval.
type StrengthRange struct {
	Min float64
	Max float64
}

// DefaultStrengthRange keeps enough of the source for the likeness to survive.
var DefaultStrengthRange = StrengthRange{Min: 0.35, Max: 0.85}

// Map projects an exaggeration level linearly onto the range.
func (r StrengthRange) Map(exaggeration int) float64 {
	t := float64(domain.ClampExaggeration(exaggeration)) / float64(domain.MaxExaggeration)
	return r.Min*(1-t) + r.Max*t
}
