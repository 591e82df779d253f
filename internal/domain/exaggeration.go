package domain

// Exaggeration bounds.
const (
	MinExaggeration     = 0
	MaxExaggeration     = 100
	DefaultExaggeration = 20
)

// ClampExaggeration forces v into [0, 100].
func ClampExaggeration(v int) int {
	if v < MinExaggeration {
		return MinExaggeration
	}
	if v > MaxExaggeration {
		return MaxExaggeration
	}
	return v
}

// ExaggerationLabel returns the slider label shown next to the value.
func ExaggerationLabel(v int) string {
	v = ClampExaggeration(v)
	switch {
	case v == 0:
		return "Nenhum"
	case v <= 20:
		return "Super Leve"
	case v <= 40:
		return "Leve"
	case v <= 60:
		return "Moderada"
	case v <= 80:
		return "Exagerada"
	default:
		return "Super Exagerada"
	}
}
