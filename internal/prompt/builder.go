package prompt

import (
	"strings"

	"caricagen/internal/domain"
)

// DefaultNegativePrompt accompanies every provider request.
const DefaultNegativePrompt = "low quality, blurry, distorted face, deformed, extra limbs, bad anatomy, text, watermark, signature"

const (
	bodyModePhrase      = "full body character, complete figure from head to toe"
	withTextBoilerplate = "detailed, high quality, professional artwork"
	noTextBoilerplate   = "masterpiece quality, professional art"
)

// Input is everything that shapes the final prompt.
type Input struct {
	Style        domain.Style
	Text         string
	BodyMode     bool
	Exaggeration *int
}

// Build assembles "<style>, <text>, detailed, high quality, professional
// artwork", or "<style>, masterpiece quality, professional art" when the
// text is blank.
func (t *Templates) Build(in Input) string {
	parts := []string{t.StylePrompt(in.Style)}
	if in.BodyMode {
		parts = append(parts, bodyModePhrase)
	}
	if in.Exaggeration != nil {
		parts = append(parts, ExaggerationPhrase(*in.Exaggeration))
	}
	if text := strings.TrimSpace(in.Text); text != "" {
		parts = append(parts, text, withTextBoilerplate)
	} else {
		parts = append(parts, noTextBoilerplate)
	}
	return strings.Join(parts, ", ")
}

// ExaggerationPhrase describes the exaggeration level in English for the model.
func ExaggerationPhrase(level int) string {
	level = domain.ClampExaggeration(level)
	switch {
	case level == 0:
		return "faithful likeness, no exaggeration"
	case level <= 20:
		return "very subtle exaggeration of features"
	case level <= 40:
		return "slightly exaggerated features"
	case level <= 60:
		return "moderately exaggerated features"
	case level <= 80:
		return "strongly exaggerated features"
	default:
		return "extremely exaggerated features, oversized proportions"
	}
}
