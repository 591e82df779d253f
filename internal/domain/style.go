package domain

import (
	"fmt"
	"strings"
)

// Style selects a prompt template family.
type Style string

const (
	StyleCartoon2D          Style = "Cartoon 2D"
	StyleCartoon3D          Style = "Cartoon 3D"
	StyleCaricature2D       Style = "Caricatura 2D"
	StyleCaricatureRealista Style = "Caricatura Realista"
)

// Styles returns the four presets in display order.
func Styles() []Style {
	return []Style{StyleCartoon2D, StyleCartoon3D, StyleCaricature2D, StyleCaricatureRealista}
}

// ParseStyle matches raw input against the presets, ignoring case and
// surrounding whitespace. Empty input yields an empty Style (generic template).
func ParseStyle(raw string) (Style, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	for _, s := range Styles() {
		if strings.EqualFold(string(s), trimmed) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStyle, raw)
}

// Valid reports whether s is one of the four presets.
func (s Style) Valid() bool {
	for _, known := range Styles() {
		if s == known {
			return true
		}
	}
	return false
}

func (s Style) String() string {
	return string(s)
}
