// Package prompt turns a style selection and the user's free text into the
// flat prompt strings sent to image providers.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"caricagen/internal/domain"
)

// GenericStylePrompt is used when no style has been chosen.
const GenericStylePrompt = "cartoon character illustration"

var defaultStylePrompts = map[domain.Style]string{
	domain.StyleCartoon2D:          "2D cartoon character, flat colors, bold black outlines, animated style, cel-shaded, vector art, vibrant palette, simple shapes",
	domain.StyleCartoon3D:          "3D Pixar Disney character, CGI render, smooth shading, cute proportions, Toy Story style, volumetric lighting, 3D model",
	domain.StyleCaricature2D:       "caricature illustration, exaggerated facial features, oversized head, funny cartoon, comic book art, hand-drawn, humorous portrait",
	domain.StyleCaricatureRealista: "realistic caricature painting, exaggerated features, detailed rendering, oil painting, professional portrait, hyperrealistic",
}

// Templates maps each style to its prompt fragment.
type Templates struct {
	styles  map[domain.Style]string
	generic string
}

type templateFile struct {
	Generic string            `yaml:"generic"`
	Styles  map[string]string `yaml:"styles"`
}

// DefaultTemplates returns the built-in style prompts.
func DefaultTemplates() *Templates {
	styles := make(map[domain.Style]string, len(defaultStylePrompts))
	for k, v := range defaultStylePrompts {
		styles[k] = v
	}
	return &Templates{styles: styles, generic: GenericStylePrompt}
}

// LoadTemplates reads YAML overrides on top of the defaults. An empty path
// returns the defaults.
//
//	generic: "cartoon character illustration"
//	styles:
//	  "Cartoon 2D": "flat 2D cartoon, ..."
func LoadTemplates(path string) (*Templates, error) {
	t := DefaultTemplates()
	path = strings.TrimSpace(path)
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompt: read templates: %w", err)
	}
	var file templateFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("prompt: parse templates: %w", err)
	}
	if g := strings.TrimSpace(file.Generic); g != "" {
		t.generic = g
	}
	for name, text := range file.Styles {
		style, err := domain.ParseStyle(name)
		if err != nil || style == "" {
			return nil, fmt.Errorf("prompt: templates: unknown style %q", name)
		}
		if text = strings.TrimSpace(text); text != "" {
			t.styles[style] = text
		}
	}
	return t, nil
}

// StylePrompt returns the fragment for style, or the generic one when the
// style is empty or unknown.
func (t *Templates) StylePrompt(style domain.Style) string {
	if t == nil {
		t = DefaultTemplates()
	}
	if text, ok := t.styles[style]; ok {
		return text
	}
	return t.generic
}
