package prompt

import "strings"

var monochromeCues = []string{
	"black and white",
	"monochrome",
	"grayscale",
	"preto e branco",
	"escala de cinza",
}

// HasMonochromeCue reports whether text asks for a black and white result.
func HasMonochromeCue(text string) bool {
	lower := strings.ToLower(text)
	for _, cue := range monochromeCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}
