package domain

import (
	"errors"
	"testing"
)

func TestParseStyle(t *testing.T) {
	tests := []struct {
		in      string
		want    Style
		wantErr bool
	}{
		{in: "Cartoon 2D", want: StyleCartoon2D},
		{in: "  cartoon 3d ", want: StyleCartoon3D},
		{in: "CARICATURA 2D", want: StyleCaricature2D},
		{in: "Caricatura Realista", want: StyleCaricatureRealista},
		{in: "", want: ""},
		{in: "Anime", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseStyle(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrUnknownStyle) {
				t.Fatalf("ParseStyle(%q) error = %v, want ErrUnknownStyle", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseStyle(%q) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseStyle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExaggerationLabel(t *testing.T) {
	tests := map[int]string{
		-5:  "Nenhum",
		0:   "Nenhum",
		1:   "Super Leve",
		20:  "Super Leve",
		40:  "Leve",
		41:  "Moderada",
		80:  "Exagerada",
		81:  "Super Exagerada",
		150: "Super Exagerada",
	}
	for in, want := range tests {
		if got := ExaggerationLabel(in); got != want {
			t.Fatalf("ExaggerationLabel(%d) = %q, want %q", in, got, want)
		}
	}
}
