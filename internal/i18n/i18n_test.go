package i18n

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		want   string
	}{
		{name: "empty", accept: "", want: ""},
		{name: "brazilian portuguese", accept: "pt-BR,pt;q=0.9,en;q=0.8", want: Portuguese},
		{name: "english first", accept: "en-US,en;q=0.9,pt;q=0.5", want: English},
		{name: "weighted", accept: "en;q=0.3,pt-PT;q=0.8", want: Portuguese},
		{name: "unsupported", accept: "ja", want: ""},
		{name: "garbage", accept: ";;;", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.accept); got != tt.want {
				t.Fatalf("Match(%q) = %q, want %q", tt.accept, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"pt":    Portuguese,
		"pt_BR": Portuguese,
		"EN-us": English,
		"":      "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLocaleForCountry(t *testing.T) {
	cases := map[string]string{
		"BR": Portuguese,
		"pt": Portuguese,
		"US": English,
		"":   "",
	}
	for in, want := range cases {
		if got := LocaleForCountry(in); got != want {
			t.Errorf("LocaleForCountry(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestT(t *testing.T) {
	if got := T("pt-BR", "No image provided"); got != "Nenhuma imagem enviada" {
		t.Fatalf("pt translation = %q", got)
	}
	if got := T("en", "No image provided"); got != "No image provided" {
		t.Fatalf("en translation = %q", got)
	}
	if got := T("ja", "Unknown style"); got != "Unknown style" {
		t.Fatalf("fallback translation = %q", got)
	}
	if got := T("pt", "BW VECTOR"); got != "VETOR P/B" {
		t.Fatalf("label translation = %q", got)
	}
	if got := T("pt", "not a key"); got != "not a key" {
		t.Fatalf("missing key = %q", got)
	}
}
