// Package i18n negotiates the response language and translates user-facing
// messages. English strings double as message keys.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	Portuguese = "pt"
	English    = "en"
)

var (
	supported = []language.Tag{language.Portuguese, language.English}
	matcher   = language.NewMatcher(supported)
	messages  = buildCatalog()
)

// portugueseCountries default to Portuguese when no language is requested.
var portugueseCountries = map[string]struct{}{
	"BR": {}, "PT": {}, "AO": {}, "MZ": {}, "CV": {}, "GW": {}, "ST": {}, "TL": {},
}

// translations pairs each English key with its Portuguese text.
var translations = [][2]string{
	{"No image provided", "Nenhuma imagem enviada"},
	{"Failed to generate image", "Falha ao gerar imagem"},
	{"Image generation failed. Please try with a different photo or style.", "A geração da imagem falhou. Tente com outra foto ou outro estilo."},
	{"Unknown style", "Estilo desconhecido"},
	{"Invalid image", "Imagem inválida"},
	{"Invalid aspect ratio", "Proporção inválida"},
	{"Invalid request body", "Corpo da requisição inválido"},
	{"Session not found", "Sessão não encontrada"},
	{"Action not allowed at this step", "Ação não permitida nesta etapa"},
	{"Unknown download format", "Formato de download desconhecido"},
	{"Nothing to download yet", "Ainda não há imagem para baixar"},
	{"Too many requests", "Muitas requisições"},
	{"High resolution", "Alta resolução"},
	{".CDR/.AI Black and White", ".CDR/.AI Preto e Branco"},
	{".CDR/.AI Color HD", ".CDR/.AI Colorido HD"},
	{"BW VECTOR", "VETOR P/B"},
	{"COLOR VECTOR", "VETOR COLORIDO"},
	{"PDF files are not generated automatically. Place the PNG in your layout tool and export it as PDF.", "O PDF não é gerado automaticamente. Insira o PNG na sua ferramenta de diagramação e exporte como PDF."},
	{"Vector files are not generated automatically. Open the PNG in CorelDRAW or Illustrator and use image trace to vectorize it.", "Arquivos vetoriais não são gerados automaticamente. Abra o PNG no CorelDRAW ou Illustrator e use o rastreamento de imagem para vetorizar."},
}

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, t := range translations {
		_ = b.SetString(language.English, t[0], t[0])
		_ = b.SetString(language.Portuguese, t[0], t[1])
	}
	return b
}

// Match picks the best supported locale for an Accept-Language style list.
// It returns "" when nothing matches.
func Match(accept string) string {
	accept = strings.TrimSpace(accept)
	if accept == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return ""
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return ""
	}
	return baseOf(supported[idx])
}

// Normalize maps any tag ("pt-BR", "EN_us") to a supported locale, or "".
func Normalize(locale string) string {
	return Match(strings.ReplaceAll(locale, "_", "-"))
}

// LocaleForCountry returns the default locale for an ISO country code.
func LocaleForCountry(country string) string {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		return ""
	}
	if _, ok := portugueseCountries[country]; ok {
		return Portuguese
	}
	return English
}

// T translates key into locale, falling back to the key itself.
func T(locale, key string) string {
	if key == "" {
		return ""
	}
	tag := language.English
	if Normalize(locale) == Portuguese {
		tag = language.Portuguese
	}
	p := message.NewPrinter(tag, message.Catalog(messages))
	return p.Sprintf(key)
}

func baseOf(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
