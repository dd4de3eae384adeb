package normalize

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/nordcharge/resolve-cli/internal/model"
)

func TestNormalize_Norway(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sameiet Solsiden Borettslag", "Solsiden"},
		{"Alvim Borettslag - all", "Alvim"},
		{"Borettslaget Nygård II", "Nygård"},
		{"Fjellveien Sameie", "Fjellveien"},
		{"Solbakken Borettslag i Trondheim", "Solbakken"},
		{"Granlia - Zaptec", "Granlia"},
		{"Lia Terrasse", "Lia Terrasse"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in, model.CountryNorway), "input %q", tt.in)
	}
}

func TestNormalize_OtherCountries(t *testing.T) {
	assert.Equal(t, "Solsidan", Normalize("Brf Solsidan", model.CountrySweden))
	assert.Equal(t, "Eken", Normalize("Eken Samfällighet", model.CountrySweden))
	assert.Equal(t, "Rosenhaven", Normalize("Andelsboligforeningen Rosenhaven", model.CountryDenmark))
	assert.Equal(t, "Mäntyrinne", Normalize("As Oy Mäntyrinne", model.CountryFinland))
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Sameiet Solsiden Borettslag",
		"Alvim Borettslag - all",
		"Brf Solsidan II",
		"Andelsboligforeningen Rosenhaven i København",
		"As Oy Mäntyrinne",
		"Et Helt Vanlig Navn",
		"  spaces   and (parens) / slashes  ",
		"",
	}
	for _, c := range model.SupportedCountries {
		for _, in := range inputs {
			once := Normalize(in, c)
			assert.Equal(t, once, Normalize(once, c), "country %s input %q", c, in)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("Solsiden Hageby ved Elven", model.CountryNorway)
	assert.Equal(t, []string{"solsiden", "hageby", "elven"}, got)

	// Splits on hyphen, slash and parens, drops short tokens.
	got = Tokens("Nedre-Alvim/Søndre (B2)", model.CountryNorway)
	assert.Equal(t, []string{"nedre", "alvim", "søndre"}, got)
}

func TestTokens_Properties(t *testing.T) {
	inputs := []string{
		"Alvim Borettslag Nedre Søndre Østre Vestre Nordre",
		"og i på a bb ccc",
		"Borettslag sameie brf",
	}
	for _, c := range model.SupportedCountries {
		rules := rulesFor(c)
		for _, in := range inputs {
			tokens := Tokens(in, c)
			assert.LessOrEqual(t, len(tokens), 4)
			for _, tok := range tokens {
				assert.Greater(t, utf8.RuneCountInString(tok), 2, "token %q", tok)
				_, stop := rules.stopwords[tok]
				assert.False(t, stop, "stopword %q leaked for %s", tok, c)
			}
		}
	}
}
