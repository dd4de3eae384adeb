package normalize

import (
	"regexp"

	"github.com/nordcharge/resolve-cli/internal/model"
)

// ruleSet holds the naming conventions for one market. Prefixes are matched
// at the start of a name (followed by whitespace), suffixes at the end
// (preceded by whitespace), both case-insensitively. Stopwords are dropped
// during token extraction. Locative patterns strip trailing "in <city>"
// fragments.
type ruleSet struct {
	prefixes  []string
	suffixes  []string
	stopwords map[string]struct{}
	locative  []*regexp.Regexp
}

// Noise patterns applied to every country: trailing roman-numeral or ordinal
// section markers and trailing charger-vendor tags appended by importers.
var (
	ordinalSuffix = regexp.MustCompile(`(?i)[\s\-]+(?:[ivx]{1,5}|\d{1,4})$`)
	vendorSuffix  = regexp.MustCompile(`(?i)\s*[-–]\s*(?:zaptec|easee|defa|mer|wattif|ladeklubben)$`)
	importTag     = regexp.MustCompile(`(?i)\s*[-–]\s*(?:all|alle|felles|komplett)$`)

	punctRun      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// inCityPattern matches a trailing "i <city>" locative used in Norwegian,
// Swedish and Danish association names.
var inCityPattern = regexp.MustCompile(`(?i)\s+i\s+\p{L}+$`)

var rulesByCountry = map[model.Country]*ruleSet{
	model.CountryNorway: {
		prefixes: []string{
			"sameiet", "borettslaget", "boligsameiet", "brl", "stiftelsen", "velforeningen",
		},
		suffixes: []string{
			"borettslag", "boligbyggelag", "boligsameie", "sameie", "brl", "bbl",
			"velforening", "huseierlag", "garasjelag", "terrasse borettslag",
		},
		stopwords: stopwordSet(
			"borettslag", "sameiet", "sameie", "boligsameie", "velforening",
			"huseierlag", "gate", "og", "ved", "for", "med", "det", "den",
		),
		locative: []*regexp.Regexp{inCityPattern},
	},
	model.CountrySweden: {
		prefixes: []string{
			"brf", "bostadsrättsföreningen", "bostadsrättsförening", "hsb brf", "riksbyggen brf",
		},
		suffixes: []string{
			"bostadsrättsförening", "samfällighetsförening", "samfällighet", "brf", "ekonomisk förening",
		},
		stopwords: stopwordSet(
			"brf", "bostadsrättsförening", "samfällighet", "förening", "och", "vid", "för", "med", "det", "den",
		),
		locative: []*regexp.Regexp{inCityPattern},
	},
	model.CountryDenmark: {
		prefixes: []string{
			"andelsboligforeningen", "ejerforeningen", "grundejerforeningen", "a/b", "e/f", "g/f",
		},
		suffixes: []string{
			"andelsboligforening", "ejerforening", "grundejerforening", "boligforening", "amba",
		},
		stopwords: stopwordSet(
			"andelsboligforening", "ejerforening", "grundejerforening", "forening", "og", "ved", "for", "med", "det", "den",
		),
		locative: []*regexp.Regexp{inCityPattern},
	},
	model.CountryFinland: {
		prefixes: []string{
			"asunto-osakeyhtiö", "as oy", "asunto oy", "kiinteistö oy", "koy", "bostads ab",
		},
		suffixes: []string{
			"asunto-osakeyhtiö", "taloyhtiö", "as oy", "oy",
		},
		stopwords: stopwordSet(
			"asunto", "osakeyhtiö", "taloyhtiö", "kiinteistö", "ja",
		),
		// Finnish locatives are inflected into the noun itself; no reliable
		// trailing pattern exists, so none is stripped.
		locative: nil,
	},
}

func stopwordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// rulesFor returns the rule set for a country, or an empty set for a
// country without table entries.
func rulesFor(country model.Country) *ruleSet {
	if rs, ok := rulesByCountry[country]; ok {
		return rs
	}
	return &ruleSet{stopwords: map[string]struct{}{}}
}
