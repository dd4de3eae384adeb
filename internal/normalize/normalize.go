// Package normalize produces canonical comparison forms of facility names.
//
// Housing-association names arrive in wildly inconsistent shapes
// ("Sameiet Solsiden Borettslag", "Brf Solsidan II", "Solsiden - Zaptec").
// Normalize strips the country-specific legal affixes and import noise so
// the matcher compares the discriminative part of the name only.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/nordcharge/resolve-cli/internal/model"
)

// maxTokens caps how many tokens Tokens returns.
const maxTokens = 4

// Normalize returns the canonical comparison form of a facility name.
// It is pure and idempotent: the passes run until a fixpoint, so applying
// Normalize to its own output is a no-op. An unrecognized country yields
// only the generic noise and punctuation cleanup.
func Normalize(name string, country model.Country) string {
	rules := rulesFor(country)

	s := norm.NFC.String(strings.TrimSpace(name))
	for i := 0; i < 6; i++ {
		next := normalizePass(s, rules)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func normalizePass(s string, rules *ruleSet) string {
	s = stripPrefixes(s, rules.prefixes)
	s = stripSuffixes(s, rules.suffixes)

	s = vendorSuffix.ReplaceAllString(s, "")
	s = importTag.ReplaceAllString(s, "")
	s = ordinalSuffix.ReplaceAllString(s, "")
	for _, re := range rules.locative {
		s = re.ReplaceAllString(s, "")
	}

	s = punctRun.ReplaceAllString(s, " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripPrefixes removes the first matching prefix: the prefix must be
// followed by whitespace so partial words never match.
func stripPrefixes(s string, prefixes []string) string {
	lower := strings.ToLower(s)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p+" ") {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return s
}

// stripSuffixes removes the first matching suffix: the suffix must be
// preceded by whitespace. A name that consists of nothing but the affix is
// left alone, there is nothing discriminative to keep otherwise.
func stripSuffixes(s string, suffixes []string) string {
	lower := strings.ToLower(s)
	for _, suf := range suffixes {
		if strings.HasSuffix(lower, " "+suf) {
			return strings.TrimSpace(s[:len(s)-len(suf)])
		}
	}
	return s
}

// Tokens extracts up to four discriminative lowercase tokens from a
// canonical name, in original order. Tokens of length two or less and
// domain stopwords (connectives and the association affixes themselves)
// are dropped.
func Tokens(canonical string, country model.Country) []string {
	rules := rulesFor(country)

	fields := strings.FieldsFunc(strings.ToLower(canonical), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '/' || r == '(' || r == ')'
	})

	tokens := make([]string, 0, maxTokens)
	for _, f := range fields {
		if utf8.RuneCountInString(f) <= 2 {
			continue
		}
		if _, stop := rules.stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
		if len(tokens) == maxTokens {
			break
		}
	}
	return tokens
}
