// Package similarity provides the string scoring primitives used by the
// candidate matcher.
package similarity

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// substringFloor is the similarity above which two tokens are considered
// the same word despite spelling drift.
const substringFloor = 0.8

// Ratio returns a normalized edit-distance similarity in [0,1]:
// (len(longer) - distance) / len(longer), over runes. Two empty strings
// are identical by definition. Symmetric, and Ratio(a, a) == 1 for any a.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}

	longer := utf8.RuneCountInString(a)
	if lb := utf8.RuneCountInString(b); lb > longer {
		longer = lb
	}
	if longer == 0 {
		return 1
	}

	dist := levenshtein.ComputeDistance(a, b)
	return float64(longer-dist) / float64(longer)
}

// TokenOverlap returns the fraction of facility tokens that have a
// corresponding candidate token: equal, a substring of one another, or
// with Ratio above the substring floor. Returns 0 when the facility has
// no tokens.
func TokenOverlap(facilityTokens, candidateTokens []string) float64 {
	if len(facilityTokens) == 0 {
		return 0
	}

	matched := 0
	for _, ft := range facilityTokens {
		for _, ct := range candidateTokens {
			if tokensMatch(ft, ct) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(facilityTokens))
}

func tokensMatch(a, b string) bool {
	if a == b {
		return true
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return Ratio(a, b) > substringFloor
}
