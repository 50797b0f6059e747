package dispatch

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// MaxSuggestionDistance is the largest edit distance still offered as a
// suggestion.
const MaxSuggestionDistance = 3

// Suggest returns the candidate closest to name by edit distance, ignoring
// case. Ties go to the lexicographically smaller candidate. It returns false
// when nothing is within MaxSuggestionDistance.
func Suggest(name string, candidates []string) (string, bool) {
	target := strings.ToLower(name)
	best, bestDist := "", MaxSuggestionDistance+1

	for _, c := range candidates {
		lc := strings.ToLower(c)
		if lc == target {
			continue
		}
		d := levenshtein.ComputeDistance(target, lc)
		if d < bestDist || (d == bestDist && lc < best) {
			best, bestDist = lc, d
		}
	}
	if bestDist > MaxSuggestionDistance {
		return "", false
	}
	return best, true
}
