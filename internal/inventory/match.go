package inventory

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultCutoff is the minimum similarity ratio accepted by ClosestMatch.
const DefaultCutoff = 0.8

// ClosestMatch returns the candidate most similar to name whose similarity
// ratio is at least cutoff. Similarity is computed per character, so
// comparison is case sensitive. Equal scores prefer the lexically greater
// candidate.
func ClosestMatch(name string, candidates []string, cutoff float64) (string, bool) {
	if name == "" || len(candidates) == 0 {
		return "", false
	}

	m := difflib.NewMatcher(nil, nil)
	m.SetSeq2(chars(name))

	var (
		best      string
		bestScore float64
		found     bool
	)
	for _, c := range candidates {
		m.SetSeq1(chars(c))
		if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
			continue
		}
		score := m.Ratio()
		if score < cutoff {
			continue
		}
		if !found || score > bestScore || (score == bestScore && c > best) {
			best, bestScore, found = c, score, true
		}
	}

	return best, found
}

func chars(s string) []string {
	return strings.Split(s, "")
}
