package matcher

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/iammattholland/EscapeBudget-sub002/internal/models"
)

// Features are the pairwise comparison signals between a base transaction
// and one candidate counterpart. Extraction is a pure function of its
// inputs; the pattern lookup is a read against an already-fetched set.
type Features struct {
	DateDeltaDays        int
	PayeeSimilarity      float64
	Pair                 models.PairKey
	HasHistoricalPattern bool
}

// PatternSet is the reliable patterns in effect for one scoring pass,
// keyed by canonical account pair.
type PatternSet map[models.PairKey]*models.TransferPattern

// NewPatternSet indexes patterns by their pair key.
func NewPatternSet(patterns []*models.TransferPattern) PatternSet {
	set := make(PatternSet, len(patterns))
	for _, p := range patterns {
		set[p.Pair] = p
	}
	return set
}

// ExtractFeatures computes the comparison features for a candidate pair.
func ExtractFeatures(base, candidate *models.Transaction, patterns PatternSet) Features {
	pair := models.NewPairKey(base.AccountID, candidate.AccountID)
	_, hasPattern := patterns[pair]

	return Features{
		DateDeltaDays:        models.DaysBetween(base.Date, candidate.Date),
		PayeeSimilarity:      PayeeSimilarity(base.Payee, candidate.Payee),
		Pair:                 pair,
		HasHistoricalPattern: hasPattern,
	}
}

// PayeeSimilarity scores how alike two payee strings are, in [0,1]. It
// blends case-insensitive token overlap with normalized edit distance and
// keeps whichever signal is stronger: token overlap catches reordered
// words ("Transfer to Savings" vs "Savings Transfer"), edit distance
// catches near-identical strings with small typos.
func PayeeSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	token := tokenOverlap(a, b)
	edit := editSimilarity(a, b)
	if token > edit {
		return token
	}
	return edit
}

func tokenOverlap(a, b string) float64 {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(tokensA))
	for _, t := range tokensA {
		setA[t] = struct{}{}
	}
	union := make(map[string]struct{}, len(tokensA)+len(tokensB))
	for t := range setA {
		union[t] = struct{}{}
	}
	shared := 0
	for _, t := range tokensB {
		if _, ok := union[t]; !ok {
			union[t] = struct{}{}
			continue
		}
		if _, ok := setA[t]; ok {
			shared++
			delete(setA, t) // count each shared token once
		}
	}
	return float64(shared) / float64(len(union))
}

func editSimilarity(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	sim := 1 - float64(dist)/float64(longest)
	if sim < 0 {
		return 0
	}
	return sim
}
