package matcher

import (
	"sort"

	"github.com/iammattholland/EscapeBudget-sub002/internal/models"
)

// RankedCandidate pairs a candidate transaction with its confidence score
// and the features that produced it.
type RankedCandidate struct {
	Transaction *models.Transaction
	Score       float64
	Features    Features
}

// ScoringModel turns features and learned patterns into a confidence score
// in [0,100]. Scoring is deterministic and side-effect free: identical
// inputs always produce identical scores.
type ScoringModel struct {
	config *MatchingConfig
}

// NewScoringModel creates a scoring model. A nil config uses defaults.
func NewScoringModel(config *MatchingConfig) *ScoringModel {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	return &ScoringModel{config: config}
}

// Score computes the confidence that a candidate with the given features
// is the true counterpart. The exact amount match is already guaranteed by
// the finder, so the base score applies to every candidate that reaches
// scoring.
func (m *ScoringModel) Score(f Features, patterns PatternSet, window SearchWindow) float64 {
	score := m.config.BaseScore
	score += m.dateContribution(f.DateDeltaDays, window)

	if p, ok := patterns[f.Pair]; ok && p.IsReliable() {
		score += m.config.PatternBonus * p.Confidence
	}

	score += m.config.PayeeWeight * f.PayeeSimilarity

	return clampScore(score)
}

// dateContribution decays linearly from DateWeight at zero days to
// DateFloor at the window horizon.
func (m *ScoringModel) dateContribution(deltaDays int, window SearchWindow) float64 {
	horizon := window.Horizon()
	if deltaDays >= horizon {
		return m.config.DateFloor
	}
	c := m.config.DateWeight * (1 - float64(deltaDays)/float64(horizon))
	if c < m.config.DateFloor {
		return m.config.DateFloor
	}
	return c
}

// AutoConfirmEligible reports whether a score clears the one-tap
// confirmation threshold. Eligibility is advisory: committing a link
// always requires an explicit confirm call.
func (m *ScoringModel) AutoConfirmEligible(score float64) bool {
	return score >= m.config.AutoConfirmThreshold
}

// Rank extracts features and scores every candidate, then sorts by score
// descending. Ties break by smaller date delta, then by transaction id, so
// the ordering is reproducible across runs.
func (m *ScoringModel) Rank(base *models.Transaction, candidates []*models.Transaction, patterns PatternSet, window SearchWindow) []RankedCandidate {
	ranked := make([]RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		f := ExtractFeatures(base, c, patterns)
		ranked = append(ranked, RankedCandidate{
			Transaction: c,
			Score:       m.Score(f, patterns, window),
			Features:    f,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Features.DateDeltaDays != ranked[j].Features.DateDeltaDays {
			return ranked[i].Features.DateDeltaDays < ranked[j].Features.DateDeltaDays
		}
		return ranked[i].Transaction.ID < ranked[j].Transaction.ID
	})

	return ranked
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
