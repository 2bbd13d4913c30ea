package matcher

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iammattholland/EscapeBudget-sub002/internal/models"
)

func TestScoreSameDayNoPatterns(t *testing.T) {
	m := NewScoringModel(DefaultMatchingConfig())

	f := Features{DateDeltaDays: 0, PayeeSimilarity: 0}
	got := m.Score(f, NewPatternSet(nil), Window(30))

	// Base 40 + full date weight 35.
	if got != 75 {
		t.Errorf("Score = %f, want 75", got)
	}
}

func TestScoreDateDecayMonotonic(t *testing.T) {
	m := NewScoringModel(DefaultMatchingConfig())
	window := Window(30)
	set := NewPatternSet(nil)

	prev := m.Score(Features{DateDeltaDays: 0}, set, window)
	for delta := 1; delta <= 35; delta++ {
		got := m.Score(Features{DateDeltaDays: delta}, set, window)
		if got > prev {
			t.Fatalf("score increased with date delta: %f at %d days, %f at %d days", prev, delta-1, got, delta)
		}
		prev = got
	}

	// At and beyond the horizon the contribution sits on the floor.
	atEdge := m.Score(Features{DateDeltaDays: 30}, set, window)
	beyond := m.Score(Features{DateDeltaDays: 100}, set, window)
	want := DefaultMatchingConfig().BaseScore + DefaultMatchingConfig().DateFloor
	if atEdge != want || beyond != want {
		t.Errorf("edge scores = %f/%f, want %f", atEdge, beyond, want)
	}
}

func TestScorePatternBonus(t *testing.T) {
	m := NewScoringModel(DefaultMatchingConfig())
	pair := models.NewPairKey("acc-1", "acc-2")
	f := Features{DateDeltaDays: 0, Pair: pair}

	reliable := NewPatternSet([]*models.TransferPattern{
		{Pair: pair, OccurrenceCount: 5, Confidence: 0.9, IsActive: true},
	})
	unreliable := NewPatternSet([]*models.TransferPattern{
		{Pair: pair, OccurrenceCount: 1, Confidence: 0.5, IsActive: true},
	})

	withBonus := m.Score(f, reliable, Window(30))
	withoutBonus := m.Score(f, NewPatternSet(nil), Window(30))
	unreliableScore := m.Score(f, unreliable, Window(30))

	if withBonus != withoutBonus+20*0.9 {
		t.Errorf("pattern bonus = %f, want %f", withBonus-withoutBonus, 20*0.9)
	}
	if unreliableScore != withoutBonus {
		t.Errorf("unreliable pattern changed the score: %f vs %f", unreliableScore, withoutBonus)
	}
}

func TestScoreClamped(t *testing.T) {
	config := DefaultMatchingConfig()
	m := NewScoringModel(config)
	pair := models.NewPairKey("acc-1", "acc-2")
	set := NewPatternSet([]*models.TransferPattern{
		{Pair: pair, OccurrenceCount: 10, Confidence: 1, IsActive: true},
	})

	got := m.Score(Features{DateDeltaDays: 0, PayeeSimilarity: 1, Pair: pair}, set, Window(30))
	if got > 100 {
		t.Errorf("score exceeds 100: %f", got)
	}
}

func TestAutoConfirmEligible(t *testing.T) {
	m := NewScoringModel(DefaultMatchingConfig())
	if m.AutoConfirmEligible(79.9) {
		t.Error("below-threshold score marked eligible")
	}
	if !m.AutoConfirmEligible(80) {
		t.Error("threshold score should be eligible")
	}
}

func TestRankOrderingAndTieBreaks(t *testing.T) {
	m := NewScoringModel(DefaultMatchingConfig())
	base := &models.Transaction{
		ID:        "tx-base",
		AccountID: "acc-checking",
		Date:      day(15),
		Amount:    decimal.NewFromInt(-50),
	}

	sameDayA := &models.Transaction{ID: "tx-a", AccountID: "acc-1", Date: day(15), Amount: decimal.NewFromInt(50)}
	sameDayB := &models.Transaction{ID: "tx-b", AccountID: "acc-2", Date: day(15), Amount: decimal.NewFromInt(50)}
	older := &models.Transaction{ID: "tx-c", AccountID: "acc-3", Date: day(10), Amount: decimal.NewFromInt(50)}

	ranked := m.Rank(base, []*models.Transaction{older, sameDayB, sameDayA}, NewPatternSet(nil), Window(30))

	if len(ranked) != 3 {
		t.Fatalf("len(ranked) = %d, want 3", len(ranked))
	}
	// Same-day candidates outrank the older one; equal scores fall back to id order.
	if ranked[0].Transaction.ID != "tx-a" || ranked[1].Transaction.ID != "tx-b" || ranked[2].Transaction.ID != "tx-c" {
		t.Errorf("unexpected order: %s, %s, %s",
			ranked[0].Transaction.ID, ranked[1].Transaction.ID, ranked[2].Transaction.ID)
	}
	if ranked[0].Score != ranked[1].Score {
		t.Errorf("same-day candidates should tie: %f vs %f", ranked[0].Score, ranked[1].Score)
	}
	if ranked[2].Score >= ranked[1].Score {
		t.Errorf("older candidate should score lower: %f vs %f", ranked[2].Score, ranked[1].Score)
	}
}

func TestRankReproducible(t *testing.T) {
	m := NewScoringModel(DefaultMatchingConfig())
	base := &models.Transaction{ID: "tx-base", AccountID: "acc-0", Date: day(15), Amount: decimal.NewFromInt(-75)}

	candidates := []*models.Transaction{
		{ID: "tx-1", AccountID: "acc-1", Date: day(14), Amount: decimal.NewFromInt(75), Payee: "Transfer"},
		{ID: "tx-2", AccountID: "acc-2", Date: day(16), Amount: decimal.NewFromInt(75), Payee: "Move"},
		{ID: "tx-3", AccountID: "acc-3", Date: day(15), Amount: decimal.NewFromInt(75)},
	}

	first := m.Rank(base, candidates, NewPatternSet(nil), Window(30))
	for i := 0; i < 5; i++ {
		again := m.Rank(base, candidates, NewPatternSet(nil), Window(30))
		for j := range first {
			if again[j].Transaction.ID != first[j].Transaction.ID || again[j].Score != first[j].Score {
				t.Fatalf("ranking not reproducible at position %d", j)
			}
		}
	}
}

func TestMatchingConfigValidate(t *testing.T) {
	for name, config := range map[string]*MatchingConfig{
		"default": DefaultMatchingConfig(),
		"strict":  StrictMatchingConfig(),
		"relaxed": RelaxedMatchingConfig(),
	} {
		if err := config.Validate(); err != nil {
			t.Errorf("%s config invalid: %v", name, err)
		}
	}

	bad := DefaultMatchingConfig()
	bad.DateFloor = bad.DateWeight + 1
	if err := bad.Validate(); err == nil {
		t.Error("floor above weight should be rejected")
	}

	negative := DefaultMatchingConfig()
	negative.BaseScore = -1
	if err := negative.Validate(); err == nil {
		t.Error("negative weight should be rejected")
	}
}

func TestSearchWindowFetchLimits(t *testing.T) {
	tests := []struct {
		window SearchWindow
		want   int
	}{
		{Window(7), 300},
		{Window(30), 750},
		{Window(90), 1500},
		{WindowAll, 3000},
	}
	for _, tt := range tests {
		if got := tt.window.FetchLimit(); got != tt.want {
			t.Errorf("FetchLimit(%s) = %d, want %d", tt.window, got, tt.want)
		}
	}
	if Window(30).Horizon() != 30 || WindowAll.Horizon() != 365 {
		t.Error("unexpected horizon")
	}
}
