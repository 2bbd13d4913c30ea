package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewPairKeyCanonical(t *testing.T) {
	k1 := NewPairKey("acc-checking", "acc-savings")
	k2 := NewPairKey("acc-savings", "acc-checking")

	if k1 != k2 {
		t.Errorf("pair keys differ by argument order: %v vs %v", k1, k2)
	}
	if k1.A > k1.B {
		t.Errorf("pair key not in canonical order: %v", k1)
	}
}

func TestPairKeyContains(t *testing.T) {
	k := NewPairKey("a", "b")
	if !k.Contains("a") || !k.Contains("b") {
		t.Error("key should contain both accounts")
	}
	if k.Contains("c") {
		t.Error("key should not contain an unrelated account")
	}
}

func TestObserveAmount(t *testing.T) {
	p := &TransferPattern{Pair: NewPairKey("a", "b")}

	p.ObserveAmount(decimal.NewFromFloat(-50))
	p.OccurrenceCount++
	if !p.AmountMin.Equal(decimal.NewFromInt(50)) || !p.AmountMax.Equal(decimal.NewFromInt(50)) {
		t.Errorf("first observation should set both bounds to |amt|: min=%s max=%s", p.AmountMin, p.AmountMax)
	}

	p.ObserveAmount(decimal.NewFromFloat(120.50))
	p.OccurrenceCount++
	p.ObserveAmount(decimal.NewFromFloat(-25))
	p.OccurrenceCount++

	if !p.AmountMin.Equal(decimal.NewFromInt(25)) {
		t.Errorf("AmountMin = %s, want 25", p.AmountMin)
	}
	if !p.AmountMax.Equal(decimal.NewFromFloat(120.50)) {
		t.Errorf("AmountMax = %s, want 120.5", p.AmountMax)
	}
}

func TestObserveDayOffset(t *testing.T) {
	p := &TransferPattern{Pair: NewPairKey("a", "b")}

	p.ObserveDayOffset(0)
	p.ObserveDayOffset(1)
	p.ObserveDayOffset(1)
	p.ObserveDayOffset(-1) // sign is ignored
	p.ObserveDayOffset(50) // clamps into the last bucket

	if p.DayOffsets[1] != 3 {
		t.Errorf("bucket 1 = %d, want 3", p.DayOffsets[1])
	}
	if p.DayOffsets[DayOffsetBuckets-1] != 1 {
		t.Errorf("overflow bucket = %d, want 1", p.DayOffsets[DayOffsetBuckets-1])
	}
	if got := p.TypicalDayOffset(); got != 1 {
		t.Errorf("TypicalDayOffset() = %d, want 1", got)
	}
}

func TestIsReliable(t *testing.T) {
	tests := []struct {
		name    string
		pattern TransferPattern
		want    bool
	}{
		{
			name:    "enough occurrences and confidence",
			pattern: TransferPattern{OccurrenceCount: 3, Confidence: 0.7, IsActive: true},
			want:    true,
		},
		{
			name:    "too few occurrences",
			pattern: TransferPattern{OccurrenceCount: 2, Confidence: 0.9, IsActive: true},
			want:    false,
		},
		{
			name:    "confidence below threshold",
			pattern: TransferPattern{OccurrenceCount: 10, Confidence: 0.69, IsActive: true},
			want:    false,
		},
		{
			name:    "inactive pattern never reliable",
			pattern: TransferPattern{OccurrenceCount: 10, Confidence: 0.99, IsActive: false},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pattern.IsReliable(); got != tt.want {
				t.Errorf("IsReliable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPatternValidate(t *testing.T) {
	valid := TransferPattern{Pair: NewPairKey("a", "b"), Confidence: 0.5}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid pattern rejected: %v", err)
	}

	samePair := TransferPattern{Pair: PairKey{A: "a", B: "a"}}
	if err := samePair.Validate(); err == nil {
		t.Error("single-account pair should be rejected")
	}

	badConfidence := TransferPattern{Pair: NewPairKey("a", "b"), Confidence: 1.5}
	if err := badConfidence.Validate(); err == nil {
		t.Error("confidence above 1 should be rejected")
	}
}
