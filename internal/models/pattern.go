package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Pattern reliability thresholds. A pattern only biases scoring once it has
// been confirmed often enough and consistently enough.
const (
	ReliableMinOccurrences = 3
	ReliableMinConfidence  = 0.7
)

// DayOffsetBuckets is the size of the day-offset histogram. Offsets of
// seven days or more all land in the last bucket.
const DayOffsetBuckets = 8

// PairKey identifies an unordered account pair. The two account ids are
// stored in canonical order so (A,B) and (B,A) resolve to the same key.
type PairKey struct {
	A string
	B string
}

// NewPairKey builds a canonical key from two account ids in either order.
func NewPairKey(accountA, accountB string) PairKey {
	if accountB < accountA {
		accountA, accountB = accountB, accountA
	}
	return PairKey{A: accountA, B: accountB}
}

// Contains reports whether the key references the given account.
func (k PairKey) Contains(accountID string) bool {
	return k.A == accountID || k.B == accountID
}

// String returns the canonical textual form of the key.
func (k PairKey) String() string {
	return k.A + "|" + k.B
}

// TransferPattern captures learned statistics about transfers between one
// account pair. Patterns are created on the first confirmed link and
// updated on every subsequent confirmation; they are never deleted
// automatically, and unlinking does not retract them.
type TransferPattern struct {
	Pair            PairKey                 `json:"pair"`
	AmountMin       decimal.Decimal         `json:"amount_min"`
	AmountMax       decimal.Decimal         `json:"amount_max"`
	DayOffsets      [DayOffsetBuckets]int   `json:"day_offsets"`
	OccurrenceCount int                     `json:"occurrence_count"`
	Confidence      float64                 `json:"confidence"`
	IsActive        bool                    `json:"is_active"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// IsReliable reports whether the pattern has enough confirmed history to
// bias candidate scoring.
func (p *TransferPattern) IsReliable() bool {
	return p.IsActive &&
		p.OccurrenceCount >= ReliableMinOccurrences &&
		p.Confidence >= ReliableMinConfidence
}

// ObserveAmount widens the typical amount range to cover amt.
func (p *TransferPattern) ObserveAmount(amt decimal.Decimal) {
	abs := amt.Abs()
	if p.OccurrenceCount == 0 || abs.LessThan(p.AmountMin) {
		p.AmountMin = abs
	}
	if p.OccurrenceCount == 0 || abs.GreaterThan(p.AmountMax) {
		p.AmountMax = abs
	}
}

// ObserveDayOffset folds a confirmed day offset into the histogram.
func (p *TransferPattern) ObserveDayOffset(days int) {
	if days < 0 {
		days = -days
	}
	if days >= DayOffsetBuckets {
		days = DayOffsetBuckets - 1
	}
	p.DayOffsets[days]++
}

// TypicalDayOffset returns the most frequently observed day offset.
func (p *TransferPattern) TypicalDayOffset() int {
	best, bestCount := 0, 0
	for offset, count := range p.DayOffsets {
		if count > bestCount {
			best, bestCount = offset, count
		}
	}
	return best
}

// Validate checks structural validity.
func (p *TransferPattern) Validate() error {
	if p.Pair.A == "" || p.Pair.B == "" {
		return fmt.Errorf("pattern pair key cannot have empty account ids")
	}
	if p.Pair.A == p.Pair.B {
		return fmt.Errorf("pattern pair key cannot reference a single account")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("pattern confidence must be within [0,1]: %f", p.Confidence)
	}
	if p.OccurrenceCount < 0 {
		return fmt.Errorf("pattern occurrence count cannot be negative: %d", p.OccurrenceCount)
	}
	return nil
}

// String returns a compact representation for logs.
func (p *TransferPattern) String() string {
	return fmt.Sprintf("TransferPattern{Pair: %s, Occurrences: %d, Confidence: %.2f, Active: %t}",
		p.Pair, p.OccurrenceCount, p.Confidence, p.IsActive)
}
