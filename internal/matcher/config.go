// Package matcher implements counterpart search and scoring for transfer
// reconciliation.
//
// Given one leg of a suspected transfer, the matcher:
//  1. Queries the store for opposite-sign, opposite-account candidates
//     within a bounded date window (exact amount match is a hard filter)
//  2. Extracts pairwise features for each candidate
//  3. Assigns a deterministic confidence score in [0,100], biased by
//     learned per-account-pair patterns
//  4. Ranks candidates reproducibly for presentation
//
// The engine never commits a link itself; confirmation is always an
// explicit call on the link manager.
package matcher

import (
	"fmt"
)

// SearchWindow bounds counterpart search around the base transaction's
// date. A zero Days value means the whole ledger.
type SearchWindow struct {
	Days int
}

// Window returns a window of n days around the base date.
func Window(days int) SearchWindow {
	return SearchWindow{Days: days}
}

// WindowAll searches the entire ledger.
var WindowAll = SearchWindow{Days: 0}

// IsAll reports whether the window is unbounded.
func (w SearchWindow) IsAll() bool {
	return w.Days <= 0
}

// FetchLimit returns the candidate fetch cap for the window. Wider windows
// get a larger cap so query cost stays bounded as the window grows.
func (w SearchWindow) FetchLimit() int {
	switch {
	case w.IsAll():
		return 3000
	case w.Days <= 7:
		return 300
	case w.Days <= 30:
		return 750
	case w.Days <= 90:
		return 1500
	default:
		return 3000
	}
}

// Horizon returns the day span used for the date-decay slope. Unbounded
// windows decay over a year.
func (w SearchWindow) Horizon() int {
	if w.IsAll() {
		return 365
	}
	return w.Days
}

// String returns a human-readable description of the window.
func (w SearchWindow) String() string {
	if w.IsAll() {
		return "all"
	}
	return fmt.Sprintf("%dd", w.Days)
}

// MatchingConfig holds the scoring weights and thresholds. All score
// contributions are points on the [0,100] confidence scale.
type MatchingConfig struct {
	// BaseScore is granted to every structurally valid candidate. The
	// finder has already guaranteed the exact amount match.
	BaseScore float64 `json:"base_score"`

	// DateWeight is the maximum contribution from date proximity; it
	// decays linearly with the day delta across the window horizon.
	DateWeight float64 `json:"date_weight"`

	// DateFloor is the minimum date contribution at the window edge.
	DateFloor float64 `json:"date_floor"`

	// PatternBonus is the maximum bonus for a reliable historical pattern
	// on the account pair, scaled by that pattern's confidence.
	PatternBonus float64 `json:"pattern_bonus"`

	// PayeeWeight is the maximum contribution from payee similarity.
	PayeeWeight float64 `json:"payee_weight"`

	// AutoConfirmThreshold marks candidates eligible for one-tap
	// confirmation in the UI. The engine itself never auto-commits.
	AutoConfirmThreshold float64 `json:"auto_confirm_threshold"`

	// DefaultWindow is used when the caller does not specify one.
	DefaultWindow SearchWindow `json:"default_window"`
}

// DefaultMatchingConfig returns the standard scoring configuration.
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		BaseScore:            40,
		DateWeight:           35,
		DateFloor:            5,
		PatternBonus:         20,
		PayeeWeight:          5,
		AutoConfirmThreshold: 80,
		DefaultWindow:        Window(30),
	}
}

// StrictMatchingConfig weights date proximity heavily and raises the
// auto-confirm bar, for users who review every suggestion.
func StrictMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		BaseScore:            30,
		DateWeight:           45,
		DateFloor:            0,
		PatternBonus:         20,
		PayeeWeight:          5,
		AutoConfirmThreshold: 90,
		DefaultWindow:        Window(7),
	}
}

// RelaxedMatchingConfig widens the default window and lowers the
// auto-confirm bar, for sparse ledgers.
func RelaxedMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		BaseScore:            45,
		DateWeight:           30,
		DateFloor:            10,
		PatternBonus:         20,
		PayeeWeight:          5,
		AutoConfirmThreshold: 70,
		DefaultWindow:        Window(90),
	}
}

// Validate checks that the configured weights form a sane score scale.
func (c *MatchingConfig) Validate() error {
	for name, v := range map[string]float64{
		"base_score":    c.BaseScore,
		"date_weight":   c.DateWeight,
		"date_floor":    c.DateFloor,
		"pattern_bonus": c.PatternBonus,
		"payee_weight":  c.PayeeWeight,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s must be within [0,100]: %f", name, v)
		}
	}
	if c.DateFloor > c.DateWeight {
		return fmt.Errorf("date_floor (%f) cannot exceed date_weight (%f)", c.DateFloor, c.DateWeight)
	}
	if c.AutoConfirmThreshold < 0 || c.AutoConfirmThreshold > 100 {
		return fmt.Errorf("auto_confirm_threshold must be within [0,100]: %f", c.AutoConfirmThreshold)
	}
	total := c.BaseScore + c.DateWeight + c.PatternBonus + c.PayeeWeight
	if total < 50 || total > 100 {
		return fmt.Errorf("weights should sum to at most 100 and at least 50, got %f", total)
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *MatchingConfig) Clone() *MatchingConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
