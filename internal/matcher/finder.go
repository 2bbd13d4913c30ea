package matcher

import (
	"context"

	"github.com/iammattholland/EscapeBudget-sub002/internal/models"
	"github.com/iammattholland/EscapeBudget-sub002/internal/store"
	"github.com/iammattholland/EscapeBudget-sub002/pkg/errors"
	"github.com/iammattholland/EscapeBudget-sub002/pkg/logger"
)

// CounterpartSource is the store query the finder depends on. The store's
// TransactionRepo satisfies it.
type CounterpartSource interface {
	FindCounterparts(ctx context.Context, q store.CounterpartQuery) ([]*models.Transaction, error)
}

// CandidateFinder runs the bounded, windowed counterpart query. It is
// read-only: wider windows return supersets of narrower ones, subject only
// to the fetch-limit cap.
type CandidateFinder struct {
	source CounterpartSource
	log    logger.Logger
}

// NewCandidateFinder creates a finder over the given source.
func NewCandidateFinder(source CounterpartSource) *CandidateFinder {
	return &CandidateFinder{
		source: source,
		log:    logger.WithComponent("candidate_finder"),
	}
}

// Candidates returns transactions that could be the other leg of base:
// different account, exactly opposite amount, within the window, unlinked,
// and not ignored. The amount filter is exact decimal equality done in the
// query predicate, never a scored feature.
func (f *CandidateFinder) Candidates(ctx context.Context, base *models.Transaction, window SearchWindow) ([]*models.Transaction, error) {
	if base == nil {
		return nil, errors.Validation(errors.CodeMissingField, "base transaction is required")
	}
	if base.Amount.IsZero() {
		// A zero-amount leg can never balance against a counterpart.
		return nil, nil
	}

	q := store.CounterpartQuery{
		ExcludeAccountID: base.AccountID,
		ExcludeID:        base.ID,
		Amount:           base.Amount.Neg(),
		AllDates:         window.IsAll(),
		Limit:            window.FetchLimit(),
	}
	if !window.IsAll() {
		q.From = base.Date.AddDate(0, 0, -window.Days)
		q.To = base.Date.AddDate(0, 0, window.Days)
	}

	candidates, err := f.source.FindCounterparts(ctx, q)
	if err != nil {
		return nil, errors.Persistence(errors.CodeQueryFailed, "find_counterparts", err)
	}

	f.log.WithFields(logger.Fields{
		"base":       base.ID,
		"window":     window.String(),
		"candidates": len(candidates),
	}).Debug("counterpart search complete")

	return candidates, nil
}
