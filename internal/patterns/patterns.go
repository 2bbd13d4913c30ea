// Package patterns maintains the learned per-account-pair transfer
// statistics that bias candidate scoring. Patterns grow only from
// confirmed links: scoring a candidate never touches them, and unlinking
// never retracts them.
package patterns

import (
	"context"

	"github.com/iammattholland/EscapeBudget-sub002/internal/models"
	"github.com/iammattholland/EscapeBudget-sub002/pkg/errors"
	"github.com/iammattholland/EscapeBudget-sub002/pkg/logger"
)

const (
	// initialConfidence seeds a pattern on its first confirmed link.
	initialConfidence = 0.5
	// confidenceAlpha is the step of the bounded exponential update
	// confidence' = confidence + alpha * (1 - confidence).
	confidenceAlpha = 0.2
)

// Repo is the persistence surface the pattern store needs. Both the
// store's db-bound and tx-bound PatternRepo satisfy it.
type Repo interface {
	Get(ctx context.Context, pair models.PairKey) (*models.TransferPattern, error)
	Upsert(ctx context.Context, p *models.TransferPattern) error
	ListReliable(ctx context.Context) ([]*models.TransferPattern, error)
}

// Store reads and updates learned transfer patterns. It is an explicitly
// constructed repository scoped to a persistence session, not a process
// singleton, so tests can inject an empty or fixture store.
type Store struct {
	repo Repo
	log  logger.Logger
}

// NewStore creates a pattern store over the given repository.
func NewStore(repo Repo) *Store {
	return &Store{
		repo: repo,
		log:  logger.WithComponent("pattern_store"),
	}
}

// FetchReliablePatterns returns all patterns with enough confirmed history
// to bias scoring.
func (s *Store) FetchReliablePatterns(ctx context.Context) ([]*models.TransferPattern, error) {
	patterns, err := s.repo.ListReliable(ctx)
	if err != nil {
		return nil, errors.Persistence(errors.CodeQueryFailed, "list_reliable_patterns", err)
	}
	return patterns, nil
}

// RecordConfirmedLink folds one confirmed link into the pattern for the
// legs' account pair, creating the pattern on first confirmation. Only
// user- or auto-confirmed links may be recorded, never merely-scored
// candidates.
func (s *Store) RecordConfirmedLink(ctx context.Context, legA, legB *models.Transaction) error {
	pair := models.NewPairKey(legA.AccountID, legB.AccountID)

	p, err := s.repo.Get(ctx, pair)
	if err != nil {
		return errors.Persistence(errors.CodeQueryFailed, "get_pattern", err)
	}
	created := p == nil
	if created {
		p = &models.TransferPattern{
			Pair:     pair,
			IsActive: true,
		}
	}

	p.ObserveAmount(legA.Amount)
	p.ObserveDayOffset(models.DaysBetween(legA.Date, legB.Date))
	p.OccurrenceCount++
	if created {
		p.Confidence = initialConfidence
	} else {
		p.Confidence += confidenceAlpha * (1 - p.Confidence)
		if p.Confidence > 1 {
			p.Confidence = 1
		}
	}

	if err := s.repo.Upsert(ctx, p); err != nil {
		return errors.Persistence(errors.CodeSaveFailed, "upsert_pattern", err)
	}

	s.log.WithFields(logger.Fields{
		"pair":        pair.String(),
		"occurrences": p.OccurrenceCount,
		"confidence":  p.Confidence,
	}).Debug("confirmed link recorded")

	return nil
}
