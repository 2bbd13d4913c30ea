package matcher

import (
	"context"
	"errors"
	"sync"

	"github.com/iammattholland/EscapeBudget-sub002/internal/models"
)

// ErrSuperseded is returned when a newer search started while this one was
// running. The stale result is discarded, never merged with the fresh one.
var ErrSuperseded = errors.New("candidate search superseded by a newer query")

// Searcher runs candidate searches as cancellable background work with
// last-request-wins semantics: changing the window mid-query cancels the
// in-flight search and only the newest request's result is ever returned.
type Searcher struct {
	finder *CandidateFinder
	scorer *ScoringModel

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewSearcher creates a searcher over the given finder and scorer.
func NewSearcher(finder *CandidateFinder, scorer *ScoringModel) *Searcher {
	return &Searcher{finder: finder, scorer: scorer}
}

// Search finds and ranks counterpart candidates for base. If another
// Search call begins before this one finishes, the earlier call returns
// ErrSuperseded.
func (s *Searcher) Search(ctx context.Context, base *models.Transaction, window SearchWindow, patterns PatternSet) ([]RankedCandidate, error) {
	s.mu.Lock()
	s.seq++
	mySeq := s.seq
	if s.cancel != nil {
		s.cancel()
	}
	searchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	candidates, err := s.finder.Candidates(searchCtx, base, window)

	s.mu.Lock()
	superseded := mySeq != s.seq
	if !superseded {
		s.cancel = nil
		cancel()
	}
	s.mu.Unlock()

	if superseded {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}

	return s.scorer.Rank(base, candidates, patterns, window), nil
}
