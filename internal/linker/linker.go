// Package linker implements the transfer state machine. It orchestrates
// search, scoring, and the link/unlink/external/convert/delete transitions
// while keeping the bidirectional pairing invariant intact: every transfer
// id is shared by exactly two legs whose amounts balance exactly.
package linker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/iammattholland/EscapeBudget-sub002/internal/matcher"
	"github.com/iammattholland/EscapeBudget-sub002/internal/models"
	"github.com/iammattholland/EscapeBudget-sub002/internal/patterns"
	"github.com/iammattholland/EscapeBudget-sub002/internal/store"
	"github.com/iammattholland/EscapeBudget-sub002/pkg/errors"
	"github.com/iammattholland/EscapeBudget-sub002/pkg/logger"
)

// Manager exposes the engine's operations to UI layers and the CLI. All
// mutating transitions are serialized (single-writer discipline) and run
// inside one store transaction each, so they either land completely or
// not at all.
type Manager struct {
	store    *store.Store
	config   *matcher.MatchingConfig
	scorer   *matcher.ScoringModel
	searcher *matcher.Searcher
	log      logger.Logger

	// mu serializes mutating transitions. Candidate search does not take
	// it; the searcher has its own last-request-wins discipline.
	mu sync.Mutex
}

// NewManager creates a link manager over the given store. A nil config
// uses the default matching configuration.
func NewManager(st *store.Store, config *matcher.MatchingConfig) (*Manager, error) {
	if st == nil {
		return nil, errors.Validation(errors.CodeMissingField, "store is required")
	}
	if config == nil {
		config = matcher.DefaultMatchingConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Configuration("matching", config, err)
	}

	finder := matcher.NewCandidateFinder(st.Transactions)
	scorer := matcher.NewScoringModel(config)

	return &Manager{
		store:    st,
		config:   config.Clone(),
		scorer:   scorer,
		searcher: matcher.NewSearcher(finder, scorer),
		log:      logger.WithComponent("link_manager"),
	}, nil
}

// Config returns a copy of the matching configuration in effect.
func (m *Manager) Config() *matcher.MatchingConfig {
	return m.config.Clone()
}

// AutoConfirmEligible reports whether a candidate score clears the
// configured one-tap confirmation threshold. Eligibility is advisory;
// committing a link always requires an explicit LinkAsTransfer call.
func (m *Manager) AutoConfirmEligible(score float64) bool {
	return m.scorer.AutoConfirmEligible(score)
}

// CandidateMatches finds and ranks possible counterparts for the base
// transaction. Results are capped at limit when limit is positive. If a
// newer search supersedes this one mid-query, matcher.ErrSuperseded is
// returned and the stale result is discarded.
func (m *Manager) CandidateMatches(ctx context.Context, baseID string, window matcher.SearchWindow, limit int) ([]matcher.RankedCandidate, error) {
	base, err := m.store.Transactions.Get(ctx, baseID)
	if err != nil {
		return nil, errors.Persistence(errors.CodeQueryFailed, "get_transaction", err)
	}
	if base == nil {
		return nil, errors.NotFound(errors.CodeTransactionNotFound, "transaction", baseID)
	}

	reliable, err := patterns.NewStore(m.store.Patterns).FetchReliablePatterns(ctx)
	if err != nil {
		return nil, err
	}

	ranked, err := m.searcher.Search(ctx, base, window, matcher.NewPatternSet(reliable))
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// PendingReview lists transfer-flagged transactions awaiting user review.
// Externalized and dismissed transactions are excluded.
func (m *Manager) PendingReview(ctx context.Context) ([]*models.Transaction, error) {
	pending, err := m.store.Transactions.PendingReview(ctx)
	if err != nil {
		return nil, errors.Persistence(errors.CodeQueryFailed, "pending_review", err)
	}
	return pending, nil
}

// MarkAsTransfer flags a standard transaction as one leg of a transfer,
// clearing its category and resetting its inbox state.
func (m *Manager) MarkAsTransfer(ctx context.Context, txID string) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var event *Event
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		t, err := m.mustGetTransaction(ctx, tx, txID)
		if err != nil {
			return err
		}
		if t.State() != models.StateStandard {
			return errors.Validation(errors.CodeWrongState,
				fmt.Sprintf("transaction is %s, only standard transactions can be marked as transfers", t.State()))
		}

		updated := t.Clone()
		updated.Kind = models.KindTransfer
		updated.CategoryID = nil
		updated.TransferID = nil
		updated.TransferInboxDismissed = false

		if err := tx.Transactions.Update(ctx, updated); err != nil {
			return errors.Persistence(errors.CodeSaveFailed, "mark_as_transfer", err)
		}
		event = &Event{Op: OpMarkedTransfer, Transactions: []*models.Transaction{updated}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.WithField("transaction", txID).Info("marked as transfer")
	return event, nil
}

// LinkAsTransfer links two unlinked transfer legs under a fresh shared
// transfer id and records the confirmation in the pattern store. Both legs
// are re-read and re-validated inside the commit transaction, so a
// concurrent link of either leg is rejected rather than overwritten.
func (m *Manager) LinkAsTransfer(ctx context.Context, baseID, candidateID string) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var event *Event
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		base, err := m.mustGetTransaction(ctx, tx, baseID)
		if err != nil {
			return err
		}
		candidate, err := m.mustGetTransaction(ctx, tx, candidateID)
		if err != nil {
			return err
		}
		legs, transferID, err := m.linkLegs(ctx, tx, base, candidate)
		if err != nil {
			return err
		}
		event = &Event{Op: OpLinked, TransferID: transferID, Transactions: legs}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.WithFields(logger.Fields{
		"base":      baseID,
		"candidate": candidateID,
		"transfer":  event.TransferID,
	}).Info("transfer linked")
	return event, nil
}

// linkLegs validates and commits a link between two legs inside an open
// transaction, then records the confirmation in the pattern store.
func (m *Manager) linkLegs(ctx context.Context, tx *store.Tx, base, candidate *models.Transaction) ([]*models.Transaction, string, error) {
	if base.ID == candidate.ID {
		return nil, "", errors.Validation(errors.CodeSelfTransfer, "a transaction cannot be linked to itself")
	}
	if base.AccountID == candidate.AccountID {
		return nil, "", errors.Validation(errors.CodeSelfTransfer, "both legs belong to the same account")
	}
	for _, leg := range []*models.Transaction{base, candidate} {
		if leg.IsLinked() {
			return nil, "", errors.Validation(errors.CodeAlreadyLinked,
				fmt.Sprintf("transaction %s is already linked to another transfer", leg.ID)).
				WithContext("transaction", leg.ID)
		}
		if leg.State() != models.StateTransferUnlinked {
			return nil, "", errors.Validation(errors.CodeWrongState,
				fmt.Sprintf("transaction %s is %s, expected an unlinked transfer", leg.ID, leg.State()))
		}
	}
	if !base.Amount.Equal(candidate.Amount.Neg()) {
		return nil, "", errors.Validation(errors.CodeAmountMismatch,
			"legs must carry exactly opposite amounts")
	}

	transferID := uuid.NewString()
	legs := make([]*models.Transaction, 0, 2)
	for _, leg := range []*models.Transaction{base, candidate} {
		updated := leg.Clone()
		updated.TransferID = &transferID
		updated.ExternalTransferLabel = nil
		if err := tx.Transactions.Update(ctx, updated); err != nil {
			return nil, "", errors.Persistence(errors.CodeSaveFailed, "link_as_transfer", err)
		}
		legs = append(legs, updated)
	}

	if err := patterns.NewStore(tx.Patterns).RecordConfirmedLink(ctx, legs[0], legs[1]); err != nil {
		return nil, "", err
	}
	return legs, transferID, nil
}

// MarkAsExternal records that the other leg of a transfer lives outside
// the tracked accounts. The transfer id stays nil and the transaction
// leaves the review inbox: externalizing implies dismissal.
func (m *Manager) MarkAsExternal(ctx context.Context, txID, label string) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if label == "" {
		return nil, errors.Validation(errors.CodeMissingField, "external transfer label is required")
	}

	var event *Event
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		t, err := m.mustGetTransaction(ctx, tx, txID)
		if err != nil {
			return err
		}
		if t.State() != models.StateTransferUnlinked {
			return errors.Validation(errors.CodeWrongState,
				fmt.Sprintf("transaction is %s, only unlinked transfers can be marked external", t.State()))
		}

		updated := t.Clone()
		updated.ExternalTransferLabel = &label
		updated.TransferInboxDismissed = true

		if err := tx.Transactions.Update(ctx, updated); err != nil {
			return errors.Persistence(errors.CodeSaveFailed, "mark_as_external", err)
		}
		event = &Event{Op: OpMarkedExternal, Transactions: []*models.Transaction{updated}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.WithFields(logger.Fields{"transaction": txID, "label": label}).Info("marked external")
	return event, nil
}

// CreateTrackingAccountAndLink synthesizes a counterpart for a transfer
// whose other side is not tracked: it creates (or reuses) a tracking-only
// account named after the label, inserts a counterpart transaction with
// the exactly opposite amount, and links the two legs.
func (m *Manager) CreateTrackingAccountAndLink(ctx context.Context, txID, label string) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if label == "" {
		return nil, errors.Validation(errors.CodeMissingField, "tracking account label is required")
	}

	var event *Event
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		t, err := m.mustGetTransaction(ctx, tx, txID)
		if err != nil {
			return err
		}
		if t.State() != models.StateTransferUnlinked {
			return errors.Validation(errors.CodeWrongState,
				fmt.Sprintf("transaction is %s, expected an unlinked transfer", t.State()))
		}

		account, err := tx.Accounts.GetTrackingByName(ctx, label)
		if err != nil {
			return errors.Persistence(errors.CodeQueryFailed, "get_tracking_account", err)
		}
		if account == nil {
			account = &models.Account{
				ID:             uuid.NewString(),
				Name:           label,
				IsTrackingOnly: true,
			}
			if err := tx.Accounts.Insert(ctx, account); err != nil {
				return errors.Persistence(errors.CodeSaveFailed, "create_tracking_account", err)
			}
		}
		if account.ID == t.AccountID {
			return errors.Validation(errors.CodeSelfTransfer, "tracking account matches the transaction's own account")
		}

		counterpart := &models.Transaction{
			ID:                     uuid.NewString(),
			AccountID:              account.ID,
			Date:                   t.Date,
			Payee:                  t.Payee,
			Amount:                 t.Amount.Neg(),
			Kind:                   models.KindTransfer,
			TransferInboxDismissed: true,
		}
		if err := tx.Transactions.Insert(ctx, counterpart); err != nil {
			return errors.Persistence(errors.CodeSaveFailed, "create_counterpart", err)
		}
		// The engine created this leg, so it applies the leg's balance
		// effect; imported legs arrive with their effect already applied.
		if err := tx.Accounts.AdjustBalance(ctx, account.ID, counterpart.Amount); err != nil {
			return errors.Persistence(errors.CodeSaveFailed, "adjust_tracking_balance", err)
		}
		account.Balance = account.Balance.Add(counterpart.Amount)

		legs, transferID, err := m.linkLegs(ctx, tx, t, counterpart)
		if err != nil {
			return err
		}
		event = &Event{
			Op:           OpTrackedAndLinked,
			TransferID:   transferID,
			Transactions: legs,
			Accounts:     []*models.Account{account},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.WithFields(logger.Fields{
		"transaction": txID,
		"label":       label,
		"transfer":    event.TransferID,
	}).Info("tracking account created and linked")
	return event, nil
}

// Unlink dissolves a linked transfer: both legs return to the unlinked
// state and the shared transfer id is cleared. Confirmed pattern history
// is not retracted.
func (m *Manager) Unlink(ctx context.Context, transferID string) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var event *Event
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		legs, err := m.mustGetTransferLegs(ctx, tx, transferID)
		if err != nil {
			return err
		}

		updated := make([]*models.Transaction, 0, len(legs))
		for _, leg := range legs {
			u := leg.Clone()
			u.TransferID = nil
			if err := tx.Transactions.Update(ctx, u); err != nil {
				return errors.Persistence(errors.CodeSaveFailed, "unlink", err)
			}
			updated = append(updated, u)
		}
		event = &Event{Op: OpUnlinked, TransferID: transferID, Transactions: updated}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.WithField("transfer", transferID).Info("transfer unlinked")
	return event, nil
}

// ConvertToStandard turns a never-linked transfer leg back into an
// uncategorized standard transaction.
func (m *Manager) ConvertToStandard(ctx context.Context, txID string) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var event *Event
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		t, err := m.mustGetTransaction(ctx, tx, txID)
		if err != nil {
			return err
		}
		if t.IsLinked() {
			return errors.Validation(errors.CodeAlreadyLinked, "linked transfers must be unlinked before converting")
		}
		if t.State() != models.StateTransferUnlinked {
			return errors.Validation(errors.CodeWrongState,
				fmt.Sprintf("transaction is %s, expected an unlinked transfer", t.State()))
		}

		updated := t.Clone()
		updated.Kind = models.KindStandard
		updated.CategoryID = nil
		updated.ExternalTransferLabel = nil
		updated.TransferInboxDismissed = false

		if err := tx.Transactions.Update(ctx, updated); err != nil {
			return errors.Persistence(errors.CodeSaveFailed, "convert_to_standard", err)
		}
		event = &Event{Op: OpConverted, Transactions: []*models.Transaction{updated}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.WithField("transaction", txID).Info("converted to standard")
	return event, nil
}

// DeleteTransfer deletes both legs of a linked transfer and reverses each
// leg's effect on its account balance, all in one committed transaction.
// Deleting one leg without the other is not a permitted outcome.
func (m *Manager) DeleteTransfer(ctx context.Context, transferID string) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var event *Event
	err := m.store.WithTx(ctx, func(tx *store.Tx) error {
		legs, err := m.mustGetTransferLegs(ctx, tx, transferID)
		if err != nil {
			return err
		}

		accounts := make([]*models.Account, 0, len(legs))
		for _, leg := range legs {
			account, err := tx.Accounts.Get(ctx, leg.AccountID)
			if err != nil {
				return errors.Persistence(errors.CodeQueryFailed, "get_account", err)
			}
			if account == nil {
				return errors.NotFound(errors.CodeAccountNotFound, "account", leg.AccountID)
			}
			account.Balance = account.Balance.Sub(leg.Amount)
			if err := tx.Accounts.UpdateBalance(ctx, account.ID, account.Balance); err != nil {
				return errors.Persistence(errors.CodeSaveFailed, "reverse_balance", err)
			}
			if err := tx.Transactions.Delete(ctx, leg.ID); err != nil {
				return errors.Persistence(errors.CodeSaveFailed, "delete_leg", err)
			}
			accounts = append(accounts, account)
		}
		event = &Event{Op: OpDeleted, TransferID: transferID, Transactions: legs, Accounts: accounts}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.WithField("transfer", transferID).Info("transfer deleted")
	return event, nil
}

func (m *Manager) mustGetTransaction(ctx context.Context, tx *store.Tx, id string) (*models.Transaction, error) {
	t, err := tx.Transactions.Get(ctx, id)
	if err != nil {
		return nil, errors.Persistence(errors.CodeQueryFailed, "get_transaction", err)
	}
	if t == nil {
		return nil, errors.NotFound(errors.CodeTransactionNotFound, "transaction", id)
	}
	return t, nil
}

func (m *Manager) mustGetTransferLegs(ctx context.Context, tx *store.Tx, transferID string) ([]*models.Transaction, error) {
	legs, err := tx.Transactions.GetByTransferID(ctx, transferID)
	if err != nil {
		return nil, errors.Persistence(errors.CodeQueryFailed, "get_transfer_legs", err)
	}
	if len(legs) == 0 {
		return nil, errors.NotFound(errors.CodeTransferNotFound, "transfer", transferID)
	}
	if len(legs) != 2 {
		return nil, errors.Internal(
			fmt.Sprintf("transfer %s has %d legs, expected exactly 2", transferID, len(legs)), nil)
	}
	return legs, nil
}
