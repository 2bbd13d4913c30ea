// Package models defines the core ledger records the transfer engine
// operates on: transactions, accounts, and learned transfer patterns.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind classifies how a transaction participates in budgeting.
type TransactionKind string

const (
	// KindStandard is a regular categorized or uncategorized transaction.
	KindStandard TransactionKind = "standard"
	// KindTransfer marks one leg of a money movement between accounts.
	KindTransfer TransactionKind = "transfer"
	// KindIgnored transactions are excluded from budgets and matching.
	KindIgnored TransactionKind = "ignored"
)

// IsValid checks if the kind is one of the known values.
func (k TransactionKind) IsValid() bool {
	return k == KindStandard || k == KindTransfer || k == KindIgnored
}

// TransferState is the derived state-machine position of a transaction.
type TransferState string

const (
	StateStandard         TransferState = "standard"
	StateTransferUnlinked TransferState = "transfer_unlinked"
	StateTransferLinked   TransferState = "transfer_linked"
	StateTransferExternal TransferState = "transfer_external"
	StateIgnored          TransferState = "ignored"
)

// Transaction is a single ledger entry. Signed Amount uses exact decimal
// arithmetic; a negative amount is money leaving the account.
//
// Invariants maintained by the engine:
//   - Kind == KindTransfer implies CategoryID == nil
//   - TransferID != nil implies Kind == KindTransfer
//   - ExternalTransferLabel != nil implies TransferID == nil
type Transaction struct {
	ID                     string          `json:"id"`
	AccountID              string          `json:"account_id"`
	Date                   time.Time       `json:"date"`
	Payee                  string          `json:"payee"`
	Amount                 decimal.Decimal `json:"amount"`
	Kind                   TransactionKind `json:"kind"`
	CategoryID             *string         `json:"category_id,omitempty"`
	TransferID             *string         `json:"transfer_id,omitempty"`
	ExternalTransferLabel  *string         `json:"external_transfer_label,omitempty"`
	TransferInboxDismissed bool            `json:"transfer_inbox_dismissed"`
}

// State derives the transfer state-machine position from the record fields.
func (t *Transaction) State() TransferState {
	switch t.Kind {
	case KindIgnored:
		return StateIgnored
	case KindTransfer:
		if t.TransferID != nil {
			return StateTransferLinked
		}
		if t.ExternalTransferLabel != nil {
			return StateTransferExternal
		}
		return StateTransferUnlinked
	default:
		return StateStandard
	}
}

// IsLinked reports whether the transaction is one leg of a linked transfer.
func (t *Transaction) IsLinked() bool {
	return t.TransferID != nil
}

// Validate checks structural validity and the transfer invariants.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("transaction id cannot be empty")
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return fmt.Errorf("transaction account id cannot be empty")
	}
	if t.Date.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}
	if !t.Kind.IsValid() {
		return fmt.Errorf("invalid transaction kind: %s", t.Kind)
	}
	if t.Kind == KindTransfer && t.CategoryID != nil {
		return fmt.Errorf("transfer transaction cannot carry a category")
	}
	if t.TransferID != nil && t.Kind != KindTransfer {
		return fmt.Errorf("transaction with transfer id must have transfer kind")
	}
	if t.ExternalTransferLabel != nil && t.TransferID != nil {
		return fmt.Errorf("external transfer label and transfer id are mutually exclusive")
	}
	return nil
}

// Clone returns a deep copy. Transitions mutate copies so a failed commit
// never leaves a half-updated record visible.
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.CategoryID = clonePtr(t.CategoryID)
	c.TransferID = clonePtr(t.TransferID)
	c.ExternalTransferLabel = clonePtr(t.ExternalTransferLabel)
	return &c
}

// String returns a compact representation for logs.
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{ID: %s, Account: %s, Amount: %s, Date: %s, State: %s}",
		t.ID, t.AccountID, t.Amount.String(), t.Date.Format("2006-01-02"), t.State())
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Account is a ledger account with a running balance. Tracking-only
// accounts are synthetic counterparties created for external transfers.
type Account struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Balance        decimal.Decimal `json:"balance"`
	IsTrackingOnly bool            `json:"is_tracking_only"`
}

// Validate checks structural validity.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("account id cannot be empty")
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	return nil
}

// String returns a compact representation for logs.
func (a *Account) String() string {
	return fmt.Sprintf("Account{ID: %s, Name: %s, Balance: %s}", a.ID, a.Name, a.Balance.String())
}

// SameDay reports whether two timestamps fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

// DaysBetween returns the absolute whole-day difference between two dates,
// ignoring the time-of-day component.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	diff := da.Sub(db)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}
