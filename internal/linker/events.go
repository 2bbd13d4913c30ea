package linker

import (
	"github.com/iammattholland/EscapeBudget-sub002/internal/models"
)

// Op names a completed transition, reported on the Event returned to the
// caller. UI callbacks belong entirely outside the engine: callers switch
// on the event instead of registering closures with the manager.
type Op string

const (
	OpMarkedTransfer   Op = "marked_transfer"
	OpLinked           Op = "linked"
	OpMarkedExternal   Op = "marked_external"
	OpTrackedAndLinked Op = "tracked_and_linked"
	OpUnlinked         Op = "unlinked"
	OpConverted        Op = "converted"
	OpDeleted          Op = "deleted"
)

// Event describes the outcome of a successful transition: which operation
// ran and the records it touched, in their post-commit state. Deleted
// transactions are reported in their pre-delete state.
type Event struct {
	Op           Op
	TransferID   string
	Transactions []*models.Transaction
	Accounts     []*models.Account
}
