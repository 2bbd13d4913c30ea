package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iammattholland/EscapeBudget-sub002/internal/linker"
	"github.com/iammattholland/EscapeBudget-sub002/internal/store"
)

var (
	externalLabel string
	trackLabel    string
)

// externalCmd records that the other side of a transfer is not tracked.
var externalCmd = &cobra.Command{
	Use:   "external <transaction-id>",
	Short: "Mark a transfer leg as going to an untracked destination",
	Long: `External records that the counterpart of this transfer lives outside the
tracked accounts, e.g. an employer payroll account or a closed bank.
The leg keeps its transfer flag, leaves the review inbox, and is never
offered as a link candidate again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(ctx context.Context, mgr *linker.Manager, st *store.Store) error {
			event, err := mgr.MarkAsExternal(ctx, args[0], externalLabel)
			if err != nil {
				return err
			}
			fmt.Printf("Marked %s as an external transfer (%s).\n", event.Transactions[0].ID, externalLabel)
			return nil
		})
	},
}

// trackCmd creates a tracking-only account and links the leg to a
// synthesized counterpart in it.
var trackCmd = &cobra.Command{
	Use:   "track <transaction-id>",
	Short: "Create a tracking account and link the transfer into it",
	Long: `Track handles transfers into accounts you want to see a balance for but
do not import transactions from, e.g. a savings pot at another bank. It
creates (or reuses) a tracking-only account named after the label,
synthesizes the counterpart transaction in it, and links the two legs.

Example:
  transferctl track tx-123 --label "Holiday savings"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(ctx context.Context, mgr *linker.Manager, st *store.Store) error {
			event, err := mgr.CreateTrackingAccountAndLink(ctx, args[0], trackLabel)
			if err != nil {
				return err
			}
			account := event.Accounts[0]
			fmt.Printf("Linked %s into tracking account %q as transfer %s.\n", args[0], account.Name, event.TransferID)
			fmt.Printf("  %s balance is now %s\n", account.Name, account.Balance.StringFixed(2))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(externalCmd)
	rootCmd.AddCommand(trackCmd)

	externalCmd.Flags().StringVarP(&externalLabel, "label", "l", "", "name of the external destination (required)")
	externalCmd.MarkFlagRequired("label")

	trackCmd.Flags().StringVarP(&trackLabel, "label", "l", "", "name of the tracking account (required)")
	trackCmd.MarkFlagRequired("label")
}
