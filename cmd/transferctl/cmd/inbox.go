package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iammattholland/EscapeBudget-sub002/internal/linker"
	"github.com/iammattholland/EscapeBudget-sub002/internal/store"
)

// inboxCmd lists transfer legs still waiting for a decision.
var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List transfer legs awaiting review",
	Long: `Inbox lists transactions flagged as transfers that have not been linked,
marked external, or dismissed. Each one needs a decision: link it to a
counterpart, mark it external, or convert it back to a standard
transaction.`,
	Args: cobra.NoArgs,
	RunE: runInbox,
}

func init() {
	rootCmd.AddCommand(inboxCmd)
}

func runInbox(cmd *cobra.Command, args []string) error {
	return withManager(func(ctx context.Context, mgr *linker.Manager, st *store.Store) error {
		pending, err := mgr.PendingReview(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("Inbox is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tACCOUNT\tDATE\tAMOUNT\tPAYEE")
		for _, t := range pending {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				t.ID, t.AccountID, t.Date.Format("2006-01-02"), t.Amount.StringFixed(2), t.Payee)
		}
		return w.Flush()
	})
}
