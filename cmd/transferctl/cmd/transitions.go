package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iammattholland/EscapeBudget-sub002/internal/linker"
	"github.com/iammattholland/EscapeBudget-sub002/internal/store"
)

// markCmd flags a standard transaction as one leg of a transfer.
var markCmd = &cobra.Command{
	Use:   "mark <transaction-id>",
	Short: "Mark a standard transaction as a transfer leg",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(ctx context.Context, mgr *linker.Manager, st *store.Store) error {
			event, err := mgr.MarkAsTransfer(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Marked %s as a transfer. It is now in the review inbox.\n", event.Transactions[0].ID)
			return nil
		})
	},
}

// linkCmd links two unlinked transfer legs under one transfer id.
var linkCmd = &cobra.Command{
	Use:   "link <transaction-id> <counterpart-id>",
	Short: "Link two transfer legs together",
	Long: `Link joins two unlinked transfer legs into one transfer. The legs must
belong to different accounts and carry exactly opposite amounts. The
confirmation also updates the learned pattern for the account pair, so
future candidates between these accounts rank higher.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(ctx context.Context, mgr *linker.Manager, st *store.Store) error {
			event, err := mgr.LinkAsTransfer(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Linked %s and %s as transfer %s.\n", args[0], args[1], event.TransferID)
			return nil
		})
	},
}

// unlinkCmd dissolves a linked transfer back into two unlinked legs.
var unlinkCmd = &cobra.Command{
	Use:   "unlink <transfer-id>",
	Short: "Unlink a transfer back into two unlinked legs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(ctx context.Context, mgr *linker.Manager, st *store.Store) error {
			event, err := mgr.Unlink(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Unlinked transfer %s. Both legs returned to the review inbox.\n", event.TransferID)
			return nil
		})
	},
}

// convertCmd turns a never-linked transfer leg back into a standard transaction.
var convertCmd = &cobra.Command{
	Use:   "convert <transaction-id>",
	Short: "Convert an unlinked transfer leg back to a standard transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(ctx context.Context, mgr *linker.Manager, st *store.Store) error {
			event, err := mgr.ConvertToStandard(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Converted %s back to a standard transaction.\n", event.Transactions[0].ID)
			return nil
		})
	},
}

// deleteCmd removes both legs of a transfer and reverses their balance effects.
var deleteCmd = &cobra.Command{
	Use:   "delete <transfer-id>",
	Short: "Delete both legs of a transfer",
	Long: `Delete removes both legs of a linked transfer in one transaction and
reverses each leg's effect on its account balance. A transfer can never
lose just one leg.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(ctx context.Context, mgr *linker.Manager, st *store.Store) error {
			event, err := mgr.DeleteTransfer(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Deleted transfer %s (%d legs removed).\n", event.TransferID, len(event.Transactions))
			for _, a := range event.Accounts {
				fmt.Printf("  %s balance is now %s\n", a.Name, a.Balance.StringFixed(2))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(markCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(unlinkCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(deleteCmd)
}
