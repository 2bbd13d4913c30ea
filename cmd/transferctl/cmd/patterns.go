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

var patternsAll bool

// patternsCmd shows the learned account-pair transfer patterns.
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Show learned account-pair transfer patterns",
	Long: `Patterns lists the statistics learned from confirmed links: how often
each account pair transfers, the amount range seen, the typical day
offset between legs, and the confidence the engine has in the pair.
Reliable patterns boost candidate scores for their pair.`,
	Args: cobra.NoArgs,
	RunE: runPatterns,
}

func init() {
	rootCmd.AddCommand(patternsCmd)

	patternsCmd.Flags().BoolVarP(&patternsAll, "all", "a", false, "include patterns below the reliability threshold")
}

func runPatterns(cmd *cobra.Command, args []string) error {
	return withManager(func(ctx context.Context, mgr *linker.Manager, st *store.Store) error {
		list, err := st.Patterns.List(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PAIR\tLINKS\tCONFIDENCE\tAMOUNTS\tTYPICAL OFFSET\tRELIABLE")
		shown := 0
		for _, p := range list {
			if !patternsAll && !p.IsReliable() {
				continue
			}
			shown++
			fmt.Fprintf(w, "%s ~ %s\t%d\t%.2f\t%s to %s\t%dd\t%v\n",
				p.Pair.A, p.Pair.B,
				p.OccurrenceCount,
				p.Confidence,
				p.AmountMin.StringFixed(2), p.AmountMax.StringFixed(2),
				p.TypicalDayOffset(),
				p.IsReliable())
		}
		if shown == 0 {
			fmt.Println("No patterns learned yet. Link some transfers first.")
			return nil
		}
		return w.Flush()
	})
}
