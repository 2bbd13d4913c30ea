package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iammattholland/EscapeBudget-sub002/internal/linker"
	"github.com/iammattholland/EscapeBudget-sub002/internal/matcher"
	"github.com/iammattholland/EscapeBudget-sub002/internal/store"
)

var (
	candidatesWindow string
	candidatesLimit  int
	candidatesJSON   bool
)

// candidatesCmd ranks possible counterparts for one transfer leg.
var candidatesCmd = &cobra.Command{
	Use:   "candidates <transaction-id>",
	Short: "Rank counterpart candidates for a transfer leg",
	Long: `Candidates searches other accounts for transactions that could be the
other side of the given transfer: exactly opposite amount, not yet
linked, within the search window. Results are ranked by a deterministic
score combining date proximity, learned account-pair patterns, and
payee similarity.

Examples:
  transferctl candidates tx-123
  transferctl candidates tx-123 --window 90d --limit 5
  transferctl candidates tx-123 --window all --json`,
	Args: cobra.ExactArgs(1),
	RunE: runCandidates,
}

func init() {
	rootCmd.AddCommand(candidatesCmd)

	candidatesCmd.Flags().StringVarP(&candidatesWindow, "window", "w", "30d", "search window: 7d, 30d, 90d, all, or a day count")
	candidatesCmd.Flags().IntVarP(&candidatesLimit, "limit", "n", 10, "maximum number of candidates to show")
	candidatesCmd.Flags().BoolVar(&candidatesJSON, "json", false, "emit candidates as JSON")
}

func runCandidates(cmd *cobra.Command, args []string) error {
	window, err := parseWindow(candidatesWindow)
	if err != nil {
		return err
	}

	return withManager(func(ctx context.Context, mgr *linker.Manager, st *store.Store) error {
		ranked, err := mgr.CandidateMatches(ctx, args[0], window, candidatesLimit)
		if err != nil {
			return err
		}

		if candidatesJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(ranked)
		}

		if len(ranked) == 0 {
			fmt.Println("No candidates found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCORE\tID\tACCOUNT\tDATE\tAMOUNT\tPAYEE\tNOTES")
		for _, c := range ranked {
			notes := make([]string, 0, 2)
			if mgr.AutoConfirmEligible(c.Score) {
				notes = append(notes, "auto-confirm")
			}
			if c.Features.HasHistoricalPattern {
				notes = append(notes, "known pair")
			}
			fmt.Fprintf(w, "%.1f\t%s\t%s\t%s\t%s\t%s\t%s\n",
				c.Score,
				c.Transaction.ID,
				c.Transaction.AccountID,
				c.Transaction.Date.Format("2006-01-02"),
				c.Transaction.Amount.StringFixed(2),
				c.Transaction.Payee,
				strings.Join(notes, ", "))
		}
		return w.Flush()
	})
}

// parseWindow accepts the named windows plus a bare day count like "14".
func parseWindow(s string) (matcher.SearchWindow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "0":
		return matcher.WindowAll, nil
	}
	trimmed := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "d")
	days, err := strconv.Atoi(trimmed)
	if err != nil || days < 0 {
		return matcher.SearchWindow{}, fmt.Errorf("invalid window %q: use 7d, 30d, 90d, all, or a day count", s)
	}
	return matcher.Window(days), nil
}
