package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iammattholland/EscapeBudget-sub002/internal/linker"
	"github.com/iammattholland/EscapeBudget-sub002/internal/matcher"
	"github.com/iammattholland/EscapeBudget-sub002/internal/store"
	"github.com/iammattholland/EscapeBudget-sub002/pkg/errors"
	"github.com/iammattholland/EscapeBudget-sub002/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	dbPath  string
	profile string
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "transferctl",
	Short: "Transfer reconciliation tool",
	Long: `Transferctl manages inter-account transfers in a personal-finance
ledger. It finds likely counterparts for a transfer leg, scores them
against learned account-pair patterns, and maintains the link state of
every transfer in the database.

Examples:
  transferctl candidates tx-123 --window 30d
  transferctl link tx-123 tx-456
  transferctl external tx-123 --label "Vanguard brokerage"
  transferctl inbox`,
	Version: getVersionString(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "ledger.db", "path to the ledger database")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "default", "matching profile: default, strict, relaxed")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	// Read environment variables that match
	viper.SetEnvPrefix("TRANSFERCTL")
	viper.AutomaticEnv()

	level := logger.InfoLevel
	if viper.GetBool("verbose") {
		level = logger.DebugLevel
	}
	if log, err := logger.New(&logger.Config{Level: level, Format: logger.TextFormat}); err == nil {
		logger.SetGlobalLogger(log)
	}
}

// matchingConfigForProfile maps the --profile flag to a configuration.
func matchingConfigForProfile(name string) (*matcher.MatchingConfig, error) {
	switch name {
	case "", "default":
		return matcher.DefaultMatchingConfig(), nil
	case "strict":
		return matcher.StrictMatchingConfig(), nil
	case "relaxed":
		return matcher.RelaxedMatchingConfig(), nil
	default:
		return nil, errors.Configuration("profile", name, nil).
			WithSuggestion("use one of: default, strict, relaxed")
	}
}

// withManager opens the database, builds a link manager, runs fn, and
// closes everything down. Every subcommand funnels through here.
func withManager(fn func(ctx context.Context, mgr *linker.Manager, st *store.Store) error) error {
	config, err := matchingConfigForProfile(viper.GetString("profile"))
	if err != nil {
		return err
	}

	st, err := store.Open(viper.GetString("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	mgr, err := linker.NewManager(st, config)
	if err != nil {
		return err
	}

	return fn(context.Background(), mgr, st)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
