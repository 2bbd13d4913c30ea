package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/iammattholland/EscapeBudget-sub002/pkg/errors"
	"github.com/iammattholland/EscapeBudget-sub002/pkg/logger"
)

// CLIErrorHandler turns engine errors into user-friendly terminal output
// and exit codes.
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints err for the user and returns the process exit code.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if engineErr, ok := errors.AsEngineError(err); ok {
		return h.handleEngineError(engineErr)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func (h *CLIErrorHandler) handleEngineError(err *errors.EngineError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.UserMessage())

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "Suggestion: %s\n", err.Suggestion)
	}

	if h.verbose {
		fmt.Fprintf(os.Stderr, "\nCategory: %s\nCode: %s\n", err.Category, err.Code)
		if len(err.Context) > 0 {
			fmt.Fprintf(os.Stderr, "Context:\n")
			for key, value := range err.Context {
				fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
			}
		}
		if err.Cause != nil {
			fmt.Fprintf(os.Stderr, "Underlying error: %v\n", err.Cause)
		}
	}

	return exitCodeFor(err.Category)
}

func exitCodeFor(category errors.Category) int {
	switch category {
	case errors.CategoryValidation:
		return 2
	case errors.CategoryNotFound:
		return 3
	case errors.CategoryConfiguration:
		return 4
	case errors.CategoryPersistence:
		return 5
	default:
		return 1
	}
}
