package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for SatyaGyan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "satyagyan",
		Short: "AI-powered fact verification",
		Long: `SatyaGyan checks whether information is true.

It accepts a typed claim, a web page, a YouTube video or a PDF, Word or
text document. A research stage searches the web for evidence, an analysis
stage examines the content, and a verification stage weighs both and ends
with a verdict: TRUE, FALSE, PARTIALLY ACCURATE or INCONCLUSIVE.

API keys are read from the environment or a .env file:
  OPENAI_API_KEY   (default provider)
  GEMINI_API_KEY   (with --provider gemini)
  SERPER_API_KEY or TAVILY_API_KEY (web search, optional)`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewBatchCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context
// shared by every command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
