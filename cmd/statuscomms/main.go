// statuscomms turns raw incident material into a graded customer status update.
//
// Usage:
//
//	statuscomms serve
//	statuscomms draft --phase Investigating --pagerduty alert.json --logs app.log [--json]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"statuscomms/internal/config"
	"statuscomms/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "statuscomms",
	Short: "Draft and grade customer-facing incident status updates",
	Long: `statuscomms extracts provenance-tagged evidence from incident sources,
drafts a phase-appropriate status update, and grades it with deterministic
guardrails plus a model-based judgment.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		_ = config.Load() // .env is optional
		logging.Init(logging.Options{Level: config.LogLevel(), Format: config.LogFormat()})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
