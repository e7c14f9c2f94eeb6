package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"statuscomms/internal/incident"
	"statuscomms/internal/pipeline"
)

var draftFlags struct {
	phase       string
	pagerduty   string
	logs        string
	metrics     string
	deployments string
	chat        string
	json        bool
}

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Run the pipeline once on local source files",
	Long: `Reads incident material from files, drafts a status update for the given
phase, and prints the draft with its evaluation.

Each source flag takes a file path. JSON files are passed as structured
payloads; anything else is passed as plain text. Sources left out are
treated as unavailable.

Usage:
  statuscomms draft --phase Investigating --pagerduty alert.json --logs app.log
  statuscomms draft --phase Resolved --chat thread.txt --json`,
	Args: cobra.NoArgs,
	RunE: runDraft,
}

func init() {
	f := draftCmd.Flags()
	f.StringVar(&draftFlags.phase, "phase", "", "Incident phase: Investigating, Identified, Monitoring or Resolved")
	f.StringVar(&draftFlags.pagerduty, "pagerduty", "", "Path to the paging alert")
	f.StringVar(&draftFlags.logs, "logs", "", "Path to application logs")
	f.StringVar(&draftFlags.metrics, "metrics", "", "Path to a metrics summary")
	f.StringVar(&draftFlags.deployments, "deployments", "", "Path to recent deployments")
	f.StringVar(&draftFlags.chat, "chat", "", "Path to the incident chat thread")
	f.BoolVar(&draftFlags.json, "json", false, "Print the full result as JSON")
	_ = draftCmd.MarkFlagRequired("phase")
}

func runDraft(cmd *cobra.Command, _ []string) error {
	phase, err := incident.ParsePhase(draftFlags.phase)
	if err != nil {
		return err
	}
	sources, err := readSources(map[incident.SourceKind]string{
		incident.SourcePagerDuty:   draftFlags.pagerduty,
		incident.SourceLogs:        draftFlags.logs,
		incident.SourceMetrics:     draftFlags.metrics,
		incident.SourceDeployments: draftFlags.deployments,
		incident.SourceChatThread:  draftFlags.chat,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.pipeline.Run(ctx, sources, phase)
	if err != nil {
		return fmt.Errorf("%s: %w", incident.Classify(err), err)
	}
	if draftFlags.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

// readSources loads each non-empty path in a fixed kind order.
func readSources(paths map[incident.SourceKind]string) ([]incident.RawSource, error) {
	var out []incident.RawSource
	for _, kind := range incident.SourceKinds {
		path := paths[kind]
		if path == "" {
			continue
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s source: %w", kind, err)
		}
		if json.Valid(b) {
			out = append(out, incident.RawSource{Kind: kind, Payload: json.RawMessage(b)})
			continue
		}
		out = append(out, incident.TextSource(kind, string(b)))
	}
	return out, nil
}

func printResult(w io.Writer, res pipeline.Result) {
	r := res.Report
	fmt.Fprintf(w, "%s\n\n%s\n\n", res.Draft.Title, res.Draft.Message)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	if r.JudgmentSkipped {
		fmt.Fprintf(w, "Confidence: judgment skipped\n")
	} else {
		fmt.Fprintf(w, "Confidence: %.2f (%s)", r.ConfidenceScore, r.ConfidenceLevel)
		if r.Capped {
			fmt.Fprintf(w, ", capped from %.2f", r.RawConfidenceScore)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Checks: %s (%d pass, %d warning, %d fail)\n", r.OverallStatus, r.PassedChecks, r.WarningChecks, r.FailedChecks)
	if res.Draft.Templated {
		fmt.Fprintln(w, "Evidence was sparse; a conservative template was used.")
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "  ! %s\n", warning)
	}
	for _, s := range r.Suggestions {
		fmt.Fprintf(w, "  > %s\n", s)
	}
	fmt.Fprintf(w, "Run: %s\n", res.RunID)
}
