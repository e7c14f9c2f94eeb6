package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"statuscomms/internal/incident"
	"statuscomms/internal/pipeline"
)

func TestReadSources(t *testing.T) {
	dir := t.TempDir()
	alert := filepath.Join(dir, "alert.json")
	logs := filepath.Join(dir, "app.log")
	if err := os.WriteFile(alert, []byte(`{"incident":{"title":"High latency"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(logs, []byte("ERROR timeout connecting to db\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := readSources(map[incident.SourceKind]string{
		incident.SourceLogs:      logs,
		incident.SourcePagerDuty: alert,
	})
	if err != nil {
		t.Fatalf("readSources: %v", err)
	}
	if len(got) != 2 || got[0].Kind != incident.SourcePagerDuty || got[1].Kind != incident.SourceLogs {
		t.Fatalf("unexpected sources %+v", got)
	}
	if got[1].Text() != "ERROR timeout connecting to db" {
		t.Fatalf("log text not preserved: %q", got[1].Text())
	}
	if !strings.Contains(got[0].Text(), `"title": "High latency"`) {
		t.Fatalf("JSON payload not preserved: %q", got[0].Text())
	}

	if _, err := readSources(map[incident.SourceKind]string{incident.SourceChatThread: filepath.Join(dir, "missing")}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, pipeline.Result{
		RunID: "run-1",
		Draft: incident.GeneratedDraft{Title: "Investigating API errors", Message: "We are investigating."},
		Report: incident.EvaluationReport{
			RawConfidenceScore: 0.9,
			ConfidenceScore:    0.5,
			ConfidenceLevel:    incident.ConfidenceLow,
			Capped:             true,
			OverallStatus:      incident.StatusFail,
			FailedChecks:       1,
			PassedChecks:       4,
			Warnings:           []string{"length: Message is too short"},
		},
	})
	out := buf.String()
	for _, want := range []string{"Investigating API errors", "0.50 (Low), capped from 0.90", "fail (4 pass, 0 warning, 1 fail)", "! length: Message is too short", "Run: run-1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
