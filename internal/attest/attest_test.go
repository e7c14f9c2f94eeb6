package attest

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"statuscomms/internal/incident"
)

func sampleDraft() incident.GeneratedDraft {
	return incident.GeneratedDraft{
		Title:   "Investigating slower API response times",
		Status:  incident.PhaseInvestigating,
		Message: "We are investigating reports of slower than normal response times.",
	}
}

func report(final, raw float64, level incident.ConfidenceLevel, capped bool, failing ...incident.CheckName) incident.EvaluationReport {
	checks := incident.DeterministicChecks{}
	for _, name := range incident.CheckOrder {
		checks[name] = incident.CheckResult{Status: incident.StatusPass}
	}
	for _, name := range failing {
		checks[name] = incident.CheckResult{Status: incident.StatusFail}
	}
	return incident.EvaluationReport{
		DeterministicChecks: checks,
		RawConfidenceScore:  raw,
		ConfidenceScore:     final,
		ConfidenceLevel:     level,
		Capped:              capped,
	}
}

func TestStatementFromReport(t *testing.T) {
	r := report(0.5, 0.97, incident.ConfidenceLow, true, incident.CheckLength)
	r.DeterministicChecks[incident.CheckEvidenceGrounding] = incident.CheckResult{Status: incident.StatusWarning}
	st := NewStatement(sampleDraft(), r)

	want := Statement{
		Digest:       st.Digest,
		Statuses:     [5]uint64{2, 0, 0, 0, 1},
		RawPercent:   97,
		FinalPercent: 50,
		Capped:       true,
		Level:        0,
	}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Fatalf("statement mismatch (-want +got):\n%s", diff)
	}
}

func TestCommitmentIsDeterministicAndBinding(t *testing.T) {
	r := report(0.86, 0.86, incident.ConfidenceHigh, false)
	a, err := NewStatement(sampleDraft(), r).Commitment()
	if err != nil {
		t.Fatalf("commitment: %v", err)
	}
	b, err := NewStatement(sampleDraft(), r).Commitment()
	if err != nil {
		t.Fatalf("commitment: %v", err)
	}
	if a != b {
		t.Fatalf("commitment not deterministic: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "0x") || len(a) != 66 {
		t.Fatalf("unexpected commitment format %q", a)
	}

	edited := sampleDraft()
	edited.Message += " Thank you."
	c, err := NewStatement(edited, r).Commitment()
	if err != nil {
		t.Fatalf("commitment: %v", err)
	}
	if c == a {
		t.Fatalf("commitment must change when the message changes")
	}

	rescored := report(0.86, 0.87, incident.ConfidenceHigh, false)
	d, err := NewStatement(sampleDraft(), rescored).Commitment()
	if err != nil {
		t.Fatalf("commitment: %v", err)
	}
	if d == a {
		t.Fatalf("commitment must change when the raw score changes")
	}
}

func TestPublicInputsCodec(t *testing.T) {
	pi := PublicInputs{FinalPercent: 50, Capped: true, Level: 0, Commitment: "0xabcdef"}
	enc, err := EncodePublicInputs(pi)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := string(enc); got != "statuscomms_public_inputs_v1|fs=50|cap=1|lvl=0|c=0xabcdef" {
		t.Fatalf("unexpected encoding %q", got)
	}
	dec, err := DecodePublicInputs(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(pi, dec); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	bad := []string{
		"other_public_inputs_v1|fs=50|cap=1|lvl=0|c=0xab",
		"statuscomms_public_inputs_v1|fs=101|cap=1|lvl=0|c=0xab",
		"statuscomms_public_inputs_v1|fs=50|cap=2|lvl=0|c=0xab",
		"statuscomms_public_inputs_v1|fs=50|cap=1|lvl=3|c=0xab",
		"statuscomms_public_inputs_v1|fs=50|cap=1|lvl=0|c=abc",
		"statuscomms_public_inputs_v1|fs=50|cap=1|lvl=0",
		"statuscomms_public_inputs_v1|fs=50|fs=51|cap=1|lvl=0|c=0xab",
		"statuscomms_public_inputs_v1|fs=50|cap=1|lvl=0|c=0xab|x=1",
	}
	for _, in := range bad {
		if _, err := DecodePublicInputs([]byte(in)); err == nil {
			t.Fatalf("expected decode error for %q", in)
		}
	}
}

func TestStubAttestAndVerify(t *testing.T) {
	a, err := New("", nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	att, err := a.Attest(sampleDraft(), report(0.5, 0.97, incident.ConfidenceLow, true, incident.CheckLength))
	if err != nil {
		t.Fatalf("attest: %v", err)
	}
	if !att.Verified || att.Mode != ModeStub {
		t.Fatalf("unexpected attestation %+v", att)
	}
	ok, reason, err := a.Verify(att.ProofB64, att.PublicInputsB64)
	if err != nil || !ok {
		t.Fatalf("expected verification, got ok=%v reason=%s err=%v", ok, reason, err)
	}

	forged := base64.StdEncoding.EncodeToString([]byte("statuscomms_public_inputs_v1|fs=97|cap=0|lvl=2|c=" + att.Commitment))
	ok, reason, err = a.Verify(att.ProofB64, forged)
	if err != nil || ok {
		t.Fatalf("forged public inputs must not verify: ok=%v reason=%s err=%v", ok, reason, err)
	}

	inconsistent := base64.StdEncoding.EncodeToString([]byte("statuscomms_public_inputs_v1|fs=70|cap=1|lvl=1|c=" + att.Commitment))
	if ok, reason, _ := a.Verify(att.ProofB64, inconsistent); ok || reason != "public inputs are inconsistent" {
		t.Fatalf("expected inconsistency, got ok=%v reason=%s", ok, reason)
	}

	if _, _, err := a.Verify("%%%", att.PublicInputsB64); err == nil {
		t.Fatalf("expected encoding error")
	}
	if _, _, err := a.Verify("", ""); err == nil {
		t.Fatalf("expected missing input error")
	}
}

func TestNewRejectsUnknownMode(t *testing.T) {
	if _, err := New("plonk", nil); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestGroth16AttestAndVerify(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup is slow")
	}
	a, err := New(ModeGroth16, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	att, err := a.Attest(sampleDraft(), report(0.5, 0.97, incident.ConfidenceLow, true, incident.CheckLength))
	if err != nil {
		t.Fatalf("attest: %v", err)
	}
	if !att.Verified || att.System != "groth16" {
		t.Fatalf("unexpected attestation %+v", att)
	}

	stub, err := New(ModeStub, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if ok, _, _ := stub.Verify(att.ProofB64, att.PublicInputsB64); ok {
		t.Fatalf("stub attester must not accept groth16 proofs")
	}

	pub, _ := base64.StdEncoding.DecodeString(att.PublicInputsB64)
	tampered := strings.Replace(string(pub), "fs=50|cap=1|lvl=0", "fs=97|cap=0|lvl=2", 1)
	if ok, _, _ := a.Verify(att.ProofB64, base64.StdEncoding.EncodeToString([]byte(tampered))); ok {
		t.Fatalf("tampered public inputs must not verify")
	}
}
