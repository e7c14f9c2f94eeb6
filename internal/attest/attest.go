// Package attest binds a graded draft to a commitment and a proof that the
// published confidence score obeys the guardrail ceiling.
package attest

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"statuscomms/internal/attest/capzk"
	"statuscomms/internal/incident"
	"statuscomms/internal/logging"
)

const (
	ModeStub    = "stub"
	ModeGroth16 = "groth16"

	stubProofPrefix    = "statuscomms_stub_proof_v1|"
	groth16ProofPrefix = "statuscomms_groth16_proof_v1|"
)

// Attestation is returned alongside every pipeline result.
type Attestation struct {
	Mode            string `json:"mode"`
	System          string `json:"system"`
	Curve           string `json:"curve,omitempty"`
	Commitment      string `json:"commitment"`
	ProofB64        string `json:"proof_b64"`
	PublicInputsB64 string `json:"public_inputs_b64"`
	Verified        bool   `json:"verified"`
}

// Attester produces and checks attestations. Groth16 keys are created on
// first use and live for the process. Safe for concurrent use.
type Attester struct {
	mode   string
	logger *slog.Logger

	once     sync.Once
	prover   *capzk.Prover
	setupErr error
}

func New(mode string, logger *slog.Logger) (*Attester, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = ModeStub
	}
	if mode != ModeStub && mode != ModeGroth16 {
		return nil, fmt.Errorf("unknown attestation mode %q (expected stub or groth16)", mode)
	}
	if logger == nil {
		logger = logging.New("attest")
	}
	return &Attester{mode: mode, logger: logger}, nil
}

func (a *Attester) Mode() string { return a.mode }

func (a *Attester) groth16() (*capzk.Prover, error) {
	a.once.Do(func() {
		a.logger.Info("running groth16 setup for cap circuit")
		a.prover, a.setupErr = capzk.Setup()
	})
	return a.prover, a.setupErr
}

// Attest commits to the draft and report and proves the published score.
func (a *Attester) Attest(d incident.GeneratedDraft, r incident.EvaluationReport) (Attestation, error) {
	st := NewStatement(d, r)
	commitment, err := st.Commitment()
	if err != nil {
		return Attestation{}, err
	}
	pi := PublicInputs{
		FinalPercent: int(st.FinalPercent),
		Capped:       st.Capped,
		Level:        int(st.Level),
		Commitment:   commitment,
	}

	out := Attestation{Mode: a.mode, Commitment: commitment}
	var proofRaw []byte
	switch a.mode {
	case ModeGroth16:
		prover, err := a.groth16()
		if err != nil {
			return Attestation{}, err
		}
		w := st.Witness()
		pi.Binding = fmt.Sprintf("0x%064x", w.Binding())
		proof, err := prover.Prove(w)
		if err != nil {
			return Attestation{}, fmt.Errorf("attest report: %w", err)
		}
		proofRaw = append([]byte(groth16ProofPrefix), proof...)
		out.System, out.Curve = "groth16", "bn254"
	default:
		out.System = "sha256-stub"
	}

	pub, err := EncodePublicInputs(pi)
	if err != nil {
		return Attestation{}, err
	}
	if proofRaw == nil {
		proofRaw = []byte(stubProofPrefix + hexDigest(pub))
	}
	out.ProofB64 = base64.StdEncoding.EncodeToString(proofRaw)
	out.PublicInputsB64 = base64.StdEncoding.EncodeToString(pub)

	ok, reason, err := a.Verify(out.ProofB64, out.PublicInputsB64)
	if err != nil {
		return Attestation{}, err
	}
	if !ok {
		return Attestation{}, fmt.Errorf("self-verification failed: %s", reason)
	}
	out.Verified = true
	return out, nil
}

// Verify checks a proof against its public inputs. The error is non-nil only
// for malformed input; a well-formed proof that does not verify returns false
// with a reason.
func (a *Attester) Verify(proofB64, publicInputsB64 string) (bool, string, error) {
	if proofB64 == "" || publicInputsB64 == "" {
		return false, "missing proof or public inputs", fmt.Errorf("missing proof or public inputs")
	}
	proofRaw, err := base64.StdEncoding.DecodeString(proofB64)
	if err != nil {
		return false, "invalid proof encoding", fmt.Errorf("invalid proof encoding")
	}
	pub, err := base64.StdEncoding.DecodeString(publicInputsB64)
	if err != nil {
		return false, "invalid public inputs encoding", fmt.Errorf("invalid public inputs encoding")
	}
	pi, err := DecodePublicInputs(pub)
	if err != nil {
		return false, "invalid public inputs format", nil
	}
	if pi.Level != levelForPercent(pi.FinalPercent) || (pi.Capped && pi.FinalPercent != capzk.CeilingPercent) {
		return false, "public inputs are inconsistent", nil
	}

	switch {
	case strings.HasPrefix(string(proofRaw), stubProofPrefix):
		if stubProofPrefix+hexDigest(pub) != string(proofRaw) {
			return false, "proof does not match public inputs", nil
		}
		return true, "stub verifier", nil
	case strings.HasPrefix(string(proofRaw), groth16ProofPrefix):
		if a.mode != ModeGroth16 {
			return false, "groth16 verification is not enabled on this server", nil
		}
		binding, ok := new(big.Int).SetString(strings.TrimPrefix(pi.Binding, "0x"), 16)
		if !ok {
			return false, "groth16 proof requires a binding", nil
		}
		prover, err := a.groth16()
		if err != nil {
			return false, "groth16 setup failed", err
		}
		err = prover.Verify(proofRaw[len(groth16ProofPrefix):], capzk.Public{
			FinalPercent: uint64(pi.FinalPercent),
			Capped:       pi.Capped,
			Level:        uint64(pi.Level),
			Binding:      binding,
		})
		if err != nil {
			return false, "groth16 proof rejected", nil
		}
		return true, "groth16 verifier", nil
	}
	return false, "invalid proof format", nil
}

func levelForPercent(p int) int {
	switch {
	case p >= capzk.HighPercent:
		return 2
	case p >= capzk.MediumPercent:
		return 1
	}
	return 0
}

func hexDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
