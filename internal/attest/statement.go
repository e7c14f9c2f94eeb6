package attest

import (
	"crypto/sha256"
	"fmt"
	"math"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"

	"statuscomms/internal/attest/capzk"
	"statuscomms/internal/incident"
)

// commitmentDomain separates report commitments from any other Poseidon use.
// Bump it when the input ordering changes.
const commitmentDomain = 20261016

// Statement is the attested view of one graded draft.
type Statement struct {
	Digest       [32]byte
	Statuses     [capzk.NumChecks]uint64
	RawPercent   uint64
	FinalPercent uint64
	Capped       bool
	Level        uint64
}

// NewStatement derives the statement from a draft and its report. Check
// statuses follow incident.CheckOrder (0 pass, 1 warning, 2 fail).
func NewStatement(d incident.GeneratedDraft, r incident.EvaluationReport) Statement {
	s := Statement{
		Digest:       sha256.Sum256([]byte(d.Title + "\n" + d.Message)),
		RawPercent:   percent(r.RawConfidenceScore),
		FinalPercent: percent(r.ConfidenceScore),
		Capped:       r.Capped,
		Level:        levelCode(r.ConfidenceLevel),
	}
	for i, name := range incident.CheckOrder {
		if i >= capzk.NumChecks {
			break
		}
		s.Statuses[i] = uint64(r.DeterministicChecks[name].Status.Rank())
	}
	return s
}

func percent(score float64) uint64 {
	p := math.Round(score * 100)
	switch {
	case p < 0:
		return 0
	case p > capzk.MaxPercent:
		return capzk.MaxPercent
	}
	return uint64(p)
}

func levelCode(l incident.ConfidenceLevel) uint64 {
	switch l {
	case incident.ConfidenceHigh:
		return 2
	case incident.ConfidenceMedium:
		return 1
	}
	return 0
}

// DigestLimbs splits the draft digest into two 128-bit field elements.
func (s Statement) DigestLimbs() (lo, hi *big.Int) {
	hi = new(big.Int).SetBytes(s.Digest[:16])
	lo = new(big.Int).SetBytes(s.Digest[16:])
	return lo, hi
}

// Commitment is Poseidon(domain, digestLo, digestHi, statuses..., raw) as 0x hex.
func (s Statement) Commitment() (string, error) {
	lo, hi := s.DigestLimbs()
	inputs := make([]*big.Int, 0, 4+capzk.NumChecks)
	inputs = append(inputs, big.NewInt(commitmentDomain), lo, hi)
	for _, st := range s.Statuses {
		inputs = append(inputs, new(big.Int).SetUint64(st))
	}
	inputs = append(inputs, new(big.Int).SetUint64(s.RawPercent))
	h, err := poseidon.Hash(inputs)
	if err != nil {
		return "", fmt.Errorf("poseidon commitment: %w", err)
	}
	return fmt.Sprintf("0x%064x", h), nil
}

// Witness is the circuit assignment for the statement.
func (s Statement) Witness() capzk.Witness {
	lo, hi := s.DigestLimbs()
	return capzk.Witness{
		DigestLo:     lo,
		DigestHi:     hi,
		Statuses:     s.Statuses,
		RawPercent:   s.RawPercent,
		FinalPercent: s.FinalPercent,
		Capped:       s.Capped,
		Level:        s.Level,
	}
}
