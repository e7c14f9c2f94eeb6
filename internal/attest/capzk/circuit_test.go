package capzk

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/test"
)

func witnessFor(statuses [NumChecks]uint64, raw uint64) Witness {
	w := Witness{
		DigestLo:   big.NewInt(123456789),
		DigestHi:   big.NewInt(987654321),
		Statuses:   statuses,
		RawPercent: raw,
	}
	anyFail := false
	for _, s := range statuses {
		if s == 2 {
			anyFail = true
		}
	}
	w.FinalPercent = raw
	if anyFail && raw > CeilingPercent {
		w.Capped = true
		w.FinalPercent = CeilingPercent
	}
	switch {
	case w.FinalPercent >= HighPercent:
		w.Level = 2
	case w.FinalPercent >= MediumPercent:
		w.Level = 1
	}
	return w
}

func TestCapCircuitAcceptsHonestWitnesses(t *testing.T) {
	tests := []struct {
		name     string
		statuses [NumChecks]uint64
		raw      uint64
	}{
		{"all pass high", [NumChecks]uint64{0, 0, 0, 0, 0}, 92},
		{"warning medium", [NumChecks]uint64{0, 1, 0, 0, 1}, 65},
		{"fail capped", [NumChecks]uint64{2, 0, 0, 0, 0}, 100},
		{"fail under ceiling", [NumChecks]uint64{0, 0, 2, 0, 0}, 30},
		{"fail at ceiling", [NumChecks]uint64{0, 0, 0, 0, 2}, 50},
		{"degraded zero", [NumChecks]uint64{0, 0, 0, 0, 1}, 0},
	}
	for _, tc := range tests {
		w := witnessFor(tc.statuses, tc.raw)
		if err := test.IsSolved(&CapCircuit{}, w.assignment(), ecc.BN254.ScalarField()); err != nil {
			t.Fatalf("%s: expected witness to satisfy circuit: %v", tc.name, err)
		}
	}
}

func TestCapCircuitRejectsDishonestWitnesses(t *testing.T) {
	failed := witnessFor([NumChecks]uint64{2, 0, 0, 0, 0}, 100)

	uncapped := failed
	uncapped.Capped = false
	uncapped.FinalPercent = 100
	uncapped.Level = 2

	wrongLevel := witnessFor([NumChecks]uint64{0, 0, 0, 0, 0}, 70)
	wrongLevel.Level = 2

	badStatus := witnessFor([NumChecks]uint64{0, 0, 0, 0, 0}, 70)
	badStatus.Statuses[1] = 3

	badBinding := witnessFor([NumChecks]uint64{0, 0, 0, 0, 0}, 70)
	a := badBinding.assignment()
	a.Binding = 42

	for name, assignment := range map[string]*CapCircuit{
		"uncapped failure":    uncapped.assignment(),
		"wrong level":         wrongLevel.assignment(),
		"status out of range": badStatus.assignment(),
		"wrong binding":       a,
	} {
		if err := test.IsSolved(&CapCircuit{}, assignment, ecc.BN254.ScalarField()); err == nil {
			t.Fatalf("%s: expected circuit to reject witness", name)
		}
	}
}

func TestGroth16ProveVerify(t *testing.T) {
	p, err := Setup()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	w := witnessFor([NumChecks]uint64{2, 0, 0, 0, 0}, 100)
	proof, err := p.Prove(w)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	if err := p.Verify(proof, w.Public()); err != nil {
		t.Fatalf("verify: %v", err)
	}

	forged := w.Public()
	forged.FinalPercent = 100
	forged.Capped = false
	forged.Level = 2
	if err := p.Verify(proof, forged); err == nil {
		t.Fatalf("expected verification to fail for forged public values")
	}

	bad := w
	bad.Capped = false
	bad.FinalPercent = 100
	bad.Level = 2
	if _, err := p.Prove(bad); err == nil {
		t.Fatalf("expected proving to fail for an uncapped failing report")
	}
}
