// Package capzk holds the Groth16 circuit for the guardrail ceiling rule.
package capzk

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// Witness is the full assignment for one report.
type Witness struct {
	DigestLo     *big.Int
	DigestHi     *big.Int
	Statuses     [NumChecks]uint64
	RawPercent   uint64
	FinalPercent uint64
	Capped       bool
	Level        uint64
}

// Public is the verifier's view of a proof.
type Public struct {
	FinalPercent uint64
	Capped       bool
	Level        uint64
	Binding      *big.Int
}

// Binding computes MiMC over the private witness the same way the circuit does.
func (w Witness) Binding() *big.Int {
	h := mimc.NewMiMC()
	write := func(v *big.Int) {
		var e fr.Element
		e.SetBigInt(v)
		b := e.Bytes()
		_, _ = h.Write(b[:])
	}
	write(w.DigestLo)
	write(w.DigestHi)
	for _, s := range w.Statuses {
		write(new(big.Int).SetUint64(s))
	}
	write(new(big.Int).SetUint64(w.RawPercent))
	return new(big.Int).SetBytes(h.Sum(nil))
}

func (w Witness) Public() Public {
	return Public{FinalPercent: w.FinalPercent, Capped: w.Capped, Level: w.Level, Binding: w.Binding()}
}

func (w Witness) assignment() *CapCircuit {
	a := &CapCircuit{
		DigestLo:     w.DigestLo,
		DigestHi:     w.DigestHi,
		RawPercent:   w.RawPercent,
		FinalPercent: w.FinalPercent,
		Capped:       boolVar(w.Capped),
		Level:        w.Level,
		Binding:      w.Binding(),
	}
	for i, s := range w.Statuses {
		a.Statuses[i] = s
	}
	return a
}

func (p Public) assignment() *CapCircuit {
	a := &CapCircuit{
		FinalPercent: p.FinalPercent,
		Capped:       boolVar(p.Capped),
		Level:        p.Level,
		Binding:      p.Binding,
	}
	return a
}

func boolVar(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Prover holds a compiled circuit and process-local Groth16 keys.
type Prover struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// Setup compiles the circuit and runs a fresh Groth16 setup. Proofs only
// verify against keys from the same setup.
func Setup() (*Prover, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &CapCircuit{})
	if err != nil {
		return nil, fmt.Errorf("compile cap circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}
	return &Prover{ccs: ccs, pk: pk, vk: vk}, nil
}

// Prove returns the serialized proof for w.
func (p *Prover) Prove(w Witness) ([]byte, error) {
	full, err := frontend.NewWitness(w.assignment(), ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("build witness: %w", err)
	}
	proof, err := groth16.Prove(p.ccs, p.pk, full)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode proof: %w", err)
	}
	return buf.Bytes(), nil
}

// Verify checks a serialized proof against the public values.
func (p *Prover) Verify(raw []byte, pub Public) error {
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("decode proof: %w", err)
	}
	public, err := frontend.NewWitness(pub.assignment(), ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("build public witness: %w", err)
	}
	return groth16.Verify(proof, p.vk, public)
}
