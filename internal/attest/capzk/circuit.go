package capzk

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// NumChecks is the number of guardrail verdicts bound by the circuit.
const NumChecks = 5

// Score thresholds in percent.
const (
	CeilingPercent = 50
	HighPercent    = 80
	MediumPercent  = 60
	MaxPercent     = 100
)

// CapCircuit proves that a published confidence score was derived from the
// committed guardrail verdicts and judged score by the ceiling rule:
//
//	capped = any(status == fail) && raw > 50
//	final  = capped ? 50 : raw
//	level  = [final >= 80] + [final >= 60]
//
// Binding = MiMC(digestLo, digestHi, statuses..., raw) ties the private
// witness to one draft.
type CapCircuit struct {
	DigestLo   frontend.Variable
	DigestHi   frontend.Variable
	Statuses   [NumChecks]frontend.Variable
	RawPercent frontend.Variable

	FinalPercent frontend.Variable `gnark:",public"`
	Capped       frontend.Variable `gnark:",public"`
	Level        frontend.Variable `gnark:",public"`
	Binding      frontend.Variable `gnark:",public"`
}

func (c *CapCircuit) Define(api frontend.API) error {
	assertBoolean(api, c.Capped)
	assertIn012(api, c.Level)
	api.AssertIsLessOrEqual(c.RawPercent, MaxPercent)

	anyFail := frontend.Variable(0)
	for i := 0; i < NumChecks; i++ {
		assertIn012(api, c.Statuses[i])
		_, _, failed := indicators012(api, c.Statuses[i])
		anyFail = orBool(api, anyFail, failed)
	}

	over := isOne(api, api.Cmp(c.RawPercent, CeilingPercent))
	capped := api.Mul(anyFail, over)
	api.AssertIsEqual(c.Capped, capped)

	final := api.Add(c.RawPercent, api.Mul(capped, api.Sub(CeilingPercent, c.RawPercent)))
	api.AssertIsEqual(c.FinalPercent, final)

	level := api.Add(atLeast(api, final, HighPercent), atLeast(api, final, MediumPercent))
	api.AssertIsEqual(c.Level, level)

	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.DigestLo, c.DigestHi)
	for i := 0; i < NumChecks; i++ {
		h.Write(c.Statuses[i])
	}
	h.Write(c.RawPercent)
	api.AssertIsEqual(c.Binding, h.Sum())
	return nil
}

func assertBoolean(api frontend.API, x frontend.Variable) {
	api.AssertIsEqual(api.Mul(x, api.Sub(x, 1)), 0)
}

func assertIn012(api frontend.API, x frontend.Variable) {
	api.AssertIsEqual(api.Mul(x, api.Mul(api.Sub(x, 1), api.Sub(x, 2))), 0)
}

// indicators012 returns (eq0, eq1, eq2) for x constrained to {0,1,2}
// using the Lagrange basis over the three points.
func indicators012(api frontend.API, x frontend.Variable) (frontend.Variable, frontend.Variable, frontend.Variable) {
	inv2 := api.Inverse(2)
	eq0 := api.Mul(inv2, api.Mul(api.Sub(x, 1), api.Sub(x, 2)))
	eq1 := api.Neg(api.Mul(x, api.Sub(x, 2)))
	eq2 := api.Mul(inv2, api.Mul(x, api.Sub(x, 1)))
	api.AssertIsEqual(api.Add(eq0, eq1, eq2), 1)
	return eq0, eq1, eq2
}

// orBool expects boolean inputs.
func orBool(api frontend.API, a, b frontend.Variable) frontend.Variable {
	return api.Sub(api.Add(a, b), api.Mul(a, b))
}

func isOne(api frontend.API, x frontend.Variable) frontend.Variable {
	return api.IsZero(api.Sub(x, 1))
}

// atLeast returns 1 iff x >= bound.
func atLeast(api frontend.API, x frontend.Variable, bound int) frontend.Variable {
	return api.Sub(1, isOne(api, api.Cmp(bound, x)))
}
