package attest

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const publicInputsPrefix = "statuscomms_public_inputs_v1|"

// PublicInputs is the verifier-visible part of an attestation.
// Format (UTF-8 bytes):
//
//	statuscomms_public_inputs_v1|fs=<0..100>|cap=<0|1>|lvl=<0..2>|c=<0x commitment>[|b=<0x binding>]
//
// The b field carries the circuit binding and is present only for Groth16 proofs.
type PublicInputs struct {
	FinalPercent int
	Capped       bool
	Level        int
	Commitment   string
	Binding      string
}

func EncodePublicInputs(pi PublicInputs) ([]byte, error) {
	if pi.FinalPercent < 0 || pi.FinalPercent > 100 {
		return nil, fmt.Errorf("final score must be 0..100")
	}
	if pi.Level < 0 || pi.Level > 2 {
		return nil, fmt.Errorf("level must be 0..2")
	}
	if err := checkHex(pi.Commitment); err != nil {
		return nil, fmt.Errorf("commitment: %w", err)
	}
	cp := 0
	if pi.Capped {
		cp = 1
	}
	payload := fmt.Sprintf("%sfs=%d|cap=%d|lvl=%d|c=%s", publicInputsPrefix, pi.FinalPercent, cp, pi.Level, pi.Commitment)
	if pi.Binding != "" {
		if err := checkHex(pi.Binding); err != nil {
			return nil, fmt.Errorf("binding: %w", err)
		}
		payload += "|b=" + pi.Binding
	}
	return []byte(payload), nil
}

func DecodePublicInputs(pub []byte) (PublicInputs, error) {
	s := string(pub)
	if !strings.HasPrefix(s, publicInputsPrefix) {
		return PublicInputs{}, fmt.Errorf("invalid public inputs prefix")
	}
	out := PublicInputs{}
	seen := map[string]bool{}
	for _, f := range strings.Split(strings.TrimPrefix(s, publicInputsPrefix), "|") {
		kv := strings.SplitN(f, "=", 2)
		if len(kv) != 2 {
			return PublicInputs{}, fmt.Errorf("invalid public inputs field")
		}
		if seen[kv[0]] {
			return PublicInputs{}, fmt.Errorf("duplicate public inputs field %q", kv[0])
		}
		seen[kv[0]] = true
		switch kv[0] {
		case "fs":
			v, err := strconv.Atoi(kv[1])
			if err != nil || v < 0 || v > 100 {
				return PublicInputs{}, fmt.Errorf("final score must be 0..100")
			}
			out.FinalPercent = v
		case "cap":
			switch kv[1] {
			case "0":
			case "1":
				out.Capped = true
			default:
				return PublicInputs{}, fmt.Errorf("cap must be 0 or 1")
			}
		case "lvl":
			v, err := strconv.Atoi(kv[1])
			if err != nil || v < 0 || v > 2 {
				return PublicInputs{}, fmt.Errorf("level must be 0..2")
			}
			out.Level = v
		case "c":
			if err := checkHex(kv[1]); err != nil {
				return PublicInputs{}, fmt.Errorf("commitment: %w", err)
			}
			out.Commitment = kv[1]
		case "b":
			if err := checkHex(kv[1]); err != nil {
				return PublicInputs{}, fmt.Errorf("binding: %w", err)
			}
			out.Binding = kv[1]
		default:
			return PublicInputs{}, fmt.Errorf("unknown public inputs field %q", kv[0])
		}
	}
	for _, k := range []string{"fs", "cap", "lvl", "c"} {
		if !seen[k] {
			return PublicInputs{}, fmt.Errorf("missing public inputs field %q", k)
		}
	}
	return out, nil
}

func checkHex(v string) error {
	if v == "" {
		return fmt.Errorf("required")
	}
	if !strings.HasPrefix(v, "0x") {
		return fmt.Errorf("must have 0x prefix")
	}
	if _, err := hex.DecodeString(strings.TrimPrefix(v, "0x")); err != nil {
		return fmt.Errorf("must be hex")
	}
	return nil
}
