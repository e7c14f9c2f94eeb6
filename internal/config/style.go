package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"statuscomms/internal/incident"
)

// StyleFile is the optional YAML file holding the style guide and judgment weights.
type StyleFile struct {
	Style   incident.StyleGuide
	Weights map[incident.Dimension]float64
}

type styleFileYAML struct {
	Tone            []string           `yaml:"tone"`
	MustContain     []string           `yaml:"must_contain"`
	MustExclude     []string           `yaml:"must_exclude"`
	UpdateFrequency string             `yaml:"update_frequency"`
	Examples        map[string]string  `yaml:"examples"`
	Weights         map[string]float64 `yaml:"weights"`
}

// DefaultStyleFile is the built-in style guide with equal dimension weights.
func DefaultStyleFile() StyleFile {
	return StyleFile{Style: incident.DefaultStyleGuide(), Weights: EqualWeights()}
}

// EqualWeights weights every judgment dimension the same.
func EqualWeights() map[incident.Dimension]float64 {
	w := make(map[incident.Dimension]float64, len(incident.Dimensions))
	for _, d := range incident.Dimensions {
		w[d] = 1
	}
	return w
}

// LoadStyleFile reads path. An empty path or a missing file yields the defaults.
// Sections left out of the file keep their default values.
func LoadStyleFile(path string) (StyleFile, error) {
	out := DefaultStyleFile()
	if strings.TrimSpace(path) == "" {
		return out, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return StyleFile{}, fmt.Errorf("read style file: %w", err)
	}
	var raw styleFileYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return StyleFile{}, fmt.Errorf("parse style file: %w", err)
	}

	if len(raw.Tone) > 0 {
		out.Style.Tone = raw.Tone
	}
	if len(raw.MustContain) > 0 {
		out.Style.MustContain = raw.MustContain
	}
	if len(raw.MustExclude) > 0 {
		out.Style.MustExclude = raw.MustExclude
	}
	if v := strings.TrimSpace(raw.UpdateFrequency); v != "" {
		out.Style.UpdateFrequency = v
	}
	for name, example := range raw.Examples {
		p, err := incident.ParsePhase(name)
		if err != nil {
			return StyleFile{}, fmt.Errorf("style file examples: %w", err)
		}
		out.Style.Examples[p] = strings.TrimSpace(example)
	}
	if len(raw.Weights) > 0 {
		w, err := parseWeights(raw.Weights)
		if err != nil {
			return StyleFile{}, err
		}
		out.Weights = w
	}
	return out, nil
}

func parseWeights(raw map[string]float64) (map[incident.Dimension]float64, error) {
	w := EqualWeights()
	var sum float64
	for name, v := range raw {
		d := incident.Dimension(strings.TrimSpace(name))
		if _, ok := w[d]; !ok {
			return nil, fmt.Errorf("style file weights: unknown dimension %q", name)
		}
		if v < 0 {
			return nil, fmt.Errorf("style file weights: %s must be non-negative", name)
		}
		w[d] = v
	}
	for _, v := range w {
		sum += v
	}
	if sum <= 0 {
		return nil, fmt.Errorf("style file weights: at least one weight must be positive")
	}
	return w, nil
}
