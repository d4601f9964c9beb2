// Package stage holds the stage catalogue and runs a stage's rules in order.
package stage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/c4rb0nx1/dockgrade/internal/check"
)

// ErrUnknownStage is returned by Find when no stage has the requested number.
var ErrUnknownStage = errors.New("unknown stage")

// Stage is an ordered list of rules graded together.
type Stage struct {
	Number      int          `yaml:"number"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Rules       []check.Rule `yaml:"rules"`
}

// NeedsDockerfile reports whether any rule reads the learner's Dockerfile.
func (s Stage) NeedsDockerfile() bool {
	for _, rule := range s.Rules {
		if rule.Kind.NeedsDockerfile() {
			return true
		}
	}
	return false
}

type catalogueFile struct {
	Stages []Stage `yaml:"stages"`
}

// Load returns the catalogue at path, or the built-in catalogue when path is empty.
func Load(path string) ([]Stage, error) {
	if path == "" {
		return Builtin(), nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates a YAML stage catalogue.
func LoadFile(path string) ([]Stage, error) {
	// #nosec G304 - user-selected catalogue file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stage catalogue: %w", err)
	}

	stages, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid stage catalogue %s: %w", path, err)
	}
	return stages, nil
}

// Parse decodes and validates a YAML stage catalogue. Unknown fields are rejected.
func Parse(data []byte) ([]Stage, error) {
	var file catalogueFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}

	if err := Validate(file.Stages); err != nil {
		return nil, err
	}

	sort.SliceStable(file.Stages, func(i, j int) bool {
		return file.Stages[i].Number < file.Stages[j].Number
	})
	return file.Stages, nil
}

// Marshal encodes stages in the format Parse reads.
func Marshal(stages []Stage) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(catalogueFile{Stages: stages}); err != nil {
		return nil, fmt.Errorf("failed to encode stage catalogue: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode stage catalogue: %w", err)
	}
	return buf.Bytes(), nil
}

// Validate checks stage numbering and every rule.
func Validate(stages []Stage) error {
	if len(stages) == 0 {
		return errors.New("no stages defined")
	}

	seen := make(map[int]struct{}, len(stages))
	for _, st := range stages {
		if st.Number <= 0 {
			return fmt.Errorf("stage %q: number must be positive, got %d", st.Name, st.Number)
		}
		if _, dup := seen[st.Number]; dup {
			return fmt.Errorf("stage number %d is defined more than once", st.Number)
		}
		seen[st.Number] = struct{}{}

		if len(st.Rules) == 0 {
			return fmt.Errorf("stage %d has no rules", st.Number)
		}
		for _, rule := range st.Rules {
			if err := rule.Validate(); err != nil {
				return fmt.Errorf("stage %d: %w", st.Number, err)
			}
		}
	}
	return nil
}

// Find returns the stage with the given number.
func Find(stages []Stage, number int) (Stage, error) {
	for _, st := range stages {
		if st.Number == number {
			return st, nil
		}
	}
	return Stage{}, fmt.Errorf("%w %d", ErrUnknownStage, number)
}
