// ABOUTME: Calibration manifest: enrollment sets and labelled verification trials
// ABOUTME: Loaded from YAML; sample paths are relative to the manifest file
package calibration

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest describes one calibration run
type Manifest struct {
	Name string `yaml:"name"`
	// Threshold overrides the configured threshold when set
	Threshold *float64  `yaml:"threshold,omitempty"`
	Speakers  []Speaker `yaml:"speakers"`
	Trials    []Trial   `yaml:"trials"`
}

// Speaker is an enrollment set
type Speaker struct {
	ID     string   `yaml:"id"`
	Enroll []string `yaml:"enroll"`
}

// Trial verifies Sample against Speaker. Genuine is true when the sample
// really was spoken by Speaker.
type Trial struct {
	Speaker string `yaml:"speaker"`
	Sample  string `yaml:"sample"`
	Genuine bool   `yaml:"genuine"`
}

// LoadManifest reads and validates a YAML manifest, resolving relative
// sample paths against the manifest's directory
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Name == "" {
		m.Name = filepath.Base(path)
	}

	base := filepath.Dir(path)
	for i := range m.Speakers {
		for j, ref := range m.Speakers[i].Enroll {
			m.Speakers[i].Enroll[j] = resolve(base, ref)
		}
	}
	for i := range m.Trials {
		m.Trials[i].Sample = resolve(base, m.Trials[i].Sample)
	}

	return &m, m.Validate()
}

// Validate checks that every trial targets a declared speaker and that
// both genuine and impostor trials exist
func (m *Manifest) Validate() error {
	if len(m.Speakers) == 0 {
		return fmt.Errorf("manifest %q declares no speakers", m.Name)
	}

	known := make(map[string]bool, len(m.Speakers))
	for _, s := range m.Speakers {
		if s.ID == "" {
			return fmt.Errorf("manifest %q has a speaker without an id", m.Name)
		}
		if known[s.ID] {
			return fmt.Errorf("speaker %q is declared twice", s.ID)
		}
		if len(s.Enroll) == 0 {
			return fmt.Errorf("speaker %q has no enrollment samples", s.ID)
		}
		known[s.ID] = true
	}

	var genuine, impostor int
	for i, t := range m.Trials {
		if !known[t.Speaker] {
			return fmt.Errorf("trial %d targets undeclared speaker %q", i+1, t.Speaker)
		}
		if t.Sample == "" {
			return fmt.Errorf("trial %d has no sample", i+1)
		}
		if t.Genuine {
			genuine++
		} else {
			impostor++
		}
	}
	if genuine == 0 || impostor == 0 {
		return fmt.Errorf("manifest needs genuine and impostor trials, got %d genuine and %d impostor", genuine, impostor)
	}

	if m.Threshold != nil && (*m.Threshold < -1 || *m.Threshold > 1) {
		return fmt.Errorf("threshold must be within [-1, 1], got %f", *m.Threshold)
	}
	return nil
}

func resolve(base, ref string) string {
	if ref == "" || filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(base, ref)
}
