package techdetect

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fingerprint is one detection rule. A technology is reported when any of
// its probes (HTML markers, CSS selectors, response headers, or the meta
// generator tag) matches the fetched page.
type Fingerprint struct {
	Name          string            `yaml:"name"`
	Categories    []string          `yaml:"categories"`
	Confidence    int               `yaml:"confidence"`
	Vendor        string            `yaml:"vendor,omitempty"`
	HTML          []string          `yaml:"html,omitempty"`
	Selectors     []string          `yaml:"selectors,omitempty"`
	Headers       map[string]string `yaml:"headers,omitempty"`
	MetaGenerator string            `yaml:"meta_generator,omitempty"`
}

//go:embed fingerprints.yaml
var defaultFingerprintsYAML []byte

// DefaultFingerprints returns the built-in rule set.
func DefaultFingerprints() ([]Fingerprint, error) {
	return parseFingerprints(defaultFingerprintsYAML)
}

// LoadFingerprints reads a rule set from a YAML file, for deployments that
// maintain their own fingerprints.
func LoadFingerprints(path string) ([]Fingerprint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fingerprints %s: %w", path, err)
	}
	return parseFingerprints(raw)
}

func parseFingerprints(raw []byte) ([]Fingerprint, error) {
	var doc struct {
		Fingerprints []Fingerprint `yaml:"fingerprints"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse fingerprints: %w", err)
	}

	for i, f := range doc.Fingerprints {
		if f.Name == "" {
			return nil, fmt.Errorf("fingerprint %d has no name", i)
		}
		if f.Confidence <= 0 || f.Confidence > 100 {
			return nil, fmt.Errorf("fingerprint %q has confidence %d, want 1-100", f.Name, f.Confidence)
		}
	}
	return doc.Fingerprints, nil
}
