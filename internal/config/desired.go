package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/melih-ucgun/calswitch/internal/core"
)

// DesiredFile is the document read by plan and apply.
type DesiredFile struct {
	Toggles []core.DesiredToggle `yaml:"toggles"`
}

// LoadDesired reads and validates a desired-state file.
func LoadDesired(path string) ([]core.DesiredToggle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read desired state: %w", err)
	}
	return ParseDesired(data)
}

// ParseDesired decodes a desired-state document. Kinds are normalized and
// duplicate toggles rejected.
func ParseDesired(data []byte) ([]core.DesiredToggle, error) {
	var doc DesiredFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yaml parse error: %w", err)
	}

	seen := make(map[string]int, len(doc.Toggles))
	for i := range doc.Toggles {
		d := &doc.Toggles[i]
		kind, err := core.ParseKind(string(d.Kind))
		if err != nil {
			return nil, fmt.Errorf("toggle #%d: %w", i+1, err)
		}
		d.Kind = kind
		if err := d.Toggle.Validate(); err != nil {
			return nil, fmt.Errorf("toggle #%d: %w", i+1, err)
		}
		if prev, dup := seen[d.Key()]; dup {
			return nil, fmt.Errorf("toggle #%d duplicates #%d (%s)", i+1, prev, d.Key())
		}
		seen[d.Key()] = i + 1
	}
	return doc.Toggles, nil
}
