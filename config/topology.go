package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/comalice/activechart"
)

// LoadTopology reads a state machine topology from a YAML file.
func LoadTopology(path string) (activechart.Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return activechart.Topology{}, fmt.Errorf("read topology: %w", err)
	}
	t, err := ParseTopology(data)
	if err != nil {
		return activechart.Topology{}, fmt.Errorf("topology %s: %w", path, err)
	}
	return t, nil
}

// ParseTopology decodes, indexes and validates a topology. Behaviour is
// referenced by name and bound later through an action runner and guard
// evaluator.
func ParseTopology(data []byte) (activechart.Topology, error) {
	var t activechart.Topology
	if err := yaml.Unmarshal(data, &t); err != nil {
		return activechart.Topology{}, fmt.Errorf("decode yaml: %w", err)
	}
	if err := t.Index(); err != nil {
		return activechart.Topology{}, err
	}
	if err := t.Validate(); err != nil {
		return activechart.Topology{}, err
	}
	return t, nil
}
