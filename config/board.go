// Package config loads board configuration: the kernel sizing, the
// processor limits and the active objects to run, from a YAML file
// overlaid by ACTIVECHART_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/comalice/activechart"
	"github.com/comalice/activechart/kernel"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ACTIVECHART_"

// Board describes one run of the dispatcher.
type Board struct {
	Kernel           kernel.Config  `yaml:"kernel" envPrefix:"KERNEL_"`
	RegistryCapacity int            `yaml:"registry_capacity" env:"REGISTRY_CAPACITY"`
	QueueCapacity    int            `yaml:"queue_capacity" env:"QUEUE_CAPACITY"`
	LogLevel         string         `yaml:"log_level" env:"LOG_LEVEL"`
	MetricsAddr      string         `yaml:"metrics_addr" env:"METRICS_ADDR"`
	SnapshotDir      string         `yaml:"snapshot_dir" env:"SNAPSHOT_DIR"`
	Objects          []ObjectConfig `yaml:"objects"`
}

// ObjectConfig is one active object. A zero QueueCapacity takes the
// board's; -1 builds an object without a queue.
type ObjectConfig struct {
	Name          string `yaml:"name"`
	Topology      string `yaml:"topology"`
	QueueCapacity int    `yaml:"queue_capacity"`
}

// Load reads the board at path, applies environment overrides and
// defaults, and validates the result. Relative topology paths are resolved
// against the board file's directory.
func Load(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read board: %w", err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("board %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i := range b.Objects {
		if t := b.Objects[i].Topology; t != "" && !filepath.IsAbs(t) {
			b.Objects[i].Topology = filepath.Join(dir, t)
		}
	}
	return b, nil
}

// Parse decodes a board from YAML and applies environment overrides and
// defaults.
func Parse(data []byte) (*Board, error) {
	var b Board
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := env.ParseWithOptions(&b, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	b.applyDefaults()
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b *Board) applyDefaults() {
	if b.RegistryCapacity == 0 {
		b.RegistryCapacity = activechart.DefaultRegistryCapacity
	}
	if b.QueueCapacity == 0 {
		b.QueueCapacity = activechart.DefaultQueueCapacity
	}
	if b.LogLevel == "" {
		b.LogLevel = "info"
	}
	for i := range b.Objects {
		switch b.Objects[i].QueueCapacity {
		case 0:
			b.Objects[i].QueueCapacity = b.QueueCapacity
		case -1:
			b.Objects[i].QueueCapacity = 0
		}
	}
}

// Validate checks limits and object names.
func (b *Board) Validate() error {
	var errs []error
	if b.RegistryCapacity < 1 || b.RegistryCapacity >= int(activechart.NoObject) {
		errs = append(errs, fmt.Errorf("registry_capacity %d out of range", b.RegistryCapacity))
	}
	if b.QueueCapacity < 0 {
		errs = append(errs, fmt.Errorf("queue_capacity %d is negative", b.QueueCapacity))
	}
	if _, err := SlogLevel(b.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(b.Objects) > b.RegistryCapacity {
		errs = append(errs, fmt.Errorf("%d objects exceed registry_capacity %d", len(b.Objects), b.RegistryCapacity))
	}
	seen := make(map[string]bool, len(b.Objects))
	for i, o := range b.Objects {
		switch {
		case strings.TrimSpace(o.Name) == "":
			errs = append(errs, fmt.Errorf("object %d has no name", i))
		case seen[o.Name]:
			errs = append(errs, fmt.Errorf("duplicate object %q", o.Name))
		}
		seen[o.Name] = true
		if o.Topology == "" {
			errs = append(errs, fmt.Errorf("object %q has no topology", o.Name))
		}
		if o.QueueCapacity < 0 {
			errs = append(errs, fmt.Errorf("object %q: queue_capacity %d is negative", o.Name, o.QueueCapacity))
		}
	}
	return errors.Join(errs...)
}

// SlogLevel maps a level name to its slog.Level.
func SlogLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
