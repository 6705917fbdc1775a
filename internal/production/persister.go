// Package production provides integrations around the engine: snapshot
// persistence, transition publishing and visualization.
package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/comalice/activechart/internal/core"
)

// FilePersister stores one snapshot file per object name in a directory.
type FilePersister struct {
	dir       string
	ext       string
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

// NewJSONPersister creates a JSON FilePersister, ensuring the directory exists.
func NewJSONPersister(dir string) (*FilePersister, error) {
	return newFilePersister(dir, ".json", func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}, json.Unmarshal)
}

// NewYAMLPersister creates a YAML FilePersister, ensuring the directory exists.
func NewYAMLPersister(dir string) (*FilePersister, error) {
	return newFilePersister(dir, ".yaml", yaml.Marshal, yaml.Unmarshal)
}

func newFilePersister(dir, ext string, marshal func(any) ([]byte, error), unmarshal func([]byte, any) error) (*FilePersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &FilePersister{dir: dir, ext: ext, marshal: marshal, unmarshal: unmarshal}, nil
}

func (p *FilePersister) path(key string) string {
	return filepath.Join(p.dir, key+p.ext)
}

// Save writes the snapshot under its Name, replacing any earlier one.
func (p *FilePersister) Save(ctx context.Context, snapshot core.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snapshot.Name == "" {
		return errors.New("snapshot has no name")
	}
	data, err := p.marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", snapshot.Name, err)
	}

	fn := p.path(snapshot.Name)
	tmp := fn + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, fn); err != nil {
		return fmt.Errorf("rename %s: %w", fn, err)
	}
	return nil
}

// Load reads the snapshot saved under key. A missing file wraps
// os.ErrNotExist.
func (p *FilePersister) Load(ctx context.Context, key string) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, err
	}
	fn := p.path(key)
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.Snapshot{}, fmt.Errorf("snapshot %q: %w", key, os.ErrNotExist)
		}
		return core.Snapshot{}, fmt.Errorf("read %s: %w", fn, err)
	}

	var snapshot core.Snapshot
	if err := p.unmarshal(data, &snapshot); err != nil {
		return core.Snapshot{}, fmt.Errorf("unmarshal %s: %w", fn, err)
	}
	snapshot.Name = key
	return snapshot, nil
}
