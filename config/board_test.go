package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/activechart"
)

const boardYAML = `
kernel:
  max_tasks: 4
  mailbox_depth: 8
  pool_bytes: 512
registry_capacity: 4
queue_capacity: 6
log_level: debug
metrics_addr: ":9100"
objects:
  - name: blinky
    topology: blinky.yaml
  - name: button
    topology: /abs/button.yaml
    queue_capacity: 2
  - name: bulk
    topology: bulk.yaml
    queue_capacity: -1
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBoard(t *testing.T) {
	dir := t.TempDir()
	b, err := Load(writeFile(t, dir, "board.yaml", boardYAML))
	require.NoError(t, err)

	assert.Equal(t, 4, b.Kernel.MaxTasks)
	assert.Equal(t, 8, b.Kernel.MailboxDepth)
	assert.Equal(t, 512, b.Kernel.PoolBytes)
	assert.Equal(t, 4, b.RegistryCapacity)
	assert.Equal(t, "debug", b.LogLevel)
	assert.Equal(t, ":9100", b.MetricsAddr)

	require.Len(t, b.Objects, 3)
	assert.Equal(t, filepath.Join(dir, "blinky.yaml"), b.Objects[0].Topology)
	assert.Equal(t, 6, b.Objects[0].QueueCapacity, "inherits the board default")
	assert.Equal(t, "/abs/button.yaml", b.Objects[1].Topology)
	assert.Equal(t, 2, b.Objects[1].QueueCapacity)
	assert.Equal(t, 0, b.Objects[2].QueueCapacity, "-1 means no queue")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("ACTIVECHART_KERNEL_POOL_BYTES", "4096")
	t.Setenv("ACTIVECHART_QUEUE_CAPACITY", "3")
	t.Setenv("ACTIVECHART_LOG_LEVEL", "warn")
	t.Setenv("ACTIVECHART_SNAPSHOT_DIR", "/var/lib/aodemo")

	b, err := Parse([]byte(boardYAML))
	require.NoError(t, err)
	assert.Equal(t, 4096, b.Kernel.PoolBytes)
	assert.Equal(t, 8, b.Kernel.MailboxDepth, "unset variables keep the file value")
	assert.Equal(t, 3, b.QueueCapacity)
	assert.Equal(t, 3, b.Objects[0].QueueCapacity)
	assert.Equal(t, "warn", b.LogLevel)
	assert.Equal(t, "/var/lib/aodemo", b.SnapshotDir)
}

func TestEnvironmentParseError(t *testing.T) {
	t.Setenv("ACTIVECHART_REGISTRY_CAPACITY", "many")
	_, err := Parse([]byte(boardYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestDefaults(t *testing.T) {
	b, err := Parse([]byte("objects: [{name: a, topology: a.yaml}]"))
	require.NoError(t, err)
	assert.Equal(t, activechart.DefaultRegistryCapacity, b.RegistryCapacity)
	assert.Equal(t, activechart.DefaultQueueCapacity, b.QueueCapacity)
	assert.Equal(t, "info", b.LogLevel)
	assert.Equal(t, activechart.DefaultQueueCapacity, b.Objects[0].QueueCapacity)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty board", "{}", ""},
		{"missing name", "objects: [{topology: a.yaml}]", "has no name"},
		{"duplicate name", "objects: [{name: a, topology: a.yaml}, {name: a, topology: b.yaml}]", `duplicate object "a"`},
		{"missing topology", "objects: [{name: a}]", "has no topology"},
		{"bad queue", "objects: [{name: a, topology: a.yaml, queue_capacity: -2}]", "is negative"},
		{"bad level", "log_level: loud", "log_level"},
		{"registry too big", "registry_capacity: 70000", "out of range"},
		{"too many objects", "registry_capacity: 1\nobjects: [{name: a, topology: a}, {name: b, topology: b}]", "exceed registry_capacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSlogLevel(t *testing.T) {
	level, err := SlogLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = SlogLevel("error")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, level)

	_, err = SlogLevel("chatty")
	assert.Error(t, err)
}
