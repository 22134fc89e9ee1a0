package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vddb.yaml")
	yaml := `
data_dir: /tmp/vddb-data
workers: 4
default_compression: rle
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/vddb-data", cfg.DataDir)
	require.Equal(t, 4, cfg.Workers)
	require.Equal(t, "rle", cfg.DefaultCompression)

	// Unset keys fall back to defaults.
	require.Equal(t, 128, cfg.ColumnCache)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
