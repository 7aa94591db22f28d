package sstconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(err)
	require.Equal(Default(), cfg)
}

func TestLoadOverlaysOntoDefaults(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "sstutil.json")
	const body = `{
		// sstutil config
		"max_open_tables": 8,
		"verbose": true,
	}`
	require.NoError(os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(err)
	require.Equal(8, cfg.MaxOpenTables)
	require.True(cfg.Verbose)
	require.Equal(Default().MergeBufSize, cfg.MergeBufSize)
	require.Equal(Default().ValueCodec, cfg.ValueCodec)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(os.WriteFile(path, []byte(`{not valid`), 0644))

	_, err := Load(path)
	require.Error(err)
}
