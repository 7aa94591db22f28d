// sstconfig.go -- JSON-with-comments config for the sstutil CLI
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.

// Package sstconfig loads sstutil's on-disk configuration: a small
// JSONC file merged over built-in defaults, itself overridable by CLI
// flags.
package sstconfig

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Config holds sstutil's tunable defaults.
type Config struct {
	// MergeBufSize is a buffer size in bytes for merge output. It is
	// loaded and overlaid like the other fields, but no sstutil command
	// reads it: merge output is accumulated in memory by sstfile.Writer.
	MergeBufSize int `json:"merge_buf_size,omitempty"`

	// MaxOpenTables bounds how many input table file descriptors
	// sstutil merge keeps open at once; with more inputs than this it
	// merges them in batches of this size and merges the batch outputs
	// again. It must be at least 2.
	MaxOpenTables int `json:"max_open_tables,omitempty"`

	// ValueCodec names the codec sstutil build/merge uses for record
	// values: "void" (keys only) or "bytes" (raw length-prefixed
	// values).
	ValueCodec string `json:"value_codec,omitempty"`

	// Verbose is set by the config file or the -v flag. No sstutil
	// command reads it, so it does not change what sstutil prints.
	Verbose bool `json:"verbose,omitempty"`
}

// Default returns sstutil's built-in configuration.
func Default() Config {
	return Config{
		MergeBufSize:  64 * 1024,
		MaxOpenTables: 64,
		ValueCodec:    "bytes",
		Verbose:       false,
	}
}

// Load reads a JSONC config file at path and overlays it onto
// Default(). A missing file is not an error: Load returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("sstconfig: read %s: %w", path, err)
	}

	std, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("sstconfig: %s: invalid JSONC: %w", path, err)
	}

	var overlay Config
	if err := json.Unmarshal(std, &overlay); err != nil {
		return Config{}, fmt.Errorf("sstconfig: %s: invalid JSON: %w", path, err)
	}

	merge(&cfg, overlay)
	return cfg, nil
}

func merge(base *Config, overlay Config) {
	if overlay.MergeBufSize != 0 {
		base.MergeBufSize = overlay.MergeBufSize
	}
	if overlay.MaxOpenTables != 0 {
		base.MaxOpenTables = overlay.MaxOpenTables
	}
	if overlay.ValueCodec != "" {
		base.ValueCodec = overlay.ValueCodec
	}
	if overlay.Verbose {
		base.Verbose = true
	}
}
