// Package manifest loads the optional tarnish.toml run configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultFileName is the manifest file looked up next to a script.
const DefaultFileName = "tarnish.toml"

// Manifest carries VM and tooling options for a run. Zero values mean "use
// the built-in default".
type Manifest struct {
	// Trace dumps each executed instruction and the stack to stderr.
	Trace bool `toml:"trace"`

	// Disasm dumps compiled chunks before execution.
	Disasm bool `toml:"disasm"`

	GC    GCConfig    `toml:"gc"`
	Cache CacheConfig `toml:"cache"`

	// Dir is the directory the manifest was loaded from.
	Dir string `toml:"-"`
}

// GCConfig tunes the collector.
type GCConfig struct {
	// Stress collects on every allocation.
	Stress bool `toml:"stress"`

	// Log emits a debug line per collection cycle.
	Log bool `toml:"log"`

	// InitialThreshold is the allocation tally, in bytes, that triggers
	// the first collection. Zero keeps the built-in 1 MiB.
	InitialThreshold int `toml:"initial_threshold"`
}

// CacheConfig controls the compiled-script cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns a manifest with built-in settings.
func Default() *Manifest {
	return &Manifest{}
}

// Load reads a manifest from path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return &m, nil
}

// LoadNear looks for tarnish.toml in the given directory, returning the
// default manifest when none exists.
func LoadNear(dir string) (*Manifest, error) {
	path := filepath.Join(dir, DefaultFileName)
	m, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return m, err
}

// CachePath resolves the cache database location: the configured path,
// relative to the manifest directory when not absolute, or a .tarnish
// directory beside the manifest.
func (m *Manifest) CachePath() string {
	path := m.Cache.Path
	if path == "" {
		path = filepath.Join(".tarnish", "cache.db")
	}
	if !filepath.IsAbs(path) && m.Dir != "" {
		path = filepath.Join(m.Dir, path)
	}
	return path
}
