// Package config handles weft.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/weft/value"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "weft.toml"

// Defaults applied after loading.
const (
	DefaultMaxDepth  = 512
	DefaultStatePath = ".weft/state.db"
	DefaultAddr      = "localhost:8420"
)

// Config represents a weft.toml configuration.
type Config struct {
	Runtime   Runtime   `toml:"runtime"`
	Hashtable Hashtable `toml:"hashtable"`
	State     State     `toml:"state"`
	Server    Server    `toml:"server"`
	Log       Log       `toml:"log"`

	// Dir is the directory containing the weft.toml file (set at load time).
	Dir string `toml:"-"`
}

// Runtime configures the interpreter.
type Runtime struct {
	MaxDepth int    `toml:"max_depth"`
	Root     string `toml:"root"`
}

// Hashtable tunes the load factors of map storage.
type Hashtable struct {
	GrowThreshold float64 `toml:"grow_threshold"`
	PostGrowLoad  float64 `toml:"post_grow_load"`
}

// State configures the snapshot store.
type State struct {
	Path string `toml:"path"`
}

// Server configures the network surfaces.
type Server struct {
	Addr string `toml:"addr"`
	LSP  bool   `toml:"lsp"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no weft.toml exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load parses a weft.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return c, nil
}

// Parse decodes configuration text and applies defaults.
func Parse(text string) (*Config, error) {
	var c Config
	md, err := toml.Decode(text, &c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s", undecoded[0])
	}
	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find a weft.toml file,
// then loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (c *Config) applyDefaults() {
	if c.Runtime.MaxDepth <= 0 {
		c.Runtime.MaxDepth = DefaultMaxDepth
	}
	if c.Hashtable.GrowThreshold <= 0 || c.Hashtable.GrowThreshold >= 1 {
		c.Hashtable.GrowThreshold = value.DefaultGrowThreshold
	}
	if c.Hashtable.PostGrowLoad <= 0 || c.Hashtable.PostGrowLoad >= c.Hashtable.GrowThreshold {
		c.Hashtable.PostGrowLoad = value.DefaultPostGrowLoad
	}
	if c.State.Path == "" {
		c.State.Path = DefaultStatePath
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
}

// Resolve returns path relative to the configuration directory.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.Dir == "" {
		return path
	}
	return filepath.Join(c.Dir, path)
}

// StatePath returns the resolved snapshot database path.
func (c *Config) StatePath() string {
	return c.Resolve(c.State.Path)
}

// ScriptRoot returns the directory scripts are loaded from.
func (c *Config) ScriptRoot() string {
	if c.Runtime.Root == "" {
		return c.Dir
	}
	return c.Resolve(c.Runtime.Root)
}

// HashtableOptions converts the [hashtable] section.
func (c *Config) HashtableOptions() value.HashtableOptions {
	return value.HashtableOptions{
		GrowThreshold: c.Hashtable.GrowThreshold,
		PostGrowLoad:  c.Hashtable.PostGrowLoad,
	}
}

// Apply installs the process-wide settings of c: map storage load factors.
func (c *Config) Apply() {
	value.SetDefaultHashtableOptions(c.HashtableOptions())
}
