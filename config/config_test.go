package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/weft/value"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[runtime]
max_depth = 64
root = "scripts"

[hashtable]
grow_threshold = 0.9
post_grow_load = 0.5

[state]
path = "data/state.db"

[server]
addr = ":9000"
lsp = true

[log]
verbosity = 2
file = "weft.log"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.Runtime.MaxDepth != 64 {
		t.Errorf("max_depth = %d, want 64", c.Runtime.MaxDepth)
	}
	if c.Hashtable.GrowThreshold != 0.9 {
		t.Errorf("grow_threshold = %v, want 0.9", c.Hashtable.GrowThreshold)
	}
	if c.Hashtable.PostGrowLoad != 0.5 {
		t.Errorf("post_grow_load = %v, want 0.5", c.Hashtable.PostGrowLoad)
	}
	if c.Server.Addr != ":9000" {
		t.Errorf("addr = %q, want :9000", c.Server.Addr)
	}
	if !c.Server.LSP {
		t.Error("lsp = false, want true")
	}
	if c.Log.Verbosity != 2 || c.Log.File != "weft.log" {
		t.Errorf("log = %+v, want verbosity 2 file weft.log", c.Log)
	}
	if got, want := c.StatePath(), filepath.Join(c.Dir, "data", "state.db"); got != want {
		t.Errorf("StatePath() = %q, want %q", got, want)
	}
	if got, want := c.ScriptRoot(), filepath.Join(c.Dir, "scripts"); got != want {
		t.Errorf("ScriptRoot() = %q, want %q", got, want)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[server]\nlsp = true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Runtime.MaxDepth != DefaultMaxDepth {
		t.Errorf("max_depth = %d, want %d", c.Runtime.MaxDepth, DefaultMaxDepth)
	}
	if c.Hashtable.GrowThreshold != value.DefaultGrowThreshold {
		t.Errorf("grow_threshold = %v, want %v", c.Hashtable.GrowThreshold, value.DefaultGrowThreshold)
	}
	if c.Hashtable.PostGrowLoad != value.DefaultPostGrowLoad {
		t.Errorf("post_grow_load = %v, want %v", c.Hashtable.PostGrowLoad, value.DefaultPostGrowLoad)
	}
	if c.State.Path != DefaultStatePath {
		t.Errorf("state path = %q, want %q", c.State.Path, DefaultStatePath)
	}
	if c.Server.Addr != DefaultAddr {
		t.Errorf("addr = %q, want %q", c.Server.Addr, DefaultAddr)
	}
	if c.ScriptRoot() != c.Dir {
		t.Errorf("ScriptRoot() = %q, want %q", c.ScriptRoot(), c.Dir)
	}
}

func TestParseRejectsBadLoadFactors(t *testing.T) {
	c, err := Parse("[hashtable]\ngrow_threshold = 0.5\npost_grow_load = 0.6\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Hashtable.GrowThreshold != 0.5 {
		t.Errorf("grow_threshold = %v, want 0.5", c.Hashtable.GrowThreshold)
	}
	if c.Hashtable.PostGrowLoad != value.DefaultPostGrowLoad {
		t.Errorf("post_grow_load = %v, want %v", c.Hashtable.PostGrowLoad, value.DefaultPostGrowLoad)
	}
}

func TestParseErrors(t *testing.T) {
	inputs := []string{
		"[runtime\nmax_depth = 1",
		"[runtime]\nmax_depth = \"deep\"",
		"[runtime]\nunknown = 1",
	}
	for _, in := range inputs {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", in)
		}
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("[runtime]\nmax_depth = 7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(sub)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if c == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if c.Runtime.MaxDepth != 7 {
		t.Errorf("max_depth = %d, want 7", c.Runtime.MaxDepth)
	}
}

func TestFindAndLoadNone(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if c != nil && c.Dir == "" {
		t.Errorf("FindAndLoad returned %+v without a directory", c)
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	if c.Runtime.MaxDepth != DefaultMaxDepth || c.Server.Addr != DefaultAddr {
		t.Errorf("Default() = %+v", c)
	}
	if got := c.Resolve("x.db"); got != "x.db" {
		t.Errorf("Resolve without dir = %q, want x.db", got)
	}
}
