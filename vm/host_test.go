package vm

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/weft/ir"
)

// memFiles is an in-memory FileSource.
type memFiles struct {
	text map[string]string
	mod  map[string]time.Time
}

func newMemFiles() *memFiles {
	return &memFiles{text: map[string]string{}, mod: map[string]time.Time{}}
}

func (m *memFiles) write(name, text string, at time.Time) {
	m.text[name] = text
	m.mod[name] = at
}

func (m *memFiles) ReadText(name string) (string, error) {
	t, ok := m.text[name]
	if !ok {
		return "", fs.ErrNotExist
	}
	return t, nil
}

func (m *memFiles) Exists(name string) bool {
	_, ok := m.text[name]
	return ok
}

func (m *memFiles) ModTime(name string) (time.Time, error) {
	t, ok := m.mod[name]
	if !ok {
		return time.Time{}, fs.ErrNotExist
	}
	return t, nil
}

func TestLoadScriptAndReload(t *testing.T) {
	files := newMemFiles()
	t0 := time.Unix(1000, 0)
	files.write("main.wft", "x = 1", t0)

	v := New(Options{Files: files})
	ctx := context.Background()
	if err := v.LoadScript(v.Toplevel, "main.wft"); err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if err := v.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := binding(t, v, "x"); got != "1" {
		t.Errorf("x = %s, want 1", got)
	}

	reloaded, err := v.ReloadIfModified("main.wft")
	if err != nil || reloaded {
		t.Errorf("ReloadIfModified unchanged = %v, %v; want false, nil", reloaded, err)
	}

	files.write("main.wft", "x = 2", t0.Add(time.Second))
	reloaded, err = v.ReloadIfModified("main.wft")
	if err != nil || !reloaded {
		t.Fatalf("ReloadIfModified changed = %v, %v; want true, nil", reloaded, err)
	}
	if err := v.Run(ctx); err != nil {
		t.Fatalf("Run after reload: %v", err)
	}
	if got := binding(t, v, "x"); got != "2" {
		t.Errorf("x = %s, want 2", got)
	}

	if reloaded, err := v.ReloadIfModified("other.wft"); reloaded || err != nil {
		t.Errorf("ReloadIfModified unknown = %v, %v; want false, nil", reloaded, err)
	}

	// loading a different script drops the registers of the last run
	files.write("other.wft", "y = 2", t0)
	if err := v.LoadScript(v.Toplevel, "other.wft"); err != nil {
		t.Fatalf("LoadScript(other): %v", err)
	}
	y := v.Lookup("y")
	if y == nil {
		t.Fatal("no binding for y")
	}
	if got, ok := v.Result(y); ok {
		t.Errorf("Result(y) before Run = %s, want none", got.Repr())
		got.Release()
	}
	if err := v.Run(ctx); err != nil {
		t.Fatalf("Run other: %v", err)
	}
	if got := binding(t, v, "y"); got != "2" {
		t.Errorf("y = %s, want 2", got)
	}
}

func TestReloadRefusedWhileRunning(t *testing.T) {
	files := newMemFiles()
	t0 := time.Unix(1000, 0)
	files.write("lib.wft", "def f(x) { return x[3] }", t0)

	v := New(Options{Files: files})
	lib := ir.NewScope()
	if err := v.LoadScript(lib, "lib.wft"); err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if lib.Parent() != v.Kernel {
		t.Error("loaded scope does not see the kernel")
	}

	// a failed call leaves the function's frame on the stack
	fn := lib.Lookup("f")
	if _, err := v.Stack.Call(context.Background(), fn); err == nil {
		t.Fatal("Call succeeded, want index error")
	}

	files.write("lib.wft", "def f(x) { return x }", t0.Add(time.Second))
	if _, err := v.ReloadIfModified("lib.wft"); !errors.Is(err, ErrScopeBusy) {
		t.Errorf("ReloadIfModified = %v, want ErrScopeBusy", err)
	}
	if err := v.LoadScript(lib, "lib.wft"); !errors.Is(err, ErrScopeBusy) {
		t.Errorf("LoadScript = %v, want ErrScopeBusy", err)
	}
	if lib.Lookup("f") != fn {
		t.Error("refused LoadScript replaced the busy scope's nodes")
	}

	v.Restart()
	reloaded, err := v.ReloadIfModified("lib.wft")
	if err != nil || !reloaded {
		t.Errorf("ReloadIfModified after Restart = %v, %v; want true, nil", reloaded, err)
	}
}

func TestOSFileSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.wft"), []byte("y = 3"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := OSFileSource{Root: dir}
	if !src.Exists("a.wft") {
		t.Error("Exists(a.wft) = false")
	}
	if src.Exists("missing.wft") {
		t.Error("Exists(missing.wft) = true")
	}
	text, err := src.ReadText("a.wft")
	if err != nil || text != "y = 3" {
		t.Errorf("ReadText = %q, %v", text, err)
	}
	if _, err := src.ModTime("missing.wft"); err == nil {
		t.Error("ModTime(missing.wft) succeeded")
	}
}
