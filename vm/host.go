package vm

import (
	"os"
	"path/filepath"
	"time"

	"github.com/chazu/weft/ir"
)

// ---------------------------------------------------------------------------
// Script files
// ---------------------------------------------------------------------------

// FileSource supplies script text to the VM.
type FileSource interface {
	ReadText(name string) (string, error)
	Exists(name string) bool
	ModTime(name string) (time.Time, error)
}

// OSFileSource reads scripts from the local filesystem, relative to Root
// when a name is not absolute.
type OSFileSource struct {
	Root string
}

func (s OSFileSource) path(name string) string {
	if s.Root == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.Root, name)
}

// ReadText returns the contents of name.
func (s OSFileSource) ReadText(name string) (string, error) {
	b, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Exists reports whether name is a regular file.
func (s OSFileSource) Exists(name string) bool {
	info, err := os.Stat(s.path(name))
	return err == nil && info.Mode().IsRegular()
}

// ModTime returns the modification time of name.
func (s OSFileSource) ModTime(name string) (time.Time, error) {
	info, err := os.Stat(s.path(name))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// LoadScript clears scope and compiles filename into it. The scope is
// remembered so that ReloadIfModified can refresh it. A scope that frames
// on the stack are still executing is not touched.
func (vm *VM) LoadScript(scope *ir.Scope, filename string) error {
	if vm.Stack.References(scope) {
		return ErrScopeBusy
	}
	text, err := vm.Files.ReadText(filename)
	if err != nil {
		return err
	}
	mod, err := vm.Files.ModTime(filename)
	if err != nil {
		return err
	}
	if scope.Parent() == nil && scope != vm.Toplevel {
		scope.SetParent(vm.Kernel)
	}
	if scope == vm.Toplevel {
		// registers of the last run index the old nodes
		vm.Stack.Forget()
	}
	scope.Clear()
	vm.compiler.Compile(scope, text)
	vm.scripts[filename] = &script{scope: scope, modTime: mod}
	log.Infof("loaded %s (%d nodes)", filename, scope.Len())
	return nil
}

// ReloadIfModified recompiles a loaded script whose file changed since it
// was loaded. It reports whether a reload happened. A script whose scope is
// still executing is not touched.
func (vm *VM) ReloadIfModified(filename string) (bool, error) {
	sc, ok := vm.scripts[filename]
	if !ok {
		return false, nil
	}
	mod, err := vm.Files.ModTime(filename)
	if err != nil {
		return false, err
	}
	if !mod.After(sc.modTime) {
		return false, nil
	}
	if err := vm.LoadScript(sc.scope, filename); err != nil {
		return false, err
	}
	return true, nil
}
