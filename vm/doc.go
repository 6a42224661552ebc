// Package vm executes compiled scopes.
//
// This package contains:
//   - the frame stack interpreter with state threading
//   - the kernel of builtin functions
//   - native function registration from signatures
//   - script loading and reloading
package vm
