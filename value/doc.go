// Package value implements the weft dynamic value system.
//
// This package contains:
//   - Value, a tagged data cell paired with its Type descriptor
//   - Type, the per-type behavior table (copy/release/equals/hash/string/cast)
//   - refcounted List and Map storage with copy-on-write
//   - Hashtable, the open-addressing map used for Map values and symbol tables
//
// A Value owns its storage. Go assignment of a Value moves it; use Copy to
// produce an independent logical value and Release to discard one.
package value
