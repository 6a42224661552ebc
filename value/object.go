package value

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Host object types
// ---------------------------------------------------------------------------

// Optional behaviors an object payload may implement. Payloads without them
// compare by identity, print as "<TypeName>" and are shared on copy.
type (
	Copier interface {
		CopyObject() any
	}
	Releaser interface {
		ReleaseObject()
	}
	Equaler interface {
		EqualObject(other any) bool
	}
	Hasher interface {
		HashObject() uint64
	}
)

// NewObjectType creates a descriptor for host-defined objects.
func NewObjectType(name string) *Type {
	t := &Type{Name: name, Kind: KindObject}
	t.Release = func(v *Value) {
		if r, ok := v.ref.(Releaser); ok {
			r.ReleaseObject()
		}
	}
	t.Copy = func(src, dst *Value) {
		if c, ok := src.ref.(Copier); ok {
			dst.ref = c.CopyObject()
			return
		}
		dst.ref = src.ref
	}
	t.Equals = func(a, b *Value) bool {
		if e, ok := a.ref.(Equaler); ok {
			return e.EqualObject(b.ref)
		}
		return a.ref == b.ref
	}
	t.Hash = func(v *Value) uint64 {
		if h, ok := v.ref.(Hasher); ok {
			return h.HashObject()
		}
		return mix64(uint64(len(name)))
	}
	t.ToString = func(v *Value) string {
		if s, ok := v.ref.(fmt.Stringer); ok {
			return s.String()
		}
		return "<" + name + ">"
	}
	return t
}

// SetObject overwrites v with payload claimed by the object type t.
func (v *Value) SetObject(t *Type, payload any) {
	v.Release()
	v.install(t)
	v.ref = payload
}

// AsObject returns the payload of v if it is an object of type t.
func (v *Value) AsObject(t *Type) (any, bool) {
	if v.Type() != t || t.Kind != KindObject {
		return nil, false
	}
	return v.ref, true
}

// ---------------------------------------------------------------------------
// Error values
// ---------------------------------------------------------------------------

type errorData struct {
	message string
	node    NodeHandle
}

// SetError overwrites v with an error value. node may be nil.
func (v *Value) SetError(message string, node NodeHandle) {
	v.Release()
	v.install(ErrorType)
	v.ref = &errorData{message: message, node: node}
}

// Errorf returns an error Value with a formatted message.
func Errorf(format string, args ...any) Value {
	var v Value
	v.SetError(fmt.Sprintf(format, args...), nil)
	return v
}

// ErrorMessage returns the message of an error value.
func (v *Value) ErrorMessage() (string, bool) {
	if v.Kind() != KindError {
		return "", false
	}
	return v.ref.(*errorData).message, true
}

// ErrorNode returns the node an error value was raised at, if recorded.
func (v *Value) ErrorNode() NodeHandle {
	if v.Kind() != KindError {
		return nil
	}
	return v.ref.(*errorData).node
}
