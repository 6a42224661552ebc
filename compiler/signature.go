package compiler

import (
	"fmt"
	"strings"
)

// Signature describes a native function: "name(int, x: float, any...) -> int".
// Parameter names are optional; a trailing "..." makes the last parameter
// variadic.
type Signature struct {
	Name     string
	Params   []SigParam
	Returns  string
	Variadic bool
}

// SigParam is one declared parameter.
type SigParam struct {
	Name string
	Type string
}

// ParseSignature parses a native function signature.
func ParseSignature(sig string) (*Signature, error) {
	sig = strings.TrimSpace(sig)
	open := strings.IndexByte(sig, '(')
	closing := strings.LastIndexByte(sig, ')')
	if open <= 0 || closing < open {
		return nil, fmt.Errorf("signature %q: expected name(params)", sig)
	}

	s := &Signature{Name: strings.TrimSpace(sig[:open]), Returns: "any"}
	if !isIdentifier(s.Name) {
		return nil, fmt.Errorf("signature %q: invalid name %q", sig, s.Name)
	}

	rest := strings.TrimSpace(sig[closing+1:])
	if rest != "" {
		ret, ok := strings.CutPrefix(rest, "->")
		if !ok {
			return nil, fmt.Errorf("signature %q: unexpected %q after parameters", sig, rest)
		}
		s.Returns = strings.TrimSpace(ret)
		if !isIdentifier(s.Returns) {
			return nil, fmt.Errorf("signature %q: invalid return type %q", sig, s.Returns)
		}
	}

	params := strings.TrimSpace(sig[open+1 : closing])
	if params == "" {
		return s, nil
	}
	parts := strings.Split(params, ",")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if variadic, ok := strings.CutSuffix(part, "..."); ok {
			if i != len(parts)-1 {
				return nil, fmt.Errorf("signature %q: only the last parameter may be variadic", sig)
			}
			s.Variadic = true
			part = strings.TrimSpace(variadic)
		}
		p := SigParam{Name: fmt.Sprintf("arg%d", i), Type: part}
		if name, typ, ok := strings.Cut(part, ":"); ok {
			p.Name, p.Type = strings.TrimSpace(name), strings.TrimSpace(typ)
		}
		if !isIdentifier(p.Name) || !isIdentifier(p.Type) {
			return nil, fmt.Errorf("signature %q: invalid parameter %q", sig, part)
		}
		s.Params = append(s.Params, p)
	}
	return s, nil
}

func (s *Signature) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.Type
	}
	if s.Variadic && len(parts) > 0 {
		parts[len(parts)-1] += "..."
	}
	return fmt.Sprintf("%s(%s) -> %s", s.Name, strings.Join(parts, ", "), s.Returns)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if !(isLetter(r) || r == '_' || (i > 0 && isDigit(r))) {
			return false
		}
	}
	return true
}
