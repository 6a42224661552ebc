package compiler

import (
	"testing"
)

func TestParseSignature(t *testing.T) {
	tests := []struct {
		input    string
		name     string
		params   []SigParam
		returns  string
		variadic bool
	}{
		{"add(int, int) -> int", "add", []SigParam{{"arg0", "int"}, {"arg1", "int"}}, "int", false},
		{"noop()", "noop", nil, "any", false},
		{"scale(x: float, by: float) -> float", "scale", []SigParam{{"x", "float"}, {"by", "float"}}, "float", false},
		{"print(any...)", "print", []SigParam{{"arg0", "any"}}, "any", true},
		{" concat ( string, s: string... ) -> string ", "concat", []SigParam{{"arg0", "string"}, {"s", "string"}}, "string", true},
	}

	for _, tc := range tests {
		sig, err := ParseSignature(tc.input)
		if err != nil {
			t.Errorf("ParseSignature(%q): %v", tc.input, err)
			continue
		}
		if sig.Name != tc.name {
			t.Errorf("ParseSignature(%q).Name = %q, want %q", tc.input, sig.Name, tc.name)
		}
		if sig.Returns != tc.returns {
			t.Errorf("ParseSignature(%q).Returns = %q, want %q", tc.input, sig.Returns, tc.returns)
		}
		if sig.Variadic != tc.variadic {
			t.Errorf("ParseSignature(%q).Variadic = %v, want %v", tc.input, sig.Variadic, tc.variadic)
		}
		if len(sig.Params) != len(tc.params) {
			t.Errorf("ParseSignature(%q) has %d params, want %d", tc.input, len(sig.Params), len(tc.params))
			continue
		}
		for i, p := range tc.params {
			if sig.Params[i] != p {
				t.Errorf("ParseSignature(%q).Params[%d] = %+v, want %+v", tc.input, i, sig.Params[i], p)
			}
		}
	}
}

func TestParseSignatureErrors(t *testing.T) {
	inputs := []string{
		"",
		"add",
		"(int) -> int",
		"add(int) int",
		"add(int...,int)",
		"add(1x)",
		"add(int) -> ",
	}
	for _, in := range inputs {
		if _, err := ParseSignature(in); err == nil {
			t.Errorf("ParseSignature(%q) succeeded, want error", in)
		}
	}
}

func TestSignatureString(t *testing.T) {
	sig, err := ParseSignature("concat(x: string, string...) -> string")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := sig.String(), "concat(string, string...) -> string"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
