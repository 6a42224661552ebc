package vm

import (
	"context"
	"testing"
)

func TestKernelBuiltins(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"sub(5, 7)", "-2"},
		{"mult(2, 2.5)", "5.0"},
		{"div(1, 4.0)", "0.25"},
		{"mod(-7, 3)", "-1"},
		{"neg(2.5)", "-2.5"},
		{"equals(1, 1.0)", "true"},
		{`not_equals("a", "a")`, "false"},
		{`less_than("abc", "abd")`, "true"},
		{"greater_than_eq(2, 2)", "true"},
		{`to_string([1, "x"])`, `"[1, \"x\"]"`},
		{"type_of(1.5)", `"float"`},
		{`type_of({})`, `"map"`},
		{"len([1, 2, 3])", "3"},
		{`len({"a": 1})`, "1"},
		{"append([1], 2)", "[1, 2]"},
		{"range(3)", "[0, 1, 2]"},
		{"range(1, 4)", "[1, 2, 3]"},
		{"range(5, 0, -2)", "[5, 3, 1]"},
		{`concat("a", 1, true)`, `"a1true"`},
		{`map_get({"a": 1}, "b")`, "null"},
		{`map_set({"a": 1}, "b", 2)`, `{"a": 1, "b": 2}`},
		{`map_remove({"a": 1, "b": 2}, "a")`, `{"b": 2}`},
		{`map_keys({"k": 1})`, `["k"]`},
		{`has_key({"k": 1}, "k")`, "true"},
		{`"hello"[1]`, `"e"`},
		{"assert(true)", "null"},
	}

	for _, tc := range tests {
		v := New(Options{})
		got, err := v.Eval(context.Background(), tc.src)
		if err != nil {
			t.Errorf("%s: %v", tc.src, err)
			continue
		}
		if got.Repr() != tc.want {
			t.Errorf("%s = %s, want %s", tc.src, got.Repr(), tc.want)
		}
		got.Release()
	}
}

func TestKernelValuesAreNotShared(t *testing.T) {
	v := New(Options{})
	got, err := v.Eval(context.Background(), "a = [1, 2]\nb = append(a, 3)\n[a, b]")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	defer got.Release()
	if want := "[[1, 2], [1, 2, 3]]"; got.Repr() != want {
		t.Errorf("got %s, want %s", got.Repr(), want)
	}
}

func TestKernelErrors(t *testing.T) {
	tests := []string{
		"div(1, 0)",
		"mod(1, 0)",
		"neg(\"x\")",
		"less_than(1, \"a\")",
		"len(1)",
		"[1][3]",
		"range(1, 2, 0)",
		"get_index(1, 0)",
		"set_index(1, 0, 0)",
	}
	for _, src := range tests {
		v := New(Options{})
		if _, err := v.Eval(context.Background(), src); err == nil {
			t.Errorf("%s succeeded, want error", src)
		}
	}
}
