package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ---------------------------------------------------------------------------
// Text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractWord(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		line, char uint32
		prefixOnly bool
		want       string
	}{
		{"whole word", "total = 1", 0, 2, false, "total"},
		{"prefix", "total = 1", 0, 2, true, "to"},
		{"end of line", "x = len", 0, 7, false, "len"},
		{"second line", "a = 1\nbeta = a", 1, 8, false, "a"},
		{"underscore and digits", "_tmp2 = 0", 0, 1, false, "_tmp2"},
		{"on operator", "a + b", 0, 2, false, ""},
		{"line beyond document", "x", 4, 0, false, ""},
		{"column beyond line", "ab", 0, 99, false, "ab"},
		{"empty", "", 0, 0, true, ""},
	}
	for _, tc := range tests {
		pos := protocol.Position{Line: tc.line, Character: tc.char}
		if got := extractWord(tc.text, pos, tc.prefixOnly); got != tc.want {
			t.Errorf("%s: extractWord = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestLineRange(t *testing.T) {
	r := lineRange(3, 5)
	if r.Start.Line != 2 || r.Start.Character != 4 || r.End != r.Start {
		t.Errorf("lineRange(3, 5) = %+v, want zero-width at 2:4", r)
	}
	if r := lineRange(0, 0); r.Start.Line != 0 || r.Start.Character != 0 {
		t.Errorf("lineRange(0, 0) = %+v, want origin", r)
	}
}

// ---------------------------------------------------------------------------
// VM-backed features
// ---------------------------------------------------------------------------

func newTestLSP(t *testing.T) *LSP {
	t.Helper()
	s := NewLSP(newTestVM)
	t.Cleanup(s.worker.Stop)
	return s
}

const lspDoc = "file:///a.wft"

func TestLSPDiagnostics(t *testing.T) {
	s := newTestLSP(t)

	diags, err := s.diagnostics(lspDoc, "x = 1\ny = missing + 1")
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	if len(diags) == 0 {
		t.Fatal("no diagnostics for unknown name")
	}
	d := diags[0]
	if d.Range.Start.Line != 1 {
		t.Errorf("diagnostic line = %d, want 1", d.Range.Start.Line)
	}
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v, want error", d.Severity)
	}
	if !strings.Contains(d.Message, "missing") {
		t.Errorf("message = %q", d.Message)
	}

	diags, err = s.diagnostics(lspDoc, "x = 1\ny = x + 1")
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	if diags == nil || len(diags) != 0 {
		t.Errorf("clean document diagnostics = %v, want empty", diags)
	}
}

func TestLSPRuntimeErrorIsWarning(t *testing.T) {
	s := newTestLSP(t)

	diags, err := s.diagnostics(lspDoc, "xs = [1]\ny = xs[4]")
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %v, want one", diags)
	}
	if *diags[0].Severity != protocol.DiagnosticSeverityWarning {
		t.Errorf("severity = %v, want warning", *diags[0].Severity)
	}
	if diags[0].Range.Start.Line != 1 {
		t.Errorf("line = %d, want 1", diags[0].Range.Start.Line)
	}
}

func TestLSPHover(t *testing.T) {
	s := newTestLSP(t)
	doc := "def scale(x: int, k) -> float { return x * k }\ny = scale(2, 1.5)"

	tests := []struct {
		word string
		want string
	}{
		{"y", "**y**: float = `3.0`"},
		{"scale", "def scale(x: int, k) -> float"},
		{"len", "builtin"},
	}
	for _, tc := range tests {
		h, err := s.hover(lspDoc, doc, tc.word)
		if err != nil {
			t.Fatalf("hover(%s): %v", tc.word, err)
		}
		if h == nil {
			t.Errorf("hover(%s) = nil", tc.word)
			continue
		}
		content := h.Contents.(protocol.MarkupContent).Value
		if !strings.Contains(content, tc.want) {
			t.Errorf("hover(%s) = %q, want it to contain %q", tc.word, content, tc.want)
		}
	}

	if h, err := s.hover(lspDoc, doc, "nothing"); h != nil || err != nil {
		t.Errorf("hover(nothing) = %v, %v; want nil, nil", h, err)
	}
}

func TestLSPCompletionAndDefinition(t *testing.T) {
	s := newTestLSP(t)
	doc := "length = 3\nlimit = 4\nz = le"

	items, err := s.complete(lspDoc, doc, "le")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	var labels []string
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	got := strings.Join(labels, ",")
	if !strings.Contains(got, "len") || !strings.Contains(got, "length") || strings.Contains(got, "limit") {
		t.Errorf("completions = %s, want len and length only", got)
	}

	loc, err := s.definition(lspDoc, "a = 1\nlimit = 4", "limit")
	if err != nil || loc == nil {
		t.Fatalf("definition = %v, %v", loc, err)
	}
	if loc.URI != lspDoc || loc.Range.Start.Line != 1 {
		t.Errorf("definition = %+v, want line 1", loc)
	}
	if loc, _ := s.definition(lspDoc, "a = 1", "len"); loc != nil {
		t.Errorf("definition of builtin = %+v, want nil", loc)
	}
}
