package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/weft/ir"
	"github.com/chazu/weft/value"
	"github.com/chazu/weft/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "weft-lsp"

// lspRunTimeout bounds the run that computes hover values.
const lspRunTimeout = 2 * time.Second

// LSP serves editor diagnostics and hovers for weft scripts. Open
// documents are compiled and run in a VM owned by a RuntimeWorker.
type LSP struct {
	worker *RuntimeWorker

	mu   sync.Mutex
	docs map[protocol.DocumentUri]string // full document text

	// document currently compiled into the worker's VM; worker goroutine only
	loadedURI  protocol.DocumentUri
	loadedText string
	runErr     error

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a language server over a VM built by newVM.
func NewLSP(newVM func() *vm.VM) *LSP {
	s := &LSP{
		worker:  NewRuntimeWorker(newVM()),
		docs:    make(map[protocol.DocumentUri]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)
	return s
}

// Run serves LSP on stdio until the client disconnects.
func (s *LSP) Run() error {
	return s.server.RunStdio()
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (s *LSP) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("weft LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LSP) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LSP) shutdown(ctx *glsp.Context) error {
	s.worker.Interrupt()
	s.worker.Stop()
	return nil
}

func (s *LSP) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// ---------------------------------------------------------------------------
// Document synchronization
// ---------------------------------------------------------------------------

func (s *LSP) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.setDoc(uri, params.TextDocument.Text)
	s.publishDiagnostics(ctx, uri, params.TextDocument.Text)
	return nil
}

func (s *LSP) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// full sync: the last change carries the whole text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.setDoc(uri, whole.Text)
			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LSP) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LSP) setDoc(uri protocol.DocumentUri, text string) {
	s.mu.Lock()
	s.docs[uri] = text
	s.mu.Unlock()
}

func (s *LSP) doc(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[uri]
	return text, ok
}

// ---------------------------------------------------------------------------
// Language features
// ---------------------------------------------------------------------------

func (s *LSP) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.doc(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix := extractWord(text, params.Position, true)
	if prefix == "" {
		return nil, nil
	}
	return s.complete(params.TextDocument.URI, text, prefix)
}

func (s *LSP) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.doc(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position, false)
	if word == "" {
		return nil, nil
	}
	return s.hover(params.TextDocument.URI, text, word)
}

func (s *LSP) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	text, ok := s.doc(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position, false)
	if word == "" {
		return nil, nil
	}
	loc, err := s.definition(uri, text, word)
	if err != nil || loc == nil {
		return nil, err
	}
	return *loc, nil
}

// ---------------------------------------------------------------------------
// VM-backed logic
// ---------------------------------------------------------------------------

// load compiles text into the VM's toplevel and runs it, unless it is
// already loaded. Must be called on the worker goroutine.
func (s *LSP) load(v *vm.VM, uri protocol.DocumentUri, text string) {
	if s.loadedURI == uri && s.loadedText == text {
		return
	}
	if s.loadedURI != uri {
		v.SetState(value.NewMap())
	}
	s.loadedURI, s.loadedText, s.runErr = uri, text, nil

	v.Stack.Forget()
	v.Toplevel.Clear()
	v.Compile(text)
	if len(v.StaticErrors()) > 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), lspRunTimeout)
	defer cancel()
	if err := v.Run(ctx); err != nil {
		s.runErr = err
		v.Restart()
	}
}

// diagnostics compiles and runs text and reports its static errors, or
// the runtime error of a script that compiled cleanly.
func (s *LSP) diagnostics(uri protocol.DocumentUri, text string) ([]protocol.Diagnostic, error) {
	result, err := s.worker.Do(func(v *vm.VM) any {
		s.load(v, uri, text)
		source := lspName
		var diags []protocol.Diagnostic
		for _, e := range v.StaticErrors() {
			severity := protocol.DiagnosticSeverityError
			diags = append(diags, protocol.Diagnostic{
				Range:    lineRange(e.Line, e.Col),
				Severity: &severity,
				Source:   &source,
				Message:  e.Message,
			})
		}
		var rerr *vm.RuntimeError
		if len(diags) == 0 && errors.As(s.runErr, &rerr) {
			severity := protocol.DiagnosticSeverityWarning
			diags = append(diags, protocol.Diagnostic{
				Range:    lineRange(rerr.Line, 1),
				Severity: &severity,
				Source:   &source,
				Message:  rerr.Message,
			})
		}
		return diags
	})
	if err != nil {
		return nil, err
	}
	diags := result.([]protocol.Diagnostic)
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	return diags, nil
}

func (s *LSP) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diags, err := s.diagnostics(uri, text)
	if err != nil {
		log.Errorf("diagnostics for %s: %s", uri, err)
		return
	}
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

// hover describes the binding named word: a function's signature or the
// value a statement computed in the last run.
func (s *LSP) hover(uri protocol.DocumentUri, text, word string) (*protocol.Hover, error) {
	result, err := s.worker.Do(func(v *vm.VM) any {
		s.load(v, uri, text)
		n := v.Lookup(word)
		if n == nil {
			return ""
		}
		if n.Op == ir.OpFunction {
			kind := "function"
			if n.Native != nil {
				kind = "builtin"
			}
			return fmt.Sprintf("```weft\n%s\n```\n\n%s", signature(n), kind)
		}
		val, ok := v.Result(n)
		if !ok {
			return fmt.Sprintf("**%s**", word)
		}
		defer val.Release()
		return fmt.Sprintf("**%s**: %s = `%s`", word, val.Type().Name, val.Repr())
	})
	if err != nil || result.(string) == "" {
		return nil, err
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: result.(string),
		},
	}, nil
}

// complete lists the visible names starting with prefix.
func (s *LSP) complete(uri protocol.DocumentUri, text, prefix string) ([]protocol.CompletionItem, error) {
	result, err := s.worker.Do(func(v *vm.VM) any {
		s.load(v, uri, text)
		seen := make(map[string]bool)
		var items []protocol.CompletionItem
		for _, scope := range []*ir.Scope{v.Toplevel, v.Kernel} {
			for _, n := range scope.Nodes() {
				name := n.Name
				if name == "" || seen[name] || !strings.HasPrefix(name, prefix) || !isIdentStart(rune(name[0])) {
					continue
				}
				seen[name] = true
				kind := protocol.CompletionItemKindVariable
				detail := "binding"
				if n.Op == ir.OpFunction {
					kind = protocol.CompletionItemKindFunction
					detail = signature(n)
				}
				label := name
				items = append(items, protocol.CompletionItem{
					Label:      label,
					Kind:       &kind,
					Detail:     &detail,
					InsertText: &label,
				})
			}
		}
		sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })
		return items
	})
	if err != nil {
		return nil, err
	}
	return result.([]protocol.CompletionItem), nil
}

// definition locates the statement binding word in the document.
func (s *LSP) definition(uri protocol.DocumentUri, text, word string) (*protocol.Location, error) {
	result, err := s.worker.Do(func(v *vm.VM) any {
		s.load(v, uri, text)
		n := v.Lookup(word)
		if n == nil || n.Owner() != v.Toplevel {
			return nil
		}
		line, col := n.Pos()
		if line == 0 {
			return nil
		}
		return &protocol.Location{URI: uri, Range: lineRange(line, col)}
	})
	if err != nil || result == nil {
		return nil, err
	}
	return result.(*protocol.Location), nil
}

// signature renders a function node as a def header.
func signature(fn *ir.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "def %s(", fn.Name)
	for i, p := range fn.Params() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		if t := p.PropString(ir.PropType); t != "" && t != "any" {
			b.WriteString(": " + t)
		}
		if p.PropBool(ir.PropVariadic) {
			b.WriteString("...")
		}
	}
	b.WriteString(")")
	if r := fn.PropString(ir.PropReturns); r != "" && r != "any" {
		b.WriteString(" -> " + r)
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Text helpers
// ---------------------------------------------------------------------------

// lineRange converts a 1-based line and column to a zero-width LSP range.
func lineRange(line, col int) protocol.Range {
	pos := protocol.Position{}
	if line > 0 {
		pos.Line = protocol.UInteger(line - 1)
	}
	if col > 0 {
		pos.Character = protocol.UInteger(col - 1)
	}
	return protocol.Range{Start: pos, End: pos}
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentPart(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractWord returns the identifier under the cursor. With prefixOnly it
// stops at the cursor, for completion.
func extractWord(text string, pos protocol.Position, prefixOnly bool) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentPart(rune(line[start-1])) {
		start--
	}
	end := col
	if !prefixOnly {
		for end < len(line) && isIdentPart(rune(line[end])) {
			end++
		}
	}
	if start == end {
		return ""
	}
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
