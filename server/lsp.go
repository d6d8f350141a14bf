package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/stackfx"
	"github.com/chazu/stackfx/compiler"
)

const lspName = "stackfx-lsp"

// LspServer provides editor features for program documents: diagnostics,
// hover, completion and references.
type LspServer struct {
	engine *stackfx.Engine

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server checking documents against engine.
func NewLSP(engine *stackfx.Engine) *LspServer {
	s := &LspServer{
		engine:  engine,
		docs:    make(map[string]string),
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
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return s.complete(prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return s.hover(text, extractWord(text, params.Position)), nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return references(params.TextDocument.URI, text, word), nil
}

// --- Engine-backed logic ---

func (s *LspServer) complete(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	for _, e := range s.engine.Namespace().Prefix(prefix) {
		kind := protocol.CompletionItemKindFunction
		detail := e.Signature.String()
		name := e.Name
		item := protocol.CompletionItem{
			Label:      e.Name,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &name,
		}
		if e.Doc != "" {
			item.Documentation = e.Doc
		}
		items = append(items, item)
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	return items
}

// hover describes the word under the cursor, followed by the effect of
// the whole document when it checks.
func (s *LspServer) hover(text, word string) *protocol.Hover {
	var b strings.Builder

	if word != "" {
		if e, ok := s.engine.Namespace().Lookup(word); ok {
			fmt.Fprintf(&b, "**%s** `( %s )`\n\n", e.Name, e.Signature)
			if e.Doc != "" {
				b.WriteString(e.Doc)
				b.WriteString("\n\n")
			}
			if e.Body != "" {
				fmt.Fprintf(&b, "Defined as `%s`\n\n", e.Body)
			}
		}
	}

	if sig, err := s.engine.TypeOf(text); err == nil {
		fmt.Fprintf(&b, "---\n\nDocument: `( %s )`", sig)
	}

	if b.Len() == 0 {
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// references finds every use of word in the document.
func references(uri protocol.DocumentUri, text, word string) []protocol.Location {
	nodes, err := compiler.Parse(text)
	if err != nil {
		return nil
	}
	var locations []protocol.Location
	compiler.Walk(nodes, func(n compiler.Node) bool {
		if ref, ok := n.(*compiler.Ref); ok && ref.Name == word {
			locations = append(locations, protocol.Location{URI: uri, Range: spanRange(ref.Span())})
		}
		return true
	})
	return locations
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := s.diagnose(text)
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnose type checks text. A program that checks yields no
// diagnostics; otherwise there is one, placed on the offending token.
func (s *LspServer) diagnose(text string) []protocol.Diagnostic {
	_, err := s.engine.TypeOf(text)
	if err == nil {
		return []protocol.Diagnostic{}
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName
	d := protocol.Diagnostic{
		Severity: &severity,
		Source:   &source,
		Message:  err.Error(),
	}

	var ce *compiler.Error
	if errors.As(err, &ce) {
		start := lspPosition(ce.Pos)
		end := start
		end.Character += protocol.UInteger(len([]rune(ce.Token)))
		d.Range = protocol.Range{Start: start, End: end}
		code := ce.Kind.Error()
		d.Code = &protocol.IntegerOrString{Value: code}
		d.Message = diagnosticMessage(ce)
	}
	return []protocol.Diagnostic{d}
}

// diagnosticMessage is the error text without its position prefix, which
// the editor shows anyway.
func diagnosticMessage(ce *compiler.Error) string {
	msg := ce.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

func lspPosition(p compiler.Position) protocol.Position {
	line, col := p.Line-1, p.Column-1
	if line < 0 {
		line = 0
	}
	if col < 0 {
		col = 0
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

func spanRange(sp compiler.Span) protocol.Range {
	return protocol.Range{Start: lspPosition(sp.Start), End: lspPosition(sp.End)}
}

// --- Text extraction helpers ---

// isWordRune reports whether r can be part of a name.
func isWordRune(r rune) bool {
	return !unicode.IsSpace(r) && !compiler.IsDelimiter(r) && r != '\'' && r != '"' && r != '#'
}

// lineRunes returns the runes of line pos.Line and the cursor column
// clamped to it, or ok false if the line does not exist.
func lineRunes(text string, pos protocol.Position) (line []rune, col int, ok bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return nil, 0, false
	}
	line = []rune(lines[pos.Line])
	col = int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	return line, col, true
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	line, col, ok := lineRunes(text, pos)
	if !ok {
		return ""
	}

	// Walk backwards from cursor to find the start of the name
	start := col
	for start > 0 && isWordRune(line[start-1]) {
		start--
	}

	return string(line[start:col])
}

// extractWord returns the full name under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := lineRunes(text, pos)
	if !ok {
		return ""
	}

	start := col
	for start > 0 && isWordRune(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isWordRune(line[end]) {
		end++
	}

	return string(line[start:end])
}

func boolPtr(b bool) *bool {
	return &b
}
