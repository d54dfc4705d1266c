// Package diag implements the diagnostics Handler described in §7: passes
// accumulate errors and warnings instead of aborting, generalizing the
// teacher's panic/recover-based Panic type (interp.go's Panic/GetOldestPanicForErr)
// into a proper accumulator suited to multi-error compiler output.
package diag

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kcl-lang/compiler/internal/source"
)

// Level is the severity of a Diagnostic.
type Level int

const (
	Warning Level = iota
	Error
)

func (l Level) String() string {
	if l == Error {
		return "error"
	}
	return "warning"
}

// MessageStyle controls how an emitter renders a Message's span.
type MessageStyle int

const (
	StyleLine MessageStyle = iota
	StyleLineAndColumn
	StyleEmpty
)

// Message is one line of a Diagnostic: a span, a rendering style, text and
// an optional note.
type Message struct {
	Span  source.Span
	Style MessageStyle
	Text  string
	Note  string
}

// Diagnostic is a single compiler error or warning, possibly spanning
// several Messages (a primary message plus secondary notes).
type Diagnostic struct {
	Level    Level
	Code     string // e.g. "E1001"; empty if uncoded
	Messages []Message
}

func (d Diagnostic) primarySpan() source.Span {
	if len(d.Messages) == 0 {
		return source.Span{}
	}
	return d.Messages[0].Span
}

// Handler accumulates diagnostics across passes. Passes never abort on a
// single error (§4.5, §7); only the driver decides whether a fatal
// structural condition (e.g. an import cycle) should short-circuit
// remaining work.
//
// A Driver may hand the same Handler to several compilePackage workers
// running concurrently under errgroup.SetLimit (§4.7, §5), so every method
// that touches diag is guarded by mu — the same guard SourceMap already
// uses for its own concurrent AddFile/file lookups.
type Handler struct {
	mu   sync.Mutex
	sm   *source.Map
	diag []Diagnostic
}

// NewHandler returns a Handler that renders spans using sm (sm may be nil
// if the caller never needs pretty rendering, e.g. in unit tests that only
// check diagnostic counts).
func NewHandler(sm *source.Map) *Handler { return &Handler{sm: sm} }

func (h *Handler) add(level Level, code string, sp source.Span, format string, args []interface{}) {
	d := Diagnostic{
		Level: level,
		Code:  code,
		Messages: []Message{{
			Span:  sp,
			Style: StyleLineAndColumn,
			Text:  fmt.Sprintf(format, args...),
		}},
	}
	h.mu.Lock()
	h.diag = append(h.diag, d)
	h.mu.Unlock()
}

// Errorf records an uncoded error at sp.
func (h *Handler) Errorf(sp source.Span, format string, args ...interface{}) {
	h.add(Error, "", sp, format, args)
}

// ErrorCodef records a coded error at sp.
func (h *Handler) ErrorCodef(code string, sp source.Span, format string, args ...interface{}) {
	h.add(Error, code, sp, format, args)
}

// Warnf records an uncoded warning at sp.
func (h *Handler) Warnf(sp source.Span, format string, args ...interface{}) {
	h.add(Warning, "", sp, format, args)
}

// Add appends a fully formed Diagnostic (used by passes that need
// multi-message diagnostics, e.g. an import cycle naming every participant).
func (h *Handler) Add(d Diagnostic) {
	h.mu.Lock()
	h.diag = append(h.diag, d)
	h.mu.Unlock()
}

// Diagnostics returns every accumulated diagnostic, source order preserved
// per file (stable sort by primary span, §5: "per-module diagnostics
// preserve source order"; cross-package order is not guaranteed).
func (h *Handler) Diagnostics() []Diagnostic {
	h.mu.Lock()
	out := make([]Diagnostic, len(h.diag))
	copy(out, h.diag)
	h.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].primarySpan(), out[j].primarySpan()
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Lo < b.Lo
	})
	return out
}

// HasErrors reports whether any accumulated diagnostic is at Error level.
func (h *Handler) HasErrors() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, d := range h.diag {
		if d.Level == Error {
			return true
		}
	}
	return false
}

// Reset clears all accumulated diagnostics, e.g. between incremental
// re-resolutions of the same package (§4.7.6).
func (h *Handler) Reset() {
	h.mu.Lock()
	h.diag = nil
	h.mu.Unlock()
}

// Merge appends every diagnostic from other into h, preserving h's own
// handler identity. Used by the build driver to fold per-package handlers
// into one stream at the end of a parallel build (§4.7, §5).
func (h *Handler) Merge(other *Handler) {
	other.mu.Lock()
	diags := make([]Diagnostic, len(other.diag))
	copy(diags, other.diag)
	other.mu.Unlock()

	h.mu.Lock()
	h.diag = append(h.diag, diags...)
	h.mu.Unlock()
}

// SourceMap exposes the handler's source map for emitters.
func (h *Handler) SourceMap() *source.Map { return h.sm }
