package diag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gookit/color"
)

// TextEmitter pretty-prints diagnostics with a caret under the offending
// span, respecting the output stream's color capability — grounded on the
// teacher's own TTY check in getPrompt (os.ModeCharDevice), generalized
// here to gate github.com/gookit/color instead of a REPL prompt.
type TextEmitter struct {
	w      io.Writer
	color  bool
	h      *Handler
}

// NewTextEmitter returns an emitter writing to w. Color is used only when
// w is an *os.File attached to a terminal; any other writer gets plain
// text.
func NewTextEmitter(w io.Writer, h *Handler) *TextEmitter {
	useColor := false
	if f, ok := w.(*os.File); ok {
		if stat, err := f.Stat(); err == nil {
			useColor = stat.Mode()&os.ModeCharDevice != 0
		}
	}
	return &TextEmitter{w: w, color: useColor, h: h}
}

// Emit renders every diagnostic in order.
func (e *TextEmitter) Emit(diags []Diagnostic) {
	for _, d := range diags {
		e.emitOne(d)
	}
}

func (e *TextEmitter) paint(level Level, s string) string {
	if !e.color {
		return s
	}
	if level == Error {
		return color.FgRed.Render(s)
	}
	return color.FgYellow.Render(s)
}

func (e *TextEmitter) emitOne(d Diagnostic) {
	var b bytes.Buffer
	header := d.Level.String()
	if d.Code != "" {
		header = fmt.Sprintf("%s[%s]", header, d.Code)
	}
	fmt.Fprintf(&b, "%s: ", e.paint(d.Level, header))
	if len(d.Messages) > 0 {
		fmt.Fprintln(&b, d.Messages[0].Text)
	}
	for _, m := range d.Messages {
		switch m.Style {
		case StyleEmpty:
			// no location line
		default:
			loc := ""
			if e.h != nil && e.h.sm != nil {
				loc = e.h.sm.SpanToDiagnosticString(m.Span)
			}
			fmt.Fprintf(&b, "  --> %s\n", loc)
			e.writeCaretLine(&b, m)
		}
		if m.Note != "" {
			fmt.Fprintf(&b, "  note: %s\n", m.Note)
		}
	}
	io.WriteString(e.w, b.String())
}

func (e *TextEmitter) writeCaretLine(b *bytes.Buffer, m Message) {
	if e.h == nil || e.h.sm == nil {
		return
	}
	content := e.h.sm.Content(m.Span.File)
	if content == nil {
		return
	}
	line, col := e.h.sm.LookupLineCol(m.Span.File, m.Span.Lo)
	_ = line
	// Find the full line containing Lo.
	lo := m.Span.Lo
	start := lo
	for start > 0 && content[start-1] != '\n' {
		start--
	}
	end := lo
	for end < len(content) && content[end] != '\n' {
		end++
	}
	fmt.Fprintf(b, "   %s\n", string(content[start:end]))
	fmt.Fprintf(b, "   %s^\n", strings.Repeat(" ", col-1))
}

// jsonDiagnostic is the wire shape for JSONEmitter, mirroring Diagnostic
// but with exported, encoding/json-friendly field names.
type jsonDiagnostic struct {
	Level    string          `json:"level"`
	Code     string          `json:"code,omitempty"`
	Messages []jsonMessage   `json:"messages"`
}

type jsonMessage struct {
	File string `json:"file"`
	Lo   int    `json:"lo"`
	Hi   int    `json:"hi"`
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
	Text string `json:"text"`
	Note string `json:"note,omitempty"`
}

// JSONEmitter produces structured JSON for RPC consumers (§7).
type JSONEmitter struct {
	h *Handler
}

func NewJSONEmitter(h *Handler) *JSONEmitter { return &JSONEmitter{h: h} }

// Emit marshals diags to indented JSON.
func (e *JSONEmitter) Emit(diags []Diagnostic) ([]byte, error) {
	out := make([]jsonDiagnostic, 0, len(diags))
	for _, d := range diags {
		jd := jsonDiagnostic{Level: d.Level.String(), Code: d.Code}
		for _, m := range d.Messages {
			jm := jsonMessage{Lo: m.Span.Lo, Hi: m.Span.Hi, Text: m.Text, Note: m.Note}
			if e.h != nil && e.h.sm != nil {
				jm.File = e.h.sm.Path(m.Span.File)
				jm.Line, jm.Col = e.h.sm.LookupLineCol(m.Span.File, m.Span.Lo)
			}
			jd.Messages = append(jd.Messages, jm)
		}
		out = append(out, jd)
	}
	return json.MarshalIndent(out, "", "  ")
}
