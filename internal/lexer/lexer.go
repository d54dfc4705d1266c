// Package lexer turns a single source file's bytes into a flat token
// stream with synthetic indentation events, in the manner described by
// §4.2: unlike the teacher's bootstrap use of go/scanner (which lexes Go,
// not KCL), this lexer is hand-written for KCL's own grammar.
package lexer

import (
	"strings"

	"github.com/kcl-lang/compiler/internal/diag"
	"github.com/kcl-lang/compiler/internal/source"
	"github.com/kcl-lang/compiler/internal/token"
)

// Lexer produces tokens lazily from one file's contents.
type Lexer struct {
	file     source.FileID
	src      []byte
	off      int // current byte offset
	lineHead bool // true if nothing but indent whitespace has been seen on this line

	indents []int // stack of indent widths, starts at [0]
	pending []token.Token // Indent/Dedent/Newline tokens queued ahead of the next real token

	atEOF     bool
	sawNLLast bool // did the last emitted non-trivia token end the need for synthetic EOF-newline?

	h *diag.Handler
}

// New returns a lexer over src, which is registered under file in h's
// source map (the caller owns registration; the lexer only reads src).
func New(file source.FileID, src []byte, h *diag.Handler) *Lexer {
	return &Lexer{
		file:     file,
		src:      src,
		indents:  []int{0},
		lineHead: true,
		h:        h,
	}
}

func (l *Lexer) span(lo, hi int) source.Span { return source.Span{File: l.file, Lo: lo, Hi: hi} }

func (l *Lexer) errf(lo, hi int, format string, args ...interface{}) {
	l.h.Errorf(l.span(lo, hi), format, args...)
}

func (l *Lexer) peekByte() byte {
	if l.off >= len(l.src) {
		return 0
	}
	return l.src[l.off]
}

func (l *Lexer) byteAt(i int) byte {
	if i >= len(l.src) {
		return 0
	}
	return l.src[i]
}

// Next returns the next token in the stream, terminated by a single
// token.Eof. Indent/Dedent/Newline events are synthesized as described in
// §4.2 and queued in l.pending so callers still see a flat sequence.
func (l *Lexer) Next() token.Token {
	if len(l.pending) > 0 {
		t := l.pending[0]
		l.pending = l.pending[1:]
		return t
	}
	if l.atEOF {
		return token.Token{Kind: token.Eof, Span: l.span(l.off, l.off)}
	}

	if l.lineHead {
		l.consumeIndent()
		if len(l.pending) > 0 {
			t := l.pending[0]
			l.pending = l.pending[1:]
			return t
		}
	}

	if l.off >= len(l.src) {
		return l.finish()
	}

	return l.lexOne()
}

// finish unwinds the indent stack and emits the terminating EOF, inserting
// a synthetic Newline first if the last logical line had none.
func (l *Lexer) finish() token.Token {
	if !l.sawNLLast && l.off > 0 {
		l.sawNLLast = true
		l.pending = append(l.pending, token.Token{Kind: token.Newline, Span: l.span(l.off, l.off)})
	}
	for len(l.indents) > 1 {
		popped := l.indents[len(l.indents)-1]
		l.indents = l.indents[:len(l.indents)-1]
		n := popped - l.indents[len(l.indents)-1]
		l.pending = append(l.pending, token.Token{Kind: token.Dedent, Span: l.span(l.off, l.off), N: n})
	}
	l.atEOF = true
	if len(l.pending) > 0 {
		t := l.pending[0]
		l.pending = l.pending[1:]
		return t
	}
	return token.Token{Kind: token.Eof, Span: l.span(l.off, l.off)}
}

// consumeIndent measures leading tab/space width on a fresh logical line
// and pushes Indent/Dedent events onto l.pending per the column-width
// stack algorithm in §4.2. Blank lines and comment-only lines do not
// participate in indent tracking.
func (l *Lexer) consumeIndent() {
	l.lineHead = false
	start := l.off
	width := 0
	for {
		switch l.peekByte() {
		case ' ':
			width++
			l.off++
			continue
		case '\t':
			width++
			l.off++
			continue
		}
		break
	}
	// A blank line or comment-only line does not change indentation.
	switch l.peekByte() {
	case 0, '\n', '\r', '#':
		return
	}
	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		l.pending = append(l.pending, token.Token{Kind: token.Indent, Span: l.span(start, l.off), N: width - top})
	case width < top:
		for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
			popped := l.indents[len(l.indents)-1]
			l.indents = l.indents[:len(l.indents)-1]
			prev := l.indents[len(l.indents)-1]
			delta := popped - prev
			l.pending = append(l.pending, token.Token{Kind: token.Dedent, Span: l.span(start, l.off), N: delta})
		}
		if l.indents[len(l.indents)-1] != width {
			l.errf(start, l.off, "inconsistent indentation")
			// Recover by accepting the new width as a level so lexing continues.
			l.indents = append(l.indents, width)
		}
	}
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}

func isIdentCont(b byte) bool { return isIdentStart(b) || (b >= '0' && b <= '9') }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// lexOne lexes exactly one token starting at l.off, which is guaranteed to
// not be at EOF and not be leading indentation.
func (l *Lexer) lexOne() token.Token {
	start := l.off
	b := l.src[l.off]

	switch {
	case b == ' ' || b == '\t':
		// Mid-line whitespace: a separate Space token, does not affect indent.
		for l.peekByte() == ' ' || l.peekByte() == '\t' {
			l.off++
		}
		return token.Token{Kind: token.Space, Span: l.span(start, l.off)}

	case b == '\r':
		if l.byteAt(l.off+1) == '\n' {
			l.off += 2
		} else {
			l.off++
			return token.Token{Kind: token.Space, Span: l.span(start, l.off)}
		}
		l.lineHead = true
		l.sawNLLast = true
		return token.Token{Kind: token.Newline, Span: l.span(start, l.off)}

	case b == '\n':
		l.off++
		l.lineHead = true
		l.sawNLLast = true
		return token.Token{Kind: token.Newline, Span: l.span(start, l.off)}

	case b == '\\' && (l.byteAt(l.off+1) == '\n' || (l.byteAt(l.off+1) == '\r' && l.byteAt(l.off+2) == '\n')):
		l.off++
		if l.peekByte() == '\r' {
			l.off++
		}
		l.off++ // the \n
		return token.Token{Kind: token.LineContinue, Span: l.span(start, l.off)}

	case b == '#':
		for l.off < len(l.src) && l.src[l.off] != '\n' {
			l.off++
		}
		return token.Token{Kind: token.Comment, Span: l.span(start, l.off)}

	case isIdentStart(b):
		return l.lexIdent(start)

	case b == '$' && isIdentStart(l.byteAt(l.off+1)):
		// Raw identifier `$name`: lexed as one Ident, never a keyword; the
		// resolver's preprocessing strips the '$'.
		l.off++
		return l.lexIdent(start)

	case isDigit(b) || (b == '.' && isDigit(l.byteAt(l.off+1))):
		return l.lexNumber(start)

	case b == '"' || b == '\'':
		return l.lexString(start, false)

	case (b == 'r' || b == 'R') && (l.byteAt(l.off+1) == '"' || l.byteAt(l.off+1) == '\''):
		l.off++
		return l.lexString(start, true)

	default:
		return l.lexOperator(start)
	}
}

func (l *Lexer) lexIdent(start int) token.Token {
	for isIdentCont(l.peekByte()) {
		l.off++
	}
	word := string(l.src[start:l.off])
	if kind, ok := token.Keywords[word]; ok {
		return token.Token{Kind: kind, Span: l.span(start, l.off)}
	}
	return token.Token{Kind: token.Ident, Span: l.span(start, l.off)}
}

// suffixes is the ordered (longest-first) list of accepted binary-unit
// literal suffixes, per §4.2.
var suffixes = []string{"Ki", "Mi", "Gi", "Ti", "Pi", "n", "u", "m", "k", "K", "M", "G", "T", "P"}

func (l *Lexer) lexNumber(start int) token.Token {
	base := token.Decimal
	emptyInt := false
	isFloat := false
	emptyExp := false

	if l.peekByte() == '0' && (l.byteAt(l.off+1) == 'x' || l.byteAt(l.off+1) == 'X') {
		base = token.Hex
		l.off += 2
		digStart := l.off
		for isHexDigit(l.peekByte()) {
			l.off++
		}
		emptyInt = l.off == digStart
	} else if l.peekByte() == '0' && (l.byteAt(l.off+1) == 'b' || l.byteAt(l.off+1) == 'B') {
		base = token.Binary
		l.off += 2
		digStart := l.off
		for l.peekByte() == '0' || l.peekByte() == '1' {
			l.off++
		}
		emptyInt = l.off == digStart
	} else if l.peekByte() == '0' && (l.byteAt(l.off+1) == 'o' || l.byteAt(l.off+1) == 'O') {
		base = token.Octal
		l.off += 2
		digStart := l.off
		for l.peekByte() >= '0' && l.peekByte() <= '7' {
			l.off++
		}
		emptyInt = l.off == digStart
	} else {
		for isDigit(l.peekByte()) {
			l.off++
		}
		if l.peekByte() == '.' && isDigit(l.byteAt(l.off+1)) {
			isFloat = true
			l.off++
			for isDigit(l.peekByte()) {
				l.off++
			}
		} else if l.peekByte() == '.' && !isIdentStart(l.byteAt(l.off+1)) {
			isFloat = true
			l.off++
		}
		if l.peekByte() == 'e' || l.peekByte() == 'E' {
			isFloat = true
			l.off++
			if l.peekByte() == '+' || l.peekByte() == '-' {
				l.off++
			}
			expStart := l.off
			for isDigit(l.peekByte()) {
				l.off++
			}
			emptyExp = l.off == expStart
		}
	}

	suffixStart := l.off
	if !isFloat {
		for _, sfx := range suffixes {
			if strings.HasPrefix(string(l.src[l.off:]), sfx) && !isIdentCont(l.byteAt(l.off+len(sfx))) {
				l.off += len(sfx)
				break
			}
		}
	}

	kind := token.Int
	if isFloat {
		kind = token.Float
	}
	if emptyInt {
		l.errf(start, l.off, "invalid numeric literal: missing digits")
	}
	if emptyExp {
		l.errf(start, l.off, "invalid numeric literal: missing exponent digits")
	}
	return token.Token{Kind: kind, Span: l.span(start, l.off), Lit: &token.LitInfo{
		Base: base, EmptyInt: emptyInt, EmptyExponent: emptyExp,
		SuffixStart: suffixStart - start, Suffix: string(l.src[suffixStart:l.off]),
	}}
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func (l *Lexer) lexString(start int, raw bool) token.Token {
	quote := l.src[l.off]
	l.off++
	triple := l.peekByte() == quote && l.byteAt(l.off+1) == quote
	if triple {
		l.off += 2
	}
	terminated := false
	for l.off < len(l.src) {
		c := l.src[l.off]
		if !raw && c == '\\' && l.off+1 < len(l.src) {
			l.off += 2
			continue
		}
		if c == quote {
			if !triple {
				l.off++
				terminated = true
				break
			}
			if l.byteAt(l.off+1) == quote && l.byteAt(l.off+2) == quote {
				l.off += 3
				terminated = true
				break
			}
		}
		if c == '\n' && !triple {
			break
		}
		l.off++
	}
	if !terminated {
		l.errf(start, l.off, "unterminated string literal")
	}
	suffixStart := l.off - start
	return token.Token{Kind: token.Str, Span: l.span(start, l.off), Lit: &token.LitInfo{
		Raw: raw, Triple: triple, Terminated: terminated, SuffixStart: suffixStart,
	}}
}

// operators lists multi-byte operators longest-first so greedy matching is
// correct without backtracking.
var operators = []struct {
	lit  string
	kind token.Kind
}{
	{"<<=", token.LShiftEq}, {">>=", token.RShiftEq}, {"//=", token.DSlashEq},
	{"...", token.Ellipsis},
	{"**", token.DStar}, {"//", token.DSlash}, {"<<", token.LShift}, {">>", token.RShift},
	{"+=", token.PlusEq}, {"-=", token.MinusEq}, {"*=", token.StarEq}, {"/=", token.SlashEq},
	{"%=", token.PercentEq}, {"&=", token.AmpEq}, {"|=", token.PipeEq}, {"^=", token.CaretEq},
	{"<=", token.Le}, {">=", token.Ge}, {"==", token.Eq}, {"!=", token.Ne},
	{"->", token.Arrow}, {"?.", token.OptDot},
	{"+", token.Plus}, {"-", token.Minus}, {"*", token.Star}, {"/", token.Slash},
	{"%", token.Percent}, {"&", token.Amp}, {"|", token.Pipe}, {"^", token.Caret},
	{"~", token.Tilde}, {"<", token.Lt}, {">", token.Gt}, {"=", token.Assign},
	{"(", token.OpenParen}, {")", token.CloseParen}, {"[", token.OpenBracket},
	{"]", token.CloseBracket}, {"{", token.OpenBrace}, {"}", token.CloseBrace},
	{",", token.Comma}, {":", token.Colon}, {";", token.Semi}, {".", token.Dot},
	{"?", token.Question}, {"@", token.At},
}

func (l *Lexer) lexOperator(start int) token.Token {
	rest := string(l.src[l.off:])
	for _, op := range operators {
		if strings.HasPrefix(rest, op.lit) {
			l.off += len(op.lit)
			return token.Token{Kind: op.kind, Span: l.span(start, l.off)}
		}
	}
	// Unknown byte: consume one byte as Illegal and keep going (§4.2:
	// "the lexer never halts on a single bad lexeme").
	l.off++
	l.errf(start, l.off, "unexpected character %q", rest[:1])
	return token.Token{Kind: token.Illegal, Span: l.span(start, l.off)}
}

// Tokenize runs the lexer to completion and returns every token including
// the trailing Eof. Useful for tests and for the parser's peek cache.
func Tokenize(file source.FileID, src []byte, h *diag.Handler) []token.Token {
	l := New(file, src, h)
	var toks []token.Token
	for {
		t := l.Next()
		toks = append(toks, t)
		if t.Kind == token.Eof {
			return toks
		}
	}
}
