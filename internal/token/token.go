// Package token defines the flat token kinds produced by the lexer and
// consumed by the parser.
package token

import "github.com/kcl-lang/compiler/internal/source"

// Kind is the tag of a Token.
type Kind int

const (
	Illegal Kind = iota
	Eof

	Ident
	Int
	Float
	Str

	// Name constants are lexed as keywords but carry literal semantics.
	KwNone
	KwTrue
	KwFalse
	KwUndefined

	// Structural / whitespace events.
	Newline
	Indent
	Dedent
	Space
	LineContinue
	Comment

	// Delimiters.
	OpenParen
	CloseParen
	OpenBracket
	CloseBracket
	OpenBrace
	CloseBrace

	// Punctuation.
	Comma
	Colon
	Semi
	Dot
	Ellipsis
	Question
	At

	// Operators.
	Assign     // =
	ColonEq    // := (unification shorthand in expr context, reserved)
	PlusEq     // +=
	MinusEq    // -=
	StarEq     // *=
	SlashEq    // /=
	PercentEq  // %=
	DSlashEq   // //=
	AmpEq      // &=
	PipeEq     // |=
	CaretEq    // ^=
	LShiftEq   // <<=
	RShiftEq   // >>=
	Plus       // +
	Minus      // -
	Star       // *
	Slash      // /
	DSlash     // //
	Percent    // %
	DStar      // **
	Amp        // &
	Pipe       // |
	Caret      // ^
	Tilde      // ~
	LShift     // <<
	RShift     // >>
	Lt         // <
	Gt         // >
	Le         // <=
	Ge         // >=
	Eq         // ==
	Ne         // !=
	Arrow      // ->
	OptDot     // ?.

	// Keywords.
	KwAnd
	KwOr
	KwNot
	KwIs
	KwIn
	KwAs
	KwIf
	KwElif
	KwElse
	KwImport
	KwSchema
	KwMixin
	KwProtocol
	KwRule
	KwCheck
	KwAssert
	KwAll
	KwAny
	KwFilter
	KwMap
	KwLambda
	KwFor
	KwType
)

var names = map[Kind]string{
	Illegal: "ILLEGAL", Eof: "EOF", Ident: "IDENT", Int: "INT", Float: "FLOAT", Str: "STR",
	KwNone: "None", KwTrue: "True", KwFalse: "False", KwUndefined: "Undefined",
	Newline: "NEWLINE", Indent: "INDENT", Dedent: "DEDENT", Space: "SPACE",
	LineContinue: "LINECONT", Comment: "COMMENT",
	OpenParen: "(", CloseParen: ")", OpenBracket: "[", CloseBracket: "]",
	OpenBrace: "{", CloseBrace: "}",
	Comma: ",", Colon: ":", Semi: ";", Dot: ".", Ellipsis: "...", Question: "?", At: "@",
	Assign: "=", PlusEq: "+=", MinusEq: "-=", StarEq: "*=", SlashEq: "/=", PercentEq: "%=",
	DSlashEq: "//=", AmpEq: "&=", PipeEq: "|=", CaretEq: "^=", LShiftEq: "<<=", RShiftEq: ">>=",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", DSlash: "//", Percent: "%", DStar: "**",
	Amp: "&", Pipe: "|", Caret: "^", Tilde: "~", LShift: "<<", RShift: ">>",
	Lt: "<", Gt: ">", Le: "<=", Ge: ">=", Eq: "==", Ne: "!=", Arrow: "->", OptDot: "?.",
	KwAnd: "and", KwOr: "or", KwNot: "not", KwIs: "is", KwIn: "in", KwAs: "as",
	KwIf: "if", KwElif: "elif", KwElse: "else", KwImport: "import", KwSchema: "schema",
	KwMixin: "mixin", KwProtocol: "protocol", KwRule: "rule", KwCheck: "check",
	KwAssert: "assert", KwAll: "all", KwAny: "any", KwFilter: "filter", KwMap: "map",
	KwLambda: "lambda", KwFor: "for", KwType: "type",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "?"
}

// Keywords maps the literal spelling of every reserved word to its Kind.
var Keywords = map[string]Kind{
	"None": KwNone, "True": KwTrue, "False": KwFalse, "Undefined": KwUndefined,
	"and": KwAnd, "or": KwOr, "not": KwNot, "is": KwIs, "in": KwIn, "as": KwAs,
	"if": KwIf, "elif": KwElif, "else": KwElse, "import": KwImport,
	"schema": KwSchema, "mixin": KwMixin, "protocol": KwProtocol, "rule": KwRule,
	"check": KwCheck, "assert": KwAssert, "all": KwAll, "any": KwAny,
	"filter": KwFilter, "map": KwMap, "lambda": KwLambda, "for": KwFor, "type": KwType,
}

// NumBase is the base of a numeric literal.
type NumBase int

const (
	Decimal NumBase = iota
	Binary
	Octal
	Hex
)

// LitInfo carries the extra flags the spec requires for literal tokens
// beyond a plain Kind+Span: raw/triple-quote markers for strings, base and
// empty-digit markers for numbers, and the binary-unit suffix both share.
type LitInfo struct {
	Base           NumBase
	Raw            bool
	Triple         bool
	Terminated     bool
	EmptyInt       bool
	EmptyExponent  bool
	SuffixStart    int // byte index within the literal where the trailing suffix begins, the literal's length if none
	Suffix         string
}

// Token is one lexeme: its kind, its span, and (for literals) extra info.
type Token struct {
	Kind Kind
	Span source.Span
	Lit  *LitInfo // non-nil only for Int, Float, Str
	N    int      // Indent/Dedent delta, or count for comment doc markers
}
