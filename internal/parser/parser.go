// Package parser implements the LL(1) recursive-descent parser described
// in §4.3: unlimited 1-token lookahead via a peek cache, precedence
// climbing for expressions, and marker-based error recovery. It plays the
// role the teacher delegates to go/parser (a stdlib the teacher's own
// Go-source interpreter can simply reuse); KCL's grammar is not Go, so
// this parser is hand-written, following the teacher's general practice
// of pairing a hand-rolled core with small helper passes.
package parser

import (
	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/diag"
	"github.com/kcl-lang/compiler/internal/lexer"
	"github.com/kcl-lang/compiler/internal/source"
	"github.com/kcl-lang/compiler/internal/token"
)

// Parser holds a buffered token stream (the "peek cache") over one file.
type Parser struct {
	file   source.FileID
	src    []byte
	toks   []token.Token // filtered: Space/Comment/LineContinue and bracketed Indent/Dedent removed, comments kept aside
	pos    int
	h      *diag.Handler
	ids    *ast.IDGen
	comments []*ast.Comment
}

// New tokenizes src with the lexer and returns a Parser ready to parse one
// Module. Indentation inside (), [] and {} is not significant: an Indent
// emitted there, and the Dedent that closes it, are dropped.
func New(file source.FileID, src []byte, h *diag.Handler, ids *ast.IDGen) *Parser {
	raw := lexer.Tokenize(file, src, h)
	p := &Parser{file: file, src: src, h: h, ids: ids}
	depth, hidden := 0, 0 // bracket nesting; Indents dropped inside brackets
	for _, t := range raw {
		switch t.Kind {
		case token.Space, token.LineContinue:
			continue
		case token.OpenParen, token.OpenBracket, token.OpenBrace:
			depth++
		case token.CloseParen, token.CloseBracket, token.CloseBrace:
			depth--
		case token.Indent:
			if depth > 0 {
				hidden++
				continue
			}
		case token.Dedent:
			if hidden > 0 {
				hidden--
				continue
			}
		case token.Comment:
			p.comments = append(p.comments, &ast.Comment{
				Base: ast.Base{Span: t.Span, ID: ids.Next()},
				Text: "", DocStyle: false,
			})
			continue
		}
		p.toks = append(p.toks, t)
	}
	if len(p.toks) == 0 || p.toks[len(p.toks)-1].Kind != token.Eof {
		p.toks = append(p.toks, token.Token{Kind: token.Eof})
	}
	return p
}

func (p *Parser) base(lo source.Span) ast.Base {
	return ast.Base{Span: source.Span{File: p.file, Lo: lo.Lo, Hi: p.prevSpan().Hi}, ID: p.ids.Next()}
}

func (p *Parser) peek() token.Token  { return p.toks[p.pos] }
func (p *Parser) peekN(n int) token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}
func (p *Parser) prevSpan() source.Span {
	if p.pos == 0 {
		return p.toks[0].Span
	}
	return p.toks[p.pos-1].Span
}

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if t.Kind != token.Eof {
		p.pos++
	}
	return t
}

func (p *Parser) at(k token.Kind) bool { return p.peek().Kind == k }

func (p *Parser) accept(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	return token.Token{}, false
}

func (p *Parser) expect(k token.Kind) token.Token {
	if t, ok := p.accept(k); ok {
		return t
	}
	p.errf("expected %s got %s", k, p.peek().Kind)
	return token.Token{Kind: k, Span: p.peek().Span}
}

func (p *Parser) errf(format string, args ...interface{}) {
	p.h.Errorf(p.peek().Span, format, args...)
}

// skipNewlines consumes any run of Newline/Indent(0)-equivalent filler
// tokens the grammar treats as insignificant between statements.
func (p *Parser) skipNewlines() {
	for p.at(token.Newline) || p.at(token.Semi) {
		p.advance()
	}
}

// recoverExpr implements the "drop marker" recovery of §4.3: if parsing
// produced no advance, emit a diagnostic and consume one token to
// guarantee progress.
func (p *Parser) recoverExpr(mark int) {
	if p.pos == mark {
		p.errf("expected expression got %s", p.peek().Kind)
		if !p.at(token.Eof) {
			p.advance()
		}
	}
}

// ParseModule parses a whole file into an *ast.Module.
func (p *Parser) ParseModule(filename, pkg string) *ast.Module {
	lo := p.peek().Span
	m := &ast.Module{Filename: filename, Pkg: pkg, Comments: p.comments}
	p.skipNewlines()
	for !p.at(token.Eof) {
		if p.at(token.Indent) || p.at(token.Dedent) {
			p.advance()
			continue
		}
		mark := p.pos
		s := p.parseStmt()
		if s != nil {
			m.Body = append(m.Body, s)
		}
		if p.pos == mark {
			p.advance()
		}
		p.skipNewlines()
	}
	m.Base = ast.Base{Span: source.Span{File: p.file, Lo: lo.Lo, Hi: p.prevSpan().Hi}, ID: p.ids.Next()}
	return m
}
