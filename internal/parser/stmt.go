package parser

import (
	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/source"
	"github.com/kcl-lang/compiler/internal/token"
)

func (p *Parser) parseStmt() ast.Stmt {
	switch p.peek().Kind {
	case token.KwImport:
		return p.parseImport()
	case token.KwSchema:
		return p.parseSchema(false)
	case token.KwMixin:
		p.advance()
		return p.parseSchema(true)
	case token.KwRule:
		return p.parseRule()
	case token.KwIf:
		return p.parseIf()
	case token.KwAssert:
		return p.parseAssert()
	case token.KwType:
		return p.parseTypeAlias()
	default:
		return p.parseAssignOrExprStmt()
	}
}

func (p *Parser) parseImport() ast.Stmt {
	lo := p.peek().Span
	p.advance() // import
	path := p.parseDottedPath()
	alias := ""
	if _, ok := p.accept(token.KwAs); ok {
		p.expect(token.Ident)
		alias = p.identText(p.prevTok())
	}
	return &ast.ImportStmt{Base: p.baseFrom(lo), Path: path, Alias: alias}
}

func (p *Parser) prevTok() token.Token { return p.toks[p.pos-1] }

// identText reads the source text for an already-consumed Ident token. The
// parser keeps only spans, not strings, in the token stream; callers with
// access to file content should prefer that, but for identifier text (used
// pervasively) we keep a small source slice handle on the parser.
func (p *Parser) identText(t token.Token) string {
	if p.src == nil {
		return ""
	}
	return string(p.src[t.Span.Lo:t.Span.Hi])
}

func (p *Parser) parseDottedPath() string {
	s := p.identText(p.expect(token.Ident))
	for p.at(token.Dot) {
		p.advance()
		s += "." + p.identText(p.expect(token.Ident))
	}
	return s
}

func (p *Parser) baseFrom(lo source.Span) ast.Base {
	return ast.Base{Span: source.Span{File: p.file, Lo: lo.Lo, Hi: p.prevSpan().Hi}, ID: p.ids.Next()}
}

func (p *Parser) parseSchema(isMixin bool) ast.Stmt {
	lo := p.peek().Span
	p.advance() // schema
	name := p.identText(p.expect(token.Ident))
	s := &ast.SchemaStmt{Name: name, IsMixin: isMixin}
	if p.at(token.OpenParen) {
		p.advance()
		if !p.at(token.CloseParen) {
			bn := p.identText(p.expect(token.Ident))
			s.Base_ = &ast.NamedTypeExpr{Name: bn}
		}
		p.expect(token.CloseParen)
	}
	if p.at(token.OpenBracket) {
		p.advance()
		for !p.at(token.CloseBracket) && !p.at(token.Eof) {
			mn := p.identText(p.expect(token.Ident))
			s.Mixins = append(s.Mixins, &ast.NamedTypeExpr{Name: mn})
			if !p.at(token.CloseBracket) {
				p.expect(token.Comma)
			}
		}
		p.expect(token.CloseBracket)
	}
	p.expect(token.Colon)
	p.skipNewlines()
	p.expectIndentBlock(func() {
		for {
			if p.at(token.KwCheck) {
				p.advance()
				p.expect(token.Colon)
				p.skipNewlines()
				p.expectIndentBlock(func() {
					for p.exprStartsHere() {
						test := p.parseExpr()
						var msg ast.Expr
						if p.at(token.Comma) {
							p.advance()
							msg = p.parseExpr()
						}
						s.Checks = append(s.Checks, ast.CheckExpr{Test: test, Msg: msg})
						p.skipNewlines()
					}
				})
				continue
			}
			if p.at(token.Ident) && (p.peekN(1).Kind == token.Colon || p.peekN(1).Kind == token.Question) {
				s.Attrs = append(s.Attrs, p.parseSchemaAttr())
				p.skipNewlines()
				continue
			}
			break
		}
	})
	return &ast.SchemaStmt{
		Base: p.baseFrom(lo), Name: name, IsMixin: isMixin, Base_: s.Base_, Mixins: s.Mixins,
		Attrs: s.Attrs, Checks: s.Checks, Index: s.Index,
	}
}

func (p *Parser) parseSchemaAttr() *ast.SchemaAttr {
	lo := p.peek().Span
	name := p.identText(p.expect(token.Ident))
	optional := false
	if _, ok := p.accept(token.Question); ok {
		optional = true
	}
	p.expect(token.Colon)
	ty := p.parseTypeExpr()
	attr := &ast.SchemaAttr{Name: name, Type: ty, Optional: optional}
	if _, ok := p.accept(token.Assign); ok {
		attr.HasDefault = true
		attr.Default = p.parseExpr()
	}
	attr.Base = p.baseFrom(lo)
	return attr
}

func (p *Parser) parseRule() ast.Stmt {
	lo := p.peek().Span
	p.advance() // rule
	name := p.identText(p.expect(token.Ident))
	r := &ast.RuleStmt{Name: name}
	if p.at(token.OpenParen) {
		p.advance()
		if !p.at(token.CloseParen) {
			bn := p.identText(p.expect(token.Ident))
			r.Base_ = &ast.NamedTypeExpr{Name: bn}
		}
		p.expect(token.CloseParen)
	}
	p.expect(token.Colon)
	p.skipNewlines()
	p.expectIndentBlock(func() {
		if p.at(token.KwCheck) {
			p.advance()
			p.expect(token.Colon)
			p.skipNewlines()
			p.expectIndentBlock(func() {
				for p.exprStartsHere() {
					test := p.parseExpr()
					r.Checks = append(r.Checks, ast.CheckExpr{Test: test})
					p.skipNewlines()
				}
			})
		}
	})
	r.Base = p.baseFrom(lo)
	return r
}

func (p *Parser) parseIf() ast.Stmt {
	lo := p.peek().Span
	p.advance() // if
	cond := p.parseExpr()
	p.expect(token.Colon)
	p.skipNewlines()
	body := p.parseBlock()
	stmt := &ast.IfStmt{Cond: cond, Body: body}
	if p.at(token.KwElif) {
		stmt.Else = []ast.Stmt{p.parseElif()}
	} else if _, ok := p.accept(token.KwElse); ok {
		p.expect(token.Colon)
		p.skipNewlines()
		stmt.Else = p.parseBlock()
	}
	stmt.Base = p.baseFrom(lo)
	return stmt
}

func (p *Parser) parseElif() ast.Stmt {
	lo := p.peek().Span
	p.advance() // elif
	cond := p.parseExpr()
	p.expect(token.Colon)
	p.skipNewlines()
	body := p.parseBlock()
	stmt := &ast.IfStmt{Cond: cond, Body: body}
	if p.at(token.KwElif) {
		stmt.Else = []ast.Stmt{p.parseElif()}
	} else if _, ok := p.accept(token.KwElse); ok {
		p.expect(token.Colon)
		p.skipNewlines()
		stmt.Else = p.parseBlock()
	}
	stmt.Base = p.baseFrom(lo)
	return stmt
}

// parseBlock parses an indented statement block following a ':'.
func (p *Parser) parseBlock() []ast.Stmt {
	var body []ast.Stmt
	p.expectIndentBlock(func() {
		for p.stmtStartsHere() {
			mark := p.pos
			body = append(body, p.parseStmt())
			if p.pos == mark {
				p.advance()
			}
			p.skipNewlines()
		}
	})
	return body
}

// expectIndentBlock consumes an Indent, runs body, then consumes the
// matching Dedent. If the expected Indent is missing the block is parsed
// as a single logical line (inline form), matching KCL's tolerance for
// `if x: y = 1`.
func (p *Parser) expectIndentBlock(body func()) {
	if _, ok := p.accept(token.Indent); ok {
		body()
		p.accept(token.Dedent)
		return
	}
	body()
}

func (p *Parser) stmtStartsHere() bool {
	switch p.peek().Kind {
	case token.Dedent, token.Eof:
		return false
	default:
		return true
	}
}

func (p *Parser) exprStartsHere() bool {
	switch p.peek().Kind {
	case token.Dedent, token.Eof, token.KwCheck:
		return false
	default:
		return true
	}
}

func (p *Parser) parseAssert() ast.Stmt {
	lo := p.peek().Span
	p.advance() // assert
	test := p.parseExpr()
	a := &ast.AssertStmt{Test: test}
	if _, ok := p.accept(token.Comma); ok {
		a.Msg = p.parseExpr()
	}
	if _, ok := p.accept(token.KwIf); ok {
		a.If = p.parseExpr()
	}
	a.Base = p.baseFrom(lo)
	return a
}

func (p *Parser) parseTypeAlias() ast.Stmt {
	lo := p.peek().Span
	p.advance() // type
	name := p.identText(p.expect(token.Ident))
	p.expect(token.Assign)
	ty := p.parseTypeExpr()
	return &ast.TypeAliasStmt{Base: p.baseFrom(lo), Name: name, Type: ty}
}

// parseAssignOrExprStmt handles assignment (possibly multi-target,
// possibly type-annotated), augmented assignment, unification, and bare
// expression statements, per §3/§4.4.
func (p *Parser) parseAssignOrExprStmt() ast.Stmt {
	lo := p.peek().Span
	first := p.parseExpr()

	if p.at(token.Colon) && isSimpleTarget(first) {
		// Either `name: T` / `name: T = v` (declared-type assign), or
		// `name: Schema { ... }` (unification statement).
		save := p.pos
		p.advance() // :
		if sch, ok := p.tryParseSchemaExprAsUnification(); ok {
			return &ast.UnificationStmt{Base: p.baseFrom(lo), Target: asIdent(first), Value: sch}
		}
		p.pos = save
		p.advance() // :
		ty := p.parseTypeExpr()
		as := &ast.AssignStmt{Targets: []ast.Expr{first}, Type: ty}
		if _, ok := p.accept(token.Assign); ok {
			as.Value = p.parseExpr()
		}
		as.Base = p.baseFrom(lo)
		return as
	}

	if augOp, ok := p.acceptAugOp(); ok {
		val := p.parseExpr()
		return &ast.AugAssignStmt{Base: p.baseFrom(lo), Target: first, Op: augOp, Value: val}
	}

	if p.at(token.Assign) {
		targets := []ast.Expr{first}
		var value ast.Expr
		for {
			p.advance() // =
			e := p.parseExpr()
			if p.at(token.Assign) {
				targets = append(targets, e)
				continue
			}
			value = e
			break
		}
		return &ast.AssignStmt{Base: p.baseFrom(lo), Targets: targets, Value: value}
	}

	return &ast.ExprStmt{Base: p.baseFrom(lo), Value: first}
}

func isSimpleTarget(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Identifier, *ast.Selector, *ast.Subscript:
		return true
	}
	return false
}

func asIdent(e ast.Expr) *ast.Identifier {
	if id, ok := e.(*ast.Identifier); ok {
		return id
	}
	return &ast.Identifier{}
}

// tryParseSchemaExprAsUnification attempts to parse `SchemaName { ... }`
// at the current position without committing; callers must reset p.pos on
// failure.
func (p *Parser) tryParseSchemaExprAsUnification() (*ast.SchemaExpr, bool) {
	if !p.at(token.Ident) {
		return nil, false
	}
	e := p.parseAtomTrailers(p.parseAtom())
	sch, ok := e.(*ast.SchemaExpr)
	return sch, ok
}

func (p *Parser) acceptAugOp() (token.Kind, bool) {
	switch p.peek().Kind {
	case token.PlusEq, token.MinusEq, token.StarEq, token.SlashEq, token.PercentEq,
		token.DSlashEq, token.AmpEq, token.PipeEq, token.CaretEq, token.LShiftEq, token.RShiftEq:
		k := p.peek().Kind
		p.advance()
		return k, true
	}
	return 0, false
}
