package parser

import (
	"strconv"
	"strings"

	"github.com/kcl-lang/compiler/internal/ast"
	"github.com/kcl-lang/compiler/internal/token"
)

// precedence table, lowest to highest, per §4.3.
const (
	precBitOr = iota
	precBitXor
	precBitAnd
	precShift
	precAdd
	precMul
)

func binPrec(k token.Kind) (int, bool) {
	switch k {
	case token.Pipe:
		return precBitOr, true
	case token.Caret:
		return precBitXor, true
	case token.Amp:
		return precBitAnd, true
	case token.LShift, token.RShift:
		return precShift, true
	case token.Plus, token.Minus:
		return precAdd, true
	case token.Star, token.Slash, token.DSlash, token.Percent:
		return precMul, true
	}
	return 0, false
}

func isCompareStart(k token.Kind) bool {
	switch k {
	case token.Lt, token.Gt, token.Le, token.Ge, token.Eq, token.Ne, token.KwIs, token.KwIn, token.KwNot:
		return true
	}
	return false
}

// parseExpr parses a full expression, including the if/else ternary form
// which binds looser than everything else in the table.
func (p *Parser) parseExpr() ast.Expr {
	e := p.parseOr()
	if _, ok := p.accept(token.KwIf); ok {
		cond := p.parseOr()
		p.expect(token.KwElse)
		els := p.parseExpr()
		return &ast.If{Base: p.baseFrom(e.Pos()), Cond: cond, Then: e, Else: els}
	}
	return e
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.at(token.KwOr) {
		lo := left.Pos()
		p.advance()
		right := p.parseAnd()
		left = &ast.Binary{Base: p.baseFrom(lo), Op: token.KwOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseNot()
	for p.at(token.KwAnd) {
		lo := left.Pos()
		p.advance()
		right := p.parseNot()
		left = &ast.Binary{Base: p.baseFrom(lo), Op: token.KwAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseNot() ast.Expr {
	if p.at(token.KwNot) && p.peekN(1).Kind != token.KwIn {
		lo := p.peek().Span
		p.advance()
		v := p.parseNot()
		return &ast.Unary{Base: p.baseFrom(lo), Op: token.KwNot, Value: v}
	}
	return p.parseCompare()
}

func (p *Parser) parseCompare() ast.Expr {
	left := p.parseBinLevel(precBitOr)
	var ops []token.Kind
	var notIn []bool
	var rest []ast.Expr
	for isCompareStart(p.peek().Kind) {
		neg := false
		if p.at(token.KwNot) && p.peekN(1).Kind == token.KwIn {
			neg = true
			p.advance()
		}
		op := p.peek().Kind
		p.advance()
		if op == token.KwIs && p.at(token.KwNot) {
			p.advance()
			neg = true
		}
		r := p.parseBinLevel(precBitOr)
		ops = append(ops, op)
		notIn = append(notIn, neg)
		rest = append(rest, r)
	}
	if len(ops) == 0 {
		return left
	}
	return &ast.Compare{Base: p.baseFrom(left.Pos()), Left: left, Ops: ops, NotIn: notIn, Rest: rest}
}

// parseBinLevel implements precedence climbing over the binary-operator
// table (| ^ & << >> + - * / // %), bottoming out at parseUnary.
func (p *Parser) parseBinLevel(level int) ast.Expr {
	if level > precMul {
		return p.parseUnary()
	}
	left := p.parseBinLevel(level + 1)
	for {
		prec, ok := binPrec(p.peek().Kind)
		if !ok || prec != level {
			return left
		}
		op := p.peek().Kind
		p.advance()
		right := p.parseBinLevel(level + 1)
		left = &ast.Binary{Base: p.baseFrom(left.Pos()), Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.peek().Kind {
	case token.Plus, token.Minus, token.Tilde:
		lo := p.peek().Span
		op := p.peek().Kind
		p.advance()
		v := p.parseUnary()
		return &ast.Unary{Base: p.baseFrom(lo), Op: op, Value: v}
	}
	return p.parsePow()
}

// parsePow handles right-associative `**`, binding tighter than unary on
// its right operand (so `-2**2` is `-(2**2)`).
func (p *Parser) parsePow() ast.Expr {
	left := p.parseAs()
	if p.at(token.DStar) {
		p.advance()
		right := p.parseUnary()
		return &ast.Binary{Base: p.baseFrom(left.Pos()), Op: token.DStar, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAs() ast.Expr {
	left := p.parsePostfix()
	for p.at(token.KwAs) {
		p.advance()
		ty := p.parseTypeExpr()
		left = &ast.Binary{Base: p.baseFrom(left.Pos()), Op: token.KwAs, Left: left, Right: tyAsExpr(ty)}
	}
	return left
}

func tyAsExpr(ty ast.TypeExpr) ast.Expr {
	if e, ok := ty.(ast.Expr); ok {
		return e
	}
	return &ast.NamedTypeExpr{}
}

func (p *Parser) parsePostfix() ast.Expr {
	return p.parseAtomTrailers(p.parseAtom())
}

func (p *Parser) parseAtomTrailers(e ast.Expr) ast.Expr {
	for {
		switch p.peek().Kind {
		case token.Dot:
			p.advance()
			name := p.identText(p.expect(token.Ident))
			e = &ast.Selector{Base: p.baseFrom(e.Pos()), Value: e, Attr: name}
		case token.OptDot:
			p.advance()
			name := p.identText(p.expect(token.Ident))
			e = &ast.Selector{Base: p.baseFrom(e.Pos()), Value: e, Attr: name, Optional: true}
		case token.OpenParen:
			e = p.parseCall(e)
		case token.OpenBracket:
			e = p.parseSubscript(e)
		case token.OpenBrace:
			if id, ok := e.(*ast.Identifier); ok {
				e = p.parseSchemaExprTail(id)
				continue
			}
			return e
		default:
			return e
		}
	}
}

func (p *Parser) parseCall(fn ast.Expr) ast.Expr {
	p.expect(token.OpenParen)
	var args []ast.CallArg
	for !p.at(token.CloseParen) && !p.at(token.Eof) {
		if p.at(token.Ident) && p.peekN(1).Kind == token.Assign {
			name := p.identText(p.advance())
			p.advance() // =
			args = append(args, ast.CallArg{Name: name, Value: p.parseExpr()})
		} else {
			args = append(args, ast.CallArg{Value: p.parseExpr()})
		}
		if !p.at(token.CloseParen) {
			p.expect(token.Comma)
		}
	}
	p.expect(token.CloseParen)
	return &ast.Call{Base: p.baseFrom(fn.Pos()), Func: fn, Args: args}
}

func (p *Parser) parseSubscript(v ast.Expr) ast.Expr {
	lo := v.Pos()
	p.expect(token.OpenBracket)
	sub := &ast.Subscript{Value: v}
	if p.at(token.Colon) {
		sub.Slice = true
		p.advance()
		sub.Hi, sub.Step = p.parseSliceTail()
	} else {
		first := p.parseExpr()
		if p.at(token.Colon) {
			sub.Slice = true
			sub.Lo = first
			p.advance()
			sub.Hi, sub.Step = p.parseSliceTail()
		} else {
			sub.Index = first
		}
	}
	p.expect(token.CloseBracket)
	sub.Base = p.baseFrom(lo)
	return sub
}

func (p *Parser) parseSliceTail() (hi, step ast.Expr) {
	if !p.at(token.Colon) && !p.at(token.CloseBracket) {
		hi = p.parseExpr()
	}
	if _, ok := p.accept(token.Colon); ok {
		if !p.at(token.CloseBracket) {
			step = p.parseExpr()
		}
	}
	return
}

func (p *Parser) parseSchemaExprTail(name *ast.Identifier) ast.Expr {
	cfg := p.parseConfigExpr()
	return &ast.SchemaExpr{Base: p.baseFrom(name.Pos()), Name: name, Config: cfg}
}

func (p *Parser) parseConfigExpr() *ast.ConfigExpr {
	lo := p.peek().Span
	p.expect(token.OpenBrace)
	p.skipNewlines()
	cfg := &ast.ConfigExpr{}
	for !p.at(token.CloseBrace) && !p.at(token.Eof) {
		cfg.Entries = append(cfg.Entries, p.parseConfigEntry())
		if p.at(token.Comma) {
			p.advance()
		}
		p.skipNewlines()
	}
	p.expect(token.CloseBrace)
	cfg.Base = p.baseFrom(lo)
	return cfg
}

func (p *Parser) parseConfigEntry() ast.ConfigEntry {
	if p.at(token.Ellipsis) {
		p.advance()
		return ast.ConfigEntry{InsertIdx: -1, Spread: p.parseExpr()}
	}
	key := p.parseConfigKey()
	entry := ast.ConfigEntry{Key: key, InsertIdx: -1}
	switch p.peek().Kind {
	case token.Colon:
		p.advance()
		entry.Op = ast.OpUnion
	case token.Assign:
		p.advance()
		entry.Op = ast.OpOverride
	case token.PlusEq:
		p.advance()
		entry.Op = ast.OpInsert
	default:
		p.errf("expected ':' '=' or '+=' in config entry, got %s", p.peek().Kind)
	}
	entry.Value = p.parseExpr()
	return entry
}

func (p *Parser) parseConfigKey() ast.Expr {
	if p.at(token.Str) {
		return p.parseAtom()
	}
	lo := p.peek().Span
	name := p.identText(p.expect(token.Ident))
	e := ast.Expr(&ast.Identifier{Base: p.baseFrom(lo), Names: []string{name}})
	for p.at(token.Dot) {
		p.advance()
		n2 := p.identText(p.expect(token.Ident))
		e = &ast.Selector{Base: p.baseFrom(e.Pos()), Value: e, Attr: n2}
	}
	return e
}

func (p *Parser) parseAtom() ast.Expr {
	t := p.peek()
	switch t.Kind {
	case token.Ident:
		p.advance()
		return &ast.Identifier{Base: p.baseFrom(t.Span), Names: []string{p.identText(t)}}
	case token.Int, token.Float:
		return p.parseNumber()
	case token.Str:
		return p.parseStringLit()
	case token.KwNone:
		p.advance()
		return &ast.NameConstant{Base: p.baseFrom(t.Span), Kind: ast.ConstNone}
	case token.KwTrue:
		p.advance()
		return &ast.NameConstant{Base: p.baseFrom(t.Span), Kind: ast.ConstTrue}
	case token.KwFalse:
		p.advance()
		return &ast.NameConstant{Base: p.baseFrom(t.Span), Kind: ast.ConstFalse}
	case token.KwUndefined:
		p.advance()
		return &ast.NameConstant{Base: p.baseFrom(t.Span), Kind: ast.ConstUndefined}
	case token.OpenParen:
		p.advance()
		p.skipNewlines()
		e := p.parseExpr()
		p.skipNewlines()
		p.expect(token.CloseParen)
		return e
	case token.OpenBracket:
		return p.parseListOrComp()
	case token.OpenBrace:
		return p.parseConfigOrComp()
	case token.KwLambda:
		return p.parseLambda()
	case token.KwAll, token.KwAny, token.KwFilter, token.KwMap:
		return p.parseQuantifier()
	default:
		mark := p.pos
		p.recoverExpr(mark)
		return &ast.Identifier{Base: p.baseFrom(t.Span)}
	}
}

func (p *Parser) parseNumber() ast.Expr {
	t := p.advance()
	raw := string(p.src[t.Span.Lo:t.Span.Hi])
	n := &ast.NumberLit{Base: p.baseFrom(t.Span), Raw: raw}
	digits := raw
	if t.Lit != nil {
		n.Suffix = t.Lit.Suffix
		if t.Lit.SuffixStart > 0 && t.Lit.SuffixStart <= len(raw) {
			digits = raw[:t.Lit.SuffixStart]
		}
	}
	if t.Kind == token.Float {
		n.IsFloat = true
		n.FloatVal, _ = strconv.ParseFloat(digits, 64)
		return n
	}
	base := 10
	if t.Lit != nil {
		switch t.Lit.Base {
		case token.Hex:
			base = 16
			digits = strings.TrimPrefix(strings.TrimPrefix(digits, "0x"), "0X")
		case token.Binary:
			base = 2
			digits = strings.TrimPrefix(strings.TrimPrefix(digits, "0b"), "0B")
		case token.Octal:
			base = 8
			digits = strings.TrimPrefix(strings.TrimPrefix(digits, "0o"), "0O")
		}
	}
	n.IntVal, _ = strconv.ParseInt(digits, base, 64)
	return n
}

func (p *Parser) parseStringLit() ast.Expr {
	t := p.advance()
	raw := string(p.src[t.Span.Lo:t.Span.Hi])
	value, hasBraces := decodeStringLiteral(raw, t.Lit)
	if hasBraces {
		return p.parseJoinedString(t, raw)
	}
	return &ast.StringLit{
		Base: p.baseFrom(t.Span), Value: value,
		Raw: t.Lit != nil && t.Lit.Raw, Triple: t.Lit != nil && t.Lit.Triple,
	}
}

// decodeStringLiteral strips quotes (and the raw prefix) and reports
// whether the content contains a `{expr}` interpolation marker, in which
// case the caller re-parses it as a joined string.
func decodeStringLiteral(raw string, info *token.LitInfo) (string, bool) {
	s := raw
	if info != nil && info.Raw {
		s = strings.TrimPrefix(s, "r")
		s = strings.TrimPrefix(s, "R")
	}
	qlen := 1
	if info != nil && info.Triple {
		qlen = 3
	}
	inner := s
	if len(s) >= 2*qlen {
		inner = s[qlen : len(s)-qlen]
	}
	return inner, strings.ContainsRune(inner, '{')
}

// parseJoinedString splits inner content on balanced `{ }` markers and
// recursively parses each embedded expression with a fresh sub-Parser
// (§3: joined string / f-string).
func (p *Parser) parseJoinedString(t token.Token, raw string) ast.Expr {
	inner, _ := decodeStringLiteral(raw, t.Lit)
	js := &ast.JoinedString{Base: p.baseFrom(t.Span)}
	i := 0
	for i < len(inner) {
		j := strings.IndexByte(inner[i:], '{')
		if j < 0 {
			js.Parts = append(js.Parts, ast.FStringPart{Text: inner[i:]})
			break
		}
		if j > 0 {
			js.Parts = append(js.Parts, ast.FStringPart{Text: inner[i : i+j]})
		}
		depth := 1
		k := i + j + 1
		for k < len(inner) && depth > 0 {
			switch inner[k] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth == 0 {
				break
			}
			k++
		}
		exprSrc := inner[i+j+1 : k]
		spec := ""
		if ci := strings.LastIndex(exprSrc, ":"); ci >= 0 && !strings.ContainsAny(exprSrc[ci:], "()[]{}") {
			spec = exprSrc[ci+1:]
			exprSrc = exprSrc[:ci]
		}
		sub := New(t.Span.File, []byte(exprSrc), p.h, p.ids)
		part := ast.FStringPart{Expr: sub.parseExpr(), Spec: spec}
		js.Parts = append(js.Parts, part)
		i = k + 1
	}
	return js
}

func (p *Parser) parseListOrComp() ast.Expr {
	lo := p.peek().Span
	p.expect(token.OpenBracket)
	p.skipNewlines()
	if p.at(token.CloseBracket) {
		p.advance()
		return &ast.ListExpr{Base: p.baseFrom(lo)}
	}
	first := p.parseExprOrStar()
	if p.at(token.KwFor) {
		clauses := p.parseCompClauses()
		p.skipNewlines()
		p.expect(token.CloseBracket)
		return &ast.ListComp{Base: p.baseFrom(lo), Elt: first, Clauses: clauses}
	}
	elts := []ast.Expr{first}
	for p.at(token.Comma) {
		p.advance()
		p.skipNewlines()
		if p.at(token.CloseBracket) {
			break
		}
		elts = append(elts, p.parseExprOrStar())
	}
	p.skipNewlines()
	p.expect(token.CloseBracket)
	return &ast.ListExpr{Base: p.baseFrom(lo), Elts: elts}
}

func (p *Parser) parseExprOrStar() ast.Expr {
	if p.at(token.Ellipsis) {
		lo := p.peek().Span
		p.advance()
		return &ast.Starred{Base: p.baseFrom(lo), Value: p.parseExpr()}
	}
	return p.parseExpr()
}

func (p *Parser) parseCompClauses() []ast.CompClause {
	var clauses []ast.CompClause
	for p.at(token.KwFor) {
		p.advance()
		var targets []ast.Expr
		targets = append(targets, p.parseAtom())
		for p.at(token.Comma) {
			p.advance()
			targets = append(targets, p.parseAtom())
		}
		p.expect(token.KwIn)
		iter := p.parseBinLevel(precBitOr)
		var ifs []ast.Expr
		for p.at(token.KwIf) {
			p.advance()
			ifs = append(ifs, p.parseBinLevel(precBitOr))
		}
		clauses = append(clauses, ast.CompClause{Targets: targets, Iter: iter, Ifs: ifs})
	}
	return clauses
}

func (p *Parser) parseConfigOrComp() ast.Expr {
	lo := p.peek().Span
	p.expect(token.OpenBrace)
	p.skipNewlines()
	if p.at(token.CloseBrace) {
		p.advance()
		return &ast.ConfigExpr{Base: p.baseFrom(lo)}
	}
	save := p.pos
	key := p.parseConfigKey()
	if p.at(token.Colon) {
		p.advance()
		val := p.parseExpr()
		if p.at(token.KwFor) {
			clauses := p.parseCompClauses()
			p.skipNewlines()
			p.expect(token.CloseBrace)
			return &ast.DictComp{Base: p.baseFrom(lo), Key: key, Value: val, Op: ast.OpUnion, Clauses: clauses}
		}
		cfg := &ast.ConfigExpr{Entries: []ast.ConfigEntry{{Key: key, Value: val, Op: ast.OpUnion, InsertIdx: -1}}}
		p.finishConfigEntries(cfg)
		cfg.Base = p.baseFrom(lo)
		return cfg
	}
	p.pos = save
	cfg := &ast.ConfigExpr{}
	p.finishConfigEntries(cfg)
	cfg.Base = p.baseFrom(lo)
	return cfg
}

func (p *Parser) finishConfigEntries(cfg *ast.ConfigExpr) {
	if p.at(token.Comma) {
		p.advance()
	}
	p.skipNewlines()
	for !p.at(token.CloseBrace) && !p.at(token.Eof) {
		cfg.Entries = append(cfg.Entries, p.parseConfigEntry())
		if p.at(token.Comma) {
			p.advance()
		}
		p.skipNewlines()
	}
	p.expect(token.CloseBrace)
}

func (p *Parser) parseLambda() ast.Expr {
	lo := p.peek().Span
	p.advance() // lambda
	var params []ast.Param
	if p.at(token.OpenParen) {
		p.advance()
		for !p.at(token.CloseParen) && !p.at(token.Eof) {
			name := p.identText(p.expect(token.Ident))
			param := ast.Param{Name: name}
			if _, ok := p.accept(token.Colon); ok {
				param.Type = p.parseTypeExpr()
			}
			if _, ok := p.accept(token.Assign); ok {
				param.Default = p.parseExpr()
			}
			params = append(params, param)
			if !p.at(token.CloseParen) {
				p.expect(token.Comma)
			}
		}
		p.expect(token.CloseParen)
	}
	var ret ast.TypeExpr
	if _, ok := p.accept(token.Arrow); ok {
		ret = p.parseTypeExpr()
	}
	p.expect(token.OpenBrace)
	p.skipNewlines()
	var body []ast.Stmt
	for !p.at(token.CloseBrace) && !p.at(token.Eof) {
		mark := p.pos
		body = append(body, p.parseStmt())
		if p.pos == mark {
			p.advance()
		}
		p.skipNewlines()
	}
	p.expect(token.CloseBrace)
	return &ast.Lambda{Base: p.baseFrom(lo), Params: params, ReturnTy: ret, Body: body}
}

func (p *Parser) parseQuantifier() ast.Expr {
	lo := p.peek().Span
	var kind ast.QuantifierKind
	switch p.peek().Kind {
	case token.KwAll:
		kind = ast.QAll
	case token.KwAny:
		kind = ast.QAny
	case token.KwFilter:
		kind = ast.QFilter
	case token.KwMap:
		kind = ast.QMap
	}
	p.advance()
	var targets []string
	targets = append(targets, p.identText(p.expect(token.Ident)))
	for p.at(token.Comma) {
		p.advance()
		targets = append(targets, p.identText(p.expect(token.Ident)))
	}
	p.expect(token.KwIn)
	iter := p.parseBinLevel(precBitOr)
	p.expect(token.OpenBrace)
	test := p.parseExpr()
	p.expect(token.CloseBrace)
	return &ast.Quantifier{Base: p.baseFrom(lo), Kind: kind, Targets: targets, Iter: iter, Test: test}
}

// parseTypeExpr parses a type annotation: any|bool|int|float|str, literal
// types, `[T]`, `{K:V}`, union `A|B`, function `(T1,T2) -> R`, and named
// types (§4.3).
func (p *Parser) parseTypeExpr() ast.TypeExpr {
	first := p.parseTypeAtom()
	if !p.at(token.Pipe) {
		return first
	}
	members := []ast.TypeExpr{first}
	for p.at(token.Pipe) {
		p.advance()
		members = append(members, p.parseTypeAtom())
	}
	return &ast.UnionTypeExpr{Base: p.baseFrom(first.Pos()), Members: members}
}

func (p *Parser) parseTypeAtom() ast.TypeExpr {
	t := p.peek()
	switch t.Kind {
	case token.OpenBracket:
		p.advance()
		elem := p.parseTypeExpr()
		p.expect(token.CloseBracket)
		return &ast.ListTypeExpr{Base: p.baseFrom(t.Span), Elem: elem}
	case token.OpenBrace:
		p.advance()
		key := p.parseTypeExpr()
		p.expect(token.Colon)
		val := p.parseTypeExpr()
		p.expect(token.CloseBrace)
		return &ast.DictTypeExpr{Base: p.baseFrom(t.Span), Key: key, Value: val}
	case token.OpenParen:
		p.advance()
		var params []ast.TypeExpr
		for !p.at(token.CloseParen) && !p.at(token.Eof) {
			params = append(params, p.parseTypeExpr())
			if !p.at(token.CloseParen) {
				p.expect(token.Comma)
			}
		}
		p.expect(token.CloseParen)
		p.expect(token.Arrow)
		ret := p.parseTypeExpr()
		return &ast.FuncTypeExpr{Base: p.baseFrom(t.Span), Params: params, Ret: ret}
	case token.Str:
		lit := p.parseStringLit()
		return &ast.LiteralTypeExpr{Base: p.baseFrom(t.Span), Value: lit}
	case token.Int, token.Float:
		lit := p.parseNumber()
		return &ast.LiteralTypeExpr{Base: p.baseFrom(t.Span), Value: lit}
	case token.KwTrue:
		p.advance()
		return &ast.LiteralTypeExpr{Base: p.baseFrom(t.Span), Value: &ast.NameConstant{Base: p.baseFrom(t.Span), Kind: ast.ConstTrue}}
	case token.KwFalse:
		p.advance()
		return &ast.LiteralTypeExpr{Base: p.baseFrom(t.Span), Value: &ast.NameConstant{Base: p.baseFrom(t.Span), Kind: ast.ConstFalse}}
	case token.Minus:
		p.advance()
		lit := p.parseNumber()
		if nl, ok := lit.(*ast.NumberLit); ok {
			nl.IntVal = -nl.IntVal
			nl.FloatVal = -nl.FloatVal
		}
		return &ast.LiteralTypeExpr{Base: p.baseFrom(t.Span), Value: lit}
	case token.Ident:
		p.advance()
		return &ast.NamedTypeExpr{Base: p.baseFrom(t.Span), Name: p.identText(t)}
	case token.KwAny:
		p.advance()
		return &ast.NamedTypeExpr{Base: p.baseFrom(t.Span), Name: "any"}
	default:
		p.errf("expected type expression, got %s", t.Kind)
		p.advance()
		return &ast.NamedTypeExpr{Base: p.baseFrom(t.Span), Name: "any"}
	}
}
