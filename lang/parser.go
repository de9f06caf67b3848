package lang

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTemplate parses template source.
func ParseTemplate(src string) (*RootBloc, error) {
	p := newParser(src)

	t, defs, err := p.body(false, Location{Line: 1, Char: 1})
	if err != nil {
		return nil, err
	}

	if err := p.addLocals(t, defs); err != nil {
		return nil, err
	}

	return &RootBloc{Template: t, Source: src}, nil
}

// ParseExpression parses a single expression.
func ParseExpression(src string) (Expression, error) {
	p := newParser(src)

	e, err := p.expression()
	if err != nil {
		return nil, err
	}

	tok, err := p.lx.next()
	if err != nil {
		return nil, err
	}

	if tok.kind != tokEOF {
		return nil, p.errorf(tok.loc, "unexpected %s", describe(tok))
	}

	return e, nil
}

type parser struct {
	*scanner
	lx *lexer
}

func newParser(src string) *parser {
	s := newScanner(src)

	return &parser{scanner: s, lx: &lexer{scanner: s}}
}

func (p *parser) errorf(loc Location, format string, args ...any) *ParseError {
	return parseErrorf(p.src, loc, format, args...)
}

func parseErrorf(src string, loc Location, format string, args ...any) *ParseError {
	return &ParseError{Location: loc, Source: src, Msg: fmt.Sprintf(format, args...)}
}

func describe(t token) string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokClose:
		return "}}"
	}

	return strconv.Quote(t.text)
}

// body parses text and tags until a close tag (when closable) or end of
// input. Definitions found directly in the body are returned separately so
// the caller can decide where they belong.
func (p *parser) body(closable bool, open Location) (*Template, []*Definition, error) {
	var (
		t    = &Template{Location: p.loc()}
		defs []*Definition
		text strings.Builder
	)

	flush := func() {
		if text.Len() > 0 {
			t.Children = append(t.Children, Text(text.String()))
			text.Reset()
		}
	}

	for {
		if p.eof() {
			if closable {
				return nil, nil, p.errorf(open, "unclosed section")
			}

			flush()

			return t, defs, nil
		}

		if !p.hasPrefix("{{") {
			text.WriteRune(p.advance())

			continue
		}

		flush()

		loc := p.loc()
		p.skip("{{")

		// Sigils must follow the braces directly: "{{!x}}" is a comment,
		// "{{ !x }}" is a negation.
		p.lx.depth, p.lx.peeked = 0, nil

		switch {
		case p.hasPrefix("!"):
			end := strings.Index(p.src[p.pos:], "}}")
			if end < 0 {
				return nil, nil, p.errorf(loc, "unterminated comment")
			}

			p.skip(p.src[p.pos : p.pos+end+2])

		case p.hasPrefix("/"):
			p.advance()

			if _, err := p.expectClose(); err != nil {
				return nil, nil, err
			}

			if !closable {
				return nil, nil, p.errorf(loc, "unexpected close tag")
			}

			return t, defs, nil

		case p.hasPrefix("#"):
			p.advance()

			b, err := p.section(loc)
			if err != nil {
				return nil, nil, err
			}

			t.Children = append(t.Children, b)

		case p.hasPrefix(":"):
			p.advance()

			d, err := p.definition(loc)
			if err != nil {
				return nil, nil, err
			}

			defs = append(defs, d)

		default:
			b, err := p.bloc(loc)
			if err != nil {
				return nil, nil, err
			}

			t.Children = append(t.Children, b)
		}
	}
}

func (p *parser) addLocals(t *Template, defs []*Definition) error {
	for _, d := range defs {
		if t.Locals == nil {
			t.Locals = make(map[string]any, len(defs))
		}

		if _, ok := t.Locals[d.Name]; ok {
			return p.errorf(d.Location, "duplicate definition %q", d.Name)
		}

		t.Locals[d.Name] = d
	}

	return nil
}

// bloc parses the remainder of {{ expr ; props }}.
func (p *parser) bloc(loc Location) (*Bloc, error) {
	e, props, params, err := p.head()
	if err != nil {
		return nil, err
	}

	if params != nil {
		return nil, p.errorf(params.Location, "parameters require a section")
	}

	return &Bloc{Location: loc, Expression: e, Properties: props}, nil
}

// section parses {{# expr ; props -> params }} body {{/}}.
func (p *parser) section(loc Location) (*Bloc, error) {
	e, props, params, err := p.head()
	if err != nil {
		return nil, err
	}

	body, defs, err := p.body(true, loc)
	if err != nil {
		return nil, err
	}

	body.Params = params

	return &Bloc{
		Location:   loc,
		Expression: e,
		Contents:   body,
		Properties: append(props, defs...),
	}, nil
}

// definition parses {{:name = expr}} or {{:name -> params}} body {{/}}.
func (p *parser) definition(loc Location) (*Definition, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}

	d := &Definition{Location: loc, Name: name.Text}

	tok, err := p.lx.peek()
	if err != nil {
		return nil, err
	}

	if tok.kind == tokPunct && tok.text == "=" {
		p.lx.next()

		if d.Expression, err = p.expression(); err != nil {
			return nil, err
		}

		if _, err := p.expectClose(); err != nil {
			return nil, err
		}

		return d, nil
	}

	params, err := p.params()
	if err != nil {
		return nil, err
	}

	if _, err := p.expectClose(); err != nil {
		return nil, err
	}

	body, defs, err := p.body(true, loc)
	if err != nil {
		return nil, err
	}

	body.Params = params

	if err := p.addLocals(body, defs); err != nil {
		return nil, err
	}

	d.Contents = body

	return d, nil
}

// head parses a tag's expression, properties and optional parameters, up to
// and including the closing }}.
func (p *parser) head() (Expression, []*Definition, *ParamList, error) {
	e, err := p.expression()
	if err != nil {
		return nil, nil, nil, err
	}

	var props []*Definition

	for {
		tok, err := p.lx.peek()
		if err != nil {
			return nil, nil, nil, err
		}

		if tok.kind != tokPunct || tok.text != ";" {
			break
		}

		p.lx.next()

		name, err := p.ident()
		if err != nil {
			return nil, nil, nil, err
		}

		if _, err := p.expect("="); err != nil {
			return nil, nil, nil, err
		}

		v, err := p.expression()
		if err != nil {
			return nil, nil, nil, err
		}

		props = append(props, &Definition{
			Location:   name.Location,
			Name:       name.Text,
			Expression: v,
		})
	}

	params, err := p.params()
	if err != nil {
		return nil, nil, nil, err
	}

	if _, err := p.expectClose(); err != nil {
		return nil, nil, nil, err
	}

	return e, props, params, nil
}

// params parses an optional "-> a, b" or "=> a, b" list.
func (p *parser) params() (*ParamList, error) {
	tok, err := p.lx.peek()
	if err != nil {
		return nil, err
	}

	if tok.kind != tokPunct || (tok.text != "->" && tok.text != "=>") {
		return nil, nil
	}

	p.lx.next()

	pl := &ParamList{Location: tok.loc, Scope: ScopeLocal}
	if tok.text == "=>" {
		pl.Scope = ScopeGlobal
	}

	for {
		id, err := p.ident()
		if err != nil {
			return nil, err
		}

		pl.Identifiers = append(pl.Identifiers, id)

		tok, err := p.lx.peek()
		if err != nil {
			return nil, err
		}

		if tok.kind != tokPunct || tok.text != "," {
			return pl, nil
		}

		p.lx.next()
	}
}

func (p *parser) ident() (*Identifier, error) {
	tok, err := p.lx.next()
	if err != nil {
		return nil, err
	}

	if tok.kind != tokIdent {
		return nil, p.errorf(tok.loc, "expected identifier, found %s", describe(tok))
	}

	return &Identifier{Location: tok.loc, Text: tok.text}, nil
}

func (p *parser) expect(text string) (token, error) {
	tok, err := p.lx.next()
	if err != nil {
		return tok, err
	}

	if tok.kind != tokPunct || tok.text != text {
		return tok, p.errorf(tok.loc, "expected %q, found %s", text, describe(tok))
	}

	return tok, nil
}

func (p *parser) expectClose() (token, error) {
	tok, err := p.lx.next()
	if err != nil {
		return tok, err
	}

	if tok.kind != tokClose {
		return tok, p.errorf(tok.loc, "expected }}, found %s", describe(tok))
	}

	return tok, nil
}

func (p *parser) expression() (Expression, error) {
	return p.binary(1)
}

// binary parses operators of at least minPrec by precedence climbing.
func (p *parser) binary(minPrec int) (Expression, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}

	for {
		tok, err := p.lx.peek()
		if err != nil {
			return nil, err
		}

		if tok.kind != tokPunct {
			return left, nil
		}

		op := Operator(tok.text)

		prec, ok := binaryPrecedence[op]
		if !ok || prec < minPrec {
			return left, nil
		}

		p.lx.next()

		right, err := p.binary(prec + 1)
		if err != nil {
			return nil, err
		}

		if left, err = NewBinary(tok.loc, op, left, right); err != nil {
			return nil, err
		}
	}
}

func (p *parser) unary() (Expression, error) {
	tok, err := p.lx.peek()
	if err != nil {
		return nil, err
	}

	if tok.kind == tokPunct {
		switch op := Operator(tok.text); op {
		case OpAdd, OpSub, OpNot:
			p.lx.next()

			right, err := p.unary()
			if err != nil {
				return nil, err
			}

			return NewUnary(tok.loc, op, right)
		}
	}

	return p.postfix()
}

func (p *parser) postfix() (Expression, error) {
	e, err := p.primary()
	if err != nil {
		return nil, err
	}

	for {
		tok, err := p.lx.peek()
		if err != nil {
			return nil, err
		}

		if tok.kind != tokPunct {
			return e, nil
		}

		switch tok.text {
		case ".":
			p.lx.next()

			id, err := p.ident()
			if err != nil {
				return nil, err
			}

			e = &Property{Location: tok.loc, Object: e, Property: id}

		case "[":
			p.lx.next()

			idx, err := p.expression()
			if err != nil {
				return nil, err
			}

			if _, err := p.expect("]"); err != nil {
				return nil, err
			}

			e = &Index{Location: tok.loc, Object: e, Index: idx}

		case "(":
			p.lx.next()

			args, err := p.list(")")
			if err != nil {
				return nil, err
			}

			e = &Application{Location: tok.loc, Fn: e, Args: args}

		default:
			return e, nil
		}
	}
}

func (p *parser) primary() (Expression, error) {
	tok, err := p.lx.next()
	if err != nil {
		return nil, err
	}

	loc := tok.loc

	switch tok.kind {
	case tokNumber:
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, p.errorf(loc, "invalid number %q", tok.text)
		}

		return &Number{Location: loc, Value: f}, nil

	case tokString:
		return &String{Location: loc, Value: tok.text}, nil

	case tokIdent:
		switch tok.text {
		case "true", "false":
			return &Boolean{Location: loc, Value: tok.text == "true"}, nil
		case "null":
			return &Null{Location: loc}, nil
		case "undefined":
			return &Undefined{Location: loc}, nil
		}

		return &Identifier{Location: loc, Text: tok.text}, nil

	case tokPunct:
		switch tok.text {
		case "(":
			e, err := p.expression()
			if err != nil {
				return nil, err
			}

			if _, err := p.expect(")"); err != nil {
				return nil, err
			}

			return e, nil

		case "[":
			vs, err := p.list("]")
			if err != nil {
				return nil, err
			}

			return &ArrayConstruction{Location: loc, Values: vs}, nil

		case "{":
			return p.object(loc)
		}
	}

	return nil, p.errorf(loc, "unexpected %s", describe(tok))
}

// list parses comma-separated expressions up to closer. A trailing comma is
// allowed.
func (p *parser) list(closer string) ([]Expression, error) {
	var es []Expression

	for {
		tok, err := p.lx.peek()
		if err != nil {
			return nil, err
		}

		if tok.kind == tokPunct && tok.text == closer {
			p.lx.next()

			return es, nil
		}

		e, err := p.expression()
		if err != nil {
			return nil, err
		}

		es = append(es, e)

		tok, err = p.lx.next()
		if err != nil {
			return nil, err
		}

		if tok.kind == tokPunct && tok.text == closer {
			return es, nil
		}

		if tok.kind != tokPunct || tok.text != "," {
			return nil, p.errorf(tok.loc, "expected \",\" or %q, found %s",
				closer, describe(tok))
		}
	}
}

func (p *parser) object(loc Location) (Expression, error) {
	obj := &ObjectConstruction{Location: loc}

	for {
		tok, err := p.lx.next()
		if err != nil {
			return nil, err
		}

		switch {
		case tok.kind == tokPunct && tok.text == "}":
			return obj, nil
		case tok.kind == tokIdent, tok.kind == tokString, tok.kind == tokNumber:
		default:
			return nil, p.errorf(tok.loc, "expected object key, found %s", describe(tok))
		}

		if _, err := p.expect(":"); err != nil {
			return nil, err
		}

		v, err := p.expression()
		if err != nil {
			return nil, err
		}

		obj.Fields = append(obj.Fields, Field{Key: tok.text, Value: v})

		sep, err := p.lx.next()
		if err != nil {
			return nil, err
		}

		switch {
		case sep.kind == tokPunct && sep.text == "}":
			return obj, nil
		case sep.kind == tokPunct && sep.text == ",":
		default:
			return nil, p.errorf(sep.loc, "expected \",\" or \"}\", found %s", describe(sep))
		}
	}
}
