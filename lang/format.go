package lang

import (
	"strconv"
	"strings"
)

// Format returns canonical source text for e. Parsing the result yields an
// expression [Equal] to e.
func Format(e Expression) string {
	s, _ := Visit[string](printer{}, e)

	return s
}

// printer is the source-producing [Visitor].
type printer struct{}

func (p printer) format(e Expression) string {
	s, _ := Visit[string](p, e)

	return s
}

// operand formats e, parenthesized when it binds looser than prec.
func (p printer) operand(e Expression, prec int) string {
	if precedence(e) < prec {
		return "(" + p.format(e) + ")"
	}

	return p.format(e)
}

func (p printer) list(es []Expression) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = p.format(e)
	}

	return strings.Join(parts, ", ")
}

// precedence of postfix and primary expressions exceeds every operator.
func precedence(e Expression) int {
	switch n := e.(type) {
	case *BinaryOperation:
		return binaryPrecedence[n.Op]
	case *UnaryOperation:
		return unaryPrecedence
	}

	return unaryPrecedence + 1
}

func (printer) VisitUndefined(*Undefined) (string, error) { return "undefined", nil }
func (printer) VisitNull(*Null) (string, error)           { return "null", nil }

func (printer) VisitBoolean(n *Boolean) (string, error) {
	return strconv.FormatBool(n.Value), nil
}

func (printer) VisitNumber(n *Number) (string, error) {
	return formatNumber(n.Value), nil
}

func (printer) VisitString(n *String) (string, error) {
	return strconv.Quote(n.Value), nil
}

func (printer) VisitIdentifier(n *Identifier) (string, error) {
	return n.Text, nil
}

func (p printer) VisitProperty(n *Property) (string, error) {
	return p.operand(n.Object, unaryPrecedence+1) + "." + n.Property.Text, nil
}

func (p printer) VisitIndex(n *Index) (string, error) {
	return p.operand(n.Object, unaryPrecedence+1) +
		"[" + p.format(n.Index) + "]", nil
}

func (p printer) VisitApplication(n *Application) (string, error) {
	return p.operand(n.Fn, unaryPrecedence+1) +
		"(" + p.list(n.Args) + ")", nil
}

func (p printer) VisitUnaryOperation(n *UnaryOperation) (string, error) {
	right := p.operand(n.Right, unaryPrecedence)

	// Keep "- -x" from reading as a decrement.
	if _, ok := n.Right.(*UnaryOperation); ok {
		right = " " + right
	}

	return string(n.Op) + right, nil
}

func (p printer) VisitBinaryOperation(n *BinaryOperation) (string, error) {
	prec := binaryPrecedence[n.Op]

	// Operators are left-associative: the right operand needs parentheses
	// at equal precedence.
	return p.operand(n.Left, prec) +
		" " + string(n.Op) + " " +
		p.operand(n.Right, prec+1), nil
}

func (p printer) VisitArrayConstruction(n *ArrayConstruction) (string, error) {
	return "[" + p.list(n.Values) + "]", nil
}

func (p printer) VisitObjectConstruction(n *ObjectConstruction) (string, error) {
	parts := make([]string, len(n.Fields))

	for i, f := range n.Fields {
		key := f.Key
		if !isIdentifier(key) {
			key = strconv.Quote(key)
		}

		parts[i] = key + ": " + p.format(f.Value)
	}

	return "{" + strings.Join(parts, ", ") + "}", nil
}

// FormatTemplate returns source text for t.
func FormatTemplate(t *Template) string {
	var sb strings.Builder

	formatChildren(&sb, t)

	return sb.String()
}

func formatChildren(sb *strings.Builder, t *Template) {
	for _, name := range sortedKeys(t.Locals) {
		if def, ok := t.Locals[name].(*Definition); ok {
			formatDefinition(sb, def)
		}
	}

	for _, c := range t.Children {
		switch c := c.(type) {
		case Text:
			sb.WriteString(string(c))
		case *Bloc:
			formatBloc(sb, c)
		}
	}
}

func formatBloc(sb *strings.Builder, b *Bloc) {
	var defs []*Definition

	sb.WriteString("{{")

	if b.Contents != nil {
		sb.WriteString("# ")
	} else {
		sb.WriteString(" ")
	}

	sb.WriteString(Format(b.Expression))

	for _, p := range b.Properties {
		if p.Contents != nil {
			defs = append(defs, p)

			continue
		}

		sb.WriteString("; " + p.Name + " = " + Format(p.Expression))
	}

	if b.Contents == nil {
		sb.WriteString(" }}")

		return
	}

	formatParams(sb, b.Contents.Params)
	sb.WriteString(" }}")

	for _, d := range defs {
		formatDefinition(sb, d)
	}

	formatChildren(sb, b.Contents)
	sb.WriteString("{{/}}")
}

func formatDefinition(sb *strings.Builder, d *Definition) {
	sb.WriteString("{{:" + d.Name)

	if d.Contents == nil {
		sb.WriteString(" = " + Format(d.Expression) + "}}")

		return
	}

	formatParams(sb, d.Contents.Params)
	sb.WriteString("}}")
	formatChildren(sb, d.Contents)
	sb.WriteString("{{/}}")
}

func formatParams(sb *strings.Builder, p *ParamList) {
	if p == nil {
		return
	}

	if p.Scope == ScopeGlobal {
		sb.WriteString(" => ")
	} else {
		sb.WriteString(" -> ")
	}

	sb.WriteString(strings.Join(p.Names(), ", "))
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if !isIdentRune(r, i == 0) {
			return false
		}
	}

	return true
}
