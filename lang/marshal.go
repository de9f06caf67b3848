package lang

import (
	"strings"

	"github.com/goccy/go-yaml"
)

// ToMap converts the template tree to plain maps and slices for
// serialization.
func (r *RootBloc) ToMap() map[string]any {
	return TemplateToMap(r.Template)
}

// TemplateToMap converts t to plain maps and slices.
func TemplateToMap(t *Template) map[string]any {
	m := node("template", t.Location)

	if t.Params != nil {
		m["params"] = map[string]any{
			"scope": t.Params.Scope.String(),
			"names": t.Params.Names(),
		}
	}

	children := make([]any, 0, len(t.Children))

	for _, c := range t.Children {
		switch c := c.(type) {
		case Text:
			children = append(children, string(c))
		case *Bloc:
			children = append(children, blocToMap(c))
		}
	}

	m["children"] = children

	if len(t.Locals) > 0 {
		locals := make(map[string]any, len(t.Locals))

		for name, v := range t.Locals {
			if d, ok := v.(*Definition); ok {
				locals[name] = definitionToMap(d)
			} else {
				locals[name] = v
			}
		}

		m["locals"] = locals
	}

	return m
}

func blocToMap(b *Bloc) map[string]any {
	m := node("bloc", b.Location)
	m["expression"] = ToMap(b.Expression)

	if b.Contents != nil {
		m["contents"] = TemplateToMap(b.Contents)
	}

	if len(b.Properties) > 0 {
		props := make([]any, len(b.Properties))
		for i, p := range b.Properties {
			props[i] = definitionToMap(p)
		}

		m["properties"] = props
	}

	return m
}

func definitionToMap(d *Definition) map[string]any {
	m := node("definition", d.Location)
	m["name"] = d.Name

	if d.Contents != nil {
		m["contents"] = TemplateToMap(d.Contents)
	} else {
		m["expression"] = ToMap(d.Expression)
	}

	return m
}

// ToMap converts e to plain maps and slices. Every map carries the node
// kind and position.
func ToMap(e Expression) map[string]any {
	m, _ := Visit[map[string]any](mapper{}, e)

	return m
}

func node(kind string, loc Location) map[string]any {
	return map[string]any{"kind": kind, "line": loc.Line, "char": loc.Char}
}

func exprNode(e Expression) map[string]any {
	return node(e.Kind().String(), e.Loc())
}

func toMaps(es []Expression) []any {
	out := make([]any, len(es))
	for i, e := range es {
		out[i] = ToMap(e)
	}

	return out
}

// mapper is the [Visitor] behind [ToMap].
type mapper struct{}

func (mapper) VisitUndefined(n *Undefined) (map[string]any, error) {
	return exprNode(n), nil
}

func (mapper) VisitNull(n *Null) (map[string]any, error) {
	return exprNode(n), nil
}

func (mapper) VisitBoolean(n *Boolean) (map[string]any, error) {
	m := exprNode(n)
	m["value"] = n.Value

	return m, nil
}

func (mapper) VisitNumber(n *Number) (map[string]any, error) {
	m := exprNode(n)
	m["value"] = n.Value

	return m, nil
}

func (mapper) VisitString(n *String) (map[string]any, error) {
	m := exprNode(n)
	m["value"] = n.Value

	return m, nil
}

func (mapper) VisitIdentifier(n *Identifier) (map[string]any, error) {
	m := exprNode(n)
	m["text"] = n.Text

	return m, nil
}

func (mapper) VisitProperty(n *Property) (map[string]any, error) {
	m := exprNode(n)
	m["object"] = ToMap(n.Object)
	m["property"] = n.Property.Text

	return m, nil
}

func (mapper) VisitIndex(n *Index) (map[string]any, error) {
	m := exprNode(n)
	m["object"] = ToMap(n.Object)
	m["index"] = ToMap(n.Index)

	return m, nil
}

func (mapper) VisitApplication(n *Application) (map[string]any, error) {
	m := exprNode(n)
	m["fn"] = ToMap(n.Fn)
	m["args"] = toMaps(n.Args)

	return m, nil
}

func (mapper) VisitUnaryOperation(n *UnaryOperation) (map[string]any, error) {
	m := exprNode(n)
	m["op"] = string(n.Op)
	m["right"] = ToMap(n.Right)

	return m, nil
}

func (mapper) VisitBinaryOperation(n *BinaryOperation) (map[string]any, error) {
	m := exprNode(n)
	m["op"] = string(n.Op)
	m["left"] = ToMap(n.Left)
	m["right"] = ToMap(n.Right)

	return m, nil
}

func (mapper) VisitArrayConstruction(n *ArrayConstruction) (map[string]any, error) {
	m := exprNode(n)
	m["values"] = toMaps(n.Values)

	return m, nil
}

func (mapper) VisitObjectConstruction(n *ObjectConstruction) (map[string]any, error) {
	m := exprNode(n)

	fields := make([]any, len(n.Fields))
	for i, f := range n.Fields {
		fields[i] = map[string]any{"key": f.Key, "value": ToMap(f.Value)}
	}

	m["fields"] = fields

	return m, nil
}

// Encode serializes a settled value as YAML, or as JSON when asJSON is set.
// Objects keep their key order.
func Encode(v any, asJSON bool) ([]byte, error) {
	var opts []yaml.EncodeOption
	if asJSON {
		opts = append(opts, yaml.JSON())
	}

	b, err := yaml.MarshalWithOptions(encodable(v), opts...)
	if err != nil {
		return nil, ErrBuiltin.Wrap(err)
	}

	return b, nil
}

// Decode parses YAML or JSON into expression values. Mappings become
// objects in document order.
func Decode(data []byte) (any, error) {
	return decode(string(data))
}

// Display formats a settled value for a terminal: arrays and objects as
// YAML, everything else as its string conversion.
func Display(v any) (string, error) {
	switch v.(type) {
	case []any, *Object, map[string]any:
		b, err := Encode(v, false)
		if err != nil {
			return "", err
		}

		return strings.TrimSuffix(string(b), "\n"), nil
	}

	return ToString(v), nil
}
