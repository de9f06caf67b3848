package lang

// Scope selects which chain receives a parameterized template's arguments.
type Scope int

const (
	// ScopeLocal binds arguments in a child of the locals captured when the
	// template was bound.
	ScopeLocal Scope = iota // local
	// ScopeGlobal binds arguments in a child of the context supplied when the
	// bound template is rendered.
	ScopeGlobal // global
)

// ParamList declares the positional parameters of a template.
type ParamList struct {
	Location
	Scope       Scope
	Identifiers []*Identifier
}

// Names returns the parameter names in declaration order.
func (p *ParamList) Names() []string {
	if p == nil {
		return nil
	}

	names := make([]string, len(p.Identifiers))
	for i, id := range p.Identifiers {
		names[i] = id.Text
	}

	return names
}

// Child is an element of [Template.Children]: either [Text] or a [*Bloc].
type Child interface {
	child()
}

// Text is literal template output.
type Text string

func (Text) child() {}

// Template is a sequence of literal text and blocs.
//
// Children are rendered in order. Locals holds the template-level
// definitions keyed by name. A [*Definition] entry is evaluated or bound for
// each render; any other entry is copied as-is into that render's locals
// frame. Rendering never mutates the map.
type Template struct {
	Location
	Params   *ParamList
	Children []Child
	Locals   map[string]any
}

// Bloc is an expression plus optional nested contents and named properties.
type Bloc struct {
	Location
	Expression Expression
	Contents   *Template
	Properties []*Definition
}

func (*Bloc) child() {}

// Definition names either an expression or a nested template. Exactly one of
// Expression and Contents is set.
type Definition struct {
	Location
	Name       string
	Expression Expression
	Contents   *Template
}

// RootBloc is the parser's top-level result.
type RootBloc struct {
	Template *Template
	Source   string
}
