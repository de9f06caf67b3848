package lang

//go:generate go tool stringer --linecomment --type Kind,Scope --output ast_string.go

// Kind identifies the variant of an [Expression].
type Kind int

const (
	KindUndefined   Kind = iota // undefined
	KindNull                    // null
	KindBoolean                 // boolean
	KindNumber                  // number
	KindString                  // string
	KindIdentifier              // identifier
	KindProperty                // property
	KindIndex                   // index
	KindApplication             // application
	KindUnary                   // unary
	KindBinary                  // binary
	KindArray                   // array
	KindObject                  // object
)

// Expression is a node of the expression grammar.
//
// The set of implementations is closed. Use [Visit] to dispatch on the
// concrete node type.
type Expression interface {
	Node
	Kind() Kind
	expression()
}

type (
	// Undefined is the literal undefined.
	Undefined struct{ Location }

	// Null is the literal null.
	Null struct{ Location }

	// Boolean is a true or false literal.
	Boolean struct {
		Location
		Value bool
	}

	// Number is a numeric literal.
	Number struct {
		Location
		Value float64
	}

	// String is a quoted string literal with escapes already decoded.
	String struct {
		Location
		Value string
	}

	// Identifier names a value in scope.
	Identifier struct {
		Location
		Text string
	}

	// Property is member access by name: Object.Property.
	Property struct {
		Location
		Object   Expression
		Property *Identifier
	}

	// Index is computed member access: Object[Index].
	Index struct {
		Location
		Object Expression
		Index  Expression
	}

	// Application calls Fn with positional Args.
	Application struct {
		Location
		Fn   Expression
		Args []Expression
	}

	// UnaryOperation applies a prefix operator.
	UnaryOperation struct {
		Location
		Op    Operator
		Right Expression
	}

	// BinaryOperation applies an infix operator.
	BinaryOperation struct {
		Location
		Op    Operator
		Left  Expression
		Right Expression
	}

	// ArrayConstruction is an array literal.
	ArrayConstruction struct {
		Location
		Values []Expression
	}

	// ObjectConstruction is an object literal. Field order is preserved.
	ObjectConstruction struct {
		Location
		Fields []Field
	}
)

// Field is one key of an [ObjectConstruction].
type Field struct {
	Key   string
	Value Expression
}

func (*Undefined) Kind() Kind          { return KindUndefined }
func (*Null) Kind() Kind               { return KindNull }
func (*Boolean) Kind() Kind            { return KindBoolean }
func (*Number) Kind() Kind             { return KindNumber }
func (*String) Kind() Kind             { return KindString }
func (*Identifier) Kind() Kind         { return KindIdentifier }
func (*Property) Kind() Kind           { return KindProperty }
func (*Index) Kind() Kind              { return KindIndex }
func (*Application) Kind() Kind        { return KindApplication }
func (*UnaryOperation) Kind() Kind     { return KindUnary }
func (*BinaryOperation) Kind() Kind    { return KindBinary }
func (*ArrayConstruction) Kind() Kind  { return KindArray }
func (*ObjectConstruction) Kind() Kind { return KindObject }

func (*Undefined) expression()          {}
func (*Null) expression()               {}
func (*Boolean) expression()            {}
func (*Number) expression()             {}
func (*String) expression()             {}
func (*Identifier) expression()         {}
func (*Property) expression()           {}
func (*Index) expression()              {}
func (*Application) expression()        {}
func (*UnaryOperation) expression()     {}
func (*BinaryOperation) expression()    {}
func (*ArrayConstruction) expression()  {}
func (*ObjectConstruction) expression() {}

// NewUnary returns a unary operation, or [ErrUnknownOperator] if op has no
// unary form.
func NewUnary(loc Location, op Operator, right Expression) (*UnaryOperation, error) {
	if _, ok := unaryOps[op]; !ok {
		return nil, unknownOperator(loc, op)
	}

	return &UnaryOperation{Location: loc, Op: op, Right: right}, nil
}

// NewBinary returns a binary operation, or [ErrUnknownOperator] if op has no
// binary form.
func NewBinary(
	loc Location,
	op Operator,
	left, right Expression,
) (*BinaryOperation, error) {
	if _, ok := binaryPrecedence[op]; !ok {
		return nil, unknownOperator(loc, op)
	}

	return &BinaryOperation{Location: loc, Op: op, Left: left, Right: right}, nil
}
