package lang

import "fmt"

// Visitor handles each [Expression] variant.
//
// [Visit] calls exactly one method per node and never recurses; a visitor
// that needs child results calls Visit on the children itself.
type Visitor[T any] interface {
	VisitUndefined(*Undefined) (T, error)
	VisitNull(*Null) (T, error)
	VisitBoolean(*Boolean) (T, error)
	VisitNumber(*Number) (T, error)
	VisitString(*String) (T, error)
	VisitIdentifier(*Identifier) (T, error)
	VisitProperty(*Property) (T, error)
	VisitIndex(*Index) (T, error)
	VisitApplication(*Application) (T, error)
	VisitUnaryOperation(*UnaryOperation) (T, error)
	VisitBinaryOperation(*BinaryOperation) (T, error)
	VisitArrayConstruction(*ArrayConstruction) (T, error)
	VisitObjectConstruction(*ObjectConstruction) (T, error)
}

// Visit routes e to the method of v matching its concrete type.
//
// Expression is sealed, so an unrecognized node is a programming error and
// Visit panics.
func Visit[T any](v Visitor[T], e Expression) (T, error) {
	switch n := e.(type) {
	case *Undefined:
		return v.VisitUndefined(n)
	case *Null:
		return v.VisitNull(n)
	case *Boolean:
		return v.VisitBoolean(n)
	case *Number:
		return v.VisitNumber(n)
	case *String:
		return v.VisitString(n)
	case *Identifier:
		return v.VisitIdentifier(n)
	case *Property:
		return v.VisitProperty(n)
	case *Index:
		return v.VisitIndex(n)
	case *Application:
		return v.VisitApplication(n)
	case *UnaryOperation:
		return v.VisitUnaryOperation(n)
	case *BinaryOperation:
		return v.VisitBinaryOperation(n)
	case *ArrayConstruction:
		return v.VisitArrayConstruction(n)
	case *ObjectConstruction:
		return v.VisitObjectConstruction(n)
	}

	panic(fmt.Sprintf("lang: unhandled expression type %T", e))
}
