package lang

import "slices"

// Equal reports whether a and b are structurally identical expressions.
// Source locations are ignored.
func Equal(a, b Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	eq, _ := Visit[bool](equality{other: b}, a)

	return eq
}

func equalAll(a, b []Expression) bool {
	return slices.EqualFunc(a, b, Equal)
}

// equality compares the visited node against other.
type equality struct{ other Expression }

func (q equality) VisitUndefined(*Undefined) (bool, error) {
	_, ok := q.other.(*Undefined)

	return ok, nil
}

func (q equality) VisitNull(*Null) (bool, error) {
	_, ok := q.other.(*Null)

	return ok, nil
}

func (q equality) VisitBoolean(n *Boolean) (bool, error) {
	o, ok := q.other.(*Boolean)

	return ok && o.Value == n.Value, nil
}

func (q equality) VisitNumber(n *Number) (bool, error) {
	o, ok := q.other.(*Number)

	return ok && o.Value == n.Value, nil
}

func (q equality) VisitString(n *String) (bool, error) {
	o, ok := q.other.(*String)

	return ok && o.Value == n.Value, nil
}

func (q equality) VisitIdentifier(n *Identifier) (bool, error) {
	o, ok := q.other.(*Identifier)

	return ok && o.Text == n.Text, nil
}

func (q equality) VisitProperty(n *Property) (bool, error) {
	o, ok := q.other.(*Property)

	return ok &&
		o.Property.Text == n.Property.Text &&
		Equal(n.Object, o.Object), nil
}

func (q equality) VisitIndex(n *Index) (bool, error) {
	o, ok := q.other.(*Index)

	return ok && Equal(n.Object, o.Object) && Equal(n.Index, o.Index), nil
}

func (q equality) VisitApplication(n *Application) (bool, error) {
	o, ok := q.other.(*Application)

	return ok && Equal(n.Fn, o.Fn) && equalAll(n.Args, o.Args), nil
}

func (q equality) VisitUnaryOperation(n *UnaryOperation) (bool, error) {
	o, ok := q.other.(*UnaryOperation)

	return ok && o.Op == n.Op && Equal(n.Right, o.Right), nil
}

func (q equality) VisitBinaryOperation(n *BinaryOperation) (bool, error) {
	o, ok := q.other.(*BinaryOperation)

	return ok &&
		o.Op == n.Op &&
		Equal(n.Left, o.Left) &&
		Equal(n.Right, o.Right), nil
}

func (q equality) VisitArrayConstruction(n *ArrayConstruction) (bool, error) {
	o, ok := q.other.(*ArrayConstruction)

	return ok && equalAll(n.Values, o.Values), nil
}

func (q equality) VisitObjectConstruction(n *ObjectConstruction) (bool, error) {
	o, ok := q.other.(*ObjectConstruction)

	return ok && slices.EqualFunc(n.Fields, o.Fields, func(a, b Field) bool {
		return a.Key == b.Key && Equal(a.Value, b.Value)
	}), nil
}
