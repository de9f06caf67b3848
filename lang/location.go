package lang

import "strconv"

// Location is a 1-based position in template source.
type Location struct {
	Line int
	Char int
}

// Loc returns l. Nodes embed Location to satisfy [Node].
func (l Location) Loc() Location { return l }

func (l Location) String() string {
	return strconv.Itoa(l.Line) + ":" + strconv.Itoa(l.Char)
}

// Before reports whether l precedes other in the source.
func (l Location) Before(other Location) bool {
	if l.Line != other.Line {
		return l.Line < other.Line
	}

	return l.Char < other.Char
}

// Node is anything positioned in template source.
type Node interface {
	Loc() Location
}
