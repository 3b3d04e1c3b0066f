// Package value implements the runtime representation of kelp values: tagged
// arrays of a handful of elemental types, plus the packed Function handle
// that lets a function be pushed and popped just like any other value.
package value

import "fmt"

// Kind identifies the elemental type carried by a Value.
type Kind uint8

const (
	KindNumber Kind = iota
	KindByte
	KindComplex
	KindChar
	KindBox
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindByte:
		return "byte"
	case KindComplex:
		return "complex"
	case KindChar:
		return "char"
	case KindBox:
		return "box"
	case KindFunction:
		return "function"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is implemented by every array variant and by Function. Every
// non-function variant is an N-dimensional array: Shape gives the
// dimensions and Len gives the total element count, with
// shape.product() == Len() always holding.
type Value interface {
	Kind() Kind
	Shape() []int
	Len() int
	// RowCount is the size of the first dimension, i.e. Shape()[0], or 1 for
	// a scalar (rank 0) value.
	RowCount() int
	// Row returns the i'th row, a value of rank Rank()-1.
	Row(i int) Value
	// Rank is the number of dimensions, len(Shape()); 0 for a scalar.
	Rank() int
	String() string
}

// FromRowValues reassembles a slice of same-shaped row values (all of the
// same Kind and shape) into a single array whose first dimension is
// len(rows). It is the inverse of Row: used by the partition/group
// modifiers to rebuild their output. An empty rows slice yields an empty
// Number array (the default element type when nothing is known).
func FromRowValues(rows []Value) (Value, error) {
	if len(rows) == 0 {
		return &NumberArray{Shape: []int{0}}, nil
	}
	kind := rows[0].Kind()
	rowShape := rows[0].Shape()
	for _, r := range rows[1:] {
		if r.Kind() != kind {
			return nil, fmt.Errorf("cannot combine rows of different types %s and %s", kind, r.Kind())
		}
		if !shapeEqual(r.Shape(), rowShape) {
			return nil, fmt.Errorf("cannot combine rows of different shapes %v and %v", rowShape, r.Shape())
		}
	}
	switch kind {
	case KindNumber:
		return combineNumber(rows, rowShape), nil
	case KindByte:
		return combineByte(rows, rowShape), nil
	case KindComplex:
		return combineComplex(rows, rowShape), nil
	case KindChar:
		return combineChar(rows, rowShape), nil
	case KindBox:
		return combineBox(rows, rowShape), nil
	case KindFunction:
		// Functions are scalar; a "row" of functions is a Box array of them.
		boxed := make([]Value, len(rows))
		copy(boxed, rows)
		return &BoxArray{Shape: []int{len(rows)}, Data: boxed}, nil
	default:
		return nil, fmt.Errorf("cannot combine rows of kind %s", kind)
	}
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func rowLen(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func joinedShape(n int, rowShape []int) []int {
	shape := make([]int, 0, 1+len(rowShape))
	shape = append(shape, n)
	shape = append(shape, rowShape...)
	return shape
}
