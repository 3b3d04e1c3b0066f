package primitive

import (
	"fmt"

	"github.com/kelplang/kelp/lang/value"
)

func kIdentity(args []value.Value) ([]value.Value, error) { return args, nil }

func kPop(args []value.Value) ([]value.Value, error) { return nil, nil }

func kDup(args []value.Value) ([]value.Value, error) {
	return []value.Value{args[0], args[0]}, nil
}

func kFlip(args []value.Value) ([]value.Value, error) {
	return []value.Value{args[1], args[0]}, nil
}

// numeric extracts a flat float64 view and shape of a Number or Byte array,
// the only two kinds pervasive arithmetic accepts in this implementation.
func numeric(v value.Value, context string) ([]float64, []int, error) {
	switch a := v.(type) {
	case *value.NumberArray:
		return a.Data, a.Shape, nil
	case *value.ByteArray:
		out := make([]float64, len(a.Data))
		for i, b := range a.Data {
			out[i] = float64(b)
		}
		return out, a.Shape, nil
	default:
		return nil, nil, fmt.Errorf("%s expects numbers, got %s", context, v.Kind())
	}
}

// pervasiveBinary applies op element-wise, broadcasting a scalar operand
// against an array of any shape. Two non-scalar operands must share exactly
// the same shape. This is a simplified, representative pervasive model; the
// full suffix-broadcasting rules of the original kernel table are out of
// scope (spec.md §1).
func pervasiveBinary(name string, x, y value.Value, op func(a, b float64) float64) (value.Value, error) {
	xd, xs, err := numeric(x, name)
	if err != nil {
		return nil, err
	}
	yd, ys, err := numeric(y, name)
	if err != nil {
		return nil, err
	}

	switch {
	case len(xs) == 0 && len(ys) == 0:
		return value.NewNumber(op(xd[0], yd[0])), nil
	case len(xs) == 0:
		out := make([]float64, len(yd))
		for i, b := range yd {
			out[i] = op(xd[0], b)
		}
		return &value.NumberArray{Shape: append([]int(nil), ys...), Data: out}, nil
	case len(ys) == 0:
		out := make([]float64, len(xd))
		for i, a := range xd {
			out[i] = op(a, yd[0])
		}
		return &value.NumberArray{Shape: append([]int(nil), xs...), Data: out}, nil
	default:
		same := len(xs) == len(ys)
		for i := 0; same && i < len(xs); i++ {
			same = xs[i] == ys[i]
		}
		if !same {
			return nil, fmt.Errorf("%s: shapes %v and %v do not match", name, xs, ys)
		}
		out := make([]float64, len(xd))
		for i := range xd {
			out[i] = op(xd[i], yd[i])
		}
		return &value.NumberArray{Shape: append([]int(nil), xs...), Data: out}, nil
	}
}

func binKernel(name string, op func(a, b float64) float64) Kernel {
	return func(args []value.Value) ([]value.Value, error) {
		v, err := pervasiveBinary(name, args[0], args[1], op)
		if err != nil {
			return nil, err
		}
		return []value.Value{v}, nil
	}
}

var (
	kAdd = binKernel("add", func(a, b float64) float64 { return a + b })
	kSub = binKernel("sub", func(a, b float64) float64 { return a - b })
	kMul = binKernel("mul", func(a, b float64) float64 { return a * b })
	kDiv = binKernel("div", func(a, b float64) float64 { return a / b })
	kEq  = binKernel("eq", boolOp(func(a, b float64) bool { return a == b }))
	kNe  = binKernel("ne", boolOp(func(a, b float64) bool { return a != b }))
	kLt  = binKernel("lt", boolOp(func(a, b float64) bool { return a < b }))
	kGt  = binKernel("gt", boolOp(func(a, b float64) bool { return a > b }))
	kLe  = binKernel("le", boolOp(func(a, b float64) bool { return a <= b }))
	kGe  = binKernel("ge", boolOp(func(a, b float64) bool { return a >= b }))
)

func boolOp(cmp func(a, b float64) bool) func(a, b float64) float64 {
	return func(a, b float64) float64 {
		if cmp(a, b) {
			return 1
		}
		return 0
	}
}

func kNeg(args []value.Value) ([]value.Value, error) {
	d, s, err := numeric(args[0], "neg")
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(d))
	for i, v := range d {
		out[i] = -v
	}
	return []value.Value{&value.NumberArray{Shape: append([]int(nil), s...), Data: out}}, nil
}

func kNot(args []value.Value) ([]value.Value, error) {
	d, s, err := numeric(args[0], "not")
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(d))
	for i, v := range d {
		if v == 0 {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
	return []value.Value{&value.NumberArray{Shape: append([]int(nil), s...), Data: out}}, nil
}

func kFirst(args []value.Value) ([]value.Value, error) {
	v := args[0]
	if v.RowCount() == 0 {
		return nil, fmt.Errorf("first: array is empty")
	}
	return []value.Value{v.Row(0)}, nil
}

func kLength(args []value.Value) ([]value.Value, error) {
	return []value.Value{value.NewNumber(float64(args[0].RowCount()))}, nil
}

func kShape(args []value.Value) ([]value.Value, error) {
	shape := args[0].Shape()
	data := make([]float64, len(shape))
	for i, d := range shape {
		data[i] = float64(d)
	}
	return []value.Value{&value.NumberArray{Shape: []int{len(shape)}, Data: data}}, nil
}

func kReverse(args []value.Value) ([]value.Value, error) {
	v := args[0]
	n := v.RowCount()
	rows := make([]value.Value, n)
	for i := 0; i < n; i++ {
		rows[n-1-i] = v.Row(i)
	}
	out, err := value.FromRowValues(rows)
	if err != nil {
		return nil, err
	}
	return []value.Value{out}, nil
}
