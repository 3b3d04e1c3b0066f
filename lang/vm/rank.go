package vm

import (
	"fmt"
	"math"

	"github.com/kelplang/kelp/lang/value"
)

// rankToDepth converts a declared rank (nil means unspecified) against an
// array's actual rank into the number of leading dimensions level should
// iterate over before calling the operand function, per spec.md §4.5:
//
//   - no declared rank: operate at depth 0 (the whole array, untouched).
//   - a negative rank d: keep the outermost |d| dimensions scalar and act on
//     the rest, i.e. depth = actual - max(0, actual+d).
//   - a non-negative rank d: act at rank d, i.e. depth = actual - min(d, actual).
func rankToDepth(declared *int, actual int) int {
	if declared == nil {
		return 0
	}
	d := *declared
	if d < 0 {
		return actual - max0(actual+d)
	}
	return actual - min0(d, actual)
}

func min0(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// rankDescriptors evaluates ranksFn per spec.md §4.5's calling convention: if
// it consumes arguments, a single default empty numeric array is pushed
// before it is invoked; it must return exactly one array, which is then read as a list
// of optional signed integers (a NaN entry means "unspecified", i.e. nil)
// and reversed, since every other multi-value list in this language is read
// in the same right-to-left order the source text is compiled in.
func (vm *VM) rankDescriptors(ranksFn value.Function) ([]*int, error) {
	sig, err := vm.Asm.Signature(ranksFn)
	if err != nil {
		return nil, fmt.Errorf("rank descriptor function: %w", err)
	}
	if sig.Args > 0 {
		vm.push(&value.NumberArray{Shape: []int{0}})
	}
	if err := vm.call(ranksFn); err != nil {
		return nil, err
	}
	if sig.Outputs != 1 {
		return nil, fmt.Errorf("rank descriptor function must return exactly 1 value, but its signature is %s", sig)
	}
	result := vm.pop()

	var floats []float64
	switch a := result.(type) {
	case *value.NumberArray:
		floats = a.Data
	case *value.ByteArray:
		floats = make([]float64, len(a.Data))
		for i, b := range a.Data {
			floats[i] = float64(b)
		}
	default:
		return nil, fmt.Errorf("rank descriptors must be numbers, got %s", result.Kind())
	}

	out := make([]*int, len(floats))
	for i, f := range floats {
		if math.IsNaN(f) {
			out[i] = nil
			continue
		}
		if math.Trunc(f) != f {
			return nil, fmt.Errorf("rank descriptors must be integers (or NaN for unspecified), got %v", f)
		}
		d := int(f)
		out[i] = &d
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// level applies f at a depth computed from a caller-supplied rank-descriptor
// function: f runs on the sub-arrays rank-descriptor levels up from the
// leaves, rather than on the whole array as an ordinary call would. This is
// the one primitive that exercises the rank-list utility (spec.md §4.5); f
// itself stays a plain 1-in/1-out row transform; the rank descriptor for
// this single operand is the last (rightmost-compiled) entry the descriptor
// function produces, matching the reversed list's "first array gets the
// first descriptor after reversing" convention.
func (vm *VM) level() error {
	f := vm.popFunction()
	ranksFn := vm.popFunction()
	arr := vm.pop()

	ranks, err := vm.rankDescriptors(ranksFn)
	if err != nil {
		return fmt.Errorf("level: %w", err)
	}
	var declared *int
	if len(ranks) > 0 {
		declared = ranks[0]
	}

	depth := rankToDepth(declared, arr.Rank())
	res, err := vm.applyAtDepth(f, arr, depth)
	if err != nil {
		return fmt.Errorf("level: %w", err)
	}
	vm.push(res)
	return nil
}

// applyAtDepth calls f directly once depth reaches 0, otherwise maps over
// the array's rows and recurses one level shallower.
func (vm *VM) applyAtDepth(f value.Function, v value.Value, depth int) (value.Value, error) {
	if depth <= 0 {
		vm.push(v)
		if err := vm.call(f); err != nil {
			return nil, err
		}
		return vm.pop(), nil
	}
	n := v.RowCount()
	rows := make([]value.Value, n)
	for i := 0; i < n; i++ {
		r, err := vm.applyAtDepth(f, v.Row(i), depth-1)
		if err != nil {
			return nil, err
		}
		rows[i] = r
	}
	return value.FromRowValues(rows)
}
