package vm

import (
	"fmt"
	"math"

	"github.com/kelplang/kelp/lang/compiler"
	"github.com/kelplang/kelp/lang/primitive"
	"github.com/kelplang/kelp/lang/token"
	"github.com/kelplang/kelp/lang/value"
)

// maxInfiniteRepeat bounds an infinite repeat (⍥ with n = +∞) so a kelp
// program can't wedge an embedding process forever: the reference semantics
// rely on the repeated function eventually erroring (e.g. indexing an
// exhausted array) to end the loop, which is fine for a standalone
// interpreter but not for one meant to be embedded, so this VM adds an
// explicit ceiling instead.
const maxInfiniteRepeat = 1_000_000

// callModifier dispatches a modifier primitive. instr is only used for its
// span: an error that is not already a RuntimeError is wrapped in one
// carrying that span. It may be the zero value when called indirectly via
// call() rather than directly from the Run loop, and then errors are
// returned unwrapped.
func (vm *VM) callModifier(id primitive.ID, instr compiler.Instr) (err error) {
	defer func() {
		if _, ok := err.(*RuntimeError); err != nil && !ok && instr.Span != (token.Span{}) {
			err = &RuntimeError{Span: instr.Span.String(), Msg: err.Error()}
		}
	}()
	switch id {
	case primitive.Repeat:
		return vm.repeat()
	case primitive.Do:
		return vm.do()
	case primitive.Partition:
		return vm.collapseGroups("partition", partitionGroups)
	case primitive.Unpartition:
		return vm.unpartition()
	case primitive.Group:
		return vm.collapseGroups("group", groupGroups)
	case primitive.Ungroup:
		return vm.ungroup()
	case primitive.Reduce:
		return vm.reduce()
	case primitive.Level:
		return vm.level()
	default:
		return fmt.Errorf("%s: not a modifier", primitive.ByID(id).Name)
	}
}

// repeat calls f n times; n = +∞ loops until f itself errors, bounded by
// maxInfiniteRepeat. A negative n replaces f with its inverse (see invert.go)
// and repeats |n| times instead — spec.md §4.4's "repeat inverse" law.
func (vm *VM) repeat() error {
	f := vm.popFunction()
	n, err := scalarFloat(vm.pop())
	if err != nil {
		return fmt.Errorf("repeat: %w", err)
	}

	if math.IsInf(n, 0) {
		if n < 0 {
			f, err = vm.requireInverse(f)
			if err != nil {
				return fmt.Errorf("repeat: %w", err)
			}
		}
		for i := 0; i < maxInfiniteRepeat; i++ {
			if err := vm.call(f); err != nil {
				return err
			}
		}
		return fmt.Errorf("repeat: exceeded the %d-iteration limit without the repeated function erroring to signal completion", maxInfiniteRepeat)
	}
	if math.Trunc(n) != n {
		return fmt.Errorf("repeat: repetitions must be a single integer or infinity, got %v", n)
	}
	if n < 0 {
		f, err = vm.requireInverse(f)
		if err != nil {
			return fmt.Errorf("repeat: %w", err)
		}
		n = -n
	}
	for i := 0; i < int(n); i++ {
		if err := vm.call(f); err != nil {
			return err
		}
	}
	return nil
}

// do loops: call the condition function g (optionally re-presenting some of
// its own inputs each time via cloneTop), then call the body f while g's
// result is truthy. f and g together must have a net stack change of zero,
// checked statically via their composed Signature.
func (vm *VM) do() error {
	f := vm.popFunction()
	g := vm.popFunction()

	fSig, err := vm.Asm.Signature(f)
	if err != nil {
		return fmt.Errorf("do: %w", err)
	}
	gSig, err := vm.Asm.Signature(g)
	if err != nil {
		return fmt.Errorf("do: %w", err)
	}
	if gSig.Outputs < 1 {
		return fmt.Errorf("do's condition function must return at least 1 value, but its signature is %s", gSig)
	}
	copyCount := max0(gSig.Args - (gSig.Outputs - 1))
	gSubSig := value.Signature{Args: gSig.Args, Outputs: gSig.Outputs + copyCount - 1}
	compSig := fSig.Compose(gSubSig)
	if compSig.Args != compSig.Outputs {
		return fmt.Errorf("do's functions must have a net stack change of 0, but the composed signature of %s and %s, minus the condition, is %s", fSig, gSig, compSig)
	}

	for {
		vm.cloneTop(copyCount)
		if err := vm.call(g); err != nil {
			return err
		}
		cond, err := truthy(vm.pop())
		if err != nil {
			return fmt.Errorf("do: %w", err)
		}
		if !cond {
			return nil
		}
		if err := vm.call(f); err != nil {
			return err
		}
	}
}

// reduce folds f over an array's rows, left to right, starting from the
// array's first row. Not part of the original modifier set named in this
// VM's minimal alphabet, but grounded on the same collapseGroups calling
// convention and supplied because it's one of the most basic array
// operations a reader would expect next to partition/group.
func (vm *VM) reduce() error {
	f := vm.popFunction()
	arr := vm.pop()

	n := arr.RowCount()
	if n == 0 {
		return fmt.Errorf("reduce: cannot reduce an empty array with no starting value")
	}
	acc := arr.Row(0)
	for i := 1; i < n; i++ {
		vm.push(arr.Row(i))
		vm.push(acc)
		if err := vm.call(f); err != nil {
			return err
		}
		acc = vm.pop()
	}
	vm.push(acc)
	return nil
}

// groupFunc computes the row groups for partition/group given the source
// array and its marker/index list.
type groupFunc func(values value.Value, markers []int) ([]value.Value, error)

// collapseGroups implements both partition and group: their only difference
// is how markers are turned into row groups (partitionGroups vs
// groupGroups). The callee's arity selects the dispatch: 0 or 1 argument
// maps each group through f independently; 2 arguments folds f over the
// groups left to right, threading an accumulator.
func (vm *VM) collapseGroups(name string, getGroups groupFunc) error {
	f := vm.popFunction()
	sig, err := vm.Asm.Signature(f)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	switch sig.Args {
	case 0, 1:
		markers, err := valueToInts(vm.pop())
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		values := vm.pop()
		groups, err := getGroups(values, markers)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		rows := make([]value.Value, len(groups))
		for i, g := range groups {
			vm.push(g)
			if err := vm.call(f); err != nil {
				return err
			}
			rows[i] = vm.pop()
		}
		res, err := value.FromRowValues(rows)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		vm.push(res)
		return nil
	case 2:
		acc := vm.pop()
		markers, err := valueToInts(vm.pop())
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		values := vm.pop()
		groups, err := getGroups(values, markers)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		for _, g := range groups {
			vm.push(g)
			vm.push(acc)
			if err := vm.call(f); err != nil {
				return err
			}
			acc = vm.pop()
		}
		vm.push(acc)
		return nil
	default:
		return fmt.Errorf("cannot %s with a function that takes %d arguments", name, sig.Args)
	}
}

// partitionGroups groups consecutive rows sharing the same positive marker
// into one group each; a run of the same positive marker is one group even
// if separated from another run of the same value by a differently-marked
// row (per the lastMarker sentinel, starting above any real marker so the
// very first row always starts a new group).
func partitionGroups(values value.Value, markers []int) ([]value.Value, error) {
	if len(markers) != values.RowCount() {
		return nil, fmt.Errorf("cannot partition an array of %d rows with %d markers", values.RowCount(), len(markers))
	}
	var groups [][]value.Value
	lastMarker := math.MaxInt
	for i := 0; i < values.RowCount(); i++ {
		m := markers[i]
		if m > 0 {
			if m != lastMarker {
				groups = append(groups, nil)
			}
			groups[len(groups)-1] = append(groups[len(groups)-1], values.Row(i))
		}
		lastMarker = m
	}
	return assembleGroups(groups)
}

// groupGroups buckets each row into groups[indices[row]], skipping rows
// with a negative index. Bucket count is max(indices)+1.
func groupGroups(values value.Value, indices []int) ([]value.Value, error) {
	if len(indices) != values.RowCount() {
		return nil, fmt.Errorf("cannot group an array of %d rows with %d indices", values.RowCount(), len(indices))
	}
	maxIdx := -1
	for _, idx := range indices {
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	if maxIdx < 0 {
		return nil, nil
	}
	groups := make([][]value.Value, maxIdx+1)
	for r, idx := range indices {
		if idx >= 0 && r < values.RowCount() {
			groups[idx] = append(groups[idx], values.Row(r))
		}
	}
	return assembleGroups(groups)
}

func assembleGroups(groups [][]value.Value) ([]value.Value, error) {
	out := make([]value.Value, len(groups))
	for i, g := range groups {
		v, err := value.FromRowValues(g)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// unpartition inverts partition: f must be a 1-to-1 row transform. Each row
// of the previously-partitioned array is passed back through f, then the
// untransformed rows are spliced back into their original run lengths using
// the same markers and pre-partition array partition was given (popped
// here as plain stack arguments rather than a separate side stack, a
// simplification from the reference's dedicated "pop from underneath"
// accessor).
func (vm *VM) unpartition() error {
	f := vm.popFunction()
	sig, err := vm.Asm.Signature(f)
	if err != nil {
		return fmt.Errorf("unpartition: %w", err)
	}
	if sig.Args != 1 || sig.Outputs != 1 {
		return fmt.Errorf("cannot undo partition with a function with signature %s", sig)
	}
	partitioned := vm.pop()

	untransformed := make([]value.Value, partitioned.RowCount())
	for i := 0; i < partitioned.RowCount(); i++ {
		vm.push(partitioned.Row(i))
		if err := vm.call(f); err != nil {
			return err
		}
		untransformed[i] = vm.pop()
	}

	original := vm.pop()
	markers, err := valueToInts(vm.pop())
	if err != nil {
		return fmt.Errorf("unpartition: %w", err)
	}

	type run struct {
		marker int
		length int
	}
	var runs []run
	for _, m := range markers {
		if len(runs) > 0 && runs[len(runs)-1].marker == m {
			runs[len(runs)-1].length++
		} else {
			runs = append(runs, run{marker: m, length: 1})
		}
	}
	positiveRuns := 0
	for _, r := range runs {
		if r.marker > 0 {
			positiveRuns++
		}
	}
	if positiveRuns != len(untransformed) {
		return fmt.Errorf("cannot undo partition because the partitioned array originally had %d rows, but now it has %d", positiveRuns, len(untransformed))
	}

	var unpartitioned []value.Value
	used := 0
	offset := 0
	for _, r := range runs {
		if r.marker > 0 {
			unpartitioned = append(unpartitioned, rowsOf(untransformed[used])...)
			used++
		} else {
			for i := 0; i < r.length; i++ {
				unpartitioned = append(unpartitioned, original.Row(offset+i))
			}
		}
		offset += r.length
	}

	res, err := value.FromRowValues(unpartitioned)
	if err != nil {
		return fmt.Errorf("unpartition: %w", err)
	}
	vm.push(res)
	return nil
}

func rowsOf(v value.Value) []value.Value {
	n := v.RowCount()
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		out[i] = v.Row(i)
	}
	return out
}

// ungroup inverts group: f must be a 1-to-1 row transform, applied to each
// group (last group first; each result is stored at its group's index, so
// the processing order does not affect the output), then rows are
// redistributed to their original positions using the same indices group
// was given.
func (vm *VM) ungroup() error {
	f := vm.popFunction()
	sig, err := vm.Asm.Signature(f)
	if err != nil {
		return fmt.Errorf("ungroup: %w", err)
	}
	if sig.Args != 1 || sig.Outputs != 1 {
		return fmt.Errorf("cannot undo group with a function with signature %s", sig)
	}
	grouped := vm.pop()

	n := grouped.RowCount()
	ungroupedRows := make([][]value.Value, n)
	cursors := make([]int, n)
	for i := n - 1; i >= 0; i-- {
		vm.push(grouped.Row(i))
		if err := vm.call(f); err != nil {
			return err
		}
		ungroupedRows[i] = rowsOf(vm.pop())
	}

	original := vm.pop()
	indices, err := valueToInts(vm.pop())
	if err != nil {
		return fmt.Errorf("ungroup: %w", err)
	}

	ungrouped := make([]value.Value, len(indices))
	for i, idx := range indices {
		if idx >= 0 {
			bucket := int(idx)
			if bucket >= len(ungroupedRows) || cursors[bucket] >= len(ungroupedRows[bucket]) {
				return fmt.Errorf("a group's length was modified between grouping and ungrouping")
			}
			ungrouped[i] = ungroupedRows[bucket][cursors[bucket]]
			cursors[bucket]++
		} else {
			ungrouped[i] = original.Row(i)
		}
	}

	res, err := value.FromRowValues(ungrouped)
	if err != nil {
		return fmt.Errorf("ungroup: %w", err)
	}
	vm.push(res)
	return nil
}
