package value

import "fmt"

// Signature is the net stack effect of a callable: it consumes Args values
// and produces Outputs values.
type Signature struct {
	Args    int
	Outputs int
}

func (s Signature) String() string { return fmt.Sprintf("|%d.%d", s.Args, s.Outputs) }

// Compose returns the signature of calling s then t in sequence, i.e. s's
// outputs feed t's inputs, with any shortfall passed through from (or
// surplus left on) the outer stack:
//
//	(a1,o1) ∘ (a2,o2) = (a1 + max(0, a2-o1), o2 + max(0, o1-a2))
func (s Signature) Compose(t Signature) Signature {
	return Signature{
		Args:    s.Args + max0(t.Args-s.Outputs),
		Outputs: t.Outputs + max0(s.Outputs-t.Args),
	}
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
