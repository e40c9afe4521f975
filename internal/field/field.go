package field

import "errors"

// ErrExclusiveAccess is the panic value raised when a mutating operation
// detects another in-flight exclusive access on the same store. It signals a
// broken single-writer-per-step invariant, so the operation aborts instead of
// corrupting the write generation.
var ErrExclusiveAccess = errors.New("field: concurrent exclusive access")

// Field is a simulation-state container with a write generation mutated
// during a step and a read generation published at explicit points. The
// scheduler calls Update or LazyUpdate at the step boundary; readers only
// ever observe the state produced by the last completed publish.
type Field interface {
	Update()
	LazyUpdate()
}

// guard is the runtime check backing the single-writer contract. It is not a
// lock: a second concurrent acquire is a programming error and must surface,
// not wait.
type guard struct {
	held chan struct{}
}

func newGuard() *guard {
	g := &guard{held: make(chan struct{}, 1)}
	g.held <- struct{}{}
	return g
}

func (g *guard) acquire() {
	select {
	case <-g.held:
	default:
		panic(ErrExclusiveAccess)
	}
}

func (g *guard) release() {
	g.held <- struct{}{}
}
