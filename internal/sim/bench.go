package sim

// Stepper is a clocked device. Step applies in, advances one clock edge and
// returns the outputs visible after that edge.
type Stepper[I, O any] interface {
	Step(in I) O
}

// StepFunc adapts a plain function to Stepper.
type StepFunc[I, O any] func(in I) O

// Step calls f(in).
func (f StepFunc[I, O]) Step(in I) O {
	return f(in)
}

// EdgeHook observes every edge driven through a Bench.
type EdgeHook[I, O any] func(edge uint64, in I, out O)

// Bench drives a Stepper one edge at a time and keeps the edge count.
type Bench[I, O any] struct {
	dut   Stepper[I, O]
	clock *Clock
	last  O
	hook  EdgeHook[I, O]
}

// NewBench wraps dut with a fresh edge counter.
func NewBench[I, O any](dut Stepper[I, O]) *Bench[I, O] {
	return &Bench[I, O]{dut: dut, clock: NewClock()}
}

// OnEdge installs a hook called after every edge. Passing nil removes it.
func (b *Bench[I, O]) OnEdge(hook EdgeHook[I, O]) {
	b.hook = hook
}

// Tick applies in, advances one edge and returns the new outputs.
func (b *Bench[I, O]) Tick(in I) O {
	out := b.dut.Step(in)
	edge := b.clock.Next()
	b.last = out
	if b.hook != nil {
		b.hook(edge, in, out)
	}
	return out
}

// Outputs returns the outputs of the most recent edge.
func (b *Bench[I, O]) Outputs() O {
	return b.last
}

// Edges returns the number of edges driven so far.
func (b *Bench[I, O]) Edges() uint64 {
	return b.clock.Current()
}
