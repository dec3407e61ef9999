package wishbone

import (
	"io"
	"log/slog"

	"github.com/roach88/rtcdate/internal/sim"
)

// Op names a bus operation.
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
	OpPulse Op = "pulse"
)

// Transaction records one completed operation.
type Transaction struct {
	// Seq numbers transactions from 1 in issue order.
	Seq uint64

	// Op is the operation.
	Op Op

	// Edge is the first edge the operation drove.
	Edge uint64

	// Value is the word read or written. Zero for pulses.
	Value uint32
}

// Bus issues single-beat transactions against a Device.
//
// Bus is not safe for concurrent use; it owns the device's input pins.
type Bus struct {
	bench   *sim.Bench[Inputs, Outputs]
	seq     *sim.Clock
	logger  *slog.Logger
	observe func(Transaction)
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report faults.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// WithObserver installs a callback run after every successful transaction.
func WithObserver(fn func(Transaction)) Option {
	return func(b *Bus) {
		b.observe = fn
	}
}

// New creates a transactor driving dev.
func New(dev Device, opts ...Option) *Bus {
	b := &Bus{
		bench:  sim.NewBench[Inputs, Outputs](dev),
		seq:    sim.NewClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Edges returns the number of edges driven so far.
func (b *Bus) Edges() uint64 {
	return b.bench.Edges()
}

// Bench exposes the underlying edge stepper, e.g. to install an edge hook.
func (b *Bus) Bench() *sim.Bench[Inputs, Outputs] {
	return b.bench
}

// Read performs one single-beat read and returns the word the device
// acknowledged with.
func (b *Bus) Read() (uint32, error) {
	first := b.bench.Edges() + 1

	out := b.bench.Tick(Inputs{Cyc: true, Stb: true})
	if err := b.expectAck(OpRead, out); err != nil {
		return 0, err
	}
	value := out.Data

	if err := b.expectIdle(OpRead, b.bench.Tick(Inputs{})); err != nil {
		return 0, err
	}

	b.complete(OpRead, first, value)
	return value, nil
}

// Write performs one single-beat write of value and verifies the device
// reads it back once the idle edge has passed.
func (b *Bus) Write(value uint32) error {
	first := b.bench.Edges() + 1

	out := b.bench.Tick(Inputs{Cyc: true, Stb: true, We: true, Data: value})
	if err := b.expectAck(OpWrite, out); err != nil {
		return err
	}

	out = b.bench.Tick(Inputs{})
	if err := b.expectIdle(OpWrite, out); err != nil {
		return err
	}
	if out.Data != value {
		return b.fault(&ProtocolError{
			Code:    ErrCodeReadbackMismatch,
			Op:      OpWrite,
			Edge:    b.bench.Edges(),
			Outputs: out,
			Want:    value,
		})
	}

	b.complete(OpWrite, first, value)
	return nil
}

// Pulse raises the auxiliary strobe for exactly one edge with every bus
// request line low. The device must neither stall nor acknowledge.
func (b *Bus) Pulse() error {
	first := b.bench.Edges() + 1

	out := b.bench.Tick(Inputs{Aux: true})
	if out.Stall {
		return b.fault(&ProtocolError{Code: ErrCodeStall, Op: OpPulse, Edge: first, Outputs: out})
	}
	if out.Ack {
		return b.fault(&ProtocolError{Code: ErrCodeUnexpectedAck, Op: OpPulse, Edge: first, Outputs: out})
	}

	b.complete(OpPulse, first, 0)
	return nil
}

// expectAck checks the edge that carried the request.
func (b *Bus) expectAck(op Op, out Outputs) error {
	edge := b.bench.Edges()
	if out.Stall {
		return b.fault(&ProtocolError{Code: ErrCodeStall, Op: op, Edge: edge, Outputs: out})
	}
	if !out.Ack {
		return b.fault(&ProtocolError{Code: ErrCodeMissingAck, Op: op, Edge: edge, Outputs: out})
	}
	return nil
}

// expectIdle checks the edge after the request was dropped.
func (b *Bus) expectIdle(op Op, out Outputs) error {
	edge := b.bench.Edges()
	if out.Stall {
		return b.fault(&ProtocolError{Code: ErrCodeStall, Op: op, Edge: edge, Outputs: out})
	}
	if out.Ack {
		return b.fault(&ProtocolError{Code: ErrCodeLingeringAck, Op: op, Edge: edge, Outputs: out})
	}
	return nil
}

func (b *Bus) fault(err *ProtocolError) error {
	b.logger.Debug("bus protocol fault",
		"code", string(err.Code),
		"op", string(err.Op),
		"edge", err.Edge,
		"outputs", err.Outputs.String(),
	)
	return err
}

func (b *Bus) complete(op Op, edge uint64, value uint32) {
	seq := b.seq.Next()
	if b.observe != nil {
		b.observe(Transaction{Seq: seq, Op: op, Edge: edge, Value: value})
	}
}
