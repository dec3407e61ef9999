package rtcdate

import (
	"fmt"

	"github.com/roach88/rtcdate/internal/wishbone"
)

// Fault selects a deliberate defect in the model.
type Fault string

const (
	FaultNone Fault = "none"

	// FaultStall ties stall high.
	FaultStall Fault = "stall"

	// FaultDropAck never acknowledges.
	FaultDropAck Fault = "drop-ack"

	// FaultLingerAck holds ack high for a second edge.
	FaultLingerAck Fault = "linger-ack"

	// FaultIgnoreWrite acknowledges writes without storing them.
	FaultIgnoreWrite Fault = "ignore-write"

	// FaultCenturyLeap treats every century year as common, so 2000 has no
	// February 29.
	FaultCenturyLeap Fault = "century-leap"
)

// Faults lists every fault the model understands, FaultNone first.
var Faults = []Fault{
	FaultNone,
	FaultStall,
	FaultDropAck,
	FaultLingerAck,
	FaultIgnoreWrite,
	FaultCenturyLeap,
}

// ParseFault resolves a fault name.
func ParseFault(s string) (Fault, error) {
	if s == "" {
		return FaultNone, nil
	}
	for _, f := range Faults {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown fault %q: must be one of %v", s, Faults)
}

// Core is the date register plus its bus interface.
type Core struct {
	date  uint32
	fault Fault

	// registered outputs
	ack     bool
	lastAck bool
	data    uint32
}

// Option configures a Core.
type Option func(*Core)

// WithFault injects f.
func WithFault(f Fault) Option {
	return func(c *Core) {
		c.fault = f
	}
}

// WithDate sets the power-on contents of the date register.
func WithDate(packed uint32) Option {
	return func(c *Core) {
		c.date = packed
		c.data = packed
	}
}

// New creates a core. Without WithDate the register powers up as 0000-00-00.
func New(opts ...Option) *Core {
	c := &Core{fault: FaultNone}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ wishbone.Device = (*Core)(nil)

// Step clocks the core for one edge.
func (c *Core) Step(in wishbone.Inputs) wishbone.Outputs {
	request := in.Cyc && in.Stb

	// Registered outputs sample the state from before this edge.
	c.data = c.date
	c.lastAck, c.ack = c.ack, request

	switch {
	case request && in.We:
		if c.fault != FaultIgnoreWrite {
			c.date = in.Data
		}
	case in.Aux:
		c.date = NextDay(c.date, c.fault == FaultCenturyLeap)
	}

	out := wishbone.Outputs{Ack: c.ack, Data: c.data}
	switch c.fault {
	case FaultStall:
		out.Stall = true
	case FaultDropAck:
		out.Ack = false
	case FaultLingerAck:
		out.Ack = c.ack || c.lastAck
	}
	return out
}

// Date returns the current contents of the date register.
func (c *Core) Date() uint32 {
	return c.date
}
