package wishbone

import (
	"fmt"

	"github.com/roach88/rtcdate/internal/sim"
)

// Inputs are the pins the bench drives into the device for one edge.
type Inputs struct {
	Cyc  bool
	Stb  bool
	We   bool
	Data uint32

	// Aux is a device-specific strobe outside the bus protocol. The date
	// core uses it as its "day elapsed" pulse.
	Aux bool
}

// Outputs are the pins the device presents after an edge.
type Outputs struct {
	Stall bool
	Ack   bool
	Data  uint32
}

// String renders the output pins the way faults report them.
func (o Outputs) String() string {
	return fmt.Sprintf("stall=%d ack=%d data=%08x", bit(o.Stall), bit(o.Ack), o.Data)
}

// Device is a clocked Wishbone slave.
type Device = sim.Stepper[Inputs, Outputs]

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}
