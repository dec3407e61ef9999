package testutil

import "github.com/roach88/rtcdate/internal/wishbone"

// ScriptedDevice replays a fixed sequence of output pins, one per edge, and
// records the inputs it was driven with.
//
// Once the script runs out every further edge answers with idle outputs
// (stall=0, ack=0) and the data word of the last scripted edge.
//
// Thread-safety: not safe for concurrent use, like the bus it stands in for.
type ScriptedDevice struct {
	Script []wishbone.Outputs
	Inputs []wishbone.Inputs
}

// NewScriptedDevice creates a device answering with outs in order.
func NewScriptedDevice(outs ...wishbone.Outputs) *ScriptedDevice {
	return &ScriptedDevice{Script: outs}
}

// Step implements wishbone.Device.
func (d *ScriptedDevice) Step(in wishbone.Inputs) wishbone.Outputs {
	edge := len(d.Inputs)
	d.Inputs = append(d.Inputs, in)
	if edge < len(d.Script) {
		return d.Script[edge]
	}
	if n := len(d.Script); n > 0 {
		return wishbone.Outputs{Data: d.Script[n-1].Data}
	}
	return wishbone.Outputs{}
}

// Ack returns the outputs of a well-behaved slave acknowledging with data.
func Ack(data uint32) wishbone.Outputs {
	return wishbone.Outputs{Ack: true, Data: data}
}

// Idle returns idle outputs presenting data.
func Idle(data uint32) wishbone.Outputs {
	return wishbone.Outputs{Data: data}
}

// CorruptingDevice wraps a device and rewrites the data word of every
// acknowledged read for which Corrupt returns true.
type CorruptingDevice struct {
	wishbone.Device
	Corrupt func(data uint32) (uint32, bool)
}

// Step implements wishbone.Device.
func (d *CorruptingDevice) Step(in wishbone.Inputs) wishbone.Outputs {
	out := d.Device.Step(in)
	if out.Ack && !in.We && d.Corrupt != nil {
		if data, ok := d.Corrupt(out.Data); ok {
			out.Data = data
		}
	}
	return out
}
