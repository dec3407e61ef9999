package wishbone

import (
	"errors"
	"fmt"
)

// FaultCode categorizes bus protocol violations.
type FaultCode string

const (
	// ErrCodeStall indicates the device raised stall. This profile never
	// exercises backpressure, so any stall is a fault.
	ErrCodeStall FaultCode = "STALL"

	// ErrCodeMissingAck indicates ack was low on the edge after a request.
	ErrCodeMissingAck FaultCode = "MISSING_ACK"

	// ErrCodeLingeringAck indicates ack was still high on the idle edge.
	ErrCodeLingeringAck FaultCode = "LINGERING_ACK"

	// ErrCodeUnexpectedAck indicates ack rose while no request was issued.
	ErrCodeUnexpectedAck FaultCode = "UNEXPECTED_ACK"

	// ErrCodeReadbackMismatch indicates the data output did not echo a write.
	ErrCodeReadbackMismatch FaultCode = "READBACK_MISMATCH"
)

// FaultCodes lists every code a ProtocolError can carry.
var FaultCodes = []FaultCode{
	ErrCodeStall,
	ErrCodeMissingAck,
	ErrCodeLingeringAck,
	ErrCodeUnexpectedAck,
	ErrCodeReadbackMismatch,
}

// ProtocolError is a violation of the bus timing contract.
type ProtocolError struct {
	// Code identifies the violation.
	Code FaultCode

	// Op is the operation in progress.
	Op Op

	// Edge is the edge number on which the violation was observed.
	Edge uint64

	// Outputs are the device pins sampled on that edge.
	Outputs Outputs

	// Want is the word a write expected to read back. Only set for
	// ErrCodeReadbackMismatch.
	Want uint32
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Code == ErrCodeReadbackMismatch {
		return fmt.Sprintf("%s: %s at edge %d: wrote %08x, read back %08x",
			e.Code, e.Op, e.Edge, e.Want, e.Outputs.Data)
	}
	return fmt.Sprintf("%s: %s at edge %d (%s)", e.Code, e.Op, e.Edge, e.Outputs)
}

// IsProtocolError reports whether err is, or wraps, a protocol fault.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// FaultCodeOf returns the code of a wrapped protocol fault, or "" if err is
// not one.
func FaultCodeOf(err error) FaultCode {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
