package harness

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/rtcdate/internal/bcd"
	"github.com/roach88/rtcdate/internal/wishbone"
)

// MismatchError is a semantic failure: the device answered the bus
// correctly but reported a different date than the reference.
type MismatchError struct {
	// When is the instant being checked.
	When time.Time

	// Expected is the reference encoding of When.
	Expected uint32

	// Actual is what the device returned.
	Actual uint32
}

// Error implements the error interface. The format matches the bench's
// failure line.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("%08x(exp) != %08x (read)", e.Expected, e.Actual)
}

// Date returns the calendar date that was being checked.
func (e *MismatchError) Date() bcd.Date {
	return bcd.DateOf(e.When)
}

// IsMismatch reports whether err is, or wraps, a *MismatchError.
func IsMismatch(err error) bool {
	var me *MismatchError
	return errors.As(err, &me)
}

// Failure codes name the way a run stopped. Protocol faults use their
// wishbone.FaultCode.
const (
	FailureMismatch = "MISMATCH"
	FailureOther    = "ERROR"
)

// FailureCode classifies a run-stopping error.
func FailureCode(err error) string {
	switch {
	case err == nil:
		return ""
	case IsMismatch(err):
		return FailureMismatch
	case wishbone.IsProtocolError(err):
		return string(wishbone.FaultCodeOf(err))
	default:
		return FailureOther
	}
}
