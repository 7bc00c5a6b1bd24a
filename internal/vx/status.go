package vx

import (
	"errors"
	"fmt"
)

// Status is the numeric result discriminator shared by every runtime call.
// Non-success values satisfy the error interface.
type Status int32

const (
	ErrorReferenceNonzero  Status = -24
	ErrorMultipleWriters   Status = -23
	ErrorGraphAbandoned    Status = -22
	ErrorGraphScheduled    Status = -21
	ErrorInvalidScope      Status = -20
	ErrorInvalidNode       Status = -19
	ErrorInvalidGraph      Status = -18
	ErrorInvalidType       Status = -17
	ErrorInvalidValue      Status = -16
	ErrorInvalidDimension  Status = -15
	ErrorInvalidFormat     Status = -14
	ErrorInvalidLink       Status = -13
	ErrorInvalidReference  Status = -12
	ErrorInvalidModule     Status = -11
	ErrorInvalidParameters Status = -10
	ErrorOptimizedAway     Status = -9
	ErrorNoMemory          Status = -8
	ErrorNoResources       Status = -7
	ErrorNotCompatible     Status = -6
	ErrorNotAllocated      Status = -5
	ErrorNotSufficient     Status = -4
	ErrorNotSupported      Status = -3
	ErrorNotImplemented    Status = -2
	Failure                Status = -1
	Success                Status = 0
)

var statusNames = map[Status]string{
	ErrorReferenceNonzero:  "reference nonzero",
	ErrorMultipleWriters:   "multiple writers",
	ErrorGraphAbandoned:    "graph abandoned",
	ErrorGraphScheduled:    "graph scheduled",
	ErrorInvalidScope:      "invalid scope",
	ErrorInvalidNode:       "invalid node",
	ErrorInvalidGraph:      "invalid graph",
	ErrorInvalidType:       "invalid type",
	ErrorInvalidValue:      "invalid value",
	ErrorInvalidDimension:  "invalid dimension",
	ErrorInvalidFormat:     "invalid format",
	ErrorInvalidLink:       "invalid link",
	ErrorInvalidReference:  "invalid reference",
	ErrorInvalidModule:     "invalid module",
	ErrorInvalidParameters: "invalid parameters",
	ErrorOptimizedAway:     "optimized away",
	ErrorNoMemory:          "no memory",
	ErrorNoResources:       "no resources",
	ErrorNotCompatible:     "not compatible",
	ErrorNotAllocated:      "not allocated",
	ErrorNotSufficient:     "not sufficient",
	ErrorNotSupported:      "not supported",
	ErrorNotImplemented:    "not implemented",
	Failure:                "failure",
	Success:                "success",
}

// String returns a short human readable name for the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// Error implements the error interface.
func (s Status) Error() string {
	return fmt.Sprintf("vx: %s (%d)", s.String(), int32(s))
}

// Err returns nil for Success and the status itself otherwise.
func (s Status) Err() error {
	if s == Success {
		return nil
	}
	return s
}

// StatusOf recovers the Status carried by err. A nil error is Success and an
// error without a Status in its chain is reported as Failure.
func StatusOf(err error) Status {
	if err == nil {
		return Success
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	return Failure
}

// statusError attaches context to a Status while keeping it reachable
// through errors.Is and errors.As.
type statusError struct {
	status Status
	msg    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %s", e.msg, e.status.Error())
}

func (e *statusError) Unwrap() error {
	return e.status
}

// Errorf builds an error carrying status s with a formatted message.
func Errorf(s Status, format string, args ...any) error {
	return &statusError{status: s, msg: fmt.Sprintf(format, args...)}
}
