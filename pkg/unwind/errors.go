package unwind

import (
	"errors"
	"fmt"

	"github.com/vexide/unwind/pkg/unwind/abi"
)

// ErrorKind classifies the failures reported by an unwind engine.
type ErrorKind uint8

const (
	// Unspecified is a general error.
	Unspecified ErrorKind = iota
	// NoMemory means the engine ran out of memory.
	NoMemory
	// BadRegister means the register is invalid or inaccessible in the
	// current frame.
	BadRegister
	// WriteToReadOnlyRegister means the register cannot be written.
	WriteToReadOnlyRegister
	// StopUnwinding means unwinding must stop.
	StopUnwinding
	// InvalidIP means the instruction pointer of the frame is invalid.
	InvalidIP
	// BadFrame means the frame is invalid.
	BadFrame
	// BadValue means the operation is unsupported or a value is invalid.
	BadValue
	// BadVersion means the unwind info has an unsupported version.
	BadVersion
	// NoInfo means no unwind info was found.
	NoInfo
	// Unknown is a status code outside of the known range, see Error.Code.
	Unknown
)

var kindMessages = [...]string{
	Unspecified:             "unspecified error",
	NoMemory:                "out of memory",
	BadRegister:             "bad register",
	WriteToReadOnlyRegister: "attempt to write to a read-only register",
	StopUnwinding:           "stop unwinding",
	InvalidIP:               "invalid instruction pointer",
	BadFrame:                "bad frame",
	BadValue:                "unsupported operation or bad value",
	BadVersion:              "unwind info has unsupported version",
	NoInfo:                  "no unwind info found",
	Unknown:                 "unknown error",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindMessages) {
		return kindMessages[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// Error is an error reported by the unwind engine.
type Error struct {
	Kind ErrorKind
	// Code is the status returned by the engine.
	Code abi.Status
}

func (e *Error) Error() string {
	if e.Kind == Unknown {
		return fmt.Sprintf("unwind: libunwind error %d", e.Code)
	}
	return "unwind: " + e.Kind.String()
}

// Is reports whether target is an *Error of the same kind. Unknown errors
// also need the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return e.Kind != Unknown || e.Code == t.Code
}

// Sentinel errors for use with errors.Is.
var (
	ErrUnspecified             = &Error{Unspecified, abi.EUnspec}
	ErrNoMemory                = &Error{NoMemory, abi.ENoMem}
	ErrBadRegister             = &Error{BadRegister, abi.EBadReg}
	ErrWriteToReadOnlyRegister = &Error{WriteToReadOnlyRegister, abi.EReadOnlyReg}
	ErrStopUnwinding           = &Error{StopUnwinding, abi.EStopUnwind}
	ErrInvalidIP               = &Error{InvalidIP, abi.EInvalidIP}
	ErrBadFrame                = &Error{BadFrame, abi.EBadFrame}
	ErrBadValue                = &Error{BadValue, abi.EInval}
	ErrBadVersion              = &Error{BadVersion, abi.EBadVersion}
	ErrNoInfo                  = &Error{NoInfo, abi.ENoInfo}
)

// Classify splits an engine status into a success value and an error.
// Statuses at or above abi.ESuccess come back with a nil error, so that
// callers can tell success variants apart. The status is returned unchanged
// in both cases.
func Classify(code abi.Status) (abi.Status, error) {
	if code >= abi.ESuccess {
		return code, nil
	}
	switch code {
	case abi.EUnspec:
		return code, ErrUnspecified
	case abi.ENoMem:
		return code, ErrNoMemory
	case abi.EBadReg:
		return code, ErrBadRegister
	case abi.EReadOnlyReg:
		return code, ErrWriteToReadOnlyRegister
	case abi.EStopUnwind:
		return code, ErrStopUnwinding
	case abi.EInvalidIP:
		return code, ErrInvalidIP
	case abi.EBadFrame:
		return code, ErrBadFrame
	case abi.EInval:
		return code, ErrBadValue
	case abi.EBadVersion:
		return code, ErrBadVersion
	case abi.ENoInfo:
		return code, ErrNoInfo
	}
	return code, &Error{Kind: Unknown, Code: code}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.Kind, true
}
