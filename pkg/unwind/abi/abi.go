// Package abi describes the boundary between the unwinder and the engine
// that actually interprets frames.
//
// The numbering of status codes and of the generic register identifiers
// follows LLVM libunwind so that an engine backed by it can return its codes
// unchanged.
package abi

// Status is the signed result code returned by every engine operation.
// Values greater than or equal to ESuccess are successes.
type Status int32

const (
	ESuccess     Status = 0     // no error
	EUnspec      Status = -6540 // unspecified (general) error
	ENoMem       Status = -6541 // out of memory
	EBadReg      Status = -6542 // bad register number
	EReadOnlyReg Status = -6543 // attempt to write read-only register
	EStopUnwind  Status = -6544 // stop unwinding
	EInvalidIP   Status = -6545 // invalid IP
	EBadFrame    Status = -6546 // bad frame
	EInval       Status = -6547 // unsupported operation or bad value
	EBadVersion  Status = -6548 // unwind info has unsupported version
	ENoInfo      Status = -6549 // no unwind info found
)

const (
	// StepEnd is returned by Step when the cursor was on the outermost frame.
	StepEnd Status = 0
	// StepSuccess is returned by Step when the cursor moved to the caller.
	StepSuccess Status = 1
)

// Regnum identifies a register. Non-negative values are architecture
// specific, see package regnum.
type Regnum int32

const (
	RegIP Regnum = -1 // instruction pointer of the current frame
	RegSP Regnum = -2 // stack pointer of the current frame
)

// UnknownRegisterName is the string an engine returns from RegName for a
// register it does not know.
const UnknownRegisterName = "unknown register"

const (
	// ContextWords is the size, in words, of a captured context.
	ContextWords = 512
	// CursorWords is the size, in words, of the traversal state of a cursor.
	CursorWords = 544
)

// Context is the register state captured by an engine. Its layout is owned
// by the engine that filled it; callers must treat it as opaque.
type Context struct {
	words [ContextWords]uint64
}

// Words exposes the raw storage to engines.
func (c *Context) Words() []uint64 {
	return c.words[:]
}

// Cursor is the traversal state of an engine. Like Context its layout is
// owned by the engine. Copying a Cursor by value yields an independent
// traversal.
type Cursor struct {
	words [CursorWords]uint64
}

// Words exposes the raw storage to engines.
func (c *Cursor) Words() []uint64 {
	return c.words[:]
}

// Engine is the set of foreign operations the unwinder consumes.
//
// Every operation takes a pointer to the state it works on, reads included:
// engines are allowed to use the state as scratch space. Implementations
// must be safe for concurrent use on distinct states.
type Engine interface {
	// Arch returns the name of the architecture the engine unwinds, in
	// GOARCH form.
	Arch() string

	// GetContext captures the register state of its caller into ctx. skip is
	// the number of additional frames, above the engine, that belong to the
	// capture path and must not be reported as frames.
	GetContext(ctx *Context, skip int) Status
	// InitLocal initializes cur from ctx. ctx is not retained.
	InitLocal(cur *Cursor, ctx *Context) Status
	// Step moves cur to the caller's frame, returning StepSuccess, StepEnd or
	// an error.
	Step(cur *Cursor) Status

	GetReg(cur *Cursor, reg Regnum, val *uintptr) Status
	SetReg(cur *Cursor, reg Regnum, val uintptr) Status
	GetFPReg(cur *Cursor, reg Regnum, val *float64) Status
	SetFPReg(cur *Cursor, reg Regnum, val float64) Status

	// IsFPReg returns a positive value if reg is a floating point register,
	// zero if it is not and a negative status on error.
	IsFPReg(cur *Cursor, reg Regnum) Status
	// IsSignalFrame returns a positive value if the current frame was
	// created by an asynchronous interruption, zero if it was not and a
	// negative status if it cannot tell.
	IsSignalFrame(cur *Cursor) Status
	// RegName returns the display name of reg, or UnknownRegisterName.
	RegName(cur *Cursor, reg Regnum) string
}
