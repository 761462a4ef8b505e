package unwind

import (
	"github.com/vexide/unwind/pkg/logflags"
	"github.com/vexide/unwind/pkg/unwind/abi"
)

// Cursor points at one frame of the stack captured by a Context and can
// move to older frames. It reads and writes the registers preserved for
// the current frame.
type Cursor struct {
	engine abi.Engine
	state  cell[abi.Cursor]
	done   bool
}

// NewCursor initializes a cursor on the innermost frame of ctx. The cursor
// copies what it needs, ctx can be discarded afterwards.
func NewCursor(ctx *Context) (*Cursor, error) {
	c := &Cursor{engine: ctx.engine}
	var st abi.Status
	ctx.state.borrow(func(v *abi.Context) {
		st = ctx.engine.InitLocal(&c.state.v, v)
	})
	if _, err := Classify(st); err != nil {
		if logflags.Unwind() {
			logflags.UnwindLogger().WithError(err).Debugf("cursor initialization failed")
		}
		return nil, err
	}
	return c, nil
}

func (c *Cursor) call(fn func(e abi.Engine, cur *abi.Cursor) abi.Status) abi.Status {
	var st abi.Status
	c.state.borrow(func(cur *abi.Cursor) {
		st = fn(c.engine, cur)
	})
	return st
}

// Step advances to the caller of the current frame. It returns true if the
// cursor moved to a further frame and false if the current frame was the
// outermost one.
//
// Once Step has returned false the cursor is terminal. Stepping it again is
// a misuse: the engine is not consulted and Step keeps returning false.
//
// Possible errors are ErrUnspecified, ErrNoInfo, ErrBadVersion,
// ErrInvalidIP and ErrBadFrame.
func (c *Cursor) Step() (bool, error) {
	if c.done {
		if logflags.Unwind() {
			logflags.UnwindLogger().Warnf("step on terminal cursor")
		}
		return false, nil
	}
	code, err := Classify(c.call(abi.Engine.Step))
	if err != nil {
		if logflags.Unwind() {
			logflags.UnwindLogger().WithError(err).Debugf("step failed")
		}
		return false, err
	}
	if code != abi.StepSuccess {
		c.done = true
		return false, nil
	}
	return true, nil
}

// Done reports whether Step has reached the outermost frame.
func (c *Cursor) Done() bool {
	return c.done
}

// Register returns the value of a general purpose register in the current
// frame. Possible errors are ErrUnspecified and ErrBadRegister, the latter
// also when the register was not preserved by this frame.
func (c *Cursor) Register(reg abi.Regnum) (uintptr, error) {
	var v uintptr
	_, err := Classify(c.call(func(e abi.Engine, cur *abi.Cursor) abi.Status {
		return e.GetReg(cur, reg, &v)
	}))
	if err != nil {
		return 0, err
	}
	return v, nil
}

// FPRegister returns the value of a floating point register in the current
// frame. The errors are the same as Register.
func (c *Cursor) FPRegister(reg abi.Regnum) (float64, error) {
	var v float64
	_, err := Classify(c.call(func(e abi.Engine, cur *abi.Cursor) abi.Status {
		return e.GetFPReg(cur, reg, &v)
	}))
	if err != nil {
		return 0, err
	}
	return v, nil
}

// IsFPRegister reports whether reg is a floating point register.
func (c *Cursor) IsFPRegister(reg abi.Regnum) bool {
	return c.call(func(e abi.Engine, cur *abi.Cursor) abi.Status {
		return e.IsFPReg(cur, reg)
	}) > 0
}

// IsSignalFrame reports whether the current frame was created by an
// asynchronous interruption such as a signal or a device interrupt. Such
// frames preserve the scratch registers too, so more registers can be read.
// ErrNoInfo is returned when the engine cannot tell.
func (c *Cursor) IsSignalFrame() (bool, error) {
	code, err := Classify(c.call(abi.Engine.IsSignalFrame))
	if err != nil {
		return false, err
	}
	return code > 0, nil
}

// RegisterName returns the name of reg. The second result is false if the
// engine does not know the register.
func (c *Cursor) RegisterName(reg abi.Regnum) (string, bool) {
	var name string
	c.call(func(e abi.Engine, cur *abi.Cursor) abi.Status {
		name = e.RegName(cur, reg)
		return abi.ESuccess
	})
	if name == abi.UnknownRegisterName {
		return "", false
	}
	return name, true
}

// Clone returns an independent copy of the cursor, positioned on the same
// frame.
func (c *Cursor) Clone() *Cursor {
	n := &Cursor{engine: c.engine, done: c.done}
	n.state.v = c.state.snapshot()
	return n
}

// Engine returns the engine the cursor was initialized with.
func (c *Cursor) Engine() abi.Engine {
	return c.engine
}

// Unchecked returns the register writers of c.
func (c *Cursor) Unchecked() Unchecked {
	return Unchecked{c}
}

// Unchecked groups the operations that change the machine state a cursor
// would restore if execution resumed through it.
//
// The caller must make sure that the write cannot corrupt control flow or
// break the calling convention of the frame. This is not checked: the
// engine cannot tell, and violating it is undefined behavior rather than an
// error.
type Unchecked struct {
	c *Cursor
}

// SetRegister sets a general purpose register of the current frame.
// Possible errors are ErrUnspecified, ErrBadRegister and
// ErrWriteToReadOnlyRegister.
func (u Unchecked) SetRegister(reg abi.Regnum, val uintptr) error {
	_, err := Classify(u.c.call(func(e abi.Engine, cur *abi.Cursor) abi.Status {
		return e.SetReg(cur, reg, val)
	}))
	return err
}

// SetFPRegister sets a floating point register of the current frame. The
// errors are the same as SetRegister.
func (u Unchecked) SetFPRegister(reg abi.Regnum, val float64) error {
	_, err := Classify(u.c.call(func(e abi.Engine, cur *abi.Cursor) abi.Status {
		return e.SetFPReg(cur, reg, val)
	}))
	return err
}
