// Package scripted is an unwind engine over a stack described in advance.
//
// It serves tests of code that consumes the unwinder: every frame lists
// the registers it preserved, which of them are read only, whether it is a
// signal frame and what stepping out of it should report.
package scripted

import (
	"math"
	"sync/atomic"

	"github.com/vexide/unwind/pkg/logflags"
	"github.com/vexide/unwind/pkg/regnum"
	"github.com/vexide/unwind/pkg/unwind/abi"
)

// Frame describes one frame of a scripted stack.
type Frame struct {
	// Regs and FPRegs hold the registers preserved by the frame, keyed by
	// architecture specific number. The program counter and stack pointer
	// are found through the PC and SP numbers of the engine's table.
	Regs   map[abi.Regnum]uintptr
	FPRegs map[abi.Regnum]float64
	// ReadOnly lists registers that cannot be written.
	ReadOnly []abi.Regnum
	// Signal marks a frame created by an asynchronous interruption.
	Signal bool
	// SignalStatus, when not zero, is returned by IsSignalFrame instead of
	// the Signal flag.
	SignalStatus abi.Status
	// StepStatus, when not zero, is returned by Step on this frame instead
	// of moving to the caller.
	StepStatus abi.Status
}

func (f *Frame) readOnly(reg abi.Regnum) bool {
	for _, r := range f.ReadOnly {
		if r == reg {
			return true
		}
	}
	return false
}

// Stats counts the calls made into an engine.
type Stats struct {
	Captures atomic.Int64
	Inits    atomic.Int64
	Steps    atomic.Int64
}

// Engine implements abi.Engine over a fixed list of frames, innermost
// first. The frames must not be changed once the engine is in use.
type Engine struct {
	arch   *regnum.Arch
	frames []Frame

	// CaptureStatus and InitStatus, when not zero, make GetContext and
	// InitLocal fail with the given status.
	CaptureStatus abi.Status
	InitStatus    abi.Status

	Stats Stats
}

// New returns an engine unwinding frames with the register table of arch.
func New(arch *regnum.Arch, frames ...Frame) *Engine {
	return &Engine{arch: arch, frames: frames}
}

const (
	ctxMagic = 0x7363726970746378 // "scriptcx"
	curMagic = 0x7363726970746375 // "scriptcu"
)

// Cursor layout. Writes are kept in an overlay of (kind, register, value)
// triples that is discarded on step.
const (
	curMagicWord = iota
	curIndexWord
	curOverlayLenWord
	curOverlayStart
)

const (
	kindGP = iota
	kindFP
)

// MaxWrites is the number of distinct registers that can be written in one
// frame. Further writes fail with ENoMem.
const MaxWrites = (abi.CursorWords - curOverlayStart) / 3

// Arch implements abi.Engine.
func (e *Engine) Arch() string {
	return e.arch.GOARCH
}

// GetContext implements abi.Engine.
func (e *Engine) GetContext(ctx *abi.Context, skip int) abi.Status {
	e.Stats.Captures.Add(1)
	if e.CaptureStatus != 0 {
		return e.CaptureStatus
	}
	if len(e.frames) == 0 {
		return abi.ENoInfo
	}
	ctx.Words()[0] = ctxMagic
	return abi.ESuccess
}

// InitLocal implements abi.Engine.
func (e *Engine) InitLocal(cur *abi.Cursor, ctx *abi.Context) abi.Status {
	e.Stats.Inits.Add(1)
	if e.InitStatus != 0 {
		return e.InitStatus
	}
	if ctx.Words()[0] != ctxMagic {
		return abi.EInval
	}
	w := cur.Words()
	w[curMagicWord] = curMagic
	w[curIndexWord] = 0
	w[curOverlayLenWord] = 0
	return abi.ESuccess
}

func (e *Engine) frame(cur *abi.Cursor) (*Frame, []uint64, abi.Status) {
	w := cur.Words()
	if w[curMagicWord] != curMagic {
		return nil, nil, abi.EInval
	}
	idx := w[curIndexWord]
	if idx >= uint64(len(e.frames)) {
		return nil, nil, abi.EBadFrame
	}
	return &e.frames[idx], w, abi.ESuccess
}

// Step implements abi.Engine.
func (e *Engine) Step(cur *abi.Cursor) abi.Status {
	e.Stats.Steps.Add(1)
	f, w, st := e.frame(cur)
	if st != abi.ESuccess {
		return st
	}
	if f.StepStatus != 0 {
		return f.StepStatus
	}
	idx := w[curIndexWord]
	if idx+1 >= uint64(len(e.frames)) {
		return abi.StepEnd
	}
	w[curIndexWord] = idx + 1
	w[curOverlayLenWord] = 0
	if logflags.Engine() {
		logflags.EngineLogger().Debugf("scripted step to frame %d", idx+1)
	}
	return abi.StepSuccess
}

func overlayFind(w []uint64, kind uint64, reg abi.Regnum) int {
	n := int(w[curOverlayLenWord])
	for i := 0; i < n; i++ {
		o := curOverlayStart + 3*i
		if w[o] == kind && abi.Regnum(int32(w[o+1])) == reg {
			return o
		}
	}
	return -1
}

func overlayPut(w []uint64, kind uint64, reg abi.Regnum, val uint64) abi.Status {
	if o := overlayFind(w, kind, reg); o >= 0 {
		w[o+2] = val
		return abi.ESuccess
	}
	n := int(w[curOverlayLenWord])
	if n >= MaxWrites {
		return abi.ENoMem
	}
	o := curOverlayStart + 3*n
	w[o] = kind
	w[o+1] = uint64(uint32(reg))
	w[o+2] = val
	w[curOverlayLenWord] = uint64(n + 1)
	return abi.ESuccess
}

// GetReg implements abi.Engine.
func (e *Engine) GetReg(cur *abi.Cursor, reg abi.Regnum, val *uintptr) abi.Status {
	f, w, st := e.frame(cur)
	if st != abi.ESuccess {
		return st
	}
	reg = e.arch.Canonical(reg)
	if o := overlayFind(w, kindGP, reg); o >= 0 {
		*val = uintptr(w[o+2])
		return abi.ESuccess
	}
	v, ok := f.Regs[reg]
	if !ok {
		return abi.EBadReg
	}
	*val = v
	return abi.ESuccess
}

// SetReg implements abi.Engine.
func (e *Engine) SetReg(cur *abi.Cursor, reg abi.Regnum, val uintptr) abi.Status {
	f, w, st := e.frame(cur)
	if st != abi.ESuccess {
		return st
	}
	reg = e.arch.Canonical(reg)
	if _, ok := f.Regs[reg]; !ok {
		return abi.EBadReg
	}
	if f.readOnly(reg) {
		return abi.EReadOnlyReg
	}
	return overlayPut(w, kindGP, reg, uint64(val))
}

// GetFPReg implements abi.Engine.
func (e *Engine) GetFPReg(cur *abi.Cursor, reg abi.Regnum, val *float64) abi.Status {
	f, w, st := e.frame(cur)
	if st != abi.ESuccess {
		return st
	}
	if o := overlayFind(w, kindFP, reg); o >= 0 {
		*val = math.Float64frombits(w[o+2])
		return abi.ESuccess
	}
	v, ok := f.FPRegs[reg]
	if !ok {
		return abi.EBadReg
	}
	*val = v
	return abi.ESuccess
}

// SetFPReg implements abi.Engine.
func (e *Engine) SetFPReg(cur *abi.Cursor, reg abi.Regnum, val float64) abi.Status {
	f, w, st := e.frame(cur)
	if st != abi.ESuccess {
		return st
	}
	if _, ok := f.FPRegs[reg]; !ok {
		return abi.EBadReg
	}
	if f.readOnly(reg) {
		return abi.EReadOnlyReg
	}
	return overlayPut(w, kindFP, reg, math.Float64bits(val))
}

// IsFPReg implements abi.Engine.
func (e *Engine) IsFPReg(cur *abi.Cursor, reg abi.Regnum) abi.Status {
	if e.arch.IsFP(reg) {
		return 1
	}
	return 0
}

// IsSignalFrame implements abi.Engine.
func (e *Engine) IsSignalFrame(cur *abi.Cursor) abi.Status {
	f, _, st := e.frame(cur)
	if st != abi.ESuccess {
		return st
	}
	if f.SignalStatus != 0 {
		return f.SignalStatus
	}
	if f.Signal {
		return 1
	}
	return 0
}

// RegName implements abi.Engine.
func (e *Engine) RegName(cur *abi.Cursor, reg abi.Regnum) string {
	return e.arch.Name(reg)
}
