// Package local is an unwind engine for the stack of the calling goroutine.
//
// It is built on the Go runtime: capturing records the return addresses of
// every active frame with runtime.Callers and stepping walks through them.
// Only the instruction pointer is recoverable for a frame; the other
// registers are reported as not preserved.
package local

import (
	"runtime"

	lru "github.com/hashicorp/golang-lru"

	"github.com/vexide/unwind/pkg/logflags"
	"github.com/vexide/unwind/pkg/regnum"
	"github.com/vexide/unwind/pkg/unwind/abi"
)

const (
	ctxMagic = 0x6c6f63616c637478 // "localctx"
	curMagic = 0x6c6f63616c637572 // "localcur"
)

// Context layout.
const (
	ctxMagicWord = iota
	ctxCountWord
	ctxFlagsWord
	ctxFramesStart
)

// Cursor layout.
const (
	curMagicWord = iota
	curCountWord
	curFlagsWord
	curIndexWord
	curIPSetWord
	curIPWord
	curFramesStart
)

// MaxFrames is the number of frames a context can hold. Deeper stacks are
// truncated and stepping out of the last recorded frame fails with
// ENoInfo.
const MaxFrames = abi.ContextWords - ctxFramesStart

const flagTruncated = 1 << 0

const sigpanicName = "runtime.sigpanic"

const funcCacheSize = 1024

// Engine implements abi.Engine for the calling goroutine.
type Engine struct {
	arch  *regnum.Arch
	funcs *lru.Cache
}

// Default is the engine used by unwind.Capture.
var Default = New()

// New returns an engine for the architecture the program runs on.
func New() *Engine {
	funcs, err := lru.New(funcCacheSize)
	if err != nil {
		panic(err)
	}
	return &Engine{arch: regnum.ForGOARCH(runtime.GOARCH), funcs: funcs}
}

// Arch implements abi.Engine.
func (e *Engine) Arch() string {
	return e.arch.GOARCH
}

// GetContext implements abi.Engine.
func (e *Engine) GetContext(ctx *abi.Context, skip int) abi.Status {
	if skip < 0 {
		return abi.EInval
	}
	w := ctx.Words()
	pcs := make([]uintptr, MaxFrames+1)
	// 0 is runtime.Callers, 1 is this method.
	n := runtime.Callers(2+skip, pcs)
	if n == 0 {
		return abi.ENoInfo
	}
	var flags uint64
	if n > MaxFrames {
		n = MaxFrames
		flags |= flagTruncated
	}
	w[ctxMagicWord] = ctxMagic
	w[ctxCountWord] = uint64(n)
	w[ctxFlagsWord] = flags
	for i := 0; i < n; i++ {
		w[ctxFramesStart+i] = uint64(pcs[i])
	}
	if logflags.Engine() {
		logflags.EngineLogger().Debugf("captured %d frames (truncated: %v)", n, flags&flagTruncated != 0)
	}
	return abi.ESuccess
}

// InitLocal implements abi.Engine.
func (e *Engine) InitLocal(cur *abi.Cursor, ctx *abi.Context) abi.Status {
	cw := ctx.Words()
	if cw[ctxMagicWord] != ctxMagic {
		return abi.EInval
	}
	n := int(cw[ctxCountWord])
	if n <= 0 || n > MaxFrames {
		return abi.EBadFrame
	}
	w := cur.Words()
	w[curMagicWord] = curMagic
	w[curCountWord] = uint64(n)
	w[curFlagsWord] = cw[ctxFlagsWord]
	w[curIndexWord] = 0
	w[curIPSetWord] = 0
	w[curIPWord] = 0
	copy(w[curFramesStart:curFramesStart+n], cw[ctxFramesStart:ctxFramesStart+n])
	return abi.ESuccess
}

// Step implements abi.Engine.
func (e *Engine) Step(cur *abi.Cursor) abi.Status {
	w := cur.Words()
	if w[curMagicWord] != curMagic {
		return abi.EInval
	}
	idx, n := w[curIndexWord], w[curCountWord]
	if idx+1 >= n {
		if w[curFlagsWord]&flagTruncated != 0 {
			return abi.ENoInfo
		}
		return abi.StepEnd
	}
	if w[curFramesStart+idx+1] == 0 {
		return abi.EInvalidIP
	}
	w[curIndexWord] = idx + 1
	w[curIPSetWord] = 0
	w[curIPWord] = 0
	return abi.StepSuccess
}

func (e *Engine) isIP(reg abi.Regnum) bool {
	return reg == abi.RegIP || reg == e.arch.PC
}

func (e *Engine) isSP(reg abi.Regnum) bool {
	return reg == abi.RegSP || reg == e.arch.SP
}

// GetReg implements abi.Engine.
func (e *Engine) GetReg(cur *abi.Cursor, reg abi.Regnum, val *uintptr) abi.Status {
	w := cur.Words()
	if w[curMagicWord] != curMagic {
		return abi.EInval
	}
	if !e.isIP(reg) {
		// The runtime does not record where a frame saved the other
		// registers.
		return abi.EBadReg
	}
	if w[curIPSetWord] != 0 {
		*val = uintptr(w[curIPWord])
	} else {
		*val = uintptr(w[curFramesStart+w[curIndexWord]])
	}
	return abi.ESuccess
}

// SetReg implements abi.Engine. Only the instruction pointer can be
// changed, and the change only lasts until the next step.
func (e *Engine) SetReg(cur *abi.Cursor, reg abi.Regnum, val uintptr) abi.Status {
	w := cur.Words()
	if w[curMagicWord] != curMagic {
		return abi.EInval
	}
	switch {
	case e.isIP(reg):
		w[curIPSetWord] = 1
		w[curIPWord] = uint64(val)
		return abi.ESuccess
	case e.isSP(reg):
		return abi.EReadOnlyReg
	}
	return abi.EBadReg
}

// GetFPReg implements abi.Engine. Floating point registers are never
// preserved.
func (e *Engine) GetFPReg(cur *abi.Cursor, reg abi.Regnum, val *float64) abi.Status {
	return abi.EBadReg
}

// SetFPReg implements abi.Engine.
func (e *Engine) SetFPReg(cur *abi.Cursor, reg abi.Regnum, val float64) abi.Status {
	return abi.EBadReg
}

// IsFPReg implements abi.Engine.
func (e *Engine) IsFPReg(cur *abi.Cursor, reg abi.Regnum) abi.Status {
	if e.arch.IsFP(reg) {
		return 1
	}
	return 0
}

// IsSignalFrame implements abi.Engine. A frame is a signal frame when its
// callee is the function the runtime injects on a synchronous fault.
func (e *Engine) IsSignalFrame(cur *abi.Cursor) abi.Status {
	w := cur.Words()
	if w[curMagicWord] != curMagic {
		return abi.EInval
	}
	idx := w[curIndexWord]
	if idx == 0 {
		return 0
	}
	name, ok := e.funcName(uintptr(w[curFramesStart+idx-1]))
	if !ok {
		return abi.ENoInfo
	}
	if name == sigpanicName {
		return 1
	}
	return 0
}

// RegName implements abi.Engine.
func (e *Engine) RegName(cur *abi.Cursor, reg abi.Regnum) string {
	return e.arch.Name(reg)
}

// funcName returns the name of the function containing the call that
// returns to pc.
func (e *Engine) funcName(pc uintptr) (string, bool) {
	if v, ok := e.funcs.Get(pc); ok {
		return v.(string), true
	}
	fn := runtime.FuncForPC(pc - 1)
	if fn == nil {
		return "", false
	}
	name := fn.Name()
	e.funcs.Add(pc, name)
	return name, true
}
