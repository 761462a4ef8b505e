package unwind

import (
	"github.com/vexide/unwind/pkg/logflags"
	"github.com/vexide/unwind/pkg/unwind/abi"
	"github.com/vexide/unwind/pkg/unwind/local"
)

// captureFrames is the number of frames of this package between the
// engine's capture primitive and the caller of Capture.
const captureFrames = 2

// Context is a snapshot of the register state at one point of execution.
type Context struct {
	engine abi.Engine
	state  cell[abi.Context]
}

// Capture snapshots the register state of its caller using the local
// engine. The first frame of a cursor created from the context is the
// function that called Capture.
//
//go:noinline
func Capture() (*Context, error) {
	return capture(local.Default, 0)
}

// CaptureEngine is like Capture but uses engine e.
//
//go:noinline
func CaptureEngine(e abi.Engine) (*Context, error) {
	return capture(e, 0)
}

// CaptureSkip is like CaptureEngine but also hides the skip innermost
// frames above the caller, for functions that capture on behalf of their
// own caller.
//
//go:noinline
func CaptureSkip(e abi.Engine, skip int) (*Context, error) {
	return capture(e, skip)
}

//go:noinline
func capture(e abi.Engine, skip int) (*Context, error) {
	ctx := &Context{engine: e}
	// ctx is not shared yet, the engine gets the state without a borrow so
	// that no extra frame sits on the capture path.
	if _, err := Classify(e.GetContext(&ctx.state.v, skip+captureFrames)); err != nil {
		if logflags.Unwind() {
			logflags.UnwindLogger().WithError(err).Debugf("capture failed")
		}
		return nil, err
	}
	return ctx, nil
}

// Clone returns an independent copy of the snapshot. The engine is not
// called.
func (ctx *Context) Clone() *Context {
	c := &Context{engine: ctx.engine}
	c.state.v = ctx.state.snapshot()
	return c
}

// Handle returns the engine state of the snapshot, for passing it to the
// engine directly. It does not capture again. The returned pointer must not
// be used while ctx is in use by this package.
func (ctx *Context) Handle() *abi.Context {
	return &ctx.state.v
}

// Engine returns the engine that captured the snapshot.
func (ctx *Context) Engine() abi.Engine {
	return ctx.engine
}

func (ctx *Context) String() string {
	return "Context{..}"
}
