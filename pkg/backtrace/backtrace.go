// Package backtrace collects and prints the frames of a stack with an
// unwind.Cursor.
package backtrace

import (
	"fmt"

	"github.com/vexide/unwind/pkg/logflags"
	"github.com/vexide/unwind/pkg/unwind"
	"github.com/vexide/unwind/pkg/unwind/abi"
	"github.com/vexide/unwind/pkg/unwind/local"
)

// MemoryReader reads the memory of the program being unwound.
type MemoryReader interface {
	ReadMemory(buf []byte, addr uint64) (n int, err error)
}

// Options controls what is recorded for each frame.
type Options struct {
	// MaxDepth is the maximum number of frames, zero means no limit.
	MaxDepth int
	// Registers are read in every frame.
	Registers []abi.Regnum
	// Disassemble decodes the instruction at the instruction pointer of
	// each frame, reading it through Mem.
	Disassemble bool
	Mem         MemoryReader
}

// Register is the value of a register in a frame.
type Register struct {
	Num  abi.Regnum
	Name string
	// FP is set for floating point registers, whose value is in Float.
	FP    bool
	Value uintptr
	Float float64
	// Err is set if the register could not be read in this frame.
	Err error
}

func (r Register) String() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("%s=<%v>", r.Name, r.Err)
	case r.FP:
		return fmt.Sprintf("%s=%g", r.Name, r.Float)
	}
	return fmt.Sprintf("%s=%#x", r.Name, r.Value)
}

// Frame is one frame of a backtrace.
type Frame struct {
	Index int
	IP    uintptr
	// Signal is set for frames created by an asynchronous interruption.
	Signal    bool
	Registers []Register
	// Inst is the instruction at IP, if it was decoded.
	Inst    string
	InstErr error
}

// Iterator walks the frames of a cursor.
type Iterator struct {
	cur   *unwind.Cursor
	opts  Options
	frame Frame
	depth int
	atend bool
	err   error
}

// NewIterator returns an iterator starting at the current frame of cur.
// The iterator steps cur.
func NewIterator(cur *unwind.Cursor, opts Options) *Iterator {
	return &Iterator{cur: cur, opts: opts}
}

// Next points the iterator to the next stack frame.
func (it *Iterator) Next() bool {
	if it.err != nil || it.atend {
		return false
	}
	if it.opts.MaxDepth > 0 && it.depth >= it.opts.MaxDepth {
		it.atend = true
		return false
	}
	if it.depth > 0 {
		more, err := it.cur.Step()
		if err != nil {
			it.err = err
			return false
		}
		if !more {
			it.atend = true
			return false
		}
	}
	it.frame, it.err = it.frameInfo()
	if it.err != nil {
		return false
	}
	it.depth++
	return true
}

// Frame returns the frame the iterator is pointing at.
func (it *Iterator) Frame() Frame {
	return it.frame
}

// Err returns the error encountered during stack iteration.
func (it *Iterator) Err() error {
	return it.err
}

func (it *Iterator) frameInfo() (Frame, error) {
	ip, err := it.cur.Register(abi.RegIP)
	if err != nil {
		return Frame{}, fmt.Errorf("frame %d: reading instruction pointer: %w", it.depth, err)
	}
	f := Frame{Index: it.depth, IP: ip}

	sig, err := it.cur.IsSignalFrame()
	if err != nil && logflags.Backtrace() {
		logflags.BacktraceLogger().WithError(err).Debugf("frame %d: signal frame check failed", it.depth)
	}
	f.Signal = sig

	for _, reg := range it.opts.Registers {
		f.Registers = append(f.Registers, it.readRegister(reg))
	}

	if it.opts.Disassemble && it.opts.Mem != nil {
		f.Inst, f.InstErr = disassemble(it.cur.Engine().Arch(), it.opts.Mem, ip)
	}
	return f, nil
}

func (it *Iterator) readRegister(reg abi.Regnum) Register {
	r := Register{Num: reg}
	name, ok := it.cur.RegisterName(reg)
	if !ok {
		name = fmt.Sprintf("reg%d", reg)
	}
	r.Name = name
	if it.cur.IsFPRegister(reg) {
		r.FP = true
		r.Float, r.Err = it.cur.FPRegister(reg)
	} else {
		r.Value, r.Err = it.cur.Register(reg)
	}
	return r
}

// Collect returns the frames from the current frame of cur outwards. On
// error the frames collected so far are returned along with it.
func Collect(cur *unwind.Cursor, opts Options) ([]Frame, error) {
	var frames []Frame
	it := NewIterator(cur, opts)
	for it.Next() {
		frames = append(frames, it.Frame())
	}
	return frames, it.Err()
}

// Current returns the backtrace of its caller. The first frame is the
// function that called Current. If opts.Mem is nil instructions are read
// from the running program.
//
//go:noinline
func Current(opts Options) ([]Frame, error) {
	ctx, err := unwind.CaptureSkip(local.Default, 1)
	if err != nil {
		return nil, err
	}
	cur, err := unwind.NewCursor(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Mem == nil {
		opts.Mem = local.TextReader{}
	}
	return Collect(cur, opts)
}
