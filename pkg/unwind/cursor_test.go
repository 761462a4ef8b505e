package unwind

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vexide/unwind/pkg/regnum"
	"github.com/vexide/unwind/pkg/unwind/abi"
	"github.com/vexide/unwind/pkg/unwind/scripted"
)

func armStack() []scripted.Frame {
	return []scripted.Frame{
		{
			Regs: map[abi.Regnum]uintptr{
				regnum.ARM_PC: 0x1000,
				regnum.ARM_SP: 0x8000,
				regnum.ARM_LR: 0x2004,
				regnum.ARM_R0: 1,
			},
			FPRegs:   map[abi.Regnum]float64{regnum.ARM_D0: 1.5},
			ReadOnly: []abi.Regnum{regnum.ARM_SP},
		},
		{
			Regs: map[abi.Regnum]uintptr{
				regnum.ARM_PC: 0x2004,
				regnum.ARM_SP: 0x8010,
			},
			FPRegs: map[abi.Regnum]float64{regnum.ARM_D0: 2.5, regnum.ARM_S0 + 1: 0.25},
			Signal: true,
		},
		{
			Regs: map[abi.Regnum]uintptr{
				regnum.ARM_PC: 0x3008,
				regnum.ARM_SP: 0x8020,
			},
		},
	}
}

func newScriptedCursor(t *testing.T, e abi.Engine) *Cursor {
	t.Helper()
	ctx, err := CaptureEngine(e)
	if err != nil {
		t.Fatalf("CaptureEngine: %v", err)
	}
	c, err := NewCursor(ctx)
	if err != nil {
		t.Fatalf("NewCursor: %v", err)
	}
	return c
}

func mustRegister(t *testing.T, c *Cursor, reg abi.Regnum) uintptr {
	t.Helper()
	v, err := c.Register(reg)
	if err != nil {
		t.Fatalf("Register(%d): %v", reg, err)
	}
	return v
}

func TestStepDepth(t *testing.T) {
	for depth := 1; depth <= 3; depth++ {
		e := scripted.New(regnum.ARM, armStack()[:depth]...)
		c := newScriptedCursor(t, e)
		trues := 0
		for {
			more, err := c.Step()
			if err != nil {
				t.Fatalf("depth %d: Step: %v", depth, err)
			}
			if !more {
				break
			}
			trues++
		}
		if trues != depth-1 {
			t.Errorf("depth %d: Step returned true %d times", depth, trues)
		}
		if !c.Done() {
			t.Errorf("depth %d: cursor not terminal", depth)
		}
	}
}

func TestStepAfterEnd(t *testing.T) {
	e := scripted.New(regnum.ARM, armStack()[:1]...)
	c := newScriptedCursor(t, e)
	if more, err := c.Step(); more || err != nil {
		t.Fatalf("Step = %v, %v", more, err)
	}
	steps := e.Stats.Steps.Load()
	if more, err := c.Step(); more || err != nil {
		t.Fatalf("Step on terminal cursor = %v, %v", more, err)
	}
	if e.Stats.Steps.Load() != steps {
		t.Fatalf("terminal cursor called into the engine")
	}
}

func TestStepErrors(t *testing.T) {
	for _, want := range []error{ErrUnspecified, ErrNoInfo, ErrBadVersion, ErrInvalidIP, ErrBadFrame} {
		stack := armStack()
		stack[0].StepStatus = want.(*Error).Code
		c := newScriptedCursor(t, scripted.New(regnum.ARM, stack...))
		more, err := c.Step()
		if more || !errors.Is(err, want) {
			t.Errorf("Step = %v, %v, want %v", more, err, want)
		}
		if c.Done() {
			t.Errorf("failed step made the cursor terminal")
		}
	}
}

func TestRegister(t *testing.T) {
	c := newScriptedCursor(t, scripted.New(regnum.ARM, armStack()...))
	if ip := mustRegister(t, c, abi.RegIP); ip != 0x1000 {
		t.Errorf("ip = %#x", ip)
	}
	if pc := mustRegister(t, c, regnum.ARM_PC); pc != 0x1000 {
		t.Errorf("pc = %#x", pc)
	}
	if sp := mustRegister(t, c, abi.RegSP); sp != 0x8000 {
		t.Errorf("sp = %#x", sp)
	}

	// caller saved register not preserved by an outer frame
	if _, err := c.Register(regnum.ARM_R0 + 5); !errors.Is(err, ErrBadRegister) {
		t.Errorf("Register(r5) error = %v", err)
	}
	// identifier outside of the architecture
	if _, err := c.Register(4000); !errors.Is(err, ErrBadRegister) {
		t.Errorf("Register(4000) error = %v", err)
	}
	// failed reads leave the cursor usable
	if ip := mustRegister(t, c, abi.RegIP); ip != 0x1000 {
		t.Errorf("ip after failed read = %#x", ip)
	}
	if more, err := c.Step(); !more || err != nil {
		t.Fatalf("Step = %v, %v", more, err)
	}
	if ip := mustRegister(t, c, abi.RegIP); ip != 0x2004 {
		t.Errorf("ip of caller = %#x", ip)
	}
}

func TestSetRegister(t *testing.T) {
	c := newScriptedCursor(t, scripted.New(regnum.ARM, armStack()...))
	w := c.Unchecked()
	if err := w.SetRegister(regnum.ARM_R0, 42); err != nil {
		t.Fatalf("SetRegister(r0): %v", err)
	}
	if r0 := mustRegister(t, c, regnum.ARM_R0); r0 != 42 {
		t.Errorf("r0 = %d", r0)
	}
	if err := w.SetRegister(abi.RegSP, 0); !errors.Is(err, ErrWriteToReadOnlyRegister) {
		t.Errorf("SetRegister(sp) error = %v", err)
	}
	if err := w.SetRegister(regnum.ARM_R0+7, 0); !errors.Is(err, ErrBadRegister) {
		t.Errorf("SetRegister(r7) error = %v", err)
	}
	if err := w.SetRegister(abi.RegIP, 0x1100); err != nil {
		t.Fatalf("SetRegister(ip): %v", err)
	}
	if pc := mustRegister(t, c, regnum.ARM_PC); pc != 0x1100 {
		t.Errorf("pc after ip write = %#x", pc)
	}

	c.Step()
	if ip := mustRegister(t, c, abi.RegIP); ip != 0x2004 {
		t.Errorf("write leaked into the caller frame: ip = %#x", ip)
	}
}

func TestFPRegister(t *testing.T) {
	c := newScriptedCursor(t, scripted.New(regnum.ARM, armStack()...))
	d0, err := c.FPRegister(regnum.ARM_D0)
	if err != nil || d0 != 1.5 {
		t.Fatalf("FPRegister(d0) = %v, %v", d0, err)
	}
	// floating point registers are only reachable through the floating
	// point accessors
	if _, err := c.Register(regnum.ARM_D0); !errors.Is(err, ErrBadRegister) {
		t.Errorf("Register(d0) error = %v", err)
	}
	if _, err := c.FPRegister(regnum.ARM_R0); !errors.Is(err, ErrBadRegister) {
		t.Errorf("FPRegister(r0) error = %v", err)
	}

	if err := c.Unchecked().SetFPRegister(regnum.ARM_D0, -3.25); err != nil {
		t.Fatalf("SetFPRegister(d0): %v", err)
	}
	if d0, _ := c.FPRegister(regnum.ARM_D0); d0 != -3.25 {
		t.Errorf("d0 after write = %v", d0)
	}
	if err := c.Unchecked().SetFPRegister(regnum.ARM_D0+9, 1); !errors.Is(err, ErrBadRegister) {
		t.Errorf("SetFPRegister(d9) error = %v", err)
	}

	c.Step()
	if s1, err := c.FPRegister(regnum.ARM_S0 + 1); err != nil || s1 != 0.25 {
		t.Errorf("FPRegister(s1) = %v, %v", s1, err)
	}
}

func TestIsFPRegisterConsistent(t *testing.T) {
	stack := armStack()
	c := newScriptedCursor(t, scripted.New(regnum.ARM, stack...))
	for i := range stack {
		for reg := range stack[i].FPRegs {
			if !c.IsFPRegister(reg) {
				t.Errorf("frame %d: %d readable as floating point but IsFPRegister is false", i, reg)
			}
			if _, err := c.FPRegister(reg); err != nil {
				t.Errorf("frame %d: FPRegister(%d): %v", i, reg, err)
			}
		}
		for reg := range stack[i].Regs {
			if c.IsFPRegister(reg) {
				t.Errorf("frame %d: general register %d classified as floating point", i, reg)
			}
		}
		c.Step()
	}
	for _, reg := range regnum.ARM.Registers() {
		if c.IsFPRegister(reg) != regnum.ARM.IsFP(reg) {
			t.Errorf("IsFPRegister(%d) disagrees with the register table", reg)
		}
	}
}

func TestIsSignalFrame(t *testing.T) {
	stack := armStack()
	stack[2].SignalStatus = abi.ENoInfo
	c := newScriptedCursor(t, scripted.New(regnum.ARM, stack...))
	if sig, err := c.IsSignalFrame(); sig || err != nil {
		t.Errorf("frame 0: IsSignalFrame = %v, %v", sig, err)
	}
	c.Step()
	if sig, err := c.IsSignalFrame(); !sig || err != nil {
		t.Errorf("frame 1: IsSignalFrame = %v, %v", sig, err)
	}
	c.Step()
	if _, err := c.IsSignalFrame(); !errors.Is(err, ErrNoInfo) {
		t.Errorf("frame 2: IsSignalFrame error = %v", err)
	}
}

func TestRegisterName(t *testing.T) {
	c := newScriptedCursor(t, scripted.New(regnum.ARM, armStack()...))
	for _, reg := range regnum.ARM.Registers() {
		name, ok := c.RegisterName(reg)
		if !ok || name == "" {
			t.Errorf("RegisterName(%d) = %q, %v", reg, name, ok)
		}
	}
	if name, ok := c.RegisterName(abi.RegIP); !ok || name != "pc" {
		t.Errorf("RegisterName(ip) = %q, %v", name, ok)
	}
	if name, ok := c.RegisterName(200); ok || name != "" {
		t.Errorf("RegisterName(200) = %q, %v", name, ok)
	}
}

func TestCaptureErrors(t *testing.T) {
	e := scripted.New(regnum.ARM, armStack()...)
	e.CaptureStatus = abi.ENoMem
	if _, err := CaptureEngine(e); !errors.Is(err, ErrNoMemory) {
		t.Errorf("CaptureEngine error = %v", err)
	}
	if n := e.Stats.Captures.Load(); n != 1 {
		t.Errorf("capture called the engine %d times", n)
	}

	e = scripted.New(regnum.ARM, armStack()...)
	e.InitStatus = abi.EBadVersion
	ctx, err := CaptureEngine(e)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewCursor(ctx); !errors.Is(err, ErrBadVersion) {
		t.Errorf("NewCursor error = %v", err)
	}
	e.InitStatus = -1
	if _, err := NewCursor(ctx); err == nil {
		t.Errorf("NewCursor accepted an unknown failure status")
	} else if kind, _ := KindOf(err); kind != Unknown {
		t.Errorf("NewCursor error kind = %v", kind)
	}
}

func TestClone(t *testing.T) {
	e := scripted.New(regnum.ARM, armStack()...)
	ctx, err := CaptureEngine(e)
	if err != nil {
		t.Fatal(err)
	}
	ctx2 := ctx.Clone()
	if n := e.Stats.Captures.Load(); n != 1 {
		t.Fatalf("Clone called the engine")
	}
	if ctx2.Engine() != ctx.Engine() || *ctx2.Handle() != *ctx.Handle() {
		t.Fatalf("clone differs from the original")
	}

	c, err := NewCursor(ctx2)
	if err != nil {
		t.Fatal(err)
	}
	c.Unchecked().SetRegister(regnum.ARM_R0, 9)
	c2 := c.Clone()
	c.Step()
	if ip := mustRegister(t, c2, abi.RegIP); ip != 0x1000 {
		t.Errorf("stepping the original moved the clone: ip = %#x", ip)
	}
	if r0 := mustRegister(t, c2, regnum.ARM_R0); r0 != 9 {
		t.Errorf("clone lost the register write: r0 = %d", r0)
	}
	c2.Unchecked().SetRegister(regnum.ARM_R0, 10)
	c.Step()
	c.Step()
	if !c.Done() || c2.Done() {
		t.Errorf("terminal flag shared between clones")
	}
}

func TestConcurrentUsePanics(t *testing.T) {
	c := newScriptedCursor(t, scripted.New(regnum.ARM, armStack()...))
	defer func() {
		if recover() == nil {
			t.Fatalf("nested borrow did not panic")
		}
	}()
	c.state.borrow(func(*abi.Cursor) {
		c.Register(abi.RegIP)
	})
}

func TestFormat(t *testing.T) {
	c := newScriptedCursor(t, scripted.New(regnum.ARM, armStack()...))
	tests := []struct {
		format string
		want   string
	}{
		{"%v", "Cursor{ip: 0x1000}"},
		{"%s", "Cursor{ip: 0x1000}"},
		{"%+v", "Cursor{pc: 0x1000, signal: false, done: false}"},
		{"%#v", "&unwind.Cursor{ip: 0x1000}"},
	}
	for _, tc := range tests {
		if got := fmt.Sprintf(tc.format, c); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.format, got, tc.want)
		}
	}

	noPC := scripted.New(regnum.ARM, scripted.Frame{})
	if got := fmt.Sprintf("%v", newScriptedCursor(t, noPC)); got != "Cursor{..}" {
		t.Errorf("cursor without ip formatted as %q", got)
	}

	ctx, _ := CaptureEngine(noPC)
	if got := fmt.Sprintf("%v", ctx); got != "Context{..}" {
		t.Errorf("context formatted as %q", got)
	}
}
