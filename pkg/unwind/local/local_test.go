package local

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/vexide/unwind/pkg/unwind/abi"
)

//go:noinline
func captureHere(e *Engine, ctx *abi.Context) abi.Status {
	return e.GetContext(ctx, 0)
}

//go:noinline
func captureDeep(e *Engine, ctx *abi.Context, depth int) abi.Status {
	if depth == 0 {
		return e.GetContext(ctx, 0)
	}
	return captureDeep(e, ctx, depth-1)
}

func funcNameOf(pc uintptr) string {
	fn := runtime.FuncForPC(pc - 1)
	if fn == nil {
		return ""
	}
	return fn.Name()
}

func newCursor(t *testing.T, e *Engine, ctx *abi.Context) *abi.Cursor {
	t.Helper()
	var cur abi.Cursor
	if st := e.InitLocal(&cur, ctx); st != abi.ESuccess {
		t.Fatalf("InitLocal: %d", st)
	}
	return &cur
}

func TestCaptureFirstFrame(t *testing.T) {
	e := New()
	var ctx abi.Context
	if st := captureHere(e, &ctx); st != abi.ESuccess {
		t.Fatalf("GetContext: %d", st)
	}
	cur := newCursor(t, e, &ctx)

	var ip uintptr
	if st := e.GetReg(cur, abi.RegIP, &ip); st != abi.ESuccess {
		t.Fatalf("GetReg(ip): %d", st)
	}
	if name := funcNameOf(ip); !strings.HasSuffix(name, "local.captureHere") {
		t.Fatalf("first frame is %q", name)
	}

	var pc uintptr
	if st := e.GetReg(cur, e.arch.PC, &pc); st != abi.ESuccess || pc != ip {
		t.Fatalf("arch pc register: %d %#x (ip %#x)", st, pc, ip)
	}

	if st := e.Step(cur); st != abi.StepSuccess {
		t.Fatalf("Step: %d", st)
	}
	if st := e.GetReg(cur, abi.RegIP, &ip); st != abi.ESuccess {
		t.Fatalf("GetReg(ip): %d", st)
	}
	if name := funcNameOf(ip); !strings.HasSuffix(name, "local.TestCaptureFirstFrame") {
		t.Fatalf("second frame is %q", name)
	}
}

func TestStepToEnd(t *testing.T) {
	e := New()
	var ctx abi.Context
	if st := captureHere(e, &ctx); st != abi.ESuccess {
		t.Fatalf("GetContext: %d", st)
	}
	n := int(ctx.Words()[ctxCountWord])
	cur := newCursor(t, e, &ctx)
	steps := 0
	for {
		st := e.Step(cur)
		if st == abi.StepEnd {
			break
		}
		if st != abi.StepSuccess {
			t.Fatalf("Step: %d", st)
		}
		steps++
	}
	if steps != n-1 {
		t.Fatalf("stepped %d times over %d frames", steps, n)
	}
}

func TestTruncatedStack(t *testing.T) {
	e := New()
	var ctx abi.Context
	if st := captureDeep(e, &ctx, MaxFrames+10); st != abi.ESuccess {
		t.Fatalf("GetContext: %d", st)
	}
	if ctx.Words()[ctxFlagsWord]&flagTruncated == 0 {
		t.Fatalf("context not marked truncated")
	}
	cur := newCursor(t, e, &ctx)
	for i := 0; i < MaxFrames-1; i++ {
		if st := e.Step(cur); st != abi.StepSuccess {
			t.Fatalf("Step %d: %d", i, st)
		}
	}
	if st := e.Step(cur); st != abi.ENoInfo {
		t.Fatalf("stepping out of the last recorded frame: %d", st)
	}
}

func TestRegisters(t *testing.T) {
	e := New()
	var ctx abi.Context
	captureHere(e, &ctx)
	cur := newCursor(t, e, &ctx)

	var v uintptr
	if st := e.GetReg(cur, abi.RegSP, &v); st != abi.EBadReg {
		t.Errorf("GetReg(sp): %d", st)
	}
	if st := e.GetReg(cur, 9999, &v); st != abi.EBadReg {
		t.Errorf("GetReg(9999): %d", st)
	}
	if st := e.SetReg(cur, abi.RegSP, 1); st != abi.EReadOnlyReg {
		t.Errorf("SetReg(sp): %d", st)
	}
	var f float64
	if st := e.GetFPReg(cur, 0, &f); st != abi.EBadReg {
		t.Errorf("GetFPReg: %d", st)
	}

	if st := e.SetReg(cur, abi.RegIP, 0x1234); st != abi.ESuccess {
		t.Fatalf("SetReg(ip): %d", st)
	}
	if st := e.GetReg(cur, abi.RegIP, &v); st != abi.ESuccess || v != 0x1234 {
		t.Fatalf("ip after write: %d %#x", st, v)
	}
	e.Step(cur)
	if e.GetReg(cur, abi.RegIP, &v); v == 0x1234 {
		t.Fatalf("ip write survived a step")
	}
}

func TestForeignState(t *testing.T) {
	e := New()
	var ctx abi.Context
	var cur abi.Cursor
	if st := e.InitLocal(&cur, &ctx); st != abi.EInval {
		t.Errorf("InitLocal on empty context: %d", st)
	}
	if st := e.Step(&cur); st != abi.EInval {
		t.Errorf("Step on empty cursor: %d", st)
	}
	if st := e.GetContext(&ctx, -1); st != abi.EInval {
		t.Errorf("GetContext with negative skip: %d", st)
	}
}

func TestRegName(t *testing.T) {
	e := New()
	var cur abi.Cursor
	if name := e.RegName(&cur, abi.RegIP); name == abi.UnknownRegisterName || name == "" {
		t.Errorf("RegName(ip) = %q", name)
	}
	if name := e.RegName(&cur, 12345); name != abi.UnknownRegisterName {
		t.Errorf("RegName(12345) = %q", name)
	}
}

func TestTextReader(t *testing.T) {
	entry := runtime.FuncForPC(funcPC(captureHere)).Entry()
	buf := make([]byte, 4)
	n, err := TextReader{}.ReadMemory(buf, uint64(entry))
	if err != nil || n != len(buf) {
		t.Fatalf("ReadMemory at function entry: %d %v", n, err)
	}
	if _, err := (TextReader{}).ReadMemory(buf, 0); err == nil {
		t.Fatalf("ReadMemory at address zero succeeded")
	}

	// reads inside a function see the same bytes as reads from its entry
	whole := make([]byte, 8)
	if n, err := (TextReader{}).ReadMemory(whole, uint64(entry)); err != nil || n != len(whole) {
		t.Fatalf("ReadMemory of 8 bytes at entry: %d %v", n, err)
	}
	if !bytes.Equal(whole[:4], buf) {
		t.Fatalf("reads at the same address differ: %x %x", whole[:4], buf)
	}
	n, err = TextReader{}.ReadMemory(buf, uint64(entry+4))
	if err != nil || n != len(buf) {
		t.Fatalf("ReadMemory at entry+4: %d %v", n, err)
	}
	if !bytes.Equal(whole[4:], buf) {
		t.Fatalf("ReadMemory at entry+4 = %x, want %x", buf, whole[4:])
	}
}
