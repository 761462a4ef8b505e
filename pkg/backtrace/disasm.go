package backtrace

import (
	"fmt"
	"io"

	"golang.org/x/arch/arm/armasm"
	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

const maxInstructionLength = 15

func noSymbols(uint64) (string, uint64) {
	return "", 0
}

// readerAt adapts a MemoryReader for the decoders that follow PC relative
// operands.
type readerAt struct {
	mem MemoryReader
}

func (r readerAt) ReadAt(p []byte, off int64) (int, error) {
	n, err := r.mem.ReadMemory(p, uint64(off))
	if err == nil && n < len(p) {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// disassemble decodes the instruction at pc in Go assembler syntax.
func disassemble(goarch string, mem MemoryReader, pc uintptr) (string, error) {
	buf := make([]byte, maxInstructionLength)
	n, err := mem.ReadMemory(buf, uint64(pc))
	if err != nil {
		return "", err
	}
	buf = buf[:n]
	switch goarch {
	case "amd64":
		inst, err := x86asm.Decode(buf, 64)
		if err != nil {
			return "", err
		}
		return x86asm.GoSyntax(inst, uint64(pc), noSymbols), nil
	case "arm64":
		inst, err := arm64asm.Decode(buf)
		if err != nil {
			return "", err
		}
		return arm64asm.GoSyntax(inst, uint64(pc), noSymbols, readerAt{mem}), nil
	case "arm":
		inst, err := armasm.Decode(buf, armasm.ModeARM)
		if err != nil {
			return "", err
		}
		return armasm.GoSyntax(inst, uint64(pc), noSymbols, readerAt{mem}), nil
	}
	return "", fmt.Errorf("no disassembler for %s", goarch)
}
