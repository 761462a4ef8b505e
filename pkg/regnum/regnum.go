// Package regnum holds the register tables of the architectures the
// unwinder knows about.
//
// Numbers follow LLVM libunwind (which, for the general purpose registers,
// matches the DWARF numbering of each ABI). The generic abi.RegIP and
// abi.RegSP identifiers are accepted by every table.
package regnum

import (
	"fmt"
	"sort"
	"strings"

	"github.com/derekparker/trie"
	"golang.org/x/exp/maps"

	"github.com/vexide/unwind/pkg/unwind/abi"
)

// Arch is the register table of one architecture.
type Arch struct {
	// GOARCH is the name of the architecture in GOARCH form.
	GOARCH  string
	PtrSize int

	// Architecture specific numbers of the program counter, stack pointer,
	// frame pointer and link register. LR is -1 when the architecture has
	// no link register.
	PC, SP, FP, LR abi.Regnum

	names  map[abi.Regnum]string
	isFP   func(abi.Regnum) bool
	byName *trie.Trie
}

func newArch(goarch string, ptrSize int, pc, sp, fp, lr abi.Regnum, names map[abi.Regnum]string, isFP func(abi.Regnum) bool) *Arch {
	a := &Arch{
		GOARCH:  goarch,
		PtrSize: ptrSize,
		PC:      pc,
		SP:      sp,
		FP:      fp,
		LR:      lr,
		names:   names,
		isFP:    isFP,
		byName:  trie.New(),
	}
	for num, name := range names {
		a.byName.Add(name, num)
	}
	ip := abi.RegIP
	if goarch == "arm" {
		ip = ARM_IP
	}
	a.byName.Add("ip", ip)
	return a
}

// Name returns the display name of reg or abi.UnknownRegisterName.
func (a *Arch) Name(reg abi.Regnum) string {
	switch reg {
	case abi.RegIP:
		return a.names[a.PC]
	case abi.RegSP:
		return a.names[a.SP]
	}
	if name, ok := a.names[reg]; ok {
		return name
	}
	return abi.UnknownRegisterName
}

// Known reports whether reg is part of the table.
func (a *Arch) Known(reg abi.Regnum) bool {
	if reg == abi.RegIP || reg == abi.RegSP {
		return true
	}
	_, ok := a.names[reg]
	return ok
}

// IsFP reports whether reg belongs to the floating point register file.
func (a *Arch) IsFP(reg abi.Regnum) bool {
	return a.isFP != nil && a.isFP(reg)
}

// Canonical maps the generic identifiers to their architecture specific
// number, other registers are returned unchanged.
func (a *Arch) Canonical(reg abi.Regnum) abi.Regnum {
	switch reg {
	case abi.RegIP:
		return a.PC
	case abi.RegSP:
		return a.SP
	}
	return reg
}

// Lookup returns the register called name. Names are case insensitive.
// "ip" is an alias for the program counter, except on arm where it names
// r12, the intra-procedure-call scratch register.
func (a *Arch) Lookup(name string) (abi.Regnum, bool) {
	n, ok := a.byName.Find(strings.ToLower(name))
	if !ok {
		return 0, false
	}
	reg, ok := n.Meta().(abi.Regnum)
	return reg, ok
}

// Parse resolves a list of register names.
func (a *Arch) Parse(names []string) ([]abi.Regnum, error) {
	regs := make([]abi.Regnum, 0, len(names))
	for _, name := range names {
		reg, ok := a.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown register %q for %s", name, a.GOARCH)
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

// Complete returns the register names starting with prefix, sorted.
func (a *Arch) Complete(prefix string) []string {
	r := a.byName.PrefixSearch(strings.ToLower(prefix))
	sort.Strings(r)
	return r
}

// Registers returns every architecture specific register number of the
// table in ascending order.
func (a *Arch) Registers() []abi.Regnum {
	regs := maps.Keys(a.names)
	sort.Slice(regs, func(i, j int) bool { return regs[i] < regs[j] })
	return regs
}

// ForGOARCH returns the register table for goarch. Architectures without a
// table get a generic one that only knows the instruction and stack
// pointers.
func ForGOARCH(goarch string) *Arch {
	switch goarch {
	case "arm":
		return ARM
	case "arm64":
		return ARM64
	case "amd64":
		return AMD64
	}
	return genericArch(goarch)
}

const (
	genericPC abi.Regnum = 0
	genericSP abi.Regnum = 1
)

func genericArch(goarch string) *Arch {
	ptrSize := 8
	switch goarch {
	case "386", "arm", "mips", "mipsle", "wasm":
		ptrSize = 4
	}
	return newArch(goarch, ptrSize, genericPC, genericSP, -1, -1, map[abi.Regnum]string{
		genericPC: "pc",
		genericSP: "sp",
	}, nil)
}
