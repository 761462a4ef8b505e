package regnum

import (
	"github.com/vexide/unwind/pkg/unwind/abi"
)

// The mapping between hardware registers and DWARF registers is specified
// in the System V ABI AMD64 Architecture Processor Supplement v. 1.0 page 61,
// figure 3.36
// https://gitlab.com/x86-psABIs/x86-64-ABI/-/tree/master

const (
	AMD64_Rax  abi.Regnum = 0
	AMD64_Rdx  abi.Regnum = 1
	AMD64_Rcx  abi.Regnum = 2
	AMD64_Rbx  abi.Regnum = 3
	AMD64_Rsi  abi.Regnum = 4
	AMD64_Rdi  abi.Regnum = 5
	AMD64_Rbp  abi.Regnum = 6
	AMD64_Rsp  abi.Regnum = 7
	AMD64_R8   abi.Regnum = 8 // R9 through R15 follow
	AMD64_Rip  abi.Regnum = 16
	AMD64_XMM0 abi.Regnum = 17 // XMM1 through XMM15 follow
)

// AMD64 is the register table of amd64. The XMM registers are vector
// registers and are not part of the floating point register file.
var AMD64 = newArch("amd64", 8, AMD64_Rip, AMD64_Rsp, AMD64_Rbp, -1, map[abi.Regnum]string{
	AMD64_Rax:       "rax",
	AMD64_Rdx:       "rdx",
	AMD64_Rcx:       "rcx",
	AMD64_Rbx:       "rbx",
	AMD64_Rsi:       "rsi",
	AMD64_Rdi:       "rdi",
	AMD64_Rbp:       "rbp",
	AMD64_Rsp:       "rsp",
	AMD64_R8:        "r8",
	AMD64_R8 + 1:    "r9",
	AMD64_R8 + 2:    "r10",
	AMD64_R8 + 3:    "r11",
	AMD64_R8 + 4:    "r12",
	AMD64_R8 + 5:    "r13",
	AMD64_R8 + 6:    "r14",
	AMD64_R8 + 7:    "r15",
	AMD64_Rip:       "rip",
	AMD64_XMM0:      "xmm0",
	AMD64_XMM0 + 1:  "xmm1",
	AMD64_XMM0 + 2:  "xmm2",
	AMD64_XMM0 + 3:  "xmm3",
	AMD64_XMM0 + 4:  "xmm4",
	AMD64_XMM0 + 5:  "xmm5",
	AMD64_XMM0 + 6:  "xmm6",
	AMD64_XMM0 + 7:  "xmm7",
	AMD64_XMM0 + 8:  "xmm8",
	AMD64_XMM0 + 9:  "xmm9",
	AMD64_XMM0 + 10: "xmm10",
	AMD64_XMM0 + 11: "xmm11",
	AMD64_XMM0 + 12: "xmm12",
	AMD64_XMM0 + 13: "xmm13",
	AMD64_XMM0 + 14: "xmm14",
	AMD64_XMM0 + 15: "xmm15",
}, nil)
