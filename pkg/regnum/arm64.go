package regnum

import (
	"fmt"

	"github.com/vexide/unwind/pkg/unwind/abi"
)

// The mapping between hardware registers and DWARF registers is specified
// in the DWARF for the ARM® Architecture page 7,
// Table 1
// http://infocenter.arm.com/help/topic/com.arm.doc.ihi0040b/IHI0040B_aadwarf.pdf

const (
	ARM64_X0 abi.Regnum = 0  // X1 through X30 follow
	ARM64_BP abi.Regnum = 29 // also X29
	ARM64_LR abi.Regnum = 30 // also X30
	ARM64_SP abi.Regnum = 31
	ARM64_PC abi.Regnum = 32
	ARM64_V0 abi.Regnum = 64 // V1 through V31 follow, named d0-d31
)

// ARM64 is the register table of arm64.
var ARM64 = newArch("arm64", 8, ARM64_PC, ARM64_SP, ARM64_BP, ARM64_LR, arm64Names(), arm64IsFP)

func arm64Names() map[abi.Regnum]string {
	m := make(map[abi.Regnum]string, 33+32)
	for i := abi.Regnum(0); i <= 28; i++ {
		m[ARM64_X0+i] = fmt.Sprintf("x%d", i)
	}
	m[ARM64_BP] = "fp"
	m[ARM64_LR] = "lr"
	m[ARM64_SP] = "sp"
	m[ARM64_PC] = "pc"
	for i := abi.Regnum(0); i < 32; i++ {
		m[ARM64_V0+i] = fmt.Sprintf("d%d", i)
	}
	return m
}

func arm64IsFP(reg abi.Regnum) bool {
	return reg >= ARM64_V0 && reg < ARM64_V0+32
}
