package regnum

import (
	"fmt"

	"github.com/vexide/unwind/pkg/unwind/abi"
)

// Register numbers of 32-bit ARM, as used on Cortex-A class embedded
// targets. r0-r15 share the DWARF numbering, s0-s31 and d0-d31 use the
// libunwind numbering.

const (
	ARM_R0 abi.Regnum = 0 // R1 through R15 follow
	ARM_FP abi.Regnum = 11
	ARM_IP abi.Regnum = 12 // intra-procedure-call scratch register
	ARM_SP abi.Regnum = 13
	ARM_LR abi.Regnum = 14
	ARM_PC abi.Regnum = 15
	ARM_S0 abi.Regnum = 64  // S1 through S31 follow
	ARM_D0 abi.Regnum = 256 // D1 through D31 follow
)

// ARM is the register table of 32-bit ARM.
var ARM = newArch("arm", 4, ARM_PC, ARM_SP, ARM_FP, ARM_LR, armNames(), armIsFP)

func armNames() map[abi.Regnum]string {
	m := make(map[abi.Regnum]string, 16+32+32)
	for i := abi.Regnum(0); i <= 12; i++ {
		m[ARM_R0+i] = fmt.Sprintf("r%d", i)
	}
	m[ARM_SP] = "sp"
	m[ARM_LR] = "lr"
	m[ARM_PC] = "pc"
	for i := abi.Regnum(0); i < 32; i++ {
		m[ARM_S0+i] = fmt.Sprintf("s%d", i)
		m[ARM_D0+i] = fmt.Sprintf("d%d", i)
	}
	return m
}

func armIsFP(reg abi.Regnum) bool {
	return (reg >= ARM_S0 && reg < ARM_S0+32) || (reg >= ARM_D0 && reg < ARM_D0+32)
}
