package main

import (
	"os"

	"github.com/vexide/unwind/cmd/backtrace/cmds"
)

func main() {
	if err := cmds.New().Execute(); err != nil {
		os.Exit(1)
	}
}
