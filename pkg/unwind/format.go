package unwind

import (
	"fmt"
	"io"

	"github.com/vexide/unwind/pkg/unwind/abi"
)

// String returns the instruction pointer of the current frame, or an
// undetailed form if it cannot be read.
func (c *Cursor) String() string {
	ip, err := c.Register(abi.RegIP)
	if err != nil {
		return "Cursor{..}"
	}
	return fmt.Sprintf("Cursor{ip: %#x}", ip)
}

// GoString implements fmt.GoStringer.
func (c *Cursor) GoString() string {
	return "&unwind." + c.String()
}

// Format implements fmt.Formatter. %v and %s print String, %+v adds the
// signal frame and terminal flags and %#v prints GoString.
func (c *Cursor) Format(f fmt.State, verb rune) {
	switch verb {
	case 'v':
		switch {
		case f.Flag('#'):
			io.WriteString(f, c.GoString())
		case f.Flag('+'):
			io.WriteString(f, c.verbose())
		default:
			io.WriteString(f, c.String())
		}
	case 's':
		io.WriteString(f, c.String())
	default:
		fmt.Fprintf(f, "%%!%c(*unwind.Cursor=%s)", verb, c.String())
	}
}

func (c *Cursor) verbose() string {
	ip, err := c.Register(abi.RegIP)
	if err != nil {
		return fmt.Sprintf("Cursor{ip: <%v>, done: %v}", err, c.done)
	}
	name, ok := c.RegisterName(abi.RegIP)
	if !ok {
		name = "ip"
	}
	signal := "?"
	if sig, err := c.IsSignalFrame(); err == nil {
		signal = fmt.Sprint(sig)
	}
	return fmt.Sprintf("Cursor{%s: %#x, signal: %s, done: %v}", name, ip, signal, c.done)
}
