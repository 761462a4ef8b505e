package local

import (
	"errors"
	"runtime"
	"unsafe"
)

var errNotText = errors.New("address is not inside a Go function")

// TextReader reads the machine code of the running program. Reads stop at
// the first byte that does not belong to a function known to the runtime.
type TextReader struct{}

// ReadMemory copies the code at addr into buf.
func (TextReader) ReadMemory(buf []byte, addr uint64) (int, error) {
	pc := uintptr(addr)
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return 0, errNotText
	}
	entry := fn.Entry()
	text := *(*unsafe.Pointer)(unsafe.Pointer(&entry))
	n := 0
	for n < len(buf) && runtime.FuncForPC(pc+uintptr(n)) != nil {
		buf[n] = *(*byte)(unsafe.Add(text, pc-entry+uintptr(n)))
		n++
	}
	return n, nil
}
