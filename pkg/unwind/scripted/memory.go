package scripted

import (
	"fmt"
)

// Memory maps start addresses to the bytes stored there. It can stand in
// for the code of a scripted stack when decoding instructions.
type Memory map[uint64][]byte

// ReadMemory copies the bytes at addr into buf. The read stops at the end
// of the segment containing addr.
func (m Memory) ReadMemory(buf []byte, addr uint64) (int, error) {
	for start, data := range m {
		if addr >= start && addr < start+uint64(len(data)) {
			return copy(buf, data[addr-start:]), nil
		}
	}
	return 0, fmt.Errorf("address %#x not mapped", addr)
}
