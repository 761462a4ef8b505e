//go:build !linux

package backtrace

func threadID() (int, bool) {
	return 0, false
}
