package backtrace

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// ColorMode selects when Print colors its output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode parses the value of a color setting. The empty string is
// ColorAuto.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(s)); m {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	}
	return "", fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
}

const (
	colorIndex  = "\033[36m"
	colorSignal = "\033[31m"
	colorInst   = "\033[34m"
	colorReset  = "\033[0m"
)

func paint(color bool, code, s string) string {
	if !color {
		return s
	}
	return code + s + colorReset
}

// Fprint writes one line per frame to w, followed by the decoded
// instruction when there is one.
func Fprint(w io.Writer, frames []Frame, color bool) error {
	for _, f := range frames {
		var b strings.Builder
		b.WriteString(paint(color, colorIndex, fmt.Sprintf("#%-3d", f.Index)))
		fmt.Fprintf(&b, " %#016x", f.IP)
		if f.Signal {
			b.WriteString(" " + paint(color, colorSignal, "<signal frame>"))
		}
		for _, r := range f.Registers {
			b.WriteString(" " + r.String())
		}
		b.WriteByte('\n')
		switch {
		case f.Inst != "":
			fmt.Fprintf(&b, "\t%s\n", paint(color, colorInst, f.Inst))
		case f.InstErr != nil:
			fmt.Fprintf(&b, "\t<%v>\n", f.InstErr)
		}
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// Print writes frames to standard output, preceded by the thread it was
// called on. With ColorAuto the output is colored if standard output is a
// terminal.
func Print(frames []Frame, mode ColorMode) error {
	color := mode == ColorAlways
	if mode == ColorAuto {
		color = isatty.IsTerminal(os.Stdout.Fd())
	}
	w := colorable.NewColorableStdout()
	if tid, ok := threadID(); ok {
		fmt.Fprintf(w, "backtrace of thread %d:\n", tid)
	}
	return Fprint(w, frames, color)
}
