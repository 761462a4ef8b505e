package cmds

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vexide/unwind/pkg/backtrace"
	"github.com/vexide/unwind/pkg/config"
	"github.com/vexide/unwind/pkg/logflags"
	"github.com/vexide/unwind/pkg/regnum"
	"github.com/vexide/unwind/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string

	// depth is the maximum number of frames printed.
	depth int
	// registers are the names of the registers printed for every frame.
	registers []string

	disassemble bool
	color       string

	conf *config.Config
)

const backtraceCommandLongDesc = `Prints the backtrace of the calling thread, as seen by the unwinder.

Every frame is printed with its instruction pointer, followed by the
registers selected with --registers and, with --disassemble, by the
instruction at the instruction pointer.

Defaults for all flags are read from $HOME/.unwind/config.yml.`

// New returns an initialized command tree.
func New() *cobra.Command {
	conf = config.LoadConfig()
	arch := regnum.ForGOARCH(runtime.GOARCH)

	rootCommand := &cobra.Command{
		Use:   "backtrace",
		Short: "Prints its own backtrace.",
		Long:  backtraceCommandLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, arch, false)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", conf.Log, "Enable logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", conf.LogOutput, `Comma separated list of components that should produce debug output (see 'backtrace help log')`)
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor (see 'backtrace help log').")

	rootCommand.PersistentFlags().IntVarP(&depth, "depth", "d", conf.Depth(), "Maximum number of frames printed, 0 prints the whole stack.")
	rootCommand.PersistentFlags().StringSliceVarP(&registers, "registers", "r", conf.Registers, "Registers printed for every frame.")
	rootCommand.PersistentFlags().BoolVarP(&disassemble, "disassemble", "", conf.Disassemble, "Print the instruction at the instruction pointer of every frame.")
	rootCommand.PersistentFlags().StringVar(&color, "color", defaultColor(conf.Color), "When to color the output: auto, always or never.")

	rootCommand.RegisterFlagCompletionFunc("registers", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return completeRegisters(arch, toComplete), cobra.ShellCompDirectiveNoFileComp
	})
	rootCommand.RegisterFlagCompletionFunc("color", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{string(backtrace.ColorAuto), string(backtrace.ColorAlways), string(backtrace.ColorNever)}, cobra.ShellCompDirectiveNoFileComp
	})

	// 'version' subcommand.
	var versionVerbose = false
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "backtrace\n%s\n", version.UnwindVersion)
			if versionVerbose {
				fmt.Fprintf(cmd.OutOrStdout(), "Build Details: %s\n", version.BuildInfo())
			}
		},
	}
	versionCommand.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "print verbose version info")
	rootCommand.AddCommand(versionCommand)

	// 'fault' subcommand.
	rootCommand.AddCommand(&cobra.Command{
		Use:   "fault",
		Short: "Prints the backtrace of a recovered nil pointer dereference.",
		Long: `Dereferences a nil pointer and prints the backtrace from the deferred
function that recovers from it. The frame that faulted is marked as a
signal frame.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, arch, true)
		},
		SilenceUsage: true,
	})

	// 'registers' subcommand.
	rootCommand.AddCommand(&cobra.Command{
		Use:   "registers",
		Short: "Lists the register names known for this architecture.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, reg := range arch.Registers() {
				fp := ""
				if arch.IsFP(reg) {
					fp = "\t(fp)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s%s\n", reg, arch.Name(reg), fp)
			}
		},
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "log",
		Short: "Help about logging flags.",
		Long: `Logging can be enabled by specifying the --log flag and using the
--log-output flag to select which components should produce logs.

The argument of --log-output must be a comma separated list of component
names selected from this list:


	unwind		Log engine calls made by the unwinder and their failures
	engine		Log the local and scripted engines
	backtrace	Log frame collection

Additionally --log-dest can be used to specify where the logs should be
written.
If the argument is a number it will be interpreted as a file descriptor,
otherwise as a file path.

`,
	})

	rootCommand.DisableAutoGenTag = true

	return rootCommand
}

func defaultColor(s string) string {
	if s == "" {
		return string(backtrace.ColorAuto)
	}
	return s
}

// completeRegisters completes the last element of a comma separated list
// of register names.
func completeRegisters(arch *regnum.Arch, toComplete string) []string {
	prefix, last := "", toComplete
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix, last = toComplete[:i+1], toComplete[i+1:]
	}
	names := arch.Complete(strings.ToLower(last))
	for i := range names {
		names[i] = prefix + names[i]
	}
	return names
}

func options(arch *regnum.Arch) (backtrace.Options, backtrace.ColorMode, error) {
	mode, err := backtrace.ParseColorMode(color)
	if err != nil {
		return backtrace.Options{}, "", err
	}
	if depth < 0 {
		return backtrace.Options{}, "", errors.New("--depth must not be negative")
	}
	c := config.Config{MaxDepth: &depth, Registers: registers, Disassemble: disassemble}
	opts, err := c.BacktraceOptions(arch)
	return opts, mode, err
}

func run(cmd *cobra.Command, arch *regnum.Arch, fault bool) error {
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	defer logflags.Close()

	opts, mode, err := options(arch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}

	var frames []backtrace.Frame
	if fault {
		frames, err = faultBacktrace(opts)
	} else {
		frames, err = backtrace.Current(opts)
	}
	if perr := backtrace.Print(frames, mode); perr != nil && err == nil {
		err = perr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtrace: %v\n", err)
	}
	return err
}

type node struct {
	next *node
}

//go:noinline
func deref(n *node) *node {
	return n.next
}

// faultBacktrace collects the backtrace from the deferred function that
// recovers from a nil pointer dereference.
func faultBacktrace(opts backtrace.Options) (frames []backtrace.Frame, err error) {
	defer func() {
		if r := recover(); r == nil {
			err = errors.New("no fault")
			return
		}
		frames, err = backtrace.Current(opts)
	}()
	deref(nil)
	return nil, nil
}
