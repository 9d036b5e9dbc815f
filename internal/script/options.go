package script

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ErrExit is returned by Parse when an option asked for the process to exit
// and System.Exit returned.
var ErrExit = errors.New("exit requested")

// Options describes the command line of a script. Parsed values are stored
// in the fields of the implementation.
type Options interface {
	// Synopsis is the first line of the help text, e.g. "harness [options]".
	Synopsis() string
	// AddFlags registers the flags of the options.
	AddFlags(fs *pflag.FlagSet)
	// PostOptions validates the parsed flags and the positional arguments.
	// Validation failures are reported as *UsageError.
	PostOptions(args []string) error
}

// Wrapper is implemented by options decorating other options.
type Wrapper interface {
	Unwrap() Options
}

// PreParser is implemented by options which inspect the raw arguments before
// any flag is parsed. root is the outermost options of the decoration chain.
// PreParse returns true when it handled the arguments and parsing must not
// continue.
type PreParser interface {
	PreParse(root Options, args []string) bool
}

// UsageError is an invalid command line.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// Usagef returns a *UsageError.
func Usagef(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// Parse parses args into o. Flag syntax errors are returned as *UsageError,
// errors of PostOptions are returned unchanged.
func Parse(o Options, args []string) error {
	for layer := o; layer != nil; layer = unwrap(layer) {
		if pre, ok := layer.(PreParser); ok && pre.PreParse(o, args) {
			return ErrExit
		}
	}

	cmd := newCommand(o)
	if err := cmd.ParseFlags(args); err != nil {
		return &UsageError{Message: err.Error()}
	}
	return o.PostOptions(cmd.Flags().Args())
}

// HelpText returns the synopsis and the flag usage of o.
func HelpText(o Options) string {
	return newCommand(o).UsageString()
}

func newCommand(o Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   o.Synopsis(),
		DisableFlagsInUseLine: true,
		SilenceErrors:         true,
		SilenceUsage:          true,
		// usage prints the synopsis of runnable commands only
		Run: func(*cobra.Command, []string) {},
	}
	cmd.Flags().SortFlags = false
	o.AddFlags(cmd.Flags())
	return cmd
}

// As returns the first options of type T in the decoration chain of o.
func As[T Options](o Options) (T, bool) {
	for layer := o; layer != nil; layer = unwrap(layer) {
		if t, ok := layer.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

func unwrap(o Options) Options {
	if w, ok := o.(Wrapper); ok {
		return w.Unwrap()
	}
	return nil
}
