package script

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/CZERTAINLY/harness/internal/version"
)

// StandardOptions adds the flags every harness command has: --version and
// --help. Both are handled from the raw arguments, before the wrapped
// options see them, so they win over any invalid flag combination.
type StandardOptions struct {
	Options
	sys *System
}

// WithStandardOptions decorates o. A nil sys means OSSystem().
func WithStandardOptions(o Options, sys *System) *StandardOptions {
	if sys == nil {
		sys = OSSystem()
	}
	return &StandardOptions{Options: o, sys: sys}
}

func (s *StandardOptions) System() *System {
	return s.sys
}

func (s *StandardOptions) Unwrap() Options {
	return s.Options
}

func (s *StandardOptions) AddFlags(fs *pflag.FlagSet) {
	fs.Bool("version", false, "print the version and exit")
	fs.BoolP("help", "h", false, "print this help and exit")
	s.Options.AddFlags(fs)
}

// PreParse handles --version and --help. The help text lists the flags of
// root, which includes the flags of decorators around s.
func (s *StandardOptions) PreParse(root Options, args []string) bool {
	for _, arg := range args {
		switch arg {
		case "--":
			return false
		case "--version":
			fmt.Fprintln(s.sys.Stdout, version.Get())
			s.sys.Exit(0)
			return true
		case "--help", "-h":
			fmt.Fprint(s.sys.Stdout, HelpText(root))
			s.sys.Exit(0)
			return true
		}
	}
	return false
}
