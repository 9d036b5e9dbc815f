package script

import (
	"io"
	"os"
)

// System is the process facade a Runner works with. Nothing under the
// harness reads os.Args or writes to os.Stdout directly; tests replace the
// whole facade.
type System struct {
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
	// Exit terminates the process. Code after a call to Exit only runs when
	// Exit is a fake that returns.
	Exit func(code int)
}

func OSSystem() *System {
	return &System{
		Args:   os.Args,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Exit:   os.Exit,
	}
}
