// Package scripttest provides a fake script.System for tests.
package scripttest

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CZERTAINLY/harness/internal/script"
)

// ExitCode is the panic value of a fake System.Exit.
type ExitCode int

func (c ExitCode) String() string {
	return fmt.Sprintf("exit(%d)", int(c))
}

// Buffer is a bytes.Buffer safe for concurrent use.
type Buffer struct {
	mx  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.buf.Write(p)
}

func (b *Buffer) String() string {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.buf.String()
}

func (b *Buffer) Len() int {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.buf.Len()
}

// System records the output of a script and turns Exit into a panic with an
// ExitCode, so the code after Exit never runs.
type System struct {
	Stdout Buffer
	Stderr Buffer
	Sys    *script.System
}

// New returns a fake system whose argument vector is "harness" followed by
// args.
func New(args ...string) *System {
	s := &System{}
	s.Sys = &script.System{
		Args:   append([]string{"harness"}, args...),
		Stdout: &s.Stdout,
		Stderr: &s.Stderr,
		Exit: func(code int) {
			panic(ExitCode(code))
		},
	}
	return s
}

// Exited runs fn and returns the code it exited with. ok is false when fn
// returned without calling Exit. Other panics are propagated.
func Exited(fn func()) (code int, ok bool) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		c, isExit := p.(ExitCode)
		if !isExit {
			panic(p)
		}
		code, ok = int(c), true
	}()
	fn()
	return 0, false
}

// RequireExit fails the test unless fn exits with code.
func RequireExit(t testing.TB, code int, fn func()) {
	t.Helper()
	got, ok := Exited(fn)
	require.True(t, ok, "expected exit(%d), function returned", code)
	require.Equal(t, code, got)
}
