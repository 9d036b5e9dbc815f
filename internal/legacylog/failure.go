package legacylog

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Failure is an error together with the stack it was raised on.
type Failure struct {
	Err   error
	Stack errors.StackTrace
}

// NewFailure wraps err. When err already carries a pkg/errors stack trace,
// that stack is kept, otherwise the stack of the caller is captured.
func NewFailure(err error) *Failure {
	var st stackTracer
	if !errors.As(err, &st) {
		st = errors.WithStack(err).(stackTracer)
	}
	return &Failure{
		Err:   err,
		Stack: st.StackTrace(),
	}
}

// TypeName is the dynamic type of the wrapped error.
func (f *Failure) TypeName() string {
	return fmt.Sprintf("%T", f.Err)
}

func (f *Failure) Error() string {
	return f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Traceback renders the failure as
//
//	<type>: <message>
//	<function>
//		<file>:<line>
//	...
func (f *Failure) Traceback() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", f.TypeName(), f.Err.Error())
	for _, frame := range f.Stack {
		fmt.Fprintf(&b, "%+s:%d\n", frame, frame)
	}
	return b.String()
}
