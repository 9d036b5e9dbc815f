// Package legacylog is the unstructured log channel of the harness.
//
// Code which predates structured logging emits free text records through a
// Publisher, either with Msg (informational) or Err (an error together with
// an explanation). Observers receive every record synchronously, in emission
// order. The Default publisher is the process-wide channel; a stdlib
// *log.Logger can write into any publisher because Publisher is an
// io.Writer.
package legacylog

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// UnhandledError is the explanation used by Err when none is given.
const UnhandledError = "Unhandled Error"

// Record is a single entry on the legacy channel.
type Record struct {
	Time    time.Time
	IsError bool
	Parts   []string
	Why     string
	Failure *Failure
}

// Observer receives records emitted on a Publisher. Observers are compared
// by equality on removal, so implementations should be pointers.
type Observer interface {
	Observe(Record)
}

type Publisher struct {
	mx        sync.Mutex
	observers []Observer
	now       func() time.Time
}

// Default is the process-wide legacy channel.
var Default = NewPublisher()

func NewPublisher() *Publisher {
	return &Publisher{now: time.Now}
}

func (p *Publisher) AddObserver(o Observer) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.observers = append(p.observers, o)
}

// RemoveObserver removes the first registration of o, unknown observers are
// ignored.
func (p *Publisher) RemoveObserver(o Observer) {
	p.mx.Lock()
	defer p.mx.Unlock()
	for idx, obs := range p.observers {
		if obs == o {
			p.observers = append(p.observers[:idx:idx], p.observers[idx+1:]...)
			return
		}
	}
}

// Msg emits an informational record, every part is formatted with fmt.Sprint.
func (p *Publisher) Msg(parts ...any) {
	strs := make([]string, 0, len(parts))
	for _, part := range parts {
		strs = append(strs, fmt.Sprint(part))
	}
	p.Publish(Record{Parts: strs})
}

// Err emits an error record carrying a Failure built from err.
func (p *Publisher) Err(err error, why string) {
	if why == "" {
		why = UnhandledError
	}
	p.Publish(Record{
		IsError: true,
		Why:     why,
		Failure: NewFailure(err),
	})
}

// Publish delivers rec to all observers registered at the time of the call.
func (p *Publisher) Publish(rec Record) {
	if rec.Time.IsZero() {
		rec.Time = p.now()
	}
	p.mx.Lock()
	observers := append([]Observer(nil), p.observers...)
	p.mx.Unlock()

	for _, o := range observers {
		o.Observe(rec)
	}
}

// Write emits one informational record per line of b. An empty b emits
// nothing.
func (p *Publisher) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	text := strings.TrimRight(string(b), "\n")
	for line := range strings.SplitSeq(text, "\n") {
		p.Msg(line)
	}
	return len(b), nil
}

func Msg(parts ...any) {
	Default.Msg(parts...)
}

func Err(err error, why string) {
	Default.Err(err, why)
}
