package script

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/CZERTAINLY/harness/internal/legacylog"
)

// LegacyLogMessage is the slog message of every entry produced from a legacy
// record.
const LegacyLogMessage = "legacy:log"

// Observer forwards the records of a legacylog.Publisher to slog. Every
// record becomes one entry with two attributes: error and message.
type Observer struct {
	// Logger receives the entries, slog.Default() when nil.
	Logger *slog.Logger

	publisher *legacylog.Publisher
	mx        sync.Mutex
	started   bool
}

func NewObserver(p *legacylog.Publisher) *Observer {
	return &Observer{publisher: p}
}

// Start subscribes the observer to its publisher.
func (o *Observer) Start() {
	o.mx.Lock()
	defer o.mx.Unlock()
	if o.started {
		return
	}
	o.started = true
	o.publisher.AddObserver(o)
}

func (o *Observer) Stop() {
	o.mx.Lock()
	defer o.mx.Unlock()
	if !o.started {
		return
	}
	o.started = false
	o.publisher.RemoveObserver(o)
}

func (o *Observer) Observe(rec legacylog.Record) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if rec.IsError {
		level = slog.LevelError
	}
	logger.LogAttrs(context.Background(), level, LegacyLogMessage,
		slog.Bool("error", rec.IsError),
		slog.String("message", recordMessage(rec)),
	)
}

func recordMessage(rec legacylog.Record) string {
	if !rec.IsError {
		return strings.Join(rec.Parts, " ")
	}
	msg := rec.Why + "\n"
	if rec.Failure != nil {
		msg += rec.Failure.Traceback()
	}
	return msg
}
