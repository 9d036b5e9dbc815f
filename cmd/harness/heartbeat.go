package main

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/spf13/pflag"

	"github.com/CZERTAINLY/harness/internal/config"
	"github.com/CZERTAINLY/harness/internal/loop"
	"github.com/CZERTAINLY/harness/internal/script"
)

type heartbeatOptions struct {
	Interval time.Duration
	Message  string

	configErr error
}

func newHeartbeatOptions(cfg config.Heartbeat) *heartbeatOptions {
	return &heartbeatOptions{
		Interval: cfg.Interval,
		Message:  cfg.Message,
	}
}

func (o *heartbeatOptions) Synopsis() string {
	return "harness [options]"
}

func (o *heartbeatOptions) AddFlags(fs *pflag.FlagSet) {
	fs.DurationVar(&o.Interval, "interval", o.Interval, "time between two heartbeats")
	fs.StringVar(&o.Message, "message", o.Message, "heartbeat message")
}

func (o *heartbeatOptions) PostOptions(args []string) error {
	if o.configErr != nil {
		return o.configErr
	}
	if len(args) > 0 {
		return script.Usagef("unexpected argument %q", args[0])
	}
	if o.Interval <= 0 {
		return script.Usagef("--interval must be positive, got %s", o.Interval)
	}
	return nil
}

// heartbeat writes "<message> #<n>" to a stdlib logger every interval.
type heartbeat struct {
	loop.BaseService
	interval time.Duration
	message  string
	logger   *log.Logger

	mx     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newHeartbeat(interval time.Duration, message string, w io.Writer) *heartbeat {
	return &heartbeat{
		interval: interval,
		message:  message,
		logger:   log.New(w, "", 0),
	}
}

func (h *heartbeat) Start(ctx context.Context) error {
	h.mx.Lock()
	defer h.mx.Unlock()
	if h.Running() {
		return nil
	}
	ctx, h.cancel = context.WithCancel(context.WithoutCancel(ctx))
	h.wg.Go(func() {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for n := 1; ; n++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.logger.Printf("%s #%d", h.message, n)
			}
		}
	})
	return h.BaseService.Start(ctx)
}

func (h *heartbeat) Stop(ctx context.Context) error {
	h.mx.Lock()
	defer h.mx.Unlock()
	if !h.Running() {
		return nil
	}
	h.cancel()
	h.wg.Wait()
	return h.BaseService.Stop(ctx)
}
