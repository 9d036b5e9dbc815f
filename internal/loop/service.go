package loop

import (
	"context"
	"sync/atomic"
)

// Service is a unit with a start/stop lifecycle. Start must not block beyond
// what is needed to make the service operational. Stop blocks until the
// service has fully stopped; it is the asynchronous part of the lifecycle and
// callers which must not block run it through future.Go.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Running() bool
}

// BaseService tracks the running flag. It is a complete no-op Service and is
// meant to be embedded by services which only add behaviour around it.
type BaseService struct {
	running atomic.Bool
}

func (s *BaseService) Start(context.Context) error {
	s.running.Store(true)
	return nil
}

func (s *BaseService) Stop(context.Context) error {
	s.running.Store(false)
	return nil
}

func (s *BaseService) Running() bool {
	return s.running.Load()
}
