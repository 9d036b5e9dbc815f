package script

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/CZERTAINLY/harness/internal/legacylog"
	"github.com/CZERTAINLY/harness/internal/log"
	"github.com/CZERTAINLY/harness/internal/loop"
)

// logService routes slog and the legacy log channel to a destination while
// it runs. Bridged legacy records carry the log attributes of the context
// given to Start.
type logService struct {
	loop.BaseService

	mx       sync.Mutex
	cfg      log.Config
	open     func() (io.Writer, error)
	owned    bool
	w        io.Writer
	observer *Observer
	restore  func()
}

// newLogService returns a service writing to the destination returned by
// open. An owned destination is closed on Stop.
func newLogService(cfg log.Config, owned bool, open func() (io.Writer, error)) *logService {
	return &logService{cfg: cfg, owned: owned, open: open}
}

func (s *logService) Start(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.Running() {
		return nil
	}
	w, err := s.open()
	if err != nil {
		return err
	}
	s.w = w
	s.restore = log.Swap(log.NewHandler(w, s.cfg))
	s.observer = NewObserver(legacylog.Default)
	if attrs := log.Attrs(ctx); len(attrs) > 0 {
		args := make([]any, 0, len(attrs))
		for _, a := range attrs {
			args = append(args, a)
		}
		s.observer.Logger = slog.Default().With(args...)
	}
	s.observer.Start()
	return s.BaseService.Start(ctx)
}

func (s *logService) Stop(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.Running() {
		return nil
	}
	s.observer.Stop()
	s.restore()
	var err error
	if s.owned {
		err = closeWriter(s.w)
	}
	s.observer, s.restore, s.w = nil, nil, nil
	if stopErr := s.BaseService.Stop(ctx); stopErr != nil {
		return stopErr
	}
	return err
}

func closeWriter(w io.Writer) error {
	c, ok := w.(io.Closer)
	if !ok {
		return nil
	}
	return c.Close()
}
