package watch

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/radovskyb/watcher"
)

// DefaultPollInterval is the tree scan period when none is configured.
const DefaultPollInterval = 2 * time.Second

// PollSource is a polling ChangeSource. File creations and writes map to
// change notifications; other operations are carried through with their
// source-specific action names. Events for directories are dropped.
type PollSource struct {
	w        *watcher.Watcher
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cb     func(path string)
	events []FSEvent

	stopOnce sync.Once
	quit     chan struct{}
	drained  chan struct{}
}

// NewPollSource creates a source scanning watched paths every interval.
// Call Run (typically in a goroutine) to start delivering events.
func NewPollSource(interval time.Duration, logger *slog.Logger) *PollSource {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &PollSource{
		w:        watcher.New(),
		interval: interval,
		logger:   logger,
		quit:     make(chan struct{}),
		drained:  make(chan struct{}),
	}
	go s.drain()
	return s
}

// Run starts the underlying poller and blocks until Stop.
func (s *PollSource) Run() error {
	err := s.w.Start(s.interval)
	if err != nil && !errors.Is(err, watcher.ErrWatcherRunning) {
		return err
	}
	return nil
}

// drain converts watcher events into FSEvents, queues them, and fires the
// callback.
func (s *PollSource) drain() {
	defer close(s.drained)
	for {
		select {
		case e := <-s.w.Event:
			if e.FileInfo != nil && e.IsDir() {
				// A directory event (such as a parent's mtime moving when a
				// child is created) names no file to mirror.
				continue
			}
			ev := FSEvent{
				Path:      e.Path,
				Action:    e.Op.String(),
				Timestamp: time.Now(),
				Mask:      int(e.Op),
			}
			s.mu.Lock()
			s.events = append(s.events, ev)
			cb := s.cb
			s.mu.Unlock()
			if cb != nil {
				cb(e.Path)
			}
		case err := <-s.w.Error:
			s.logger.Warn("watch error", "error", err)
		case <-s.w.Closed:
			return
		case <-s.quit:
			return
		}
	}
}

func (s *PollSource) SetCallback(fn func(path string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb = fn
}

func (s *PollSource) AddWatch(path string) error {
	return s.w.AddRecursive(path)
}

func (s *PollSource) RemoveWatch(path string) error {
	return s.w.RemoveRecursive(path)
}

func (s *PollSource) NextEvent() (FSEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return FSEvent{}, false
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, true
}

func (s *PollSource) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events) == 0
}

// Stop shuts the poller down and waits for the drain loop to exit.
func (s *PollSource) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		s.w.Close()
		<-s.drained
	})
}

var _ ChangeSource = (*PollSource)(nil)
