// Package capture implements the shared live frame source: a registry of
// capacity-1 listener channels fed by a single capture backend, starting
// on first subscriber and stopping on last disconnect.
package capture

import (
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
)

// Frame is an immutable, shared RGBA capture frame. Multiple listeners
// observe the same backing buffer; callers must not mutate it.
type Frame struct {
	Width  int
	Height int
	RGBA   []byte
}

// Backend produces frames until Stop is called. Start is invoked when the
// first listener subscribes; Stop when the last one disconnects.
type Backend interface {
	Start(emit func(Frame)) error
	Stop()
}

// Listener is a capacity-1 channel receiving frames from a Source. Close
// unsubscribes it; if it was the last listener, the backend is stopped.
type Listener struct {
	ch     chan Frame
	source *Source
	once   sync.Once
}

// Frames returns the channel to receive frames on.
func (l *Listener) Frames() <-chan Frame { return l.ch }

// Close unsubscribes the listener.
func (l *Listener) Close() {
	l.once.Do(func() {
		l.source.removeListener(l)
	})
}

// Source fans a single capture backend out to any number of listeners.
// The listener list is the only mutable state guarded by a mutex; it is
// mutated from async-task goroutines (Subscribe/Close) while frames
// arrive from the backend's own goroutine.
type Source struct {
	mu        sync.Mutex
	listeners map[*Listener]struct{}
	backend   Backend
	running   bool

	drops int
	log   *slog.Logger
}

// New builds a Source around the given capture backend.
func New(backend Backend, log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	return &Source{
		listeners: make(map[*Listener]struct{}),
		backend:   backend,
		log:       log.With("component", "capture"),
	}
}

// Subscribe registers a new listener, starting the backend if this is the
// first one.
func (s *Source) Subscribe() (*Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := &Listener{ch: make(chan Frame, 1), source: s}
	s.listeners[l] = struct{}{}

	if !s.running {
		if err := s.backend.Start(s.emit); err != nil {
			delete(s.listeners, l)
			return nil, err
		}
		s.running = true
	}
	return l, nil
}

func (s *Source) removeListener(l *Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, l)
	if len(s.listeners) == 0 && s.running {
		s.backend.Stop()
		s.running = false
	}
}

// emit fans a captured frame out to every listener via a non-blocking
// try-send on each capacity-1 channel; a full channel drops the frame and
// increments a counter logged every 60 drops.
func (s *Source) emit(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for l := range s.listeners {
		select {
		case l.ch <- f:
		default:
			s.drops++
			if s.drops%60 == 0 {
				s.log.Warn("dropping capture frames",
					"drops", s.drops,
					"frame_bytes", humanize.Bytes(uint64(len(f.RGBA))),
				)
			}
		}
	}
}
