package capture

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	started int32
	stopped int32
	emit    func(Frame)
}

func (f *fakeBackend) Start(emit func(Frame)) error {
	atomic.AddInt32(&f.started, 1)
	f.emit = emit
	return nil
}

func (f *fakeBackend) Stop() {
	atomic.AddInt32(&f.stopped, 1)
}

func TestSourceStartsOnFirstSubscriber(t *testing.T) {
	b := &fakeBackend{}
	s := New(b, nil)
	require.Zero(t, atomic.LoadInt32(&b.started))

	l, err := s.Subscribe()
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&b.started))

	l.Close()
	require.Equal(t, int32(1), atomic.LoadInt32(&b.stopped))
}

func TestSourceStopsOnlyAfterLastListener(t *testing.T) {
	b := &fakeBackend{}
	s := New(b, nil)

	l1, _ := s.Subscribe()
	l2, _ := s.Subscribe()
	require.Equal(t, int32(1), atomic.LoadInt32(&b.started))

	l1.Close()
	require.Zero(t, atomic.LoadInt32(&b.stopped))

	l2.Close()
	require.Equal(t, int32(1), atomic.LoadInt32(&b.stopped))
}

func TestSourceBackpressureDropsOnFullListener(t *testing.T) {
	b := &fakeBackend{}
	s := New(b, nil)
	l, _ := s.Subscribe()
	defer l.Close()

	// listener channel has capacity 1; never drained, so every subsequent
	// emit beyond the first must drop.
	const n = 5
	for i := 0; i < n; i++ {
		b.emit(Frame{Width: 1, Height: 1, RGBA: []byte{0, 0, 0, 0}})
	}

	delivered := 0
	select {
	case <-l.Frames():
		delivered++
	default:
	}
	require.Equal(t, 1, delivered)
	require.Equal(t, n-1, s.drops)
}

func TestSourceCloseIsIdempotent(t *testing.T) {
	b := &fakeBackend{}
	s := New(b, nil)
	l, _ := s.Subscribe()
	l.Close()
	require.NotPanics(t, func() { l.Close() })
	_ = time.Millisecond
}
