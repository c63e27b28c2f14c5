package embeddings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend records call order and can block until released.
type fakeBackend struct {
	mu       sync.Mutex
	calls    []string
	active   int
	maxSeen  int
	gate     chan struct{}
	err      error
	closed   int
	closeErr error
}

func (f *fakeBackend) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	f.calls = append(f.calls, text)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	f.active--
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (f *fakeBackend) Dimension() int { return 2 }

func (f *fakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.closeErr
}

func TestSerial_Embed(t *testing.T) {
	s := NewSerial(&fakeBackend{}, WithModelName("fake"))

	vec, err := s.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 1}, vec)
	assert.Equal(t, 2, s.Dimension())
}

func TestSerial_EmptyInput(t *testing.T) {
	s := NewSerial(&fakeBackend{})
	_, err := s.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestSerial_WrapsBackendError(t *testing.T) {
	s := NewSerial(&fakeBackend{err: errors.New("onnx exploded")})

	_, err := s.Embed(context.Background(), "x")
	require.ErrorIs(t, err, ErrBackend)
	assert.Contains(t, err.Error(), "onnx exploded")
}

func TestSerial_FIFOAdmission(t *testing.T) {
	fb := &fakeBackend{gate: make(chan struct{})}
	s := NewSerial(fb)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = s.Embed(ctx, "first")
	}()
	waitFor(t, func() bool {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		return len(fb.calls) == 1
	})

	// Queue the rest one at a time so arrival order is known.
	order := []string{"second", "third", "fourth"}
	for i, text := range order {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			_, _ = s.Embed(ctx, text)
		}(text)
		want := i + 1
		waitFor(t, func() bool { return s.waiting() == want })
	}

	for range len(order) + 1 {
		fb.gate <- struct{}{}
	}
	wg.Wait()

	assert.Equal(t, []string{"first", "second", "third", "fourth"}, fb.calls)
	assert.Equal(t, 1, fb.maxSeen, "backend must never run concurrently")
}

func TestSerial_CancelWhileQueued(t *testing.T) {
	fb := &fakeBackend{gate: make(chan struct{})}
	s := NewSerial(fb)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Embed(context.Background(), "holder")
	}()
	waitFor(t, func() bool {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		return len(fb.calls) == 1
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := s.Embed(ctx, "cancelled")
		errc <- err
	}()
	waitFor(t, func() bool { return s.waiting() == 1 })
	cancel()

	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.Zero(t, s.waiting())

	fb.gate <- struct{}{}
	<-done

	fb.mu.Lock()
	fb.gate = nil
	fb.mu.Unlock()

	_, err := s.Embed(context.Background(), "after")
	require.NoError(t, err)
	assert.Equal(t, []string{"holder", "after"}, fb.calls)
}

func TestSerial_CloseIdempotent(t *testing.T) {
	fb := &fakeBackend{}
	s := NewSerial(fb)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, fb.closed)

	_, err := s.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestSerial_CloseError(t *testing.T) {
	s := NewSerial(&fakeBackend{closeErr: errors.New("busy")})
	err := s.Close()
	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, err, s.Close())
}

func TestSerial_CloseWaitsForInFlightCall(t *testing.T) {
	fb := &fakeBackend{gate: make(chan struct{})}
	s := NewSerial(fb)

	embedded := make(chan error, 1)
	go func() {
		_, err := s.Embed(context.Background(), "in flight")
		embedded <- err
	}()
	waitFor(t, func() bool {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		return len(fb.calls) == 1
	})

	closed := make(chan struct{})
	go func() {
		_ = s.Close()
		close(closed)
	}()
	waitFor(t, func() bool { return s.waiting() == 1 })

	fb.mu.Lock()
	assert.Zero(t, fb.closed)
	fb.mu.Unlock()

	fb.gate <- struct{}{}
	require.NoError(t, <-embedded)
	<-closed
	assert.Equal(t, 1, fb.closed)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
}
