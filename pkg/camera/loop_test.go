package camera

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openquad/go2-bridge/pkg/device/sim"
)

func TestLoop_PublishesCapturedFrames(t *testing.T) {
	dev := sim.New()
	var published int64
	pub := NewCallbackPublisher(func(_ context.Context, jpeg []byte) error {
		if len(jpeg) == 0 {
			t.Error("published empty frame")
		}
		atomic.AddInt64(&published, 1)
		return nil
	})

	loop := NewLoop(dev, pub, 100)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()

	if atomic.LoadInt64(&published) == 0 {
		t.Error("expected at least one published frame")
	}
}

func TestLoop_HeadlessWithNoOpPublisher(t *testing.T) {
	dev := sim.New()

	loop := NewLoop(dev, &NoOpPublisher{}, 100)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}

func TestLoop_SkipsFailedCaptures(t *testing.T) {
	dev := sim.New()
	dev.CaptureFails = 1000 // fail for the whole test window

	var published int64
	pub := NewCallbackPublisher(func(context.Context, []byte) error {
		atomic.AddInt64(&published, 1)
		return nil
	})

	loop := NewLoop(dev, pub, 200)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	time.Sleep(60 * time.Millisecond)
	cancel()

	if got := atomic.LoadInt64(&published); got != 0 {
		t.Errorf("expected no published frames while captures fail, got %d", got)
	}
}

func TestLoop_AtMostOneFramePerTick(t *testing.T) {
	dev := sim.New()
	var published int64
	pub := NewCallbackPublisher(func(context.Context, []byte) error {
		atomic.AddInt64(&published, 1)
		return nil
	})

	const fps = 50
	loop := NewLoop(dev, pub, fps)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	window := 200 * time.Millisecond
	time.Sleep(window)
	cancel()

	// Ticks in the window plus slack; the publish count must never exceed it.
	maxTicks := int64(window/(time.Second/fps)) + 2
	if got := atomic.LoadInt64(&published); got > maxTicks {
		t.Errorf("published %d frames in %s, expected at most %d", got, window, maxTicks)
	}
}

func TestLoop_PublishErrorsAreNotFatal(t *testing.T) {
	dev := sim.New()
	var calls int64
	pub := NewCallbackPublisher(func(context.Context, []byte) error {
		atomic.AddInt64(&calls, 1)
		return errors.New("no subscribers")
	})

	loop := NewLoop(dev, pub, 200)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	time.Sleep(60 * time.Millisecond)
	cancel()

	if atomic.LoadInt64(&calls) < 2 {
		t.Error("loop should keep publishing after publish errors")
	}
}
