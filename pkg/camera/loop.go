package camera

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openquad/go2-bridge/pkg/device"
)

const logPrefix = "camera:loop"

// Loop captures one frame per tick and hands it to the publisher. A failed or
// absent capture is degraded service, not an error: the tick is skipped
// silently and the loop keeps running. At most one frame leaves per tick;
// nothing is queued.
type Loop struct {
	cam      device.Camera
	pub      FramePublisher
	interval time.Duration
}

// NewLoop creates a capture loop publishing at the given rate.
func NewLoop(cam device.Camera, pub FramePublisher, fps int) *Loop {
	if fps <= 0 {
		fps = 10
	}
	return &Loop{cam: cam, pub: pub, interval: time.Second / time.Duration(fps)}
}

// Run ticks until ctx is canceled.
func (l *Loop) Run(ctx context.Context) {
	slog.Info(fmt.Sprintf("%s - Camera loop started, interval=%s", logPrefix, l.interval))
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info(fmt.Sprintf("%s - Camera loop stopped", logPrefix))
			return
		case <-ticker.C:
			code, jpeg, err := l.cam.GetImageSample()
			if err != nil || code != device.CodeOK || len(jpeg) == 0 {
				slog.Debug(fmt.Sprintf("%s - Capture skipped: code=%d err=%v", logPrefix, code, err))
				continue
			}
			if err := l.pub.PublishFrame(ctx, jpeg); err != nil {
				slog.Warn(fmt.Sprintf("%s - Publish failed: %v", logPrefix, err))
			}
		}
	}
}
