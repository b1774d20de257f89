// Package camera captures device frames on a fixed rate and publishes them to
// subscribers.
package camera

import "context"

// FramePublisher is the interface for pushing captured JPEG frames out.
type FramePublisher interface {
	PublishFrame(ctx context.Context, jpeg []byte) error
}

// NoOpPublisher is a FramePublisher that drops every frame (headless runs).
type NoOpPublisher struct{}

// PublishFrame is a no-op.
func (p *NoOpPublisher) PublishFrame(context.Context, []byte) error { return nil }

// CallbackPublisher is a FramePublisher that calls a callback (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, jpeg []byte) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, jpeg []byte) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishFrame calls the callback.
func (p *CallbackPublisher) PublishFrame(ctx context.Context, jpeg []byte) error {
	return p.callback(ctx, jpeg)
}
