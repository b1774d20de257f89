package camera

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/openquad/go2-bridge/pkg/commsutil"
)

const commsPublisherLogPrefix = "camera:comms_publisher"

// CommsPublisher publishes raw JPEG frames to a COMMS subject. Delivery is
// best-effort: there is no retention, a slow subscriber simply misses frames.
type CommsPublisher struct {
	nc      *comms.Conn
	subject string
}

// NewCommsPublisher creates a CommsPublisher. An empty subject falls back to
// the default camera subject.
func NewCommsPublisher(nc *comms.Conn, subject string) *CommsPublisher {
	if subject == "" {
		subject = commsutil.SubjectCamera
	}
	return &CommsPublisher{nc: nc, subject: subject}
}

// Subject returns the subject frames are published on.
func (p *CommsPublisher) Subject() string { return p.subject }

// PublishFrame publishes one JPEG frame.
func (p *CommsPublisher) PublishFrame(_ context.Context, jpeg []byte) error {
	if err := p.nc.Publish(p.subject, jpeg); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.subject, err))
		return err
	}
	return nil
}
