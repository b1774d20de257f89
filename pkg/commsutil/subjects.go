package commsutil

import "fmt"

// Default COMMS subjects.
const (
	SubjectCommand = "go2.cmd"
	SubjectCamera  = "go2.camera"
)

// BuildFrameSubject builds the per-request subject on which an on-demand
// camera frame is published, derived from the opaque request id.
func BuildFrameSubject(cameraSubject, requestID string) string {
	return fmt.Sprintf("%s.%s", cameraSubject, requestID)
}
