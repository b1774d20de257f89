// Package device defines the boundary to the vendor control SDK.
//
// The bridge never talks to robot hardware directly; it calls these
// interfaces. They are split per concern so components depend only on the
// calls they actually make, and so tests can swap in small fakes. The sim
// subpackage implements the full Controller in memory; a real SDK binding
// plugs in behind the same interfaces.
package device

import "context"

// CodeOK is the vendor result code for a successful call.
const CodeOK = 0

// Mover issues velocity relays. Both calls are fire-and-forget at the SDK
// boundary: they must return promptly and never report device-side completion.
type Mover interface {
	// Move relays a velocity via the direct sport path.
	Move(vx, vy, vyaw float64) error
	// AvoidMove relays a velocity via the obstacle-avoidance path.
	AvoidMove(vx, vy, vyaw float64) error
}

// SportActions invokes a named sport operation (stand, sit, flips, dances).
// Blocking semantics: the call waits for device acknowledgement and returns
// the vendor result code.
type SportActions interface {
	Execute(ctx context.Context, method string) (code int, err error)
	// Dispatch fires a sport operation without waiting for acknowledgement.
	Dispatch(method string) error
}

// FeatureSwitch controls device-side toggles that require an explicit
// set/confirm handshake rather than a single write.
type FeatureSwitch interface {
	SwitchSet(on bool) error
	SwitchGet() (on bool, err error)
	// UseRemoteCommandFromAPI gates whether the device honors motion
	// commands issued through the SDK at all.
	UseRemoteCommandFromAPI(on bool) error
}

// SpeedSetter pushes the sport speed level (1..3) to the device.
type SpeedSetter interface {
	SetSpeedLevel(level int) (code int, err error)
}

// Camera captures a single JPEG frame.
type Camera interface {
	GetImageSample() (code int, jpeg []byte, err error)
}

// Light controls head-light brightness (0 = off, 10 = max).
type Light interface {
	SetBrightness(level int) (code int, err error)
}

// Controller is the composite vendor facade the bridge is constructed with.
type Controller interface {
	Mover
	SportActions
	FeatureSwitch
	SpeedSetter
	Camera
	Light
}
