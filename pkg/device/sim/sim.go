// Package sim provides an in-memory implementation of the vendor facade so
// the bridge can run and be tested without robot hardware.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openquad/go2-bridge/pkg/device"
)

// MoveCall records one velocity relay received by the simulated robot.
type MoveCall struct {
	Vx, Vy, Vyaw float64
	Avoid        bool
	At           time.Time
}

// Robot is a scriptable in-memory robot. The zero value is usable: every
// call succeeds, the switch confirms on the first poll, and capture returns
// the configured frame.
type Robot struct {
	mu sync.Mutex

	moves      []MoveCall
	executed   []string
	dispatched []string

	switchOn      bool
	switchPending int // SwitchGet polls remaining before a pending SwitchSet(true) reads back on
	remoteAPI     bool
	speedLevel    int
	brightness    int

	// Script knobs. Guarded by mu; set them before handing the Robot to
	// the bridge, or between test phases.
	SwitchConfirmAfter int              // polls before SwitchSet(true) becomes visible (0 = immediate)
	ExecuteErr         error            // returned by Execute/Dispatch for every method
	ExecuteCode        int              // vendor code returned by Execute
	Frame              []byte           // JPEG returned by GetImageSample
	CaptureCode        int              // vendor code returned by GetImageSample
	CaptureErr         error            // error returned by GetImageSample
	CaptureFails       int              // number of leading captures that fail before recovering
	MoveErr            error            // returned by Move/AvoidMove
	BrightnessCode     int              // vendor code returned by SetBrightness
	BrightnessErr      error            // error returned by SetBrightness
}

// New returns a Robot with a small placeholder JPEG frame.
func New() *Robot {
	return &Robot{Frame: []byte{0xff, 0xd8, 0xff, 0xd9}}
}

// Move implements device.Mover.
func (r *Robot) Move(vx, vy, vyaw float64) error {
	return r.recordMove(vx, vy, vyaw, false)
}

// AvoidMove implements device.Mover.
func (r *Robot) AvoidMove(vx, vy, vyaw float64) error {
	return r.recordMove(vx, vy, vyaw, true)
}

func (r *Robot) recordMove(vx, vy, vyaw float64, avoid bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.MoveErr != nil {
		return r.MoveErr
	}
	r.moves = append(r.moves, MoveCall{Vx: vx, Vy: vy, Vyaw: vyaw, Avoid: avoid, At: time.Now()})
	return nil
}

// Execute implements device.SportActions.
func (r *Robot) Execute(ctx context.Context, method string) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ExecuteErr != nil {
		return -1, r.ExecuteErr
	}
	r.executed = append(r.executed, method)
	return r.ExecuteCode, nil
}

// Dispatch implements device.SportActions.
func (r *Robot) Dispatch(method string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ExecuteErr != nil {
		return r.ExecuteErr
	}
	r.dispatched = append(r.dispatched, method)
	return nil
}

// SwitchSet implements device.FeatureSwitch. Turning the switch on becomes
// visible to SwitchGet only after SwitchConfirmAfter polls, mimicking the
// slow device-side confirmation of the real switch.
func (r *Robot) SwitchSet(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !on {
		r.switchOn = false
		r.switchPending = 0
		return nil
	}
	if !r.switchOn && r.switchPending == 0 {
		r.switchPending = r.SwitchConfirmAfter
		if r.switchPending == 0 {
			r.switchOn = true
		}
	}
	return nil
}

// SwitchGet implements device.FeatureSwitch.
func (r *Robot) SwitchGet() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.switchOn && r.switchPending > 0 {
		r.switchPending--
		if r.switchPending == 0 {
			r.switchOn = true
			return true, nil
		}
	}
	return r.switchOn, nil
}

// UseRemoteCommandFromAPI implements device.FeatureSwitch.
func (r *Robot) UseRemoteCommandFromAPI(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remoteAPI = on
	return nil
}

// SetSpeedLevel implements device.SpeedSetter.
func (r *Robot) SetSpeedLevel(level int) (int, error) {
	if level < 1 || level > 3 {
		return -1, fmt.Errorf("sim: speed level %d out of range", level)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speedLevel = level
	return device.CodeOK, nil
}

// GetImageSample implements device.Camera.
func (r *Robot) GetImageSample() (int, []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CaptureFails > 0 {
		r.CaptureFails--
		return -1, nil, nil
	}
	if r.CaptureErr != nil {
		return -1, nil, r.CaptureErr
	}
	if r.CaptureCode != device.CodeOK {
		return r.CaptureCode, nil, nil
	}
	return device.CodeOK, r.Frame, nil
}

// SetBrightness implements device.Light. A scripted error or non-zero code
// refuses the call without touching the recorded brightness.
func (r *Robot) SetBrightness(level int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.BrightnessErr != nil {
		return -1, r.BrightnessErr
	}
	if r.BrightnessCode != device.CodeOK {
		return r.BrightnessCode, nil
	}
	r.brightness = level
	return device.CodeOK, nil
}

// Moves returns a copy of all recorded velocity relays.
func (r *Robot) Moves() []MoveCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MoveCall, len(r.moves))
	copy(out, r.moves)
	return out
}

// LastMove returns the most recent relay and whether any exists.
func (r *Robot) LastMove() (MoveCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.moves) == 0 {
		return MoveCall{}, false
	}
	return r.moves[len(r.moves)-1], true
}

// Executed returns a copy of all blocking sport methods run so far.
func (r *Robot) Executed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.executed))
	copy(out, r.executed)
	return out
}

// Dispatched returns a copy of all fire-and-forget sport methods sent so far.
func (r *Robot) Dispatched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.dispatched))
	copy(out, r.dispatched)
	return out
}

// RemoteAPI reports whether remote-command mode is currently enabled.
func (r *Robot) RemoteAPI() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remoteAPI
}

// SwitchOn reports the confirmed obstacle-avoidance switch state.
func (r *Robot) SwitchOn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.switchOn
}

// SpeedLevel reports the last speed level pushed to the device.
func (r *Robot) SpeedLevel() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speedLevel
}

// Brightness reports the last brightness pushed to the device.
func (r *Robot) Brightness() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.brightness
}

var _ device.Controller = (*Robot)(nil)
