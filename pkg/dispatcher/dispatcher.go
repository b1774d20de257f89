// Package dispatcher routes incoming bridge commands to the registry, the
// velocity state, or the robot facade, and shapes the reply.
package dispatcher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/openquad/go2-bridge/pkg/actions"
	"github.com/openquad/go2-bridge/pkg/commsutil"
	"github.com/openquad/go2-bridge/pkg/device"
	"github.com/openquad/go2-bridge/pkg/motion"
	"github.com/openquad/go2-bridge/pkg/protocol"
	"github.com/openquad/go2-bridge/pkg/robot"
)

const logPrefix = "dispatcher:dispatch"

// Velocity bounds accepted from clients, in SI units, matching the vendor
// SDK limits (forward speed tops out above reverse). Anything outside is
// rejected before it can reach the state, let alone the actuator.
const (
	minVx   = -2.5
	maxVx   = 5.0
	maxVy   = 1.0
	maxVyaw = 4.0
)

// FrameSender publishes an on-demand frame to an arbitrary subject.
// *nats.Conn satisfies it; nil disables frame_subject publishing.
type FrameSender interface {
	Publish(subject string, data []byte) error
}

// Dispatcher is the single entry point for client commands.
type Dispatcher struct {
	registry *actions.Registry
	robot    *robot.Robot
	state    *motion.State
	cam      device.Camera

	sender        FrameSender
	cameraSubject string
}

// Params configures a Dispatcher.
type Params struct {
	Registry *actions.Registry
	Robot    *robot.Robot
	State    *motion.State
	Camera   device.Camera

	// FrameSender and CameraSubject enable publishing on-demand frames to
	// per-request subjects. Both optional.
	FrameSender   FrameSender
	CameraSubject string
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(p Params) *Dispatcher {
	subject := p.CameraSubject
	if subject == "" {
		subject = commsutil.SubjectCamera
	}
	return &Dispatcher{
		registry:      p.Registry,
		robot:         p.Robot,
		state:         p.State,
		cam:           p.Camera,
		sender:        p.FrameSender,
		cameraSubject: subject,
	}
}

// Dispatch routes one command and returns its reply. The request id, when
// present, is echoed back. An unrecognized or invalid command mutates nothing.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd *protocol.Command) *protocol.Reply {
	slog.Debug(fmt.Sprintf("%s - cmd=%s id=%s", logPrefix, cmd.Cmd, cmd.ID))

	var reply *protocol.Reply
	var err error

	switch cmd.Cmd {
	case "action":
		reply, err = d.handleAction(ctx, cmd.Params)
	case "move":
		reply, err = d.handleMove(cmd.Params)
	case "stop":
		reply = d.handleStop()
	case "obstacle_avoidance":
		reply, err = d.handleObstacleAvoidance(ctx, cmd.Params)
	case "speed_level":
		reply, err = d.handleSpeedLevel(cmd.Params)
	case "light":
		reply, err = d.handleLight(cmd.Params)
	case "status":
		reply = d.handleStatus()
	case "list_actions":
		reply = protocol.OkReply("actions", map[string]interface{}{"actions": d.registry.Names()})
	case "get_camera_frame":
		reply, err = d.handleCameraFrame(cmd)
	default:
		err = newError(CodeInvalidRequest, fmt.Sprintf("unknown command: %s", cmd.Cmd))
	}

	if err != nil {
		reply = errorReply(err)
	}
	reply.ID = cmd.ID
	return reply
}

func (d *Dispatcher) handleAction(ctx context.Context, params json.RawMessage) (*protocol.Reply, error) {
	var p protocol.ActionParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	desc, ok := d.registry.Lookup(p.Name)
	if !ok {
		return nil, newError(CodeUnknownAction, fmt.Sprintf("unknown action: %s", p.Name))
	}

	code, err := desc.Invoke(ctx)
	if err != nil {
		// Blocking faults (and a failed fire-and-forget send) surface
		// the device error verbatim.
		return nil, newError(CodeDeviceError, fmt.Sprintf("%s failed: %v", desc.Name, err))
	}
	msg := fmt.Sprintf("%s executed", desc.Name)
	if desc.Call == actions.FireAndForget {
		msg = fmt.Sprintf("%s dispatched", desc.Name)
	}
	return protocol.OkReply(msg, map[string]interface{}{"code": code}), nil
}

func (d *Dispatcher) handleMove(params json.RawMessage) (*protocol.Reply, error) {
	var p protocol.MoveParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	if err := validateVelocity(p.Vx, p.Vy, p.Vyaw); err != nil {
		return nil, err
	}
	// The safety loop owns the device call; move only refreshes state.
	d.state.Set(p.Vx, p.Vy, p.Vyaw)
	return protocol.OkReply("velocity updated", nil), nil
}

// handleStop zeroes the state and sends one immediate zero relay, so an
// explicit stop beats the passive watchdog by up to a full tick.
func (d *Dispatcher) handleStop() *protocol.Reply {
	d.state.ForceZero()
	if err := d.robot.Move(0, 0, 0); err != nil {
		slog.Warn(fmt.Sprintf("%s - Immediate stop relay failed: %v", logPrefix, err))
	}
	return protocol.OkReply("stopped", nil)
}

func (d *Dispatcher) handleObstacleAvoidance(ctx context.Context, params json.RawMessage) (*protocol.Reply, error) {
	var p protocol.ObstacleAvoidanceParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	if p.Enabled == nil {
		return nil, newError(CodeInvalidParam, "missing param: enabled")
	}
	if err := d.robot.SetObstacleAvoidance(ctx, *p.Enabled); err != nil {
		if errors.Is(err, robot.ErrSwitchTimeout) {
			return nil, newError(CodeFeatureSwitchTimeout, err.Error())
		}
		return nil, newError(CodeDeviceError, err.Error())
	}
	state := "disabled"
	if *p.Enabled {
		state = "enabled"
	}
	return protocol.OkReply(fmt.Sprintf("obstacle avoidance %s", state), nil), nil
}

func (d *Dispatcher) handleSpeedLevel(params json.RawMessage) (*protocol.Reply, error) {
	var p protocol.SpeedLevelParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	if p.Level < 1 || p.Level > 3 {
		return nil, newError(CodeInvalidParam, fmt.Sprintf("speed level %d out of range [1,3]", p.Level))
	}
	if err := d.robot.SetSpeedLevel(p.Level); err != nil {
		return nil, newError(CodeDeviceError, err.Error())
	}
	return protocol.OkReply(fmt.Sprintf("speed level set to %d", p.Level), nil), nil
}

func (d *Dispatcher) handleLight(params json.RawMessage) (*protocol.Reply, error) {
	var p protocol.LightParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	if p.On == nil {
		return nil, newError(CodeInvalidParam, "missing param: on")
	}
	code, err := d.robot.SetLight(*p.On)
	if err != nil {
		return nil, newError(CodeDeviceError, err.Error())
	}
	if code != device.CodeOK {
		// The vendor refused the call; the recorded state keeps its
		// prior value.
		return nil, newError(CodeDeviceError, fmt.Sprintf("SetBrightness returned code %d", code))
	}
	state := "off"
	if d.robot.Status().LightOn {
		state = "on"
	}
	return protocol.OkReply(fmt.Sprintf("light %s", state), map[string]interface{}{"code": code}), nil
}

func (d *Dispatcher) handleStatus() *protocol.Reply {
	features := d.robot.Status()
	v := d.state.Snapshot()
	return protocol.OkReply("ok", &protocol.StatusData{
		ObstacleAvoidance: features.ObstacleAvoidance,
		SpeedLevel:        features.SpeedLevel,
		LightOn:           features.LightOn,
		Vx:                v.Vx,
		Vy:                v.Vy,
		Vyaw:              v.Vyaw,
	})
}

// handleCameraFrame captures one frame synchronously, independent of the
// periodic publisher. The JPEG travels base64-encoded in the reply; brokered
// clients can additionally request a publish to a per-request subject.
func (d *Dispatcher) handleCameraFrame(cmd *protocol.Command) (*protocol.Reply, error) {
	var p protocol.FrameParams
	if len(cmd.Params) > 0 {
		if err := unmarshalParams(cmd.Params, &p); err != nil {
			return nil, err
		}
	}

	code, jpeg, err := d.cam.GetImageSample()
	if err != nil || code != device.CodeOK || len(jpeg) == 0 {
		return nil, newError(CodeFrameUnavailable, fmt.Sprintf("frame unavailable: code=%d err=%v", code, err))
	}

	data := map[string]interface{}{
		"frame_b64": base64.StdEncoding.EncodeToString(jpeg),
		"bytes":     len(jpeg),
	}

	subject := p.FrameSubject
	if subject == "" && cmd.ID != "" {
		subject = commsutil.BuildFrameSubject(d.cameraSubject, cmd.ID)
	}
	if d.sender != nil && subject != "" {
		if err := d.sender.Publish(subject, jpeg); err != nil {
			slog.Warn(fmt.Sprintf("%s - Frame publish to %s failed: %v", logPrefix, subject, err))
		} else {
			data["frame_subject"] = subject
		}
	}
	return protocol.OkReply(fmt.Sprintf("camera frame captured (%d bytes)", len(jpeg)), data), nil
}

// --- helpers ---

func unmarshalParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return newError(CodeInvalidRequest, "missing params")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return newError(CodeInvalidRequest, fmt.Sprintf("failed to parse params: %v", err))
	}
	return nil
}

func validateVelocity(vx, vy, vyaw float64) error {
	for _, v := range []float64{vx, vy, vyaw} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return newError(CodeInvalidParam, "velocity must be finite")
		}
	}
	if vx < minVx || vx > maxVx || math.Abs(vy) > maxVy || math.Abs(vyaw) > maxVyaw {
		return newError(CodeInvalidParam, fmt.Sprintf(
			"velocity out of range: vx in [%.1f,%.1f] |vy|<=%.1f |vyaw|<=%.1f", minVx, maxVx, maxVy, maxVyaw))
	}
	return nil
}

func errorReply(err error) *protocol.Reply {
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		r := protocol.ErrReply(cmdErr.Message)
		r.Data = map[string]interface{}{"code": cmdErr.Code}
		return r
	}
	return protocol.ErrReply(err.Error())
}
