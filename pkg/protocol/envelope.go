// Package protocol defines the JSON request/reply envelope spoken on the
// bridge command subject.
package protocol

import "encoding/json"

// Command is the JSON envelope for an incoming bridge request.
//
// ID is opaque: brokered clients use it to correlate replies and to derive
// per-request camera subjects. The bridge echoes it back untouched.
type Command struct {
	Cmd    string          `json:"cmd"`
	Params json.RawMessage `json:"params,omitempty"`
	ID     string          `json:"id,omitempty"`
}

// Reply is the JSON envelope for a bridge response.
type Reply struct {
	Ok   bool        `json:"ok"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
	ID   string      `json:"id,omitempty"`
}

// MoveParams are the parameters of a "move" command, in SI units
// (m/s for vx/vy, rad/s for vyaw).
type MoveParams struct {
	Vx   float64 `json:"vx"`
	Vy   float64 `json:"vy"`
	Vyaw float64 `json:"vyaw"`
}

// ActionParams are the parameters of an "action" command.
type ActionParams struct {
	Name string `json:"name"`
}

// ObstacleAvoidanceParams are the parameters of an "obstacle_avoidance" command.
type ObstacleAvoidanceParams struct {
	Enabled *bool `json:"enabled"`
}

// SpeedLevelParams are the parameters of a "speed_level" command.
type SpeedLevelParams struct {
	Level int `json:"level"`
}

// LightParams are the parameters of a "light" command.
type LightParams struct {
	On *bool `json:"on"`
}

// FrameParams are the parameters of a "get_camera_frame" command.
// FrameSubject, when set, asks the bridge to also publish the captured
// JPEG to that subject.
type FrameParams struct {
	FrameSubject string `json:"frame_subject,omitempty"`
}

// StatusData is the payload of a successful "status" reply.
type StatusData struct {
	ObstacleAvoidance bool    `json:"obstacle_avoidance"`
	SpeedLevel        int     `json:"speed_level"`
	LightOn           bool    `json:"light_on"`
	Vx                float64 `json:"vx"`
	Vy                float64 `json:"vy"`
	Vyaw              float64 `json:"vyaw"`
}

// OkReply builds a successful reply.
func OkReply(msg string, data interface{}) *Reply {
	return &Reply{Ok: true, Msg: msg, Data: data}
}

// ErrReply builds a failed reply.
func ErrReply(msg string) *Reply {
	return &Reply{Ok: false, Msg: msg}
}
