package protocol

import (
	"encoding/json"
	"testing"
)

func TestCommand_Unmarshal(t *testing.T) {
	raw := `{
		"cmd": "move",
		"params": {"vx": 0.3, "vy": 0, "vyaw": -0.5},
		"id": "req-42"
	}`

	var cmd Command
	if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if cmd.Cmd != "move" {
		t.Errorf("expected cmd move, got %s", cmd.Cmd)
	}
	if cmd.ID != "req-42" {
		t.Errorf("expected id req-42, got %s", cmd.ID)
	}

	var mp MoveParams
	if err := json.Unmarshal(cmd.Params, &mp); err != nil {
		t.Fatalf("failed to unmarshal params: %v", err)
	}
	if mp.Vx != 0.3 || mp.Vy != 0 || mp.Vyaw != -0.5 {
		t.Errorf("unexpected move params: %+v", mp)
	}
}

func TestCommand_Unmarshal_NoParams(t *testing.T) {
	var cmd Command
	if err := json.Unmarshal([]byte(`{"cmd":"status"}`), &cmd); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if cmd.Cmd != "status" {
		t.Errorf("expected cmd status, got %s", cmd.Cmd)
	}
	if cmd.Params != nil {
		t.Errorf("expected nil params, got %s", cmd.Params)
	}
	if cmd.ID != "" {
		t.Errorf("expected empty id, got %s", cmd.ID)
	}
}

func TestReply_Marshal(t *testing.T) {
	reply := OkReply("ok", &StatusData{
		ObstacleAvoidance: true,
		SpeedLevel:        2,
		Vx:                0.3,
	})
	reply.ID = "req-42"

	data, err := json.Marshal(reply)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal reply: %v", err)
	}

	if decoded["ok"] != true {
		t.Errorf("expected ok=true, got %v", decoded["ok"])
	}
	if decoded["id"] != "req-42" {
		t.Errorf("expected id=req-42, got %v", decoded["id"])
	}
	inner, ok := decoded["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data object, got %T", decoded["data"])
	}
	if inner["speed_level"] != float64(2) {
		t.Errorf("expected speed_level=2, got %v", inner["speed_level"])
	}
}

func TestReply_Marshal_Error(t *testing.T) {
	reply := ErrReply("unknown action: moonwalk")

	data, err := json.Marshal(reply)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var decoded Reply
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if decoded.Ok {
		t.Error("expected ok=false")
	}
	if decoded.Msg != "unknown action: moonwalk" {
		t.Errorf("unexpected msg: %s", decoded.Msg)
	}
	if decoded.Data != nil {
		t.Errorf("expected no data, got %v", decoded.Data)
	}
}
