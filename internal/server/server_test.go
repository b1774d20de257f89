package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openquad/go2-bridge/internal/config"
	"github.com/openquad/go2-bridge/pkg/actions"
	"github.com/openquad/go2-bridge/pkg/device/sim"
	"github.com/openquad/go2-bridge/pkg/dispatcher"
	"github.com/openquad/go2-bridge/pkg/motion"
	"github.com/openquad/go2-bridge/pkg/protocol"
	"github.com/openquad/go2-bridge/pkg/robot"
)

const serverTestPrefix = "server:server_test"

// testServer wires a Server over the simulated device, without COMMS.
func testServer(t *testing.T) (*Server, *sim.Robot) {
	t.Helper()
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("%s - LoadConfig failed: %v", serverTestPrefix, err)
	}

	dev := sim.New()
	rob := robot.New(dev, robot.Options{
		SwitchPollAttempts: 3,
		SwitchPollInterval: time.Millisecond,
		SettleDelay:        time.Millisecond,
	})
	state := motion.NewState()
	reg := actions.NewRegistry(dev)
	disp := dispatcher.NewDispatcher(dispatcher.Params{
		Registry: reg,
		Robot:    rob,
		State:    state,
		Camera:   dev,
	})
	return &Server{
		cfg:        cfg,
		robot:      rob,
		state:      state,
		registry:   reg,
		dispatcher: disp,
		startedAt:  time.Now(),
	}, dev
}

func TestHandleRaw_MalformedRequest(t *testing.T) {
	s, _ := testServer(t)

	data := s.handleRaw(context.Background(), []byte(`{broken`))
	if data == nil {
		t.Fatalf("%s - expected a reply", serverTestPrefix)
	}

	var reply protocol.Reply
	if err := json.Unmarshal(data, &reply); err != nil {
		t.Fatalf("%s - reply not valid JSON: %v", serverTestPrefix, err)
	}
	if reply.Ok {
		t.Errorf("%s - expected ok=false", serverTestPrefix)
	}
	inner, _ := reply.Data.(map[string]interface{})
	if inner["code"] != dispatcher.CodeInvalidRequest {
		t.Errorf("%s - code = %v, want %s", serverTestPrefix, inner["code"], dispatcher.CodeInvalidRequest)
	}
}

func TestHandleRaw_RoundTrip(t *testing.T) {
	s, _ := testServer(t)

	data := s.handleRaw(context.Background(), []byte(`{"cmd":"move","params":{"vx":0.3},"id":"r1"}`))
	var reply protocol.Reply
	if err := json.Unmarshal(data, &reply); err != nil {
		t.Fatalf("%s - reply not valid JSON: %v", serverTestPrefix, err)
	}
	if !reply.Ok {
		t.Fatalf("%s - move failed: %s", serverTestPrefix, reply.Msg)
	}
	if reply.ID != "r1" {
		t.Errorf("%s - id = %q, want r1", serverTestPrefix, reply.ID)
	}
	if v := s.state.Snapshot(); v.Vx != 0.3 {
		t.Errorf("%s - state vx = %v, want 0.3", serverTestPrefix, v.Vx)
	}
}

func TestHTTP_Health(t *testing.T) {
	s, _ := testServer(t)
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("%s - GET /health failed: %v", serverTestPrefix, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("%s - status = %d, want 200", serverTestPrefix, resp.StatusCode)
	}
}

func TestHTTP_StatusJSON(t *testing.T) {
	s, _ := testServer(t)
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("%s - GET /status failed: %v", serverTestPrefix, err)
	}
	defer resp.Body.Close()

	var got statusData
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("%s - decode failed: %v", serverTestPrefix, err)
	}
	if got.Features.SpeedLevel != 1 {
		t.Errorf("%s - speed level = %d, want 1", serverTestPrefix, got.Features.SpeedLevel)
	}
	if len(got.Actions) != 17 {
		t.Errorf("%s - actions = %d, want 17", serverTestPrefix, len(got.Actions))
	}
	if got.CommandSubject != "go2.cmd" {
		t.Errorf("%s - command subject = %q", serverTestPrefix, got.CommandSubject)
	}
}

func TestHTTP_StatusJSONWireShape(t *testing.T) {
	s, _ := testServer(t)
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("%s - GET /status failed: %v", serverTestPrefix, err)
	}
	defer resp.Body.Close()

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("%s - decode failed: %v", serverTestPrefix, err)
	}

	var features map[string]json.RawMessage
	if err := json.Unmarshal(raw["features"], &features); err != nil {
		t.Fatalf("%s - decode features failed: %v", serverTestPrefix, err)
	}
	for _, key := range []string{"obstacle_avoidance", "speed_level", "light_on"} {
		if _, ok := features[key]; !ok {
			t.Errorf("%s - features missing key %q", serverTestPrefix, key)
		}
	}

	var velocity map[string]json.RawMessage
	if err := json.Unmarshal(raw["velocity"], &velocity); err != nil {
		t.Fatalf("%s - decode velocity failed: %v", serverTestPrefix, err)
	}
	for _, key := range []string{"vx", "vy", "vyaw"} {
		if _, ok := velocity[key]; !ok {
			t.Errorf("%s - velocity missing key %q", serverTestPrefix, key)
		}
	}
}

func TestHTTP_HomePage(t *testing.T) {
	s, _ := testServer(t)
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("%s - GET / failed: %v", serverTestPrefix, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("%s - read body failed: %v", serverTestPrefix, err)
	}
	body := string(raw)
	if !strings.Contains(body, "Go2 Bridge") {
		t.Errorf("%s - status page missing title", serverTestPrefix)
	}
	if !strings.Contains(body, "stand_up") {
		t.Errorf("%s - status page missing actions", serverTestPrefix)
	}
}

func TestHTTP_UnknownPath(t *testing.T) {
	s, _ := testServer(t)
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatalf("%s - GET /nope failed: %v", serverTestPrefix, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("%s - status = %d, want 404", serverTestPrefix, resp.StatusCode)
	}
}
