package server

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"
)

const httpLogPrefix = "server:http"

// statusPageTemplate is the HTML for the bridge status page.
const statusPageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Go2 Bridge</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    h1, h2 { color: #0066cc; }
    table { border-collapse: collapse; max-width: 600px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.4rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .on { color: #0066cc; font-weight: bold; }
    .off { color: #666; }
    .meta { color: #333; font-size: 0.9rem; }
    code { background: #f5f5f5; padding: 0.1rem 0.3rem; }
    section { margin-bottom: 2rem; }
  </style>
</head>
<body>
  <h1>Go2 Bridge</h1>
  <p class="meta">Uptime {{.Uptime}} — commands on <code>{{.CommandSubject}}</code>, frames on <code>{{.CameraSubject}}</code>.</p>

  <section>
    <h2>Features</h2>
    <table>
      <tr><th>Obstacle avoidance</th><td>{{if .Features.ObstacleAvoidance}}<span class="on">on</span>{{else}}<span class="off">off</span>{{end}}</td></tr>
      <tr><th>Speed level</th><td>{{.Features.SpeedLevel}}</td></tr>
      <tr><th>Light</th><td>{{if .Features.LightOn}}<span class="on">on</span>{{else}}<span class="off">off</span>{{end}}</td></tr>
    </table>
  </section>

  <section>
    <h2>Velocity</h2>
    <table>
      <tr><th>vx</th><th>vy</th><th>vyaw</th></tr>
      <tr><td>{{printf "%.2f" .Velocity.Vx}}</td><td>{{printf "%.2f" .Velocity.Vy}}</td><td>{{printf "%.2f" .Velocity.Vyaw}}</td></tr>
    </table>
  </section>

  <section>
    <h2>Actions</h2>
    <p>{{range .Actions}}<code>{{.}}</code> {{end}}</p>
  </section>
</body>
</html>
`

// featureStatus and velocityStatus mirror the domain snapshots with a
// snake_case wire shape for the /status endpoint.
type featureStatus struct {
	ObstacleAvoidance bool `json:"obstacle_avoidance"`
	SpeedLevel        int  `json:"speed_level"`
	LightOn           bool `json:"light_on"`
}

type velocityStatus struct {
	Vx   float64 `json:"vx"`
	Vy   float64 `json:"vy"`
	Vyaw float64 `json:"vyaw"`
}

// statusData is the data passed to the status page template and the /status
// JSON endpoint.
type statusData struct {
	Uptime         string         `json:"uptime"`
	CommandSubject string         `json:"command_subject"`
	CameraSubject  string         `json:"camera_subject"`
	Features       featureStatus  `json:"features"`
	Velocity       velocityStatus `json:"velocity"`
	Actions        []string       `json:"actions"`
}

func (s *Server) status() statusData {
	features := s.robot.Status()
	v := s.state.Snapshot()
	return statusData{
		Uptime:         time.Since(s.startedAt).Round(time.Second).String(),
		CommandSubject: s.cfg.CommandSubject,
		CameraSubject:  s.cfg.CameraSubject,
		Features: featureStatus{
			ObstacleAvoidance: features.ObstacleAvoidance,
			SpeedLevel:        features.SpeedLevel,
			LightOn:           features.LightOn,
		},
		Velocity: velocityStatus{Vx: v.Vx, Vy: v.Vy, Vyaw: v.Vyaw},
		Actions:  s.registry.Names(),
	}
}

// routes builds the HTTP mux for the status endpoints.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.status())
	})
	return mux
}

// handleHome returns an HTTP handler for the bridge status page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("status").Parse(statusPageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, s.status()); err != nil {
			slog.Error(fmt.Sprintf("%s - status template execute: %v", httpLogPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
