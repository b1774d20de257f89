// Package config provides bridge configuration loaded from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Device modes.
const (
	DeviceModeSim = "sim"
	DeviceModeSDK = "sdk"
)

// Config holds go2-bridge configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"NATS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"go2-bridge"`

	// Subjects
	CommandSubject string `envconfig:"NATS_CMD_SUBJECT" default:"go2.cmd"`
	CameraSubject  string `envconfig:"NATS_CAMERA_SUBJECT" default:"go2.camera"`

	// Movement safety loop
	MoveHz      int           `envconfig:"GO2_MOVE_HZ" default:"20"`
	MoveTimeout time.Duration `envconfig:"GO2_MOVE_TIMEOUT" default:"250ms"`

	// Camera publisher. CameraStream=false keeps capture running but drops
	// the frames instead of publishing them (headless runs).
	CameraFPS    int  `envconfig:"GO2_CAMERA_FPS" default:"10"`
	CameraStream bool `envconfig:"GO2_CAMERA_STREAM" default:"true"`

	// Initial obstacle-avoidance state
	ObstacleAvoidance bool `envconfig:"GO2_OBSTACLE_AVOIDANCE" default:"true"`

	// Feature-switch handshake bounds and post-enable settle delay
	SwitchPollAttempts int           `envconfig:"GO2_SWITCH_POLL_ATTEMPTS" default:"50"`
	SwitchPollInterval time.Duration `envconfig:"GO2_SWITCH_POLL_INTERVAL" default:"100ms"`
	SettleDelay        time.Duration `envconfig:"GO2_SETTLE_DELAY" default:"500ms"`

	// Device facade selection: "sim" runs the in-process simulator, "sdk"
	// expects a vendor SDK binding to be linked in.
	DeviceMode string `envconfig:"GO2_DEVICE_MODE" default:"sim"`

	// Per-request dispatch timeout
	RequestTimeout time.Duration `envconfig:"GO2_REQUEST_TIMEOUT" default:"25s"`

	// HTTP status endpoint
	HTTPPort int `envconfig:"GO2_HTTP_PORT" default:"8080"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the configuration for values the bridge cannot run with.
func (c *Config) Validate() error {
	if c.MoveHz <= 0 {
		return fmt.Errorf("%s - GO2_MOVE_HZ must be positive", logPrefix)
	}
	if c.MoveTimeout <= 0 {
		return fmt.Errorf("%s - GO2_MOVE_TIMEOUT must be positive", logPrefix)
	}
	if c.MoveTimeout < c.MovePeriod() {
		return fmt.Errorf("%s - GO2_MOVE_TIMEOUT must be at least one loop period (%s)", logPrefix, c.MovePeriod())
	}
	if c.CameraFPS <= 0 {
		return fmt.Errorf("%s - GO2_CAMERA_FPS must be positive", logPrefix)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - GO2_REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.DeviceMode != DeviceModeSim && c.DeviceMode != DeviceModeSDK {
		return fmt.Errorf("%s - GO2_DEVICE_MODE must be %q or %q", logPrefix, DeviceModeSim, DeviceModeSDK)
	}
	if c.CommandSubject == "" || c.CameraSubject == "" {
		return fmt.Errorf("%s - command and camera subjects must be non-empty", logPrefix)
	}
	return nil
}

// MovePeriod returns the movement loop tick period derived from MoveHz.
func (c *Config) MovePeriod() time.Duration {
	return time.Second / time.Duration(c.MoveHz)
}
