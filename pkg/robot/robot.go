// Package robot wraps the vendor facade with the bridge's invocation policy:
// feature state, the obstacle-avoidance switch handshake, velocity routing,
// and the device side of startup/shutdown.
package robot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openquad/go2-bridge/pkg/device"
)

const logPrefix = "robot:robot"

// ErrSwitchTimeout is returned when the obstacle-avoidance switch never
// confirms within the configured number of polls.
var ErrSwitchTimeout = errors.New("obstacle avoidance switch did not confirm")

// Features is a consistent snapshot of the device feature state.
type Features struct {
	ObstacleAvoidance bool
	SpeedLevel        int
	LightOn           bool
}

// Options bound the switch handshake and the post-enable settle delay.
type Options struct {
	SwitchPollAttempts int
	SwitchPollInterval time.Duration
	SettleDelay        time.Duration
}

// DefaultOptions returns the handshake bounds used against real hardware.
func DefaultOptions() Options {
	return Options{
		SwitchPollAttempts: 50,
		SwitchPollInterval: 100 * time.Millisecond,
		SettleDelay:        500 * time.Millisecond,
	}
}

// Robot owns FeatureState. All mutations go through its methods under one
// mutex; readers get snapshots.
type Robot struct {
	dev  device.Controller
	opts Options

	mu                sync.Mutex
	obstacleAvoidance bool
	speedLevel        int
	lightOn           bool
}

// New creates a Robot over the vendor facade. Zero option fields fall back
// to defaults.
func New(dev device.Controller, opts Options) *Robot {
	def := DefaultOptions()
	if opts.SwitchPollAttempts <= 0 {
		opts.SwitchPollAttempts = def.SwitchPollAttempts
	}
	if opts.SwitchPollInterval <= 0 {
		opts.SwitchPollInterval = def.SwitchPollInterval
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = def.SettleDelay
	}
	return &Robot{dev: dev, opts: opts, speedLevel: 1}
}

// Init performs the startup handshake: optionally confirm the
// obstacle-avoidance switch, enable remote-command mode, then wait out the
// settle delay before the device honors motion commands. The bridge must not
// accept traffic before Init returns.
func (r *Robot) Init(ctx context.Context, obstacleAvoidance bool) error {
	if obstacleAvoidance {
		if err := r.confirmSwitch(ctx); err != nil {
			return fmt.Errorf("%s - startup switch handshake: %w", logPrefix, err)
		}
		r.mu.Lock()
		r.obstacleAvoidance = true
		r.mu.Unlock()
	}

	if err := r.dev.UseRemoteCommandFromAPI(true); err != nil {
		return fmt.Errorf("%s - enable remote command mode: %w", logPrefix, err)
	}
	if err := r.settle(ctx); err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("%s - Device ready, obstacle_avoidance=%v", logPrefix, obstacleAvoidance))
	return nil
}

// Move relays one velocity through the path matching the current
// obstacle-avoidance state. Fire-and-forget at the device boundary.
func (r *Robot) Move(vx, vy, vyaw float64) error {
	r.mu.Lock()
	avoid := r.obstacleAvoidance
	r.mu.Unlock()
	if avoid {
		return r.dev.AvoidMove(vx, vy, vyaw)
	}
	return r.dev.Move(vx, vy, vyaw)
}

// SetObstacleAvoidance toggles the device-side switch. Enabling runs the
// bounded set/poll handshake; on timeout the feature state keeps its prior
// value. Disabling is a plain write and cannot fail the state transition.
func (r *Robot) SetObstacleAvoidance(ctx context.Context, enabled bool) error {
	r.mu.Lock()
	current := r.obstacleAvoidance
	r.mu.Unlock()
	if current == enabled {
		return nil
	}

	if enabled {
		if err := r.confirmSwitch(ctx); err != nil {
			return err
		}
		if err := r.dev.UseRemoteCommandFromAPI(true); err != nil {
			return err
		}
		if err := r.settle(ctx); err != nil {
			return err
		}
	} else {
		if err := r.dev.UseRemoteCommandFromAPI(false); err != nil {
			slog.Warn(fmt.Sprintf("%s - Disable remote command mode: %v", logPrefix, err))
		}
		if err := r.dev.SwitchSet(false); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.obstacleAvoidance = enabled
	r.mu.Unlock()
	slog.Info(fmt.Sprintf("%s - Obstacle avoidance set to %v", logPrefix, enabled))
	return nil
}

// confirmSwitch re-sends SwitchSet(true) and polls SwitchGet until the device
// reads back on, bounded by the configured attempt count. Explicit loop so
// the bound is testable and cancellation-safe.
func (r *Robot) confirmSwitch(ctx context.Context) error {
	for attempt := 0; attempt < r.opts.SwitchPollAttempts; attempt++ {
		on, err := r.dev.SwitchGet()
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - SwitchGet: %v", logPrefix, err))
		} else if on {
			return nil
		}
		if err := r.dev.SwitchSet(true); err != nil {
			slog.Warn(fmt.Sprintf("%s - SwitchSet: %v", logPrefix, err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.opts.SwitchPollInterval):
		}
	}
	return ErrSwitchTimeout
}

func (r *Robot) settle(ctx context.Context) error {
	if r.opts.SettleDelay == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.opts.SettleDelay):
		return nil
	}
}

// SetSpeedLevel pushes a validated sport speed level to the device and
// records it.
func (r *Robot) SetSpeedLevel(level int) error {
	if level < 1 || level > 3 {
		return fmt.Errorf("%s - speed level %d out of range [1,3]", logPrefix, level)
	}
	code, err := r.dev.SetSpeedLevel(level)
	if err != nil {
		return err
	}
	if code != device.CodeOK {
		return fmt.Errorf("%s - SetSpeedLevel returned code %d", logPrefix, code)
	}
	r.mu.Lock()
	r.speedLevel = level
	r.mu.Unlock()
	return nil
}

// SetLight drives the head light to max brightness or off. The recorded
// state flips only on a confirmed vendor code.
func (r *Robot) SetLight(on bool) (int, error) {
	level := 0
	if on {
		level = 10
	}
	code, err := r.dev.SetBrightness(level)
	if err != nil {
		return code, err
	}
	if code == device.CodeOK {
		r.mu.Lock()
		r.lightOn = on
		r.mu.Unlock()
	}
	return code, nil
}

// Status returns a snapshot of the feature state.
func (r *Robot) Status() Features {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Features{
		ObstacleAvoidance: r.obstacleAvoidance,
		SpeedLevel:        r.speedLevel,
		LightOn:           r.lightOn,
	}
}

// Shutdown runs the device side of the shutdown sequence: one synchronous
// zero-velocity send, then remote-command mode off. Every step is attempted
// even if an earlier one fails.
func (r *Robot) Shutdown() {
	if err := r.Move(0, 0, 0); err != nil {
		slog.Warn(fmt.Sprintf("%s - Final zero-velocity send failed: %v", logPrefix, err))
	}
	if err := r.dev.UseRemoteCommandFromAPI(false); err != nil {
		slog.Warn(fmt.Sprintf("%s - Disable remote command mode failed: %v", logPrefix, err))
	}
	slog.Info(fmt.Sprintf("%s - Device shutdown sequence complete", logPrefix))
}
