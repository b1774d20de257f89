package motion

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const logPrefix = "motion:loop"

// Relayer receives the velocity relay each tick. The call is fire-and-forget
// at the device boundary and must return well within the loop period.
type Relayer interface {
	Move(vx, vy, vyaw float64) error
}

// Loop relays the commanded velocity to the robot on a fixed period and
// forces it to zero once the watchdog timeout elapses without a refresh.
// Worst-case stop latency after the last client input is timeout + period.
type Loop struct {
	state   *State
	relayer Relayer
	period  time.Duration
	timeout time.Duration
}

// NewLoop creates a safety loop over the shared state.
func NewLoop(state *State, relayer Relayer, period, timeout time.Duration) *Loop {
	return &Loop{state: state, relayer: relayer, period: period, timeout: timeout}
}

// Run ticks until ctx is canceled. A failed relay is logged and skipped; the
// loop itself never stops on device errors, because a dead safety loop is
// worse than a dropped tick.
func (l *Loop) Run(ctx context.Context) {
	slog.Info(fmt.Sprintf("%s - Movement loop started, period=%s timeout=%s", logPrefix, l.period, l.timeout))
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	timedOut := false
	for {
		select {
		case <-ctx.Done():
			slog.Info(fmt.Sprintf("%s - Movement loop stopped", logPrefix))
			return
		case <-ticker.C:
			v := l.state.Snapshot()
			if time.Since(v.LastSetAt) > l.timeout {
				if !timedOut {
					slog.Debug(fmt.Sprintf("%s - Watchdog expired, zeroing velocity", logPrefix))
					timedOut = true
				}
				l.state.ForceZero()
				v = Velocity{}
			} else {
				timedOut = false
			}
			if err := l.relayer.Move(v.Vx, v.Vy, v.Vyaw); err != nil {
				slog.Warn(fmt.Sprintf("%s - Relay failed: %v", logPrefix, err))
			}
		}
	}
}
