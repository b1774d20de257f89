// Package server orchestrates the bridge: device facade, safety loop, camera
// publisher, command subscription, HTTP status page, and coordinated shutdown.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/openquad/go2-bridge/internal/config"
	"github.com/openquad/go2-bridge/pkg/actions"
	"github.com/openquad/go2-bridge/pkg/camera"
	"github.com/openquad/go2-bridge/pkg/commsutil"
	"github.com/openquad/go2-bridge/pkg/device"
	"github.com/openquad/go2-bridge/pkg/device/sim"
	"github.com/openquad/go2-bridge/pkg/dispatcher"
	"github.com/openquad/go2-bridge/pkg/motion"
	"github.com/openquad/go2-bridge/pkg/protocol"
	"github.com/openquad/go2-bridge/pkg/robot"
)

const logPrefix = "server:server"

// initTimeout bounds the startup handshake (switch polls plus settle delay).
const initTimeout = 30 * time.Second

// shutdownGrace bounds how long shutdown waits for the loops to drain.
const shutdownGrace = 2 * time.Second

// Server is the go2-bridge orchestrator.
type Server struct {
	cfg        *config.Config
	robot      *robot.Robot
	state      *motion.State
	registry   *actions.Registry
	dispatcher *dispatcher.Dispatcher
	startedAt  time.Time
}

// Run starts the bridge, blocks until a shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s - invalid config: %w", logPrefix, err)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info(fmt.Sprintf("%s - Starting go2-bridge", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 1: Device facade
	dev, err := buildDevice(cfg)
	if err != nil {
		return err
	}

	// Step 2: Device handshake. No traffic is accepted before this settles.
	rob := robot.New(dev, robot.Options{
		SwitchPollAttempts: cfg.SwitchPollAttempts,
		SwitchPollInterval: cfg.SwitchPollInterval,
		SettleDelay:        cfg.SettleDelay,
	})
	initCtx, initCancel := context.WithTimeout(ctx, initTimeout)
	err = rob.Init(initCtx, cfg.ObstacleAvoidance)
	initCancel()
	if err != nil {
		return fmt.Errorf("%s - device init failed: %w", logPrefix, err)
	}

	// Step 3: Connect to COMMS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}

	// Step 4: Shared state, registry, dispatcher
	state := motion.NewState()
	reg := actions.NewRegistry(dev)
	disp := dispatcher.NewDispatcher(dispatcher.Params{
		Registry:      reg,
		Robot:         rob,
		State:         state,
		Camera:        dev,
		FrameSender:   nc,
		CameraSubject: cfg.CameraSubject,
	})
	s := &Server{
		cfg:        cfg,
		robot:      rob,
		state:      state,
		registry:   reg,
		dispatcher: disp,
		startedAt:  time.Now(),
	}

	// Step 5: Periodic loops, each on its own goroutine so the watchdog
	// fires even while a command is mid-dispatch.
	loopCtx, loopCancel := context.WithCancel(ctx)
	var loops sync.WaitGroup
	loops.Add(2)
	go func() {
		defer loops.Done()
		motion.NewLoop(state, rob, cfg.MovePeriod(), cfg.MoveTimeout).Run(loopCtx)
	}()
	var framePub camera.FramePublisher = camera.NewCommsPublisher(nc, cfg.CameraSubject)
	if !cfg.CameraStream {
		slog.Info(fmt.Sprintf("%s - Camera stream disabled, frames will be dropped", logPrefix))
		framePub = &camera.NoOpPublisher{}
	}
	go func() {
		defer loops.Done()
		camera.NewLoop(dev, framePub, cfg.CameraFPS).Run(loopCtx)
	}()

	// Step 6: Command subscription. Each message is handled on its own
	// goroutine: a blocking action must not delay an incoming stop.
	sub, err := nc.Subscribe(cfg.CommandSubject, func(msg *comms.Msg) {
		go func() {
			reqCtx, reqCancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer reqCancel()
			if data := s.handleRaw(reqCtx, msg.Data); data != nil {
				if err := msg.Respond(data); err != nil {
					slog.Warn(fmt.Sprintf("%s - failed to respond: %v", logPrefix, err))
				}
			}
		}()
	})
	if err != nil {
		loopCancel()
		nc.Close()
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, cfg.CommandSubject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, cfg.CommandSubject))

	// Step 7: HTTP status server
	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	httpServer := &http.Server{Addr: httpAddr, Handler: s.routes()}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP status server listening on %s", logPrefix, httpAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - go2-bridge is ready, cmd=%s camera=%s", logPrefix, cfg.CommandSubject, cfg.CameraSubject))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	// Graceful shutdown: stop intake, stop the loops, then the lifecycle
	// owner sends the final zero-velocity move exactly once. Every step is
	// best-effort; a failed step never blocks the rest.
	sub.Unsubscribe()
	loopCancel()
	waitWithTimeout(&loops, shutdownGrace)
	rob.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	httpServer.Shutdown(shutdownCtx)
	shutdownCancel()
	nc.Drain()

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// buildDevice selects the facade implementation. Only the simulator is
// linked into this binary; a vendor SDK binding plugs in behind
// device.Controller when built for the robot.
func buildDevice(cfg *config.Config) (device.Controller, error) {
	switch cfg.DeviceMode {
	case config.DeviceModeSim:
		slog.Info(fmt.Sprintf("%s - Using simulated device", logPrefix))
		return sim.New(), nil
	default:
		return nil, fmt.Errorf("%s - no device binding for mode %q in this build", logPrefix, cfg.DeviceMode)
	}
}

// handleRaw decodes one command, dispatches it, and encodes the reply.
// Returns nil only when the reply itself cannot be encoded.
func (s *Server) handleRaw(ctx context.Context, raw []byte) []byte {
	var cmd protocol.Command
	var reply *protocol.Reply
	if err := json.Unmarshal(raw, &cmd); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to decode request: %v", logPrefix, err))
		reply = protocol.ErrReply("failed to decode request")
		reply.Data = map[string]interface{}{"code": dispatcher.CodeInvalidRequest}
	} else {
		reply = s.dispatcher.Dispatch(ctx, &cmd)
	}

	data, err := json.Marshal(reply)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode reply: %v", logPrefix, err))
		return nil
	}
	return data
}

func waitWithTimeout(wg *sync.WaitGroup, d time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		slog.Warn(fmt.Sprintf("%s - loops did not drain within %s", logPrefix, d))
	}
}
