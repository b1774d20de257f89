// Package main is the entrypoint for the go2-bridge.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/openquad/go2-bridge/internal/server"
	"github.com/openquad/go2-bridge/pkg/actions"
	"github.com/openquad/go2-bridge/pkg/device/sim"
)

const usage = `Usage: go2-bridge [command]

Commands:
  (default)   Start the bridge (device handshake, safety loop, camera, NATS, HTTP).
  serve       Same as the default.
  actions     Print the supported action names and call types.

Environment: NATS_URL, NATS_CMD_SUBJECT, NATS_CAMERA_SUBJECT, GO2_MOVE_HZ,
GO2_MOVE_TIMEOUT, GO2_CAMERA_FPS, GO2_OBSTACLE_AVOIDANCE, GO2_DEVICE_MODE,
GO2_HTTP_PORT, LOG_LEVEL.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "actions":
		printActions()
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("go2-bridge: %v", err)
	}
}

func printActions() {
	reg := actions.NewRegistry(sim.New())
	for _, name := range reg.Names() {
		d, _ := reg.Lookup(name)
		fmt.Printf("%-16s %s\n", name, d.Call)
	}
}
