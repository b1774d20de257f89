// Package actions maps client-facing action names to sport operations on the
// device facade.
package actions

import (
	"context"
	"sort"

	"github.com/openquad/go2-bridge/pkg/device"
)

// CallType tells the dispatcher how to invoke a descriptor.
type CallType int

const (
	// FireAndForget invocations return immediately; device-side errors do
	// not surface to the caller turn.
	FireAndForget CallType = iota
	// Blocking invocations wait for device acknowledgement and surface its
	// result code or error.
	Blocking
)

// String returns the call type name.
func (c CallType) String() string {
	if c == Blocking {
		return "blocking"
	}
	return "fire_and_forget"
}

// Descriptor binds an action name to its invocation closure. Immutable after
// registry construction.
type Descriptor struct {
	Name   string
	Call   CallType
	Invoke func(ctx context.Context) (code int, err error)
}

// Registry is the closed, read-only set of supported actions. Built once at
// startup; concurrent lookups need no locking.
type Registry struct {
	byName map[string]Descriptor
	names  []string
}

// entry pairs an action name with its vendor sport method and call type.
type entry struct {
	name   string
	method string
	call   CallType
}

// Postural and soft-stop operations are fire-and-forget: they are quick,
// idempotent on the device, and a client refreshing velocity must never wait
// behind them. Gymnastics and expressive moves run long and report failure
// codes worth surfacing, so they block.
var table = []entry{
	{"stand_up", "StandUp", FireAndForget},
	{"stand_down", "StandDown", FireAndForget},
	{"balance_stand", "BalanceStand", FireAndForget},
	{"recovery_stand", "RecoveryStand", Blocking},
	{"sit", "Sit", FireAndForget},
	{"hello", "Hello", Blocking},
	{"stretch", "Stretch", Blocking},
	{"dance1", "Dance1", Blocking},
	{"dance2", "Dance2", Blocking},
	{"heart", "Heart", Blocking},
	{"front_flip", "FrontFlip", Blocking},
	{"front_jump", "FrontJump", Blocking},
	{"back_flip", "BackFlip", Blocking},
	{"left_flip", "LeftFlip", Blocking},
	{"hand_stand", "HandStand", Blocking},
	{"damp", "Damp", FireAndForget},
	{"stop_move", "StopMove", FireAndForget},
}

// NewRegistry builds the registry over the given sport facade.
func NewRegistry(sport device.SportActions) *Registry {
	byName := make(map[string]Descriptor, len(table))
	names := make([]string, 0, len(table))
	for _, e := range table {
		e := e
		d := Descriptor{Name: e.name, Call: e.call}
		switch e.call {
		case Blocking:
			d.Invoke = func(ctx context.Context) (int, error) {
				return sport.Execute(ctx, e.method)
			}
		default:
			d.Invoke = func(context.Context) (int, error) {
				return device.CodeOK, sport.Dispatch(e.method)
			}
		}
		byName[e.name] = d
		names = append(names, e.name)
	}
	sort.Strings(names)
	return &Registry{byName: byName, names: names}
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names returns all registered action names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
