package interaction

import (
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/guidoenr/spherizer/internal/deform"
	"github.com/guidoenr/spherizer/internal/params"
)

// EventKind identifies an input event.
type EventKind int

const (
	// EventMove is a pointer sample. Hit says whether it landed on the interaction sphere.
	EventMove EventKind = iota
	// EventClick is a tap at Position; it only lands when Hit is set.
	EventClick
	// EventLeave is the pointer leaving the surface entirely.
	EventLeave
)

func (k EventKind) String() string {
	switch k {
	case EventMove:
		return "move"
	case EventClick:
		return "click"
	case EventLeave:
		return "leave"
	default:
		return "unknown"
	}
}

// Event is what input producers send to the frame loop. Position is in sphere-local space.
type Event struct {
	Kind     EventKind
	Position mgl64.Vec3
	Hit      bool
	At       time.Time
}

// State is the interaction state owned by the frame loop. Nothing else writes to it;
// producers send Events and the loop applies them between frames.
type State struct {
	Pointer  Pointer
	Impulses *ImpulseSet
	throttle *MoveThrottle
	clicks   uint64
}

// NewState creates an empty interaction state.
func NewState(p params.Parameters, rng *rand.Rand) *State {
	return &State{
		Impulses: NewImpulseSet(p.MaxConcurrentClicks, rng),
		throttle: NewMoveThrottle(DefaultMoveRate),
	}
}

// Apply folds one input event into the state at frame time now.
func (s *State) Apply(ev Event, now float64, p params.Parameters) {
	switch ev.Kind {
	case EventMove:
		at := ev.At
		if at.IsZero() {
			at = time.Now()
		}
		if !s.throttle.Allow(at) {
			return
		}
		s.pointTo(ev, now)
	case EventClick:
		s.pointTo(ev, now)
		if !ev.Hit {
			return
		}
		s.Drop(s.Pointer.Current, now, p)
	case EventLeave:
		s.Pointer.Leave()
	}
}

func (s *State) pointTo(ev Event, now float64) {
	if ev.Hit {
		s.Pointer.Move(ev.Position, now)
	} else if s.Pointer.Over {
		s.Pointer.Leave()
	}
}

// Drop creates an impulse at origin without moving the pointer.
func (s *State) Drop(origin mgl64.Vec3, now float64, p params.Parameters) bool {
	if s.Impulses.Capacity() != p.MaxConcurrentClicks {
		s.Impulses.SetCapacity(p.MaxConcurrentClicks)
	}
	if _, ok := s.Impulses.Add(origin, now, p.ClickStrength, p.ClickRandomness); !ok {
		return false
	}
	s.clicks++
	return true
}

// Advance runs per-frame upkeep: influence easing and impulse expiry.
func (s *State) Advance(now float64, p params.Parameters) {
	s.Pointer.Step(now, p.PointerEnterSpeed, p.PointerExitSpeed)
	if s.Impulses.Capacity() != p.MaxConcurrentClicks {
		s.Impulses.SetCapacity(p.MaxConcurrentClicks)
	}
	s.Impulses.Prune(now)
}

// Inputs snapshots the state for the frame pass.
func (s *State) Inputs(now float64, p params.Parameters) deform.FrameInputs {
	return deform.FrameInputs{
		Time:     now,
		Params:   p,
		Pointer:  s.Pointer.Sample(),
		Impulses: s.Impulses.Active(),
	}
}

// Clicks returns how many impulses have been created.
func (s *State) Clicks() uint64 { return s.clicks }
