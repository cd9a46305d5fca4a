package interaction

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/guidoenr/spherizer/internal/deform"
)

// ImpulseSet is the bounded collection of live click impulses, oldest first.
type ImpulseSet struct {
	rng      *rand.Rand
	capacity int
	nextID   uint64
	active   []deform.Impulse
}

// NewImpulseSet creates a set holding at most capacity impulses.
func NewImpulseSet(capacity int, rng *rand.Rand) *ImpulseSet {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &ImpulseSet{rng: rng, capacity: capacity}
}

// Add creates an impulse near origin. Strength varies by ±20% and the origin is jittered
// by up to randomness/2 per axis. The oldest impulse is evicted when the set is full.
func (s *ImpulseSet) Add(origin mgl64.Vec3, now, strength, randomness float64) (deform.Impulse, bool) {
	if s.capacity <= 0 {
		return deform.Impulse{}, false
	}
	for len(s.active) >= s.capacity {
		s.active = s.active[1:]
	}

	jitter := mgl64.Vec3{
		(s.rng.Float64() - 0.5) * randomness,
		(s.rng.Float64() - 0.5) * randomness,
		(s.rng.Float64() - 0.5) * randomness,
	}
	imp := deform.Impulse{
		ID:       s.nextID,
		Origin:   origin.Add(jitter),
		Start:    now,
		Strength: strength * (0.8 + s.rng.Float64()*0.4),
	}
	s.nextID++
	s.active = append(s.active, imp)
	return imp, true
}

// Prune drops impulses whose age has reached the impulse duration.
func (s *ImpulseSet) Prune(now float64) int {
	kept := s.active[:0]
	for _, imp := range s.active {
		if !imp.Expired(now) {
			kept = append(kept, imp)
		}
	}
	removed := len(s.active) - len(kept)
	for i := len(kept); i < len(s.active); i++ {
		s.active[i] = deform.Impulse{}
	}
	s.active = kept
	return removed
}

// SetCapacity changes the bound, evicting the oldest impulses if it shrank.
func (s *ImpulseSet) SetCapacity(n int) {
	s.capacity = n
	if n < 0 {
		n = 0
	}
	if over := len(s.active) - n; over > 0 {
		s.active = s.active[over:]
	}
}

// Capacity returns the current bound.
func (s *ImpulseSet) Capacity() int { return s.capacity }

// Len returns the number of live impulses.
func (s *ImpulseSet) Len() int { return len(s.active) }

// Active returns a snapshot of the live impulses, oldest first.
func (s *ImpulseSet) Active() []deform.Impulse {
	out := make([]deform.Impulse, len(s.active))
	copy(out, s.active)
	return out
}
