package interaction

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/guidoenr/spherizer/internal/deform"
)

const (
	// stallDelay is how long the pointer may rest over the sphere before its pull fades.
	stallDelay = 0.15
	stallFloor = 0.3
	stallDecay = 0.98

	easeThreshold = 0.001
	snapThreshold = 0.01
)

// Pointer is the smoothed pointer state. Influence eases toward Target; it is never a hit test.
type Pointer struct {
	Current   mgl64.Vec3
	Previous  mgl64.Vec3
	Influence float64
	Target    float64
	Over      bool
	LastMove  float64
}

// Move records a pointer sample that landed on the interaction sphere.
func (p *Pointer) Move(pos mgl64.Vec3, now float64) {
	if p.Over {
		p.Previous = p.Current
	} else {
		// entering: no drag from wherever the pointer last left
		p.Previous = pos
	}
	p.Current = pos
	p.Over = true
	p.Target = 1
	p.LastMove = now
}

// Leave marks the pointer as off the sphere. Influence then fades at the exit speed.
func (p *Pointer) Leave() {
	p.Over = false
	p.Target = 0
}

// Step advances influence easing by one frame.
func (p *Pointer) Step(now, enter, exit float64) {
	delta := p.Target - p.Influence
	if math.Abs(delta) > easeThreshold {
		speed := exit
		if p.Target > p.Influence {
			speed = enter
		}
		p.Influence += delta * speed
		if math.Abs(delta) < snapThreshold {
			p.Influence = p.Target
		}
	}
	p.Influence = math.Max(0, math.Min(1, p.Influence))

	if p.Over && now-p.LastMove > stallDelay {
		p.Target = math.Max(stallFloor, p.Target*stallDecay)
		p.Previous = p.Current
	}
}

// Sample is the read-only view the frame pass consumes.
func (p *Pointer) Sample() deform.PointerSample {
	return deform.PointerSample{
		Current:   p.Current,
		Previous:  p.Previous,
		Influence: p.Influence,
	}
}
