package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// DefaultFOV is the camera's vertical field of view in degrees.
	DefaultFOV      = 75.0
	// DefaultDistance is how far the camera sits from the sphere centre along +z.
	DefaultDistance = 8.0

	near = 0.1
	far  = 100.0

	// pointScale is the screen-space size, in reference pixels, of a unit particle one unit from the camera.
	pointScale = 200.0

	spinY = 0.0008
	spinX = 0.0004
)

// Projected is a particle mapped onto the screen.
type Projected struct {
	// X and Y are normalized device coordinates in [-1,1] when on screen.
	X, Y float64
	// Depth is the view-space distance in front of the camera.
	Depth float64
	// Scale converts a particle size into reference pixels at this depth.
	Scale float64
}

// Scene is the camera looking at the slowly spinning particle group.
type Scene struct {
	fov      float64
	distance float64
	aspect   float64
	rotX     float64
	rotY     float64
	radius   float64

	model    mgl64.Mat4
	modelInv mgl64.Mat4
	view     mgl64.Mat4
	proj     mgl64.Mat4
	mv       mgl64.Mat4
	invVP    mgl64.Mat4
}

// New creates a scene with the camera on +Z looking at the origin. radius is the
// interaction sphere used for picking.
func New(aspect, radius float64) *Scene {
	s := &Scene{fov: DefaultFOV, distance: DefaultDistance, radius: radius}
	s.SetAspect(aspect)
	return s
}

// SetAspect updates the viewport width/height ratio.
func (s *Scene) SetAspect(aspect float64) {
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 1
	}
	s.aspect = aspect
	s.update()
}

// SetInteractionRadius changes the picking sphere.
func (s *Scene) SetInteractionRadius(r float64) { s.radius = r }

// Spin advances the group rotation by one frame.
func (s *Scene) Spin() {
	s.rotY += spinY
	s.rotX += spinX
	s.update()
}

// rotation returns the group's current Euler angles.
func (s *Scene) rotation() (x, y float64) { return s.rotX, s.rotY }

// setRotation places the group at explicit Euler angles.
func (s *Scene) setRotation(x, y float64) {
	s.rotX, s.rotY = x, y
	s.update()
}

func (s *Scene) update() {
	s.model = mgl64.HomogRotate3DX(s.rotX).Mul4(mgl64.HomogRotate3DY(s.rotY))
	s.modelInv = s.model.Transpose()
	eye := mgl64.Vec3{0, 0, s.distance}
	s.view = mgl64.LookAtV(eye, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})
	s.proj = mgl64.Perspective(mgl64.DegToRad(s.fov), s.aspect, near, far)
	s.mv = s.view.Mul4(s.model)
	s.invVP = s.proj.Mul4(s.view).Inv()
}

// Project maps a group-local point to the screen. ok is false behind the camera.
func (s *Scene) Project(local mgl64.Vec3) (Projected, bool) {
	eye := s.mv.Mul4x1(local.Vec4(1))
	depth := -eye[2]
	if depth <= near {
		return Projected{}, false
	}
	clip := s.proj.Mul4x1(eye)
	return Projected{
		X:     clip[0] / clip[3],
		Y:     clip[1] / clip[3],
		Depth: depth,
		Scale: pointScale / depth,
	}, true
}

// Pick casts a ray through normalized device coordinates and returns where it first
// meets the interaction sphere, in group-local space.
func (s *Scene) Pick(ndcX, ndcY float64) (mgl64.Vec3, bool) {
	if s.radius <= 0 {
		return mgl64.Vec3{}, false
	}
	origin := s.unproject(ndcX, ndcY, -1)
	target := s.unproject(ndcX, ndcY, 1)
	dir := target.Sub(origin)
	if dir.Len() == 0 {
		return mgl64.Vec3{}, false
	}
	dir = dir.Normalize()

	// |o + t*d| = r, with |d| = 1
	b := origin.Dot(dir)
	c := origin.Dot(origin) - s.radius*s.radius
	disc := b*b - c
	if disc < 0 {
		return mgl64.Vec3{}, false
	}
	root := math.Sqrt(disc)
	t := -b - root
	if t < 0 {
		t = -b + root
	}
	if t < 0 {
		return mgl64.Vec3{}, false
	}
	world := origin.Add(dir.Mul(t))
	return s.modelInv.Mul4x1(world.Vec4(1)).Vec3(), true
}

func (s *Scene) unproject(x, y, z float64) mgl64.Vec3 {
	v := s.invVP.Mul4x1(mgl64.Vec4{x, y, z, 1})
	return v.Vec3().Mul(1 / v[3])
}

// ToPixel maps normalized device coordinates onto a width×height raster, origin top-left.
func ToPixel(x, y float64, width, height int) (float64, float64) {
	return (x*0.5 + 0.5) * float64(width), (0.5 - y*0.5) * float64(height)
}

// toNDC is the inverse of ToPixel.
func toNDC(px, py float64, width, height int) (float64, float64) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	return px/float64(width)*2 - 1, 1 - py/float64(height)*2
}
