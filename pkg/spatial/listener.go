package spatial

import (
	"math"
	"sync/atomic"
)

// WorldScale is the number of world units per meter. Distances handed to the
// attenuation model are world-unit deltas divided by this scale.
const WorldScale float32 = 1024

// Vec3 is a position or velocity in world units.
type Vec3 struct {
	X float32
	Y float32
	Z float32
}

// Listener is a snapshot of the listener's state in the world, updated from
// the simulation side once per tick and read by every volume computation.
type Listener struct {
	Position Vec3
	Velocity Vec3

	// Orientation in degrees.
	Yaw   float32
	Pitch float32
}

// Direction returns the unit facing vector derived from yaw and pitch.
func (l Listener) Direction() Vec3 {
	yaw := float64(l.Yaw) * math.Pi / 180
	pitch := float64(l.Pitch) * math.Pi / 180
	return Vec3{
		X: float32(math.Cos(yaw) * math.Cos(pitch)),
		Y: float32(math.Sin(yaw) * math.Cos(pitch)),
		Z: float32(math.Sin(pitch)),
	}
}

// ListenerStore publishes listener snapshots from the simulation goroutine to
// the audio goroutine. Updates replace the whole value atomically, so readers
// never observe a half-written listener and no lock is involved.
type ListenerStore struct {
	v atomic.Value
}

func (s *ListenerStore) Update(l Listener) {
	s.v.Store(l)
}

// Get returns the last published snapshot, or a zero listener at the origin
// if no update has happened yet.
func (s *ListenerStore) Get() Listener {
	if l, ok := s.v.Load().(Listener); ok {
		return l
	}
	return Listener{}
}
