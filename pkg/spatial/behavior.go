package spatial

// SoundBehavior classifies how far a sound carries.
type SoundBehavior int

const (
	BehaviorQuiet SoundBehavior = iota
	BehaviorNormal
	BehaviorLoud
)

// AttenuationProfile holds the constants of the linear-clamped rolloff model
// for one behavior class. Distances are in meters (world units over WorldScale).
type AttenuationProfile struct {
	ReferenceDistance float32
	MaxDistance       float32
	RolloffFactor     float32
}

// Volume computes the linear-clamped rolloff for a listener this many meters
// away. The distance is clamped to [ReferenceDistance, MaxDistance] first, so
// the result is 1 inside the reference radius and never rises with distance.
func (p AttenuationProfile) Volume(distance float32) float32 {
	if p.MaxDistance <= p.ReferenceDistance {
		return 1
	}

	if distance < p.ReferenceDistance {
		distance = p.ReferenceDistance
	}
	if distance > p.MaxDistance {
		distance = p.MaxDistance
	}

	volume := 1 - p.RolloffFactor*(distance-p.ReferenceDistance)/(p.MaxDistance-p.ReferenceDistance)
	if volume < 0 {
		return 0
	}
	return volume
}

// Attenuation tables per behavior class, one set for a clear line of sound
// and one for acoustically obstructed sources. Loaded once, never mutated.
var (
	behaviorProfiles = [...]AttenuationProfile{
		BehaviorQuiet:  {ReferenceDistance: 0.5, MaxDistance: 5, RolloffFactor: 1},
		BehaviorNormal: {ReferenceDistance: 1, MaxDistance: 10, RolloffFactor: 1},
		BehaviorLoud:   {ReferenceDistance: 2, MaxDistance: 30, RolloffFactor: 1},
	}

	obstructedBehaviorProfiles = [...]AttenuationProfile{
		BehaviorQuiet:  {ReferenceDistance: 0.5, MaxDistance: 3, RolloffFactor: 1},
		BehaviorNormal: {ReferenceDistance: 1, MaxDistance: 5, RolloffFactor: 1.5},
		BehaviorLoud:   {ReferenceDistance: 2, MaxDistance: 15, RolloffFactor: 1.5},
	}
)

// Profile selects the attenuation constants for this behavior, picking the
// obstructed variant when the sound does not reach the listener directly.
func (b SoundBehavior) Profile(obstructed bool) AttenuationProfile {
	if b < BehaviorQuiet || b > BehaviorLoud {
		b = BehaviorNormal
	}
	if obstructed {
		return obstructedBehaviorProfiles[b]
	}
	return behaviorProfiles[b]
}
