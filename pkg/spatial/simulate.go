package spatial

import "math"

// SimulatedVolume estimates how loud a sound with these parameters would play
// for the given listener, in [0, 1].
//
// Local sounds without stereo panning always play at full volume. Panned
// sounds play at their configured global gain, which may be zero (panned out).
// 3D sounds run the linear-clamped rolloff model over the listener distance.
//
// The result doubles as the sound's priority when hardware sources run out;
// a result of zero means the request is dropped before a player exists.
func SimulatedVolume(params SoundParameters, listener Listener) float32 {
	if params.Local && !params.Stereo.Panning {
		return 1
	}
	if params.Stereo.Panning {
		return params.Stereo.GainGlobal
	}

	dx := (params.Location.X - listener.Position.X) / WorldScale
	dy := (params.Location.Y - listener.Position.Y) / WorldScale
	dz := (params.Location.Z - listener.Position.Z) / WorldScale
	distance := float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))

	profile := params.Behavior.Profile(params.Obstruction.Obstructed())
	return profile.Volume(distance)
}

// Audible reports whether a playback request passes admission at all.
func Audible(params SoundParameters, listener Listener) bool {
	return SimulatedVolume(params, listener) > 0
}
