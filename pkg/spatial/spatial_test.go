package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttenuationProfileVolume(t *testing.T) {
	profile := AttenuationProfile{ReferenceDistance: 10, MaxDistance: 100, RolloffFactor: 1.0}

	testCases := []struct {
		name     string
		distance float32
		expected float32
	}{
		{name: "inside reference radius", distance: 5, expected: 1},
		{name: "at reference distance", distance: 10, expected: 1},
		{name: "midway", distance: 50, expected: 1 - 1.0*(50-10)/(100-10)},
		{name: "at max distance", distance: 100, expected: 0},
		{name: "beyond max distance", distance: 250, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, profile.Volume(tc.distance), 1e-4)
		})
	}
}

func TestAttenuationProfileVolumeMonotonic(t *testing.T) {
	profile := AttenuationProfile{ReferenceDistance: 2, MaxDistance: 30, RolloffFactor: 1.2}

	previous := float32(2)
	for d := float32(0); d < 40; d += 0.5 {
		v := profile.Volume(d)
		require.LessOrEqual(t, v, previous, "volume rose between distance %f and %f", d-0.5, d)
		require.GreaterOrEqual(t, v, float32(0))
		require.LessOrEqual(t, v, float32(1))
		previous = v
	}
}

func TestAttenuationProfileDegenerateRange(t *testing.T) {
	profile := AttenuationProfile{ReferenceDistance: 5, MaxDistance: 5, RolloffFactor: 1}
	assert.Equal(t, float32(1), profile.Volume(100))
}

func TestSimulatedVolumeLocal(t *testing.T) {
	params := SoundParameters{Local: true}
	assert.Equal(t, float32(1), SimulatedVolume(params, Listener{}))
	assert.True(t, Audible(params, Listener{}))
}

func TestSimulatedVolumePanned(t *testing.T) {
	params := SoundParameters{
		Local:  true,
		Stereo: StereoParameters{Panning: true, GainGlobal: 0.4, GainLeft: 0.4, GainRight: 0},
	}
	assert.InDelta(t, 0.4, SimulatedVolume(params, Listener{}), 1e-6)

	params.Stereo.GainGlobal = 0
	assert.False(t, Audible(params, Listener{}), "fully panned out sounds must be dropped")
}

func TestSimulatedVolume3D(t *testing.T) {
	listener := Listener{}
	profile := BehaviorNormal.Profile(false)

	// Source inside the reference radius plays at full volume.
	near := SoundParameters{
		Behavior: BehaviorNormal,
		Location: Vec3{X: profile.ReferenceDistance * WorldScale / 2},
	}
	assert.InDelta(t, 1, SimulatedVolume(near, listener), 1e-5)

	// Source beyond the max distance is silent.
	far := SoundParameters{
		Behavior: BehaviorNormal,
		Location: Vec3{X: (profile.MaxDistance + 1) * WorldScale},
	}
	assert.Equal(t, float32(0), SimulatedVolume(far, listener))
	assert.False(t, Audible(far, listener))
}

func TestSimulatedVolumeObstruction(t *testing.T) {
	listener := Listener{}
	params := SoundParameters{
		Behavior: BehaviorNormal,
		Location: Vec3{X: 7 * WorldScale},
	}

	clear := SimulatedVolume(params, listener)
	require.Greater(t, clear, float32(0))

	params.Obstruction = ObstructionWall
	obstructed := SimulatedVolume(params, listener)
	assert.Less(t, obstructed, clear, "obstruction must not make a sound louder")
}

func TestListenerStore(t *testing.T) {
	var store ListenerStore

	assert.Equal(t, Listener{}, store.Get(), "unset store yields the zero listener")

	l := Listener{Position: Vec3{X: 1024, Y: 2048}, Yaw: 90}
	store.Update(l)
	assert.Equal(t, l, store.Get())
}

func TestListenerDirection(t *testing.T) {
	l := Listener{Yaw: 0, Pitch: 0}
	d := l.Direction()
	assert.InDelta(t, 1, d.X, 1e-5)
	assert.InDelta(t, 0, d.Y, 1e-5)
	assert.InDelta(t, 0, d.Z, 1e-5)

	up := Listener{Yaw: 0, Pitch: 90}.Direction()
	assert.InDelta(t, 1, up.Z, 1e-5)
}
