package player

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeflow-zz/alephone/pkg/format"
	"github.com/forgeflow-zz/alephone/pkg/spatial"
)

var monoFormat = format.AudioFormat{SampleRate: 44100, Stereo: false, SixteenBit: true}

func pcm16(samples ...int16) []byte {
	buf := make([]byte, 2*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
	}
	return buf
}

// --------------------------------------------------------------------------------
// SoundPlayer

func newTestSound(data []byte, params spatial.SoundParameters) *SoundPlayer {
	return NewSoundPlayer(data, monoFormat, monoFormat, params, &spatial.ListenerStore{})
}

func TestSoundPlayerFillAndExhaust(t *testing.T) {
	p := newTestSound(pcm16(1, 2, 3, 4), spatial.SoundParameters{Local: true})

	out := make([]byte, 4)

	n, err := p.FillNextData(out)
	require.NoError(t, err)
	assert.Equal(t, pcm16(1, 2), out[:n])

	n, err = p.FillNextData(out)
	require.NoError(t, err)
	assert.Equal(t, pcm16(3, 4), out[:n])

	n, err = p.FillNextData(out)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSoundPlayerLoop(t *testing.T) {
	p := newTestSound(pcm16(1, 2), spatial.SoundParameters{Local: true, Loop: true})

	out := make([]byte, 4)
	for range 5 {
		n, err := p.FillNextData(out)
		require.NoError(t, err)
		require.Equal(t, 4, n)
	}
}

func TestSoundPlayerResetCursor(t *testing.T) {
	p := newTestSound(pcm16(1, 2), spatial.SoundParameters{Local: true})

	out := make([]byte, 4)
	_, err := p.FillNextData(out)
	require.NoError(t, err)

	p.ResetCursor()
	n, err := p.FillNextData(out)
	require.NoError(t, err)
	assert.Equal(t, pcm16(1, 2), out[:n])
}

func TestSoundPlayerRewindFlag(t *testing.T) {
	p := newTestSound(pcm16(1), spatial.SoundParameters{Local: true})

	assert.False(t, p.TakeRewind())
	p.AskRewind()
	assert.True(t, p.TakeRewind())
	assert.False(t, p.TakeRewind(), "rewind request must be consumed")
}

func TestSoundPlayerPriorityTracksListener(t *testing.T) {
	store := &spatial.ListenerStore{}
	profile := spatial.BehaviorNormal.Profile(false)
	params := spatial.SoundParameters{
		Behavior: spatial.BehaviorNormal,
		Location: spatial.Vec3{X: profile.ReferenceDistance * spatial.WorldScale / 2},
	}
	p := NewSoundPlayer(pcm16(1), monoFormat, monoFormat, params, store)

	assert.InDelta(t, 1, p.Priority(), 1e-5)

	// Walk the listener out of earshot; the priority must follow.
	store.Update(spatial.Listener{Position: spatial.Vec3{X: -2 * profile.MaxDistance * spatial.WorldScale}})
	assert.Equal(t, float32(0), p.Priority())
}

func TestSoundPlayerUpdateParameters(t *testing.T) {
	p := newTestSound(pcm16(1), spatial.SoundParameters{Identifier: 3, SourceIdentifier: 7, Local: true})

	p.UpdateParameters(spatial.SoundParameters{Identifier: 3, SourceIdentifier: 9, Local: true})
	assert.Equal(t, int16(3), p.Identifier())
	assert.Equal(t, int16(9), p.SourceIdentifier())
}

func TestStopIsIdempotent(t *testing.T) {
	p := newTestSound(pcm16(1), spatial.SoundParameters{Local: true})

	p.Stop()
	assert.Equal(t, StateStopped, p.State())
	p.Stop()
	assert.Equal(t, StateStopped, p.State())

	p.MarkPlaying()
	assert.Equal(t, StateStopped, p.State(), "stopped is terminal")
	p.MarkExhausted()
	assert.Equal(t, StateStopped, p.State(), "stopped is terminal")
}

// --------------------------------------------------------------------------------
// StreamPlayer

func TestStreamPlayerYieldsWhenEmpty(t *testing.T) {
	p := NewStreamPlayer(nil, monoFormat, monoFormat)

	out := make([]byte, 8)
	n, err := p.FillNextData(out)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, ErrNoData, "an empty stream yields, it does not terminate")
}

func TestStreamPlayerFeedAndDrain(t *testing.T) {
	p := NewStreamPlayer(pcm16(1, 2), monoFormat, monoFormat)

	out := make([]byte, 8)
	n, err := p.FillNextData(out)
	require.NoError(t, err)
	assert.Equal(t, pcm16(1, 2), out[:n])

	accepted := p.FeedData(pcm16(3))
	assert.Equal(t, 2, accepted)

	n, err = p.FillNextData(out)
	require.NoError(t, err)
	assert.Equal(t, pcm16(3), out[:n])
}

func TestStreamPlayerFinish(t *testing.T) {
	p := NewStreamPlayer(pcm16(1), monoFormat, monoFormat)
	p.Finish()

	assert.Equal(t, 0, p.FeedData(pcm16(9)), "no more data after Finish")

	out := make([]byte, 8)
	n, err := p.FillNextData(out)
	require.NoError(t, err, "buffered data still drains after Finish")
	assert.Equal(t, 2, n)

	_, err = p.FillNextData(out)
	assert.ErrorIs(t, err, io.EOF)
}

// --------------------------------------------------------------------------------
// CallbackPlayer

func TestCallbackPlayerPullsOnDemand(t *testing.T) {
	calls := 0
	cb := func(buf []byte) int {
		calls++
		if calls > 2 {
			return 0
		}
		return copy(buf, pcm16(int16(calls)))
	}
	p := NewCallbackPlayer(cb, 0, monoFormat, monoFormat)

	out := make([]byte, 2)

	n, err := p.FillNextData(out)
	require.NoError(t, err)
	assert.Equal(t, pcm16(1), out[:n])

	n, err = p.FillNextData(out)
	require.NoError(t, err)
	assert.Equal(t, pcm16(2), out[:n])

	_, err = p.FillNextData(out)
	assert.ErrorIs(t, err, io.EOF, "a non-positive producer return terminates the stream")
}

func TestCallbackPlayerChunkLength(t *testing.T) {
	var seen int
	cb := func(buf []byte) int {
		seen = len(buf)
		return len(buf)
	}
	p := NewCallbackPlayer(cb, 4, monoFormat, monoFormat)

	out := make([]byte, 64)
	_, err := p.FillNextData(out)
	require.NoError(t, err)
	assert.Equal(t, 4, seen, "one turn must not pull more than the registered chunk length")
}

func TestStreamPriorities(t *testing.T) {
	assert.Equal(t, float32(1), NewStreamPlayer(nil, monoFormat, monoFormat).Priority())
	assert.Equal(t, float32(1), NewCallbackPlayer(func([]byte) int { return 0 }, 0, monoFormat, monoFormat).Priority())
	assert.Greater(t, MusicPriority, float32(1), "music must outrank any possible sound volume")
}
