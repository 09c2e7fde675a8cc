package player

import (
	"io"
	"sync"

	"github.com/forgeflow-zz/alephone/pkg/format"
	"github.com/forgeflow-zz/alephone/pkg/spatial"
)

// SoundPlayer plays one fixed-length decoded sound buffer. Identity is the
// (sound identifier, source identifier) pair: a later request for the same
// identity may rewind this player in place instead of spawning a duplicate.
type SoundPlayer struct {
	core

	listener     *spatial.ListenerStore
	deviceFormat format.AudioFormat

	mu        sync.Mutex
	params    spatial.SoundParameters
	data      []byte
	srcFormat format.AudioFormat
	cursor    int
	ck        chunker
}

// NewSoundPlayer wraps a decoded PCM buffer in its source format. The device
// format decides what FillNextData produces; the listener store is read on
// every priority computation.
func NewSoundPlayer(
	data []byte,
	srcFormat format.AudioFormat,
	deviceFormat format.AudioFormat,
	params spatial.SoundParameters,
	listener *spatial.ListenerStore,
) *SoundPlayer {
	p := &SoundPlayer{
		core:         newCore("sound"),
		listener:     listener,
		deviceFormat: deviceFormat,
		params:       params,
		data:         data,
		srcFormat:    srcFormat,
	}
	p.ck = newChunker(p.newConverter())
	return p
}

// newConverter must be called with p.mu held (or before the player is shared).
func (p *SoundPlayer) newConverter() *format.Converter {
	pitch := float64(p.params.Pitch)
	if pitch <= 0 {
		pitch = 1
	}

	conv := format.NewPitchedConverter(p.srcFormat, p.deviceFormat, pitch)
	if p.params.Stereo.Panning {
		conv.SetStereoGains(p.params.Stereo.GainLeft, p.params.Stereo.GainRight)
	}
	return conv
}

func (p *SoundPlayer) Identifier() int16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params.Identifier
}

func (p *SoundPlayer) SourceIdentifier() int16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params.SourceIdentifier
}

func (p *SoundPlayer) Parameters() spatial.SoundParameters {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params
}

// UpdateParameters adopts a new request's parameters, part of the
// rewind-instead-of-duplicate path.
func (p *SoundPlayer) UpdateParameters(params spatial.SoundParameters) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params = params
	p.ck = newChunker(p.newConverter())
}

// SimulatedVolume is the volume this sound would play at for the current
// listener. It doubles as the player's priority.
func (p *SoundPlayer) SimulatedVolume() float32 {
	return spatial.SimulatedVolume(p.Parameters(), p.listener.Get())
}

func (p *SoundPlayer) Priority() float32 {
	return p.SimulatedVolume()
}

func (p *SoundPlayer) Gain() float32 {
	return p.SimulatedVolume()
}

func (p *SoundPlayer) FillNextData(out []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ck.fill(out, func(dst []byte) (int, error) {
		if p.cursor >= len(p.data) {
			if !p.params.Loop {
				return 0, io.EOF
			}
			p.cursor = 0
		}
		n := copy(dst, p.data[p.cursor:])
		p.cursor += n
		return n, nil
	})
}

func (p *SoundPlayer) ResetCursor() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = 0
	p.ck.reset()
}
