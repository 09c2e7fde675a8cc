package backend

import (
	"errors"

	"github.com/forgeflow-zz/alephone/pkg/format"
)

// NumBuffers is the number of staging buffers each hardware source owns.
// The feed loop keeps at most this many chunks queued ahead of the device.
const NumBuffers = 4

var (
	ErrDeviceClosed  = errors.New("audio device is not open")
	ErrInvalidSource = errors.New("no such source on this device")
	ErrBufferFull    = errors.New("all staging buffers for this source are pending")
)

// Config describes the playback session requested from a device.
type Config struct {
	Format format.AudioFormat

	// SourceCount is the number of simultaneous sources asked for.
	// The device may grant fewer; Open returns the real count.
	SourceCount int

	// BufferFrames is the size of one staging buffer in frames.
	BufferFrames int
}

// BufferBytes returns the size of one staging buffer in bytes.
func (c Config) BufferBytes() int {
	return c.BufferFrames * c.Format.BytesPerFrame()
}

// Device is the boundary with the host audio backend. The engine only ever
// needs a fixed set of sources it can stage PCM into; everything else about
// the host API (enumeration, format negotiation, mixing) stays behind this
// interface.
//
// Submit and BufferState are called from the feed loop only and must not
// block; the device consumes pending buffers on its own time-critical thread.
type Device interface {
	// Open prepares the device and returns how many sources it granted.
	Open(cfg Config) (int, error)
	Close() error

	// Submit queues one chunk of sink-format PCM on a source. It returns
	// ErrBufferFull when all staging buffers are still pending.
	Submit(source int, pcm []byte) error

	// BufferState reports how many staging buffers are free for reuse and
	// how many are still queued ahead of the device.
	BufferState(source int) (processed int, pending int)

	// SetGain scales a source's output, 0 silent to 1 full.
	SetGain(source int, gain float32)

	// Flush drops everything queued on a source. Used on rewind and when a
	// source changes hands.
	Flush(source int)

	// Suspend and Resume pause and restart consumption without losing the
	// session, the moral equivalent of SDL_PauseAudio.
	Suspend() error
	Resume() error
}

// Renderer is implemented by devices that do not play through hardware but
// hand the mixed output back to the caller, used for recording, video export
// and tests.
type Renderer interface {
	Device

	// Render mixes up to frameCount frames of everything pending into out
	// and returns the frame count actually produced. out must hold at least
	// frameCount frames of the configured format; the tail is silence-filled.
	Render(out []byte, frameCount int) int
}

// Source is a handle to one device source. Exactly one of {idle pool, one
// player} owns a Source at any moment; the handle itself is just the pairing
// of a device and an index.
type Source struct {
	dev   Device
	index int
}

func NewSource(dev Device, index int) *Source {
	return &Source{dev: dev, index: index}
}

func (s *Source) Index() int { return s.index }

func (s *Source) Submit(pcm []byte) error {
	return s.dev.Submit(s.index, pcm)
}

func (s *Source) BufferState() (processed int, pending int) {
	return s.dev.BufferState(s.index)
}

func (s *Source) SetGain(gain float32) {
	s.dev.SetGain(s.index, gain)
}

func (s *Source) Flush() {
	s.dev.Flush(s.index)
}
