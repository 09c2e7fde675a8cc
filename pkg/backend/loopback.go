package backend

import (
	"encoding/binary"
	"sync"
)

// LoopbackDevice is a Device that never touches hardware. Submitted buffers
// sit in per-source queues until the caller pulls mixed output with Render.
//
// This is the render path for recording and video export, and the test double
// for everything that needs deterministic scheduling.
type LoopbackDevice struct {
	mu      sync.Mutex
	cfg     Config
	sources []loopbackSource
	open    bool
	paused  bool
}

type loopbackSource struct {
	queue  [][]byte
	cursor int // bytes consumed of queue[0]
	gain   float32
}

func NewLoopbackDevice() *LoopbackDevice {
	return &LoopbackDevice{}
}

func (d *LoopbackDevice) Open(cfg Config) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cfg = cfg
	d.sources = make([]loopbackSource, cfg.SourceCount)
	for i := range d.sources {
		d.sources[i].gain = 1
	}
	d.open = true
	d.paused = true
	return cfg.SourceCount, nil
}

func (d *LoopbackDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sources = nil
	d.open = false
	return nil
}

func (d *LoopbackDevice) Submit(source int, pcm []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return ErrDeviceClosed
	}
	if source < 0 || source >= len(d.sources) {
		return ErrInvalidSource
	}

	s := &d.sources[source]
	if len(s.queue) >= NumBuffers {
		return ErrBufferFull
	}

	staged := make([]byte, len(pcm))
	copy(staged, pcm)
	s.queue = append(s.queue, staged)
	return nil
}

func (d *LoopbackDevice) BufferState(source int) (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open || source < 0 || source >= len(d.sources) {
		return 0, 0
	}
	pending := len(d.sources[source].queue)
	return NumBuffers - pending, pending
}

func (d *LoopbackDevice) SetGain(source int, gain float32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open || source < 0 || source >= len(d.sources) {
		return
	}
	d.sources[source].gain = gain
}

func (d *LoopbackDevice) Flush(source int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open || source < 0 || source >= len(d.sources) {
		return
	}
	d.sources[source].queue = nil
	d.sources[source].cursor = 0
}

func (d *LoopbackDevice) Suspend() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = true
	return nil
}

func (d *LoopbackDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = false
	return nil
}

// Render mixes up to frameCount frames of pending data into out with
// saturating 16-bit addition, consuming the per-source queues as it goes.
// Fully consumed buffers free their staging slot for the feed loop.
func (d *LoopbackDevice) Render(out []byte, frameCount int) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	bytesPerFrame := d.cfg.Format.BytesPerFrame()
	total := frameCount * bytesPerFrame
	if total > len(out) {
		total = len(out) - len(out)%bytesPerFrame
	}
	for i := 0; i < total; i++ {
		out[i] = 0
	}
	if !d.open {
		return 0
	}

	samples := total / 2
	for i := range d.sources {
		d.mixSource(&d.sources[i], out, samples)
	}
	return total / bytesPerFrame
}

func (d *LoopbackDevice) mixSource(s *loopbackSource, out []byte, samples int) {
	written := 0
	for written < samples && len(s.queue) > 0 {
		head := s.queue[0][s.cursor:]
		n := len(head) / 2
		if n > samples-written {
			n = samples - written
		}

		for i := range n {
			mixed := int32(int16(binary.LittleEndian.Uint16(out[2*(written+i):])))
			mixed += int32(float32(int16(binary.LittleEndian.Uint16(head[2*i:]))) * s.gain)
			binary.LittleEndian.PutUint16(out[2*(written+i):], uint16(clampMixed(mixed)))
		}

		written += n
		s.cursor += 2 * n
		if s.cursor >= len(s.queue[0]) {
			s.queue = s.queue[1:]
			s.cursor = 0
		}
	}
}

func clampMixed(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
