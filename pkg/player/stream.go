package player

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/smallnest/ringbuffer"

	"github.com/forgeflow-zz/alephone/pkg/format"
)

// streamRingCapacity is the default capacity of a push stream's ring, sized
// for several hundred milliseconds of 16-bit stereo at common rates.
const streamRingCapacity = 1 << 16

// StreamPlayer plays raw PCM pushed in by an external producer, the network
// microphone case. The producer feeds bytes whenever it has them; the feed
// loop drains up to one staging buffer per turn. An empty ring is a yield,
// not a termination, because more data may arrive later.
type StreamPlayer struct {
	core

	ring      *ringbuffer.RingBuffer
	srcFormat format.AudioFormat
	done      atomic.Bool

	mu sync.Mutex
	ck chunker
}

func NewStreamPlayer(initial []byte, srcFormat format.AudioFormat, deviceFormat format.AudioFormat) *StreamPlayer {
	capacity := streamRingCapacity
	if len(initial) > capacity {
		capacity = 2 * len(initial)
	}

	p := &StreamPlayer{
		core:      newCore("stream"),
		ring:      ringbuffer.New(capacity),
		srcFormat: srcFormat,
		ck:        newChunker(format.NewConverter(srcFormat, deviceFormat)),
	}
	p.FeedData(initial)
	return p
}

// FeedData appends raw source-format bytes for playback and returns how many
// were accepted. Bytes beyond the ring's free space are dropped; the producer
// can retry them once the feed loop has drained some.
func (p *StreamPlayer) FeedData(data []byte) int {
	if p.done.Load() || len(data) == 0 {
		return 0
	}

	if free := p.ring.Free(); len(data) > free {
		data = data[:free]
	}
	n, err := p.ring.Write(data)
	if err != nil {
		p.logger.Debug("stream feed dropped bytes", "accepted", n, "err", err)
	}
	return n
}

// Finish marks that no more data will be fed. The player drains what is
// buffered and then terminates.
func (p *StreamPlayer) Finish() {
	p.done.Store(true)
}

func (p *StreamPlayer) Priority() float32 { return 1 }
func (p *StreamPlayer) Gain() float32     { return 1 }

func (p *StreamPlayer) FillNextData(out []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ck.fill(out, func(dst []byte) (int, error) {
		n, _ := p.ring.Read(dst)
		if n == 0 {
			if p.done.Load() && p.ring.IsEmpty() {
				return 0, io.EOF
			}
			return 0, ErrNoData
		}
		return n, nil
	})
}

func (p *StreamPlayer) ResetCursor() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ring.Reset()
	p.ck.reset()
}

// --------------------------------------------------------------------------------

// PullCallback produces up to len(buf) source bytes on demand. A return of
// zero or less signals exhaustion.
type PullCallback func(buf []byte) int

// CallbackPlayer pulls its data from a registered callback at the scheduler's
// own cadence, the video-playback case: the producer does not push, the feed
// loop asks.
type CallbackPlayer struct {
	core

	mu          sync.Mutex
	cb          PullCallback
	chunkLength int
	ck          chunker
}

// NewCallbackPlayer registers cb as the data source. chunkLength caps how
// many source bytes one turn may request; zero means one staging buffer's
// worth.
func NewCallbackPlayer(cb PullCallback, chunkLength int, srcFormat format.AudioFormat, deviceFormat format.AudioFormat) *CallbackPlayer {
	return &CallbackPlayer{
		core:        newCore("callback stream"),
		cb:          cb,
		chunkLength: chunkLength,
		ck:          newChunker(format.NewConverter(srcFormat, deviceFormat)),
	}
}

func (p *CallbackPlayer) Priority() float32 { return 1 }
func (p *CallbackPlayer) Gain() float32     { return 1 }

func (p *CallbackPlayer) FillNextData(out []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ck.fill(out, func(dst []byte) (int, error) {
		if p.chunkLength > 0 && len(dst) > p.chunkLength {
			dst = dst[:p.chunkLength]
		}
		n := p.cb(dst)
		if n <= 0 {
			return 0, io.EOF
		}
		return n, nil
	})
}
