package player

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/forgeflow-zz/alephone/pkg/backend"
	"github.com/forgeflow-zz/alephone/pkg/format"
)

// ErrNoData reports that a player has nothing to submit right now but may
// have data later. The feed loop skips the player for this turn instead of
// tearing it down.
var ErrNoData = errors.New("no audio data available yet")

// State is a player's position in its lifecycle. Transitions only move
// forward except for StatePlaying <-> StateSourceAssigned, and StateStopped
// is terminal.
type State int32

const (
	StateQueued State = iota
	StateSourceAssigned
	StatePlaying
	StateExhausted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateSourceAssigned:
		return "source assigned"
	case StatePlaying:
		return "playing"
	case StateExhausted:
		return "exhausted"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Player is one logical audio emitter waiting for, or holding, a hardware
// source. The audio manager owns scheduling; the handle returned to the
// caller is only good for observation and control (stop, feed, query).
//
// FillNextData produces the next chunk in the *device* format; each variant
// does its own conversion from whatever its data source looks like.
type Player interface {
	ID() uuid.UUID
	State() State

	// Priority decides who loses their source when the pool runs dry.
	// Sounds use their current simulated volume, music a fixed sentinel
	// above any possible volume.
	Priority() float32

	// Gain is the volume the source should play this player at.
	Gain() float32

	// FillNextData writes the next device-format chunk into buf. It returns
	// ErrNoData to yield this turn and io.EOF when the data source is done.
	FillNextData(buf []byte) (int, error)

	// ResetCursor restarts the data source from the beginning.
	ResetCursor()

	AskRewind()
	TakeRewind() bool

	// Stop is idempotent and safe from any goroutine.
	Stop()

	AttachSource(s *backend.Source)
	DetachSource() *backend.Source
	Source() *backend.Source

	MarkExhausted()
	MarkPlaying()
}

// core carries the lifecycle state shared by every player variant.
type core struct {
	id     uuid.UUID
	logger *slog.Logger

	state  atomic.Int32
	source atomic.Pointer[backend.Source]
	rewind atomic.Bool
}

func newCore(kind string) core {
	id := uuid.New()
	return core{
		id:     id,
		logger: slog.Default().With(kind+" player uuid", id),
	}
}

func (c *core) ID() uuid.UUID { return c.id }

func (c *core) State() State {
	return State(c.state.Load())
}

func (c *core) Stop() {
	for {
		s := c.state.Load()
		if State(s) == StateStopped {
			return
		}
		if c.state.CompareAndSwap(s, int32(StateStopped)) {
			c.logger.Debug("player stopped")
			return
		}
	}
}

func (c *core) MarkExhausted() {
	for {
		s := c.state.Load()
		if State(s) == StateStopped || State(s) == StateExhausted {
			return
		}
		if c.state.CompareAndSwap(s, int32(StateExhausted)) {
			return
		}
	}
}

func (c *core) MarkPlaying() {
	for {
		s := c.state.Load()
		if State(s) != StateQueued && State(s) != StateSourceAssigned {
			return
		}
		if c.state.CompareAndSwap(s, int32(StatePlaying)) {
			return
		}
	}
}

func (c *core) AttachSource(s *backend.Source) {
	c.source.Store(s)
	c.state.CompareAndSwap(int32(StateQueued), int32(StateSourceAssigned))
}

func (c *core) DetachSource() *backend.Source {
	return c.source.Swap(nil)
}

func (c *core) Source() *backend.Source {
	return c.source.Load()
}

func (c *core) AskRewind() {
	c.rewind.Store(true)
}

// TakeRewind consumes a pending rewind request.
func (c *core) TakeRewind() bool {
	return c.rewind.Swap(false)
}

// ResetCursor is a no-op for variants without a rewindable cursor.
func (c *core) ResetCursor() {}

// --------------------------------------------------------------------------------

// chunker feeds fixed-size device chunks out of a format converter, carrying
// converted surplus over to the next call so nothing is dropped when the
// rate conversion does not land exactly on a chunk boundary.
type chunker struct {
	conv  *format.Converter
	src   []byte
	carry []byte
}

func newChunker(conv *format.Converter) chunker {
	return chunker{conv: conv}
}

// fill asks produce for raw source bytes, converts them, and writes up to
// len(out) device bytes. produce's error is passed through alongside
// whatever was still written.
func (c *chunker) fill(out []byte, produce func(dst []byte) (int, error)) (int, error) {
	n := copy(out, c.carry)
	c.carry = c.carry[n:]
	if n == len(out) {
		return n, nil
	}

	want := c.conv.SourceBytesFor(len(out) - n)
	if cap(c.src) < want {
		c.src = make([]byte, want)
	}

	m, err := produce(c.src[:want])
	if m > 0 {
		converted := c.conv.Convert(c.src[:m])
		w := copy(out[n:], converted)
		if w < len(converted) {
			c.carry = append(c.carry[:0], converted[w:]...)
		}
		n += w
	}
	return n, err
}

// reset drops any carried data, used on rewind.
func (c *chunker) reset() {
	c.carry = c.carry[:0]
}
