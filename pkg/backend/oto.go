package backend

import (
	"fmt"
	"log/slog"

	"github.com/ebitengine/oto/v3"
	"github.com/google/uuid"
	"github.com/smallnest/ringbuffer"
)

// OtoDevice plays through the host's audio output using oto. Every engine
// source maps to one oto player fed from a thread-safe ring buffer: Submit
// writes into the ring from the feed loop, oto's mixer goroutine drains it.
// A source that runs dry plays silence instead of stalling the mixer, which
// keeps the time-critical side free of locks held by anyone else.
//
// oto only allows one context per process, so only one OtoDevice can be
// opened over the lifetime of the program.
type OtoDevice struct {
	logger *slog.Logger
	uuid   uuid.UUID

	ctx     *oto.Context
	cfg     Config
	sources []*otoSource
	open    bool
}

type otoSource struct {
	ring        *ringbuffer.RingBuffer
	player      *oto.Player
	bufferBytes int
}

func NewOtoDevice(logger *slog.Logger) *OtoDevice {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New()
	return &OtoDevice{
		logger: logger.With("oto device uuid", id),
		uuid:   id,
	}
}

func (d *OtoDevice) Open(cfg Config) (int, error) {
	if d.open {
		return len(d.sources), nil
	}
	if !cfg.Format.SixteenBit {
		return 0, fmt.Errorf("oto device requires 16 bit output, got 8 bit")
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.Format.SampleRate,
		ChannelCount: cfg.Format.ChannelCount(),
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		d.logger.Error("could not open audio device", "err", err)
		return 0, fmt.Errorf("could not open audio device: %w", err)
	}
	<-ready

	d.ctx = ctx
	d.cfg = cfg
	d.sources = make([]*otoSource, cfg.SourceCount)
	for i := range d.sources {
		src := &otoSource{
			ring:        ringbuffer.New(cfg.BufferBytes() * NumBuffers),
			bufferBytes: cfg.BufferBytes(),
		}
		src.player = ctx.NewPlayer(src)
		src.player.Play()
		d.sources[i] = src
	}
	d.open = true

	if err := ctx.Suspend(); err != nil {
		d.logger.Warn("could not suspend fresh audio context", "err", err)
	}

	d.logger.Debug(
		"opened audio device",
		"sampleRate", cfg.Format.SampleRate,
		"channels", cfg.Format.ChannelCount(),
		"sources", cfg.SourceCount,
		"bufferFrames", cfg.BufferFrames,
	)
	return cfg.SourceCount, nil
}

func (d *OtoDevice) Close() error {
	if !d.open {
		return nil
	}
	for _, src := range d.sources {
		src.player.Close()
	}
	d.sources = nil
	d.open = false
	return nil
}

func (d *OtoDevice) Submit(source int, pcm []byte) error {
	src, err := d.source(source)
	if err != nil {
		return err
	}
	if src.ring.Free() < len(pcm) {
		return ErrBufferFull
	}
	_, err = src.ring.Write(pcm)
	return err
}

func (d *OtoDevice) BufferState(source int) (int, int) {
	src, err := d.source(source)
	if err != nil {
		return 0, 0
	}
	pending := (src.ring.Length() + src.bufferBytes - 1) / src.bufferBytes
	return NumBuffers - pending, pending
}

func (d *OtoDevice) SetGain(source int, gain float32) {
	src, err := d.source(source)
	if err != nil {
		return
	}
	src.player.SetVolume(float64(gain))
}

func (d *OtoDevice) Flush(source int) {
	src, err := d.source(source)
	if err != nil {
		return
	}
	src.ring.Reset()
}

func (d *OtoDevice) Suspend() error {
	if !d.open {
		return ErrDeviceClosed
	}
	return d.ctx.Suspend()
}

func (d *OtoDevice) Resume() error {
	if !d.open {
		return ErrDeviceClosed
	}
	return d.ctx.Resume()
}

func (d *OtoDevice) source(index int) (*otoSource, error) {
	if !d.open {
		return nil, ErrDeviceClosed
	}
	if index < 0 || index >= len(d.sources) {
		return nil, ErrInvalidSource
	}
	return d.sources[index], nil
}

// Read feeds oto's mixer goroutine. Whatever the ring cannot cover comes out
// as silence; underruns must never block the mixer.
func (s *otoSource) Read(p []byte) (int, error) {
	n, _ := s.ring.Read(p)
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}
