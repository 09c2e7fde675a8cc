package player

import (
	"errors"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/forgeflow-zz/alephone/pkg/decoder"
	"github.com/forgeflow-zz/alephone/pkg/format"
)

// MusicPriority sits above the maximum possible simulated volume (1), so
// music is never evicted in favor of a sound.
const MusicPriority float32 = 5

var defaultMusicVolume atomic.Uint32

func init() {
	SetDefaultMusicVolume(1)
}

func SetDefaultMusicVolume(v float32) {
	defaultMusicVolume.Store(math.Float32bits(v))
}

func DefaultMusicVolume() float32 {
	return math.Float32frombits(defaultMusicVolume.Load())
}

// MusicPlayer streams a music track out of a decoder. No identity, no dedup,
// fixed priority above all sounds.
type MusicPlayer struct {
	core

	mu   sync.Mutex
	dec  decoder.StreamDecoder
	loop bool
	ck   chunker
}

func NewMusicPlayer(dec decoder.StreamDecoder, deviceFormat format.AudioFormat, loop bool) *MusicPlayer {
	return &MusicPlayer{
		core: newCore("music"),
		dec:  dec,
		loop: loop,
		ck:   newChunker(format.NewConverter(dec.Format(), deviceFormat)),
	}
}

func (p *MusicPlayer) Priority() float32 {
	return MusicPriority
}

func (p *MusicPlayer) Gain() float32 {
	return DefaultMusicVolume()
}

func (p *MusicPlayer) FillNextData(out []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ck.fill(out, func(dst []byte) (int, error) {
		n, err := p.dec.Decode(dst)
		if p.loop && errors.Is(err, io.EOF) {
			if rewErr := p.dec.Rewind(); rewErr != nil {
				p.logger.Warn("could not rewind looping music", "err", rewErr)
				return n, io.EOF
			}
			return n, nil
		}
		return n, err
	})
}

func (p *MusicPlayer) ResetCursor() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.dec.Rewind(); err != nil {
		p.logger.Warn("could not rewind music decoder", "err", err)
	}
	p.ck.reset()
}
