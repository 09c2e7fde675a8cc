package audiomanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/forgeflow-zz/alephone/pkg/backend"
	"github.com/forgeflow-zz/alephone/pkg/decoder"
	"github.com/forgeflow-zz/alephone/pkg/format"
	"github.com/forgeflow-zz/alephone/pkg/player"
	"github.com/forgeflow-zz/alephone/pkg/spatial"
)

// abortAmplitudeThreshold is the hysteresis applied to the rewind decision: a
// matching request only restarts an already-playing sound when its simulated
// volume beats the old one by less than this margin below. Admission itself
// carries no threshold, which keeps rapid re-triggers from popping audibly.
const abortAmplitudeThreshold float32 = 0.1

var errNoSources = errors.New("audio device granted no sources")

// Config carries the playback session settings.
type Config struct {
	Format format.AudioFormat

	// SourceCount is how many simultaneous hardware sources to ask the
	// device for. The device may grant fewer.
	SourceCount int

	// BufferFrames is the size of one staging buffer in frames; each turn of
	// the feed loop submits at most one buffer per player.
	BufferFrames int

	// Volume is the master gain applied on top of every player's own gain.
	Volume float32

	// BalanceRewind selects the volume-compared rewind rule for 3D sounds.
	// When false any matching request rewinds unconditionally.
	BalanceRewind bool
}

func DefaultConfig() Config {
	return Config{
		Format:        format.AudioFormat{SampleRate: 44100, Stereo: true, SixteenBit: true},
		SourceCount:   32,
		BufferFrames:  1024,
		Volume:        1,
		BalanceRewind: true,
	}
}

// Manager multiplexes any number of logical players onto the fixed set of
// sources a device grants, spatializing 3D sounds against the listener and
// evicting the quietest player when sources run out.
//
// Two locks guard disjoint state: playerMu the pending/active player queue,
// sourceMu the idle source pool. Where both are needed the queue lock is
// taken first, never the other way around.
type Manager struct {
	logger *slog.Logger
	cfg    Config
	dev    backend.Device

	playerMu sync.Mutex
	players  []player.Player

	sourceMu   sync.Mutex
	sourcePool []*backend.Source

	listener      spatial.ListenerStore
	defaultVolume atomic.Uint32

	consuming atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	// Scratch chunk for the feed loop; only ever touched by whichever
	// single goroutine is driving the queue.
	scratch []byte
}

// New opens the device and builds the source pool from however many sources
// it granted. A failed open leaves the system without audio; there is no
// automatic retry.
func New(dev backend.Device, cfg Config, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	granted, err := dev.Open(backend.Config{
		Format:       cfg.Format,
		SourceCount:  cfg.SourceCount,
		BufferFrames: cfg.BufferFrames,
	})
	if err != nil {
		logger.Error("could not open playing device", "err", err)
		return nil, fmt.Errorf("could not open playing device: %w", err)
	}
	if granted <= 0 {
		dev.Close()
		return nil, errNoSources
	}

	m := &Manager{
		logger:  logger,
		cfg:     cfg,
		dev:     dev,
		scratch: make([]byte, cfg.BufferFrames*cfg.Format.BytesPerFrame()),
	}
	for i := range granted {
		m.sourcePool = append(m.sourcePool, backend.NewSource(dev, i))
	}
	m.SetDefaultVolume(cfg.Volume)

	logger.Debug("audio manager ready", "sources", granted, "sampleRate", cfg.Format.SampleRate)
	return m, nil
}

// Start begins consuming the player queue. With a hardware device this spawns
// the feed goroutine; with a Renderer device the queue is paced by RenderInto
// calls instead and no goroutine runs.
func (m *Manager) Start() {
	if !m.consuming.CompareAndSwap(false, true) {
		return
	}

	if err := m.dev.Resume(); err != nil {
		m.logger.Warn("could not resume audio device", "err", err)
	}
	if _, pullDriven := m.dev.(backend.Renderer); pullDriven {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go m.processAudioQueue(ctx)
}

// Stop halts the feed goroutine, waits for it to finish its turn, pauses the
// device and tears down every player. Joining before touching the pool keeps
// the feed loop from ever observing a half-dismantled source set.
func (m *Manager) Stop() {
	if m.consuming.CompareAndSwap(true, false) {
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		m.wg.Wait()
		if err := m.dev.Suspend(); err != nil {
			m.logger.Warn("could not suspend audio device", "err", err)
		}
	}
	m.StopAllPlayers()
}

func (m *Manager) Close() error {
	m.Stop()
	return m.dev.Close()
}

// --------------------------------------------------------------------------------
// Listener and volume

// UpdateListener publishes a new listener snapshot for all subsequent volume
// and priority computations. Safe to call every simulation tick.
func (m *Manager) UpdateListener(l spatial.Listener) {
	m.listener.Update(l)
}

func (m *Manager) Listener() spatial.Listener {
	return m.listener.Get()
}

func (m *Manager) SetDefaultVolume(v float32) {
	m.defaultVolume.Store(math.Float32bits(v))
}

func (m *Manager) DefaultVolume() float32 {
	return math.Float32frombits(m.defaultVolume.Load())
}

// --------------------------------------------------------------------------------
// Playback requests

// PlaySound admits, deduplicates and queues one sound playback request.
//
// A nil return means the sound is not playing: either the manager is not
// consuming, or the simulated volume came out at zero and the request was
// dropped before a player existed. Neither is an error.
//
// A non-nil return is no promise of immediate playback; a sound that cannot
// win a source simply plays later or never.
func (m *Manager) PlaySound(data []byte, srcFormat format.AudioFormat, params spatial.SoundParameters) *player.SoundPlayer {
	if !m.consuming.Load() {
		return nil
	}
	volume := spatial.SimulatedVolume(params, m.listener.Get())
	if volume <= 0 {
		return nil
	}

	// Same logical sound already playing? Rewind it instead of doubling up.
	if params.Flags&spatial.FlagDoesNotSelfAbort == 0 {
		identifierOnly := params.Flags&spatial.FlagCannotBeRestarted != 0
		if existing := m.soundPlayerFor(params.Identifier, params.SourceIdentifier, identifierOnly); existing != nil {
			if params.Flags&spatial.FlagCannotBeRestarted == 0 && m.shouldRewind(existing, params, volume) {
				existing.AskRewind()
				existing.UpdateParameters(params)
			}
			return existing
		}
	}

	p := player.NewSoundPlayer(data, srcFormat, m.cfg.Format, params, &m.listener)
	m.queuePlayer(p)
	return p
}

// PlayMusic queues a music track fed by the given decoder. Music never
// deduplicates and always outranks sounds for a source.
func (m *Manager) PlayMusic(dec decoder.StreamDecoder, loop bool) *player.MusicPlayer {
	if !m.consuming.Load() {
		return nil
	}
	p := player.NewMusicPlayer(dec, m.cfg.Format, loop)
	m.queuePlayer(p)
	return p
}

// PlayStream queues a push-fed stream primed with initial. The caller keeps
// feeding data through the returned player.
func (m *Manager) PlayStream(initial []byte, srcFormat format.AudioFormat) *player.StreamPlayer {
	if !m.consuming.Load() {
		return nil
	}
	p := player.NewStreamPlayer(initial, srcFormat, m.cfg.Format)
	m.queuePlayer(p)
	return p
}

// PlayCallbackStream queues a stream that pulls its data from cb at the feed
// loop's own cadence, at most chunkLength source bytes per turn.
func (m *Manager) PlayCallbackStream(cb player.PullCallback, chunkLength int, srcFormat format.AudioFormat) *player.CallbackPlayer {
	if !m.consuming.Load() {
		return nil
	}
	p := player.NewCallbackPlayer(cb, chunkLength, srcFormat, m.cfg.Format)
	m.queuePlayer(p)
	return p
}

// StopSound stops the active sound with this identity, if any.
func (m *Manager) StopSound(identifier int16, sourceIdentifier int16) {
	if p := m.soundPlayerFor(identifier, sourceIdentifier, false); p != nil {
		p.Stop()
	}
}

// StopAllPlayers returns every held source to the pool and empties the queue.
func (m *Manager) StopAllPlayers() {
	m.playerMu.Lock()
	defer m.playerMu.Unlock()

	for _, p := range m.players {
		m.retrieveSource(p)
	}
	m.players = nil
}

// QueueLen reports how many players are pending or active.
func (m *Manager) QueueLen() int {
	m.playerMu.Lock()
	defer m.playerMu.Unlock()
	return len(m.players)
}

// --------------------------------------------------------------------------------

func (m *Manager) queuePlayer(p player.Player) {
	m.playerMu.Lock()
	defer m.playerMu.Unlock()
	m.players = append(m.players, p)
}

// soundPlayerFor finds an active sound with this identity. A sound is unique
// by sound identifier plus source identifier; identifierOnly widens the match
// to the sound identifier alone.
func (m *Manager) soundPlayerFor(identifier int16, sourceIdentifier int16, identifierOnly bool) *player.SoundPlayer {
	if identifier == spatial.NoIdentifier {
		return nil
	}

	m.playerMu.Lock()
	defer m.playerMu.Unlock()
	for _, q := range m.players {
		sp, ok := q.(*player.SoundPlayer)
		if !ok || sp.State() == player.StateStopped {
			continue
		}
		if sp.Identifier() != identifier {
			continue
		}
		if identifierOnly || sp.SourceIdentifier() == sourceIdentifier {
			return sp
		}
	}
	return nil
}

// shouldRewind applies the restart rule to a deduplicated request. Two
// historical variants exist and both are kept behind BalanceRewind: the
// balanced rule only restarts a 3D sound when the new request would be at
// least about as loud as what is already playing; the unbalanced rule (and
// any local sound) restarts unconditionally.
func (m *Manager) shouldRewind(existing *player.SoundPlayer, params spatial.SoundParameters, volume float32) bool {
	if !m.cfg.BalanceRewind || params.Local {
		return true
	}
	return volume+abortAmplitudeThreshold > existing.SimulatedVolume()
}
