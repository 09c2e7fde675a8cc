package audiomanager

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/forgeflow-zz/alephone/pkg/backend"
	"github.com/forgeflow-zz/alephone/pkg/player"
)

// queuePassInterval paces the feed goroutine between full passes over the
// queue, enough to refill staging buffers well ahead of the device without
// busy-spinning.
const queuePassInterval = 30 * time.Millisecond

// processAudioQueue is the feed goroutine: one turn per iteration, a short
// sleep after every full pass. Cancellation is cooperative, checked once per
// turn, so Stop can join deterministically.
func (m *Manager) processAudioQueue(ctx context.Context) {
	defer m.wg.Done()

	iteration := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		m.consumeAudioQueue()
		iteration++

		if iteration > m.QueueLen() {
			iteration = 0
			select {
			case <-ctx.Done():
				return
			case <-time.After(queuePassInterval):
			}
		}
	}
}

// consumeAudioQueue runs one scheduling turn on the queue head.
//
// A head that is done (stopped, or exhausted and drained) gives its source
// back and leaves the queue for good. Any other head goes to the tail whether
// or not it managed to submit data this turn; a starved player yields rather
// than blocking the loop.
func (m *Manager) consumeAudioQueue() {
	m.playerMu.Lock()
	defer m.playerMu.Unlock()

	if len(m.players) == 0 {
		return
	}
	p := m.players[0]
	m.players = m.players[1:]

	if !m.runTurn(p) {
		m.retrieveSource(p)
		return
	}

	// We have just processed a part of the data for you, now wait your next turn.
	m.players = append(m.players, p)
}

// runTurn reports whether p stays in the queue. Called with playerMu held.
func (m *Manager) runTurn(p player.Player) bool {
	switch p.State() {
	case player.StateStopped:
		return false
	case player.StateExhausted:
		// Keep the player around until the device has drained what it
		// already staged.
		if src := p.Source(); src != nil {
			if _, pending := src.BufferState(); pending > 0 {
				return true
			}
		}
		return false
	}

	if !m.assignSource(p) {
		return true
	}
	m.prepareSourceIdle(p)
	m.feedSource(p)

	// A concurrent Stop during the turn still has its source released on the
	// next visit.
	return true
}

// prepareSourceIdle brings the player's source to a ready state for this
// turn: apply a pending rewind and refresh the gain from the current
// simulated volume.
func (m *Manager) prepareSourceIdle(p player.Player) {
	src := p.Source()
	if p.TakeRewind() {
		src.Flush()
		p.ResetCursor()
	}
	src.SetGain(p.Gain() * m.DefaultVolume())
}

// feedSource submits at most one staging buffer's worth of data.
func (m *Manager) feedSource(p player.Player) {
	src := p.Source()
	if _, pending := src.BufferState(); pending >= backend.NumBuffers {
		return
	}

	n, err := p.FillNextData(m.scratch)
	if n > 0 {
		if submitErr := src.Submit(m.scratch[:n]); submitErr != nil {
			m.logger.Debug("could not submit audio chunk", "player uuid", p.ID(), "err", submitErr)
		} else {
			p.MarkPlaying()
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, player.ErrNoData):
		// Producer underrun; retry next turn.
	case errors.Is(err, io.EOF):
		p.MarkExhausted()
	default:
		m.logger.Warn("player data source failed", "player uuid", p.ID(), "err", err)
		p.Stop()
	}
}

// RenderInto drives the offline render path: one scheduling turn per queued
// player, then pull the mixed result from the device. Returns the frame
// count produced, or zero when the device cannot render.
func (m *Manager) RenderInto(out []byte, frameCount int) int {
	r, ok := m.dev.(backend.Renderer)
	if !ok {
		return 0
	}

	passLength := m.QueueLen()
	for i := 0; i < passLength; i++ {
		m.consumeAudioQueue()
	}
	return r.Render(out, frameCount)
}
