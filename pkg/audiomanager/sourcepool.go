package audiomanager

import (
	"github.com/forgeflow-zz/alephone/pkg/backend"
	"github.com/forgeflow-zz/alephone/pkg/player"
)

// Generating device sources on demand is slow and the maximum simultaneous
// count is known at open time, so the manager keeps the full fixed set in a
// pool and hands sources out per player.

// pickAvailableSource pops an idle source, or nil when none is free.
func (m *Manager) pickAvailableSource() *backend.Source {
	m.sourceMu.Lock()
	defer m.sourceMu.Unlock()

	if len(m.sourcePool) == 0 {
		return nil
	}
	src := m.sourcePool[0]
	m.sourcePool = m.sourcePool[1:]
	return src
}

func (m *Manager) returnSource(src *backend.Source) {
	m.sourceMu.Lock()
	defer m.sourceMu.Unlock()
	m.sourcePool = append(m.sourcePool, src)
}

// retrieveSource takes p's source back into the pool and stops p.
// Called with playerMu held; the pool lock nests inside, never the reverse.
func (m *Manager) retrieveSource(p player.Player) {
	if src := p.DetachSource(); src != nil {
		src.Flush()
		m.returnSource(src)
	}
	p.Stop()
}

// assignSource makes sure p holds a source, evicting the lowest-priority
// holder if the pool is dry and p outranks it. Returns false when p stays
// source-less this turn. Called with playerMu held.
func (m *Manager) assignSource(p player.Player) bool {
	if p.Source() != nil {
		return true
	}

	if src := m.pickAvailableSource(); src != nil {
		p.AttachSource(src)
		return true
	}

	victim, victimPriority := m.lowestPriorityHolder()
	if victim == nil || victimPriority >= p.Priority() {
		return false
	}

	m.logger.Debug(
		"evicting player for a louder one",
		"victim uuid", victim.ID(),
		"victim priority", victimPriority,
		"requester uuid", p.ID(),
		"requester priority", p.Priority(),
	)

	src := victim.DetachSource()
	victim.Stop()
	src.Flush()
	p.AttachSource(src)
	return true
}

// lowestPriorityHolder scans the queue for the quietest player currently
// holding a source. Called with playerMu held.
func (m *Manager) lowestPriorityHolder() (player.Player, float32) {
	var victim player.Player
	var lowest float32
	for _, q := range m.players {
		if q.Source() == nil {
			continue
		}
		if priority := q.Priority(); victim == nil || priority < lowest {
			victim = q
			lowest = priority
		}
	}
	return victim, lowest
}
