package reactions

import (
	"strings"
	"sync"
	"time"

	"github.com/ecopool/league-server/internal/obslog"
	"go.uber.org/zap"
)

const (
	DefaultDisplaySeconds = 5
	DefaultMaxReactions   = 20

	rateLimitWindow = 2 * time.Second
	rateSweepAfter  = 5 * time.Minute
	maxSenderLen    = 20
)

// Reaction is one spectator reaction shown on the overlay.
type Reaction struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Emoji     string    `json:"emoji"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	ExpiresAt time.Time `json:"-"`
}

// Manager keeps a bounded ring of recent reactions and rate-limits senders
// per client IP.
type Manager struct {
	catalog    *Catalog
	displayTTL time.Duration
	max        int

	mu        sync.Mutex
	nextID    int64
	ring      []Reaction
	lastByIP  map[string]time.Time
	callbacks []func(Reaction)

	now func() time.Time
}

func NewManager(catalog *Catalog, displaySeconds, maxReactions int) *Manager {
	if displaySeconds <= 0 {
		displaySeconds = DefaultDisplaySeconds
	}
	if maxReactions <= 0 {
		maxReactions = DefaultMaxReactions
	}
	return &Manager{
		catalog:    catalog,
		displayTTL: time.Duration(displaySeconds) * time.Second,
		max:        maxReactions,
		lastByIP:   make(map[string]time.Time),
		now:        time.Now,
	}
}

// OnReaction registers a callback fired for each accepted reaction.
func (m *Manager) OnReaction(fn func(Reaction)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Add records a reaction. It returns nil for unknown types and for
// rate-limited senders.
func (m *Manager) Add(reactionType, sender, clientIP string) *Reaction {
	tmpl, ok := m.catalog.Lookup(reactionType)
	if !ok {
		return nil
	}
	sender = strings.TrimSpace(sender)
	if sender == "" {
		sender = "Anonymous"
	}
	if len(sender) > maxSenderLen {
		sender = sender[:maxSenderLen]
	}

	m.mu.Lock()
	now := m.now()

	if clientIP != "" {
		if last, seen := m.lastByIP[clientIP]; seen && now.Sub(last) < rateLimitWindow {
			m.mu.Unlock()
			obslog.L().Debug("reaction_rate_limited", zap.String("client_ip", clientIP))
			return nil
		}
		m.lastByIP[clientIP] = now
		for ip, at := range m.lastByIP {
			if now.Sub(at) > rateSweepAfter {
				delete(m.lastByIP, ip)
			}
		}
	}

	m.nextID++
	r := Reaction{
		ID:        m.nextID,
		Type:      reactionType,
		Emoji:     tmpl.Emoji,
		Text:      tmpl.Text,
		Sender:    sender,
		Timestamp: now,
		ExpiresAt: now.Add(m.displayTTL),
	}
	m.ring = append(m.ring, r)
	if len(m.ring) > m.max {
		m.ring = m.ring[len(m.ring)-m.max:]
	}
	cbs := make([]func(Reaction), len(m.callbacks))
	copy(cbs, m.callbacks)
	m.mu.Unlock()

	for _, fn := range cbs {
		fn(r)
	}
	return &r
}

// Active returns the reactions that have not yet expired, oldest first.
func (m *Manager) Active() []Reaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	out := make([]Reaction, 0, len(m.ring))
	for _, r := range m.ring {
		if r.ExpiresAt.After(now) {
			out = append(out, r)
		}
	}
	return out
}

// Types lists the available reaction type keys.
func (m *Manager) Types() []string { return m.catalog.Types() }

// Clear drops all reactions, keeping rate-limit state.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ring = nil
}
