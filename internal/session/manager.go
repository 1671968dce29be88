package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clipdeck/clipdeck/internal/editor"
	"github.com/clipdeck/clipdeck/internal/events"
	"github.com/clipdeck/clipdeck/internal/logging"
)

var ErrNotFound = errors.New("session not found")

const DefaultTickInterval = time.Second

type Config struct {
	Store        MediaStore
	Events       events.Publisher
	Logger       *slog.Logger
	TickInterval time.Duration
}

// Manager tracks the live sessions of the service.
type Manager struct {
	store    MediaStore
	events   events.Publisher
	logger   *slog.Logger
	interval time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(cfg Config) *Manager {
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Manager{
		store:    cfg.Store,
		events:   cfg.Events,
		logger:   logging.WithComponent(cfg.Logger, "session"),
		interval: interval,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Create() *Session {
	id := uuid.NewString()
	s := &Session{
		id:        id,
		createdAt: time.Now(),
		interval:  m.interval,
		store:     m.store,
		events:    m.events,
		logger:    logging.WithSessionID(m.logger, id),
		state:     editor.New(),
	}
	m.events.Open(id)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	s.logger.Info("session created")
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	return s.Close()
}

// CloseAll closes every session, releasing their media.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(sessions) > 0 {
		m.logger.Info("closed sessions", "count", len(sessions))
	}
	return errors.Join(errs...)
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
