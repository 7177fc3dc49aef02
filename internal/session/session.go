// -----------------------------------------------------------------------
// Session - the one loaded document, its index and its question history
// -----------------------------------------------------------------------

package session

import (
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/models"
	"github.com/senpaisaul/multimodal-rag/internal/services/index"
)

// ErrNoSession is returned when no document has been loaded
var ErrNoSession = errors.New("no document loaded")

// Session is the state created by one successful upload
type Session struct {
	ID        string
	Document  models.DocumentInfo
	Index     *index.Index
	CreatedAt time.Time

	mu      sync.RWMutex
	history []models.Turn
	readers sync.WaitGroup // queries still using Index
}

// New creates a session for an indexed document
func New(id string, doc models.DocumentInfo, idx *index.Index) *Session {
	return &Session{
		ID:        id,
		Document:  doc,
		Index:     idx,
		CreatedAt: time.Now(),
	}
}

// History returns a copy of the turns in the order they were asked
func (s *Session) History() []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Turn, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) addTurn(turn models.Turn) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	s.mu.Lock()
	s.history = append(s.history, turn)
	s.mu.Unlock()
}

// Manager holds at most one session. Loading a new document replaces the old
// session as a whole; there is no appending to an existing index.
type Manager struct {
	mu      sync.RWMutex
	current *Session
	logger  arbor.ILogger
}

// NewManager creates an empty session manager
func NewManager(logger arbor.ILogger) *Manager {
	return &Manager{logger: logger}
}

// Replace installs s as the current session and releases the previous index
// once queries that acquired it have finished
func (m *Manager) Replace(s *Session) {
	m.mu.Lock()
	previous := m.current
	m.current = s
	m.mu.Unlock()

	if previous != nil {
		m.release(previous)
	}

	m.logger.Info().
		Str("session_id", s.ID).
		Str("document", s.Document.Name).
		Int("records", s.Index.Len()).
		Msg("Session replaced")
}

// Current returns the current session or ErrNoSession
func (m *Manager) Current() (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, ErrNoSession
	}
	return m.current, nil
}

// Acquire returns the current session for a query. The index stays open until
// done is called, even if the session is replaced or cleared meanwhile.
func (m *Manager) Acquire() (s *Session, done func(), err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, nil, ErrNoSession
	}
	s = m.current
	s.readers.Add(1)
	var once sync.Once
	return s, func() { once.Do(s.readers.Done) }, nil
}

// Clear tears the current session down. Clearing an empty manager returns ErrNoSession.
func (m *Manager) Clear() error {
	m.mu.Lock()
	previous := m.current
	m.current = nil
	m.mu.Unlock()

	if previous == nil {
		return ErrNoSession
	}
	m.release(previous)
	m.logger.Info().Str("session_id", previous.ID).Msg("Session cleared")
	return nil
}

// AddTurn records a turn on the session with the given ID. Turns for a session
// that has since been replaced are dropped and ErrNoSession is returned.
func (m *Manager) AddTurn(sessionID string, turn models.Turn) error {
	m.mu.RLock()
	current := m.current
	m.mu.RUnlock()

	if current == nil || current.ID != sessionID {
		return ErrNoSession
	}
	current.addTurn(turn)
	return nil
}

// release waits for in-flight queries, then closes the index.
// No reader can acquire s any more: it is no longer current.
func (m *Manager) release(s *Session) {
	s.readers.Wait()
	if s.Index == nil {
		return
	}
	if err := s.Index.Close(); err != nil {
		m.logger.Warn().Err(err).Str("session_id", s.ID).Msg("Failed to release index")
	}
}
