package server

import (
	"net/http"
	"sync"
	"time"

	"killstats/internal/constants"
	"killstats/internal/controller"
	"killstats/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const sessionCookie = "killstats_session"

type sessionKey struct {
	id     string
	entity domain.Entity
}

type session struct {
	ctrl     *controller.Controller
	lastSeen time.Time
	started  bool
}

// SessionStore keeps one controller per viewer and entity. When full, the
// least recently seen session makes room for a new one.
type SessionStore struct {
	source controller.Source
	now    func() time.Time
	limit  int
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[sessionKey]*session
}

func NewSessionStore(source controller.Source, logger zerolog.Logger) *SessionStore {
	return &SessionStore{
		source:   source,
		now:      time.Now,
		limit:    constants.MaxSessions,
		logger:   logger,
		sessions: make(map[sessionKey]*session),
	}
}

// SessionID returns the viewer's session id, issuing a cookie when the
// request has none.
func SessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// Get returns the controller for session id and entity, creating it on
// first use. fresh is true until the first caller marks it started.
func (s *SessionStore) Get(id string, entity domain.Entity) (ctrl *controller.Controller, fresh bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{id: id, entity: entity}
	sess, ok := s.sessions[key]
	if !ok {
		c, err := controller.New(entity, s.source, s.now(), s.logger.With().Str("session", id).Logger())
		if err != nil {
			return nil, false, err
		}
		if len(s.sessions) >= s.limit {
			s.evictOldestLocked()
		}
		sess = &session{ctrl: c}
		s.sessions[key] = sess
		s.logger.Debug().Str("session", id).Str("entity", entity.String()).Msg("session created")
	}
	sess.lastSeen = s.now()
	fresh = !sess.started
	sess.started = true
	return sess.ctrl, fresh, nil
}

func (s *SessionStore) evictOldestLocked() {
	var (
		oldest sessionKey
		seen   time.Time
		found  bool
	)
	for k, sess := range s.sessions {
		if !found || sess.lastSeen.Before(seen) {
			oldest, seen, found = k, sess.lastSeen, true
		}
	}
	if found {
		delete(s.sessions, oldest)
		s.logger.Debug().Str("session", oldest.id).Msg("session store full, evicted oldest")
	}
}

// Sweep drops sessions idle for longer than ttl and returns how many went.
func (s *SessionStore) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	n := 0
	for k, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, k)
			n++
		}
	}
	if n > 0 {
		s.logger.Debug().Int("evicted", n).Int("remaining", len(s.sessions)).Msg("idle sessions evicted")
	}
	return n
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
