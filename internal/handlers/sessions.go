package handlers

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/cristianadrielbraun/tonttukioski/internal/metrics"
	"github.com/cristianadrielbraun/tonttukioski/internal/wizard"
)

// SessionCookie identifies the kiosk session of a browser.
const SessionCookie = "kiosk_session"

// Session pairs a wizard machine with the camera release signal for the
// browser that owns it.
type Session struct {
	ID       string
	Machine  *wizard.Machine
	released atomic.Bool
}

// takeRelease reports whether the camera was released since the last call.
func (s *Session) takeRelease() bool {
	return s.released.Swap(false)
}

// Sessions holds the most recently used sessions. Evicted sessions are
// closed, which cancels their in-flight transformation.
type Sessions struct {
	mu     sync.Mutex
	cache  *lru.Cache[string, *Session]
	opts   wizard.Options
	logger zerolog.Logger
}

func NewSessions(size int, opts wizard.Options) (*Sessions, error) {
	s := &Sessions{opts: opts, logger: opts.Logger}
	cache, err := lru.NewWithEvict[string, *Session](size, func(id string, sess *Session) {
		sess.Machine.Close()
		metrics.ActiveSessions.Dec()
		s.logger.Debug().Str("session", id).Msg("session closed")
	})
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// Get returns the session named by the request cookie, starting a new one
// when the cookie is missing or its session was evicted.
func (s *Sessions) Get(c *gin.Context) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, err := c.Cookie(SessionCookie); err == nil {
		if sess, ok := s.cache.Get(id); ok {
			return sess
		}
	}

	sess := &Session{ID: uuid.NewString()}
	opts := s.opts
	opts.Logger = s.logger.With().Str("session", sess.ID).Logger()
	opts.OnCameraRelease = func() { sess.released.Store(true) }
	sess.Machine = wizard.New(opts)
	s.cache.Add(sess.ID, sess)
	metrics.ActiveSessions.Inc()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, sess.ID, 0, "/", "", false, true)
	return sess
}

func (s *Sessions) Len() int {
	return s.cache.Len()
}

// Close closes every session.
func (s *Sessions) Close() {
	s.cache.Purge()
}
