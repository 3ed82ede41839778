package memory

import (
	"errors"
	"sync"
	"time"

	"startup-standup-be/pkg/dialogue"

	"github.com/patrickmn/go-cache"
)

const (
	DefaultTTL             = 60 * time.Minute
	DefaultCleanupInterval = 5 * time.Minute
)

var ErrFull = errors.New("session registry is full")

// SessionRepository keeps live dialogue sessions in memory. Entries expire
// after ttl without activity; the janitor purges them every cleanupInterval.
type SessionRepository struct {
	mu          sync.Mutex
	cache       *cache.Cache
	maxSessions int
}

func NewSessionRepository(ttl, cleanupInterval time.Duration, maxSessions int) *SessionRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &SessionRepository{
		cache:       cache.New(ttl, cleanupInterval),
		maxSessions: maxSessions,
	}
}

// OnEvicted registers fn for expired and deleted sessions. go-cache runs it
// outside its own lock.
func (r *SessionRepository) OnEvicted(fn func(id string, session *dialogue.Session)) {
	r.cache.OnEvicted(func(key string, value interface{}) {
		if s, ok := value.(*dialogue.Session); ok {
			fn(key, s)
		}
	})
}

// Save inserts or refreshes a session. New sessions are refused with ErrFull
// once maxSessions live entries exist.
func (r *SessionRepository) Save(session *dialogue.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.cache.Get(session.ID); !found && r.maxSessions > 0 {
		if r.cache.ItemCount() >= r.maxSessions {
			r.cache.DeleteExpired()
		}
		if r.cache.ItemCount() >= r.maxSessions {
			return ErrFull
		}
	}
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) Get(sessionID string) (*dialogue.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*dialogue.Session), true
	}
	return nil, false
}

// Touch restarts the TTL of an existing session.
func (r *SessionRepository) Touch(session *dialogue.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.cache.Get(session.ID); found {
		r.cache.Set(session.ID, session, cache.DefaultExpiration)
	}
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

// Purge drops expired sessions now instead of waiting for the janitor.
func (r *SessionRepository) Purge() {
	r.cache.DeleteExpired()
}
