package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/camuig/whale-dashboard/internal/metrics"
	"github.com/camuig/whale-dashboard/internal/view"
)

const sessionCookie = "whale_session"

// DashboardFactory builds the view set for a new session.
type DashboardFactory func() *view.Dashboard

type session struct {
	dashboard *view.Dashboard
	lastSeen  time.Time
}

// Sessions maps cookie ids to in-memory dashboards. Nothing outlives the process.
// At most limit sessions are live; beyond that the least recently seen is evicted.
type Sessions struct {
	mu      sync.Mutex
	ttl     time.Duration
	limit   int
	factory DashboardFactory
	items   map[string]*session
	now     func() time.Time
}

// NewSessions builds an empty store. limit <= 0 means unbounded.
func NewSessions(ttl time.Duration, limit int, factory DashboardFactory) *Sessions {
	return &Sessions{
		ttl:     ttl,
		limit:   limit,
		factory: factory,
		items:   make(map[string]*session),
		now:     time.Now,
	}
}

// Get returns the dashboard for id, creating a fresh session when id is
// unknown or expired. The returned id is the one the client must keep.
func (s *Sessions) Get(id string) (string, *view.Dashboard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sess, ok := s.items[id]; ok && !s.expired(sess, now) {
		sess.lastSeen = now
		return id, sess.dashboard, false
	}
	delete(s.items, id)
	s.makeRoom(now)

	id = uuid.NewString()
	sess := &session{dashboard: s.factory(), lastSeen: now}
	s.items[id] = sess
	metrics.SetSessions(len(s.items))
	return id, sess.dashboard, true
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.items {
		if s.expired(sess, now) {
			delete(s.items, id)
			removed++
		}
	}
	metrics.SetSessions(len(s.items))
	return removed
}

// makeRoom drops expired sessions, then the least recently seen ones, until
// one more fits. The caller holds s.mu.
func (s *Sessions) makeRoom(now time.Time) {
	if s.limit <= 0 || len(s.items) < s.limit {
		return
	}
	for id, sess := range s.items {
		if s.expired(sess, now) {
			delete(s.items, id)
		}
	}
	for len(s.items) >= s.limit {
		var oldestID string
		var oldest time.Time
		for id, sess := range s.items {
			if oldestID == "" || sess.lastSeen.Before(oldest) {
				oldestID, oldest = id, sess.lastSeen
			}
		}
		delete(s.items, oldestID)
	}
}

func (s *Sessions) expired(sess *session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl
}

func (s *Sessions) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
