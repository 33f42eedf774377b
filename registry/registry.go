// Package registry implements the session registry from spec.md §4.1:
// a process-wide map from session id to in-memory *session.Session,
// lazy-loaded from the durable store, with idle-session eviction.
//
// The map lock is held only for lookup/insert, never across I/O
// (spec §5). Idle eviction is armed/disarmed through
// jellydator/ttlcache/v3 — a plain TTL clock, not a full cache: the
// real session lives in the registry's own map, the ttlcache instance
// only ever holds a sentinel value per id and exists to fire a
// callback once the eviction delay (60s by default) has passed since
// the id was last armed without an intervening disarm.
package registry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/inkboard/boardserver/idgen"
	"github.com/inkboard/boardserver/models"
	"github.com/inkboard/boardserver/session"
	"github.com/inkboard/boardserver/store"
)

// EvictionDelay is the single idle-eviction policy constant spec §4.1
// names: a session is dropped from the registry >= 60s after its
// subscriber set empties out and stays empty.
const EvictionDelay = 60 * time.Second

// Registry owns the id -> *session.Session map.
type Registry struct {
	store store.Store

	mu       sync.Mutex
	sessions map[string]*session.Session

	evictionClock *ttlcache.Cache[string, struct{}]
}

// New constructs a Registry backed by st, using the standard 60s
// idle-eviction delay.
func New(st store.Store) *Registry {
	return NewWithEvictionDelay(st, EvictionDelay)
}

// NewWithEvictionDelay is New with an overridable eviction delay, for
// callers (tests, ops tuning) that don't want the standard 60s policy.
func NewWithEvictionDelay(st store.Store, delay time.Duration) *Registry {
	r := &Registry{
		store:    st,
		sessions: make(map[string]*session.Session),
	}

	r.evictionClock = ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](delay),
	)
	r.evictionClock.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, struct{}]) {
		if reason != ttlcache.EvictionReasonExpired {
			// Deleted/overwritten means a re-reference disarmed the
			// timer before it fired; nothing to do.
			return
		}
		r.tryEvict(item.Key())
	})
	go r.evictionClock.Start()

	return r
}

// disarm cancels any pending eviction timer for id — the "re-entry
// before the delay cancels the eviction" rule in spec §4.1. Safe to
// call even if no timer is armed.
func (r *Registry) disarm(id string) {
	r.evictionClock.Delete(id)
}

// ScheduleEviction arms an eviction timer for id that runs for the
// registry's eviction delay (EvictionDelay unless constructed with
// NewWithEvictionDelay). It is the
// callback a Session invokes (via onIdle) when its subscriber set
// empties out.
func (r *Registry) ScheduleEviction(id string) {
	r.evictionClock.Set(id, struct{}{}, ttlcache.DefaultTTL)
}

func (r *Registry) tryEvict(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return
	}
	if s.SubscriberCount() != 0 {
		// Re-attached between the timer firing and us taking the
		// lock; leave it be. The attach path already disarmed us, but
		// the ttlcache callback can race the disarm by a hair — this
		// recheck is the backstop spec §4.1 describes ("on fire, if
		// the session still has zero subscribers").
		return
	}
	delete(r.sessions, id)
	s.Stop()
}

// Get returns the session for id if it is loaded in memory or exists
// in the store, without creating it (spec §4.1 get). Returns false if
// neither has it.
func (r *Registry) Get(id string) (*session.Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		r.disarm(id)
		return s, true
	}

	rec, err := r.store.Get(id)
	if err != nil {
		return nil, false
	}
	return r.load(id, rec), true
}

// GetOrCreate returns the existing in-memory session, rehydrates one
// from the store, or synthesizes and persists a brand-new empty
// session (spec §4.1 get_or_create).
func (r *Registry) GetOrCreate(id string) *session.Session {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		r.disarm(id)
		return s
	}

	rec, err := r.store.Get(id)
	if err == nil {
		return r.load(id, rec)
	}

	rec = models.Session{ID: id, CreatedAt: time.Now().UnixMilli(), Elements: []models.Element{}}
	if err := r.store.Put(rec); err != nil {
		log.Printf("registry: failed to persist new session %s: %v", id, err)
	}
	return r.load(id, rec)
}

// Create mints a brand-new session id, persists its empty skeleton,
// and returns the live Session (used by the HTTP `/` root redirect in
// spec §6.2).
func (r *Registry) Create() *session.Session {
	id := idgen.NewSessionID()
	return r.GetOrCreate(id)
}

// load installs rec into the in-memory map under a fresh Session
// actor, unless another caller raced it in first.
func (r *Registry) load(id string, rec models.Session) *session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := session.New(rec.ID, rec.CreatedAt, rec.Elements, r.store, r.ScheduleEviction)
	r.sessions[id] = s
	r.disarm(id)
	return s
}

// Close stops the eviction clock. Sessions themselves are left
// running; callers that want a clean shutdown should Stop() each one
// after draining connections.
func (r *Registry) Close() {
	r.evictionClock.Stop()
}
