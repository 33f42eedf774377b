// Package session implements the Session object from spec.md §4.2: the
// single serialization point for one whiteboard's element sequence,
// subscriber set, and persistence. Every mutating method funnels
// through a single actor goroutine (the command-channel idiom the
// teacher uses for its process-wide ws.Hub, here scaled down to one
// goroutine per session instead of one for the whole process).
package session

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/inkboard/boardserver/idgen"
	"github.com/inkboard/boardserver/models"
	"github.com/inkboard/boardserver/store"
)

// ErrElementNotFound is returned by update/delete/move/get operations
// addressing an element id that isn't in the sequence.
var ErrElementNotFound = errors.New("session: element not found")

// subscriberQueueDepth bounds each subscriber's outbound frame queue
// (spec §4.3/§5: a slow consumer must not block the session).
const subscriberQueueDepth = 64

// cmdQueueDepth bounds the actor's inbox. Sized generously: the actor
// drains messages essentially as fast as they arrive (no blocking I/O
// inside the loop other than the store write), so this is headroom
// for bursts, not steady-state backpressure.
const cmdQueueDepth = 256

// Subscriber is a live attachment to a Session: one bidirectional
// socket peer with its own bounded outbound queue (spec §3, §4.3).
type Subscriber struct {
	UserID    string
	SessionID string
	out       chan []byte
}

func newSubscriber(userID, sessionID string) *Subscriber {
	return &Subscriber{
		UserID:    userID,
		SessionID: sessionID,
		out:       make(chan []byte, subscriberQueueDepth),
	}
}

// Out returns the channel the subscriber's dedicated writer should
// drain to the wire. It is closed by the Session on detach (including
// detach forced by queue overflow).
func (sub *Subscriber) Out() <-chan []byte {
	return sub.out
}

func (sub *Subscriber) tryEnqueue(b []byte) bool {
	select {
	case sub.out <- b:
		return true
	default:
		return false
	}
}

// Snapshot is the read-only view returned by Session.Snapshot, backing
// HTTP GET /api/sessions/{id}.
type Snapshot struct {
	ID        string
	CreatedAt int64
	Elements  []models.Element
	UserCount int
}

type cmd struct {
	run func()
}

// Session owns one whiteboard's element sequence and subscriber set.
// All exported methods are safe for concurrent use: each submits a
// closure to the actor's command channel and blocks on a private
// reply channel, so every mutation (and every read that must be
// consistent with the mutation stream, like Attach) is serialized
// against every other one.
type Session struct {
	id        string
	createdAt int64
	store     store.Store
	onIdle    func(id string)

	cmds chan cmd
	stop chan struct{}

	// actor-owned; only ever touched from inside run().
	elements []models.Element
	subs     map[*Subscriber]struct{}

	// subscriberCount mirrors len(subs) so the registry's eviction
	// callback can read it without a round trip through the actor.
	subscriberCount int32
}

// New constructs a Session and starts its actor goroutine. onIdle, if
// non-nil, is invoked (off the actor goroutine) whenever the
// subscriber set transitions from non-empty to empty — the hook the
// registry uses to arm its eviction timer.
func New(id string, createdAt int64, elements []models.Element, st store.Store, onIdle func(id string)) *Session {
	s := &Session{
		id:        id,
		createdAt: createdAt,
		store:     st,
		onIdle:    onIdle,
		cmds:      make(chan cmd, cmdQueueDepth),
		stop:      make(chan struct{}),
		elements:  elements,
		subs:      make(map[*Subscriber]struct{}),
	}
	go s.run()
	return s
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// SubscriberCount returns the current live subscriber count without
// going through the actor. Used only for the idle-eviction recheck
// (spec §4.1): a plain atomic load is enough there because eviction
// only ever needs a recent, not perfectly linearized, value.
func (s *Session) SubscriberCount() int {
	return int(atomic.LoadInt32(&s.subscriberCount))
}

// Stop terminates the actor goroutine. Only the registry should call
// this, and only after removing the session from its map so no new
// caller can reach it.
func (s *Session) Stop() {
	close(s.stop)
}

func (s *Session) run() {
	for {
		select {
		case c := <-s.cmds:
			c.run()
		case <-s.stop:
			return
		}
	}
}

func (s *Session) submit(fn func()) {
	done := make(chan struct{})
	s.cmds <- cmd{run: func() {
		fn()
		close(done)
	}}
	<-done
}

func nowMillis() int64 { return time.Now().UnixMilli() }

func originUser(origin *Subscriber) string {
	if origin == nil {
		return "api"
	}
	return origin.UserID
}

func (s *Session) elementsCopyLocked() []models.Element {
	out := make([]models.Element, len(s.elements))
	copy(out, s.elements)
	return out
}

func (s *Session) findIndexLocked(id string) int {
	for i, el := range s.elements {
		if el.ID() == id {
			return i
		}
	}
	return -1
}

func (s *Session) persistLocked() error {
	return s.store.Put(models.Session{
		ID:        s.id,
		CreatedAt: s.createdAt,
		Elements:  s.elementsCopyLocked(),
	})
}

// broadcastLocked JSON-encodes frame once and enqueues it to every
// subscriber except origin (nil origin means "no exclusion" — the
// HTTP-API row of spec §4.2's origin table). Subscribers whose queue
// is full are detached, matching the slow-consumer policy in §4.3.
func (s *Session) broadcastLocked(frame any, origin *Subscriber) {
	b, err := json.Marshal(frame)
	if err != nil {
		return
	}
	var overflowed []*Subscriber
	for sub := range s.subs {
		if origin != nil && sub == origin {
			continue
		}
		if !sub.tryEnqueue(b) {
			overflowed = append(overflowed, sub)
		}
	}
	for _, sub := range overflowed {
		s.detachLocked(sub)
	}
}

func (s *Session) detachLocked(sub *Subscriber) {
	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	atomic.StoreInt32(&s.subscriberCount, int32(len(s.subs)))
	close(sub.out)

	s.broadcastLocked(userCountFrame{Type: "userCount", Count: len(s.subs)}, nil)
	s.broadcastLocked(userLeftFrame{Type: "userLeft", OderID: sub.UserID, UserID: sub.UserID}, nil)

	if len(s.subs) == 0 && s.onIdle != nil {
		id := s.id
		go s.onIdle(id)
	}
}

// Attach registers a new subscriber, sends it an init frame carrying
// the current snapshot, and broadcasts the post-attach userCount to
// everyone including the new subscriber — all inside a single actor
// turn, so the snapshot and the count agree (spec §4.2).
func (s *Session) Attach() *Subscriber {
	var sub *Subscriber
	s.submit(func() {
		sub = newSubscriber(idgen.NewSessionID(), s.id)
		s.subs[sub] = struct{}{}
		atomic.StoreInt32(&s.subscriberCount, int32(len(s.subs)))

		init := initFrame{
			Type:      "init",
			UserID:    sub.UserID,
			Elements:  s.elementsCopyLocked(),
			UserCount: len(s.subs),
		}
		if b, err := json.Marshal(init); err == nil {
			sub.tryEnqueue(b)
		}
		s.broadcastLocked(userCountFrame{Type: "userCount", Count: len(s.subs)}, nil)
	})
	return sub
}

// Detach removes sub from the subscriber set, if still present, and
// runs the detach broadcast sequence (spec §4.2).
func (s *Session) Detach(sub *Subscriber) {
	s.submit(func() {
		s.detachLocked(sub)
	})
}

// Snapshot returns the current elements and subscriber count.
func (s *Session) Snapshot() Snapshot {
	var out Snapshot
	s.submit(func() {
		out = Snapshot{
			ID:        s.id,
			CreatedAt: s.createdAt,
			Elements:  s.elementsCopyLocked(),
			UserCount: len(s.subs),
		}
	})
	return out
}

// Element returns a single element by id.
func (s *Session) Element(id string) (models.Element, error) {
	var (
		found models.Element
		err   error
	)
	s.submit(func() {
		idx := s.findIndexLocked(id)
		if idx < 0 {
			err = ErrElementNotFound
			return
		}
		found = s.elements[idx]
	})
	return found, err
}

// ApplyCreate implements spec §4.2 apply_create.
func (s *Session) ApplyCreate(el models.Element, origin *Subscriber) (models.Element, error) {
	var (
		stored models.Element
		err    error
	)
	s.submit(func() {
		stored = el.Clone()
		if stored.ID() == "" {
			stored.SetID(idgen.NewElementID())
		}
		stored["createdBy"] = originUser(origin)
		stored["timestamp"] = nowMillis()

		s.elements = append(s.elements, stored)
		if perr := s.persistLocked(); perr != nil {
			s.elements = s.elements[:len(s.elements)-1]
			err = perr
			return
		}
		s.broadcastLocked(drawFrame{Type: "draw", Element: stored}, origin)
	})
	return stored, err
}

// ApplyCreateBatch implements spec §4.2 apply_create_batch: persists
// once after the whole batch, then emits one draw frame per element
// in input order with nothing interleaved (guaranteed by running
// entirely inside one actor turn).
func (s *Session) ApplyCreateBatch(elements []models.Element, origin *Subscriber) ([]models.Element, error) {
	var (
		stored []models.Element
		err    error
	)
	s.submit(func() {
		stored = make([]models.Element, len(elements))
		for i, el := range elements {
			stamped := el.Clone()
			if stamped.ID() == "" {
				stamped.SetID(idgen.NewElementID())
			}
			stamped["createdBy"] = originUser(origin)
			stamped["timestamp"] = nowMillis()
			stored[i] = stamped
		}

		prior := s.elements
		s.elements = append(append([]models.Element{}, prior...), stored...)
		if perr := s.persistLocked(); perr != nil {
			s.elements = prior
			err = perr
			return
		}
		for _, el := range stored {
			s.broadcastLocked(drawFrame{Type: "draw", Element: el}, origin)
		}
	})
	return stored, err
}

// ApplyUpdate implements spec §4.2 apply_update: merge-patch by id.
func (s *Session) ApplyUpdate(elementID string, patch models.Element, origin *Subscriber) (models.Element, error) {
	var (
		merged models.Element
		err    error
	)
	s.submit(func() {
		idx := s.findIndexLocked(elementID)
		if idx < 0 {
			err = ErrElementNotFound
			return
		}
		prior := s.elements[idx]
		merged = prior.Merge(patch)
		merged.SetID(elementID)
		merged["updatedBy"] = originUser(origin)
		merged["updatedAt"] = nowMillis()

		s.elements[idx] = merged
		if perr := s.persistLocked(); perr != nil {
			s.elements[idx] = prior
			err = perr
			return
		}
		s.broadcastLocked(moveFrame{Type: "move", ElementID: elementID, Element: merged}, origin)
	})
	return merged, err
}

// ApplyMove implements spec §4.2 apply_move: the socket origin sends
// the full replacement body (not a patch).
func (s *Session) ApplyMove(elementID string, replacement models.Element, origin *Subscriber) (models.Element, error) {
	var (
		moved models.Element
		err   error
	)
	s.submit(func() {
		idx := s.findIndexLocked(elementID)
		if idx < 0 {
			err = ErrElementNotFound
			return
		}
		prior := s.elements[idx]
		moved = replacement.Clone()
		moved.SetID(elementID)
		moved["movedBy"] = originUser(origin)
		moved["movedAt"] = nowMillis()

		s.elements[idx] = moved
		if perr := s.persistLocked(); perr != nil {
			s.elements[idx] = prior
			err = perr
			return
		}
		s.broadcastLocked(moveFrame{Type: "move", ElementID: elementID, Element: moved}, origin)
	})
	return moved, err
}

// ApplyDelete implements spec §4.2 apply_delete.
func (s *Session) ApplyDelete(elementID string, origin *Subscriber) error {
	var err error
	s.submit(func() {
		idx := s.findIndexLocked(elementID)
		if idx < 0 {
			err = ErrElementNotFound
			return
		}
		prior := s.elements
		s.elements = append(append([]models.Element{}, prior[:idx]...), prior[idx+1:]...)
		if perr := s.persistLocked(); perr != nil {
			s.elements = prior
			err = perr
			return
		}
		s.broadcastLocked(eraseFrame{Type: "erase", ElementID: elementID}, origin)
	})
	return err
}

// ApplyClear implements spec §4.2 apply_clear.
func (s *Session) ApplyClear(origin *Subscriber) error {
	var err error
	s.submit(func() {
		prior := s.elements
		s.elements = nil
		if perr := s.persistLocked(); perr != nil {
			s.elements = prior
			err = perr
			return
		}
		s.broadcastLocked(clearFrame{Type: "clear"}, origin)
	})
	return err
}

// reorderPosition is the set of accepted apply_reorder positions.
const (
	positionFront = "front"
	positionBack  = "back"
)

// ApplyReorder implements spec §4.2 apply_reorder. An absent element
// id, or a position outside {front, back}, is a no-op: no persist, no
// broadcast — there is nothing for either to report.
func (s *Session) ApplyReorder(elementID string, position string, origin *Subscriber) error {
	var err error
	s.submit(func() {
		if position != positionFront && position != positionBack {
			return
		}
		idx := s.findIndexLocked(elementID)
		if idx < 0 {
			return
		}

		el := s.elements[idx]
		remaining := append(append([]models.Element{}, s.elements[:idx]...), s.elements[idx+1:]...)
		prior := s.elements
		if position == positionFront {
			s.elements = append(remaining, el)
		} else {
			s.elements = append([]models.Element{el}, remaining...)
		}

		if perr := s.persistLocked(); perr != nil {
			s.elements = prior
			err = perr
			return
		}
		s.broadcastLocked(reorderFrame{Type: "reorder", ElementID: elementID, Position: position}, origin)
	})
	return err
}

// RelayCursor implements spec §4.2 relay_cursor: no mutation, no
// persistence, broadcast to everyone but origin.
func (s *Session) RelayCursor(userID string, x, y float64, origin *Subscriber) {
	s.submit(func() {
		s.broadcastLocked(cursorFrame{Type: "cursor", X: x, Y: y, OderID: userID, UserID: userID}, origin)
	})
}
