package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/inkboard/boardserver/models"
	"github.com/inkboard/boardserver/registry"
	"github.com/inkboard/boardserver/schema"
	"github.com/inkboard/boardserver/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The reference client is served from the same origin as the
	// socket endpoint; spec carries no cross-origin requirement.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler wires incoming connections to the session registry.
type Handler struct {
	Registry    *registry.Registry
	ShutdownCtx context.Context
}

// NewHandler constructs a Handler backed by reg. shutdownCtx is
// propagated to every connection's WritePump so a process shutdown
// closes sockets with a clean close frame instead of a reset; a nil
// context falls back to context.Background() (never done).
func NewHandler(reg *registry.Registry, shutdownCtx context.Context) *Handler {
	if shutdownCtx == nil {
		shutdownCtx = context.Background()
	}
	return &Handler{Registry: reg, ShutdownCtx: shutdownCtx}
}

// ServeWS implements spec §4.5: parse `session=` from the query
// string, reject with close code 1008 if absent, get_or_create the
// Session, attach, and start the read/write pumps.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "missing session query parameter"),
		)
		conn.Close()
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	sess := h.Registry.GetOrCreate(sessionID)
	sub := sess.Attach()

	client := NewClient(conn, sess, sub)
	go client.WritePump(h.ShutdownCtx)
	client.ReadPump(func(raw []byte) {
		h.dispatch(sess, sub, raw)
	})
}

// inboundFrame is the envelope every client-originated frame shares
// (spec §6.3); fields not used by a given type are simply absent.
type inboundFrame struct {
	Type      string          `json:"type"`
	Element   models.Element  `json:"element"`
	ElementID string          `json:"elementId"`
	Position  string          `json:"position"`
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
}

func (h *Handler) dispatch(sess *session.Session, sub *session.Subscriber, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("ws: malformed frame on session %s: %v", sess.ID(), err)
		return
	}

	switch frame.Type {
	case "draw":
		if err := schema.Validate(frame.Element); err != nil {
			log.Printf("ws: invalid draw element on session %s: %v", sess.ID(), err)
			return
		}
		if _, err := sess.ApplyCreate(frame.Element, sub); err != nil {
			log.Printf("ws: draw rejected on session %s: %v", sess.ID(), err)
		}

	case "erase":
		if err := sess.ApplyDelete(frame.ElementID, sub); err != nil {
			log.Printf("ws: erase rejected on session %s: %v", sess.ID(), err)
		}

	case "clear":
		if err := sess.ApplyClear(sub); err != nil {
			log.Printf("ws: clear rejected on session %s: %v", sess.ID(), err)
		}

	case "move":
		if err := schema.Validate(frame.Element); err != nil {
			log.Printf("ws: invalid move element on session %s: %v", sess.ID(), err)
			return
		}
		if _, err := sess.ApplyMove(frame.ElementID, frame.Element, sub); err != nil {
			log.Printf("ws: move rejected on session %s: %v", sess.ID(), err)
		}

	case "reorder":
		if err := sess.ApplyReorder(frame.ElementID, frame.Position, sub); err != nil {
			log.Printf("ws: reorder rejected on session %s: %v", sess.ID(), err)
		}

	case "cursor":
		sess.RelayCursor(sub.UserID, frame.X, frame.Y, sub)

	default:
		log.Printf("ws: unknown frame type %q on session %s", frame.Type, sess.ID())
	}
}
