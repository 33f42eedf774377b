// Package rest is the HTTP API front end (spec §4.4, §6.2): stateless
// handlers that parse, validate, dispatch mutations into the
// addressed Session, and render JSON responses.
package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inkboard/boardserver/models"
	"github.com/inkboard/boardserver/registry"
	"github.com/inkboard/boardserver/schema"
	"github.com/inkboard/boardserver/session"
)

// Handler dispatches the /api/sessions/{id}/... surface against a
// registry.
type Handler struct {
	Registry  *registry.Registry
	ClientDir string
}

// NewHandler constructs a Handler backed by reg. Static client assets
// are served from clientDir/index.html; an empty clientDir falls back
// to "client/index.html" relative to the working directory.
func NewHandler(reg *registry.Registry, clientDir string) *Handler {
	return &Handler{Registry: reg, ClientDir: clientDir}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("rest: failed to encode response: %v", err)
	}
}

type sessionInfoResponse struct {
	ID           string           `json:"id"`
	ElementCount int              `json:"elementCount"`
	Elements     []models.Element `json:"elements"`
	UserCount    int              `json:"userCount"`
	CreatedAt    int64            `json:"createdAt"`
}

// HandleSessionInfo implements GET /api/sessions/{id}.
func (h *Handler) HandleSessionInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := mux.Vars(r)["id"]

	sess, ok := h.Registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	snap := sess.Snapshot()
	writeJSON(w, http.StatusOK, sessionInfoResponse{
		ID:           snap.ID,
		ElementCount: len(snap.Elements),
		Elements:     snap.Elements,
		UserCount:    snap.UserCount,
		CreatedAt:    snap.CreatedAt,
	})
}

// HandleElements implements GET/POST/DELETE /api/sessions/{id}/elements.
func (h *Handler) HandleElements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListElements(w, r)
	case http.MethodPost:
		h.handleCreateElement(w, r)
	case http.MethodDelete:
		h.handleClear(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleListElements(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, ok := h.Registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot().Elements)
}

func (h *Handler) handleCreateElement(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var el models.Element
	if err := json.NewDecoder(r.Body).Decode(&el); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := schema.Validate(el); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := h.Registry.GetOrCreate(id)
	stored, err := sess.ApplyCreate(el, nil)
	if err != nil {
		log.Printf("rest: create failed on session %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to persist element")
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess := h.Registry.GetOrCreate(id)
	if err := sess.ApplyClear(nil); err != nil {
		log.Printf("rest: clear failed on session %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to persist session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleElementsBatch implements POST /api/sessions/{id}/elements/batch.
func (h *Handler) HandleElementsBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := mux.Vars(r)["id"]

	var elements []models.Element
	if err := json.NewDecoder(r.Body).Decode(&elements); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := schema.ValidateBatch(elements); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := h.Registry.GetOrCreate(id)
	stored, err := sess.ApplyCreateBatch(elements, nil)
	if err != nil {
		log.Printf("rest: batch create failed on session %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to persist elements")
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// HandleElement implements GET/PUT/DELETE /api/sessions/{id}/elements/{eid}.
func (h *Handler) HandleElement(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGetElement(w, r)
	case http.MethodPut:
		h.handleUpdateElement(w, r)
	case http.MethodDelete:
		h.handleDeleteElement(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleGetElement(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sess, ok := h.Registry.Get(vars["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	el, err := sess.Element(vars["eid"])
	if err != nil {
		writeError(w, http.StatusNotFound, "element not found")
		return
	}
	writeJSON(w, http.StatusOK, el)
}

func (h *Handler) handleUpdateElement(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var patch models.Element
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := h.Registry.GetOrCreate(vars["id"])
	merged, err := sess.ApplyUpdate(vars["eid"], patch, nil)
	if err != nil {
		if errors.Is(err, session.ErrElementNotFound) {
			writeError(w, http.StatusNotFound, "element not found")
			return
		}
		log.Printf("rest: update failed on session %s: %v", vars["id"], err)
		writeError(w, http.StatusInternalServerError, "failed to persist element")
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

func (h *Handler) handleDeleteElement(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sess := h.Registry.GetOrCreate(vars["id"])
	if err := sess.ApplyDelete(vars["eid"], nil); err != nil {
		if errors.Is(err, session.ErrElementNotFound) {
			writeError(w, http.StatusNotFound, "element not found")
			return
		}
		log.Printf("rest: delete failed on session %s: %v", vars["id"], err)
		writeError(w, http.StatusInternalServerError, "failed to persist session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRoot implements GET / (spec §6.2): mint a session and redirect
// to it.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sess := h.Registry.Create()
	http.Redirect(w, r, "/"+sess.ID(), http.StatusFound)
}

// HandleClient implements GET /{id}: serves the in-browser rendering
// client. The client itself is an external collaborator (spec §1);
// this handler's only job is to hand back whatever static asset the
// deployment placed in its client directory (index.html). There is no
// built-in fallback page: if the file is absent, the request gets
// http.ServeFile's 404.
func (h *Handler) HandleClient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	http.ServeFile(w, r, h.clientIndexPath())
}

func (h *Handler) clientIndexPath() string {
	if h.ClientDir != "" {
		return h.ClientDir + "/index.html"
	}
	return "client/index.html"
}
