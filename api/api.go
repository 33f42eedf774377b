// Package api wires the two front ends (spec §4.4, §4.5) onto one
// mux.Router, both backed by the same session registry.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inkboard/boardserver/api/rest"
	"github.com/inkboard/boardserver/api/ws"
	"github.com/inkboard/boardserver/registry"
)

// BoardAPI is the process's top-level HTTP surface.
type BoardAPI struct {
	restHandler *rest.Handler
	wsHandler   *ws.Handler
}

// New constructs a BoardAPI backed by reg. clientDir is the directory
// the static rendering client is served from. shutdownCtx is
// propagated to every open socket connection's write pump so process
// shutdown closes them cleanly.
func New(reg *registry.Registry, clientDir string, shutdownCtx context.Context) *BoardAPI {
	return &BoardAPI{
		restHandler: rest.NewHandler(reg, clientDir),
		wsHandler:   ws.NewHandler(reg, shutdownCtx),
	}
}

// RegisterRoutes attaches every route in spec §6.2/§6.3 to r.
func (a *BoardAPI) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ws", a.wsHandler.ServeWS)

	api := r.PathPrefix("/api/sessions/{id}").Subrouter()
	api.HandleFunc("", a.restHandler.HandleSessionInfo).Methods(http.MethodGet)
	api.HandleFunc("/elements", a.restHandler.HandleElements).Methods(http.MethodGet, http.MethodPost, http.MethodDelete)
	api.HandleFunc("/elements/batch", a.restHandler.HandleElementsBatch).Methods(http.MethodPost)
	api.HandleFunc("/elements/{eid}", a.restHandler.HandleElement).Methods(http.MethodGet, http.MethodPut, http.MethodDelete)

	r.HandleFunc("/", a.restHandler.HandleRoot).Methods(http.MethodGet)
	r.HandleFunc("/{id}", a.restHandler.HandleClient).Methods(http.MethodGet)
}
