package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkboard/boardserver/api/rest"
	"github.com/inkboard/boardserver/registry"
	"github.com/inkboard/boardserver/store/memstore"
)

func newTestRouter() *mux.Router {
	h := rest.NewHandler(registry.New(memstore.New()), "")
	r := mux.NewRouter()
	r.HandleFunc("/api/sessions/{id}", h.HandleSessionInfo).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/elements", h.HandleElements).Methods(http.MethodGet, http.MethodPost, http.MethodDelete)
	r.HandleFunc("/api/sessions/{id}/elements/batch", h.HandleElementsBatch).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/elements/{eid}", h.HandleElement).Methods(http.MethodGet, http.MethodPut, http.MethodDelete)
	r.HandleFunc("/", h.HandleRoot).Methods(http.MethodGet)
	return r
}

func do(t *testing.T, router *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetSessionElements_MissingSessionIs404(t *testing.T) {
	router := newTestRouter()
	rec := do(t, router, http.MethodGet, "/api/sessions/zeta/elements", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostElement_CreatesSessionAndElement(t *testing.T) {
	router := newTestRouter()

	rec := do(t, router, http.MethodPost, "/api/sessions/zeta/elements", map[string]any{
		"type": "rectangle", "x": 10, "y": 20, "width": 30, "height": 40,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var stored map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.NotEmpty(t, stored["id"])
	assert.Equal(t, "api", stored["createdBy"])

	rec = do(t, router, http.MethodGet, "/api/sessions/zeta/elements", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var elements []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &elements))
	assert.Len(t, elements, 1)
}

func TestPostElement_InvalidTypeIs400(t *testing.T) {
	router := newTestRouter()
	rec := do(t, router, http.MethodPost, "/api/sessions/zeta/elements", map[string]any{"type": "polygon"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatch_InvalidElementCommitsNothing(t *testing.T) {
	router := newTestRouter()

	rec := do(t, router, http.MethodPost, "/api/sessions/batchy/elements/batch", []map[string]any{
		{"type": "rectangle"},
		{"type": "not-a-type"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/sessions/batchy/elements", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "a session touched only by a rejected batch should not exist")
}

func TestPutElement_MergesAndReturns200(t *testing.T) {
	router := newTestRouter()

	rec := do(t, router, http.MethodPost, "/api/sessions/delta/elements", map[string]any{
		"type": "circle", "cx": 0, "cy": 0, "radius": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var stored map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	id := stored["id"].(string)

	rec = do(t, router, http.MethodPut, "/api/sessions/delta/elements/"+id, map[string]any{"color": "#ff0000"})
	require.Equal(t, http.StatusOK, rec.Code)

	var merged map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &merged))
	assert.Equal(t, id, merged["id"])
	assert.Equal(t, "#ff0000", merged["color"])
}

func TestPutElement_NotFoundIs404(t *testing.T) {
	router := newTestRouter()
	rec := do(t, router, http.MethodPut, "/api/sessions/delta/elements/ghost", map[string]any{"color": "#fff"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteElements_ClearsSession(t *testing.T) {
	router := newTestRouter()

	for i := 0; i < 5; i++ {
		rec := do(t, router, http.MethodPost, "/api/sessions/epsilon/elements", map[string]any{
			"type": "rectangle", "x": 0, "y": 0, "width": 1, "height": 1,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, router, http.MethodDelete, "/api/sessions/epsilon/elements", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/sessions/epsilon/elements", nil)
	var elements []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &elements))
	assert.Empty(t, elements)
}

func TestGetElements_PreservesCreationOrder(t *testing.T) {
	// reorder is a socket-only operation (spec §6.2 has no HTTP
	// route for it); this only checks the baseline Z-order GET
	// returns before any reorder is applied over the socket surface.
	router := newTestRouter()

	ids := make([]string, 0, 3)
	for _, body := range []map[string]any{
		{"type": "text", "x": 0, "y": 0, "text": "a"},
		{"type": "text", "x": 0, "y": 0, "text": "b"},
		{"type": "text", "x": 0, "y": 0, "text": "c"},
	} {
		rec := do(t, router, http.MethodPost, "/api/sessions/delta2/elements", body)
		require.Equal(t, http.StatusCreated, rec.Code)
		var stored map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
		ids = append(ids, stored["id"].(string))
	}

	rec := do(t, router, http.MethodGet, "/api/sessions/delta2/elements", nil)
	var elements []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &elements))
	require.Len(t, elements, 3)
	assert.Equal(t, ids[0], elements[0]["id"])
	assert.Equal(t, ids[2], elements[2]["id"])
}

func TestRoot_RedirectsToNewSession(t *testing.T) {
	router := newTestRouter()
	rec := do(t, router, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Location"))
}
