package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fsbroker/pkg/backend"
	"github.com/marmos91/fsbroker/pkg/openfile"
)

func seededTable() *openfile.Table {
	tbl := openfile.NewTable()
	tbl.Insert(&openfile.Handle{Path: "/a", Owner: "10.0.0.1:1", Input: backend.NewMemoryInput([]byte("abc"))})
	tbl.Insert(&openfile.Handle{Path: "/b", Owner: "10.0.0.2:1", Input: backend.NewMemoryInput([]byte("abc"))})
	return tbl
}

func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestListHandles(t *testing.T) {
	h := NewHandlesHandler(seededTable())

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest("GET", "/api/v1/handles", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w).Data, 2)

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest("GET", "/api/v1/handles?owner=10.0.0.2:1", nil))
	data := decode(t, w).Data.([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "/b", data[0].(map[string]any)["path"])
}

func TestListHandlesEmpty(t *testing.T) {
	w := httptest.NewRecorder()
	NewHandlesHandler(openfile.NewTable()).List(w, httptest.NewRequest("GET", "/api/v1/handles", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestGetHandle(t *testing.T) {
	h := NewHandlesHandler(seededTable())

	tests := []struct {
		id   string
		code int
	}{
		{"1", http.StatusOK},
		{"42", http.StatusNotFound},
		{"abc", http.StatusBadRequest},
		{"99999999999", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Get(w, withID(httptest.NewRequest("GET", "/api/v1/handles/"+tt.id, nil), tt.id))
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestGetHandleFields(t *testing.T) {
	w := httptest.NewRecorder()
	NewHandlesHandler(seededTable()).Get(w, withID(httptest.NewRequest("GET", "/api/v1/handles/1", nil), "1"))

	data := decode(t, w).Data.(map[string]any)
	assert.Equal(t, float64(1), data["id"])
	assert.Equal(t, "/a", data["path"])
	assert.Equal(t, "10.0.0.1:1", data["owner"])
	assert.Equal(t, "read", data["mode"])
}
