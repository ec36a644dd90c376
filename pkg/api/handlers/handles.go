package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/fsbroker/pkg/openfile"
)

// HandlesHandler exposes the open-file table to operators.
type HandlesHandler struct {
	table *openfile.Table
}

// NewHandlesHandler creates a handler over table.
func NewHandlesHandler(table *openfile.Table) *HandlesHandler {
	return &HandlesHandler{table: table}
}

// List handles GET /api/v1/handles. An optional ?owner= filter restricts
// the listing to one client address.
func (h *HandlesHandler) List(w http.ResponseWriter, r *http.Request) {
	infos := h.table.Snapshot()

	if owner := r.URL.Query().Get("owner"); owner != "" {
		filtered := infos[:0]
		for _, info := range infos {
			if info.Owner == owner {
				filtered = append(filtered, info)
			}
		}
		infos = filtered
	}

	writeJSON(w, http.StatusOK, okResponse(infos))
}

// Get handles GET /api/v1/handles/{id}.
func (h *HandlesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		BadRequest(w, "Invalid handle id")
		return
	}

	fh, ok := h.table.Lookup(int32(id))
	if !ok {
		NotFound(w, "Handle not found")
		return
	}

	writeJSON(w, http.StatusOK, okResponse(fh.Info()))
}
