package web

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/graftdev/graft/internal/config"
	"github.com/graftdev/graft/internal/errors"
	"github.com/graftdev/graft/internal/ops"
)

// Handlers contains HTTP route handlers for the journal browser.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	baseDir  string
	renderer *Renderer
}

// HandleList handles GET /, listing journal entries newest first.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	filePath := r.URL.Query().Get("file_path")
	status := r.URL.Query().Get("status")
	action := r.URL.Query().Get("action")
	source := r.URL.Query().Get("source")

	input := ops.HistoryInput{
		FilePath: filePath,
		Status:   status,
		Action:   action,
		Source:   source,
		Limit:    parseIntParam(r, "limit", 20),
		Offset:   parseIntParam(r, "offset", 0),
	}

	result, err := ops.History(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: PageData{
			Title:   "Journal",
			Version: h.renderer.version,
			Nav:     "journal",
		},
		Attempts:   result.Attempts,
		Pagination: result.Pagination,
		FilePath:   filePath,
		Status:     status,
		Action:     action,
		Source:     source,
	})
}

// HandleDetail handles GET /attempts/{id}, showing one journal entry in full.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("attempt ID is required"))
		return
	}

	attempt, err := ops.Show(r.Context(), h.db, ops.ShowInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	var rendered string
	if attempt.Description != nil {
		rendered = *attempt.Description
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData: PageData{
			Title:   "Attempt " + shortID(attempt.ID),
			Version: h.renderer.version,
			Nav:     "journal",
		},
		Attempt:             attempt,
		RenderedDescription: renderMarkdown(rendered),
	})
}

// HandleVersion handles GET /versions/{id}, serving a retained pre-image as a
// download.
// The ID is resolved strictly inside the versions directory; anything that
// is not a plain file name is rejected before touching the filesystem.
func (h *Handlers) HandleVersion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("version ID is required"))
		return
	}

	data, err := ops.ReadVersion(h.baseDir, id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.txt"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
