package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"notes-saas/internal/api/render"
	"notes-saas/internal/model"
	"notes-saas/internal/notes"
	"notes-saas/internal/tenancy"
)

// noteID parses the path id. A malformed id cannot name a note in any tenant,
// so it is reported the same way as a missing one.
func noteID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, notes.ErrNoteNotFound
	}
	return id, nil
}

// @Summary Create a note
// @Tags Notes
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body notes.CreateNoteRequest true "Note"
// @Success 201 {object} map[string]interface{}
// @Failure 400,403 {object} map[string]interface{}
// @Router /api/notes [post]
func (a *API) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req notes.CreateNoteRequest
	if err := decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	n, err := a.Notes.Create(r.Context(), tenancy.FromContext(r.Context()), req)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.OK(w, http.StatusCreated, render.M{
		"message": "Note created successfully.",
		"note":    n,
	})
}

// @Summary List notes
// @Tags Notes
// @Security ApiKeyAuth
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Param search query string false "Case-insensitive match on title, content and tags"
// @Param priority query string false "low, medium or high"
// @Param archived query bool false "List archived notes"
// @Success 200 {object} map[string]interface{}
// @Router /api/notes [get]
func (a *API) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	archived, _ := strconv.ParseBool(q.Get("archived"))

	res, err := a.Notes.List(r.Context(), tenancy.FromContext(r.Context()), notes.ListNotesRequest{
		Page:     page,
		Limit:    limit,
		Search:   q.Get("search"),
		Priority: model.Priority(q.Get("priority")),
		Archived: archived,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.OK(w, http.StatusOK, render.M{
		"notes":      res.Notes,
		"pagination": res.Pagination,
		"tenant":     res.Usage,
	})
}

// @Summary Get a note
// @Tags Notes
// @Security ApiKeyAuth
// @Produce json
// @Param id path string true "Note id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/notes/{id} [get]
func (a *API) GetNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	n, err := a.Notes.Get(r.Context(), tenancy.FromContext(r.Context()), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.OK(w, http.StatusOK, render.M{"note": n})
}

// @Summary Update a note
// @Description Only the supplied fields change.
// @Tags Notes
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path string true "Note id"
// @Param body body notes.UpdateNoteRequest true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 400,404 {object} map[string]interface{}
// @Router /api/notes/{id} [put]
func (a *API) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	var req notes.UpdateNoteRequest
	if err := decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	n, err := a.Notes.Update(r.Context(), tenancy.FromContext(r.Context()), id, req)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.OK(w, http.StatusOK, render.M{
		"message": "Note updated successfully.",
		"note":    n,
	})
}

// @Summary Delete a note
// @Tags Notes
// @Security ApiKeyAuth
// @Produce json
// @Param id path string true "Note id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/notes/{id} [delete]
func (a *API) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if err := a.Notes.Delete(r.Context(), tenancy.FromContext(r.Context()), id); err != nil {
		render.Error(w, r, err)
		return
	}
	render.OK(w, http.StatusOK, render.M{"message": "Note deleted successfully."})
}
