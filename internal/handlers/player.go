package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skillforge/api/internal/platform/auth"
	"github.com/skillforge/api/internal/platform/httpx"
	"github.com/skillforge/api/internal/services"
)

const maxPlayerBodySize = 8 * 1024

// PlayerHandlers exposes per-course playback state endpoints.
type PlayerHandlers struct {
	authn  *auth.Authenticator
	player services.PlayerService
}

// NewPlayerHandlers constructs the playback endpoint handlers.
func NewPlayerHandlers(authn *auth.Authenticator, player services.PlayerService) *PlayerHandlers {
	return &PlayerHandlers{authn: authn, player: player}
}

// Routes wires the /player endpoints onto the provided router.
func (h *PlayerHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireSession())
	}
	r.Get("/{courseID}", h.getState)
	r.Put("/{courseID}/bookmark", h.saveBookmark)
	r.Post("/{courseID}/notes", h.addNote)
	r.Delete("/{courseID}/notes/{noteID}", h.deleteNote)
}

type playerNotePayload struct {
	ID        string    `json:"id"`
	AtSeconds int       `json:"atSeconds"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type playerStatePayload struct {
	CourseID        string              `json:"courseId"`
	BookmarkSeconds int                 `json:"bookmarkSeconds"`
	Notes           []playerNotePayload `json:"notes"`
	UpdatedAt       *time.Time          `json:"updatedAt,omitempty"`
}

func buildPlayerStatePayload(state services.PlayerState) playerStatePayload {
	payload := playerStatePayload{
		CourseID:        state.CourseID,
		BookmarkSeconds: state.BookmarkSeconds,
		Notes:           make([]playerNotePayload, len(state.Notes)),
	}
	for i, note := range state.Notes {
		payload.Notes[i] = playerNotePayload{
			ID:        note.ID,
			AtSeconds: note.AtSeconds,
			Text:      note.Text,
			CreatedAt: note.CreatedAt,
		}
	}
	if !state.UpdatedAt.IsZero() {
		updatedAt := state.UpdatedAt
		payload.UpdatedAt = &updatedAt
	}
	return payload
}

func (h *PlayerHandlers) getState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	state, err := h.player.GetState(ctx, identity.UserID, chi.URLParam(r, "courseID"))
	if err != nil {
		h.writePlayerError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildPlayerStatePayload(state))
}

type saveBookmarkRequest struct {
	AtSeconds int `json:"atSeconds"`
}

func (h *PlayerHandlers) saveBookmark(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req saveBookmarkRequest
	if err := decodeBody(r, maxPlayerBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	state, err := h.player.SaveBookmark(ctx, identity.UserID, chi.URLParam(r, "courseID"), req.AtSeconds)
	if err != nil {
		h.writePlayerError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildPlayerStatePayload(state))
}

type addNoteRequest struct {
	AtSeconds int    `json:"atSeconds"`
	Text      string `json:"text"`
}

func (h *PlayerHandlers) addNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req addNoteRequest
	if err := decodeBody(r, maxPlayerBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	state, err := h.player.AddNote(ctx, identity.UserID, chi.URLParam(r, "courseID"), req.AtSeconds, req.Text)
	if err != nil {
		h.writePlayerError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildPlayerStatePayload(state))
}

func (h *PlayerHandlers) deleteNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	state, err := h.player.DeleteNote(ctx, identity.UserID, chi.URLParam(r, "courseID"), chi.URLParam(r, "noteID"))
	if err != nil {
		h.writePlayerError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildPlayerStatePayload(state))
}

func (h *PlayerHandlers) writePlayerError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrPlayerInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid playback payload", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("player_unavailable", "playback state is unavailable", http.StatusServiceUnavailable))
	}
}
