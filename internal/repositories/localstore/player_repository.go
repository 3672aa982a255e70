package localstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/skillforge/api/internal/domain"
	kvstore "github.com/skillforge/api/internal/platform/localstore"
	"github.com/skillforge/api/internal/repositories"
)

const playerKeyPrefix = "player"

// PlayerStateRepository persists video bookmark/notes state under
// "player/<userID>/<courseID>".
type PlayerStateRepository struct {
	store *kvstore.Store
}

// NewPlayerStateRepository constructs a local-store-backed player state repository.
func NewPlayerStateRepository(store *kvstore.Store) (*PlayerStateRepository, error) {
	if store == nil {
		return nil, errors.New("player repository requires local store")
	}
	return &PlayerStateRepository{store: store}, nil
}

// Save replaces the player state for the course.
func (r *PlayerStateRepository) Save(ctx context.Context, userID string, state domain.PlayerState) error {
	if err := ctx.Err(); err != nil {
		return repositories.NewUnavailable("player repository", err)
	}
	uid := strings.TrimSpace(userID)
	courseID := strings.TrimSpace(state.CourseID)
	if uid == "" || courseID == "" {
		return repositories.NewConflict("player repository: user id and course id required", nil)
	}

	doc := playerStateDocument{
		CourseID:        courseID,
		BookmarkSeconds: state.BookmarkSeconds,
		UpdatedAt:       state.UpdatedAt.UTC(),
	}
	for _, note := range state.Notes {
		doc.Notes = append(doc.Notes, noteDocument{
			ID:        note.ID,
			AtSeconds: note.AtSeconds,
			Text:      note.Text,
			CreatedAt: note.CreatedAt,
		})
	}
	if err := r.store.Put(playerKey(uid, courseID), doc); err != nil {
		return repositories.NewUnavailable("player repository", err)
	}
	return nil
}

// Load restores the player state for the course.
func (r *PlayerStateRepository) Load(ctx context.Context, userID, courseID string) (domain.PlayerState, error) {
	if err := ctx.Err(); err != nil {
		return domain.PlayerState{}, repositories.NewUnavailable("player repository", err)
	}
	uid := strings.TrimSpace(userID)
	cid := strings.TrimSpace(courseID)
	if uid == "" || cid == "" {
		return domain.PlayerState{}, repositories.NewNotFound("player repository: course id required", nil)
	}

	var doc playerStateDocument
	if err := r.store.Get(playerKey(uid, cid), &doc); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return domain.PlayerState{}, repositories.NewNotFound(fmt.Sprintf("player repository: state for %s", cid), err)
		}
		return domain.PlayerState{}, repositories.NewUnavailable("player repository", err)
	}

	state := domain.PlayerState{
		CourseID:        doc.CourseID,
		BookmarkSeconds: doc.BookmarkSeconds,
		UpdatedAt:       doc.UpdatedAt,
	}
	for _, note := range doc.Notes {
		state.Notes = append(state.Notes, domain.PlayerNote{
			ID:        note.ID,
			AtSeconds: note.AtSeconds,
			Text:      note.Text,
			CreatedAt: note.CreatedAt,
		})
	}
	return state, nil
}

func playerKey(userID, courseID string) string {
	return playerKeyPrefix + "/" + userID + "/" + courseID
}
