package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/skillforge/api/internal/domain"
)

type memoryPlayerRepository struct {
	states map[string]domain.PlayerState
}

func newMemoryPlayerRepository() *memoryPlayerRepository {
	return &memoryPlayerRepository{states: make(map[string]domain.PlayerState)}
}

func (r *memoryPlayerRepository) Save(ctx context.Context, userID string, state domain.PlayerState) error {
	r.states[userID+"/"+state.CourseID] = state
	return nil
}

func (r *memoryPlayerRepository) Load(ctx context.Context, userID, courseID string) (domain.PlayerState, error) {
	state, ok := r.states[userID+"/"+courseID]
	if !ok {
		return domain.PlayerState{}, &repositoryErrorStub{notFound: true}
	}
	return state, nil
}

func newTestPlayerService(t *testing.T) PlayerService {
	t.Helper()
	now := time.Date(2025, 5, 2, 14, 0, 0, 0, time.UTC)
	seq := 0
	service, err := NewPlayerService(PlayerServiceDeps{
		Repository: newMemoryPlayerRepository(),
		Clock:      func() time.Time { return now },
		IDGenerator: func() string {
			seq++
			return "note-" + string(rune('0'+seq))
		},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing player service: %v", err)
	}
	return service
}

func TestPlayerBookmarkRoundTrip(t *testing.T) {
	ctx := context.Background()
	service := newTestPlayerService(t)

	state, err := service.SaveBookmark(ctx, "user-1", "course-1", 754)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.BookmarkSeconds != 754 {
		t.Fatalf("expected bookmark at 754s, got %d", state.BookmarkSeconds)
	}

	state, err = service.GetState(ctx, "user-1", "course-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.BookmarkSeconds != 754 {
		t.Fatalf("expected persisted bookmark, got %d", state.BookmarkSeconds)
	}
}

func TestPlayerGetStateAbsentIsEmpty(t *testing.T) {
	service := newTestPlayerService(t)

	state, err := service.GetState(context.Background(), "user-1", "course-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.CourseID != "course-9" || state.BookmarkSeconds != 0 || len(state.Notes) != 0 {
		t.Fatalf("expected empty state, got %+v", state)
	}
}

func TestPlayerNotesLifecycle(t *testing.T) {
	ctx := context.Background()
	service := newTestPlayerService(t)

	state, err := service.AddNote(ctx, "user-1", "course-1", 120, "  check this chapter  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Notes) != 1 || state.Notes[0].Text != "check this chapter" {
		t.Fatalf("expected one trimmed note, got %+v", state.Notes)
	}

	state, err = service.AddNote(ctx, "user-1", "course-1", 300, "second")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Notes) != 2 {
		t.Fatalf("expected two notes, got %d", len(state.Notes))
	}

	state, err = service.DeleteNote(ctx, "user-1", "course-1", state.Notes[0].ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Notes) != 1 || state.Notes[0].Text != "second" {
		t.Fatalf("expected first note removed, got %+v", state.Notes)
	}

	if _, err := service.AddNote(ctx, "user-1", "course-1", 10, "   "); !errors.Is(err, ErrPlayerInvalidInput) {
		t.Fatalf("expected ErrPlayerInvalidInput for blank note, got %v", err)
	}
}
