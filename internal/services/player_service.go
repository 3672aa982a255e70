package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/skillforge/api/internal/repositories"
)

var (
	errPlayerRepositoryRequired = errors.New("player service: repository is required")
	errPlayerClockRequired      = errors.New("player service: clock is required")
)

// ErrPlayerInvalidInput indicates the caller supplied invalid input.
var ErrPlayerInvalidInput = errors.New("player service: invalid input")

// ErrPlayerUnavailable indicates playback state could not be read or written.
var ErrPlayerUnavailable = errors.New("player service: unavailable")

const maxNoteLength = 2000

// PlayerServiceDeps wires the playback state dependencies.
type PlayerServiceDeps struct {
	Repository  repositories.PlayerStateRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type playerService struct {
	repo  repositories.PlayerStateRepository
	now   func() time.Time
	newID func() string
}

// NewPlayerService constructs a PlayerService enforcing dependency validation.
func NewPlayerService(deps PlayerServiceDeps) (PlayerService, error) {
	if deps.Repository == nil {
		return nil, errPlayerRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errPlayerClockRequired
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &playerService{
		repo:  deps.Repository,
		now:   func() time.Time { return deps.Clock().UTC() },
		newID: idGen,
	}, nil
}

func (s *playerService) GetState(ctx context.Context, userID, courseID string) (PlayerState, error) {
	uid, cid, err := playerIDs(userID, courseID)
	if err != nil {
		return PlayerState{}, err
	}
	state, err := s.repo.Load(ctx, uid, cid)
	if err != nil {
		if isRepoNotFound(err) {
			return PlayerState{CourseID: cid}, nil
		}
		return PlayerState{}, ErrPlayerUnavailable
	}
	return state, nil
}

func (s *playerService) SaveBookmark(ctx context.Context, userID, courseID string, atSeconds int) (PlayerState, error) {
	if atSeconds < 0 {
		return PlayerState{}, ErrPlayerInvalidInput
	}
	return s.update(ctx, userID, courseID, func(state *PlayerState) error {
		state.BookmarkSeconds = atSeconds
		return nil
	})
}

func (s *playerService) AddNote(ctx context.Context, userID, courseID string, atSeconds int, text string) (PlayerState, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || len(trimmed) > maxNoteLength || atSeconds < 0 {
		return PlayerState{}, ErrPlayerInvalidInput
	}
	return s.update(ctx, userID, courseID, func(state *PlayerState) error {
		state.Notes = append(state.Notes, PlayerNote{
			ID:        s.newID(),
			AtSeconds: atSeconds,
			Text:      trimmed,
			CreatedAt: s.now(),
		})
		return nil
	})
}

func (s *playerService) DeleteNote(ctx context.Context, userID, courseID, noteID string) (PlayerState, error) {
	id := strings.TrimSpace(noteID)
	if id == "" {
		return PlayerState{}, ErrPlayerInvalidInput
	}
	return s.update(ctx, userID, courseID, func(state *PlayerState) error {
		kept := state.Notes[:0:0]
		for _, note := range state.Notes {
			if note.ID != id {
				kept = append(kept, note)
			}
		}
		state.Notes = kept
		return nil
	})
}

func (s *playerService) update(ctx context.Context, userID, courseID string, fn func(*PlayerState) error) (PlayerState, error) {
	uid, cid, err := playerIDs(userID, courseID)
	if err != nil {
		return PlayerState{}, err
	}

	state, err := s.repo.Load(ctx, uid, cid)
	if err != nil {
		if !isRepoNotFound(err) {
			return PlayerState{}, ErrPlayerUnavailable
		}
		state = PlayerState{CourseID: cid}
	}

	if err := fn(&state); err != nil {
		return PlayerState{}, err
	}
	state.CourseID = cid
	state.UpdatedAt = s.now()

	if err := s.repo.Save(ctx, uid, state); err != nil {
		return PlayerState{}, ErrPlayerUnavailable
	}
	return state, nil
}

func playerIDs(userID, courseID string) (string, string, error) {
	uid := strings.TrimSpace(userID)
	cid := strings.TrimSpace(courseID)
	if uid == "" || cid == "" {
		return "", "", ErrPlayerInvalidInput
	}
	return uid, cid, nil
}
