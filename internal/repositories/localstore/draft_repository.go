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

const draftKeyPrefix = "draft"

// DefaultDraftKey is the course key used while authoring a brand-new course
// that has no identifier yet.
const DefaultDraftKey = "new-course"

// DraftRepository persists wizard drafts under "draft/<userID>/<courseKey>".
type DraftRepository struct {
	store *kvstore.Store
}

// NewDraftRepository constructs a local-store-backed draft repository.
func NewDraftRepository(store *kvstore.Store) (*DraftRepository, error) {
	if store == nil {
		return nil, errors.New("draft repository requires local store")
	}
	return &DraftRepository{store: store}, nil
}

// Save snapshots the draft.
func (r *DraftRepository) Save(ctx context.Context, userID, courseKey string, draft domain.WizardDraft) error {
	if err := ctx.Err(); err != nil {
		return repositories.NewUnavailable("draft repository", err)
	}
	key, err := draftKey(userID, courseKey)
	if err != nil {
		return err
	}

	doc := draftDocument{
		Data:    wizardDataToDocument(draft.Data),
		SavedAt: draft.SavedAt.UTC(),
	}
	if err := r.store.Put(key, doc); err != nil {
		return repositories.NewUnavailable("draft repository", err)
	}
	return nil
}

// Load restores a saved draft. Absent and unparsable drafts both come back as
// not-found so callers degrade to an empty wizard.
func (r *DraftRepository) Load(ctx context.Context, userID, courseKey string) (domain.WizardDraft, error) {
	if err := ctx.Err(); err != nil {
		return domain.WizardDraft{}, repositories.NewUnavailable("draft repository", err)
	}
	key, err := draftKey(userID, courseKey)
	if err != nil {
		return domain.WizardDraft{}, err
	}

	var doc draftDocument
	if err := r.store.Get(key, &doc); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return domain.WizardDraft{}, repositories.NewNotFound(fmt.Sprintf("draft repository: draft %s", courseKey), err)
		}
		return domain.WizardDraft{}, repositories.NewUnavailable("draft repository", err)
	}

	return domain.WizardDraft{
		Data:    wizardDataFromDocument(doc.Data),
		SavedAt: doc.SavedAt,
	}, nil
}

// Delete removes a saved draft; removing an absent draft is a no-op.
func (r *DraftRepository) Delete(ctx context.Context, userID, courseKey string) error {
	if err := ctx.Err(); err != nil {
		return repositories.NewUnavailable("draft repository", err)
	}
	key, err := draftKey(userID, courseKey)
	if err != nil {
		return err
	}
	if err := r.store.Delete(key); err != nil {
		return repositories.NewUnavailable("draft repository", err)
	}
	return nil
}

func draftKey(userID, courseKey string) (string, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return "", repositories.NewNotFound("draft repository: user id required", nil)
	}
	course := strings.TrimSpace(courseKey)
	if course == "" {
		course = DefaultDraftKey
	}
	return draftKeyPrefix + "/" + uid + "/" + course, nil
}
