package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/skillforge/api/internal/domain"
	"github.com/skillforge/api/internal/repositories"
)

var (
	errWizardDraftsRequired = errors.New("wizard service: draft repository is required")
	errWizardClockRequired  = errors.New("wizard service: clock is required")
)

// ErrWizardInvalidInput indicates a structural operation referenced something
// that does not exist or supplied malformed arguments. Per-field validation
// failures never produce this; they land in the step states instead.
var ErrWizardInvalidInput = errors.New("wizard service: invalid input")

// ErrWizardUnavailable indicates draft persistence failed.
var ErrWizardUnavailable = errors.New("wizard service: unavailable")

// ErrWizardStepBlocked indicates forward navigation was attempted past a step
// that does not validate.
var ErrWizardStepBlocked = errors.New("wizard service: step does not validate")

const (
	maxWizardTitleLength    = 100
	maxWizardSubtitleLength = 120
	maxWizardTags           = 10
)

var wizardStepTitles = [domain.WizardStepCount]string{
	"Basics",
	"Curriculum",
	"Landing Page",
	"Pricing",
}

// WizardServiceDeps wires the authoring flow dependencies.
type WizardServiceDeps struct {
	Drafts      repositories.DraftRepository
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
	// Sanitizer cleans the rich-text landing-page description before it is
	// kept. Defaults to the bluemonday UGC policy.
	Sanitizer *bluemonday.Policy
}

type wizardSession struct {
	userID      string
	courseKey   string
	data        CourseWizardData
	currentStep int
	completed   [domain.WizardStepCount]bool
	dirty       bool
	savedAt     time.Time
}

type wizardService struct {
	mu       sync.Mutex
	sessions map[string]*wizardSession

	drafts   repositories.DraftRepository
	now      func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
	sanitize *bluemonday.Policy
}

// NewWizardService constructs a WizardService enforcing dependency validation.
func NewWizardService(deps WizardServiceDeps) (WizardService, error) {
	if deps.Drafts == nil {
		return nil, errWizardDraftsRequired
	}
	if deps.Clock == nil {
		return nil, errWizardClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	policy := deps.Sanitizer
	if policy == nil {
		policy = bluemonday.UGCPolicy()
	}

	return &wizardService{
		sessions: make(map[string]*wizardSession),
		drafts:   deps.Drafts,
		now:      func() time.Time { return deps.Clock().UTC() },
		newID:    idGen,
		logger:   logger,
		sanitize: policy,
	}, nil
}

func (s *wizardService) StartWizard(ctx context.Context, userID, courseKey string) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.openSessionLocked(ctx, userID, courseKey)
	if err != nil {
		return WizardState{}, err
	}
	return snapshotState(session), nil
}

func (s *wizardService) GetState(ctx context.Context, userID, courseKey string) (WizardState, error) {
	return s.StartWizard(ctx, userID, courseKey)
}

func (s *wizardService) UpdateBasics(ctx context.Context, cmd UpdateBasicsCommand) (WizardState, error) {
	return s.mutate(ctx, cmd.UserID, cmd.CourseKey, func(session *wizardSession) error {
		session.data.Title = strings.TrimSpace(cmd.Title)
		session.data.Subtitle = strings.TrimSpace(cmd.Subtitle)
		session.data.Category = strings.TrimSpace(cmd.Category)
		session.data.Level = domain.CourseLevel(strings.TrimSpace(cmd.Level))
		session.data.Tags = dedupeTags(cmd.Tags)
		return nil
	})
}

func (s *wizardService) UpdateLandingPage(ctx context.Context, cmd UpdateLandingPageCommand) (WizardState, error) {
	return s.mutate(ctx, cmd.UserID, cmd.CourseKey, func(session *wizardSession) error {
		session.data.Description = strings.TrimSpace(s.sanitize.Sanitize(cmd.Description))
		session.data.LearningPoints = trimNonEmpty(cmd.LearningPoints)
		session.data.Requirements = trimNonEmpty(cmd.Requirements)
		return nil
	})
}

func (s *wizardService) UpdatePricing(ctx context.Context, cmd UpdatePricingCommand) (WizardState, error) {
	return s.mutate(ctx, cmd.UserID, cmd.CourseKey, func(session *wizardSession) error {
		session.data.Price = cmd.Price
		session.data.OriginalPrice = cmd.OriginalPrice
		return nil
	})
}

func (s *wizardService) AddSection(ctx context.Context, userID, courseKey, title string) (WizardState, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return WizardState{}, fmt.Errorf("%w: section title is required", ErrWizardInvalidInput)
	}
	return s.mutate(ctx, userID, courseKey, func(session *wizardSession) error {
		session.data.Sections = append(session.data.Sections, CourseSection{
			ID:    s.newID(),
			Title: trimmed,
		})
		renumber(&session.data)
		return nil
	})
}

func (s *wizardService) DeleteSection(ctx context.Context, userID, courseKey, sectionID string) (WizardState, error) {
	return s.mutate(ctx, userID, courseKey, func(session *wizardSession) error {
		idx := sectionIndex(session.data.Sections, sectionID)
		if idx < 0 {
			return fmt.Errorf("%w: unknown section %q", ErrWizardInvalidInput, sectionID)
		}
		session.data.Sections = append(session.data.Sections[:idx], session.data.Sections[idx+1:]...)
		renumber(&session.data)
		return nil
	})
}

func (s *wizardService) ReorderSections(ctx context.Context, userID, courseKey string, orderedIDs []string) (WizardState, error) {
	return s.mutate(ctx, userID, courseKey, func(session *wizardSession) error {
		reordered, err := permute(session.data.Sections, orderedIDs, func(sec CourseSection) string { return sec.ID })
		if err != nil {
			return err
		}
		session.data.Sections = reordered
		renumber(&session.data)
		return nil
	})
}

func (s *wizardService) AddLecture(ctx context.Context, userID, courseKey, sectionID, title string) (WizardState, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return WizardState{}, fmt.Errorf("%w: lecture title is required", ErrWizardInvalidInput)
	}
	return s.mutate(ctx, userID, courseKey, func(session *wizardSession) error {
		idx := sectionIndex(session.data.Sections, sectionID)
		if idx < 0 {
			return fmt.Errorf("%w: unknown section %q", ErrWizardInvalidInput, sectionID)
		}
		section := &session.data.Sections[idx]
		section.Lectures = append(section.Lectures, CourseLecture{
			ID:        s.newID(),
			SectionID: section.ID,
			Title:     trimmed,
		})
		renumber(&session.data)
		return nil
	})
}

func (s *wizardService) DeleteLecture(ctx context.Context, userID, courseKey, sectionID, lectureID string) (WizardState, error) {
	return s.mutate(ctx, userID, courseKey, func(session *wizardSession) error {
		idx := sectionIndex(session.data.Sections, sectionID)
		if idx < 0 {
			return fmt.Errorf("%w: unknown section %q", ErrWizardInvalidInput, sectionID)
		}
		section := &session.data.Sections[idx]
		lidx := lectureIndex(section.Lectures, lectureID)
		if lidx < 0 {
			return fmt.Errorf("%w: unknown lecture %q", ErrWizardInvalidInput, lectureID)
		}
		section.Lectures = append(section.Lectures[:lidx], section.Lectures[lidx+1:]...)
		renumber(&session.data)
		return nil
	})
}

func (s *wizardService) ReorderLectures(ctx context.Context, userID, courseKey, sectionID string, orderedIDs []string) (WizardState, error) {
	return s.mutate(ctx, userID, courseKey, func(session *wizardSession) error {
		idx := sectionIndex(session.data.Sections, sectionID)
		if idx < 0 {
			return fmt.Errorf("%w: unknown section %q", ErrWizardInvalidInput, sectionID)
		}
		section := &session.data.Sections[idx]
		reordered, err := permute(section.Lectures, orderedIDs, func(l CourseLecture) string { return l.ID })
		if err != nil {
			return err
		}
		section.Lectures = reordered
		renumber(&session.data)
		return nil
	})
}

func (s *wizardService) MoveLecture(ctx context.Context, cmd MoveLectureCommand) (WizardState, error) {
	return s.mutate(ctx, cmd.UserID, cmd.CourseKey, func(session *wizardSession) error {
		fromIdx := sectionIndex(session.data.Sections, cmd.FromSectionID)
		if fromIdx < 0 {
			return fmt.Errorf("%w: unknown section %q", ErrWizardInvalidInput, cmd.FromSectionID)
		}
		toIdx := sectionIndex(session.data.Sections, cmd.ToSectionID)
		if toIdx < 0 {
			return fmt.Errorf("%w: unknown section %q", ErrWizardInvalidInput, cmd.ToSectionID)
		}

		from := &session.data.Sections[fromIdx]
		lidx := lectureIndex(from.Lectures, cmd.LectureID)
		if lidx < 0 {
			return fmt.Errorf("%w: unknown lecture %q", ErrWizardInvalidInput, cmd.LectureID)
		}

		lecture := from.Lectures[lidx]
		from.Lectures = append(from.Lectures[:lidx], from.Lectures[lidx+1:]...)

		to := &session.data.Sections[toIdx]
		pos := cmd.Position - 1
		if pos < 0 {
			pos = 0
		}
		if pos > len(to.Lectures) {
			pos = len(to.Lectures)
		}
		to.Lectures = append(to.Lectures, CourseLecture{})
		copy(to.Lectures[pos+1:], to.Lectures[pos:])
		to.Lectures[pos] = lecture

		renumber(&session.data)
		return nil
	})
}

func (s *wizardService) GoToStep(ctx context.Context, userID, courseKey string, step int) (WizardState, error) {
	if step < 0 || step >= domain.WizardStepCount {
		return WizardState{}, fmt.Errorf("%w: step %d out of range", ErrWizardInvalidInput, step)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.openSessionLocked(ctx, userID, courseKey)
	if err != nil {
		return WizardState{}, err
	}

	if step > session.currentStep {
		for i := session.currentStep; i < step; i++ {
			if len(validateStepFields(session.data, i)) > 0 {
				return WizardState{}, fmt.Errorf("%w: step %d", ErrWizardStepBlocked, i)
			}
			session.completed[i] = true
		}
	}
	session.currentStep = step
	return snapshotState(session), nil
}

func (s *wizardService) ValidateStep(ctx context.Context, userID, courseKey string, step int) (WizardState, []FieldError, error) {
	if step < 0 || step >= domain.WizardStepCount {
		return WizardState{}, nil, fmt.Errorf("%w: step %d out of range", ErrWizardInvalidInput, step)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.openSessionLocked(ctx, userID, courseKey)
	if err != nil {
		return WizardState{}, nil, err
	}
	return snapshotState(session), validateStepFields(session.data, step), nil
}

func (s *wizardService) SaveDraft(ctx context.Context, userID, courseKey string) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.openSessionLocked(ctx, userID, courseKey)
	if err != nil {
		return WizardState{}, err
	}
	if err := s.saveSessionLocked(ctx, session); err != nil {
		return WizardState{}, err
	}
	return snapshotState(session), nil
}

func (s *wizardService) DiscardDraft(ctx context.Context, userID, courseKey string) error {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return ErrWizardInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey(uid, courseKey))
	if err := s.drafts.Delete(ctx, uid, courseKey); err != nil {
		return ErrWizardUnavailable
	}
	return nil
}

func (s *wizardService) ExportCourse(ctx context.Context, userID, courseKey string) (CourseExport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.openSessionLocked(ctx, userID, courseKey)
	if err != nil {
		return CourseExport{}, err
	}

	id := session.data.CourseID
	if id == "" {
		id = session.courseKey
	}
	body, err := json.MarshalIndent(exportDocument(session.data), "", "  ")
	if err != nil {
		return CourseExport{}, ErrWizardUnavailable
	}
	return CourseExport{
		Filename:    fmt.Sprintf("course-%s-%s.json", id, s.now().Format("2006-01-02")),
		ContentType: "application/json",
		Body:        body,
	}, nil
}

func (s *wizardService) FlushDirty(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	flushed := 0
	for _, session := range s.sessions {
		if !session.dirty {
			continue
		}
		if err := s.saveSessionLocked(ctx, session); err != nil {
			s.logger(ctx, "wizard.autosave_failed", map[string]any{
				"userID":    session.userID,
				"courseKey": session.courseKey,
				"error":     err.Error(),
			})
			continue
		}
		flushed++
	}
	return flushed
}

func (s *wizardService) mutate(ctx context.Context, userID, courseKey string, fn func(*wizardSession) error) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.openSessionLocked(ctx, userID, courseKey)
	if err != nil {
		return WizardState{}, err
	}
	if err := fn(session); err != nil {
		return WizardState{}, err
	}
	session.dirty = true
	return snapshotState(session), nil
}

func (s *wizardService) openSessionLocked(ctx context.Context, userID, courseKey string) (*wizardSession, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, ErrWizardInvalidInput
	}
	key := sessionKey(uid, courseKey)
	if session, ok := s.sessions[key]; ok {
		return session, nil
	}

	session := &wizardSession{userID: uid, courseKey: strings.TrimSpace(courseKey)}
	draft, err := s.drafts.Load(ctx, uid, courseKey)
	switch {
	case err == nil:
		session.data = draft.Data
		session.savedAt = draft.SavedAt
		s.logger(ctx, "wizard.draft_restored", map[string]any{
			"userID":    uid,
			"courseKey": session.courseKey,
			"savedAt":   draft.SavedAt,
		})
	case isRepoNotFound(err):
		// Fresh wizard; unparsable drafts degrade here too.
	default:
		return nil, ErrWizardUnavailable
	}

	s.sessions[key] = session
	return session, nil
}

func (s *wizardService) saveSessionLocked(ctx context.Context, session *wizardSession) error {
	now := s.now()
	draft := WizardDraft{Data: session.data, SavedAt: now}
	if err := s.drafts.Save(ctx, session.userID, session.courseKey, draft); err != nil {
		return ErrWizardUnavailable
	}
	session.savedAt = now
	session.dirty = false
	s.logger(ctx, "wizard.draft_saved", map[string]any{
		"userID":    session.userID,
		"courseKey": session.courseKey,
	})
	return nil
}

func sessionKey(userID, courseKey string) string {
	key := strings.TrimSpace(courseKey)
	if key == "" {
		key = "new-course"
	}
	return userID + "/" + key
}

func snapshotState(session *wizardSession) WizardState {
	steps := make([]WizardStep, domain.WizardStepCount)
	for i := range steps {
		steps[i] = WizardStep{
			Index:       i,
			Title:       wizardStepTitles[i],
			IsValid:     len(validateStepFields(session.data, i)) == 0,
			IsCompleted: session.completed[i],
		}
	}
	return WizardState{
		Data:        cloneWizardData(session.data),
		Steps:       steps,
		CurrentStep: session.currentStep,
		Dirty:       session.dirty,
		SavedAt:     session.savedAt,
	}
}

func validateStepFields(data CourseWizardData, step int) []FieldError {
	switch step {
	case domain.WizardStepBasics:
		return validateBasics(data)
	case domain.WizardStepCurriculum:
		return validateCurriculum(data)
	case domain.WizardStepLandingPage:
		return validateLandingPage(data)
	case domain.WizardStepPricing:
		return validatePricing(data)
	}
	return nil
}

func validateBasics(data CourseWizardData) []FieldError {
	var errs []FieldError
	if data.Title == "" {
		errs = append(errs, FieldError{Field: "title", Message: "title is required"})
	} else if len([]rune(data.Title)) > maxWizardTitleLength {
		errs = append(errs, FieldError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", maxWizardTitleLength)})
	}
	if data.Subtitle == "" {
		errs = append(errs, FieldError{Field: "subtitle", Message: "subtitle is required"})
	} else if len([]rune(data.Subtitle)) > maxWizardSubtitleLength {
		errs = append(errs, FieldError{Field: "subtitle", Message: fmt.Sprintf("subtitle must be at most %d characters", maxWizardSubtitleLength)})
	}
	if !containsString(domain.CourseCategories, data.Category) {
		errs = append(errs, FieldError{Field: "category", Message: "pick one of the listed categories"})
	}
	switch data.Level {
	case domain.CourseLevelBeginner, domain.CourseLevelIntermediate, domain.CourseLevelAdvanced, domain.CourseLevelAllLevels:
	default:
		errs = append(errs, FieldError{Field: "level", Message: "pick a course level"})
	}
	if len(data.Tags) == 0 {
		errs = append(errs, FieldError{Field: "tags", Message: "add at least one tag"})
	} else if len(data.Tags) > maxWizardTags {
		errs = append(errs, FieldError{Field: "tags", Message: fmt.Sprintf("at most %d tags", maxWizardTags)})
	}
	return errs
}

func validateCurriculum(data CourseWizardData) []FieldError {
	if len(data.Sections) == 0 {
		return []FieldError{{Field: "sections", Message: "add at least one section"}}
	}
	var errs []FieldError
	for _, section := range data.Sections {
		if len(section.Lectures) == 0 {
			errs = append(errs, FieldError{
				Field:   "sections." + section.ID,
				Message: fmt.Sprintf("section %q needs at least one lecture", section.Title),
			})
		}
	}
	return errs
}

func validateLandingPage(data CourseWizardData) []FieldError {
	var errs []FieldError
	if data.Description == "" {
		errs = append(errs, FieldError{Field: "description", Message: "description is required"})
	}
	if len(data.LearningPoints) == 0 {
		errs = append(errs, FieldError{Field: "learningPoints", Message: "add at least one learning point"})
	}
	return errs
}

func validatePricing(data CourseWizardData) []FieldError {
	var errs []FieldError
	if data.Price < 0 {
		errs = append(errs, FieldError{Field: "price", Message: "price cannot be negative"})
	}
	if data.OriginalPrice != 0 && data.OriginalPrice <= data.Price {
		errs = append(errs, FieldError{Field: "originalPrice", Message: "original price must be above the sale price"})
	}
	return errs
}

// renumber restores contiguous 1-based ordering across sections and within
// each section's lectures, and realigns lecture section membership.
func renumber(data *CourseWizardData) {
	for i := range data.Sections {
		section := &data.Sections[i]
		section.Order = i + 1
		for j := range section.Lectures {
			section.Lectures[j].Order = j + 1
			section.Lectures[j].SectionID = section.ID
		}
	}
}

func sectionIndex(sections []CourseSection, sectionID string) int {
	for i, section := range sections {
		if section.ID == sectionID {
			return i
		}
	}
	return -1
}

func lectureIndex(lectures []CourseLecture, lectureID string) int {
	for i, lecture := range lectures {
		if lecture.ID == lectureID {
			return i
		}
	}
	return -1
}

// permute reorders items to match orderedIDs, which must be an exact
// permutation of the current ids.
func permute[T any](items []T, orderedIDs []string, id func(T) string) ([]T, error) {
	if len(orderedIDs) != len(items) {
		return nil, fmt.Errorf("%w: reorder must list every id exactly once", ErrWizardInvalidInput)
	}
	byID := make(map[string]T, len(items))
	for _, item := range items {
		byID[id(item)] = item
	}
	out := make([]T, 0, len(items))
	seen := make(map[string]bool, len(orderedIDs))
	for _, oid := range orderedIDs {
		item, ok := byID[oid]
		if !ok || seen[oid] {
			return nil, fmt.Errorf("%w: reorder must list every id exactly once", ErrWizardInvalidInput)
		}
		seen[oid] = true
		out = append(out, item)
	}
	return out, nil
}

func dedupeTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
	}
	return out
}

func trimNonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func cloneWizardData(data CourseWizardData) CourseWizardData {
	out := data
	out.Tags = append([]string(nil), data.Tags...)
	out.LearningPoints = append([]string(nil), data.LearningPoints...)
	out.Requirements = append([]string(nil), data.Requirements...)
	out.Sections = make([]CourseSection, len(data.Sections))
	for i, section := range data.Sections {
		dup := section
		dup.Lectures = append([]CourseLecture(nil), section.Lectures...)
		out.Sections[i] = dup
	}
	return out
}

// exportDocument shapes wizard data for the downloadable course file.
type courseExportDocument struct {
	CourseID       string                  `json:"courseId,omitempty"`
	Title          string                  `json:"title"`
	Subtitle       string                  `json:"subtitle,omitempty"`
	Category       string                  `json:"category"`
	Level          string                  `json:"level"`
	Tags           []string                `json:"tags,omitempty"`
	Sections       []sectionExportDocument `json:"sections"`
	Description    string                  `json:"description,omitempty"`
	LearningPoints []string                `json:"learningPoints,omitempty"`
	Requirements   []string                `json:"requirements,omitempty"`
	Price          int64                   `json:"price"`
	OriginalPrice  int64                   `json:"originalPrice,omitempty"`
}

type sectionExportDocument struct {
	ID       string                  `json:"id"`
	Title    string                  `json:"title"`
	Order    int                     `json:"order"`
	Lectures []lectureExportDocument `json:"lectures"`
}

type lectureExportDocument struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Order           int    `json:"order"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	VideoURL        string `json:"videoUrl,omitempty"`
	Preview         bool   `json:"preview,omitempty"`
}

func exportDocument(data CourseWizardData) courseExportDocument {
	doc := courseExportDocument{
		CourseID:       data.CourseID,
		Title:          data.Title,
		Subtitle:       data.Subtitle,
		Category:       data.Category,
		Level:          string(data.Level),
		Tags:           data.Tags,
		Description:    data.Description,
		LearningPoints: data.LearningPoints,
		Requirements:   data.Requirements,
		Price:          data.Price,
		OriginalPrice:  data.OriginalPrice,
	}
	doc.Sections = make([]sectionExportDocument, len(data.Sections))
	for i, section := range data.Sections {
		out := sectionExportDocument{
			ID:       section.ID,
			Title:    section.Title,
			Order:    section.Order,
			Lectures: make([]lectureExportDocument, len(section.Lectures)),
		}
		for j, lecture := range section.Lectures {
			out.Lectures[j] = lectureExportDocument{
				ID:              lecture.ID,
				Title:           lecture.Title,
				Order:           lecture.Order,
				DurationMinutes: lecture.DurationMinutes,
				VideoURL:        lecture.VideoURL,
				Preview:         lecture.Preview,
			}
		}
		doc.Sections[i] = out
	}
	return doc
}
