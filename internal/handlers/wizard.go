package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skillforge/api/internal/platform/auth"
	"github.com/skillforge/api/internal/platform/httpx"
	"github.com/skillforge/api/internal/services"
)

const maxWizardBodySize = 64 * 1024

// WizardHandlers exposes the authenticated course authoring endpoints.
// courseKey identifies the draft being edited; clients use "new-course"
// while authoring a course that has no id yet.
type WizardHandlers struct {
	authn  *auth.Authenticator
	wizard services.WizardService
}

// NewWizardHandlers constructs the authoring endpoint handlers.
func NewWizardHandlers(authn *auth.Authenticator, wizard services.WizardService) *WizardHandlers {
	return &WizardHandlers{authn: authn, wizard: wizard}
}

// Routes wires the /wizard endpoints onto the provided router.
func (h *WizardHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireSession())
	}
	r.Route("/{courseKey}", func(r chi.Router) {
		r.Get("/", h.getState)
		r.Put("/basics", h.updateBasics)
		r.Put("/landing-page", h.updateLandingPage)
		r.Put("/pricing", h.updatePricing)

		r.Post("/sections", h.addSection)
		r.Post("/sections/reorder", h.reorderSections)
		r.Delete("/sections/{sectionID}", h.deleteSection)
		r.Post("/sections/{sectionID}/lectures", h.addLecture)
		r.Post("/sections/{sectionID}/lectures/reorder", h.reorderLectures)
		r.Delete("/sections/{sectionID}/lectures/{lectureID}", h.deleteLecture)
		r.Post("/lectures/move", h.moveLecture)

		r.Post("/step", h.goToStep)
		r.Get("/validate/{step}", h.validateStep)

		r.Post("/draft", h.saveDraft)
		r.Delete("/draft", h.discardDraft)
		r.Get("/export", h.exportCourse)
	})
}

type wizardStepPayload struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	IsValid     bool   `json:"isValid"`
	IsCompleted bool   `json:"isCompleted"`
}

type lecturePayload struct {
	ID              string `json:"id"`
	SectionID       string `json:"sectionId"`
	Title           string `json:"title"`
	Order           int    `json:"order"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	VideoURL        string `json:"videoUrl,omitempty"`
	Preview         bool   `json:"preview,omitempty"`
}

type sectionPayload struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Order    int              `json:"order"`
	Lectures []lecturePayload `json:"lectures"`
}

type wizardDataPayload struct {
	CourseID       string           `json:"courseId,omitempty"`
	Title          string           `json:"title"`
	Subtitle       string           `json:"subtitle,omitempty"`
	Category       string           `json:"category,omitempty"`
	Level          string           `json:"level,omitempty"`
	Tags           []string         `json:"tags,omitempty"`
	Sections       []sectionPayload `json:"sections"`
	Description    string           `json:"description,omitempty"`
	LearningPoints []string         `json:"learningPoints,omitempty"`
	Requirements   []string         `json:"requirements,omitempty"`
	Price          int64            `json:"price"`
	OriginalPrice  int64            `json:"originalPrice,omitempty"`
}

type wizardStatePayload struct {
	Data        wizardDataPayload   `json:"data"`
	Steps       []wizardStepPayload `json:"steps"`
	CurrentStep int                 `json:"currentStep"`
	Dirty       bool                `json:"dirty"`
	SavedAt     *time.Time          `json:"savedAt,omitempty"`
}

type fieldErrorPayload struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func buildWizardStatePayload(state services.WizardState) wizardStatePayload {
	payload := wizardStatePayload{
		Data: wizardDataPayload{
			CourseID:       state.Data.CourseID,
			Title:          state.Data.Title,
			Subtitle:       state.Data.Subtitle,
			Category:       state.Data.Category,
			Level:          string(state.Data.Level),
			Tags:           state.Data.Tags,
			Sections:       make([]sectionPayload, len(state.Data.Sections)),
			Description:    state.Data.Description,
			LearningPoints: state.Data.LearningPoints,
			Requirements:   state.Data.Requirements,
			Price:          state.Data.Price,
			OriginalPrice:  state.Data.OriginalPrice,
		},
		Steps:       make([]wizardStepPayload, len(state.Steps)),
		CurrentStep: state.CurrentStep,
		Dirty:       state.Dirty,
	}
	for i, section := range state.Data.Sections {
		sp := sectionPayload{
			ID:       section.ID,
			Title:    section.Title,
			Order:    section.Order,
			Lectures: make([]lecturePayload, len(section.Lectures)),
		}
		for j, lecture := range section.Lectures {
			sp.Lectures[j] = lecturePayload{
				ID:              lecture.ID,
				SectionID:       lecture.SectionID,
				Title:           lecture.Title,
				Order:           lecture.Order,
				DurationMinutes: lecture.DurationMinutes,
				VideoURL:        lecture.VideoURL,
				Preview:         lecture.Preview,
			}
		}
		payload.Data.Sections[i] = sp
	}
	for i, step := range state.Steps {
		payload.Steps[i] = wizardStepPayload{
			Index:       step.Index,
			Title:       step.Title,
			IsValid:     step.IsValid,
			IsCompleted: step.IsCompleted,
		}
	}
	if !state.SavedAt.IsZero() {
		savedAt := state.SavedAt
		payload.SavedAt = &savedAt
	}
	return payload
}

func (h *WizardHandlers) getState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	state, err := h.wizard.StartWizard(ctx, identity.UserID, chi.URLParam(r, "courseKey"))
	if err != nil {
		h.writeWizardError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWizardStatePayload(state))
}

type updateBasicsRequest struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle"`
	Category string   `json:"category"`
	Level    string   `json:"level"`
	Tags     []string `json:"tags"`
}

func (h *WizardHandlers) updateBasics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req updateBasicsRequest
	if err := decodeBody(r, maxWizardBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	state, err := h.wizard.UpdateBasics(ctx, services.UpdateBasicsCommand{
		UserID:    identity.UserID,
		CourseKey: chi.URLParam(r, "courseKey"),
		Title:     req.Title,
		Subtitle:  req.Subtitle,
		Category:  req.Category,
		Level:     req.Level,
		Tags:      req.Tags,
	})
	if err != nil {
		h.writeWizardError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWizardStatePayload(state))
}

type updateLandingPageRequest struct {
	Description    string   `json:"description"`
	LearningPoints []string `json:"learningPoints"`
	Requirements   []string `json:"requirements"`
}

func (h *WizardHandlers) updateLandingPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req updateLandingPageRequest
	if err := decodeBody(r, maxWizardBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	state, err := h.wizard.UpdateLandingPage(ctx, services.UpdateLandingPageCommand{
		UserID:         identity.UserID,
		CourseKey:      chi.URLParam(r, "courseKey"),
		Description:    req.Description,
		LearningPoints: req.LearningPoints,
		Requirements:   req.Requirements,
	})
	if err != nil {
		h.writeWizardError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWizardStatePayload(state))
}

type updatePricingRequest struct {
	Price         int64 `json:"price"`
	OriginalPrice int64 `json:"originalPrice"`
}

func (h *WizardHandlers) updatePricing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req updatePricingRequest
	if err := decodeBody(r, maxWizardBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	state, err := h.wizard.UpdatePricing(ctx, services.UpdatePricingCommand{
		UserID:        identity.UserID,
		CourseKey:     chi.URLParam(r, "courseKey"),
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
	})
	if err != nil {
		h.writeWizardError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWizardStatePayload(state))
}

type titledRequest struct {
	Title string `json:"title"`
}

func (h *WizardHandlers) addSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req titledRequest
	if err := decodeBody(r, maxWizardBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	state, err := h.wizard.AddSection(ctx, identity.UserID, chi.URLParam(r, "courseKey"), req.Title)
	if err != nil {
		h.writeWizardError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildWizardStatePayload(state))
}

func (h *WizardHandlers) deleteSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	state, err := h.wizard.DeleteSection(ctx, identity.UserID, chi.URLParam(r, "courseKey"), chi.URLParam(r, "sectionID"))
	if err != nil {
		h.writeWizardError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWizardStatePayload(state))
}

type reorderRequest struct {
	OrderedIDs []string `json:"orderedIds"`
}

func (h *WizardHandlers) reorderSections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req reorderRequest
	if err := decodeBody(r, maxWizardBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	state, err := h.wizard.ReorderSections(ctx, identity.UserID, chi.URLParam(r, "courseKey"), req.OrderedIDs)
	if err != nil {
		h.writeWizardError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWizardStatePayload(state))
}

func (h *WizardHandlers) addLecture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req titledRequest
	if err := decodeBody(r, maxWizardBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	state, err := h.wizard.AddLecture(ctx, identity.UserID, chi.URLParam(r, "courseKey"), chi.URLParam(r, "sectionID"), req.Title)
	if err != nil {
		h.writeWizardError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildWizardStatePayload(state))
}

func (h *WizardHandlers) deleteLecture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	state, err := h.wizard.DeleteLecture(ctx, identity.UserID, chi.URLParam(r, "courseKey"), chi.URLParam(r, "sectionID"), chi.URLParam(r, "lectureID"))
	if err != nil {
		h.writeWizardError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWizardStatePayload(state))
}

func (h *WizardHandlers) reorderLectures(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req reorderRequest
	if err := decodeBody(r, maxWizardBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	state, err := h.wizard.ReorderLectures(ctx, identity.UserID, chi.URLParam(r, "courseKey"), chi.URLParam(r, "sectionID"), req.OrderedIDs)
	if err != nil {
		h.writeWizardError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWizardStatePayload(state))
}

type moveLectureRequest struct {
	LectureID     string `json:"lectureId"`
	FromSectionID string `json:"fromSectionId"`
	ToSectionID   string `json:"toSectionId"`
	Position      int    `json:"position"`
}

func (h *WizardHandlers) moveLecture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req moveLectureRequest
	if err := decodeBody(r, maxWizardBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	state, err := h.wizard.MoveLecture(ctx, services.MoveLectureCommand{
		UserID:        identity.UserID,
		CourseKey:     chi.URLParam(r, "courseKey"),
		LectureID:     req.LectureID,
		FromSectionID: req.FromSectionID,
		ToSectionID:   req.ToSectionID,
		Position:      req.Position,
	})
	if err != nil {
		h.writeWizardError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWizardStatePayload(state))
}

type goToStepRequest struct {
	Step int `json:"step"`
}

func (h *WizardHandlers) goToStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req goToStepRequest
	if err := decodeBody(r, maxWizardBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	state, err := h.wizard.GoToStep(ctx, identity.UserID, chi.URLParam(r, "courseKey"), req.Step)
	if err != nil {
		h.writeWizardError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWizardStatePayload(state))
}

func (h *WizardHandlers) validateStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var step int
	if _, err := fmt.Sscanf(chi.URLParam(r, "step"), "%d", &step); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "step must be an integer", http.StatusBadRequest))
		return
	}

	state, fieldErrs, err := h.wizard.ValidateStep(ctx, identity.UserID, chi.URLParam(r, "courseKey"), step)
	if err != nil {
		h.writeWizardError(w, r, err)
		return
	}

	errorsPayload := make([]fieldErrorPayload, len(fieldErrs))
	for i, fe := range fieldErrs {
		errorsPayload[i] = fieldErrorPayload{Field: fe.Field, Message: fe.Message}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"state":  buildWizardStatePayload(state),
		"valid":  len(fieldErrs) == 0,
		"errors": errorsPayload,
	})
}

func (h *WizardHandlers) saveDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	state, err := h.wizard.SaveDraft(ctx, identity.UserID, chi.URLParam(r, "courseKey"))
	if err != nil {
		h.writeWizardError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWizardStatePayload(state))
}

func (h *WizardHandlers) discardDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	if err := h.wizard.DiscardDraft(ctx, identity.UserID, chi.URLParam(r, "courseKey")); err != nil {
		h.writeWizardError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WizardHandlers) exportCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	export, err := h.wizard.ExportCourse(ctx, identity.UserID, chi.URLParam(r, "courseKey"))
	if err != nil {
		h.writeWizardError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Body)
}

func (h *WizardHandlers) writeWizardError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrWizardInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrWizardStepBlocked):
		httpx.WriteError(ctx, w, httpx.NewError("step_blocked", "complete the current step before moving on", http.StatusUnprocessableEntity))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("wizard_unavailable", "authoring is unavailable", http.StatusServiceUnavailable))
	}
}
