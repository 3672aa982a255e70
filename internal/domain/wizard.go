package domain

import (
	"time"
)

// Wizard step indices. Exactly one step is active at a time; forward
// navigation requires the current step to validate, backward is unconditional.
const (
	WizardStepBasics      = 0
	WizardStepCurriculum  = 1
	WizardStepLandingPage = 2
	WizardStepPricing     = 3
	WizardStepCount       = 4
)

// WizardStep tracks per-step validation state for the authoring flow.
type WizardStep struct {
	Index       int
	Title       string
	IsValid     bool
	IsCompleted bool
}

// CourseLecture is one lecture inside a section. Order is contiguous and
// 1-based within the owning section after every structural change.
type CourseLecture struct {
	ID              string
	SectionID       string
	Title           string
	Order           int
	DurationMinutes int
	VideoURL        string
	Preview         bool
}

// CourseSection is an ordered group of lectures. Order is contiguous and
// 1-based across the course's sections.
type CourseSection struct {
	ID       string
	Title    string
	Order    int
	Lectures []CourseLecture
}

// CourseWizardData is the superset of all wizard steps' fields, mutated
// incrementally while authoring.
type CourseWizardData struct {
	CourseID string

	// Basics
	Title    string
	Subtitle string
	Category string
	Level    CourseLevel
	Tags     []string

	// Curriculum
	Sections []CourseSection

	// Landing page
	Description    string
	LearningPoints []string
	Requirements   []string

	// Pricing
	Price         int64
	OriginalPrice int64
}

// WizardDraft is the locally persisted snapshot of in-progress authoring data.
type WizardDraft struct {
	Data    CourseWizardData
	SavedAt time.Time
}
