package academic

import (
	"fmt"
	"time"

	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/school"
)

// Step is a state of the academic year wizard: academic-year -> terms -> success.
type Step string

const (
	StepAcademicYear Step = "academic-year"
	StepTerms        Step = "terms"
	StepSuccess      Step = "success"

	defaultTermCount = 3
)

// NewAcademicYear contains information needed to create a new academic year.
type NewAcademicYear struct {
	Name      string `json:"name" validate:"required,notblank"`
	StartDate string `json:"start_date" validate:"required,datestr"`
	EndDate   string `json:"end_date" validate:"required,datestr"`
}

func (ny *NewAcademicYear) Clean() {
	ny.Name = core.CleanString(ny.Name)
	ny.StartDate = core.CleanString(ny.StartDate)
	ny.EndDate = core.CleanString(ny.EndDate)
}

// TermDraft is one entry of the client-held, ordered list of terms.
type TermDraft struct {
	Name      string `json:"name" validate:"required,notblank"`
	StartDate string `json:"start_date" validate:"required,datestr"`
	EndDate   string `json:"end_date" validate:"required,datestr"`
}

func (td *TermDraft) Clean() {
	td.Name = core.CleanString(td.Name)
	td.StartDate = core.CleanString(td.StartDate)
	td.EndDate = core.CleanString(td.EndDate)
}

// DefaultTerms returns the term drafts a new wizard starts with.
func DefaultTerms() []TermDraft {
	drafts := make([]TermDraft, 0, defaultTermCount)
	for i := 1; i <= defaultTermCount; i++ {
		drafts = append(drafts, TermDraft{Name: fmt.Sprintf("Term %d", i)})
	}
	return drafts
}

// State is everything a wizard holds between steps. It is discarded on cancel.
type State struct {
	ID             string          `json:"id"`
	SchoolID       string          `json:"school_id"`
	Step           Step            `json:"step"`
	AcademicYear   NewAcademicYear `json:"academic_year"`
	AcademicYearID string          `json:"academic_year_id,omitempty"`
	TermDrafts     []TermDraft     `json:"term_drafts"`
	Terms          []school.Term   `json:"terms"` // successfully created, in creation order
	Outcome        core.Outcome    `json:"outcome"`
	Message        string          `json:"message,omitempty"`
	Error          string          `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
	Version        int             `json:"version"`
	LockedUntil    time.Time       `json:"locked_until"` // zero unless a step is running
}

// Result is reported to the caller once the wizard reaches StepSuccess.
type Result struct {
	AcademicYearID string        `json:"academic_year_id"`
	Name           string        `json:"name"`
	Terms          []school.Term `json:"terms"`
	Summary        string        `json:"summary"`
}

// TermProgress is reported after every term creation attempt.
type TermProgress struct {
	Index   int          `json:"index"`
	Total   int          `json:"total"`
	Draft   TermDraft    `json:"draft"`
	Created *school.Term `json:"created,omitempty"`
	Err     error        `json:"-"`
}
