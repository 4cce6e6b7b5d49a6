package academic

import (
	"context"
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/school"
)

var (
	// errors
	ErrWrongStep       = errors.New("operation not allowed at this step")
	ErrNoAcademicYear  = errors.New("academic year has not been created yet")
	ErrNoTermsCreated  = errors.New("no term could be created")
	ErrTermIndex       = errors.New("term index out of range")
	errDateOrder       = "start date must not be after end date"
	errEmptyTermList   = "at least one term with a name is required"
	errMissingTermDate = "start and end dates are required"
)

// Gateway is the part of the school backend the wizard writes to.
type Gateway interface {
	CreateAcademicYear(ctx context.Context, ny NewAcademicYear) (school.AcademicYear, error)
	CreateTerm(ctx context.Context, academicYearID string, td TermDraft) (school.Term, error)
}

// Wizard drives one academic year and its terms through the academic-year -> terms -> success steps.
// Persisted resources are never rolled back: a year whose terms partially failed stays created.
type Wizard struct {
	state      *State
	validate   *validator.Validate
	translator ut.Translator

	// OnProgress is called after every term creation attempt.
	OnProgress func(TermProgress)
	// OnComplete is called once, when the wizard reaches StepSuccess.
	OnComplete func(Result)
}

// NewWizard wraps state; a zero State starts at StepAcademicYear with the default terms.
func NewWizard(state *State, validate *validator.Validate, translator ut.Translator) *Wizard {
	if state.Step == "" {
		state.Step = StepAcademicYear
	}
	if state.TermDrafts == nil {
		state.TermDrafts = DefaultTerms()
	}
	return &Wizard{state: state, validate: validate, translator: translator}
}

func (w *Wizard) State() State { return *w.state }

func (w *Wizard) Step() Step { return w.state.Step }

// ValidateAcademicYear checks ny without touching the wizard state.
func (w *Wizard) ValidateAcademicYear(ny *NewAcademicYear) error {
	ny.Clean()
	if err := w.validate.Struct(ny); err != nil {
		return core.ValidationErrorFrom(err, w.translator)
	}
	if core.DateAfter(ny.StartDate, ny.EndDate) {
		return core.NewValidationError(nil, core.FieldError{Field: "start_date", Error: errDateOrder})
	}
	return nil
}

// SubmitAcademicYear validates ny and creates the academic year. On failure the wizard stays on StepAcademicYear.
func (w *Wizard) SubmitAcademicYear(ctx context.Context, gw Gateway, ny NewAcademicYear) error {
	if w.state.Step != StepAcademicYear {
		return ErrWrongStep
	}
	if err := w.ValidateAcademicYear(&ny); err != nil {
		return err
	}

	w.state.AcademicYear = ny
	ay, err := gw.CreateAcademicYear(ctx, ny)
	if err == nil && strings.TrimSpace(ay.ID) == "" {
		err = &core.PostconditionError{Op: "create academic year"}
	}
	if err != nil {
		w.state.Error = core.Message(err)
		return errors.Wrap(err, "creating academic year")
	}

	w.state.AcademicYearID = ay.ID
	w.state.Error = ""
	w.state.Message = fmt.Sprintf("academic year %q created", ny.Name)
	w.state.Step = StepTerms
	return nil
}

// SetTerms replaces the client-held term drafts.
func (w *Wizard) SetTerms(drafts []TermDraft) error {
	if w.state.Step == StepSuccess {
		return ErrWrongStep
	}
	w.state.TermDrafts = append([]TermDraft{}, drafts...)
	return nil
}

func (w *Wizard) AddTerm(td TermDraft) error {
	if w.state.Step == StepSuccess {
		return ErrWrongStep
	}
	w.state.TermDrafts = append(w.state.TermDrafts, td)
	return nil
}

func (w *Wizard) RemoveTerm(i int) error {
	if w.state.Step == StepSuccess {
		return ErrWrongStep
	}
	if i < 0 || i >= len(w.state.TermDrafts) {
		return ErrTermIndex
	}
	w.state.TermDrafts = append(w.state.TermDrafts[:i], w.state.TermDrafts[i+1:]...)
	return nil
}

func (w *Wizard) UpdateTerm(i int, td TermDraft) error {
	if w.state.Step == StepSuccess {
		return ErrWrongStep
	}
	if i < 0 || i >= len(w.state.TermDrafts) {
		return ErrTermIndex
	}
	w.state.TermDrafts[i] = td
	return nil
}

// ValidateTerms drops drafts without a name and checks the remaining ones.
// The whole list is rejected if any entry is invalid.
func (w *Wizard) ValidateTerms(drafts []TermDraft) ([]TermDraft, error) {
	named := make([]TermDraft, 0, len(drafts))
	for _, td := range drafts {
		td.Clean()
		if td.Name != "" {
			named = append(named, td)
		}
	}
	if len(named) == 0 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "terms", Error: errEmptyTermList})
	}

	var flds []core.FieldError
	for i, td := range named {
		prefix := fmt.Sprintf("terms[%d].", i)
		if td.StartDate == "" || td.EndDate == "" {
			flds = append(flds, core.FieldError{Field: prefix + "dates", Error: errMissingTermDate})
			continue
		}
		if err := w.validate.Struct(td); err != nil {
			if vErr, ok := core.ValidationErrorFrom(err, w.translator).(*core.ValidationError); ok {
				for _, f := range vErr.Fields {
					flds = append(flds, core.FieldError{Field: prefix + f.Field, Error: f.Error})
				}
				continue
			}
			return nil, err
		}
		if core.DateAfter(td.StartDate, td.EndDate) {
			flds = append(flds, core.FieldError{Field: prefix + "start_date", Error: errDateOrder})
		}
	}
	if len(flds) > 0 {
		return nil, core.NewValidationError(nil, flds...)
	}
	return named, nil
}

// SubmitTerms validates the current term drafts and creates them one after the other.
// A failed term does not stop the remaining ones. With at least one created term the
// wizard moves to StepSuccess; otherwise it stays on StepTerms and ErrNoTermsCreated is returned.
func (w *Wizard) SubmitTerms(ctx context.Context, gw Gateway) error {
	if w.state.Step != StepTerms {
		return ErrWrongStep
	}
	if w.state.AcademicYearID == "" {
		return ErrNoAcademicYear
	}
	drafts, err := w.ValidateTerms(w.state.TermDrafts)
	if err != nil {
		return err
	}

	w.state.Outcome = core.Outcome{}
	w.state.Error = ""
	for i, td := range drafts {
		progress := TermProgress{Index: i, Total: len(drafts), Draft: td}

		term, err := gw.CreateTerm(ctx, w.state.AcademicYearID, td)
		if err == nil && strings.TrimSpace(term.ID) == "" {
			err = &core.PostconditionError{Op: "create term"}
		}
		if err != nil {
			w.state.Outcome.Fail(td.Name, err)
			progress.Err = err
		} else {
			if term.AcademicYearID == "" {
				term.AcademicYearID = w.state.AcademicYearID
			}
			w.state.Terms = append(w.state.Terms, term)
			w.state.Outcome.Succeed(td.Name, term.ID)
			progress.Created = &term
		}
		if w.OnProgress != nil {
			w.OnProgress(progress)
		}
	}

	summary := w.state.Outcome.Summary("terms")
	if w.state.Outcome.Succeeded() == 0 {
		w.state.Error = summary
		return errors.Wrap(ErrNoTermsCreated, summary)
	}

	w.state.Message = summary
	w.state.Step = StepSuccess
	if w.OnComplete != nil {
		w.OnComplete(w.Result())
	}
	return nil
}

// Result reports the created academic year and terms. It is only meaningful at StepSuccess.
func (w *Wizard) Result() Result {
	return Result{
		AcademicYearID: w.state.AcademicYearID,
		Name:           w.state.AcademicYear.Name,
		Terms:          append([]school.Term{}, w.state.Terms...),
		Summary:        w.state.Message,
	}
}

// Cancel discards the local state. Resources already created are left untouched.
func (w *Wizard) Cancel() {
	*w.state = State{ID: w.state.ID, SchoolID: w.state.SchoolID}
}
