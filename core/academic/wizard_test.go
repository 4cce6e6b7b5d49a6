package academic

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/school"
	"github.com/aminofabian/squlll/tests"
)

// fakeGateway records calls and fails the ones configured in failYear / failTerms.
type fakeGateway struct {
	yearID    string
	failYear  error
	failTerms map[string]error
	calls     []string
}

func (gw *fakeGateway) CreateAcademicYear(_ context.Context, ny NewAcademicYear) (school.AcademicYear, error) {
	gw.calls = append(gw.calls, "year:"+ny.Name)
	if gw.failYear != nil {
		return school.AcademicYear{}, gw.failYear
	}
	return school.AcademicYear{ID: gw.yearID, Name: ny.Name}, nil
}

func (gw *fakeGateway) CreateTerm(_ context.Context, academicYearID string, td TermDraft) (school.Term, error) {
	gw.calls = append(gw.calls, fmt.Sprintf("term:%s@%s", td.Name, academicYearID))
	if err, ok := gw.failTerms[td.Name]; ok {
		return school.Term{}, err
	}
	return school.Term{ID: "id-" + td.Name, Name: td.Name, StartDate: td.StartDate, EndDate: td.EndDate}, nil
}

func newTestWizard(state *State) *Wizard {
	validate, translator := testutil.Validator()
	return NewWizard(state, validate, translator)
}

func validYear() NewAcademicYear {
	return NewAcademicYear{Name: "2025-2026", StartDate: "2025-01-06", EndDate: "2025-11-28"}
}

func threeTerms() []TermDraft {
	return []TermDraft{
		{Name: "Term 1", StartDate: "2025-01-06", EndDate: "2025-04-04"},
		{Name: "Term 2", StartDate: "2025-04-28", EndDate: "2025-08-01"},
		{Name: "Term 3", StartDate: "2025-08-25", EndDate: "2025-11-28"},
	}
}

func TestWizard_happyPath(t *testing.T) {
	gw := &fakeGateway{yearID: "Y"}
	wiz := newTestWizard(&State{})
	ctx := context.Background()

	if got := wiz.Step(); got != StepAcademicYear {
		t.Fatalf("initial Step() = %v", got)
	}
	assert.Equal(t, DefaultTerms(), wiz.State().TermDrafts)

	if err := wiz.SubmitAcademicYear(ctx, gw, validYear()); err != nil {
		t.Fatalf("SubmitAcademicYear() error = %v", err)
	}
	if wiz.Step() != StepTerms || wiz.State().AcademicYearID != "Y" {
		t.Fatalf("after year: step = %v, id = %q", wiz.Step(), wiz.State().AcademicYearID)
	}

	var (
		progress  []TermProgress
		completed []Result
	)
	wiz.OnProgress = func(p TermProgress) { progress = append(progress, p) }
	wiz.OnComplete = func(r Result) { completed = append(completed, r) }

	_ = wiz.SetTerms(threeTerms())
	if err := wiz.SubmitTerms(ctx, gw); err != nil {
		t.Fatalf("SubmitTerms() error = %v", err)
	}

	// every term is created with the stored academic year id, in order
	assert.Equal(t, []string{"year:2025-2026", "term:Term 1@Y", "term:Term 2@Y", "term:Term 3@Y"}, gw.calls)
	assert.Equal(t, StepSuccess, wiz.Step())
	assert.Len(t, progress, 3)
	assert.Len(t, completed, 1)

	res := wiz.Result()
	assert.Equal(t, "Y", res.AcademicYearID)
	assert.Equal(t, "2025-2026", res.Name)
	assert.Equal(t, "created 3 of 3 terms", res.Summary)
	for _, term := range res.Terms {
		assert.Equal(t, "Y", term.AcademicYearID)
	}
}

func TestWizard_partialTermFailure(t *testing.T) {
	gw := &fakeGateway{
		yearID: "Y",
		failTerms: map[string]error{
			"Term 2": &core.APIError{Op: "create term", Status: 400, Message: "Term dates overlap"},
		},
	}
	wiz := newTestWizard(&State{})
	ctx := context.Background()

	if err := wiz.SubmitAcademicYear(ctx, gw, validYear()); err != nil {
		t.Fatalf("SubmitAcademicYear() error = %v", err)
	}
	_ = wiz.SetTerms(threeTerms())
	if err := wiz.SubmitTerms(ctx, gw); err != nil {
		t.Fatalf("SubmitTerms() error = %v", err)
	}

	// term 3 is still attempted after term 2 failed
	assert.Len(t, gw.calls, 4)
	assert.Equal(t, StepSuccess, wiz.Step())
	st := wiz.State()
	assert.Equal(t, 2, st.Outcome.Succeeded())
	assert.Equal(t, "created 2 of 3 terms; 1 failed (Term 2: Term dates overlap)", st.Message)
	assert.Len(t, st.Terms, 2)
}

func TestWizard_noTermCreated(t *testing.T) {
	failure := &core.APIError{Op: "create term", Status: 500, Message: "internal error"}
	gw := &fakeGateway{yearID: "Y", failTerms: map[string]error{"Term 1": failure, "Term 2": failure}}
	wiz := newTestWizard(&State{})
	ctx := context.Background()

	_ = wiz.SubmitAcademicYear(ctx, gw, validYear())
	_ = wiz.SetTerms(threeTerms()[:2])

	completed := false
	wiz.OnComplete = func(Result) { completed = true }
	err := wiz.SubmitTerms(ctx, gw)
	if errors.Cause(err) != ErrNoTermsCreated {
		t.Fatalf("SubmitTerms() error = %v, want ErrNoTermsCreated", err)
	}
	assert.Equal(t, StepTerms, wiz.Step())
	assert.False(t, completed)
	assert.Contains(t, wiz.State().Error, "created 0 of 2 terms")
}

func TestWizard_SubmitAcademicYear(t *testing.T) {
	apiErr := &core.APIError{Op: "create academic year", Status: 409, Message: "Academic year already exists"}

	tests := []struct {
		name      string
		gw        *fakeGateway
		ny        NewAcademicYear
		wantCalls int
		wantStep  Step
		wantErr   func(error) bool
		wantMsg   string
	}{
		{
			name:      "valid",
			gw:        &fakeGateway{yearID: "Y"},
			ny:        validYear(),
			wantCalls: 1,
			wantStep:  StepTerms,
		},
		{
			name:      "equal start and end dates are accepted",
			gw:        &fakeGateway{yearID: "Y"},
			ny:        NewAcademicYear{Name: "2025", StartDate: "2025-01-06", EndDate: "2025-01-06"},
			wantCalls: 1,
			wantStep:  StepTerms,
		},
		{
			name:     "missing name",
			gw:       &fakeGateway{yearID: "Y"},
			ny:       NewAcademicYear{Name: "  ", StartDate: "2025-01-06", EndDate: "2025-11-28"},
			wantStep: StepAcademicYear,
			wantErr:  isValidationError,
		},
		{
			name:     "missing dates",
			gw:       &fakeGateway{yearID: "Y"},
			ny:       NewAcademicYear{Name: "2025-2026"},
			wantStep: StepAcademicYear,
			wantErr:  isValidationError,
		},
		{
			name:     "start after end",
			gw:       &fakeGateway{yearID: "Y"},
			ny:       NewAcademicYear{Name: "2025-2026", StartDate: "2025-12-01", EndDate: "2025-01-01"},
			wantStep: StepAcademicYear,
			wantErr:  isValidationError,
		},
		{
			name:      "api failure",
			gw:        &fakeGateway{failYear: apiErr},
			ny:        validYear(),
			wantCalls: 1,
			wantStep:  StepAcademicYear,
			wantErr:   func(err error) bool { return errors.Cause(err) == apiErr },
			wantMsg:   "Academic year already exists",
		},
		{
			name:      "response without id",
			gw:        &fakeGateway{yearID: ""},
			ny:        validYear(),
			wantCalls: 1,
			wantStep:  StepAcademicYear,
			wantErr: func(err error) bool {
				_, ok := errors.Cause(err).(*core.PostconditionError)
				return ok
			},
			wantMsg: "create academic year: response did not include an id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wiz := newTestWizard(&State{})
			err := wiz.SubmitAcademicYear(context.Background(), tt.gw, tt.ny)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("SubmitAcademicYear() error = %v", err)
			}
			if tt.wantErr != nil && (err == nil || !tt.wantErr(err)) {
				t.Fatalf("SubmitAcademicYear() error = %v", err)
			}
			assert.Len(t, tt.gw.calls, tt.wantCalls)
			assert.Equal(t, tt.wantStep, wiz.Step())
			assert.Equal(t, tt.wantMsg, wiz.State().Error)
			if tt.wantStep == StepAcademicYear {
				assert.Empty(t, wiz.State().AcademicYearID)
			}
		})
	}
}

func TestWizard_validationIsIdempotent(t *testing.T) {
	state := State{}
	wiz := newTestWizard(&state)
	before := wiz.State()

	bad := NewAcademicYear{Name: "2025-2026", StartDate: "2025-12-01", EndDate: "2025-01-01"}
	for i := 0; i < 3; i++ {
		if err := wiz.ValidateAcademicYear(&bad); !isValidationError(err) {
			t.Fatalf("ValidateAcademicYear() error = %v", err)
		}
		if _, err := wiz.ValidateTerms([]TermDraft{{Name: "Term 1"}}); !isValidationError(err) {
			t.Fatalf("ValidateTerms() error = %v", err)
		}
	}
	assert.Equal(t, before, wiz.State())
}

func TestWizard_ValidateTerms(t *testing.T) {
	wiz := newTestWizard(&State{})

	tests := []struct {
		name       string
		drafts     []TermDraft
		wantNames  []string
		wantFields []string
	}{
		{
			name:      "unnamed drafts are dropped",
			drafts:    append(threeTerms()[:1], TermDraft{Name: " "}, TermDraft{}),
			wantNames: []string{"Term 1"},
		},
		{
			name:       "only unnamed drafts",
			drafts:     []TermDraft{{Name: ""}, {StartDate: "2025-01-01"}},
			wantFields: []string{"terms"},
		},
		{
			name:       "empty list",
			drafts:     nil,
			wantFields: []string{"terms"},
		},
		{
			name: "missing dates",
			drafts: []TermDraft{
				{Name: "Term 1", StartDate: "2025-01-06", EndDate: "2025-04-04"},
				{Name: "Term 2", StartDate: "2025-04-28"},
			},
			wantFields: []string{"terms[1].dates"},
		},
		{
			name: "start after end",
			drafts: []TermDraft{
				{Name: "Term 1", StartDate: "2025-05-01", EndDate: "2025-04-04"},
			},
			wantFields: []string{"terms[0].start_date"},
		},
		{
			name: "malformed date",
			drafts: []TermDraft{
				{Name: "Term 1", StartDate: "2025-01-06", EndDate: "04/04/2025"},
			},
			wantFields: []string{"terms[0].end_date"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := wiz.ValidateTerms(tt.drafts)
			if tt.wantFields != nil {
				vErr, ok := errors.Cause(err).(*core.ValidationError)
				if !ok {
					t.Fatalf("ValidateTerms() error = %v, want *core.ValidationError", err)
				}
				var fields []string
				for _, f := range vErr.Fields {
					fields = append(fields, f.Field)
				}
				assert.Equal(t, tt.wantFields, fields)
				return
			}
			if err != nil {
				t.Fatalf("ValidateTerms() error = %v", err)
			}
			var names []string
			for _, td := range got {
				names = append(names, td.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestWizard_stepGuards(t *testing.T) {
	gw := &fakeGateway{yearID: "Y"}
	ctx := context.Background()

	// terms are never created without an academic year
	wiz := newTestWizard(&State{})
	if err := wiz.SubmitTerms(ctx, gw); err != ErrWrongStep {
		t.Errorf("SubmitTerms() at academic-year step error = %v, want ErrWrongStep", err)
	}
	wiz = newTestWizard(&State{Step: StepTerms})
	if err := wiz.SubmitTerms(ctx, gw); err != ErrNoAcademicYear {
		t.Errorf("SubmitTerms() without year id error = %v, want ErrNoAcademicYear", err)
	}
	assert.Empty(t, gw.calls)

	wiz = newTestWizard(&State{Step: StepSuccess, AcademicYearID: "Y"})
	if err := wiz.SubmitAcademicYear(ctx, gw, validYear()); err != ErrWrongStep {
		t.Errorf("SubmitAcademicYear() at success step error = %v, want ErrWrongStep", err)
	}
	if err := wiz.AddTerm(TermDraft{Name: "Term 4"}); err != ErrWrongStep {
		t.Errorf("AddTerm() at success step error = %v, want ErrWrongStep", err)
	}
}

func TestWizard_termListEditing(t *testing.T) {
	wiz := newTestWizard(&State{})

	_ = wiz.AddTerm(TermDraft{Name: "Term 4"})
	_ = wiz.UpdateTerm(0, TermDraft{Name: "First term"})
	if err := wiz.RemoveTerm(1); err != nil {
		t.Fatalf("RemoveTerm() error = %v", err)
	}
	if err := wiz.RemoveTerm(9); err != ErrTermIndex {
		t.Errorf("RemoveTerm(9) error = %v, want ErrTermIndex", err)
	}

	var names []string
	for _, td := range wiz.State().TermDrafts {
		names = append(names, td.Name)
	}
	assert.Equal(t, []string{"First term", "Term 3", "Term 4"}, names)
}

func TestWizard_Cancel(t *testing.T) {
	state := State{ID: "w1", SchoolID: "s1"}
	wiz := newTestWizard(&state)
	_ = wiz.SubmitAcademicYear(context.Background(), &fakeGateway{yearID: "Y"}, validYear())

	wiz.Cancel()
	assert.Equal(t, State{ID: "w1", SchoolID: "s1"}, state)
}

func isValidationError(err error) bool {
	_, ok := errors.Cause(err).(*core.ValidationError)
	return ok
}
