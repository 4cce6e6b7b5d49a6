package fees

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
	ErrNoGrades = errors.New("at least one grade must be selected")
)

type (
	// Gateway is the part of the school backend the fee workflows write to.
	Gateway interface {
		CreateFeeBucket(ctx context.Context, nb NewFeeBucket) (school.FeeBucket, error)
		UpdateFeeBucket(ctx context.Context, id string, ub UpdateFeeBucket) (school.FeeBucket, error)
		DeleteFeeBucket(ctx context.Context, id string) (bool, error)
		CreateFeeStructure(ctx context.Context, ns NewFeeStructure) (FeeStructure, error)
		CreateFeeStructureItem(ctx context.Context, ni NewFeeStructureItem) (FeeStructureItem, error)
	}

	// FallbackCreator is the alternate fee structure creation path, tried when the primary one fails.
	// It returns the id of the created fee structure.
	FallbackCreator func(ctx context.Context, ns NewFeeStructure) (string, error)
)

// GradeResult is the outcome of one grade of a Workflow run.
// UncommittedTerms names the draft terms whose items the run did not create.
type GradeResult struct {
	Grade            school.GradeLevel `json:"grade"`
	Name             string            `json:"name"`
	FeeStructureID   string            `json:"fee_structure_id,omitempty"`
	UsedFallback     bool              `json:"used_fallback"`
	Skipped          bool              `json:"skipped"`
	SkipReason       string            `json:"skip_reason,omitempty"`
	Items            core.Outcome      `json:"items"`
	UncommittedTerms []string          `json:"uncommitted_terms,omitempty"`
	Summary          string            `json:"summary"`
}

type Report struct {
	Grades  []GradeResult `json:"grades"`
	Summary string        `json:"summary"`
}

// Processed returns the number of grades a fee structure was created for.
func (r Report) Processed() int {
	var n int
	for _, g := range r.Grades {
		if !g.Skipped {
			n++
		}
	}
	return n
}

// Workflow creates one fee structure per selected grade, then its fee structure items.
// Grades are processed one at a time and fail independently of each other.
type Workflow struct {
	gw         Gateway
	fallback   FallbackCreator
	notifier   core.Notifier
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
}

func NewWorkflow(
	gw Gateway,
	fallback FallbackCreator,
	notifier core.Notifier,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
) *Workflow {
	if notifier == nil {
		notifier = core.NopNotifier{}
	}
	return &Workflow{
		gw:         gw,
		fallback:   fallback,
		notifier:   notifier,
		logger:     logger,
		validate:   validate,
		translator: translator,
	}
}

// Validate checks the draft and the grade selection before anything is sent to the school backend.
func (wf *Workflow) Validate(form *FeeStructureForm, grades []school.GradeLevel) error {
	form.Name = core.CleanString(form.Name)
	if err := wf.validate.Struct(form); err != nil {
		return core.ValidationErrorFrom(err, wf.translator)
	}
	if len(grades) == 0 {
		return core.NewValidationError(ErrNoGrades, core.FieldError{Field: "grade_ids", Error: ErrNoGrades.Error()})
	}
	return nil
}

// Run processes every grade in order. Per grade failures are reported in the Report and never
// stop the following grades. Besides validation errors, Run only fails when ctx is done before
// a grade starts; the Report then holds the grades already processed.
func (wf *Workflow) Run(
	ctx context.Context,
	tenant core.Tenant,
	form FeeStructureForm,
	grades []school.GradeLevel,
	snap school.Snapshot,
) (Report, error) {
	if err := wf.Validate(&form, grades); err != nil {
		return Report{}, err
	}

	report := Report{Grades: make([]GradeResult, 0, len(grades))}
	for _, grade := range grades {
		if err := ctx.Err(); err != nil {
			report.Summary = fmt.Sprintf("stopped after %d of %d grades", len(report.Grades), len(grades))
			return report, errors.Wrap(err, report.Summary)
		}
		res := wf.runGrade(ctx, form, grade, len(grades) > 1, snap)
		wf.notifyGrade(ctx, tenant, res)
		report.Grades = append(report.Grades, res)
	}
	report.Summary = fmt.Sprintf("created fee structures for %d of %d grades", report.Processed(), len(grades))
	return report, nil
}

func (wf *Workflow) runGrade(
	ctx context.Context,
	form FeeStructureForm,
	grade school.GradeLevel,
	multiGrade bool,
	snap school.Snapshot,
) GradeResult {
	res := GradeResult{Grade: grade, Name: form.Name}
	if multiGrade {
		res.Name = fmt.Sprintf("%s - %s", form.Name, grade.Name)
	}
	skip := func(err error) GradeResult {
		res.Skipped = true
		res.SkipReason = core.Message(err)
		res.Summary = "skipped: " + res.SkipReason
		wf.logger.Warn(fmt.Sprintf("fee structure %q skipped", res.Name), err)
		return res
	}

	// only the first term structure drives name resolution
	first := form.TermStructures[0]
	resolved, err := school.ResolveTerm(snap, form.academicYearName(first), first.Term)
	if err != nil {
		return skip(err)
	}

	ns := NewFeeStructure{
		Name:           res.Name,
		AcademicYearID: resolved.AcademicYear.ID,
		TermID:         resolved.Term.ID,
		GradeLevelID:   grade.ID,
		BoardingType:   string(form.BoardingType),
	}
	id, usedFallback, err := wf.createStructure(ctx, ns)
	res.UsedFallback = usedFallback
	if err != nil {
		return skip(err)
	}
	res.FeeStructureID = id

	res.Items = wf.createItems(ctx, id, form, resolved.Term.Name)
	res.UncommittedTerms = uncommittedTerms(form, resolved.Term.Name)
	res.Summary = res.Items.Summary("fee structure items")
	if len(res.UncommittedTerms) > 0 {
		res.Summary += fmt.Sprintf("; items of %s not created", strings.Join(res.UncommittedTerms, ", "))
	}
	if res.Items.Failed() > 0 {
		wf.logger.Warn(fmt.Sprintf("fee structure %q: some items failed", res.Name), res.Items)
	}
	return res
}

// createStructure tries the primary creation path, then the fallback one when the primary
// fails or returns no usable id. The resulting id must be UUID-shaped.
func (wf *Workflow) createStructure(ctx context.Context, ns NewFeeStructure) (string, bool, error) {
	fs, err := wf.gw.CreateFeeStructure(ctx, ns)
	if err == nil {
		err = wf.checkID("create fee structure", fs.ID)
	}
	if err == nil {
		return fs.ID, false, nil
	}
	if wf.fallback == nil {
		return "", false, errors.Wrap(err, "creating fee structure")
	}

	wf.logger.Warn(fmt.Sprintf("fee structure %q: primary creation failed, trying fallback", ns.Name), err)
	id, err := wf.fallback(ctx, ns)
	if err == nil {
		err = wf.checkID("create fee structure (fallback)", id)
	}
	if err != nil {
		return "", true, errors.Wrap(err, "creating fee structure")
	}
	return id, true, nil
}

func (wf *Workflow) checkID(op, id string) error {
	if strings.TrimSpace(id) == "" || !core.IsUUID(wf.validate, id) {
		return &core.PostconditionError{Op: op, ID: id}
	}
	return nil
}

// createItems creates one item per positive component of every persisted bucket of the terms named termName.
// Terms with other names are not committed by this run.
func (wf *Workflow) createItems(ctx context.Context, structureID string, form FeeStructureForm, termName string) core.Outcome {
	var out core.Outcome
	for _, ts := range form.TermStructures {
		if core.CleanString(ts.Term) != termName {
			continue
		}
		for _, bucket := range ts.Buckets {
			if !bucket.Persisted() {
				continue
			}
			for _, comp := range bucket.Components {
				amount, ok := comp.ParsedAmount()
				if !ok || !amount.IsPositive() {
					continue
				}
				unit := bucket.Name + "/" + comp.Name
				item, err := wf.gw.CreateFeeStructureItem(ctx, NewFeeStructureItem{
					FeeStructureID: structureID,
					FeeBucketID:    *bucket.ID,
					Amount:         amount,
					IsMandatory:    !bucket.IsOptional,
				})
				if err != nil {
					out.Fail(unit, err)
					continue
				}
				out.Succeed(unit, item.ID)
			}
		}
	}
	return out
}

func uncommittedTerms(form FeeStructureForm, termName string) []string {
	var (
		names []string
		seen  = map[string]bool{termName: true}
	)
	for _, ts := range form.TermStructures {
		name := core.CleanString(ts.Term)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

func (wf *Workflow) notifyGrade(ctx context.Context, tenant core.Tenant, res GradeResult) {
	n := core.Notification{
		Tenant:  tenant,
		Title:   "Fee structure " + res.Name,
		Message: res.Summary,
	}
	if res.Skipped {
		n.Level = core.LevelError
	} else {
		n.Level = core.LevelFor(res.Items.Succeeded(), res.Items.Failed())
	}
	wf.notifier.Notify(ctx, n)
}
