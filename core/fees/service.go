package fees

import (
	"context"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/school"
)

var (
	// errors
	ErrBucketNotFound = errors.New("fee bucket not found")
	ErrBucketID       = errors.New("fee bucket id is required")
)

type (
	// Snapshots is the per-tenant cached view of the school backend.
	Snapshots interface {
		Snapshot(ctx context.Context) (school.Snapshot, error)
		RequestRefetch()
	}

	// Backend gives access to the school backend of one tenant.
	Backend interface {
		FeeGateway(schoolID string) Gateway
		FeeStructureFallback(schoolID string) FallbackCreator
		Snapshots(schoolID string) Snapshots
	}

	ServiceInterface interface {
		CreateBucket(ctx context.Context, tenant core.Tenant, nb NewFeeBucket) (school.FeeBucket, error)
		UpdateBucket(ctx context.Context, tenant core.Tenant, id string, ub UpdateFeeBucket) (school.FeeBucket, error)
		DeleteBucket(ctx context.Context, tenant core.Tenant, id string) error
		EnsureBuckets(ctx context.Context, tenant core.Tenant, form *FeeStructureForm) (core.Outcome, error)
		CreateFeeStructures(ctx context.Context, tenant core.Tenant, form FeeStructureForm, gradeIDs []string) (Report, error)
	}

	Service struct {
		backend    Backend
		notifier   core.Notifier
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	backend Backend,
	notifier core.Notifier,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
) *Service {
	if notifier == nil {
		notifier = core.NopNotifier{}
	}
	return &Service{
		backend:    backend,
		notifier:   notifier,
		logger:     logger,
		validate:   validate,
		translator: translator,
	}
}

func (svc *Service) CreateBucket(ctx context.Context, tenant core.Tenant, nb NewFeeBucket) (school.FeeBucket, error) {
	nb.Clean()
	if err := svc.validate.Struct(nb); err != nil {
		return school.FeeBucket{}, core.ValidationErrorFrom(err, svc.translator)
	}
	bucket, err := svc.backend.FeeGateway(tenant.SchoolID).CreateFeeBucket(ctx, nb)
	if err == nil && strings.TrimSpace(bucket.ID) == "" {
		err = &core.PostconditionError{Op: "create fee bucket"}
	}
	if err != nil {
		return school.FeeBucket{}, errors.Wrap(err, "creating fee bucket")
	}
	svc.logger.Info("fee bucket created: "+bucket.ID, tenant)
	svc.backend.Snapshots(tenant.SchoolID).RequestRefetch()
	return bucket, nil
}

func (svc *Service) UpdateBucket(ctx context.Context, tenant core.Tenant, id string, ub UpdateFeeBucket) (school.FeeBucket, error) {
	if strings.TrimSpace(id) == "" {
		return school.FeeBucket{}, ErrBucketID
	}
	ub.Clean()
	if err := svc.validate.Struct(ub); err != nil {
		return school.FeeBucket{}, core.ValidationErrorFrom(err, svc.translator)
	}
	bucket, err := svc.backend.FeeGateway(tenant.SchoolID).UpdateFeeBucket(ctx, id, ub)
	if err != nil {
		return school.FeeBucket{}, errors.Wrap(err, "updating fee bucket")
	}
	svc.backend.Snapshots(tenant.SchoolID).RequestRefetch()
	return bucket, nil
}

func (svc *Service) DeleteBucket(ctx context.Context, tenant core.Tenant, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrBucketID
	}
	ok, err := svc.backend.FeeGateway(tenant.SchoolID).DeleteFeeBucket(ctx, id)
	if err != nil {
		return errors.Wrap(err, "deleting fee bucket")
	}
	if !ok {
		return ErrBucketNotFound
	}
	svc.logger.Info("fee bucket deleted: "+id, tenant)
	svc.backend.Snapshots(tenant.SchoolID).RequestRefetch()
	return nil
}

// EnsureBuckets gives a server id to every bucket of the draft that has none, so that all of its
// components become committable. Existing buckets are matched by name, the others are created.
// Creation runs detached from ctx.
func (svc *Service) EnsureBuckets(ctx context.Context, tenant core.Tenant, form *FeeStructureForm) (core.Outcome, error) {
	snaps := svc.backend.Snapshots(tenant.SchoolID)
	snap, err := snaps.Snapshot(ctx)
	if err != nil {
		return core.Outcome{}, err
	}
	gw := svc.backend.FeeGateway(tenant.SchoolID)
	bg := context.Background()

	var out core.Outcome
	created := make(map[string]string) // lower-cased name -> id, shared between terms
	for ti := range form.TermStructures {
		buckets := form.TermStructures[ti].Buckets
		for bi := range buckets {
			b := &buckets[bi]
			if b.Persisted() {
				continue
			}
			name := core.CleanString(b.Name)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if id, ok := created[key]; ok {
				b.ID = &id
				continue
			}
			if existing, ok := snap.BucketByName(name); ok {
				id := existing.ID
				b.ID = &id
				created[key] = id
				continue
			}

			nb := NewFeeBucket{Name: name, Description: b.Description}
			nb.Clean()
			fb, err := gw.CreateFeeBucket(bg, nb)
			if err == nil && strings.TrimSpace(fb.ID) == "" {
				err = &core.PostconditionError{Op: "create fee bucket"}
			}
			if err != nil {
				out.Fail(name, err)
				continue
			}
			id := fb.ID
			b.ID = &id
			created[key] = id
			out.Succeed(name, id)
		}
	}
	if out.Total() > 0 {
		snaps.RequestRefetch()
	}
	return out, nil
}

// CreateFeeStructures runs the Workflow for the given grades against the tenant's current snapshot.
// Once started the run is detached from ctx: every backend call is bounded by the HTTP client
// timeout and the report always covers every grade.
func (svc *Service) CreateFeeStructures(ctx context.Context, tenant core.Tenant, form FeeStructureForm, gradeIDs []string) (Report, error) {
	snaps := svc.backend.Snapshots(tenant.SchoolID)
	snap, err := snaps.Snapshot(ctx)
	if err != nil {
		return Report{}, err
	}
	grades, err := school.ResolveGrades(snap, gradeIDs)
	if err != nil {
		return Report{}, err
	}

	wf := NewWorkflow(
		svc.backend.FeeGateway(tenant.SchoolID),
		svc.backend.FeeStructureFallback(tenant.SchoolID),
		svc.notifier,
		svc.logger,
		svc.validate,
		svc.translator,
	)
	report, err := wf.Run(context.Background(), tenant, form, grades, snap)
	if err != nil {
		return Report{}, err
	}
	svc.logger.Info(report.Summary, tenant)
	if report.Processed() > 0 {
		snaps.RequestRefetch()
	}
	return report, nil
}
