package academic

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/aminofabian/squlll/core"
	"github.com/aminofabian/squlll/core/school"
)

var (
	// errors
	ErrSessionNotFound = errors.New("wizard session not found")
	ErrSessionChanged  = errors.New("wizard session was changed by another request")
	ErrSessionBusy     = errors.New("wizard step already in progress")
)

type (
	// SessionRepository stores wizard states between requests. Sessions are scoped by school.
	// UpdateSession only succeeds when state.Version matches the stored version, which it then
	// increments; otherwise it returns ErrSessionChanged.
	SessionRepository interface {
		CreateSession(ctx context.Context, state State) (State, error)
		GetSession(ctx context.Context, schoolID, id string) (State, error)
		UpdateSession(ctx context.Context, state State) (State, error)
		DeleteSession(ctx context.Context, schoolID, id string) error
		PurgeExpiredSessions(ctx context.Context, now time.Time) (int, error)
	}

	// Backend gives access to the school backend of one tenant.
	Backend interface {
		AcademicGateway(schoolID string) Gateway
		Refetcher(schoolID string) school.Refetcher
	}

	ServiceInterface interface {
		Start(ctx context.Context, tenant core.Tenant) (State, error)
		Get(ctx context.Context, tenant core.Tenant, id string) (State, error)
		SubmitAcademicYear(ctx context.Context, tenant core.Tenant, id string, ny NewAcademicYear) (State, error)
		SetTerms(ctx context.Context, tenant core.Tenant, id string, drafts []TermDraft) (State, error)
		SubmitTerms(ctx context.Context, tenant core.Tenant, id string) (State, error)
		Cancel(ctx context.Context, tenant core.Tenant, id string) error
		PurgeExpired(ctx context.Context) (int, error)
	}

	Service struct {
		repo       SessionRepository
		backend    Backend
		notifier   core.Notifier
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
		ttl        time.Duration
		lease      time.Duration
		nowFunc    func() time.Time
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	conf *core.Config,
	repo SessionRepository,
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
		repo:       repo,
		backend:    backend,
		notifier:   notifier,
		logger:     logger,
		validate:   validate,
		translator: translator,
		ttl:        conf.Workflow.SessionTTL,
		lease:      conf.Workflow.StepLease,
		nowFunc:    time.Now,
	}
}

func (svc *Service) Start(ctx context.Context, tenant core.Tenant) (State, error) {
	now := svc.nowFunc().UTC()
	state := State{
		ID:         uuid.New().String(),
		SchoolID:   tenant.SchoolID,
		Step:       StepAcademicYear,
		TermDrafts: DefaultTerms(),
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(svc.ttl),
	}
	return svc.repo.CreateSession(ctx, state)
}

func (svc *Service) Get(ctx context.Context, tenant core.Tenant, id string) (State, error) {
	state, err := svc.repo.GetSession(ctx, tenant.SchoolID, id)
	if err != nil {
		return State{}, err
	}
	if svc.nowFunc().After(state.ExpiresAt) {
		return State{}, ErrSessionNotFound
	}
	return state, nil
}

// SubmitAcademicYear creates the academic year. Once the session is claimed, the backend call and
// the final save run detached from ctx; each backend call is bounded by the HTTP client timeout.
func (svc *Service) SubmitAcademicYear(ctx context.Context, tenant core.Tenant, id string, ny NewAcademicYear) (State, error) {
	state, err := svc.Get(ctx, tenant, id)
	if err != nil {
		return State{}, err
	}
	if state.Step != StepAcademicYear {
		return state, ErrWrongStep
	}
	if err := svc.wizard(&state).ValidateAcademicYear(&ny); err != nil {
		return state, err
	}
	if state, err = svc.claim(ctx, state); err != nil {
		return state, err
	}

	bg := context.Background()
	err = svc.wizard(&state).SubmitAcademicYear(bg, svc.backend.AcademicGateway(tenant.SchoolID), ny)
	if err != nil {
		svc.logger.Warn("academic year creation failed", err, tenant)
		return svc.save(bg, state, err)
	}
	svc.logger.Info("academic year created: "+state.AcademicYearID, tenant)
	return svc.save(bg, state, nil)
}

func (svc *Service) SetTerms(ctx context.Context, tenant core.Tenant, id string, drafts []TermDraft) (State, error) {
	state, err := svc.Get(ctx, tenant, id)
	if err != nil {
		return State{}, err
	}
	if svc.locked(state) {
		return state, ErrSessionBusy
	}
	if err := svc.wizard(&state).SetTerms(drafts); err != nil {
		return state, err
	}
	return svc.save(ctx, state, nil)
}

// SubmitTerms creates every drafted term. Like SubmitAcademicYear it holds the session lease
// for the whole loop and runs detached from ctx.
func (svc *Service) SubmitTerms(ctx context.Context, tenant core.Tenant, id string) (State, error) {
	state, err := svc.Get(ctx, tenant, id)
	if err != nil {
		return State{}, err
	}
	if state.Step != StepTerms {
		return state, ErrWrongStep
	}
	if state, err = svc.claim(ctx, state); err != nil {
		return state, err
	}

	bg := context.Background()
	wiz := svc.wizard(&state)
	wiz.OnProgress = func(p TermProgress) {
		// progressive feedback: readers of the session see every created term right away
		saved, err := svc.repo.UpdateSession(bg, state)
		if err != nil {
			svc.logger.Error("saving term progress", err, tenant)
			return
		}
		state.Version = saved.Version
	}
	wiz.OnComplete = func(res Result) {
		svc.notifier.Notify(bg, core.Notification{
			Tenant:  tenant,
			Level:   core.LevelFor(state.Outcome.Succeeded(), state.Outcome.Failed()),
			Title:   "Academic year " + res.Name,
			Message: res.Summary,
		})
		if r := svc.backend.Refetcher(tenant.SchoolID); r != nil {
			r.RequestRefetch()
		}
	}

	err = wiz.SubmitTerms(bg, svc.backend.AcademicGateway(tenant.SchoolID))
	if errors.Cause(err) == ErrNoTermsCreated {
		svc.logger.Warn("no term created", err, state.Outcome, tenant)
		svc.notifier.Notify(bg, core.Notification{
			Tenant:  tenant,
			Level:   core.LevelError,
			Title:   "Academic year " + state.AcademicYear.Name,
			Message: state.Error,
		})
	}
	return svc.save(bg, state, err)
}

// Cancel discards the wizard state; resources already created in the school backend are kept.
func (svc *Service) Cancel(ctx context.Context, tenant core.Tenant, id string) error {
	return svc.repo.DeleteSession(ctx, tenant.SchoolID, id)
}

func (svc *Service) PurgeExpired(ctx context.Context) (int, error) {
	return svc.repo.PurgeExpiredSessions(ctx, svc.nowFunc().UTC())
}

func (svc *Service) wizard(state *State) *Wizard {
	return NewWizard(state, svc.validate, svc.translator)
}

func (svc *Service) locked(state State) bool {
	return svc.nowFunc().Before(state.LockedUntil)
}

// claim leases the session to the caller for one step. Of two requests racing for the same
// session only the first version-checked save wins; the other gets ErrSessionBusy.
func (svc *Service) claim(ctx context.Context, state State) (State, error) {
	if svc.locked(state) {
		return state, ErrSessionBusy
	}
	state.LockedUntil = svc.nowFunc().UTC().Add(svc.lease)
	claimed, err := svc.repo.UpdateSession(ctx, state)
	if err != nil {
		if errors.Cause(err) == ErrSessionChanged {
			return state, ErrSessionBusy
		}
		return state, errors.Wrap(err, "claiming wizard session")
	}
	return claimed, nil
}

// save releases the lease, persists state and returns stepErr (if any) alongside it.
func (svc *Service) save(ctx context.Context, state State, stepErr error) (State, error) {
	state.LockedUntil = time.Time{}
	state.UpdatedAt = svc.nowFunc().UTC()
	state.ExpiresAt = state.UpdatedAt.Add(svc.ttl)
	saved, err := svc.repo.UpdateSession(ctx, state)
	if err != nil {
		if errors.Cause(err) == ErrSessionChanged {
			return state, ErrSessionBusy
		}
		return state, errors.Wrap(err, "saving wizard session")
	}
	return saved, stepErr
}
