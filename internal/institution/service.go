package institution

import (
	"context"
	defError "errors"
	"time"

	"mou-dashboard/internal/directory"
	"mou-dashboard/internal/errors"
	"mou-dashboard/internal/instvals"
	"mou-dashboard/internal/store"
)

type Service interface {
	GetValues(ctx context.Context, wbsRoot, collection, institution string) (instvals.InstitutionValues, error)
	UpsertValues(ctx context.Context, wbsRoot, institution string, update ValuesUpdate) (instvals.InstitutionValues, error)
	ConfirmValues(ctx context.Context, wbsRoot, institution string, headcounts, table, computing bool) (instvals.InstitutionValues, error)
	GetTouchstone(ctx context.Context, wbsRoot string) (int64, error)
	Retouchstone(ctx context.Context, wbsRoot string) (int64, error)
	TodaysInstitutions(ctx context.Context) (map[string]directory.Institution, error)
}

// ValuesUpdate carries the full reported state of one institution. Numeric
// fields are nullable: unset and zero are distinct.
type ValuesUpdate struct {
	PhdsAuthors        *int64
	Faculty            *int64
	ScientistsPostDocs *int64
	GradStudents       *int64
	Cpus               *int64
	Gpus               *int64
	Text               string
}

type DefaultService struct {
	store     store.Service
	directory directory.Client

	now func() time.Time
}

func NewService(storeService store.Service, directoryClient directory.Client) *DefaultService {
	return &DefaultService{
		store:     storeService,
		directory: directoryClient,
		now:       time.Now,
	}
}

func (s *DefaultService) GetValues(ctx context.Context, wbsRoot, collection, institution string) (instvals.InstitutionValues, error) {
	return s.store.GetInstitutionValues(ctx, wbsRoot, collection, institution)
}

// UpsertValues merges the reported values into the live ledger, advancing
// the last-edit timestamp of each attribute group that actually changed.
func (s *DefaultService) UpsertValues(ctx context.Context, wbsRoot, institution string, update ValuesUpdate) (instvals.InstitutionValues, error) {
	current, err := s.store.GetInstitutionValues(ctx, wbsRoot, store.LiveCollection, institution)
	if err != nil {
		return instvals.InstitutionValues{}, err
	}

	merged := current.ComputeLastEdits(
		update.PhdsAuthors,
		update.Faculty,
		update.ScientistsPostDocs,
		update.GradStudents,
		update.Cpus,
		update.Gpus,
		update.Text,
		s.now().Unix(),
	)
	return s.store.SetInstitutionValues(ctx, wbsRoot, institution, merged)
}

// ConfirmValues confirms the requested attribute groups at the current
// time. Re-confirming a group whose confirmation is still valid is
// rejected so the confirmation timestamp cannot churn.
func (s *DefaultService) ConfirmValues(ctx context.Context, wbsRoot, institution string, headcounts, table, computing bool) (instvals.InstitutionValues, error) {
	current, err := s.store.GetInstitutionValues(ctx, wbsRoot, store.LiveCollection, institution)
	if err != nil {
		return instvals.InstitutionValues{}, err
	}

	confirmed, err := current.Confirm(headcounts, table, computing, s.now().Unix())
	if defError.Is(err, instvals.ErrAlreadyConfirmed) {
		return instvals.InstitutionValues{}, errors.Conflict(err.Error(), err)
	}
	if err != nil {
		return instvals.InstitutionValues{}, err
	}
	return s.store.SetInstitutionValues(ctx, wbsRoot, institution, confirmed)
}

func (s *DefaultService) GetTouchstone(ctx context.Context, wbsRoot string) (int64, error) {
	return s.store.GetTouchstone(ctx, wbsRoot)
}

func (s *DefaultService) Retouchstone(ctx context.Context, wbsRoot string) (int64, error) {
	return s.store.Retouchstone(ctx, wbsRoot)
}

// TodaysInstitutions proxies the institution directory, keyed by short name.
func (s *DefaultService) TodaysInstitutions(ctx context.Context) (map[string]directory.Institution, error) {
	institutions, err := s.directory.TodaysInstitutions(ctx)
	if err != nil {
		return nil, err
	}

	byShortName := make(map[string]directory.Institution, len(institutions))
	for _, inst := range institutions {
		byShortName[inst.ShortName] = inst
	}
	return byShortName, nil
}
