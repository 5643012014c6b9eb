package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Dependents owns resources outside the database that hang off a patient.
// PrepareDelete runs before the row is removed; the returned func runs only
// after a successful delete.
type Dependents interface {
	PrepareDelete(ctx context.Context, patientID uuid.UUID) (func(context.Context), error)
}

type Service struct {
	repo       Repository
	dependents Dependents
	logger     zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "patient").Logger()}
}

// SetDependents registers the cleanup run around Delete.
func (s *Service) SetDependents(d Dependents) {
	s.dependents = d
}

func (s *Service) List(ctx context.Context) ([]*Patient, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Patient{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// Exists reports whether a patient with id is registered.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Patient, error) {
	p := &Patient{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
	}
	req.apply(p)

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Str("patient_id", p.ID.String()).Msg("patient registered")
	return p, nil
}

// Update overwrites every mutable field of an existing patient.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	CreateRequest(req).apply(p)
	now := time.Now().UTC()
	p.UpdatedAt = &now
	return s.repo.Update(ctx, p)
}

// Delete removes the patient together with their consultations and
// attachment rows. It reports whether a patient existed.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var after func(context.Context)
	if s.dependents != nil {
		var err error
		if after, err = s.dependents.PrepareDelete(ctx, id); err != nil {
			return false, err
		}
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		if after != nil {
			after(ctx)
		}
		s.logger.Info().Str("patient_id", id.String()).Msg("patient deleted")
	}
	return deleted, nil
}
