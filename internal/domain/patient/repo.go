package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists patients. GetByID and Update return apperr.ErrNotFound
// for an unknown id; store failures come back wrapped as apperr.ErrPersistence.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	List(ctx context.Context) ([]*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
