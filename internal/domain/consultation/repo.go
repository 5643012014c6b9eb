package consultation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists consultations and their attachment rows. Reads
// include the patient name and the attachment list. Unknown ids yield
// apperr.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	List(ctx context.Context) ([]*Consultation, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Consultation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, updatedAt time.Time) error
	// AddAttachments inserts the rows and stamps updated_at in one transaction.
	AddAttachments(ctx context.Context, id uuid.UUID, atts []*Attachment, updatedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// PatientLookup answers whether a patient exists.
type PatientLookup interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
