package consultation

import (
	"time"

	"github.com/google/uuid"

	"github.com/medconsult/medconsult/internal/platform/apperr"
)

const (
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
	StatusCanceled  = "Canceled"
)

// Status names are case-sensitive.
var validStatuses = map[string]bool{
	StatusPending:   true,
	StatusCompleted: true,
	StatusCanceled:  true,
}

// DateLayout is the wire and storage format of a consultation date.
const DateLayout = "2006-01-02"

// ErrInvalidStatus is returned by UpdateStatus for a status outside the
// allowed set.
var ErrInvalidStatus error = &apperr.ValidationError{Message: "invalid status"}

type Consultation struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	PatientName string
	Date        time.Time
	Time        string
	Status      string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	Attachments []*Attachment
}

// Attachment is a stored file. A row exists only for a blob whose upload
// succeeded.
type Attachment struct {
	ID             uuid.UUID
	ConsultationID uuid.UUID
	FileName       string
	FilePath       string
	ContentType    string
	FileSize       int64
	CreatedAt      time.Time
}

// AttachmentDTO is the wire shape of an attachment. URL is the storage key.
type AttachmentDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	URL  string    `json:"url"`
	Type string    `json:"type"`
	Size int64     `json:"size"`
}

// SkippedAttachment names a file that was not stored and why.
type SkippedAttachment struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// DTO is the wire shape of a consultation.
type DTO struct {
	ID                 uuid.UUID           `json:"id"`
	PatientID          uuid.UUID           `json:"patientId"`
	PatientName        string              `json:"patientName"`
	Date               string              `json:"date"`
	Time               string              `json:"time"`
	Status             string              `json:"status"`
	Notes              string              `json:"notes"`
	Attachments        []AttachmentDTO     `json:"attachments"`
	CreatedAt          time.Time           `json:"createdAt"`
	SkippedAttachments []SkippedAttachment `json:"skippedAttachments,omitempty"`
}

func ToDTO(c *Consultation) DTO {
	out := DTO{
		ID:          c.ID,
		PatientID:   c.PatientID,
		PatientName: c.PatientName,
		Date:        c.Date.Format(DateLayout),
		Time:        c.Time,
		Status:      c.Status,
		Notes:       c.Notes,
		Attachments: make([]AttachmentDTO, 0, len(c.Attachments)),
		CreatedAt:   c.CreatedAt,
	}
	for _, a := range c.Attachments {
		out.Attachments = append(out.Attachments, AttachmentDTO{
			ID:   a.ID,
			Name: a.FileName,
			URL:  a.FilePath,
			Type: a.ContentType,
			Size: a.FileSize,
		})
	}
	return out
}

// CreateForm is the multipart form of POST /consultations, minus the files.
type CreateForm struct {
	PatientID string `form:"patientId" validate:"required,uuid"`
	Date      string `form:"date" validate:"required"`
	Time      string `form:"time" validate:"required,max=5"`
	Notes     string `form:"notes" validate:"max=1000"`
}

// StatusRequest is the body of PATCH /consultations/:id/status.
type StatusRequest struct {
	Status string `json:"status"`
}
