package consultation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medconsult/medconsult/internal/platform/apperr"
	"github.com/medconsult/medconsult/internal/platform/blobstore"
)

// Options tunes attachment handling.
type Options struct {
	MaxFileSize       int64
	Policy            string
	UploadConcurrency int
	PurgeOnDelete     bool
}

func DefaultOptions() Options {
	return Options{
		MaxFileSize:       DefaultMaxFileSize,
		Policy:            PolicyBestEffort,
		UploadConcurrency: 1,
	}
}

// Service runs the consultation lifecycle: creation with attachments,
// status changes, deletion and the read projections.
type Service struct {
	repo     Repository
	patients PatientLookup
	blobs    blobstore.Store
	opts     Options
	logger   zerolog.Logger
	metrics  OutcomeRecorder
	now      func() time.Time
}

func NewService(repo Repository, patients PatientLookup, blobs blobstore.Store, opts Options, logger zerolog.Logger) *Service {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Policy == "" {
		opts.Policy = PolicyBestEffort
	}
	if opts.UploadConcurrency < 1 {
		opts.UploadConcurrency = 1
	}
	return &Service{
		repo:     repo,
		patients: patients,
		blobs:    blobs,
		opts:     opts,
		logger:   logger.With().Str("component", "consultation").Logger(),
		metrics:  nopRecorder{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetOutcomeRecorder attaches a recorder for per-file attachment outcomes.
func (s *Service) SetOutcomeRecorder(r OutcomeRecorder) {
	if r == nil {
		r = nopRecorder{}
	}
	s.metrics = r
}

// NewConsultation is the input of Create. Status and timestamps are always
// set by the service.
type NewConsultation struct {
	PatientID uuid.UUID
	Date      string
	Time      string
	Notes     string
	Files     []FileUpload
}

// ParseDate accepts yyyy-MM-dd or an RFC 3339 timestamp, keeping only the
// calendar date.
func ParseDate(s string) (time.Time, error) {
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}

// validTime accepts exactly HH:MM so stored times sort as text.
func validTime(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

// Create registers a consultation for an existing patient. Attachments are
// best-effort under the default policy: files that fail checks or upload
// are skipped and reported, and the consultation is still created. Under
// the strict policy any skipped file rolls the whole request back.
func (s *Service) Create(ctx context.Context, in NewConsultation) (*Consultation, []SkippedAttachment, error) {
	exists, err := s.patients.Exists(ctx, in.PatientID)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, nil, apperr.Validation("patient not found")
	}

	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, nil, apperr.Validation("invalid date")
	}
	if !validTime(in.Time) {
		return nil, nil, apperr.Validation("invalid time, expected HH:MM")
	}
	if utf8.RuneCountInString(in.Notes) > 1000 {
		return nil, nil, apperr.Validation("notes must be at most 1000 characters")
	}

	c := &Consultation{
		ID:        uuid.New(),
		PatientID: in.PatientID,
		Date:      date,
		Time:      in.Time,
		Status:    StatusPending,
		Notes:     in.Notes,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, nil, err
	}

	var skipped []SkippedAttachment
	if len(in.Files) > 0 {
		var stored []*Attachment
		var firstErr error
		for _, r := range s.storeAll(ctx, c.ID, in.Files) {
			if r.att != nil {
				stored = append(stored, r.att)
				continue
			}
			skipped = append(skipped, *r.skipped)
			if firstErr == nil {
				firstErr = fmt.Errorf("attachment %q: %w", r.skipped.Name, r.err)
			}
		}

		if firstErr != nil && s.opts.Policy == PolicyStrict {
			return nil, nil, s.rollback(ctx, c.ID, stored, firstErr)
		}

		if len(stored) > 0 {
			if err := s.repo.AddAttachments(ctx, c.ID, stored, s.now()); err != nil {
				s.abandon(ctx, c.ID, stored)
				return nil, nil, err
			}
		}
	}

	s.logger.Info().
		Str("consultation_id", c.ID.String()).
		Str("patient_id", c.PatientID.String()).
		Int("files", len(in.Files)).
		Int("skipped", len(skipped)).
		Msg("consultation created")

	created, err := s.repo.GetByID(ctx, c.ID)
	if err != nil {
		return nil, nil, err
	}
	return created, skipped, nil
}

// abandon removes a consultation whose attachment rows could not be
// written, along with the blobs already stored for it.
func (s *Service) abandon(ctx context.Context, id uuid.UUID, stored []*Attachment) {
	s.discard(ctx, stored)
	if _, err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("consultation_id", id.String()).Msg("failed to remove consultation")
	}
}

// rollback undoes a strict-policy create and returns the error to report.
func (s *Service) rollback(ctx context.Context, id uuid.UUID, stored []*Attachment, cause error) error {
	s.abandon(ctx, id, stored)
	var rejected bool
	for _, e := range []error{ErrEmptyFile, ErrFileTooLarge, ErrExtensionNotAllowed, ErrFileNameTooLong} {
		if errors.Is(cause, e) {
			rejected = true
		}
	}
	if rejected {
		return apperr.Validation("%s", cause.Error())
	}
	return apperr.StorageIO("store attachment", cause)
}

// UpdateStatus moves a consultation to any allowed status, including its
// current one. The id is checked before the status value.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if !validStatuses[status] {
		return ErrInvalidStatus
	}
	return s.repo.UpdateStatus(ctx, id, status, s.now())
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Consultation, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return sortForListing(items), nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Consultation, error) {
	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return sortForListing(items), nil
}

// Delete removes a consultation and its attachment rows, reporting whether
// it existed. With PurgeOnDelete the blobs are removed too, best-effort.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var atts []*Attachment
	if s.opts.PurgeOnDelete {
		c, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		atts = c.Attachments
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}
	s.discard(ctx, atts)
	s.logger.Info().Str("consultation_id", id.String()).Int("purged", len(atts)).Msg("consultation deleted")
	return true, nil
}

// PrepareDelete collects the attachment blobs of a patient's consultations
// so they can be purged once the patient row, and with it every attachment
// row, is gone. Without PurgeOnDelete it returns nil.
func (s *Service) PrepareDelete(ctx context.Context, patientID uuid.UUID) (func(context.Context), error) {
	if !s.opts.PurgeOnDelete {
		return nil, nil
	}
	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	var atts []*Attachment
	for _, c := range items {
		atts = append(atts, c.Attachments...)
	}
	return func(ctx context.Context) {
		s.discard(ctx, atts)
		s.logger.Info().Str("patient_id", patientID.String()).Int("purged", len(atts)).Msg("patient attachments purged")
	}, nil
}

// sortForListing orders by date, newest first, then by time of day.
func sortForListing(items []*Consultation) []*Consultation {
	if items == nil {
		return []*Consultation{}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.After(items[j].Date)
		}
		return items[i].Time < items[j].Time
	})
	return items
}
