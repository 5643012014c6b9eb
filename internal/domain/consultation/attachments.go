package consultation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/medconsult/medconsult/internal/platform/telemetry"
)

// AttachmentContainer is the blob container holding consultation files.
const AttachmentContainer = "consultation-attachments"

// Attachment policies.
const (
	PolicyBestEffort = "best-effort"
	PolicyStrict     = "strict"
)

// DefaultMaxFileSize is the per-file ceiling (10 MiB).
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// Column limits of consultation_attachment.
const (
	maxFileNameLen    = 255
	maxKeyLen         = 500
	maxContentTypeLen = 100
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".txt":  true,
}

var (
	ErrEmptyFile           = errors.New("file is empty")
	ErrFileTooLarge        = errors.New("file exceeds the size limit")
	ErrExtensionNotAllowed = errors.New("file extension is not allowed")
	ErrFileNameTooLong     = errors.New("file name is too long")
)

// sniffLen is how much of a file is read to detect its content type.
const sniffLen = 3072

// FileUpload is one file offered with a new consultation.
type FileUpload struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// OutcomeRecorder counts per-file attachment outcomes.
type OutcomeRecorder interface {
	AttachmentOutcome(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) AttachmentOutcome(string) {}

type fileResult struct {
	att     *Attachment
	skipped *SkippedAttachment
	err     error
}

func (s *Service) checkFile(f FileUpload) error {
	if f.Size <= 0 {
		return ErrEmptyFile
	}
	if f.Size > s.opts.MaxFileSize {
		return fmt.Errorf("%w (%d bytes, limit %d)", ErrFileTooLarge, f.Size, s.opts.MaxFileSize)
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(f.Name))] {
		return ErrExtensionNotAllowed
	}
	if utf8.RuneCountInString(f.Name) > maxFileNameLen {
		return fmt.Errorf("%w (limit %d characters)", ErrFileNameTooLong, maxFileNameLen)
	}
	if utf8.RuneCountInString(attachmentKey(f.Name)) > maxKeyLen {
		return fmt.Errorf("%w (storage key limit %d characters)", ErrFileNameTooLong, maxKeyLen)
	}
	return nil
}

// attachmentKey builds the blob name for a file.
func attachmentKey(name string) string {
	return "consultations/" + uuid.NewString() + "_" + name
}

// contentTypeFor picks the stored content type: the declared one unless it
// is missing, generic or too long for the column, else the sniffed one.
func contentTypeFor(declared string, head []byte) string {
	if declared != "" && declared != "application/octet-stream" && len(declared) <= maxContentTypeLen {
		return declared
	}
	if ct := mimetype.Detect(head).String(); len(ct) <= maxContentTypeLen {
		return ct
	}
	return "application/octet-stream"
}

// storeFile checks and uploads one file. Any error means no row may be
// written for it.
func (s *Service) storeFile(ctx context.Context, consultationID uuid.UUID, f FileUpload) fileResult {
	log := s.logger.With().
		Str("consultation_id", consultationID.String()).
		Str("file_name", f.Name).
		Int64("file_size", f.Size).
		Logger()

	if err := s.checkFile(f); err != nil {
		log.Warn().Err(err).Msg("attachment rejected")
		s.metrics.AttachmentOutcome(telemetry.OutcomeRejected)
		return fileResult{skipped: &SkippedAttachment{Name: f.Name, Reason: err.Error()}, err: err}
	}

	fail := func(err error) fileResult {
		log.Warn().Err(err).Msg("attachment upload failed")
		s.metrics.AttachmentOutcome(telemetry.OutcomeFailed)
		return fileResult{skipped: &SkippedAttachment{Name: f.Name, Reason: "upload failed"}, err: err}
	}

	rc, err := f.Open()
	if err != nil {
		return fail(fmt.Errorf("open %s: %w", f.Name, err))
	}
	defer rc.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fail(fmt.Errorf("read %s: %w", f.Name, err))
	}
	head = head[:n]

	contentType := contentTypeFor(f.ContentType, head)

	key, err := s.blobs.Upload(ctx, AttachmentContainer, io.MultiReader(bytes.NewReader(head), rc), f.Size, contentType, attachmentKey(f.Name))
	if err != nil {
		return fail(err)
	}

	s.metrics.AttachmentOutcome(telemetry.OutcomeStored)
	log.Debug().Str("key", key).Msg("attachment stored")
	return fileResult{att: &Attachment{
		ID:             uuid.New(),
		ConsultationID: consultationID,
		FileName:       f.Name,
		FilePath:       key,
		ContentType:    contentType,
		FileSize:       f.Size,
		CreatedAt:      time.Now().UTC(),
	}}
}

// storeAll attempts every file and returns the stored subset in input
// order. A failure never stops the other files.
func (s *Service) storeAll(ctx context.Context, consultationID uuid.UUID, files []FileUpload) []fileResult {
	results := make([]fileResult, len(files))

	if s.opts.UploadConcurrency <= 1 || len(files) == 1 {
		for i, f := range files {
			results[i] = s.storeFile(ctx, consultationID, f)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(s.opts.UploadConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			results[i] = s.storeFile(ctx, consultationID, f)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// discard removes blobs that were stored for a consultation that is being
// rolled back.
func (s *Service) discard(ctx context.Context, atts []*Attachment) {
	for _, a := range atts {
		if _, err := s.blobs.Delete(ctx, AttachmentContainer, a.FilePath); err != nil {
			s.logger.Warn().Err(err).Str("key", a.FilePath).Msg("failed to remove attachment blob")
		}
	}
}
