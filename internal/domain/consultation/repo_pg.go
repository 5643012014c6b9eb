package consultation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medconsult/medconsult/internal/platform/apperr"
	"github.com/medconsult/medconsult/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const consultationSelect = `
	SELECT c.id, c.patient_id, p.name, c.date, c.time, c.status, c.notes, c.created_at, c.updated_at
	FROM consultation c
	JOIN patient p ON p.id = c.patient_id`

const listOrder = ` ORDER BY c.date DESC, c.time ASC`

const attachmentCols = `id, consultation_id, file_name, file_path, content_type, file_size, created_at`

func (r *repoPG) scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(&c.ID, &c.PatientID, &c.PatientName, &c.Date, &c.Time,
		&c.Status, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Attachments = []*Attachment{}
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *Consultation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO consultation (id, patient_id, date, time, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.PatientID, c.Date, c.Time, c.Status, c.Notes, c.CreatedAt,
	)
	return apperr.Persistence("insert consultation", err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	c, err := r.scanConsultation(r.pool.QueryRow(ctx, consultationSelect+` WHERE c.id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Persistence("get consultation", err)
	}
	if err := r.loadAttachments(ctx, r.pool, []*Consultation{c}); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repoPG) List(ctx context.Context) ([]*Consultation, error) {
	return r.list(ctx, consultationSelect+listOrder)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Consultation, error) {
	return r.list(ctx, consultationSelect+` WHERE c.patient_id = $1`+listOrder, patientID)
}

func (r *repoPG) list(ctx context.Context, sql string, args ...interface{}) ([]*Consultation, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Persistence("list consultations", err)
	}
	defer rows.Close()

	var items []*Consultation
	for rows.Next() {
		c, err := r.scanConsultation(rows)
		if err != nil {
			return nil, apperr.Persistence("scan consultation", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list consultations", err)
	}

	if err := r.loadAttachments(ctx, r.pool, items); err != nil {
		return nil, err
	}
	return items, nil
}

// loadAttachments fills Attachments for every consultation with one query.
func (r *repoPG) loadAttachments(ctx context.Context, q db.Querier, items []*Consultation) error {
	if len(items) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Consultation, len(items))
	ids := make([]string, 0, len(items))
	for _, c := range items {
		byID[c.ID] = c
		ids = append(ids, c.ID.String())
	}

	rows, err := q.Query(ctx, `SELECT `+attachmentCols+` FROM consultation_attachment
		WHERE consultation_id = ANY($1::uuid[])
		ORDER BY created_at, file_name`, ids)
	if err != nil {
		return apperr.Persistence("list attachments", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.ConsultationID, &a.FileName, &a.FilePath,
			&a.ContentType, &a.FileSize, &a.CreatedAt); err != nil {
			return apperr.Persistence("scan attachment", err)
		}
		if c, ok := byID[a.ConsultationID]; ok {
			c.Attachments = append(c.Attachments, &a)
		}
	}
	if err := rows.Err(); err != nil {
		return apperr.Persistence("list attachments", err)
	}
	return nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE consultation SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, updatedAt)
	if err != nil {
		return apperr.Persistence("update consultation status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *repoPG) AddAttachments(ctx context.Context, id uuid.UUID, atts []*Attachment, updatedAt time.Time) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, a := range atts {
			if _, err := tx.Exec(ctx, `
				INSERT INTO consultation_attachment (`+attachmentCols+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				a.ID, id, a.FileName, a.FilePath, a.ContentType, a.FileSize, a.CreatedAt,
			); err != nil {
				return err
			}
		}
		tag, err := tx.Exec(ctx, `UPDATE consultation SET updated_at = $2 WHERE id = $1`, id, updatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return apperr.Persistence("attach files", err)
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM consultation WHERE id = $1`, id)
	if err != nil {
		return false, apperr.Persistence("delete consultation", err)
	}
	return tag.RowsAffected() > 0, nil
}
