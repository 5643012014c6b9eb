package consultation

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medconsult/medconsult/internal/platform/apperr"
)

// attachmentsField is the multipart field carrying files.
const attachmentsField = "attachments"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/consultations", h.ListConsultations)
	api.GET("/consultations/patient/:patientId", h.ListByPatient)
	api.GET("/consultations/:id", h.GetConsultation)
	api.POST("/consultations", h.CreateConsultation)
	api.PATCH("/consultations/:id/status", h.UpdateStatus)
	api.DELETE("/consultations/:id", h.DeleteConsultation)
}

func parseUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func toDTOs(items []*Consultation) []DTO {
	out := make([]DTO, 0, len(items))
	for _, c := range items {
		out = append(out, ToDTO(c))
	}
	return out
}

func (h *Handler) ListConsultations(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDTOs(items))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := parseUUID(c, "patientId")
	if err != nil {
		return err
	}
	items, err := h.svc.ListByPatient(c.Request().Context(), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDTOs(items))
}

func (h *Handler) GetConsultation(c echo.Context) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return err
	}
	item, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, ToDTO(item))
}

func fileUploads(headers []*multipart.FileHeader) []FileUpload {
	files := make([]FileUpload, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, FileUpload{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return files
}

func (h *Handler) CreateConsultation(c echo.Context) error {
	var form CreateForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	if err := c.Validate(&form); err != nil {
		return err
	}

	in := NewConsultation{
		PatientID: uuid.MustParse(form.PatientID),
		Date:      form.Date,
		Time:      form.Time,
		Notes:     form.Notes,
	}
	if mf, err := c.MultipartForm(); err == nil {
		in.Files = fileUploads(mf.File[attachmentsField])
	}

	created, skipped, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}

	dto := ToDTO(created)
	dto.SkippedAttachments = skipped
	c.Response().Header().Set(echo.HeaderLocation, c.Request().URL.Path+"/"+created.ID.String())
	return c.JSON(http.StatusCreated, dto)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	switch err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, apperr.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
	default:
		return err
	}
}

func (h *Handler) DeleteConsultation(c echo.Context) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return err
	}
	deleted, err := h.svc.Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
	}
	return c.NoContent(http.StatusNoContent)
}
