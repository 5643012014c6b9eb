package blobstore

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medconsult/medconsult/internal/platform/apperr"
)

var contentTypesByExt = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".txt":  "text/plain",
}

// ContentTypeFor infers a content type from the file extension.
func ContentTypeFor(name string) string {
	if ct, ok := contentTypesByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// contentDisposition builds an attachment header with the filename quoted
// or RFC 2231 encoded as needed.
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}

// Handler serves stored blobs over HTTP.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/files/download/:container/:name", h.Download)
	g.GET("/files/url/:container/:name", h.URL)
}

func (h *Handler) Download(c echo.Context) error {
	ctx := c.Request().Context()
	container, name := c.Param("container"), c.Param("name")

	exists, err := h.store.Exists(ctx, container, name)
	if err != nil {
		return apperr.StorageIO("stat blob", err)
	}
	if !exists {
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}

	rc, err := h.store.Download(ctx, container, name)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "file not found")
		}
		return apperr.StorageIO("download blob", err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, contentDisposition(name))
	return c.Stream(http.StatusOK, ContentTypeFor(name), rc)
}

func (h *Handler) URL(c echo.Context) error {
	u, err := h.store.URL(c.Request().Context(), c.Param("container"), c.Param("name"))
	if err != nil {
		return apperr.StorageIO("blob url", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": u})
}
