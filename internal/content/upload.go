package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/storyhub/backend/internal/apperr"
	"github.com/ayush/storyhub/backend/internal/httpjson"
	"github.com/ayush/storyhub/backend/internal/store"
)

// FileStore defines the interface for uploaded file storage. A nil
// FileStore disables uploads and image serving with 503.
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, int64, error)
}

var (
	errFileRequired = apperr.ErrInvalidInput.WithMessage("file is required")
	errFileTooLarge = apperr.New("FILE_TOO_LARGE", http.StatusRequestEntityTooLarge, "file too large")
	errImageMissing = apperr.ErrNotFound.WithMessage("image not found")
	errNoFileStore  = apperr.New("FILE_STORAGE_UNAVAILABLE", http.StatusServiceUnavailable, "file storage is not configured")
)

// Upload stores the multipart "file" field and responds with the stored
// name, which is what clients put in img fields.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.files == nil {
		httpjson.WriteError(w, r, h.log, errNoFileStore)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httpjson.WriteError(w, r, h.log, errFileTooLarge)
			return
		}
		httpjson.WriteError(w, r, h.log, errFileRequired.WithCause(err))
		return
	}
	defer file.Close()

	base := sanitizeFilename(header.Filename)
	if base == "" {
		httpjson.WriteError(w, r, h.log, errFileRequired.WithMessage("file name is invalid"))
		return
	}
	name := fmt.Sprintf("%d_%s", h.clock.Now().UnixMilli(), base)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := h.files.Put(r.Context(), name, file, header.Size, contentType); err != nil {
		httpjson.WriteError(w, r, h.log, err)
		return
	}
	h.log.InfoContext(r.Context(), "file uploaded", "name", name, "size", header.Size)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, name)
}

// Image streams a previously uploaded file.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	if h.files == nil {
		httpjson.WriteError(w, r, h.log, errNoFileStore)
		return
	}
	name := chi.URLParam(r, "name")
	if sanitizeFilename(name) != name {
		httpjson.WriteError(w, r, h.log, errImageMissing)
		return
	}

	body, contentType, size, err := h.files.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = errImageMissing
		}
		httpjson.WriteError(w, r, h.log, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	if _, err := io.Copy(w, body); err != nil {
		h.log.WarnContext(r.Context(), "image stream interrupted", "name", name, "err", err)
	}
}

// sanitizeFilename keeps only the final path element and drops characters
// that are awkward in object keys and URLs.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20, r == '/', r == '?', r == '#', r == '%':
			return -1
		}
		return r
	}, name)
}
