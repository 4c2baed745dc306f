package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realtyhub/internal/middleware"
	"realtyhub/internal/service"
)

const maxFilesPerUpload = 10

// Upload accepts one or more multipart parts named "files" (or "file").
func (h *HandlerSet) Upload(c *gin.Context) {
	maxBytes := h.svc.Uploads.MaxBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes*maxFilesPerUpload+1<<20)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, "upload", &service.ValidationError{Field: "files", Message: "upload exceeds the allowed size"})
			return
		}
		h.failWith(c, "upload", http.StatusBadRequest, &service.ValidationError{Field: "files", Message: "expected a multipart form"})
		return
	}
	defer form.RemoveAll()

	headers := append(form.File["files"], form.File["file"]...)
	if len(headers) > maxFilesPerUpload {
		h.fail(c, "upload", &service.ValidationError{Field: "files", Message: "too many files"})
		return
	}

	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.fail(c, "upload", err)
			return
		}
		defer f.Close()
		files = append(files, uploadFile(fh, f))
	}

	actor, _ := middleware.PrincipalFrom(c)
	stored, err := h.svc.Uploads.Upload(c.Request.Context(), actor, files)
	if err != nil {
		h.fail(c, "upload", err)
		return
	}
	for _, s := range stored {
		h.metrics.UploadBytes(s.Upload.SizeBytes)
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "upload complete",
		"files":   mapSlice(stored, newFileDTO),
	})
}

func uploadFile(fh *multipart.FileHeader, f multipart.File) service.UploadFile {
	return service.UploadFile{
		Name:         fh.Filename,
		Size:         fh.Size,
		DeclaredType: fh.Header.Get("Content-Type"),
		Body:         f,
	}
}

// DeleteUpload removes an object named by ?filePath=, as a key or public URL.
func (h *HandlerSet) DeleteUpload(c *gin.Context) {
	path := strings.TrimSpace(c.Query("filePath"))
	if path == "" {
		h.fail(c, "upload.delete", &service.ValidationError{Field: "filePath", Message: "is required"})
		return
	}
	if err := h.svc.Uploads.Delete(c.Request.Context(), path); err != nil {
		h.fail(c, "upload.delete", err)
		return
	}
	respondMessage(c, http.StatusOK, "file deleted")
}
