package web

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/nasermirzaei89/vidtube/failure"
	"github.com/nasermirzaei89/vidtube/storage"
)

const (
	maxMultipartMemory    = 32 << 20
	maxProfileRequestSize = 10 << 20
	maxVideoRequestSize   = 1 << 30
)

type multipartForm struct {
	r     *http.Request
	files []multipart.File
}

func parseMultipart(w http.ResponseWriter, r *http.Request, maxSize int64) (*multipartForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	err := r.ParseMultipartForm(maxMultipartMemory)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, fmt.Errorf("failed to parse multipart form: %w", err)
		}

		return nil, &failure.ValidationError{Field: "body", Reason: "must be a multipart form"}
	}

	return &multipartForm{r: r}, nil
}

// file opens the uploaded file of field. A missing file is not an error and
// yields nil.
func (f *multipartForm) file(field string) (*storage.File, error) {
	file, header, err := f.r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to open form file %s: %w", field, err)
	}

	f.files = append(f.files, file)

	return &storage.File{
		Name:        filepath.Base(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, nil
}

func (f *multipartForm) close() {
	for _, file := range f.files {
		_ = file.Close()
	}

	if f.r.MultipartForm != nil {
		err := f.r.MultipartForm.RemoveAll()
		if err != nil {
			slog.ErrorContext(f.r.Context(), "failed to remove multipart temp files", "error", err)
		}
	}
}
