package router

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/shandysiswandi/clovigo/internal/pkg/goerror"
)

// DefaultMultipartMemory is the in-memory budget for multipart parsing;
// larger parts spill to temporary files.
const DefaultMultipartMemory = 8 << 20

// Request wraps http.Request with helpers for inbound handlers.
type Request struct {
	*http.Request
}

// UploadedFile is one file part of a multipart request. Close releases it.
type UploadedFile struct {
	multipart.File
	Filename    string
	ContentType string
	Size        int64
}

// GetParam reads a path parameter stored by httprouter.
func (r *Request) GetParam(key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

// GetQuery returns the trimmed query value for key.
func (r *Request) GetQuery(key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// DecodeBody decodes a single JSON document into dst, rejecting unknown fields.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat()
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}

	return nil
}

// ParseMultipart parses a multipart/form-data body, bounding the total body
// size to maxBytes.
func (r *Request) ParseMultipart(maxBytes int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return goerror.NewInvalidFormat("Invalid request content-type")
	}

	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	}

	if err := r.ParseMultipartForm(DefaultMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return goerror.NewInvalidFormat("Request body too large")
		}
		return goerror.NewInvalidFormat()
	}

	return nil
}

// FormString returns the trimmed multipart or urlencoded value for key.
func (r *Request) FormString(key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

// FormFile returns the file part named key. A missing part yields (nil, nil)
// so callers can decide whether the file is required.
func (r *Request) FormFile(key string) (*UploadedFile, error) {
	f, hdr, err := r.Request.FormFile(key)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, goerror.NewInvalidFormat()
	}

	return &UploadedFile{
		File:        f,
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
	}, nil
}
