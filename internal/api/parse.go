package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/cheongeum/cheongeum-server/internal/schema"
)

// HTTPError represents an error with an associated HTTP status code and
// envelope error code.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Field   string
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) details() any {
	if e.Field == "" {
		return map[string]any{}
	}
	return map[string]any{"field": e.Field}
}

func badRequest(message string) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Code: CodeBadRequest, Message: message}
}

// validator is implemented by request types in the schema package.
type validator interface {
	Validate() error
}

// ParseRequestBody decodes the request body into the provided value based on Content-Type.
func ParseRequestBody(r *http.Request, v interface{}) error {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}

	switch strings.ToLower(mediaType) {
	case "application/json", "":
		if err := json.NewDecoder(r.Body).Decode(v); err != nil {
			return badRequest("Invalid body")
		}
	case "application/msgpack", "application/x-msgpack":
		if err := msgpack.NewDecoder(r.Body).Decode(v); err != nil {
			return badRequest("Invalid body")
		}
	default:
		return &HTTPError{Status: http.StatusUnsupportedMediaType, Code: CodeUnsupportedMedia, Message: "Unsupported content type"}
	}

	return nil
}

// parseAndValidate decodes the body into v and runs its Validate method.
func parseAndValidate(r *http.Request, v validator) error {
	if err := ParseRequestBody(r, v); err != nil {
		return err
	}
	if err := v.Validate(); err != nil {
		httpErr := badRequest("Invalid body")
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			httpErr.Message = verr.Error()
			httpErr.Field = verr.Field
		}
		return httpErr
	}
	return nil
}

// multipartOverhead is allowed on top of the file limit for boundaries and
// the other form fields.
const multipartOverhead = 1 << 20

// uploadedFile is a file part read fully into memory.
type uploadedFile struct {
	Data        []byte
	Filename    string
	ContentType string
}

// parseUpload reads a multipart form limited to maxBytes and returns the
// named file part. A missing part yields a NO_FILE error.
func parseUpload(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (*uploadedFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &HTTPError{Status: http.StatusRequestEntityTooLarge, Code: CodeFileTooLarge, Message: "File too large"}
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, &HTTPError{Status: http.StatusBadRequest, Code: CodeNoFile, Message: field + " is required"}
		}
		return nil, badRequest("Invalid multipart form")
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, &HTTPError{Status: http.StatusBadRequest, Code: CodeNoFile, Message: field + " is required"}
	}
	defer file.Close()

	if header.Size > maxBytes {
		return nil, &HTTPError{Status: http.StatusRequestEntityTooLarge, Code: CodeFileTooLarge, Message: "File too large"}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, badRequest("Invalid file upload")
	}

	return &uploadedFile{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}

// IsHTTPError checks whether an error is an *HTTPError.
func IsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
