package schema

import (
	"net/url"
	"strings"
)

// CreateRecordRequest stores the URL of an uploaded original voice sample.
type CreateRecordRequest struct {
	OriginalURL string  `json:"originalUrl" msgpack:"originalUrl"`
	Note        *string `json:"note,omitempty" msgpack:"note,omitempty"`
}

// Validate checks the request.
func (r *CreateRecordRequest) Validate() error {
	if !validURL(r.OriginalURL) {
		return invalid("originalUrl", "must be an absolute http(s) URL")
	}
	return nil
}

// CreateCloneRequest stores a cloned voice derived from a record.
type CreateCloneRequest struct {
	RecordID  int64  `json:"recordId" msgpack:"recordId"`
	ClonedURL string `json:"clonedUrl" msgpack:"clonedUrl"`
	Model     string `json:"model" msgpack:"model"`
}

// Validate checks the request.
func (r *CreateCloneRequest) Validate() error {
	if r.RecordID <= 0 {
		return invalid("recordId", "is required")
	}
	if !validURL(r.ClonedURL) {
		return invalid("clonedUrl", "must be an absolute http(s) URL")
	}
	if strings.TrimSpace(r.Model) == "" {
		return invalid("model", "is required")
	}
	return nil
}

// RecordIDResponse is returned after creating a record.
type RecordIDResponse struct {
	RecordID int64 `json:"recordId" msgpack:"recordId"`
}

// CloneIDResponse is returned after creating a clone.
type CloneIDResponse struct {
	CloneID int64 `json:"cloneId" msgpack:"cloneId"`
}

// ListResponse wraps a collection.
type ListResponse[T any] struct {
	Items []T `json:"items" msgpack:"items"`
}

// VoiceCloneResponse carries synthesized speech in the cloned voice.
type VoiceCloneResponse struct {
	AudioBase64 string `json:"audioBase64" msgpack:"audioBase64"`
	MimeType    string `json:"mimeType" msgpack:"mimeType"`
}

func validURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
