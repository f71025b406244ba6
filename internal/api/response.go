package api

import (
	"encoding/json"
	"net/http"

	"github.com/cheongeum/cheongeum-server/internal/schema"
)

// Error codes returned in the response envelope.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeNoFile             = "NO_FILE"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeUnsupportedMedia   = "UNSUPPORTED_MEDIA_TYPE"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeVoiceCloneFailed   = "VOICE_CLONE_FAILED"
	CodeStorageNotReady    = "S3_NOT_CONFIGURED"
	CodeDatabaseNotReady   = "DATABASE_NOT_CONFIGURED"
	CodeServerError        = "SERVER_ERROR"
)

// WriteJSON writes a successful envelope around data.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	writeBody(w, status, schema.Envelope{Success: true, Data: data})
}

// WriteError writes a failed envelope with empty details.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorDetails(w, status, code, message, map[string]any{})
}

// WriteErrorDetails writes a failed envelope.
func WriteErrorDetails(w http.ResponseWriter, status int, code, message string, details any) {
	writeBody(w, status, schema.Envelope{
		Success: false,
		Error:   &schema.ErrorBody{Code: code, Message: message, Details: details},
	})
}

func writeBody(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeHTTPError writes err using its HTTPError status and code when present.
func writeHTTPError(w http.ResponseWriter, err error) {
	if httpErr, ok := IsHTTPError(err); ok {
		WriteErrorDetails(w, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.details())
		return
	}
	WriteError(w, http.StatusBadRequest, CodeBadRequest, "Invalid body")
}
