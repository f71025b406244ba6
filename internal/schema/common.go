package schema

// Envelope wraps every /api response.
type Envelope struct {
	Success bool       `json:"success" msgpack:"success"`
	Data    any        `json:"data" msgpack:"data"`
	Error   *ErrorBody `json:"error" msgpack:"error"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code" msgpack:"code"`
	Message string `json:"message" msgpack:"message"`
	Details any    `json:"details" msgpack:"details"`
}

// HealthResponse represents the health check response payload.
type HealthResponse struct {
	Status string `json:"status" msgpack:"status"`
}

// ValidationError reports an invalid request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
