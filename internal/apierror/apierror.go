// Package apierror provides standardized error response structures.
// The same {detail} envelope is what the remote backend sends on failure,
// so the client decodes it and the BFF re-emits it unchanged.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// FieldError is one failed field of a validation envelope.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string       `json:"detail"`
	Fields []FieldError `json:"fields"`
}

func NewValidation(fields []FieldError) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}
