package apperr

import "errors"

// Failure taxonomy of the control plane. Handlers translate these into
// HTTP responses; the core packages only signal them.
var (
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrTenantMismatch      = errors.New("tenant mismatch")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInactiveAccount     = errors.New("account is not active")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrMalformedToken      = errors.New("malformed or unsigned token")
	ErrDuplicate           = errors.New("record already exists")
	ErrNotFound            = errors.New("record not found")
)

// Detail is a machine-readable error entry.
type Detail struct {
	Code        string                 `json:"code"`
	Description string                 `json:"description"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// Response is the structured failure payload returned for resolution-phase
// errors and other API failures.
type Response struct {
	Succeeded bool     `json:"succeeded"`
	Message   string   `json:"message"`
	Errors    []Detail `json:"errors,omitempty"`
}

// NewResponse builds a failure payload with a single error entry.
func NewResponse(message, code, description string, details map[string]interface{}) *Response {
	return &Response{
		Succeeded: false,
		Message:   message,
		Errors: []Detail{
			{
				Code:        code,
				Description: description,
				Details:     details,
			},
		},
	}
}
