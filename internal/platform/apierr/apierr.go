// Package apierr carries an HTTP status and a stable machine-readable
// code alongside the underlying error, so handlers can map service
// failures onto responses without matching on message strings.
package apierr

import "fmt"

// Error is the service-to-HTTP error contract. Status selects the
// response code, Code is the identifier clients switch on, and Err
// preserves the cause for logging and errors.Is/As chains.
type Error struct {
	Status int
	Code   string
	Err    error
}

// New builds an Error. code is a short snake_case identifier
// ("communication_not_found"), never prose.
func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }
