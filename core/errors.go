package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a client-side rejection: it is always raised before any call to the school backend.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// ResolutionError reports a human-readable name that has no matching id in the fetched school snapshot.
type ResolutionError struct {
	Kind       string // "academic year" | "term" | "grade"
	Name       string
	Available  []string
	Suggestion string
}

func (err ResolutionError) Error() string {
	msg := fmt.Sprintf("%s %q not found", err.Kind, err.Name)
	if len(err.Available) > 0 {
		msg += ", available options are: " + strings.Join(err.Available, ", ")
	} else {
		msg += ", no options available"
	}
	if err.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", err.Suggestion)
	}
	return msg
}

// APIError is a transport or API failure reported by the school backend.
type APIError struct {
	Op      string
	Status  int // 0 when the failure came from a GraphQL errors array in a 200 response
	Message string
}

func (err APIError) Error() string {
	if err.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", err.Op, err.Message, err.Status)
	}
	return fmt.Sprintf("%s: %s", err.Op, err.Message)
}

// PostconditionError is raised when a creation call reports success but its result is unusable.
type PostconditionError struct {
	Op string
	ID string
}

func (err PostconditionError) Error() string {
	if err.ID == "" {
		return err.Op + ": response did not include an id"
	}
	return fmt.Sprintf("%s: invalid id %q", err.Op, err.ID)
}

// Message returns the user-facing message of err, unwrapping the typed errors above.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch origErr := errors.Cause(err).(type) {
	case *ValidationError:
		return origErr.Error()
	case *ResolutionError:
		return origErr.Error()
	case *APIError:
		return origErr.Message
	case *PostconditionError:
		return origErr.Error()
	}
	return err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
