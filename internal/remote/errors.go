package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/internal/catalog"
)

// ErrUnsuccessful is wrapped when a 2xx response carries success:false.
var ErrUnsuccessful = errors.New("request was not successful")

// ErrBodyTooLarge is returned when a response exceeds the client's size limit.
var ErrBodyTooLarge = errors.New("response body too large")

// UnsuccessfulError is a 2xx response whose envelope says success:false.
// It matches ErrUnsuccessful under errors.Is.
type UnsuccessfulError struct {
	Message string
}

func (e *UnsuccessfulError) Error() string {
	if e.Message == "" {
		return ErrUnsuccessful.Error()
	}
	return ErrUnsuccessful.Error() + ": " + e.Message
}

func (e *UnsuccessfulError) Is(target error) bool { return target == ErrUnsuccessful }

// NetworkError is a transport failure: the request never produced an
// HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-2xx response other than 422.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// ValidationError is a 422 response. Fields maps each rejected field to
// its messages.
type ValidationError struct {
	Message string
	Fields  catalog.FieldErrors
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Message
	}
	return "validation failed: " + e.Fields.Error()
}

// apiError is the error body the platform API sends.
type apiError struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// handleErrorResponse reads an error response and returns an appropriate error.
func handleErrorResponse(resp *http.Response, body []byte) error {
	var ae apiError
	_ = json.Unmarshal(body, &ae)

	msg := ae.Message
	if msg == "" {
		msg = ae.Error
	}

	if resp.StatusCode == http.StatusUnprocessableEntity {
		ve := &ValidationError{Message: msg, Fields: catalog.FieldErrors{}}
		for field, msgs := range ae.Errors {
			for _, m := range msgs {
				ve.Fields.Add(field, m)
			}
		}
		return ve
	}

	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// StatusCode returns the HTTP status behind err, or 0.
func StatusCode(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity
	}
	return 0
}

// Describe turns an error from this package into a message fit for a
// banner or toast.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var (
		ae *APIError
		ve *ValidationError
		ue *UnsuccessfulError
	)
	switch {
	case errors.Is(err, auth.ErrMissing):
		return "You are not signed in. Sign in to the platform again and retry."
	case IsNetwork(err):
		return "Could not reach the server. Check your connection and try again."
	case errors.As(err, &ve):
		return "Some fields were rejected: " + ve.Fields.Error()
	case errors.As(err, &ae):
		switch ae.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "Your session was rejected by the server. Sign in again."
		case http.StatusNotFound:
			return "Not found."
		}
		if ae.StatusCode >= 500 {
			return fmt.Sprintf("The server failed to handle the request (%d).", ae.StatusCode)
		}
		return ae.Message
	case errors.As(err, &ue):
		if ue.Message == "" {
			return "The server reported the request as unsuccessful."
		}
		return ue.Message
	}
	return err.Error()
}
