package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/d-led/iiwsit/pkg/decision"
)

// Error types.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrBatchTooLarge  = errors.New("too many scenarios")
)

// RequestError is a client error with the HTTP status to report it with.
// Fields lists the rejected inputs when the cause was validation.
type RequestError struct {
	Err        error
	Message    string
	Fields     []decision.FieldError
	StatusCode int
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request error (%d): %s", e.StatusCode, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsRequestError checks if an error should be reported to the client as a 4xx.
func IsRequestError(err error) bool {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode >= http.StatusBadRequest && reqErr.StatusCode < http.StatusInternalServerError
	}
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrBatchTooLarge) ||
		errors.Is(err, decision.ErrInvalidParams)
}

// NewRequestError creates a new request error.
func NewRequestError(statusCode int, message string) error {
	return &RequestError{
		Message:    message,
		StatusCode: statusCode,
	}
}

// asRequestError converts err into a RequestError, carrying the field list
// of a validation failure. Errors that are not the client's fault map to 500.
func asRequestError(err error) *RequestError {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	var verr *decision.ValidationError
	if errors.As(err, &verr) {
		return &RequestError{
			Err:        err,
			Message:    decision.ErrInvalidParams.Error(),
			Fields:     verr.Fields,
			StatusCode: http.StatusBadRequest,
		}
	}

	if IsRequestError(err) {
		return &RequestError{Err: err, Message: err.Error(), StatusCode: http.StatusBadRequest}
	}
	return &RequestError{Err: err, Message: "Internal server error", StatusCode: http.StatusInternalServerError}
}

// ErrorResponse is the JSON body sent with 4xx and 5xx responses from the API.
type ErrorResponse struct {
	Error     string                `json:"error"`
	Fields    []decision.FieldError `json:"fields,omitempty"`
	RequestID string                `json:"request_id,omitempty"`
}

// writeError reports err to the client as JSON.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqErr := asRequestError(err)
	s.writeJSON(w, r, reqErr.StatusCode, ErrorResponse{
		Error:     reqErr.Message,
		Fields:    reqErr.Fields,
		RequestID: requestID(r.Context()),
	}, "writeError")
}
