package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dd0wney/cluso-mapeditor/pkg/logging"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
	"github.com/dd0wney/cluso-mapeditor/pkg/session"
	"github.com/dd0wney/cluso-mapeditor/pkg/validation"
)

// Error reasons reported in ErrorResponse.Reason
const (
	ReasonInvalid     = "invalid_request"
	ReasonNotFound    = "not_found"
	ReasonUnsupported = "unsupported"
	ReasonIntegrity   = "integrity"
	ReasonInternal    = "internal"
)

// requestDecoder decodes and validates request bodies.
// It provides a fluent interface for common request handling patterns.
type requestDecoder struct {
	r          *http.Request
	w          http.ResponseWriter
	server     *Server
	err        error
	statusCode int
}

// NewRequestDecoder creates a new request decoder for the given request.
func (s *Server) NewRequestDecoder(w http.ResponseWriter, r *http.Request) *requestDecoder {
	return &requestDecoder{r: r, w: w, server: s}
}

// DecodeJSON decodes the request body into v. Unknown fields are rejected.
func (rd *requestDecoder) DecodeJSON(v any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	dec := json.NewDecoder(rd.r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			rd.err = fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
			rd.statusCode = http.StatusRequestEntityTooLarge
			return rd
		}
		rd.err = fmt.Errorf("%w: invalid request body: %v", validation.ErrInvalidRequest, err)
		rd.statusCode = http.StatusBadRequest
	}
	return rd
}

// Validate runs fn once decoding succeeded
func (rd *requestDecoder) Validate(fn func() error) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	if err := fn(); err != nil {
		rd.err = err
		rd.statusCode = http.StatusBadRequest
	}
	return rd
}

// HasError returns true if any error occurred during decoding/validation.
func (rd *requestDecoder) HasError() bool {
	return rd.err != nil
}

// Error returns the error if any occurred.
func (rd *requestDecoder) Error() error {
	return rd.err
}

// RespondError sends the error response and returns true if there was an error.
func (rd *requestDecoder) RespondError() bool {
	if rd.err == nil {
		return false
	}
	rd.server.respondError(rd.w, rd.statusCode, ReasonInvalid, rd.err.Error())
	return true
}

// statusFor maps an error to its HTTP status and reason
func statusFor(err error) (int, string) {
	switch {
	case validation.IsInvalidRequest(err), model.IsInvalid(err):
		return http.StatusBadRequest, ReasonInvalid
	case model.IsNotFound(err):
		return http.StatusNotFound, ReasonNotFound
	case model.IsUnsupported(err):
		return http.StatusUnprocessableEntity, ReasonUnsupported
	case model.IsIntegrity(err):
		return http.StatusConflict, ReasonIntegrity
	default:
		return http.StatusInternalServerError, ReasonInternal
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, reason, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
		Reason:  reason,
	})
}

// respondErr maps a domain error to a response. Internal errors are logged
// in full and reported to the client as "<operation> failed".
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, reason := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", logging.Command(operation), logging.Path(r.URL.Path), logging.Error(err))
		message = operation + " failed"
	}
	s.respondError(w, status, reason, message)
}

// sessionFor resolves the {id} path value, answering 404 itself on failure
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.respondErr(w, r, "get session", err)
		return nil, false
	}
	return sess, true
}
