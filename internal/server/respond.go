package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/matzehuels/bubbleflow/pkg/errors"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error      string   `json:"error"`
	Code       string   `json:"code,omitempty"`
	Violations []string `json:"violations,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// writeErr maps a pipeline error to its status code and structured body.
func writeErr(w http.ResponseWriter, err error) {
	body := errorResponse{
		Error: errors.UserMessage(err),
		Code:  string(errors.GetCode(err)),
	}
	var ve *errors.ValidationError
	if stderrors.As(err, &ve) {
		body.Error = fmt.Sprintf("invalid %s", ve.Subject)
		for _, v := range ve.Violations {
			body.Violations = append(body.Violations, v.String())
		}
	}
	respondJSON(w, statusFor(err), body)
}

// statusFor returns the HTTP status for err.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeUnknownView, errors.ErrCodeUnknownMetric, errors.ErrCodeUnknownFlowType,
		errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeInvalidData:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeNetwork:
		return http.StatusBadGateway
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// decodeBody decodes a JSON request body into T. An empty body yields the
// zero value.
func decodeBody[T any](w http.ResponseWriter, r *http.Request, limit int64) (T, error) {
	var v T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil && err != io.EOF {
		return v, errors.New(errors.ErrCodeInvalidInput, "invalid request body: %v", err)
	}
	return v, nil
}
