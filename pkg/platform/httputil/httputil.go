// Package httputil centralizes JSON response writing and request decoding
// for the HTTP handlers. Error responses expose only the stable error code
// and, for client errors, the safe message; internal details stay in logs.
package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"

	dErrors "passtrack/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20 // 1 MiB request body cap

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:         http.StatusBadRequest,
	dErrors.CodeValidation:         http.StatusUnprocessableEntity,
	dErrors.CodeInvalidInput:       http.StatusBadRequest,
	dErrors.CodeUnauthorized:       http.StatusUnauthorized,
	dErrors.CodeForbidden:          http.StatusForbidden,
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeConflict:           http.StatusConflict,
	dErrors.CodeInvariantViolation: http.StatusConflict,
	dErrors.CodeTimeout:            http.StatusGatewayTimeout,
	dErrors.CodeInternal:           http.StatusInternalServerError,
}

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a coded error onto an HTTP status and JSON body.
// Internal and timeout failures omit the description so storage details
// never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		code = dErrors.CodeInternal
		status = http.StatusInternalServerError
	}

	body := errorBody{Error: string(code)}
	if status < http.StatusInternalServerError {
		body.Description = dErrors.MessageOf(err)
	}
	WriteJSON(w, status, body)
}

// Validatable is implemented by request DTOs that check their own fields.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the JSON body into T and runs its validation.
// On failure it writes the error response and returns ok=false; handlers
// just return.
func DecodeAndPrepare[T Validatable](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return req, false
	}
	// A body of JSON null decodes into a nil pointer without error.
	if v := reflect.ValueOf(req); v.Kind() == reflect.Pointer && v.IsNil() {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return req, false
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return req, false
	}
	return req, true
}
