// Package httpapi holds the helpers shared by all HTTP handlers: JSON
// responses, the error envelope, and the request-scoped actor.
package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"equiplink/internal/apperr"
)

// ErrorBody is the wire shape of every error response. Code is the stable
// machine-readable error code; Message is operator-safe text.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes err as the standard error envelope, mapping the code to an
// HTTP status. Internal details never reach the client; they go to the log.
func Error(logger *zap.Logger, w http.ResponseWriter, err error) {
	code := apperr.ErrCode(err)
	status := apperr.HTTPStatus(code)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", zap.String("code", code), zap.Error(err))
	}
	JSON(w, status, ErrorBody{Code: code, Message: apperr.ErrMessage(err)})
}

// Decode reads the request body as JSON into v. Returns an invalid-coded
// error on malformed input.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Invalid("httpapi.Decode", "malformed request body")
	}
	return nil
}
