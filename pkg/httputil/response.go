package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/platinummonkey/cove/pkg/apperr"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the JSON shape of every error the API returns.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteAppError classifies err into one of the engine error kinds and writes
// the matching status and JSON body. Unclassified errors surface as 500 with
// a generic message so internals never leak.
func WriteAppError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	message := err.Error()
	if code == apperr.CodeInternal {
		message = "internal server error"
	}
	WriteJSON(w, apperr.HTTPStatus(code), ErrorResponse{
		Code:    string(code),
		Message: message,
	})
}

// WriteErrorMessage writes a JSON error response with a custom message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{
		"error": message,
	})
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteNotAuthenticated writes a not authenticated error (401)
func WriteNotAuthenticated(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WriteCreated writes a successful creation response (201 Created) with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteNoContent writes a successful response with no content (204 No Content)
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
