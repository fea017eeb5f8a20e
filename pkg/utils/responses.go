package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every failed auth request.
type ErrorResponse struct {
	Error             string `json:"error"`
	Details           string `json:"details,omitempty"`
	RemainingAttempts *int   `json:"remainingAttempts,omitempty"`
}

// SuccessResponse is the body of a successful request without payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ResponseJSON writes body as JSON with the given status code
func ResponseJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// ------------- Success responses -------------

// returns 200 OK with body
func ResponseSuccess(w http.ResponseWriter, body any) {
	if body == nil {
		body = SuccessResponse{Success: true}
	}
	ResponseJSON(w, http.StatusOK, body)
}

// ------------- Error responses -------------

// returns 400 Bad Request
func ResponseBadRequest(w http.ResponseWriter, message string) {
	ResponseJSON(w, http.StatusBadRequest, ErrorResponse{Error: message})
}

// returns 400 Bad Request carrying the remaining attempt count
func ResponseInvalidCode(w http.ResponseWriter, message string, remaining int) {
	ResponseJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, RemainingAttempts: &remaining})
}

// returns 401 Unauthorized
func ResponseUnauthorized(w http.ResponseWriter, message string) {
	ResponseJSON(w, http.StatusUnauthorized, ErrorResponse{Error: message})
}

// returns 429 Too Many Requests
func ResponseTooManyRequests(w http.ResponseWriter, message string) {
	ResponseJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: message})
}

// returns 500 Internal Server Error
func ResponseInternalError(w http.ResponseWriter, message, details string) {
	ResponseJSON(w, http.StatusInternalServerError, ErrorResponse{Error: message, Details: details})
}
