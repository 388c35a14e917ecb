package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// DataResponse wraps a successful response with optional links
type DataResponse struct {
	Data  interface{}       `json:"data"`
	Links map[string]string `json:"_links,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteData writes a successful data response
func WriteData(w http.ResponseWriter, status int, data interface{}, links map[string]string) {
	WriteJSON(w, status, DataResponse{Data: data, Links: links})
}

// WriteError writes an error response using RFC 9457 Problem Details
func WriteError(w http.ResponseWriter, err *ProblemDetails) {
	err.WriteJSON(w)
}

// DecodeJSON decodes a JSON request body into the given struct. Bodies over
// MaxBodyBytes are refused.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// bodyProblem turns a DecodeJSON failure into the problem to send.
func bodyProblem(err error) *ProblemDetails {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return NewPayloadTooLargeError(fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
	}
	return NewBadRequestError("Invalid request body: " + err.Error())
}
