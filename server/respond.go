package server

import (
	"encoding/json"
	"net/http"
	"roomchat/errors"
)

type detail struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, detail{Detail: message})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrAlreadyExists), errors.Is(err, errors.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrInvalidCredentials), errors.Is(err, errors.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, errors.ErrAuthorization):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a detail response. Internal failures are logged and
// never leak their message.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("Request failed", "error", err)
		writeDetail(w, status, "Internal server error")
		return
	}
	writeDetail(w, status, err.Error())
}
