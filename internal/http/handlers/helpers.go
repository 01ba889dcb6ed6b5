// Package handlers implements the HTTP endpoints of the API surface. Every
// handler is a thin translation layer; the portal rules live in the
// medicover and monitor packages.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/azielinski/slotwatch/internal/medicover"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writePortalError maps a failed portal call onto an HTTP status. Auth
// failures mean the owner must log in again; everything else is the portal's
// fault, not the caller's.
func writePortalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, medicover.ErrIncorrectLogin):
		writeError(w, http.StatusUnauthorized, "portal rejected the credentials")
	case medicover.IsAuthFatal(err):
		writeError(w, http.StatusUnauthorized, "portal session could not be established, log in again")
	default:
		writeError(w, http.StatusBadGateway, "portal request failed: "+err.Error())
	}
}
