package main

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// HTTP helpers shared by the REST and tool-call handlers.

// writeJSON encodes a payload with the standard headers.
func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// writeError writes the structured error envelope used by every endpoint.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// clientIP derives the rate-limit caller key from the request. The first
// X-Forwarded-For hop wins when the service sits behind a proxy; otherwise
// the connection's source address is used.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, found := strings.Cut(forwarded, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
