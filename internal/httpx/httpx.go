// Package httpx holds the JSON response helpers shared by the handlers.
package httpx

import (
	"encoding/json"
	"net/http"
)

// MaxBodyBytes caps request bodies read by handlers.
const MaxBodyBytes = 1 << 20

func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func Message(w http.ResponseWriter, code int, msg string) {
	JSON(w, code, map[string]string{"message": msg})
}

func Error(w http.ResponseWriter, code int, msg string) {
	JSON(w, code, map[string]string{"error": msg})
}

func Internal(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "Internal error")
}
