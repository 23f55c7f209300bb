package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const (
	KB = 1024

	// DefaultMaxBodySize fits any cart payload with room to spare.
	DefaultMaxBodySize = 64 * KB

	DefaultTimeout = 15 * time.Second
)

// MaxBodySize rejects a declared Content-Length over maxBytes with a 413
// envelope. Chunked bodies are cut off by http.MaxBytesReader while decoding.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				respondTooLarge(w, r)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout cancels the request context after d and answers 503 with the
// standard envelope if the handler has not written anything yet.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	body, err := json.Marshal(envelope{Success: false, Message: "Request timed out. Please try again."})
	if err != nil {
		panic(err)
	}

	return func(next http.Handler) http.Handler {
		th := http.TimeoutHandler(next, d, string(body))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Handlers set their own type; this one only survives on timeout.
			w.Header().Set("Content-Type", "application/json")
			start := time.Now()
			th.ServeHTTP(w, r)
			if r.Context().Err() == nil && time.Since(start) >= d {
				GetLogger(r.Context()).Warn("request timed out", slog.Duration("timeout", d))
			}
		})
	}
}
