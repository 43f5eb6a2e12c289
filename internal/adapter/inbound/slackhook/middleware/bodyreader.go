package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// rawBodyKey stores the buffered request body in the request context.
type rawBodyKey struct{}

// BodyReader reads and buffers the request body so the exact received bytes
// are available for signature verification before any decoding touches them.
// The body is restored for downstream handlers.
func BodyReader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MB limit
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		r.Body.Close()

		r.Body = io.NopCloser(bytes.NewReader(body))

		ctx := context.WithValue(r.Context(), rawBodyKey{}, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RawBody returns the bytes buffered by BodyReader, or nil when the
// middleware did not run.
func RawBody(r *http.Request) []byte {
	body, _ := r.Context().Value(rawBodyKey{}).([]byte)
	return body
}
