// Package api implements the agx REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// tokenParam carries the token for clients that cannot set headers, such as
// a browser EventSource on /events.
const tokenParam = "access_token"

// AuthMiddleware returns middleware that validates a Bearer token. With
// enabled false every request passes through.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := requestToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="agx"`)
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestToken(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.CutPrefix(auth, "Bearer ")
	}
	if r.Method == http.MethodGet {
		if tok := r.URL.Query().Get(tokenParam); tok != "" {
			return tok, true
		}
	}
	return "", false
}
