package router

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// HeaderAPIKey carries the shared key of a trusted internal caller.
const HeaderAPIKey = "X-Api-Key"

// middlewareAPIKey guards the routes listed in protected (method -> route
// pattern) behind one of the configured keys. With no keys configured the
// protected routes are refused outright.
func middlewareAPIKey(keys []string, protected map[string]map[string]struct{}) Middleware {
	allowed := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			allowed = append(allowed, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			routes, ok := protected[r.Method]
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			if _, guarded := routes[matchedRoutePath(r)]; !guarded {
				next.ServeHTTP(w, r)
				return
			}

			given := []byte(r.Header.Get(HeaderAPIKey))
			match := 0
			for _, k := range allowed {
				match |= subtle.ConstantTimeCompare(given, k)
			}
			if len(given) == 0 || match != 1 {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
