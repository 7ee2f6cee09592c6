package transport

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
)

var (
	corsAllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	corsAllowHeaders = []string{"Authorization", "Content-Type"}
)

// CORSMiddleware answers preflight requests before route matching. "*" in
// origins allows any origin; an empty list disables cross-origin access.
// The request origin is echoed back so credentials stay usable.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	allowAll := false
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimSuffix(o, "/")] = struct{}{}
	}

	cors := handlers.CORS(
		handlers.AllowedOriginValidator(func(origin string) bool {
			_, ok := allowed[origin]
			return ok || allowAll
		}),
		handlers.AllowedMethods(corsAllowMethods),
		handlers.AllowedHeaders(corsAllowHeaders),
		handlers.AllowCredentials(),
		handlers.MaxAge(600),
		handlers.OptionStatusCode(http.StatusNoContent),
	)

	return func(next http.Handler) http.Handler {
		h := cors(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Origin")
			h.ServeHTTP(w, r)
		})
	}
}
