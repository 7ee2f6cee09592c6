package transport

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/muhammadheryan/catalog-api/application/user"
	"github.com/muhammadheryan/catalog-api/constant"
	utilsContext "github.com/muhammadheryan/catalog-api/utils/context"
	"github.com/muhammadheryan/catalog-api/utils/errors"
)

// AuthMiddleware resolves the bearer token to an active user and stores it
// on the request context.
func AuthMiddleware(userApp user.UserApp) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, errors.SetCustomError(constant.ErrUnauthorize))
				return
			}

			u, err := userApp.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(utilsContext.WithUser(r.Context(), u)))
		})
	}
}

// RoleMiddleware must run after AuthMiddleware. A blank role lets every
// authenticated user through.
func RoleMiddleware(userApp user.UserApp, role string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, _ := utilsContext.GetUser(r.Context())
			if err := userApp.Authorize(u, role); err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
