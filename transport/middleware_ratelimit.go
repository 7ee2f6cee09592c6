package transport

import (
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/muhammadheryan/catalog-api/cmd/config"
	"github.com/muhammadheryan/catalog-api/constant"
	redisrepo "github.com/muhammadheryan/catalog-api/repository/redis"
	"github.com/muhammadheryan/catalog-api/utils/errors"
	"github.com/muhammadheryan/catalog-api/utils/logger"
	"go.uber.org/zap"
)

// RateLimitMiddleware applies a fixed-window limit per client IP and scope.
// It is inactive without Redis and fails open when Redis errors.
func RateLimitMiddleware(redisRepo redisrepo.Repository, cfg config.RateLimitConfig, scope string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled || cfg.Requests <= 0 || !redisRepo.Enabled() {
			return next
		}
		retryAfter := strconv.Itoa(int(cfg.Window.Seconds()))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:" + scope + ":" + clientIP(r)
			n, err := redisRepo.IncrWindow(r.Context(), key, cfg.Window)
			if err != nil {
				logger.Warn("[RateLimit] err redisRepo.IncrWindow", zap.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}
			if n > int64(cfg.Requests) {
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, errors.SetCustomError(constant.ErrTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
