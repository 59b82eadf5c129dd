package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/bachecahq/bacheca/internal/messages"
)

// RateLimit limits requests per IP to the given number per minute, using a
// sliding window. Mounted on the login route to slow credential stuffing.
// Rejections carry the standard error envelope like every other failure.
func RateLimit(requestsPerMinute int, msgs messages.Catalog) func(http.Handler) http.Handler {
	return httprate.Limit(requestsPerMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeAuthError(w, http.StatusTooManyRequests, msgs.Resolve(messages.TooManyRequests))
		}),
	)
}
