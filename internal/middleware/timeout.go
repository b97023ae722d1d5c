package middleware

import (
	"net/http"
	"time"
)

// Timeout bounds API requests. The handler's context is cancelled when the
// deadline passes, which also stops a running conversion.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	message := `{"success":false,"error":{"code":"REQUEST_TIMEOUT","message":"request timed out"}}`

	return func(next http.Handler) http.Handler {
		limited := http.TimeoutHandler(next, timeout, message)

		// http.TimeoutHandler writes its body without a content type; preset
		// one on the real writer. Handler headers still replace it on success.
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			limited.ServeHTTP(w, r)
		})
	}
}
