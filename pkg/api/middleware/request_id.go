package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/dskvich/signvideo/pkg/logger"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	RequestIDHeader      = "X-Request-ID"
)

// Keys end up in object names, so only a conservative alphabet is accepted.
var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// RequestID puts a request id into the context and echoes it back. A valid
// Idempotency-Key header is used as the id, anything else gets a fresh UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(IdempotencyKeyHeader)
		if !validKey.MatchString(id) {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		ctx := logger.ContextWithRequestID(r.Context(), id)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
