package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const traceHeader = "X-Trace-ID"

// TraceMiddleware tags every request with a trace id, minting one when the
// caller did not supply a parseable uuid. The id rides the context into
// logs and problem responses and is echoed back on the response.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.NewString()
		}
		w.Header().Set(traceHeader, traceID)

		ctx := context.WithValue(r.Context(), traceContextKey, traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
