package middleware

import (
	"net/http"

	"github.com/grocyhq/grocy-pos/pkg/correlationid"
)

// CorrelationID reuses the caller-supplied correlation id or generates one,
// stores it on the request context and echoes it in the response.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(correlationid.Header)
			if id == "" {
				id = correlationid.Generate()
			}

			w.Header().Set(correlationid.Header, id)
			r = r.WithContext(correlationid.NewContext(r.Context(), id))

			next.ServeHTTP(w, r)
		})
	}
}
