package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/grocyhq/grocy-pos/pkg/correlationid"
)

// Cors allows the browser POS client to call the API from another origin
// during development.
func Cors() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", correlationid.Header},
		ExposedHeaders: []string{correlationid.Header},
		MaxAge:         300,
	})
}
