package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Cors answers preflight requests with 204 and decorates every response
// with the allowed origin. "*" allows any origin.
func Cors(allowOrigins ...string) mux.MiddlewareFunc {
	c := cors.New(cors.Options{
		AllowedOrigins:       allowOrigins,
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:       []string{"*"},
		OptionsPassthrough:   false,
		OptionsSuccessStatus: http.StatusNoContent,
	})
	return c.Handler
}
