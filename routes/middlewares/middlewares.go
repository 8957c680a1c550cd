package middlewares

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/mbolis/santas-scanner/config"
	"github.com/mbolis/santas-scanner/log"
)

// CORS applies the configured allow-list. Preflight requests are negotiated
// and then passed on, so that Preflight can answer them.
func CORS(cfg config.CORSConfig, debug bool) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:     cfg.AllowedOrigins,
		AllowedMethods:     cfg.AllowedMethods,
		AllowedHeaders:     cfg.AllowedHeaders,
		MaxAge:             cfg.MaxAge,
		OptionsPassthrough: true,
	}
	if debug {
		opts.Debug = true
		opts.Logger = log.Logger
	}
	return cors.New(opts).Handler
}

// Preflight answers every OPTIONS request with 200 and no body.
func Preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
