package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/GTDGit/gtd_catalog/internal/config"
)

// CORS builds the CORS handler for the admin API. It wraps the whole router
// so preflight requests are answered before routing.
func CORS(cfg *config.CORSConfig) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Accept", "Origin", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
}
