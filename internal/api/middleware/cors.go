// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"

	"github.com/ManuGH/capturerelay/internal/api/problem"
)

// CORS returns the cross-origin policy for browser front ends. The CDN cookie
// travels as a cookie, so credentials are allowed for explicit origins. A "*"
// entry allows any origin without credentials.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(allowedOrigins, "*")
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", problem.HeaderRequestID, HeaderCorrelationID},
		ExposedHeaders: []string{
			problem.HeaderRequestID,
			HeaderCorrelationID,
			"X-PSN-Tokenized-Supported",
			"Content-Disposition",
			"Retry-After",
		},
		AllowCredentials: !wildcard,
		MaxAge:           600,
	})
}
