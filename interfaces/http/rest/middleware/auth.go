// Package middleware holds the REST-layer middleware: authentication and
// request logging. Recovery, request IDs and real IPs come from chi's stock
// middleware.
package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"carelink-backend/pkg/api"
	"carelink-backend/pkg/auth"
)

// lambdaIdentityHeader carries the identity resolved by the API Gateway
// authorizer when running behind Lambda.
const lambdaIdentityHeader = "X-Caller-Id"

// Authenticator validates the bearer token and stores the caller identifier
// on the request context. With passthrough set, a pre-verified identity
// header is trusted instead (Lambda deployments, where the gateway
// authorizer has already run).
func Authenticator(validator *auth.Validator, passthrough bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if passthrough {
				if id := r.Header.Get(lambdaIdentityHeader); id != "" {
					next.ServeHTTP(w, r.WithContext(auth.WithCallerID(r.Context(), id)))
					return
				}
			}

			if validator == nil {
				api.Error(w, http.StatusUnauthorized, "authentication not configured")
				return
			}

			claims, err := validator.Validate(r.Header.Get("Authorization"))
			if err != nil {
				logger.Debug("token rejected", zap.Error(err))
				api.Error(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithCallerID(r.Context(), claims.CallerID())))
		})
	}
}
