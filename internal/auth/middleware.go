package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"service-dispatch/internal/logx"
)

// Middleware authenticates requests with an Authorization: Bearer header.
// WebSocket upgrades may pass the token as the access_token query parameter
// because browsers cannot set headers on them.
func Middleware(v *Verifier, logger logx.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearer(r)
			if err == nil {
				var p Principal
				if p, err = v.Verify(raw); err == nil {
					next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
					return
				}
			}
			logger.Debug("authentication failed",
				logx.String("path", r.URL.Path),
				logx.Err(err),
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="service-dispatch"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

// RequireRole rejects authenticated callers whose role is not role.
func RequireRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if p.Role != role {
				writeError(w, http.StatusForbidden, "only a "+string(role)+" may do this")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", ErrMissingToken
		}
		return strings.TrimSpace(token), nil
	}
	if isUpgrade(r) {
		if t := r.URL.Query().Get("access_token"); t != "" {
			return t, nil
		}
	}
	return "", ErrMissingToken
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
