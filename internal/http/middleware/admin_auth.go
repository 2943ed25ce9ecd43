package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/bizsite-ai-platform/internal/tenancy"
)

type contextKey string

const adminClaimsKey contextKey = "adminClaims"

// AdminClaims are the claims carried by admin tokens. OrgID scopes the token
// to one tenant; tokens without it may pick the org via X-Org-Id.
type AdminClaims struct {
	OrgID string `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

// AdminJWT enforces an HS256-signed JWT for admin endpoints and places the
// resolved org in the request context.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
	)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "admin auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := AdminClaims{}
			token, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			orgID := strings.TrimSpace(r.Header.Get(tenancy.HeaderOrgID))
			if claims.OrgID != "" {
				if orgID != "" && orgID != claims.OrgID {
					http.Error(w, "token not valid for org", http.StatusForbidden)
					return
				}
				orgID = claims.OrgID
			}
			if orgID == "" {
				http.Error(w, "missing org", http.StatusBadRequest)
				return
			}

			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			ctx = tenancy.WithOrgID(ctx, orgID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminClaimsFromContext returns admin JWT claims if present.
func AdminClaimsFromContext(ctx context.Context) (AdminClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(AdminClaims)
	return claims, ok
}
