package tenancy

import (
	"net/http"
	"strings"
)

// HeaderOrgID carries the tenant for public chat and lead endpoints.
const HeaderOrgID = "X-Org-Id"

// Middleware resolves the org from the X-Org-Id header, then the org query
// parameter, then defaultOrgID. Requests with no resolvable org are rejected.
func Middleware(defaultOrgID string) func(http.Handler) http.Handler {
	defaultOrgID = strings.TrimSpace(defaultOrgID)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID := strings.TrimSpace(r.Header.Get(HeaderOrgID))
			if orgID == "" {
				orgID = strings.TrimSpace(r.URL.Query().Get("org"))
			}
			if orgID == "" {
				orgID = defaultOrgID
			}
			if orgID == "" {
				http.Error(w, "missing org", http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOrgID(r.Context(), orgID)))
		})
	}
}
