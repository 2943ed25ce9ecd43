package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/bizsite-ai-platform/internal/agent"
	"github.com/wolfman30/bizsite-ai-platform/internal/compliance"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

// BuildAuditor persists security events to Postgres when a pool is available
// and writes them to the log otherwise.
func BuildAuditor(pool *pgxpool.Pool, logger *logging.Logger) agent.SecurityAuditor {
	if pool == nil {
		return compliance.NewLogAuditor(logger)
	}
	return compliance.NewAuditService(pool)
}
