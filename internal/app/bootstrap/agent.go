package bootstrap

import (
	"fmt"

	"github.com/wolfman30/bizsite-ai-platform/internal/agent"
	"github.com/wolfman30/bizsite-ai-platform/internal/catalog"
	"github.com/wolfman30/bizsite-ai-platform/internal/completion"
	appconfig "github.com/wolfman30/bizsite-ai-platform/internal/config"
	"github.com/wolfman30/bizsite-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

// AgentDeps are the collaborators the sales agent needs.
type AgentDeps struct {
	Catalog    catalog.Store
	Completion completion.Client
	Leads      agent.LeadCreator
	Metrics    *metrics.ChatMetrics
	Audit      agent.SecurityAuditor
}

// BuildAgentEngine loads the keyword rules and constructs the engine.
func BuildAgentEngine(cfg *appconfig.Config, deps AgentDeps, logger *logging.Logger) (*agent.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if deps.Leads == nil {
		return nil, fmt.Errorf("bootstrap: lead repository is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	rules, err := agent.LoadRules(cfg.AgentRulesPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if cfg.AgentRulesPath != "" {
		logger.Info("agent rules loaded", "path", cfg.AgentRulesPath)
	}

	return agent.NewEngine(agent.EngineConfig{
		Sessions:           agent.NewMemorySessionStore(),
		Catalog:            deps.Catalog,
		Completion:         deps.Completion,
		Leads:              deps.Leads,
		Rules:              rules,
		Metrics:            deps.Metrics,
		Audit:              deps.Audit,
		Logger:             logger,
		MaxMessageLength:   cfg.MaxMessageLength,
		SessionTTL:         cfg.SessionTTL,
		MaxHistory:         cfg.SessionMaxHistory,
		PhoneCountryCode:   cfg.PhoneCountryCode,
		PhoneLocalDigits:   cfg.PhoneLocalDigits,
		AssistantName:      cfg.AssistantName,
		BusinessName:       cfg.BusinessName,
		CatalogContextSize: cfg.CatalogContextSize,
		Temperature:        cfg.CompletionTemperature,
		MaxTokens:          cfg.CompletionMaxTokens,
	}), nil
}
