package bootstrap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"

	appconfig "github.com/wolfman30/bizsite-ai-platform/internal/config"
	"github.com/wolfman30/bizsite-ai-platform/internal/leads"
	"github.com/wolfman30/bizsite-ai-platform/internal/notify"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

// BuildEmailSender returns the sender named by EMAIL_PROVIDER.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.EmailProvider {
	case "", "stub":
		return notify.NewStubEmailSender(logger), nil
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			return nil, errors.New("bootstrap: SENDGRID_API_KEY is required for the sendgrid provider")
		}
		return sender, nil
	case "ses":
		if awsCfg == nil {
			return nil, errors.New("bootstrap: ses provider needs aws config")
		}
		return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown email provider %q", cfg.EmailProvider)
	}
}

// BuildLeadRepository stores leads in Postgres when a pool is given and in
// memory otherwise. New leads are emailed to LEAD_NOTIFY_ADDRESS when set.
func BuildLeadRepository(cfg *appconfig.Config, pool *pgxpool.Pool, sender notify.EmailSender, logger *logging.Logger) leads.Repository {
	if logger == nil {
		logger = logging.Default()
	}

	var repo leads.Repository
	if pool != nil {
		repo = leads.NewPostgresRepository(pool)
	} else {
		logger.Warn("no DATABASE_URL configured; leads are kept in memory")
		repo = leads.NewInMemoryRepository()
	}

	recipients := splitAddresses(cfg.LeadNotifyAddress)
	if len(recipients) == 0 || sender == nil {
		return repo
	}
	notifier := notify.NewLeadNotifier(sender, recipients, cfg.BusinessName, logger)
	return leads.NewNotifyingRepository(repo, notifier, logger)
}

func splitAddresses(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
