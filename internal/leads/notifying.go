package leads

import (
	"context"

	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

// Notifier is told about every lead after it is stored.
type Notifier interface {
	LeadCreated(ctx context.Context, lead *Lead) error
}

// NotifyingRepository sends a notification after each successful Create.
// Notification failures are logged and never fail the create.
type NotifyingRepository struct {
	Repository
	notifier Notifier
	logger   *logging.Logger
}

func NewNotifyingRepository(repo Repository, notifier Notifier, logger *logging.Logger) *NotifyingRepository {
	if repo == nil {
		panic("leads: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &NotifyingRepository{Repository: repo, notifier: notifier, logger: logger}
}

func (r *NotifyingRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	lead, err := r.Repository.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if r.notifier != nil {
		if err := r.notifier.LeadCreated(ctx, lead); err != nil {
			r.logger.Warn("lead notification failed", "lead_id", lead.ID, "org_id", lead.OrgID, "error", err)
		}
	}
	return lead, nil
}
