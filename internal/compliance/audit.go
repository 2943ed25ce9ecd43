// Package compliance records security-relevant conversation events.
package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

var complianceTracer = otel.Tracer("bizsite.internal.compliance")

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	// EventPromptInjection is logged when a prompt injection attempt is blocked.
	EventPromptInjection AuditEventType = "security.prompt_injection"
	// EventOffTopicRefused is logged when an off-topic request is refused.
	EventOffTopicRefused AuditEventType = "security.off_topic_refused"
)

// AuditEvent represents an immutable audit record.
type AuditEvent struct {
	ID        string          `json:"id"`
	EventType AuditEventType  `json:"event_type"`
	OrgID     string          `json:"org_id"`
	SessionID string          `json:"session_id,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditDetails contains event-specific details.
type AuditDetails struct {
	InjectionReasons []string `json:"injection_reasons,omitempty"`
	Score            float64  `json:"score,omitempty"`
	Category         string   `json:"category,omitempty"`
}

// Auditor receives security events from the conversation engine.
type Auditor interface {
	LogPromptInjection(ctx context.Context, orgID, sessionID string, reasons []string, score float64) error
	LogOffTopicRefused(ctx context.Context, orgID, sessionID, category string) error
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditService persists audit events to Postgres.
type AuditService struct {
	db  execer
	now func() time.Time
}

// NewAuditService creates a new audit service backed by a pgx pool.
func NewAuditService(db execer) *AuditService {
	if db == nil {
		panic("compliance: pgx pool required")
	}
	return &AuditService{db: db, now: time.Now}
}

// LogEvent records an audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.OrgID == "" {
		return fmt.Errorf("compliance: org id required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}

	ctx, span := complianceTracer.Start(ctx, "compliance.log_event")
	defer span.End()
	span.SetAttributes(
		attribute.String("bizsite.org_id", event.OrgID),
		attribute.String("bizsite.audit.event_type", string(event.EventType)),
	)

	query := `
		INSERT INTO security_audit_events (id, event_type, org_id, session_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.Exec(ctx, query,
		event.ID,
		string(event.EventType),
		event.OrgID,
		event.SessionID,
		[]byte(event.Details),
		event.CreatedAt,
	); err != nil {
		span.RecordError(err)
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}
	return nil
}

// LogPromptInjection records a blocked injection attempt. The payload itself
// is never stored.
func (s *AuditService) LogPromptInjection(ctx context.Context, orgID, sessionID string, reasons []string, score float64) error {
	details, _ := json.Marshal(AuditDetails{InjectionReasons: reasons, Score: score})
	return s.LogEvent(ctx, AuditEvent{
		EventType: EventPromptInjection,
		OrgID:     orgID,
		SessionID: sessionID,
		Details:   details,
	})
}

// LogOffTopicRefused records a refused off-topic request.
func (s *AuditService) LogOffTopicRefused(ctx context.Context, orgID, sessionID, category string) error {
	details, _ := json.Marshal(AuditDetails{Category: category})
	return s.LogEvent(ctx, AuditEvent{
		EventType: EventOffTopicRefused,
		OrgID:     orgID,
		SessionID: sessionID,
		Details:   details,
	})
}

// LogAuditor writes audit events to the structured log when no database is
// configured.
type LogAuditor struct {
	logger *logging.Logger
}

func NewLogAuditor(logger *logging.Logger) *LogAuditor {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogAuditor{logger: logger}
}

func (a *LogAuditor) LogPromptInjection(_ context.Context, orgID, sessionID string, reasons []string, score float64) error {
	a.logger.Warn("audit event",
		"event_type", string(EventPromptInjection),
		"org_id", orgID,
		"session_id", sessionID,
		"reasons", reasons,
		"score", score,
	)
	return nil
}

func (a *LogAuditor) LogOffTopicRefused(_ context.Context, orgID, sessionID, category string) error {
	a.logger.Info("audit event",
		"event_type", string(EventOffTopicRefused),
		"org_id", orgID,
		"session_id", sessionID,
		"category", category,
	)
	return nil
}
