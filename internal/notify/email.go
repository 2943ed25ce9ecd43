package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

const defaultFromName = "Asistente comercial"

var (
	ErrMissingRecipient = errors.New("notify: recipient is required")
	ErrMissingSubject   = errors.New("notify: subject is required")
)

// EmailSender delivers one message to one recipient.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a single outbound email. ReplyTo lets the sales team answer
// the prospect straight from the alert; Category tags the message in the
// provider's dashboard.
type EmailMessage struct {
	To       string
	ToName   string
	ReplyTo  string
	Subject  string
	Body     string
	HTML     string
	Category string
}

func (m EmailMessage) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrMissingRecipient
	}
	if strings.TrimSpace(m.Subject) == "" {
		return ErrMissingSubject
	}
	return nil
}

// htmlOrText falls back to the plain body so providers that require an HTML
// part still get one.
func (m EmailMessage) htmlOrText() string {
	if m.HTML != "" {
		return m.HTML
	}
	return m.Body
}

type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender returns nil without an API key so bootstrap can report
// the misconfiguration.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *SendGridSender) buildMessage(msg EmailMessage) *mail.SGMailV3 {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, msg.htmlOrText())
	if msg.ReplyTo != "" {
		message.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}
	if msg.Category != "" {
		message.AddCategories(msg.Category)
	}
	return message
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	response, err := s.client.SendWithContext(ctx, s.buildMessage(msg))
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected message", "status", response.StatusCode, "body", response.Body, "to", msg.To)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("email sent", "provider", "sendgrid", "to", msg.To, "category", msg.Category, "status", response.StatusCode)
	return nil
}

// StubEmailSender only logs. It backs EMAIL_PROVIDER=stub for local runs.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.Info("email not sent (stub provider)", "to", msg.To, "reply_to", msg.ReplyTo, "subject", msg.Subject, "category", msg.Category)
	return nil
}

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
