package agent

import (
	"context"
	"fmt"
	"regexp"

	"github.com/wolfman30/bizsite-ai-platform/internal/catalog"
	"github.com/wolfman30/bizsite-ai-platform/internal/leads"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

// LeadCreator is the slice of leads.Repository the agent needs.
type LeadCreator interface {
	Create(ctx context.Context, req *leads.CreateLeadRequest) (*leads.Lead, error)
}

type LeadOutcome string

const (
	LeadAsking    LeadOutcome = "asking"
	LeadCreated   LeadOutcome = "created"
	LeadDuplicate LeadOutcome = "duplicate"
	LeadAborted   LeadOutcome = "aborted"
	LeadFailed    LeadOutcome = "failed"
)

type LeadStep struct {
	Outcome LeadOutcome
	Message string
	Lead    *leads.Lead
	Missing []string
}

// LeadCapture collects name, phone and email across turns and creates the
// lead once.
type LeadCapture struct {
	extractor *ContactExtractor
	creator   LeadCreator
	rejection []*regexp.Regexp
	decline   []*regexp.Regexp
	logger    *logging.Logger
}

func NewLeadCapture(cfg *Rules, extractor *ContactExtractor, creator LeadCreator, logger *logging.Logger) *LeadCapture {
	if cfg == nil {
		cfg = DefaultRules()
	}
	if extractor == nil {
		extractor = NewContactExtractor(cfg, "", 0)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadCapture{
		extractor: extractor,
		creator:   creator,
		rejection: mustCompileAll(cfg.Rejection...),
		decline:   mustCompileAll(cfg.Decline...),
		logger:    logger,
	}
}

// Advance runs one lead-capture turn. The caller must hold the session lock.
func (c *LeadCapture) Advance(ctx context.Context, session *Session, message string) LeadStep {
	folded := catalog.Fold(message)
	declined := matchAny(c.decline, folded)

	if !declined && matchAny(c.rejection, folded) {
		session.ContactFormData.Clear()
		session.IsCollectingContactInfo = false
		return LeadStep{
			Outcome: LeadAborted,
			Message: "Entendido, no guardaré tus datos. Si más adelante quieres una cotización, aquí estaré. ¿Te ayudo con algo más?",
		}
	}

	hadName := session.ContactFormData.Name != ""
	if info := c.extractor.Extract(message); !info.Empty() {
		session.ContactFormData.Merge(info)
	}
	session.IsCollectingContactInfo = true
	data := session.ContactFormData

	if data.HasAll() || (declined && data.IsComplete()) {
		return c.create(ctx, session)
	}

	missing := data.Missing()
	greeting := ""
	if !hadName && data.Name != "" {
		greeting = fmt.Sprintf("Gracias, %s. ", firstName(data.Name))
	}
	var ask string
	switch {
	case data.Name == "":
		if session.LastLeadID == "" && data.Phone == "" && data.Email == "" {
			ask = "¡Con gusto te ayudamos! Para que un asesor te contacte, ¿me indicas tu nombre completo?"
		} else {
			ask = "¿Me indicas tu nombre completo?"
		}
	case declined && data.Phone == "" && data.Email == "":
		ask = "Necesito al menos un teléfono o un correo para que podamos contactarte. ¿Cuál prefieres darme?"
	case data.Phone == "":
		ask = "¿Cuál es tu número de teléfono o WhatsApp?"
	default:
		ask = "Por último, ¿cuál es tu correo electrónico? Si no tienes uno, dime \"no tengo correo\"."
	}
	return LeadStep{Outcome: LeadAsking, Message: greeting + ask, Missing: missing}
}

func (c *LeadCapture) create(ctx context.Context, session *Session) LeadStep {
	data := session.ContactFormData
	fingerprint := data.Fingerprint()
	if fingerprint == session.LastLeadFingerprint {
		session.ContactFormData.Clear()
		session.IsCollectingContactInfo = false
		return LeadStep{
			Outcome: LeadDuplicate,
			Message: fmt.Sprintf("Ya tenemos registrados tus datos, %s. Un asesor se pondrá en contacto contigo pronto.", firstName(data.Name)),
		}
	}

	req := &leads.CreateLeadRequest{
		OrgID:     session.OrgID,
		SessionID: session.ID,
		Name:      data.Name,
		Email:     data.Email,
		Phone:     data.Phone,
		Interest:  session.Interest,
		Message:   firstUserMessage(session),
		Source:    leads.SourceChat,
	}
	lead, err := c.creator.Create(ctx, req)
	if err != nil {
		c.logger.Error("lead creation failed", "error", err, "org_id", session.OrgID, "session_id", session.ID)
		return LeadStep{
			Outcome: LeadFailed,
			Message: "Lo siento, tuvimos un problema al registrar tus datos. Por favor, envíame tu último dato de nuevo en unos momentos.",
			Missing: data.Missing(),
		}
	}

	session.LastLeadFingerprint = fingerprint
	session.LastLeadID = lead.ID
	session.ContactFormData.Clear()
	session.IsCollectingContactInfo = false
	c.logger.Info("lead captured from chat", "lead_id", lead.ID, "org_id", session.OrgID, "session_id", session.ID)

	channels := data.Phone
	if channels == "" {
		channels = data.Email
	} else if data.Email != "" {
		channels = data.Phone + " / " + data.Email
	}
	return LeadStep{
		Outcome: LeadCreated,
		Lead:    lead,
		Message: fmt.Sprintf("¡Listo, %s! Registramos tus datos (%s). Un asesor te contactará pronto con tu cotización. ¿Hay algo más en lo que pueda ayudarte?", firstName(data.Name), channels),
	}
}

// firstUserMessage returns the opening user message of the conversation, the
// request the lead is about.
func firstUserMessage(s *Session) string {
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			return m.Content
		}
	}
	return ""
}

func firstName(name string) string {
	for i, r := range name {
		if r == ' ' {
			return name[:i]
		}
	}
	return name
}
