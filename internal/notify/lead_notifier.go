package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/bizsite-ai-platform/internal/leads"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

// LeadCategory tags lead alerts at the email provider.
const LeadCategory = "lead_alert"

const leadSubjectTemplate = `Nuevo lead: {{.Name}}{{if .Interest}} ({{.Interest}}){{end}}`

const leadTextTemplate = `Se registró un nuevo lead en {{.Business}}.

Nombre: {{.Name}}
Teléfono: {{if .Phone}}{{.Phone}}{{else}}-{{end}}
Correo: {{if .Email}}{{.Email}}{{else}}-{{end}}
Interés: {{if .Interest}}{{.Interest}}{{else}}-{{end}}
Origen: {{.Source}}
Fecha: {{.CreatedAt}}
{{if .Message}}
Mensaje:
{{.Message}}
{{end}}`

const leadHTMLTemplate = `<p>Se registró un nuevo lead en <strong>{{.Business}}</strong>.</p>
<table>
<tr><td>Nombre</td><td>{{.Name}}</td></tr>
<tr><td>Teléfono</td><td>{{.Phone}}</td></tr>
<tr><td>Correo</td><td>{{.Email}}</td></tr>
<tr><td>Interés</td><td>{{.Interest}}</td></tr>
<tr><td>Origen</td><td>{{.Source}}</td></tr>
<tr><td>Fecha</td><td>{{.CreatedAt}}</td></tr>
</table>{{if .Message}}
<p>{{.Message}}</p>{{end}}`

type leadView struct {
	Business  string
	Name      string
	Phone     string
	Email     string
	Interest  string
	Message   string
	Source    string
	CreatedAt string
}

// LeadNotifier emails the sales team whenever a lead is stored.
type LeadNotifier struct {
	email      EmailSender
	renderer   Renderer
	recipients []string
	business   string
	logger     *logging.Logger
}

func NewLeadNotifier(email EmailSender, recipients []string, business string, logger *logging.Logger) *LeadNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	var to []string
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			to = append(to, r)
		}
	}
	return &LeadNotifier{
		email:      email,
		recipients: to,
		business:   business,
		logger:     logger,
	}
}

// LeadCreated implements leads.Notifier.
func (n *LeadNotifier) LeadCreated(ctx context.Context, lead *leads.Lead) error {
	if n == nil || n.email == nil || len(n.recipients) == 0 || lead == nil {
		return nil
	}

	view := leadView{
		Business:  n.business,
		Name:      lead.Name,
		Phone:     lead.Phone,
		Email:     lead.Email,
		Interest:  lead.Interest,
		Message:   lead.Message,
		Source:    lead.Source,
		CreatedAt: lead.CreatedAt.Format(time.RFC1123),
	}
	subject, err := n.renderer.Text("lead_subject", leadSubjectTemplate, view)
	if err != nil {
		return err
	}
	body, err := n.renderer.Text("lead_text", leadTextTemplate, view)
	if err != nil {
		return err
	}
	html, err := n.renderer.HTML("lead_html", leadHTMLTemplate, view)
	if err != nil {
		return err
	}

	var errs []error
	for _, recipient := range n.recipients {
		msg := EmailMessage{
			To:       recipient,
			ReplyTo:  lead.Email,
			Subject:  subject,
			Body:     body,
			HTML:     html,
			Category: LeadCategory,
		}
		if err := n.email.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d lead notification(s) failed: %w", len(errs), errors.Join(errs...))
	}
	n.logger.Info("lead notification sent", "lead_id", lead.ID, "org_id", lead.OrgID, "recipients", len(n.recipients))
	return nil
}

var _ leads.Notifier = (*LeadNotifier)(nil)
