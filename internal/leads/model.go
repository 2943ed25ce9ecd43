package leads

import (
	"strings"
	"time"
)

// Lead sources.
const (
	SourceChat    = "chat"
	SourceWebForm = "web_form"
)

// Lead is a captured prospect: a name plus at least one contact channel.
type Lead struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	SessionID string    `json:"session_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Interest  string    `json:"interest,omitempty"`
	Message   string    `json:"message,omitempty"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateLeadRequest represents the request body for creating a lead
type CreateLeadRequest struct {
	OrgID     string `json:"-"`
	SessionID string `json:"-"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Interest  string `json:"interest"`
	Message   string `json:"message"`
	Source    string `json:"source"`
}

// Normalize trims every field, lower-cases the email and defaults the source.
func (r *CreateLeadRequest) Normalize() {
	r.OrgID = strings.TrimSpace(r.OrgID)
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Interest = strings.TrimSpace(r.Interest)
	r.Message = strings.TrimSpace(r.Message)
	r.Source = strings.TrimSpace(r.Source)
	if r.Source == "" {
		r.Source = SourceWebForm
	}
}

// Validate validates the create lead request
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.OrgID) == "" {
		return ErrMissingOrgID
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.Email) == "" && strings.TrimSpace(r.Phone) == "" {
		return ErrMissingContact
	}
	return nil
}

func (r *CreateLeadRequest) toLead(id string, createdAt time.Time) *Lead {
	return &Lead{
		ID:        id,
		OrgID:     r.OrgID,
		SessionID: r.SessionID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Interest:  r.Interest,
		Message:   r.Message,
		Source:    r.Source,
		CreatedAt: createdAt,
	}
}
