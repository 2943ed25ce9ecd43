package agent

import (
	"strings"
	"sync"
	"time"
)

// Role identifies the author of a session message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a session transcript.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ContactFormData accumulates lead contact fields across turns.
type ContactFormData struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// IsComplete reports whether a lead can be created: a name plus at least one
// contact channel.
func (d ContactFormData) IsComplete() bool {
	return d.Name != "" && (d.Phone != "" || d.Email != "")
}

// HasAll reports whether all three fields are present.
func (d ContactFormData) HasAll() bool {
	return d.Name != "" && d.Phone != "" && d.Email != ""
}

// Missing lists the absent fields in collection order.
func (d ContactFormData) Missing() []string {
	var out []string
	if d.Name == "" {
		out = append(out, "name")
	}
	if d.Phone == "" {
		out = append(out, "phone")
	}
	if d.Email == "" {
		out = append(out, "email")
	}
	return out
}

// Merge folds newly extracted fields in. An empty value never overwrites; an
// existing name is kept because later lines are more often filler than names.
func (d *ContactFormData) Merge(info ContactInfo) {
	if d.Name == "" && info.Name != "" {
		d.Name = info.Name
	}
	if info.Phone != "" {
		d.Phone = info.Phone
	}
	if info.Email != "" {
		d.Email = info.Email
	}
}

// Fingerprint identifies a contact set independent of casing.
func (d ContactFormData) Fingerprint() string {
	return strings.ToLower(strings.Join([]string{d.Name, d.Phone, d.Email}, "|"))
}

func (d *ContactFormData) Clear() {
	*d = ContactFormData{}
}

// Session is the per-conversation state. Callers hold the session lock for
// the duration of a turn.
type Session struct {
	mu sync.Mutex

	ID                      string          `json:"id"`
	OrgID                   string          `json:"orgId"`
	Messages                []Message       `json:"messages"`
	FormState               *FormState      `json:"formState,omitempty"`
	ContactFormData         ContactFormData `json:"contactFormData"`
	IsCollectingContactInfo bool            `json:"isCollectingContactInfo"`
	OffTopicAttempts        int             `json:"offTopicAttempts"`
	// Interest is the last catalog item or category the visitor talked about.
	Interest            string    `json:"interest,omitempty"`
	LastLeadFingerprint string    `json:"-"`
	LastLeadID          string    `json:"lastLeadId,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	LastActivity        time.Time `json:"lastActivity"`
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// AppendMessage adds a transcript entry, keeping at most max entries.
func (s *Session) AppendMessage(role Role, content string, now time.Time, max int) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content, Timestamp: now})
	if max > 0 && len(s.Messages) > max {
		s.Messages = append([]Message(nil), s.Messages[len(s.Messages)-max:]...)
	}
	s.LastActivity = now
}

// UserTurns counts prior user messages in the retained window.
func (s *Session) UserTurns() int {
	n := 0
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// FormActive reports whether a catalog form is mid-collection.
func (s *Session) FormActive() bool {
	return s.FormState != nil && s.FormState.IsCollecting
}
