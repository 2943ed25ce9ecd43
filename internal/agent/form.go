package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/wolfman30/bizsite-ai-platform/internal/catalog"
)

// FieldSpec describes one field of a conversational form.
type FieldSpec struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Prompt  string `json:"prompt"`
	Example string `json:"example,omitempty"`
	// Validate returns the value to store, possibly normalised, or an error
	// shown to the user.
	Validate func(string) (string, error) `json:"-"`
}

// FormState is the persisted progress of a form on a session.
type FormState struct {
	FormName          string            `json:"formName"`
	IsCollecting      bool              `json:"isCollecting"`
	RequiredFields    []FieldSpec       `json:"requiredFields"`
	CollectedData     map[string]string `json:"collectedData"`
	CurrentFieldIndex int               `json:"currentFieldIndex"`
	CompletedFields   []string          `json:"completedFields"`
}

// CurrentField returns the field awaiting input.
func (s *FormState) CurrentField() (FieldSpec, bool) {
	if s == nil || s.CurrentFieldIndex >= len(s.RequiredFields) {
		return FieldSpec{}, false
	}
	return s.RequiredFields[s.CurrentFieldIndex], true
}

// Clone returns a deep copy safe to hand out after the session is unlocked.
func (s *FormState) Clone() *FormState {
	if s == nil {
		return nil
	}
	out := *s
	out.RequiredFields = append([]FieldSpec(nil), s.RequiredFields...)
	out.CollectedData = copyData(s.CollectedData)
	out.CompletedFields = append([]string(nil), s.CompletedFields...)
	return &out
}

// Form is a named, ordered field list plus the action run once every field
// is valid. OnComplete returns the summary shown to the user.
type Form struct {
	Name       string
	Title      string
	Fields     []FieldSpec
	OnComplete func(ctx context.Context, data map[string]string) (string, error)
}

type FormOutcome string

const (
	FormRetry     FormOutcome = "retry"
	FormNext      FormOutcome = "next"
	FormCompleted FormOutcome = "completed"
	FormCancelled FormOutcome = "cancelled"
	FormFailed    FormOutcome = "failed"
)

type FormStep struct {
	Outcome FormOutcome
	Message string
	Data    map[string]string
}

// FormCollector drives a Form one field per turn.
type FormCollector struct {
	cancel []*regexp.Regexp
}

func NewFormCollector(cfg *Rules) *FormCollector {
	if cfg == nil {
		cfg = DefaultRules()
	}
	return &FormCollector{cancel: mustCompileAll(cfg.Cancel...)}
}

// Start returns a fresh state and the prompt for the first field.
func (c *FormCollector) Start(form Form) (*FormState, string) {
	state := &FormState{
		FormName:       form.Name,
		IsCollecting:   len(form.Fields) > 0,
		RequiredFields: form.Fields,
		CollectedData:  make(map[string]string, len(form.Fields)),
	}
	if !state.IsCollecting {
		return state, ""
	}
	intro := fmt.Sprintf("Vamos a %s. Son %d datos, puedes escribir \"cancelar\" en cualquier momento.", form.Title, len(form.Fields))
	return state, intro + "\n\n" + fieldPrompt(form.Fields[0], 1, len(form.Fields))
}

// Submit validates message against the current field. An invalid value keeps
// the index and re-prompts; a valid value on the last field completes the
// form in the same step.
func (c *FormCollector) Submit(ctx context.Context, state *FormState, form Form, message string) FormStep {
	if state == nil || !state.IsCollecting || state.CurrentFieldIndex >= len(form.Fields) {
		return FormStep{Outcome: FormFailed, Message: "No hay ningún formulario en curso."}
	}
	// The form is rebuilt every turn so validators see the current catalog.
	field := form.Fields[state.CurrentFieldIndex]

	if matchAny(c.cancel, catalog.Fold(message)) {
		state.IsCollecting = false
		return FormStep{Outcome: FormCancelled, Message: "Listo, cancelé el registro. ¿En qué más te puedo ayudar?"}
	}

	value := strings.TrimSpace(message)
	if field.Validate != nil {
		v, err := field.Validate(value)
		if err != nil {
			return FormStep{
				Outcome: FormRetry,
				Message: fmt.Sprintf("%s\n\n%s", err.Error(), fieldPrompt(field, state.CurrentFieldIndex+1, len(form.Fields))),
			}
		}
		value = v
	}

	state.CollectedData[field.Name] = value
	state.CompletedFields = append(state.CompletedFields, field.Name)
	if state.CurrentFieldIndex+1 < len(form.Fields) {
		state.CurrentFieldIndex++
		next := form.Fields[state.CurrentFieldIndex]
		return FormStep{Outcome: FormNext, Message: fieldPrompt(next, state.CurrentFieldIndex+1, len(form.Fields))}
	}

	data := copyData(state.CollectedData)
	summary := ""
	if form.OnComplete != nil {
		var err error
		summary, err = form.OnComplete(ctx, data)
		if err != nil {
			// Stay on the last field so the user can resend it.
			state.CompletedFields = state.CompletedFields[:len(state.CompletedFields)-1]
			delete(state.CollectedData, field.Name)
			return FormStep{
				Outcome: FormFailed,
				Message: "No pude guardar el registro en este momento. Envía de nuevo el último dato para reintentar o escribe \"cancelar\".",
				Data:    data,
			}
		}
	}
	state.CurrentFieldIndex++
	state.IsCollecting = false
	return FormStep{Outcome: FormCompleted, Message: summary, Data: data}
}

func fieldPrompt(f FieldSpec, pos, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(%d/%d) %s", pos, total, f.Prompt)
	if f.Example != "" {
		fmt.Fprintf(&b, "\nEjemplo: %s", f.Example)
	}
	return b.String()
}

func copyData(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
