package agent

import (
	"regexp"

	"github.com/wolfman30/bizsite-ai-platform/internal/catalog"
)

type OffTopicCategory string

const (
	OffTopicAcademic      OffTopicCategory = "academic"
	OffTopicTrivia        OffTopicCategory = "trivia"
	OffTopicEntertainment OffTopicCategory = "entertainment"
	OffTopicProgramming   OffTopicCategory = "programming"
	OffTopicAdvice        OffTopicCategory = "advice"
	OffTopicSpam          OffTopicCategory = "spam"
)

type OffTopicResult struct {
	IsOffTopic bool             `json:"isOffTopic"`
	Category   OffTopicCategory `json:"category,omitempty"`
	// Attempt is the session's rejection count after this evaluation.
	Attempt int `json:"attempt,omitempty"`
}

type offTopicRule struct {
	category OffTopicCategory
	patterns []*regexp.Regexp
}

// OffTopicFilter gates messages outside the assistant's business domain.
type OffTopicFilter struct {
	rules      []offTopicRule
	greetings  []*regexp.Regexp
	exemptions []*regexp.Regexp
}

func NewOffTopicFilter(cfg *Rules) *OffTopicFilter {
	if cfg == nil {
		cfg = DefaultRules()
	}
	f := &OffTopicFilter{
		greetings:  mustCompileAll(cfg.Greetings...),
		exemptions: mustCompileAll(cfg.Exemptions...),
	}
	for _, rc := range cfg.OffTopic {
		f.rules = append(f.rules, offTopicRule{category: rc.Category, patterns: mustCompileAll(rc.Patterns...)})
	}
	return f
}

// Evaluate classifies the message and, on rejection, increments the
// session's OffTopicAttempts. The caller must hold the session lock.
func (f *OffTopicFilter) Evaluate(message string, session *Session) OffTopicResult {
	if session != nil && (session.IsCollectingContactInfo || session.FormActive()) {
		return OffTopicResult{}
	}
	folded := catalog.Fold(message)
	if matchAny(f.greetings, folded) {
		return OffTopicResult{}
	}

	for _, r := range f.rules {
		if !matchAny(r.patterns, folded) {
			continue
		}
		// Spam is never exempt; other categories pass when the visitor also
		// talks about the business.
		if r.category != OffTopicSpam && matchAny(f.exemptions, folded) {
			return OffTopicResult{}
		}
		attempt := 1
		if session != nil {
			session.OffTopicAttempts++
			attempt = session.OffTopicAttempts
		}
		return OffTopicResult{IsOffTopic: true, Category: r.category, Attempt: attempt}
	}
	return OffTopicResult{}
}

var offTopicRedirects = map[OffTopicCategory]string{
	OffTopicAcademic:      "No puedo ayudarte con tareas o temas académicos, pero con gusto te cuento cómo nuestros servicios pueden ayudar a tu negocio. ¿Qué necesitas?",
	OffTopicTrivia:        "Esa es una buena pregunta, aunque está fuera de lo que manejo. Estoy aquí para ayudarte con nuestros servicios. ¿En qué te puedo orientar?",
	OffTopicEntertainment: "¡Me encantaría charlar de eso! Pero mi especialidad son nuestros servicios para empresas. ¿Te muestro lo que ofrecemos?",
	OffTopicProgramming:   "No doy tutorías de programación, pero si tu empresa necesita un proyecto de desarrollo podemos ayudarte. ¿Quieres conocer nuestras opciones?",
	OffTopicAdvice:        "Para temas médicos, legales o personales te recomiendo consultar a un profesional. Yo puedo ayudarte con nuestros servicios. ¿Qué te interesa?",
	OffTopicSpam:          "Parece que el mensaje no llegó completo. ¿En qué servicio estás interesado?",
}

const firmRedirect = "Solo puedo ayudarte con consultas sobre nuestros servicios, paquetes y cotizaciones. Si tienes una consulta de ese tipo, con gusto te atiendo."

// RedirectMessage returns the reply for an off-topic rejection. Attempts 1
// and 2 get a category-specific redirect; from the third on the reply is a
// firm generic refusal.
func RedirectMessage(category OffTopicCategory, attempt int) string {
	if attempt >= 3 {
		return firmRedirect
	}
	if msg, ok := offTopicRedirects[category]; ok {
		return msg
	}
	return offTopicRedirects[OffTopicSpam]
}
