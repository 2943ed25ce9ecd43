package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffTopicFilter_Categories(t *testing.T) {
	f := NewOffTopicFilter(nil)

	tests := []struct {
		name     string
		message  string
		offTopic bool
		category OffTopicCategory
	}{
		{"spam keyboard mash", "asdfasdf", true, OffTopicSpam},
		{"spam test", "test 123", true, OffTopicSpam},
		{"spam symbols", "???!!!", true, OffTopicSpam},
		{"academic", "hazme la tarea de historia", true, OffTopicAcademic},
		{"trivia", "cual es la capital de Francia", true, OffTopicTrivia},
		{"entertainment", "cuéntame un chiste", true, OffTopicEntertainment},
		{"programming", "escribe un código en python que ordene una lista", true, OffTopicProgramming},
		{"advice", "tengo dolor de cabeza, que medicamento tomo", true, OffTopicAdvice},
		{"greeting", "¡Hola!", false, ""},
		{"business question", "¿Qué servicios de marketing ofrecen?", false, ""},
		{"academic with business exemption", "necesito ayuda con mi tarea de marketing para mi empresa", false, ""},
		{"quote request", "Quiero una cotización", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Evaluate(tt.message, &Session{})
			assert.Equal(t, tt.offTopic, got.IsOffTopic)
			assert.Equal(t, tt.category, got.Category)
		})
	}
}

func TestOffTopicFilter_EscalatesOnThirdRejection(t *testing.T) {
	f := NewOffTopicFilter(nil)
	session := &Session{}

	var replies []string
	for _, msg := range []string{"test", "asdf", "qwerty 123"} {
		res := f.Evaluate(msg, session)
		require.True(t, res.IsOffTopic, msg)
		replies = append(replies, RedirectMessage(res.Category, res.Attempt))
	}

	assert.Equal(t, 3, session.OffTopicAttempts)
	assert.Equal(t, replies[0], replies[1])
	assert.NotEqual(t, replies[0], replies[2])
	assert.Equal(t, firmRedirect, replies[2])
}

func TestOffTopicFilter_ExemptDuringCollection(t *testing.T) {
	f := NewOffTopicFilter(nil)

	collecting := &Session{IsCollectingContactInfo: true}
	assert.False(t, f.Evaluate("asdf", collecting).IsOffTopic)
	assert.Zero(t, collecting.OffTopicAttempts)

	inForm := &Session{FormState: &FormState{IsCollecting: true}}
	assert.False(t, f.Evaluate("test", inForm).IsOffTopic)
}

func TestRedirectMessage(t *testing.T) {
	assert.NotEqual(t, RedirectMessage(OffTopicAcademic, 1), RedirectMessage(OffTopicTrivia, 1))
	assert.Equal(t, firmRedirect, RedirectMessage(OffTopicAcademic, 3))
	assert.Equal(t, firmRedirect, RedirectMessage(OffTopicAdvice, 7))
	assert.Equal(t, offTopicRedirects[OffTopicSpam], RedirectMessage("unknown", 1))
}
