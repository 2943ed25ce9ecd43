package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/bizsite-ai-platform/internal/catalog"
)

func TestPromptBuilder_SystemPrompt(t *testing.T) {
	p := promptBuilder{assistantName: "Sofía", businessName: "Acme", contextSize: 1}
	level := LevelResult{Level: LevelCategory, CategoryMentioned: "Consultoría"}

	blocks := p.systemPrompt(level, testSnapshot())
	assert.Len(t, blocks, 3)
	assert.Contains(t, blocks[0], "Eres Sofía, el asistente comercial de Acme")
	assert.Contains(t, blocks[1], "Categorías: Consultoría, Marketing Digital")
	assert.Contains(t, blocks[1], "Plan Estratégico Empresarial", "the mentioned category is listed first")
	assert.NotContains(t, blocks[1], "Auditoría SEO", "context is capped")
	assert.Contains(t, blocks[2], "ETAPA 2")
	assert.Contains(t, blocks[2], "Categoría mencionada: Consultoría")
}

func TestPromptBuilder_EmptyCatalog(t *testing.T) {
	p := promptBuilder{assistantName: "A", businessName: "B"}
	blocks := p.systemPrompt(LevelResult{Level: LevelDiscovery}, nil)
	assert.Contains(t, blocks[1], "sin datos disponibles")

	blocks = p.systemPrompt(LevelResult{Level: LevelService, ServiceMentioned: "Auditoría SEO"}, &catalog.Snapshot{})
	assert.Contains(t, blocks[2], "Servicio mencionado: Auditoría SEO")
}

func TestPromptBuilder_Fallback(t *testing.T) {
	p := promptBuilder{businessName: "Acme"}
	for level := LevelDiscovery; level <= LevelLeadCapture; level++ {
		msg := p.fallback(level)
		assert.Contains(t, msg, "Acme")
		assert.NotContains(t, msg, "%!")
	}
	assert.Equal(t, p.fallback(LevelDiscovery), p.fallback(99))
}

func TestSuggestionsAndQuickActions(t *testing.T) {
	snap := testSnapshot()
	discovery := suggestions(LevelResult{Level: LevelDiscovery}, snap)
	assert.Equal(t, []string{"¿Qué servicios ofrecen?", "Me interesa Consultoría", "Me interesa Marketing Digital"}, discovery)
	assert.Contains(t, suggestions(LevelResult{Level: LevelBusinessValue}, snap), "Quiero una cotización")
	assert.Nil(t, suggestions(LevelResult{Level: LevelLeadCapture}, snap))

	actions := quickActions(LevelResult{Level: LevelDiscovery})
	assert.Equal(t, "/servicios", actions[0].Value)
	assert.Nil(t, quickActions(LevelResult{Level: LevelLeadCapture}))
}

func TestListCatalog(t *testing.T) {
	out := listCatalog(testSnapshot())
	assert.True(t, strings.Index(out, "Consultoría") < strings.Index(out, "Marketing Digital"))
	assert.Contains(t, out, "• Auditoría SEO - 1500")
	assert.Contains(t, listCatalog(nil), "no tengo servicios publicados")
}
