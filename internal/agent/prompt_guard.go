package agent

import (
	"regexp"
	"strings"
)

// PromptGuardResult contains the result of a prompt injection scan.
type PromptGuardResult struct {
	// Blocked is true if the message should NOT reach the completion service.
	Blocked bool
	// Score is a rough heuristic risk score (0.0 = safe, 1.0 = definitely injection).
	Score float64
	// Reasons lists the detection signals that fired.
	Reasons []string
	// Sanitized is the cleaned message (if not blocked).
	Sanitized string
}

type promptGuardPattern struct {
	re     *regexp.Regexp
	reason string
	weight float64
}

// blockThreshold: messages scoring at or above this are blocked outright.
const blockThreshold = 0.7

// warnThreshold: messages scoring above this are sanitized before use.
const warnThreshold = 0.3

// Attempts to override system instructions.
var directInjectionPatterns = []promptGuardPattern{
	{regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?)`), "direct_injection:ignore_instructions", 0.9},
	{regexp.MustCompile(`(?i)ignora\s+(todas\s+)?(las\s+)?(tus\s+)?(instrucciones|reglas|indicaciones)(\s+anteriores|\s+previas)?`), "direct_injection:ignora_instrucciones", 0.9},
	{regexp.MustCompile(`(?i)(olvida|descarta)\s+(todas\s+)?(las\s+)?(tus\s+)?(instrucciones|reglas)`), "direct_injection:olvida_instrucciones", 0.9},
	{regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above|your)\s+(instructions?|rules?|prompts?)`), "direct_injection:disregard_instructions", 0.9},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|my)\s+|ahora\s+eres\s+(un|una|mi)\s+`), "direct_injection:role_reassignment", 0.7},
	{regexp.MustCompile(`(?i)new\s+role\s*:|new\s+instructions?\s*:|nuevas?\s+instrucci[oó]n(es)?\s*:|system\s*prompt\s*:|<<\s*sys(tem)?\s*>>`), "direct_injection:new_role", 0.9},
	{regexp.MustCompile(`(?i)(act[uú]a|act)\s+(como|as)\s+(si\s+)?(if\s+)?(un|una|a|an)?\s*(ia|ai|asistente|assistant)?\s*(sin\s+restricciones|unrestricted|unfiltered|jailbroken|different)`), "direct_injection:act_as", 0.8},
	{regexp.MustCompile(`(?i)(pretend|imagine|finge|imagina)\s+(that\s+|que\s+)?(you\s+)?(are|have|no\s+tienes|eres)\s+(no\s+)?(rules?|restrictions?|reglas|restricciones|limits?|l[ií]mites)`), "direct_injection:pretend_no_rules", 0.9},
	{regexp.MustCompile(`(?i)bypass\s+(your\s+)?(safety|filters?|restrictions?|rules?)|salta(te)?\s+(tus\s+)?(filtros|restricciones|reglas)`), "direct_injection:bypass", 0.8},
	{regexp.MustCompile(`(?i)jailbreak|DAN\s*mode|developer\s*mode|modo\s+desarrollador|god\s*mode`), "direct_injection:jailbreak_keyword", 0.9},
}

// Attempts to extract the system prompt or internal data.
var exfiltrationPatterns = []promptGuardPattern{
	{regexp.MustCompile(`(?i)(reveal|show|print|repeat|tell\s+me|what\s+(is|are))\s+(your\s+)?(system\s+prompt|instructions?|initial\s+prompt|hidden\s+prompt)`), "exfiltration:system_prompt", 0.8},
	{regexp.MustCompile(`(?i)(muestra|revela|repite|dime|cu[aá]l(es)?\s+(es|son))(me)?\s+(tu|tus)\s+(prompt|instrucciones|reglas\s+internas|mensaje\s+de\s+sistema)`), "exfiltration:prompt_sistema", 0.8},
	{regexp.MustCompile(`(?i)(list|show|give|dame|muestra|lista)\s+(me\s+)?(all\s+|todos\s+)?(the\s+|los\s+)?(other\s+|otros\s+)?(leads|clientes|customers)\s+(data|datos|emails?|correos|tel[eé]fonos)`), "exfiltration:lead_data", 0.7},
	{regexp.MustCompile(`(?i)\b(api|secret|openai|aws|database|db)\s*(key|token|secret|password|credential)s?\b|\b(clave|contrase[nñ]a)\s+(de\s+)?(la\s+)?(api|base\s+de\s+datos)`), "exfiltration:credentials", 0.8},
	{regexp.MustCompile(`(?i)repeat\s+(everything|all|the\s+text)\s+(above|before)|repite\s+todo\s+lo\s+(anterior|de\s+arriba)`), "exfiltration:repeat_above", 0.7},
}

// Attempts to bypass filters via encoding or markup.
var obfuscationPatterns = []promptGuardPattern{
	{regexp.MustCompile(`(?i)base64\s*(encode|decode|:)|\\x[0-9a-fA-F]{2}`), "obfuscation:encoding", 0.5},
	{regexp.MustCompile(`!\[.*\]\(https?://`), "obfuscation:markdown_image", 0.4},
	{regexp.MustCompile(`<\s*(script|img|iframe|object|embed|link|style|svg|form)\b`), "obfuscation:html_injection", 0.6},
}

// Attempts to change the conversation frame.
var contextManipulationPatterns = []promptGuardPattern{
	{regexp.MustCompile(`(?i)\[/?INST\]|\[/?SYS\]|<\|im_start\|>|<\|im_end\|>|<\|system\|>|<\|user\|>|<\|assistant\|>`), "context_manipulation:special_tokens", 0.9},
	{regexp.MustCompile(`(?i)###\s*(system|sistema|instruction|human|assistant|user)\s*:`), "context_manipulation:role_markers", 0.7},
	{regexp.MustCompile(`(?i)the\s+real\s+(instructions?|task|prompt)\s+(is|starts?)|las\s+verdaderas\s+instrucciones\s+son`), "context_manipulation:real_instructions", 0.8},
}

var allPromptGuardPatterns = func() []promptGuardPattern {
	all := make([]promptGuardPattern, 0, len(directInjectionPatterns)+len(exfiltrationPatterns)+len(obfuscationPatterns)+len(contextManipulationPatterns))
	all = append(all, directInjectionPatterns...)
	all = append(all, exfiltrationPatterns...)
	all = append(all, obfuscationPatterns...)
	all = append(all, contextManipulationPatterns...)
	return all
}()

// ScanForPromptInjection scores inbound text for prompt injection attempts.
func ScanForPromptInjection(message string) PromptGuardResult {
	if strings.TrimSpace(message) == "" {
		return PromptGuardResult{Sanitized: message}
	}

	var reasons []string
	maxWeight := 0.0
	for _, p := range allPromptGuardPatterns {
		if p.re.MatchString(message) {
			reasons = append(reasons, p.reason)
			if p.weight > maxWeight {
				maxWeight = p.weight
			}
		}
	}

	// Multiple signals compound: +0.1 per additional signal, capped at 1.0.
	score := maxWeight
	if len(reasons) > 1 {
		score = min(maxWeight+float64(len(reasons)-1)*0.1, 1.0)
	}

	result := PromptGuardResult{
		Score:     score,
		Reasons:   reasons,
		Sanitized: message,
	}
	switch {
	case score >= blockThreshold:
		result.Blocked = true
	case score > warnThreshold:
		result.Sanitized = SanitizeForLLM(message)
	}
	return result
}

// blockedReply is the fixed response when a message is blocked.
const blockedReply = "Estoy aquí para ayudarte con información sobre nuestros servicios, paquetes y cotizaciones. ¿En qué te puedo ayudar?"

var (
	specialTokenRE = regexp.MustCompile(`(?i)\[/?INST\]|\[/?SYS\]|<\|im_start\|>|<\|im_end\|>|<\|system\|>|<\|user\|>|<\|assistant\|>`)
	roleMarkerRE   = regexp.MustCompile(`(?i)###\s*(system|sistema|instruction|human|assistant|user)\s*:`)
	htmlTagRE      = regexp.MustCompile(`<\s*(script|img|iframe|object|embed|link|style|svg|form)\b[^>]*>`)
	markdownImgRE  = regexp.MustCompile(`!\[.*?\]\(https?://[^)]+\)`)
)

// SanitizeForLLM strips known injection markers while preserving legitimate
// content.
func SanitizeForLLM(message string) string {
	cleaned := specialTokenRE.ReplaceAllString(message, "")
	cleaned = roleMarkerRE.ReplaceAllString(cleaned, "")
	cleaned = htmlTagRE.ReplaceAllString(cleaned, "")
	cleaned = markdownImgRE.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
