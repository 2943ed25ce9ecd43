package agent

import (
	"regexp"
	"strings"

	"github.com/wolfman30/bizsite-ai-platform/internal/catalog"
)

// IntentType tags what the visitor wants from a turn.
type IntentType string

const (
	IntentChatQuestion   IntentType = "chat_question"
	IntentCreateService  IntentType = "create_service"
	IntentCreatePackage  IntentType = "create_package"
	IntentCreateCategory IntentType = "create_category"
	IntentListServices   IntentType = "list_services"
)

// IsCommand reports whether the intent routes to a catalog action rather
// than conversation.
func (t IntentType) IsCommand() bool {
	return t != IntentChatQuestion && t != ""
}

type IntentResult struct {
	Type            IntentType `json:"type"`
	Confidence      float64    `json:"confidence"`
	MatchedKeywords []string   `json:"matchedKeywords,omitempty"`
}

// intentRule is one step of the ordered classification cascade. match returns
// the keywords that fired, or nil.
type intentRule struct {
	name       string
	intent     IntentType
	confidence float64
	match      func(folded string, tokens []string) []string
}

// IntentClassifier maps a message to an intent. Rules are evaluated in order
// and the first match wins.
type IntentClassifier struct {
	rules []intentRule
}

func NewIntentClassifier(cfg *Rules) *IntentClassifier {
	if cfg == nil {
		cfg = DefaultRules()
	}
	questions := mustCompileAll(cfg.QuestionPatterns...)

	rules := []intentRule{{
		name:       "question",
		intent:     IntentChatQuestion,
		confidence: 0.95,
		match: func(folded string, _ []string) []string {
			for _, re := range questions {
				if m := re.FindString(folded); m != "" {
					return []string{strings.TrimSpace(m)}
				}
			}
			return nil
		},
	}}
	for _, ic := range cfg.Intents {
		phrases := foldAll(ic.Phrases)
		rules = append(rules, intentRule{
			name:       "phrase:" + string(ic.Intent),
			intent:     ic.Intent,
			confidence: 0.9,
			match: func(folded string, _ []string) []string {
				var hits []string
				for _, p := range phrases {
					if strings.Contains(folded, p) {
						hits = append(hits, p)
					}
				}
				return hits
			},
		})
	}
	for _, ic := range cfg.Intents {
		tokens := foldAll(ic.Tokens)
		rules = append(rules, intentRule{
			name:       "token:" + string(ic.Intent),
			intent:     ic.Intent,
			confidence: 0.7,
			match: func(_ string, words []string) []string {
				for _, w := range words {
					for _, tok := range tokens {
						if w == tok {
							return []string{tok}
						}
					}
				}
				return nil
			},
		})
	}
	return &IntentClassifier{rules: rules}
}

var tokenSplitRE = regexp.MustCompile(`[^\p{L}\p{N}/]+`)

// Classify runs the cascade. Question detection runs first so that "how do I
// create a service?" stays conversational.
func (c *IntentClassifier) Classify(message string) IntentResult {
	folded := catalog.Fold(message)
	if folded == "" {
		return IntentResult{Type: IntentChatQuestion, Confidence: 0.6}
	}
	tokens := tokenSplitRE.Split(folded, -1)
	for _, r := range c.rules {
		if hits := r.match(folded, tokens); len(hits) > 0 {
			return IntentResult{Type: r.intent, Confidence: r.confidence, MatchedKeywords: hits}
		}
	}
	return IntentResult{Type: IntentChatQuestion, Confidence: 0.6}
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if f := catalog.Fold(s); f != "" {
			out = append(out, f)
		}
	}
	return out
}
