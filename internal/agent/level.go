package agent

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/wolfman30/bizsite-ai-platform/internal/catalog"
)

// Conversation depth levels, from first contact to lead capture.
const (
	LevelDiscovery     = 1
	LevelCategory      = 2
	LevelService       = 3
	LevelBusinessValue = 4
	LevelLeadCapture   = 5
)

// LevelResult is recomputed every turn and never stored on the session.
type LevelResult struct {
	Level                   int    `json:"level"`
	Rule                    string `json:"rule"`
	CategoryMentioned       string `json:"categoryMentioned,omitempty"`
	ServiceMentioned        string `json:"serviceMentioned,omitempty"`
	ServiceID               string `json:"serviceId,omitempty"`
	AskingForDetails        bool   `json:"askingForDetails"`
	AskingForBusinessImpact bool   `json:"askingForBusinessImpact"`
	WantsContact            bool   `json:"wantsContact"`
	ProvidingContactInfo    bool   `json:"providingContactInfo"`
	QuoteRequested          bool   `json:"quoteRequested"`
	MessageCount            int    `json:"messageCount"`

	servicesOverview bool
	collecting       bool
}

type levelRule struct {
	name  string
	level int
	when  func(r *LevelResult) bool
}

// levelRules is evaluated top-down; the first matching rule sets the level.
var levelRules = []levelRule{
	{"first_contact_or_overview", LevelDiscovery, func(r *LevelResult) bool {
		return r.MessageCount == 0 || r.servicesOverview
	}},
	{"collecting_contact", LevelLeadCapture, func(r *LevelResult) bool {
		return r.collecting && r.MessageCount >= 2
	}},
	{"contact_intent", LevelLeadCapture, func(r *LevelResult) bool {
		return r.WantsContact && (r.ServiceMentioned != "" || r.MessageCount >= 3)
	}},
	{"business_impact", LevelBusinessValue, func(r *LevelResult) bool {
		return r.ServiceMentioned != "" && r.AskingForBusinessImpact && r.MessageCount >= 2
	}},
	{"service_detail", LevelService, func(r *LevelResult) bool {
		return r.ServiceMentioned != "" || (r.MessageCount >= 2 && r.AskingForDetails)
	}},
	{"category", LevelCategory, func(r *LevelResult) bool {
		return r.CategoryMentioned != ""
	}},
}

// LevelAnalyzer infers how deep into the sales conversation a visitor is.
type LevelAnalyzer struct {
	overview  []*regexp.Regexp
	contact   []*regexp.Regexp
	quote     []*regexp.Regexp
	details   []*regexp.Regexp
	impact    []*regexp.Regexp
	keywords  []categoryKeyword
	extractor *ContactExtractor
}

type categoryKeyword struct {
	keyword  string
	category string
}

func NewLevelAnalyzer(cfg *Rules, extractor *ContactExtractor) *LevelAnalyzer {
	if cfg == nil {
		cfg = DefaultRules()
	}
	if extractor == nil {
		extractor = NewContactExtractor(cfg, "", 0)
	}
	a := &LevelAnalyzer{
		overview:  mustCompileAll(cfg.ServicesOverview...),
		contact:   mustCompileAll(cfg.ContactIntent...),
		quote:     mustCompileAll(cfg.QuoteRequest...),
		details:   mustCompileAll(cfg.DetailRequest...),
		impact:    mustCompileAll(cfg.BusinessImpact...),
		extractor: extractor,
	}
	for category, kws := range cfg.CategoryKeywords {
		for _, kw := range kws {
			if f := catalog.Fold(kw); f != "" {
				a.keywords = append(a.keywords, categoryKeyword{keyword: f, category: category})
			}
		}
	}
	// Longest keyword first so "facebook ads" beats "ads"; map order is random.
	sort.Slice(a.keywords, func(i, j int) bool {
		if len(a.keywords[i].keyword) != len(a.keywords[j].keyword) {
			return len(a.keywords[i].keyword) > len(a.keywords[j].keyword)
		}
		return a.keywords[i].keyword < a.keywords[j].keyword
	})
	return a
}

// Analyze does not mutate the session; the caller must hold its lock.
func (a *LevelAnalyzer) Analyze(session *Session, message string, snapshot *catalog.Snapshot) LevelResult {
	folded := catalog.Fold(message)
	res := LevelResult{
		AskingForDetails:        matchAny(a.details, folded),
		AskingForBusinessImpact: matchAny(a.impact, folded),
		WantsContact:            matchAny(a.contact, folded),
		QuoteRequested:          matchAny(a.quote, folded),
		servicesOverview:        matchAny(a.overview, folded),
	}
	if session != nil {
		res.MessageCount = session.UserTurns()
		res.collecting = session.IsCollectingContactInfo
	}
	info := a.extractor.Extract(message)
	res.ProvidingContactInfo = info.Phone != "" || info.Email != ""

	if item, ok := findItem(folded, snapshot); ok {
		res.ServiceMentioned = item.Title
		res.ServiceID = item.ID
		res.CategoryMentioned = item.Category
		if res.CategoryMentioned == "" {
			if c, ok := snapshot.CategoryByID(item.CategoryID); ok {
				res.CategoryMentioned = c.Name
			}
		}
	}
	if res.CategoryMentioned == "" {
		res.CategoryMentioned = a.findCategory(folded, snapshot)
	}

	res.Level, res.Rule = LevelDiscovery, "default"
	for _, rule := range levelRules {
		if rule.when(&res) {
			res.Level, res.Rule = rule.level, rule.name
			break
		}
	}
	return res
}

func (a *LevelAnalyzer) findCategory(folded string, snapshot *catalog.Snapshot) string {
	if snapshot != nil {
		for _, c := range snapshot.Categories {
			name := catalog.Fold(c.Name)
			if utf8.RuneCountInString(name) >= 3 && strings.Contains(folded, name) {
				return c.Name
			}
			slug := strings.ReplaceAll(c.Slug, "-", " ")
			if utf8.RuneCountInString(slug) >= 3 && strings.Contains(folded, slug) {
				return c.Name
			}
		}
	}
	for _, kw := range a.keywords {
		if containsWord(folded, kw.keyword) {
			return kw.category
		}
	}
	return ""
}

// findItem matches an item by its full title, or by at least two significant
// title words so a single shared word does not count.
func findItem(folded string, snapshot *catalog.Snapshot) (catalog.Item, bool) {
	if snapshot == nil {
		return catalog.Item{}, false
	}
	words := wordSet(folded)
	for _, it := range snapshot.Items {
		title := catalog.Fold(it.Title)
		if title != "" && strings.Contains(folded, title) {
			return it, true
		}
	}
	for _, it := range snapshot.Items {
		hits := 0
		for _, w := range strings.Fields(catalog.Fold(it.Title)) {
			if utf8.RuneCountInString(w) > 3 && words[w] {
				hits++
			}
		}
		if hits >= 2 {
			return it, true
		}
	}
	return catalog.Item{}, false
}

func wordSet(folded string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range tokenSplitRE.Split(folded, -1) {
		if w != "" {
			set[w] = true
		}
	}
	return set
}

func containsWord(folded, phrase string) bool {
	idx := strings.Index(folded, phrase)
	for idx >= 0 {
		end := idx + len(phrase)
		before := idx == 0 || !isWordByte(folded[idx-1])
		after := end == len(folded) || !isWordByte(folded[end])
		if before && after {
			return true
		}
		next := strings.Index(folded[idx+1:], phrase)
		if next < 0 {
			break
		}
		idx += next + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b >= 0x80
}
