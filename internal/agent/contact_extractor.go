package agent

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wolfman30/bizsite-ai-platform/internal/catalog"
)

// ContactInfo is what a single message yielded. Any field may be empty.
type ContactInfo struct {
	Name       string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	IsComplete bool   `json:"isComplete"`
}

func (c ContactInfo) Empty() bool {
	return c.Name == "" && c.Phone == "" && c.Email == ""
}

var (
	emailRE          = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneCandidateRE = regexp.MustCompile(`\+?\d[\d \t().\-]{6,}\d`)
	nameIntroREs     = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:me llamo|mi nombre es|mi nombre:|nombre:|soy|my name is|i'?m|i am)\s+([\p{L}'’.\-]+(?:\s+[\p{L}'’.\-]+){0,5})`),
	}
)

// Name particles allowed inside a name but never at its start.
var nameConnectors = map[string]bool{"de": true, "del": true, "la": true, "las": true, "los": true, "y": true, "da": true, "van": true, "von": true}

// ContactExtractor pulls name, phone and email out of free text. It is best
// effort: the lead flow re-prompts for anything missing.
type ContactExtractor struct {
	countryCode string
	localDigits int
	stopWords   map[string]bool
}

func NewContactExtractor(cfg *Rules, countryCode string, localDigits int) *ContactExtractor {
	if cfg == nil {
		cfg = DefaultRules()
	}
	if countryCode == "" {
		countryCode = "51"
	}
	if localDigits <= 0 {
		localDigits = 9
	}
	stop := make(map[string]bool, len(cfg.NameStopWords))
	for _, w := range cfg.NameStopWords {
		stop[catalog.Fold(w)] = true
	}
	return &ContactExtractor{
		countryCode: strings.TrimPrefix(countryCode, "+"),
		localDigits: localDigits,
		stopWords:   stop,
	}
}

func (e *ContactExtractor) Extract(message string) ContactInfo {
	info := ContactInfo{
		Email: e.extractEmail(message),
		Phone: e.extractPhone(message),
	}
	info.Name = e.extractName(message)
	info.IsComplete = info.Name != "" && (info.Phone != "" || info.Email != "")
	return info
}

func (e *ContactExtractor) extractEmail(message string) string {
	return strings.ToLower(emailRE.FindString(message))
}

func (e *ContactExtractor) extractPhone(message string) string {
	// Emails can contain digit runs; drop them first.
	text := emailRE.ReplaceAllString(message, " ")
	for _, cand := range phoneCandidateRE.FindAllString(text, -1) {
		if phone, ok := e.normalizePhone(cand); ok {
			return phone
		}
	}
	return ""
}

// normalizePhone accepts a local number or country code plus local number
// and returns +<cc><local>.
func (e *ContactExtractor) normalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case len(digits) == e.localDigits:
		return "+" + e.countryCode + digits, true
	case len(digits) == len(e.countryCode)+e.localDigits && strings.HasPrefix(digits, e.countryCode):
		return "+" + digits, true
	}
	return "", false
}

func (e *ContactExtractor) lineHasContact(line string) bool {
	if emailRE.MatchString(line) {
		return true
	}
	for _, cand := range phoneCandidateRE.FindAllString(line, -1) {
		if _, ok := e.normalizePhone(cand); ok {
			return true
		}
	}
	return false
}

func (e *ContactExtractor) extractName(message string) string {
	lines := strings.Split(message, "\n")

	// Pass 1: a short line made only of name-like words.
	for _, line := range lines {
		line = strings.TrimSpace(strings.Trim(line, " \t,.;:!¡"))
		if line == "" || strings.ContainsAny(line, "?¿@") || e.lineHasContact(line) {
			continue
		}
		words := strings.Fields(line)
		if e.acceptName(words) {
			return formatName(words)
		}
	}

	// Pass 2: self-introductions, then a leading run of capitalised words.
	for _, re := range nameIntroREs {
		m := re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		if words := e.cutAtStopWord(strings.Fields(m[1])); len(words) > 0 {
			return formatName(words)
		}
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.ContainsAny(line, "?¿") {
			continue
		}
		var words []string
		for _, w := range strings.Fields(strings.Trim(line, " \t,.;:!¡")) {
			w = strings.Trim(w, ",.;:!")
			r := []rune(w)
			if len(r) == 0 || !unicode.IsUpper(r[0]) || !isNameWord(w) {
				break
			}
			words = append(words, w)
		}
		if len(words) > 4 {
			continue
		}
		if words = e.cutAtStopWord(words); len(words) > 0 {
			return formatName(words)
		}
	}
	return ""
}

func (e *ContactExtractor) acceptName(words []string) bool {
	if len(words) == 0 || len(words) > 4 {
		return false
	}
	for i, w := range words {
		if !isNameWord(w) {
			return false
		}
		f := catalog.Fold(w)
		if i > 0 && nameConnectors[f] {
			continue
		}
		if e.stopWords[f] {
			return false
		}
	}
	return !nameConnectors[catalog.Fold(words[len(words)-1])]
}

// cutAtStopWord keeps the leading words up to the first stop word, at most
// four, without trailing connectors.
func (e *ContactExtractor) cutAtStopWord(words []string) []string {
	var out []string
	for i, w := range words {
		w = strings.Trim(w, ",.;:!")
		f := catalog.Fold(w)
		if !isNameWord(w) || (i == 0 && nameConnectors[f]) {
			break
		}
		if !nameConnectors[f] && e.stopWords[f] {
			break
		}
		out = append(out, w)
		if len(out) == 4 {
			break
		}
	}
	for len(out) > 0 && nameConnectors[catalog.Fold(out[len(out)-1])] {
		out = out[:len(out)-1]
	}
	return out
}

func isNameWord(w string) bool {
	letters := 0
	for _, r := range w {
		switch {
		case unicode.IsLetter(r):
			letters++
		case r == '\'' || r == '’' || r == '-' || r == '.':
		default:
			return false
		}
	}
	return letters > 0
}

func formatName(words []string) string {
	caser := cases.Title(language.Spanish)
	out := make([]string, len(words))
	for i, w := range words {
		if i > 0 && nameConnectors[catalog.Fold(w)] {
			out[i] = strings.ToLower(w)
			continue
		}
		out[i] = caser.String(w)
	}
	return strings.Join(out, " ")
}
