package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/bizsite-ai-platform/internal/catalog"
	"github.com/wolfman30/bizsite-ai-platform/internal/completion"
	"github.com/wolfman30/bizsite-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

var agentTracer = otel.Tracer("bizsite.internal.agent")

// Routes a turn can take, reported on the reply and in metrics.
const (
	RouteOffTopic    = "off_topic"
	RouteForm        = "form"
	RouteDirect      = "direct_create"
	RouteList        = "list_services"
	RouteLeadCapture = "lead_capture"
	RouteBlocked     = "blocked"
	RouteCompletion  = "completion"
	RouteFallback    = "fallback"
)

// MessageRequest is one inbound visitor message.
type MessageRequest struct {
	Text      string            `json:"text"`
	SessionID string            `json:"sessionId,omitempty"`
	OrgID     string            `json:"-"`
	Context   map[string]string `json:"context,omitempty"`
}

// Reply is the engine's answer to one turn.
type Reply struct {
	SessionID    string        `json:"sessionId"`
	Message      string        `json:"message"`
	Suggestions  []string      `json:"suggestions,omitempty"`
	QuickActions []QuickAction `json:"quickActions,omitempty"`
	FormState    *FormState    `json:"formState,omitempty"`
	Level        int           `json:"level"`
	Intent       IntentType    `json:"intent,omitempty"`
	Route        string        `json:"route"`
}

// EngineConfig wires the engine's collaborators and limits.
type EngineConfig struct {
	Sessions   SessionStore
	Catalog    catalog.Store
	Completion completion.Client
	Leads      LeadCreator
	Rules      *Rules
	Metrics    *metrics.ChatMetrics
	Audit      SecurityAuditor
	Logger     *logging.Logger

	MaxMessageLength   int
	SessionTTL         time.Duration
	MaxHistory         int
	PhoneCountryCode   string
	PhoneLocalDigits   int
	AssistantName      string
	BusinessName       string
	CatalogContextSize int
	Temperature        float64
	MaxTokens          int
}

// SecurityAuditor records refused and blocked turns. Failures are logged and
// never surface to the visitor.
type SecurityAuditor interface {
	LogPromptInjection(ctx context.Context, orgID, sessionID string, reasons []string, score float64) error
	LogOffTopicRefused(ctx context.Context, orgID, sessionID, category string) error
}

// Engine runs the progressive sales conversation.
type Engine struct {
	sessions   SessionStore
	catalog    catalog.Store
	completion completion.Client
	intents    *IntentClassifier
	offTopic   *OffTopicFilter
	levels     *LevelAnalyzer
	forms      *FormCollector
	capture    *LeadCapture
	prompts    promptBuilder
	metrics    *metrics.ChatMetrics
	audit      SecurityAuditor
	logger     *logging.Logger
	now        func() time.Time

	maxMessageLength int
	sessionTTL       time.Duration
	maxHistory       int
	temperature      float32
	maxTokens        int32
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Rules == nil {
		cfg.Rules = DefaultRules()
	}
	if cfg.Sessions == nil {
		cfg.Sessions = NewMemorySessionStore()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.NewMemoryStore()
	}
	if cfg.Completion == nil {
		cfg.Completion = completion.Unavailable{}
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = 2000
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 20
	}
	if cfg.AssistantName == "" {
		cfg.AssistantName = "Asistente"
	}
	if cfg.BusinessName == "" {
		cfg.BusinessName = "nuestra empresa"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Leads == nil {
		panic("agent: lead creator is required")
	}

	extractor := NewContactExtractor(cfg.Rules, cfg.PhoneCountryCode, cfg.PhoneLocalDigits)
	return &Engine{
		sessions:   cfg.Sessions,
		catalog:    cfg.Catalog,
		completion: cfg.Completion,
		intents:    NewIntentClassifier(cfg.Rules),
		offTopic:   NewOffTopicFilter(cfg.Rules),
		levels:     NewLevelAnalyzer(cfg.Rules, extractor),
		forms:      NewFormCollector(cfg.Rules),
		capture:    NewLeadCapture(cfg.Rules, extractor, cfg.Leads, cfg.Logger),
		prompts: promptBuilder{
			assistantName: cfg.AssistantName,
			businessName:  cfg.BusinessName,
			contextSize:   cfg.CatalogContextSize,
		},
		metrics:          cfg.Metrics,
		audit:            cfg.Audit,
		logger:           cfg.Logger,
		now:              time.Now,
		maxMessageLength: cfg.MaxMessageLength,
		sessionTTL:       cfg.SessionTTL,
		maxHistory:       cfg.MaxHistory,
		temperature:      float32(cfg.Temperature),
		maxTokens:        int32(cfg.MaxTokens),
	}
}

// HandleMessage runs one conversation turn. Only input validation errors are
// returned; every downstream failure degrades to a conversational reply.
func (e *Engine) HandleMessage(ctx context.Context, req MessageRequest) (*Reply, error) {
	text := strings.TrimSpace(req.Text)
	switch {
	case req.OrgID == "":
		return nil, ErrMissingOrgID
	case text == "":
		return nil, ErrEmptyMessage
	case utf8.RuneCountInString(text) > e.maxMessageLength:
		return nil, fmt.Errorf("%w: %d characters max", ErrMessageTooLong, e.maxMessageLength)
	}

	session := e.sessions.GetOrCreate(req.OrgID, req.SessionID)
	ctx, span := agentTracer.Start(ctx, "agent.turn",
		trace.WithAttributes(
			attribute.String("bizsite.org_id", req.OrgID),
			attribute.String("bizsite.session_id", session.ID),
		),
	)
	defer span.End()

	session.Lock()
	reply := e.turn(ctx, session, text)
	now := e.now()
	session.AppendMessage(RoleUser, text, now, e.maxHistory)
	session.AppendMessage(RoleAssistant, reply.Message, now, e.maxHistory)
	reply.SessionID = session.ID
	if session.FormActive() {
		reply.FormState = session.FormState.Clone()
	}
	session.Unlock()

	span.SetAttributes(
		attribute.String("bizsite.route", reply.Route),
		attribute.Int("bizsite.level", reply.Level),
	)
	e.metrics.ObserveTurn(reply.Route)

	if evicted := e.sessions.EvictIdle(e.sessionTTL); evicted > 0 {
		e.logger.Debug("evicted idle sessions", "count", evicted)
	}
	e.metrics.SetActiveSessions(e.sessions.Len())
	return reply, nil
}

// History returns a copy of the session transcript, or nil when the session
// is unknown or was evicted.
func (e *Engine) History(orgID, sessionID string) []Message {
	session, ok := e.sessions.Get(orgID, sessionID)
	if !ok {
		return nil
	}
	session.Lock()
	defer session.Unlock()
	return append([]Message(nil), session.Messages...)
}

func (e *Engine) turn(ctx context.Context, session *Session, text string) *Reply {
	snapshot, err := e.catalog.Snapshot(ctx, session.OrgID)
	if err != nil {
		e.logger.Warn("catalog snapshot unavailable", "error", err, "org_id", session.OrgID)
		snapshot = nil
	}

	if res := e.offTopic.Evaluate(text, session); res.IsOffTopic {
		e.metrics.ObserveOffTopic(string(res.Category), res.Attempt >= 3)
		e.logger.Info("off-topic message redirected", "category", res.Category, "attempt", res.Attempt, "session_id", session.ID)
		if e.audit != nil {
			if err := e.audit.LogOffTopicRefused(ctx, session.OrgID, session.ID, string(res.Category)); err != nil {
				e.logger.Warn("audit write failed", "error", err, "session_id", session.ID)
			}
		}
		return &Reply{
			Message:      RedirectMessage(res.Category, res.Attempt),
			QuickActions: quickActions(LevelResult{Level: LevelDiscovery}),
			Level:        LevelDiscovery,
			Route:        RouteOffTopic,
		}
	}

	forms := catalogForms{orgID: session.OrgID, snapshot: snapshot, writer: e.catalog}
	if session.FormActive() {
		return e.continueForm(ctx, session, forms, text)
	}

	var intent IntentResult
	if session.IsCollectingContactInfo {
		intent = IntentResult{Type: IntentChatQuestion, Confidence: 0.6}
	} else {
		intent = e.intents.Classify(text)
	}
	if intent.Type.IsCommand() {
		return e.command(ctx, session, forms, snapshot, intent, text)
	}

	level := e.levels.Analyze(session, text, snapshot)
	e.metrics.ObserveLevel(level.Level)
	if level.ServiceMentioned != "" {
		session.Interest = level.ServiceMentioned
	} else if level.CategoryMentioned != "" && session.Interest == "" {
		session.Interest = level.CategoryMentioned
	}

	if level.Level == LevelLeadCapture || session.IsCollectingContactInfo || level.QuoteRequested || level.ProvidingContactInfo {
		return e.leadCapture(ctx, session, intent, text)
	}
	return e.converse(ctx, session, snapshot, level, intent, text)
}

func (e *Engine) continueForm(ctx context.Context, session *Session, forms catalogForms, text string) *Reply {
	form, ok := forms.formFor(session.FormState.FormName)
	if !ok {
		session.FormState = nil
		return &Reply{Message: "Se perdió el registro en curso. ¿En qué te puedo ayudar?", Level: LevelDiscovery, Route: RouteForm}
	}
	step := e.forms.Submit(ctx, session.FormState, form, text)
	e.metrics.ObserveFormStep(form.Name, string(step.Outcome))
	switch step.Outcome {
	case FormCompleted:
		e.logger.Info("catalog form completed", "form", form.Name, "org_id", session.OrgID, "session_id", session.ID)
		session.FormState = nil
	case FormCancelled:
		session.FormState = nil
	case FormFailed:
		e.logger.Error("catalog form action failed", "form", form.Name, "org_id", session.OrgID, "session_id", session.ID)
	}
	return &Reply{Message: step.Message, Level: LevelDiscovery, Route: RouteForm, Intent: IntentType("form_" + form.Name)}
}

func (e *Engine) command(ctx context.Context, session *Session, forms catalogForms, snapshot *catalog.Snapshot, intent IntentResult, text string) *Reply {
	reply := &Reply{Level: LevelDiscovery, Intent: intent.Type}
	if intent.Type == IntentListServices {
		reply.Route = RouteList
		reply.Message = listCatalog(snapshot)
		reply.QuickActions = quickActions(LevelResult{Level: LevelDiscovery})
		return reply
	}

	if intent.Type == IntentCreateService || intent.Type == IntentCreatePackage {
		msg, ok, err := forms.directCreate(ctx, text)
		switch {
		case err != nil:
			e.logger.Error("direct catalog creation failed", "error", err, "org_id", session.OrgID)
		case ok:
			e.metrics.ObserveFormStep(formNameForIntent(intent.Type), string(FormCompleted))
			reply.Route = RouteDirect
			reply.Message = msg
			return reply
		}
	}

	form, _ := forms.formFor(formNameForIntent(intent.Type))
	state, prompt := e.forms.Start(form)
	session.FormState = state
	e.metrics.ObserveFormStep(form.Name, "started")
	reply.Route = RouteForm
	reply.Message = prompt
	return reply
}

func (e *Engine) leadCapture(ctx context.Context, session *Session, intent IntentResult, text string) *Reply {
	step := e.capture.Advance(ctx, session, text)
	e.metrics.ObserveLead(string(step.Outcome))
	reply := &Reply{
		Message: step.Message,
		Level:   LevelLeadCapture,
		Intent:  intent.Type,
		Route:   RouteLeadCapture,
	}
	if step.Outcome == LeadAborted || step.Outcome == LeadCreated || step.Outcome == LeadDuplicate {
		reply.Level = LevelDiscovery
		reply.Suggestions = []string{"¿Qué servicios ofrecen?"}
	}
	return reply
}

func (e *Engine) converse(ctx context.Context, session *Session, snapshot *catalog.Snapshot, level LevelResult, intent IntentResult, text string) *Reply {
	reply := &Reply{
		Level:        level.Level,
		Intent:       intent.Type,
		Suggestions:  suggestions(level, snapshot),
		QuickActions: quickActions(level),
	}

	guard := ScanForPromptInjection(text)
	if guard.Blocked {
		e.logger.Warn("prompt injection blocked", "reasons", guard.Reasons, "score", guard.Score, "session_id", session.ID)
		if e.audit != nil {
			if err := e.audit.LogPromptInjection(ctx, session.OrgID, session.ID, guard.Reasons, guard.Score); err != nil {
				e.logger.Warn("audit write failed", "error", err, "session_id", session.ID)
			}
		}
		reply.Route = RouteBlocked
		reply.Message = blockedReply
		return reply
	}

	req := completion.Request{
		System:      e.prompts.systemPrompt(level, snapshot),
		Messages:    historyMessages(session, guard.Sanitized),
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	}
	resp, err := e.completion.Complete(ctx, req)
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		if err != nil && !errors.Is(err, completion.ErrUnavailable) {
			e.logger.Warn("completion failed, using static reply", "error", err, "session_id", session.ID)
		}
		reply.Route = RouteFallback
		reply.Message = e.prompts.fallback(level.Level)
		return reply
	}
	reply.Route = RouteCompletion
	reply.Message = strings.TrimSpace(resp.Text)
	return reply
}

// historyMessages converts the transcript plus the current message into
// completion messages.
func historyMessages(session *Session, current string) []completion.Message {
	out := make([]completion.Message, 0, len(session.Messages)+1)
	for _, m := range session.Messages {
		role := completion.RoleUser
		if m.Role == RoleAssistant {
			role = completion.RoleAssistant
		}
		out = append(out, completion.Message{Role: role, Content: m.Content})
	}
	return append(out, completion.Message{Role: completion.RoleUser, Content: current})
}
