package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/bizsite-ai-platform/internal/agent"
	"github.com/wolfman30/bizsite-ai-platform/internal/tenancy"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

// Engine runs chat turns and exposes session transcripts.
type Engine interface {
	HandleMessage(ctx context.Context, req agent.MessageRequest) (*agent.Reply, error)
	History(orgID, sessionID string) []agent.Message
}

// Handler serves the website chat over WebSocket.
type Handler struct {
	engine Engine
	logger *logging.Logger
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type    string            `json:"type"` // "message", "ping"
	Text    string            `json:"text"`
	Context map[string]string `json:"context,omitempty"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type         string              `json:"type"` // "message", "typing", "history", "session", "error", "pong"
	Text         string              `json:"text,omitempty"`
	Role         string              `json:"role,omitempty"`
	SessionID    string              `json:"sessionId,omitempty"`
	Timestamp    string              `json:"timestamp,omitempty"`
	Level        int                 `json:"level,omitempty"`
	Suggestions  []string            `json:"suggestions,omitempty"`
	QuickActions []agent.QuickAction `json:"quickActions,omitempty"`
	FormState    *agent.FormState    `json:"formState,omitempty"`
	Messages     []HistoryMessage    `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

const genericError = "Lo siento, ocurrió un problema. Por favor, intenta de nuevo."

// idleTimeout closes connections that send nothing, pings included, for this
// long.
const idleTimeout = 10 * time.Minute

func NewHandler(engine Engine, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and runs one turn per inbound
// message frame.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "missing org parameter"})
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	// The HTTP server's read/write timeouts survive the upgrade.
	_ = conn.SetWriteDeadline(time.Time{})

	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "session",
		SessionID: sessionID,
	})

	if history := toHistory(h.engine.History(orgID, sessionID)); len(history) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
	}

	h.logger.Info("webchat: connection opened", "org_id", orgID, "session_id", sessionID)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "org_id", orgID, "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}

		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})
		if err := websocket.JSON.Send(conn, h.processMessage(r.Context(), orgID, sessionID, msg)); err != nil {
			h.logger.Warn("webchat: failed to send reply", "org_id", orgID, "session_id", sessionID, "error", err)
			return
		}
	}
}

func (h *Handler) processMessage(ctx context.Context, orgID, sessionID string, msg InboundMessage) OutboundMessage {
	reply, err := h.engine.HandleMessage(ctx, agent.MessageRequest{
		Text:      msg.Text,
		SessionID: sessionID,
		OrgID:     orgID,
		Context:   msg.Context,
	})
	if err != nil {
		if agent.IsValidationError(err) {
			return OutboundMessage{Type: "error", Text: err.Error(), SessionID: sessionID}
		}
		h.logger.Error("webchat: turn failed", "error", err, "org_id", orgID, "session_id", sessionID)
		return OutboundMessage{Type: "error", Text: genericError, SessionID: sessionID}
	}

	return OutboundMessage{
		Type:         "message",
		Role:         string(agent.RoleAssistant),
		Text:         reply.Message,
		SessionID:    reply.SessionID,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Level:        reply.Level,
		Suggestions:  reply.Suggestions,
		QuickActions: reply.QuickActions,
		FormState:    reply.FormState,
	}
}

// HandleHistory returns the live transcript for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	sessionID := r.URL.Query().Get("session")
	if !ok || sessionID == "" {
		http.Error(w, "org and session parameters required", http.StatusBadRequest)
		return
	}

	history := toHistory(h.engine.History(orgID, sessionID))
	if history == nil {
		history = []HistoryMessage{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"messages": history})
}

func toHistory(msgs []agent.Message) []HistoryMessage {
	if len(msgs) == 0 {
		return nil
	}
	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, HistoryMessage{
			Role:      string(m.Role),
			Text:      m.Content,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return history
}
