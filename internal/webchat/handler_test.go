package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/bizsite-ai-platform/internal/agent"
	"github.com/wolfman30/bizsite-ai-platform/internal/leads"
	"github.com/wolfman30/bizsite-ai-platform/internal/tenancy"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

func newTestEngine() *agent.Engine {
	return agent.NewEngine(agent.EngineConfig{
		Leads:        leads.NewInMemoryRepository(),
		BusinessName: "Acme",
		Logger:       logging.New("error"),
	})
}

func startServer(t *testing.T, h *Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(tenancy.Middleware("")(http.HandlerFunc(h.HandleWebSocket)))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws?" + query
	conn, err := websocket.Dial(url, "", "http://localhost/")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) OutboundMessage {
	t.Helper()
	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	return msg
}

func TestGenerateSessionID(t *testing.T) {
	s1 := generateSessionID()
	s2 := generateSessionID()
	assert.NotEmpty(t, s1)
	assert.NotEqual(t, s1, s2)
	assert.Len(t, s1, 32) // 16 bytes = 32 hex chars
}

func TestWebSocket_Turn(t *testing.T) {
	engine := newTestEngine()
	srv := startServer(t, NewHandler(engine, logging.New("error")))
	conn := dial(t, srv, "org=org1&session=sess1")

	session := receive(t, conn)
	assert.Equal(t, "session", session.Type)
	assert.Equal(t, "sess1", session.SessionID)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	assert.Equal(t, "pong", receive(t, conn).Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "Hola"}))
	assert.Equal(t, "typing", receive(t, conn).Type)
	reply := receive(t, conn)
	assert.Equal(t, "message", reply.Type)
	assert.Equal(t, "assistant", reply.Role)
	assert.Equal(t, "sess1", reply.SessionID)
	assert.Equal(t, agent.LevelDiscovery, reply.Level)
	assert.Contains(t, reply.Text, "Acme")
	assert.NotEmpty(t, reply.Suggestions)

	require.Len(t, engine.History("org1", "sess1"), 2)
}

func TestWebSocket_ReplaysHistoryOnReconnect(t *testing.T) {
	engine := newTestEngine()
	_, err := engine.HandleMessage(context.Background(), agent.MessageRequest{Text: "Hola", SessionID: "sess1", OrgID: "org1"})
	require.NoError(t, err)

	srv := startServer(t, NewHandler(engine, nil))
	conn := dial(t, srv, "org=org1&session=sess1")

	assert.Equal(t, "session", receive(t, conn).Type)
	history := receive(t, conn)
	assert.Equal(t, "history", history.Type)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "user", history.Messages[0].Role)
	assert.Equal(t, "Hola", history.Messages[0].Text)
}

func TestWebSocket_GeneratesSessionID(t *testing.T) {
	srv := startServer(t, NewHandler(newTestEngine(), nil))
	conn := dial(t, srv, "org=org1")

	session := receive(t, conn)
	assert.Equal(t, "session", session.Type)
	assert.Len(t, session.SessionID, 32)
}

func TestWebSocket_ValidationErrorFrame(t *testing.T) {
	srv := startServer(t, NewHandler(newTestEngine(), nil))
	conn := dial(t, srv, "org=org1&session=s")
	receive(t, conn)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: strings.Repeat("a", 2001)}))
	assert.Equal(t, "typing", receive(t, conn).Type)
	frame := receive(t, conn)
	assert.Equal(t, "error", frame.Type)
	assert.Contains(t, frame.Text, "too long")
}

type brokenEngine struct{}

func (brokenEngine) HandleMessage(context.Context, agent.MessageRequest) (*agent.Reply, error) {
	return nil, errors.New("boom")
}

func (brokenEngine) History(string, string) []agent.Message { return nil }

func TestProcessMessage_InternalErrorIsGeneric(t *testing.T) {
	h := NewHandler(brokenEngine{}, logging.New("error"))
	out := h.processMessage(context.Background(), "org1", "s", InboundMessage{Type: "message", Text: "Hola"})
	assert.Equal(t, "error", out.Type)
	assert.Equal(t, genericError, out.Text)
}

func TestHandleHistory(t *testing.T) {
	engine := newTestEngine()
	_, err := engine.HandleMessage(context.Background(), agent.MessageRequest{Text: "Hola", SessionID: "sess1", OrgID: "org1"})
	require.NoError(t, err)
	h := NewHandler(engine, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/chat/history?session=sess1", nil)
	req = req.WithContext(tenancy.WithOrgID(req.Context(), "org1"))
	w := httptest.NewRecorder()

	h.HandleHistory(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "user", resp.Messages[0].Role)
	assert.Equal(t, "Hola", resp.Messages[0].Text)
	assert.Equal(t, "assistant", resp.Messages[1].Role)
}

func TestHandleHistory_MissingParams(t *testing.T) {
	h := NewHandler(newTestEngine(), logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/chat/history", nil)
	req = req.WithContext(tenancy.WithOrgID(req.Context(), "org1"))
	w := httptest.NewRecorder()

	h.HandleHistory(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHistory_UnknownSession(t *testing.T) {
	h := NewHandler(newTestEngine(), logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/chat/history?session=nope", nil)
	req = req.WithContext(tenancy.WithOrgID(req.Context(), "org1"))
	w := httptest.NewRecorder()

	h.HandleHistory(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":[]}`, w.Body.String())
}
