package agent

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/bizsite-ai-platform/internal/tenancy"
)

func postChat(t *testing.T, h *Handler, body, orgID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	if orgID != "" {
		req = req.WithContext(tenancy.WithOrgID(req.Context(), orgID))
	}
	w := httptest.NewRecorder()
	h.PostMessage(w, req)
	return w
}

func TestHandler_PostMessage(t *testing.T) {
	f := newEngineFixture(t)
	h := NewHandler(f.engine, nil)

	w := postChat(t, h, `{"text":"Hola","sessionId":"web-1"}`, "org-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var reply Reply
	require.NoError(t, json.NewDecoder(w.Body).Decode(&reply))
	assert.Equal(t, "web-1", reply.SessionID)
	assert.Equal(t, LevelDiscovery, reply.Level)
	assert.NotEmpty(t, reply.Message)
	assert.Equal(t, 1, f.sessions.Len())
}

func TestHandler_PostMessageIssuesSessionID(t *testing.T) {
	f := newEngineFixture(t)
	h := NewHandler(f.engine, nil)

	w := postChat(t, h, `{"text":"/servicios"}`, "org-1")
	require.Equal(t, http.StatusOK, w.Code)

	var reply Reply
	require.NoError(t, json.NewDecoder(w.Body).Decode(&reply))
	assert.NotEmpty(t, reply.SessionID)
	assert.Equal(t, RouteList, reply.Route)
}

func TestHandler_PostMessageRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		orgID string
	}{
		{"invalid json", `{`, "org-1"},
		{"missing org", `{"text":"Hola"}`, ""},
		{"empty text", `{"text":"   "}`, "org-1"},
		{"too long", `{"text":"` + strings.Repeat("a", 2001) + `"}`, "org-1"},
		{"oversized body", `{"text":"` + strings.Repeat("a", maxBodyBytes) + `"}`, "org-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t)
			w := postChat(t, NewHandler(f.engine, nil), tt.body, tt.orgID)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Zero(t, f.sessions.Len())
		})
	}
}

func TestHandler_OrgFromMiddleware(t *testing.T) {
	f := newEngineFixture(t)
	srv := tenancy.Middleware("")(http.HandlerFunc(NewHandler(f.engine, nil).PostMessage))

	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(`{"text":"Hola"}`))
	req.Header.Set(tenancy.HeaderOrgID, "org-1")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(`{"text":"Hola"}`))
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
