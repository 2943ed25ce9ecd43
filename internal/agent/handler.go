package agent

import (
	"encoding/json"
	"net/http"

	"github.com/wolfman30/bizsite-ai-platform/internal/tenancy"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

// maxBodyBytes caps the chat request body.
const maxBodyBytes = 64 << 10

// Handler exposes the engine over HTTP.
type Handler struct {
	engine *Engine
	logger *logging.Logger
}

func NewHandler(engine *Engine, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

// PostMessage handles POST /chat/message.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}
	req.OrgID = orgID

	reply, err := h.engine.HandleMessage(r.Context(), req)
	if err != nil {
		if IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("chat turn failed", "error", err, "org_id", orgID)
		http.Error(w, "failed to handle message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reply)
}
