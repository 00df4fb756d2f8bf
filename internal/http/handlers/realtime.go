package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/studysync-backend/internal/http/response"
	"github.com/yungbote/studysync-backend/internal/platform/apierr"
	"github.com/yungbote/studysync-backend/internal/platform/ctxutil"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
	"github.com/yungbote/studysync-backend/internal/realtime"
	"github.com/yungbote/studysync-backend/internal/services"
)

type RealtimeHandler struct {
	Log    *logger.Logger
	Hub    *realtime.SSEHub
	Config services.RealtimeConfig
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, cfg services.RealtimeConfig) *RealtimeHandler {
	return &RealtimeHandler{
		Log:    log.With("handler", "RealtimeHandler"),
		Hub:    hub,
		Config: cfg,
	}
}

// GET /api/realtime/config
func (h *RealtimeHandler) GetConfig(c *gin.Context) {
	response.RespondOK(c, h.Config.Reflect(c.Request.Host, requestScheme(c.Request)))
}

// GET /api/realtime/ws?key=...&channel=...
// Further channels may be joined with subscribe frames over the socket.
func (h *RealtimeHandler) WebSocket(c *gin.Context) {
	if !h.Config.KeyMatches(c.Query("key")) {
		response.RespondError(c, http.StatusUnauthorized, "invalid_app_key", errors.New("unknown realtime app key"))
		return
	}
	channel := strings.TrimSpace(c.Query("channel"))
	if channel != "" && !realtime.IsPublicChannel(channel) {
		response.RespondAPIError(c, apierr.Forbidden(errors.New("channel is not public")))
		return
	}

	client := h.newClient(c)
	defer h.Hub.CloseClient(client)
	if channel != "" {
		h.Hub.AddChannel(client, channel)
	}
	client.Logger.Info("Websocket open", "channel", channel)
	h.Hub.ServeWS(c.Writer, c.Request, client, realtime.IsPublicChannel)
	client.Logger.Info("Websocket closed")
}

// GET /api/realtime/sse?channel=...
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	channel := strings.TrimSpace(c.Query("channel"))
	if channel == "" {
		response.RespondAPIError(c, apierr.Validation("", errors.New("channel is required")))
		return
	}
	if !realtime.IsPublicChannel(channel) {
		response.RespondAPIError(c, apierr.Forbidden(errors.New("channel is not public")))
		return
	}

	client := h.newClient(c)
	defer h.Hub.CloseClient(client)
	h.Hub.AddChannel(client, channel)
	client.Logger.Info("SSEStream open", "channel", channel)
	h.Hub.ServeHTTP(c.Writer, c.Request, client)
}

// newClient creates a hub client for the caller, anonymous unless a token
// was presented.
func (h *RealtimeHandler) newClient(c *gin.Context) *realtime.SSEClient {
	userID := uuid.Nil
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
		userID = rd.UserID
	}
	client := h.Hub.NewSSEClient(userID)
	client.Logger = h.Log.With("SSEClientID", client.ID, "user_id", userID)
	return client
}

func requestScheme(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
