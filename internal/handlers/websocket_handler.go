package handlers

import (
	"net/http"

	"go-backend/internal/services"
	"go-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

// WebSocketHandler upgrades clients onto the claim status push channel
type WebSocketHandler struct {
	push *services.PushService
}

// NewWebSocketHandler creates the WebSocket handler
func NewWebSocketHandler(push *services.PushService) *WebSocketHandler {
	return &WebSocketHandler{push: push}
}

// Connect handles GET /api/ws?address=0x...
func (h *WebSocketHandler) Connect(c *gin.Context) {
	address := c.Query("address")
	if !utils.IsEvmAddress(address) {
		respondError(c, http.StatusBadRequest, "A valid address query parameter is required")
		return
	}

	h.push.HandleConnection(c.Writer, c.Request, address)
}
