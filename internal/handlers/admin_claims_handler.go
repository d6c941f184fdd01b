package handlers

import (
	"net/http"
	"strconv"

	"go-backend/internal/repository"

	"github.com/gin-gonic/gin"
)

// AdminClaimsHandler serves the issued-claim audit log to admin operators
type AdminClaimsHandler struct {
	audit repository.IssuedClaimRepository
}

// NewAdminClaimsHandler creates the admin claims handler
func NewAdminClaimsHandler(audit repository.IssuedClaimRepository) *AdminClaimsHandler {
	return &AdminClaimsHandler{audit: audit}
}

// ListClaims handles GET /api/admin/claims
func (h *AdminClaimsHandler) ListClaims(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
	if err != nil || pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	claims, total, err := h.audit.List(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to list issued claims")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"claims":   claims,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}
