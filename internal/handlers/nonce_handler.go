package handlers

import (
	"context"
	"math/big"
	"net/http"

	"go-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NonceReader reads the on-chain claim nonce for an account
type NonceReader interface {
	GetClaimNonce(ctx context.Context, chain string, userAddress string) (*big.Int, error)
}

// NonceHandler serves the advisory claim-nonce read
type NonceHandler struct {
	reader NonceReader
}

// NonceRequest is the /api/get-nonce request body
type NonceRequest struct {
	Chain       string `json:"chain"`
	UserAddress string `json:"userAddress"`
}

// NewNonceHandler creates the nonce handler
func NewNonceHandler(reader NonceReader) *NonceHandler {
	return &NonceHandler{reader: reader}
}

// GetNonce handles POST /api/get-nonce. The nonce is a hint for clients
// building their own claim transaction; a failed read degrades to "0"
// instead of failing the request.
func (h *NonceHandler) GetNonce(c *gin.Context) {
	var req NonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Chain == "" || req.UserAddress == "" {
		respondError(c, http.StatusBadRequest, "chain and userAddress are required")
		return
	}
	if !utils.IsEvmAddress(req.UserAddress) {
		respondError(c, http.StatusBadRequest, "Invalid address format")
		return
	}

	nonce, err := h.reader.GetClaimNonce(c.Request.Context(), req.Chain, req.UserAddress)
	if err != nil {
		logrus.WithError(err).WithField("chain", req.Chain).Warn("⚠️ Nonce read failed, defaulting to 0")
		c.JSON(http.StatusOK, gin.H{
			"ok":    true,
			"nonce": "0",
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"nonce": nonce.String(),
	})
}
