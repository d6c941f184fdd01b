package handlers

import (
	"net/http"

	"go-backend/internal/events"
	"go-backend/internal/metrics"
	"go-backend/internal/models"
	"go-backend/internal/repository"
	"go-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RevocationHandler records completed on-chain revocations reported by
// clients. The stored triple and FID are what the eligibility gate later
// checks claims against.
type RevocationHandler struct {
	identity FIDResolver
	repo     repository.RevocationRepository
	events   *events.Publisher
}

// RevocationRequest is the /api/revocations request body
type RevocationRequest struct {
	Chain       string `json:"chain"`
	ChainID     int    `json:"chainId"`
	Wallet      string `json:"wallet"`
	Token       string `json:"token"`
	Spender     string `json:"spender"`
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
}

// NewRevocationHandler creates the revocation recording handler
func NewRevocationHandler(identity FIDResolver, repo repository.RevocationRepository, publisher *events.Publisher) *RevocationHandler {
	return &RevocationHandler{
		identity: identity,
		repo:     repo,
		events:   publisher,
	}
}

// Record handles POST /api/revocations
func (h *RevocationHandler) Record(c *gin.Context) {
	var req RevocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Wallet == "" || req.Token == "" || req.Spender == "" {
		respondError(c, http.StatusBadRequest, "wallet, token and spender are required")
		return
	}
	if !utils.IsEvmAddress(req.Wallet) || !utils.IsEvmAddress(req.Token) || !utils.IsEvmAddress(req.Spender) {
		respondError(c, http.StatusBadRequest, "Invalid address format")
		return
	}

	// the FID is captured at record time; claims later verify against a
	// fresh resolution of the same wallet
	fid, err := h.identity.ResolveFID(c.Request.Context(), req.Wallet)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	wallet, _ := utils.NormalizeEvmAddress(req.Wallet)
	token, _ := utils.NormalizeEvmAddress(req.Token)
	spender, _ := utils.NormalizeEvmAddress(req.Spender)

	record := &models.RevocationRecord{
		ChainID:     req.ChainID,
		Wallet:      wallet,
		Token:       token,
		Spender:     spender,
		FID:         fid,
		TxHash:      req.TxHash,
		BlockNumber: req.BlockNumber,
	}

	if err := h.repo.Create(c.Request.Context(), record); err != nil {
		logrus.WithError(err).Error("❌ Failed to store revocation record")
		metrics.UpstreamErrors.WithLabelValues("database").Inc()
		respondError(c, http.StatusInternalServerError, "Failed to store revocation record")
		return
	}

	metrics.RevocationsRecorded.Inc()
	h.events.RevocationRecorded(events.RevocationRecordedEvent{
		ChainID:     req.ChainID,
		Wallet:      wallet,
		Token:       token,
		Spender:     spender,
		FID:         fid,
		TxHash:      req.TxHash,
		BlockNumber: req.BlockNumber,
	})

	logrus.WithFields(logrus.Fields{
		"wallet":  wallet,
		"token":   token,
		"spender": spender,
		"fid":     fid,
	}).Info("✅ Revocation recorded")

	c.JSON(http.StatusOK, gin.H{
		"ok":  true,
		"id":  record.ID,
		"fid": fid,
	})
}
