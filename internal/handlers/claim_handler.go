package handlers

import (
	"context"
	"encoding/hex"
	"math/big"
	"net/http"
	"strings"

	"go-backend/internal/config"
	"go-backend/internal/events"
	"go-backend/internal/metrics"
	"go-backend/internal/models"
	"go-backend/internal/repository"
	"go-backend/internal/services"
	"go-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PriceConverter turns a USD reward target into a wei amount
type PriceConverter interface {
	WeiForUSD(ctx context.Context, usd float64) *big.Int
}

// ClaimRelay submits a signed voucher on the user's behalf
type ClaimRelay interface {
	SubmitClaim(ctx context.Context, chain string, voucher *services.Voucher, signature []byte) (string, error)
}

// ClaimHandler issues daily reward vouchers and optionally relays them
type ClaimHandler struct {
	identity    FIDResolver
	eligibility *services.EligibilityService
	attester    *services.AttesterService
	price       PriceConverter
	relay       ClaimRelay
	audit       repository.IssuedClaimRepository
	events      *events.Publisher
}

// ClaimRequest is the /api/claim request body
type ClaimRequest struct {
	Chain   string `json:"chain"`
	FID     uint64 `json:"fid"`
	Address string `json:"address"`
}

// NewClaimHandler creates the voucher claim handler
func NewClaimHandler(
	identity FIDResolver,
	eligibility *services.EligibilityService,
	attester *services.AttesterService,
	price PriceConverter,
	relay ClaimRelay,
	audit repository.IssuedClaimRepository,
	publisher *events.Publisher,
) *ClaimHandler {
	return &ClaimHandler{
		identity:    identity,
		eligibility: eligibility,
		attester:    attester,
		price:       price,
		relay:       relay,
		audit:       audit,
		events:      publisher,
	}
}

// Claim handles POST /api/claim
func (h *ClaimHandler) Claim(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Chain == "" || req.Address == "" || req.FID == 0 {
		respondError(c, http.StatusBadRequest, "chain, fid and address are required")
		return
	}
	if !utils.IsEvmAddress(req.Address) {
		respondError(c, http.StatusBadRequest, "Invalid address format")
		return
	}

	networkConfig, err := config.GetNetworkConfig(req.Chain)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Unsupported chain: "+req.Chain)
		return
	}

	// the claimed FID must match a fresh resolution; a custody transfer
	// between revoke and claim invalidates the claim
	resolvedFID, err := h.identity.ResolveFID(c.Request.Context(), req.Address)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if resolvedFID != req.FID {
		metrics.ClaimRejections.WithLabelValues("fid_mismatch").Inc()
		respondError(c, http.StatusBadRequest, "FID verification failed")
		return
	}

	if err := h.eligibility.HasRevocationForWallet(c.Request.Context(), req.Address, resolvedFID); err != nil {
		respondServiceError(c, err)
		return
	}

	if h.attester == nil {
		respondServiceError(c, services.ErrAttesterNotConfigured)
		return
	}

	contractAddr := networkConfig.RewardContract
	if contractAddr == "" {
		respondError(c, http.StatusInternalServerError, "Reward contract is not configured for "+req.Chain)
		return
	}

	amountWei := h.price.WeiForUSD(c.Request.Context(), config.AppConfig.Reward.USDAmount)
	voucher, sig, err := h.attester.SignVoucher(
		int64(networkConfig.ChainID),
		contractAddr,
		resolvedFID,
		req.Address,
		amountWei,
	)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	wallet, _ := utils.NormalizeEvmAddress(req.Address)
	auditRow := &models.IssuedClaim{
		Shape:     models.ClaimShapeVoucher,
		FID:       resolvedFID,
		Wallet:    wallet,
		ChainID:   networkConfig.ChainID,
		Day:       voucher.Day.Uint64(),
		AmountWei: voucher.AmountWei.String(),
		Deadline:  voucher.Deadline.Int64(),
	}

	metrics.VouchersIssued.Inc()
	h.events.ClaimIssued(events.ClaimIssuedEvent{
		Shape:     string(models.ClaimShapeVoucher),
		FID:       resolvedFID,
		Wallet:    wallet,
		ChainID:   networkConfig.ChainID,
		Day:       voucher.Day.Uint64(),
		AmountWei: voucher.AmountWei.String(),
		Deadline:  voucher.Deadline.Int64(),
	})

	if networkConfig.SubmitOnBehalf && h.relay != nil {
		txHash, err := h.relay.SubmitClaim(c.Request.Context(), req.Chain, voucher, sig)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		auditRow.TxHash = txHash
		h.recordIssued(c, auditRow)
		h.events.RewardSubmitted(events.RewardSubmittedEvent{
			ChainID: networkConfig.ChainID,
			Wallet:  wallet,
			FID:     resolvedFID,
			TxHash:  txHash,
		})

		logrus.WithFields(logrus.Fields{
			"fid":     resolvedFID,
			"wallet":  wallet,
			"tx_hash": txHash,
		}).Info("✅ Voucher claimed via relay")

		c.JSON(http.StatusOK, gin.H{
			"ok":     true,
			"txHash": txHash,
		})
		return
	}

	h.recordIssued(c, auditRow)
	logrus.WithFields(logrus.Fields{
		"fid":    resolvedFID,
		"wallet": wallet,
		"day":    voucher.Day.Uint64(),
	}).Info("✅ Voucher issued")

	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"voucher": gin.H{
			"fid":       voucher.FID.String(),
			"recipient": strings.ToLower(voucher.Recipient.Hex()),
			"day":       voucher.Day.String(),
			"amountWei": voucher.AmountWei.String(),
			"deadline":  voucher.Deadline.Int64(),
		},
		"signature": "0x" + hex.EncodeToString(sig),
		"contract":  contractAddr,
		"chainId":   networkConfig.ChainID,
	})
}

func (h *ClaimHandler) recordIssued(c *gin.Context, claim *models.IssuedClaim) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Create(c.Request.Context(), claim); err != nil {
		logrus.WithError(err).Warn("⚠️ Failed to record issued claim")
	}
}
