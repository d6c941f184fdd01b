package handlers

import (
	"encoding/hex"
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

// AttestHandler issues one-shot revocation attestations
type AttestHandler struct {
	captcha     CaptchaVerifier
	identity    FIDResolver
	eligibility *services.EligibilityService
	attester    *services.AttesterService
	audit       repository.IssuedClaimRepository
	events      *events.Publisher
}

// AttestRequest is the /api/attest request body
type AttestRequest struct {
	Wallet       string `json:"wallet"`
	Token        string `json:"token"`
	Spender      string `json:"spender"`
	CaptchaToken string `json:"captchaToken"`
}

// NewAttestHandler creates the attestation handler. attester may be nil
// when the signing key failed to load; every request then fails closed.
func NewAttestHandler(
	captcha CaptchaVerifier,
	identity FIDResolver,
	eligibility *services.EligibilityService,
	attester *services.AttesterService,
	audit repository.IssuedClaimRepository,
	publisher *events.Publisher,
) *AttestHandler {
	return &AttestHandler{
		captcha:     captcha,
		identity:    identity,
		eligibility: eligibility,
		attester:    attester,
		audit:       audit,
		events:      publisher,
	}
}

// Attest handles POST /api/attest
func (h *AttestHandler) Attest(c *gin.Context) {
	var req AttestRequest
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

	// the human check is the first gate, before any identity lookup
	if err := h.captcha.Verify(c.Request.Context(), req.CaptchaToken, c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}

	fid, err := h.identity.ResolveFID(c.Request.Context(), req.Wallet)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := h.eligibility.CheckEligible(c.Request.Context(), req.Wallet, req.Token, req.Spender, fid); err != nil {
		respondServiceError(c, err)
		return
	}

	if h.attester == nil {
		respondServiceError(c, services.ErrAttesterNotConfigured)
		return
	}

	networkName := config.AppConfig.Reward.AttestationNetwork
	networkConfig, err := config.GetNetworkConfig(networkName)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Attestation network is not configured")
		return
	}
	if networkConfig.AttesterContract == "" {
		respondError(c, http.StatusInternalServerError, "Attester contract is not configured")
		return
	}

	attestation, sig, err := h.attester.SignAttestation(
		int64(networkConfig.ChainID),
		networkConfig.AttesterContract,
		fid,
		req.Token,
		req.Spender,
	)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	wallet, _ := utils.NormalizeEvmAddress(req.Wallet)
	h.recordIssued(c, &models.IssuedClaim{
		Shape:    models.ClaimShapeAttestation,
		FID:      fid,
		Wallet:   wallet,
		ChainID:  networkConfig.ChainID,
		Token:    strings.ToLower(attestation.Token.Hex()),
		Spender:  strings.ToLower(attestation.Spender.Hex()),
		Nonce:    attestation.Nonce.String(),
		Deadline: attestation.Deadline.Int64(),
	})

	metrics.AttestationsIssued.Inc()
	h.events.ClaimIssued(events.ClaimIssuedEvent{
		Shape:    string(models.ClaimShapeAttestation),
		FID:      fid,
		Wallet:   wallet,
		ChainID:  networkConfig.ChainID,
		Nonce:    attestation.Nonce.String(),
		Deadline: attestation.Deadline.Int64(),
	})

	logrus.WithFields(logrus.Fields{
		"fid":    fid,
		"wallet": wallet,
	}).Info("✅ Attestation issued")

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"sig":      "0x" + hex.EncodeToString(sig),
		"nonce":    attestation.Nonce.String(),
		"deadline": attestation.Deadline.Int64(),
		"fid":      fid,
	})
}

// recordIssued writes the audit row; failures are logged, never surfaced,
// since the signature is already produced
func (h *AttestHandler) recordIssued(c *gin.Context, claim *models.IssuedClaim) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Create(c.Request.Context(), claim); err != nil {
		logrus.WithError(err).Warn("⚠️ Failed to record issued claim")
	}
}
