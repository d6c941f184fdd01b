package handlers

import (
	"context"
	"errors"
	"net/http"

	"go-backend/internal/clients"
	"go-backend/internal/metrics"
	"go-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// FIDResolver resolves a wallet address to its linked FID
type FIDResolver interface {
	ResolveFID(ctx context.Context, address string) (uint64, error)
}

// CaptchaVerifier checks a client-supplied human-verification token
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// respondError writes the uniform JSON error shape
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"ok":    false,
		"error": message,
	})
}

// respondServiceError maps service-layer sentinel errors onto HTTP status
// codes. Eligibility and identity rejections are client errors; upstream
// and configuration failures are server errors so callers can retry.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, clients.ErrCaptchaFailed):
		metrics.ClaimRejections.WithLabelValues("captcha").Inc()
		respondError(c, http.StatusBadRequest, "CAPTCHA verification failed")

	case errors.Is(err, clients.ErrCaptchaNotConfigured):
		respondError(c, http.StatusInternalServerError, "CAPTCHA verification is not configured")

	case errors.Is(err, clients.ErrIdentityNotFound):
		metrics.ClaimRejections.WithLabelValues("identity_not_found").Inc()
		respondError(c, http.StatusBadRequest, "No linked FID found for this address")

	case errors.Is(err, clients.ErrIdentityUpstream):
		metrics.UpstreamErrors.WithLabelValues("identity").Inc()
		respondError(c, http.StatusInternalServerError, "Identity service unavailable")

	case errors.Is(err, services.ErrNoRevocation):
		metrics.ClaimRejections.WithLabelValues("no_revocation").Inc()
		respondError(c, http.StatusBadRequest, "No revocation on file for this wallet")

	case errors.Is(err, services.ErrFIDMismatch):
		metrics.ClaimRejections.WithLabelValues("fid_mismatch").Inc()
		respondError(c, http.StatusBadRequest, "FID verification failed")

	case errors.Is(err, services.ErrStoreUnavailable):
		metrics.UpstreamErrors.WithLabelValues("database").Inc()
		respondError(c, http.StatusInternalServerError, "Revocation store unavailable, please retry")

	case errors.Is(err, services.ErrAttesterNotConfigured):
		respondError(c, http.StatusInternalServerError, "Attester not properly configured")

	case errors.Is(err, services.ErrChainUnavailable):
		metrics.UpstreamErrors.WithLabelValues("chain_rpc").Inc()
		respondError(c, http.StatusInternalServerError, "Chain RPC unavailable, please retry")

	case errors.Is(err, services.ErrSubmissionReverted):
		metrics.ClaimRejections.WithLabelValues("reverted").Inc()
		respondError(c, http.StatusBadRequest, "Claim transaction reverted")

	default:
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}
