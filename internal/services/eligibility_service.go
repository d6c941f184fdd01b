package services

import (
	"context"
	"errors"
	"fmt"

	"go-backend/internal/repository"
	"go-backend/internal/utils"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNoRevocation means no revocation is on file for the triple
	ErrNoRevocation = errors.New("no revocation on file")

	// ErrFIDMismatch means a record exists but was registered under a
	// different identity than the one currently resolved for the wallet
	ErrFIDMismatch = errors.New("FID verification failed")

	// ErrStoreUnavailable means the persistence layer failed; callers must
	// surface it as a server error so clients can retry, never as
	// "ineligible"
	ErrStoreUnavailable = errors.New("revocation store unavailable")
)

// EligibilityService is the gate in front of the attester: no signature is
// produced unless a revocation is on file for the claimed triple and its
// recorded identity matches the freshly resolved one.
//
// The stored FID is compared by simple equality against the FID resolved
// at claim time. A custody transfer between revoke and claim therefore
// makes the claim ineligible; this mirrors the recording-time semantics
// and doubles as fraud prevention.
type EligibilityService struct {
	repo repository.RevocationRepository
}

// NewEligibilityService creates a new eligibility gate
func NewEligibilityService(repo repository.RevocationRepository) *EligibilityService {
	return &EligibilityService{repo: repo}
}

// CheckEligible verifies that a revocation for (wallet, token, spender) is
// on file and was recorded under the given FID. All three addresses are
// normalized to lowercase before the lookup. When the store holds
// duplicate rows for the triple, one matching record suffices.
func (s *EligibilityService) CheckEligible(ctx context.Context, wallet, token, spender string, fid uint64) error {
	walletNorm, err := utils.NormalizeEvmAddress(wallet)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoRevocation, err)
	}
	tokenNorm, err := utils.NormalizeEvmAddress(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoRevocation, err)
	}
	spenderNorm, err := utils.NormalizeEvmAddress(spender)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoRevocation, err)
	}

	records, err := s.repo.FindByTriple(ctx, walletNorm, tokenNorm, spenderNorm)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"wallet":  walletNorm,
			"token":   tokenNorm,
			"spender": spenderNorm,
		}).Error("❌ Revocation store lookup failed")
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if len(records) == 0 {
		return ErrNoRevocation
	}

	for _, record := range records {
		if record.FID == fid {
			return nil
		}
	}

	return fmt.Errorf("%w: revocation recorded under a different identity", ErrFIDMismatch)
}

// HasRevocationForWallet reports whether the wallet has at least one
// revocation recorded under the given FID. The voucher path has no
// token/spender pair, so this is its eligibility precondition.
func (s *EligibilityService) HasRevocationForWallet(ctx context.Context, wallet string, fid uint64) error {
	walletNorm, err := utils.NormalizeEvmAddress(wallet)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoRevocation, err)
	}

	count, err := s.repo.CountByWalletAndFID(ctx, walletNorm, fid)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if count == 0 {
		return ErrNoRevocation
	}
	return nil
}
