package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go-backend/internal/utils"

	"github.com/sirupsen/logrus"
)

var (
	// ErrIdentityNotFound means the directory has no linked identity for
	// the address. FID 0 is a reserved "no identity" sentinel and maps here
	// as well.
	ErrIdentityNotFound = errors.New("no linked identity for address")

	// ErrIdentityUpstream means the directory service itself failed;
	// distinguishable from not-found so callers can retry.
	ErrIdentityUpstream = errors.New("identity directory unavailable")
)

// UpstreamStatusError reports a non-2xx response from an upstream service
type UpstreamStatusError struct {
	Service    string
	StatusCode int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
}

// IdentityClient resolves a wallet address to its owner identity (FID)
// through the identity directory HTTP API. Resolution is deliberately
// uncached: every claim re-resolves, so custody changes take effect
// immediately.
type IdentityClient struct {
	baseURL    string
	apiKey     string
	maxFID     uint64
	httpClient *http.Client
}

type identityResponse struct {
	FID uint64 `json:"fid"`
}

// NewIdentityClient creates a new identity directory client
func NewIdentityClient(baseURL, apiKey string, timeout time.Duration, maxFID uint64) *IdentityClient {
	return &IdentityClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		maxFID:  maxFID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ResolveFID maps a wallet address to its FID. The address is lowercased
// before querying. Returns ErrIdentityNotFound when no identity is linked
// (including the FID 0 sentinel and values above the sanity ceiling) and
// ErrIdentityUpstream when the directory errors.
func (c *IdentityClient) ResolveFID(ctx context.Context, address string) (uint64, error) {
	normalized, err := utils.NormalizeEvmAddress(address)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIdentityNotFound, err)
	}

	reqURL := fmt.Sprintf("%s/v1/identity/by-address?address=%s", c.baseURL, url.QueryEscape(normalized))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIdentityUpstream, err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIdentityUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, ErrIdentityNotFound
	}
	if resp.StatusCode != http.StatusOK {
		logrus.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"address": normalized,
		}).Error("❌ Identity directory returned unexpected status")
		return 0, fmt.Errorf("%w: %v", ErrIdentityUpstream,
			&UpstreamStatusError{Service: "identity-directory", StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIdentityUpstream, err)
	}

	var identityResp identityResponse
	if err := json.Unmarshal(body, &identityResp); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIdentityUpstream, err)
	}

	// FID 0 signals "no linked identity", never a legitimate value
	if identityResp.FID == 0 {
		return 0, ErrIdentityNotFound
	}
	if c.maxFID > 0 && identityResp.FID > c.maxFID {
		return 0, fmt.Errorf("%w: fid %d above sanity ceiling", ErrIdentityNotFound, identityResp.FID)
	}

	return identityResp.FID, nil
}
