package clients

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"go-backend/internal/metrics"

	"github.com/sirupsen/logrus"
)

// weiPerEther as an exact rational for conversion
var weiPerEther = new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// PriceClient fetches the base-asset/USD spot rate with a short-lived
// in-process cache. The signer path is never blocked by price-feed
// unavailability: on any failure the last-known-good rate is returned,
// seeded with a conservative default on cold start.
type PriceClient struct {
	url        string
	httpClient *http.Client
	cacheTTL   time.Duration

	mu          sync.RWMutex
	cachedRate  float64
	lastFetched time.Time

	now func() time.Time
}

// priceFeedResponse mirrors the simple-price API shape:
// {"ethereum":{"usd":1234.56}}
type priceFeedResponse struct {
	Ethereum struct {
		USD float64 `json:"usd"`
	} `json:"ethereum"`
}

// NewPriceClient creates a new price feed client. defaultUSD seeds the
// cache so a cold start with an unreachable feed still prices rewards.
func NewPriceClient(url string, cacheTTL, timeout time.Duration, defaultUSD float64) *PriceClient {
	return &PriceClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cacheTTL:   cacheTTL,
		cachedRate: defaultUSD,
		now:        time.Now,
	}
}

// GetBaseAssetUSD returns the cached rate when fresh, otherwise refreshes
// it from the price API. Never returns an error: any failure falls back to
// the last-known-good value. Two near-simultaneous refreshes may race; both
// write a fresh (or slightly staler) value, which staleness tolerance makes
// harmless, so no extra locking is held across the network call.
func (c *PriceClient) GetBaseAssetUSD(ctx context.Context) float64 {
	c.mu.RLock()
	rate := c.cachedRate
	fresh := c.now().Sub(c.lastFetched) < c.cacheTTL
	c.mu.RUnlock()

	if fresh {
		return rate
	}

	fetched, err := c.fetchRate(ctx)
	if err != nil || fetched <= 0 {
		metrics.PriceFeedFallbacks.Inc()
		logrus.WithFields(logrus.Fields{
			"error":    err,
			"fallback": rate,
		}).Warn("⚠️ Price feed unavailable, using last-known-good rate")
		return rate
	}

	c.mu.Lock()
	c.cachedRate = fetched
	c.lastFetched = c.now()
	c.mu.Unlock()

	return fetched
}

// WeiForUSD converts a USD amount into the integer wei amount at the
// current rate. The result is floored, never rounded up, so rounding can
// only under-pay.
func (c *PriceClient) WeiForUSD(ctx context.Context, usd float64) *big.Int {
	if usd <= 0 {
		return big.NewInt(0)
	}

	rate := c.GetBaseAssetUSD(ctx)
	if rate <= 0 {
		return big.NewInt(0)
	}

	// exact rational arithmetic: float64 division followed by truncation
	// can land one wei above the true quotient
	usdRat := new(big.Rat).SetFloat64(usd)
	rateRat := new(big.Rat).SetFloat64(rate)
	if usdRat == nil || rateRat == nil {
		return big.NewInt(0)
	}

	amount := new(big.Rat).Quo(usdRat, rateRat)
	amount.Mul(amount, weiPerEther)

	return new(big.Int).Quo(amount.Num(), amount.Denom())
}

func (c *PriceClient) fetchRate(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &UpstreamStatusError{Service: "price-feed", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	var feedResp priceFeedResponse
	if err := json.Unmarshal(body, &feedResp); err != nil {
		return 0, err
	}

	return feedResp.Ethereum.USD, nil
}
