package clients

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go-backend/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPriceServer(t *testing.T, rate float64, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		fmt.Fprintf(w, `{"ethereum":{"usd":%g}}`, rate)
	}))
}

func TestGetBaseAssetUSDCachesWithinTTL(t *testing.T) {
	var calls int32
	server := newPriceServer(t, 2000, &calls)
	defer server.Close()

	client := NewPriceClient(server.URL, 60*time.Second, 5*time.Second, 1500)

	rate := client.GetBaseAssetUSD(context.Background())
	assert.Equal(t, 2000.0, rate)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// second read within the TTL is served from cache
	rate = client.GetBaseAssetUSD(context.Background())
	assert.Equal(t, 2000.0, rate)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetBaseAssetUSDRefreshesAfterTTL(t *testing.T) {
	var calls int32
	server := newPriceServer(t, 2000, &calls)
	defer server.Close()

	client := NewPriceClient(server.URL, 60*time.Second, 5*time.Second, 1500)

	current := time.Now()
	client.now = func() time.Time { return current }

	client.GetBaseAssetUSD(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	current = current.Add(61 * time.Second)
	client.GetBaseAssetUSD(context.Background())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetBaseAssetUSDFallsBackOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewPriceClient(server.URL, time.Nanosecond, 5*time.Second, 1500)

	before := testutil.ToFloat64(metrics.PriceFeedFallbacks)

	// cold start with a failing feed still returns the default seed
	rate := client.GetBaseAssetUSD(context.Background())
	assert.Equal(t, 1500.0, rate)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.PriceFeedFallbacks))
}

func TestGetBaseAssetUSDKeepsLastKnownGood(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"ethereum":{"usd":2345.67}}`)
	}))
	defer server.Close()

	client := NewPriceClient(server.URL, time.Nanosecond, 5*time.Second, 1500)

	rate := client.GetBaseAssetUSD(context.Background())
	require.Equal(t, 2345.67, rate)

	fail.Store(true)
	rate = client.GetBaseAssetUSD(context.Background())
	assert.Equal(t, 2345.67, rate)
}

func TestWeiForUSDFloors(t *testing.T) {
	var calls int32
	server := newPriceServer(t, 3000, &calls)
	defer server.Close()

	client := NewPriceClient(server.URL, 60*time.Second, 5*time.Second, 3000)

	// 0.25 USD at 3000 USD/ETH is exactly 1/12000 ether; the exact wei
	// value truncates, never rounds up
	wei := client.WeiForUSD(context.Background(), 0.25)
	require.NotNil(t, wei)
	assert.True(t, wei.Sign() > 0)

	exact := new(big.Float).Quo(big.NewFloat(0.25), big.NewFloat(3000))
	exact.Mul(exact, new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)))
	ceiling, _ := exact.Int(nil)
	assert.True(t, wei.Cmp(ceiling) <= 0, "floored value must not exceed the exact amount")
}

func TestWeiForUSDExactRationalFloor(t *testing.T) {
	const rate = 3123.77

	client := NewPriceClient("http://127.0.0.1:0", time.Hour, time.Second, rate)
	client.lastFetched = time.Now()

	weiScale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	rateRat := new(big.Rat).SetFloat64(rate)

	// awkward fractions like 299/997 are where a 53-bit float quotient
	// lands one wei above the true floor
	for i := 1; i <= 5000; i++ {
		usd := float64(i) / 997.0
		got := client.WeiForUSD(context.Background(), usd)

		exact := new(big.Rat).Quo(new(big.Rat).SetFloat64(usd), rateRat)
		exact.Mul(exact, weiScale)
		floor := new(big.Int).Quo(exact.Num(), exact.Denom())

		require.Zero(t, got.Cmp(floor), "usd=%v got=%s want=%s", usd, got, floor)
	}
}

func TestWeiForUSDMonotonic(t *testing.T) {
	var calls int32
	server := newPriceServer(t, 2500, &calls)
	defer server.Close()

	client := NewPriceClient(server.URL, 60*time.Second, 5*time.Second, 2500)

	previous := big.NewInt(-1)
	for _, usd := range []float64{0.01, 0.1, 0.25, 0.5, 1, 5, 100} {
		wei := client.WeiForUSD(context.Background(), usd)
		assert.True(t, wei.Cmp(previous) >= 0, "wei amount must be non-decreasing in usd")
		previous = wei
	}
}

func TestWeiForUSDZeroAndNegative(t *testing.T) {
	client := NewPriceClient("http://127.0.0.1:0", 60*time.Second, time.Second, 2500)

	assert.Equal(t, int64(0), client.WeiForUSD(context.Background(), 0).Int64())
	assert.Equal(t, int64(0), client.WeiForUSD(context.Background(), -1).Int64())
}
