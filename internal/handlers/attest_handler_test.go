package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-backend/internal/clients"
	"go-backend/internal/config"
	"go-backend/internal/events"
	"go-backend/internal/models"
	"go-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	attestSigningKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	reqWallet  = "0x742d35Cc6634C0532925a3b0F26750C66d78EB66"
	reqToken   = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	reqSpender = "0x1111111254EEB25477B68fb85Ed929f73A960582"

	lowWallet  = "0x742d35cc6634c0532925a3b0f26750c66d78eb66"
	lowToken   = "0xdac17f958d2ee523a2206206994597c13d831ec7"
	lowSpender = "0x1111111254eeb25477b68fb85ed929f73a960582"
)

type fakeCaptcha struct {
	err   error
	calls int
}

func (f *fakeCaptcha) Verify(ctx context.Context, token, remoteIP string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if token == "" {
		return clients.ErrCaptchaFailed
	}
	return nil
}

type fakeResolver struct {
	fid   uint64
	err   error
	calls int
}

func (f *fakeResolver) ResolveFID(ctx context.Context, address string) (uint64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.fid, nil
}

type memRevocationRepo struct {
	records []*models.RevocationRecord
}

func (m *memRevocationRepo) Create(ctx context.Context, record *models.RevocationRecord) error {
	m.records = append(m.records, record)
	return nil
}

func (m *memRevocationRepo) FindByTriple(ctx context.Context, wallet, token, spender string) ([]*models.RevocationRecord, error) {
	var matched []*models.RevocationRecord
	for _, r := range m.records {
		if r.Wallet == wallet && r.Token == token && r.Spender == spender {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

func (m *memRevocationRepo) CountByWalletAndFID(ctx context.Context, wallet string, fid uint64) (int64, error) {
	var count int64
	for _, r := range m.records {
		if r.Wallet == wallet && r.FID == fid {
			count++
		}
	}
	return count, nil
}

func setTestConfig(t *testing.T) {
	t.Helper()
	previous := config.AppConfig
	config.AppConfig = &config.Config{
		Reward: config.RewardConfig{
			USDAmount:          0.25,
			AttestationNetwork: "base",
			AttestationWindow:  900,
			VoucherWindow:      900,
		},
		Blockchain: config.BlockchainConfig{
			Networks: map[string]config.NetworkConfig{
				"base": {
					ChainID:          8453,
					Name:             "Base",
					RewardContract:   "0x5FbDB2315678afecb367f032d93F642f64180aa3",
					AttesterContract: "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512",
					Enabled:          true,
				},
			},
		},
	}
	t.Cleanup(func() { config.AppConfig = previous })
}

func newTestAttesterService(t *testing.T) *services.AttesterService {
	t.Helper()
	attester, err := services.NewAttesterService(attestSigningKey, 900*time.Second, 900*time.Second)
	require.NoError(t, err)
	return attester
}

func attestEngine(h *AttestHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"ok": false, "error": "Method not allowed"})
	})
	r.POST("/api/attest", h.Attest)
	return r
}

func postJSON(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAttestSuccess(t *testing.T) {
	setTestConfig(t)

	repo := &memRevocationRepo{records: []*models.RevocationRecord{
		{Wallet: lowWallet, Token: lowToken, Spender: lowSpender, FID: 242597},
	}}
	handler := NewAttestHandler(
		&fakeCaptcha{},
		&fakeResolver{fid: 242597},
		services.NewEligibilityService(repo),
		newTestAttesterService(t),
		nil,
		&events.Publisher{},
	)

	w := postJSON(attestEngine(handler), "/api/attest", gin.H{
		"wallet":       reqWallet,
		"token":        reqToken,
		"spender":      reqSpender,
		"captchaToken": "ok-token",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		OK       bool   `json:"ok"`
		Sig      string `json:"sig"`
		Nonce    string `json:"nonce"`
		Deadline int64  `json:"deadline"`
		FID      uint64 `json:"fid"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.OK)
	assert.Equal(t, uint64(242597), resp.FID)
	assert.Len(t, resp.Sig, 132) // 0x + 65 bytes hex
	assert.NotEmpty(t, resp.Nonce)
	assert.Greater(t, resp.Deadline, time.Now().Unix())
}

func TestAttestFIDMismatch(t *testing.T) {
	setTestConfig(t)

	repo := &memRevocationRepo{records: []*models.RevocationRecord{
		{Wallet: lowWallet, Token: lowToken, Spender: lowSpender, FID: 111111},
	}}
	handler := NewAttestHandler(
		&fakeCaptcha{},
		&fakeResolver{fid: 242597},
		services.NewEligibilityService(repo),
		newTestAttesterService(t),
		nil,
		&events.Publisher{},
	)

	w := postJSON(attestEngine(handler), "/api/attest", gin.H{
		"wallet":       reqWallet,
		"token":        reqToken,
		"spender":      reqSpender,
		"captchaToken": "ok-token",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "FID verification failed")
}

func TestAttestNoRevocationOnFile(t *testing.T) {
	setTestConfig(t)

	handler := NewAttestHandler(
		&fakeCaptcha{},
		&fakeResolver{fid: 242597},
		services.NewEligibilityService(&memRevocationRepo{}),
		newTestAttesterService(t),
		nil,
		&events.Publisher{},
	)

	w := postJSON(attestEngine(handler), "/api/attest", gin.H{
		"wallet":       reqWallet,
		"token":        reqToken,
		"spender":      reqSpender,
		"captchaToken": "ok-token",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No revocation on file")
}

func TestAttestCaptchaIsFirstGate(t *testing.T) {
	setTestConfig(t)

	resolver := &fakeResolver{fid: 242597}
	handler := NewAttestHandler(
		&fakeCaptcha{},
		resolver,
		services.NewEligibilityService(&memRevocationRepo{}),
		newTestAttesterService(t),
		nil,
		&events.Publisher{},
	)

	// no captcha token: rejected before any identity lookup
	w := postJSON(attestEngine(handler), "/api/attest", gin.H{
		"wallet":  reqWallet,
		"token":   reqToken,
		"spender": reqSpender,
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "CAPTCHA")
	assert.Equal(t, 0, resolver.calls)
}

func TestAttestNilAttesterFailsClosed(t *testing.T) {
	setTestConfig(t)

	repo := &memRevocationRepo{records: []*models.RevocationRecord{
		{Wallet: lowWallet, Token: lowToken, Spender: lowSpender, FID: 242597},
	}}
	handler := NewAttestHandler(
		&fakeCaptcha{},
		&fakeResolver{fid: 242597},
		services.NewEligibilityService(repo),
		nil, // signing key failed to load
		nil,
		&events.Publisher{},
	)

	w := postJSON(attestEngine(handler), "/api/attest", gin.H{
		"wallet":       reqWallet,
		"token":        reqToken,
		"spender":      reqSpender,
		"captchaToken": "ok-token",
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Attester not properly configured")
}

func TestAttestIdentityUpstreamIs500(t *testing.T) {
	setTestConfig(t)

	handler := NewAttestHandler(
		&fakeCaptcha{},
		&fakeResolver{err: clients.ErrIdentityUpstream},
		services.NewEligibilityService(&memRevocationRepo{}),
		newTestAttesterService(t),
		nil,
		&events.Publisher{},
	)

	w := postJSON(attestEngine(handler), "/api/attest", gin.H{
		"wallet":       reqWallet,
		"token":        reqToken,
		"spender":      reqSpender,
		"captchaToken": "ok-token",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAttestIdentityNotFoundIs400(t *testing.T) {
	setTestConfig(t)

	handler := NewAttestHandler(
		&fakeCaptcha{},
		&fakeResolver{err: clients.ErrIdentityNotFound},
		services.NewEligibilityService(&memRevocationRepo{}),
		newTestAttesterService(t),
		nil,
		&events.Publisher{},
	)

	w := postJSON(attestEngine(handler), "/api/attest", gin.H{
		"wallet":       reqWallet,
		"token":        reqToken,
		"spender":      reqSpender,
		"captchaToken": "ok-token",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttestValidation(t *testing.T) {
	setTestConfig(t)

	handler := NewAttestHandler(
		&fakeCaptcha{},
		&fakeResolver{fid: 1},
		services.NewEligibilityService(&memRevocationRepo{}),
		newTestAttesterService(t),
		nil,
		&events.Publisher{},
	)
	engine := attestEngine(handler)

	// malformed JSON
	req := httptest.NewRequest(http.MethodPost, "/api/attest", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// missing fields
	w = postJSON(engine, "/api/attest", gin.H{"wallet": reqWallet})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// bad address
	w = postJSON(engine, "/api/attest", gin.H{
		"wallet": "0x1234", "token": reqToken, "spender": reqSpender, "captchaToken": "x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// wrong method
	req = httptest.NewRequest(http.MethodGet, "/api/attest", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
