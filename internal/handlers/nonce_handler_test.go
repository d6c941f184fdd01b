package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNonceReader struct {
	nonce *big.Int
	err   error
}

func (f *fakeNonceReader) GetClaimNonce(ctx context.Context, chain string, userAddress string) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.nonce, nil
}

func nonceEngine(h *NonceHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/get-nonce", h.GetNonce)
	return r
}

func TestGetNonceSuccess(t *testing.T) {
	handler := NewNonceHandler(&fakeNonceReader{nonce: big.NewInt(7)})

	w := postJSON(nonceEngine(handler), "/api/get-nonce", gin.H{
		"chain":       "base",
		"userAddress": reqWallet,
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK    bool   `json:"ok"`
		Nonce string `json:"nonce"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "7", resp.Nonce)
}

func TestGetNonceDegradesToZero(t *testing.T) {
	handler := NewNonceHandler(&fakeNonceReader{err: errors.New("rpc timeout")})

	w := postJSON(nonceEngine(handler), "/api/get-nonce", gin.H{
		"chain":       "base",
		"userAddress": reqWallet,
	})

	// read failure is advisory: still 200, nonce defaults to "0"
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK    bool   `json:"ok"`
		Nonce string `json:"nonce"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "0", resp.Nonce)
	assert.Contains(t, resp.Error, "rpc timeout")
}

func TestGetNonceValidation(t *testing.T) {
	handler := NewNonceHandler(&fakeNonceReader{nonce: big.NewInt(0)})
	engine := nonceEngine(handler)

	w := postJSON(engine, "/api/get-nonce", gin.H{"chain": "base"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(engine, "/api/get-nonce", gin.H{"chain": "base", "userAddress": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
