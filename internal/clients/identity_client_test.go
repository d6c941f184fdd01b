package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "0x742d35Cc6634C0532925a3b0F26750C66d78EB66"

func TestResolveFIDSuccess(t *testing.T) {
	var queriedAddress string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queriedAddress = r.URL.Query().Get("address")
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		fmt.Fprint(w, `{"fid":242597}`)
	}))
	defer server.Close()

	client := NewIdentityClient(server.URL, "test-key", 5*time.Second, 1_000_000_000)

	fid, err := client.ResolveFID(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, uint64(242597), fid)

	// the directory always sees the lowercase form
	assert.Equal(t, "0x742d35cc6634c0532925a3b0f26750c66d78eb66", queriedAddress)
}

func TestResolveFIDCaseInsensitive(t *testing.T) {
	var addresses []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addresses = append(addresses, r.URL.Query().Get("address"))
		fmt.Fprint(w, `{"fid":7}`)
	}))
	defer server.Close()

	client := NewIdentityClient(server.URL, "", 5*time.Second, 0)

	_, err := client.ResolveFID(context.Background(), testWallet)
	require.NoError(t, err)
	_, err = client.ResolveFID(context.Background(), "0X742D35CC6634C0532925A3B0F26750C66D78EB66")
	require.NoError(t, err)

	require.Len(t, addresses, 2)
	assert.Equal(t, addresses[0], addresses[1])
}

func TestResolveFIDNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewIdentityClient(server.URL, "", 5*time.Second, 0)

	_, err := client.ResolveFID(context.Background(), testWallet)
	assert.ErrorIs(t, err, ErrIdentityNotFound)
}

func TestResolveFIDZeroIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"fid":0}`)
	}))
	defer server.Close()

	client := NewIdentityClient(server.URL, "", 5*time.Second, 0)

	_, err := client.ResolveFID(context.Background(), testWallet)
	assert.ErrorIs(t, err, ErrIdentityNotFound)
}

func TestResolveFIDAboveCeilingIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"fid":2000000000}`)
	}))
	defer server.Close()

	client := NewIdentityClient(server.URL, "", 5*time.Second, 1_000_000_000)

	_, err := client.ResolveFID(context.Background(), testWallet)
	assert.ErrorIs(t, err, ErrIdentityNotFound)
}

func TestResolveFIDUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewIdentityClient(server.URL, "", 5*time.Second, 0)

	_, err := client.ResolveFID(context.Background(), testWallet)
	assert.ErrorIs(t, err, ErrIdentityUpstream)
	assert.NotErrorIs(t, err, ErrIdentityNotFound)
}

func TestResolveFIDInvalidAddress(t *testing.T) {
	client := NewIdentityClient("http://127.0.0.1:0", "", time.Second, 0)

	_, err := client.ResolveFID(context.Background(), "0x1234")
	assert.ErrorIs(t, err, ErrIdentityNotFound)
}
