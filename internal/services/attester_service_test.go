package services

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// throwaway key, address 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266
	testSigningKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	testChainID  = int64(8453)
	testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	testToken    = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	testSpender  = "0x1111111254EEB25477B68fb85Ed929f73A960582"
)

func newTestAttester(t *testing.T) *AttesterService {
	t.Helper()
	attester, err := NewAttesterService(testSigningKey, 900*time.Second, 900*time.Second)
	require.NoError(t, err)
	return attester
}

func TestNewAttesterServiceFailsClosed(t *testing.T) {
	_, err := NewAttesterService("", 900*time.Second, 900*time.Second)
	assert.ErrorIs(t, err, ErrAttesterNotConfigured)

	_, err = NewAttesterService("not-a-key", 900*time.Second, 900*time.Second)
	assert.ErrorIs(t, err, ErrAttesterNotConfigured)

	_, err = NewAttesterService("abcd", 900*time.Second, 900*time.Second)
	assert.ErrorIs(t, err, ErrAttesterNotConfigured)
}

func TestNewAttesterServiceAcceptsPrefixedKey(t *testing.T) {
	attester, err := NewAttesterService("0x"+testSigningKey, 900*time.Second, 900*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", attester.Address().Hex())
}

func TestSignAttestationShape(t *testing.T) {
	attester := newTestAttester(t)

	before := time.Now().Unix()
	attestation, sig, err := attester.SignAttestation(testChainID, testContract, 242597, testToken, testSpender)
	require.NoError(t, err)

	assert.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	assert.Equal(t, uint64(242597), attestation.FID.Uint64())
	assert.Equal(t, testToken, attestation.Token.Hex())
	assert.Equal(t, testSpender, attestation.Spender.Hex())

	// deadline strictly in the future and within the configured window
	assert.Greater(t, attestation.Deadline.Int64(), before)
	assert.LessOrEqual(t, attestation.Deadline.Int64(), time.Now().Unix()+900)
}

func TestSignAttestationNonceIsFreshPerCall(t *testing.T) {
	attester := newTestAttester(t)

	first, _, err := attester.SignAttestation(testChainID, testContract, 1, testToken, testSpender)
	require.NoError(t, err)
	second, _, err := attester.SignAttestation(testChainID, testContract, 1, testToken, testSpender)
	require.NoError(t, err)

	// randomized: nonce differs; stable: identity fields do not
	assert.NotEqual(t, first.Nonce.String(), second.Nonce.String())
	assert.Equal(t, first.FID.String(), second.FID.String())
	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, first.Spender, second.Spender)
}

func TestSignAttestationWindowIsCapped(t *testing.T) {
	attester, err := NewAttesterService(testSigningKey, 4000*time.Second, 900*time.Second)
	require.NoError(t, err)

	attestation, _, err := attester.SignAttestation(testChainID, testContract, 1, testToken, testSpender)
	require.NoError(t, err)

	assert.LessOrEqual(t, attestation.Deadline.Int64(), time.Now().Unix()+1800)
}

func TestSignAttestationSignerRecovers(t *testing.T) {
	attester := newTestAttester(t)

	attestation, sig, err := attester.SignAttestation(testChainID, testContract, 242597, testToken, testSpender)
	require.NoError(t, err)

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Attestation": {
				{Name: "fid", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
				{Name: "token", Type: "address"},
				{Name: "spender", Type: "address"},
			},
		},
		PrimaryType: "Attestation",
		Domain: apitypes.TypedDataDomain{
			Name:              "RevocationAttester",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(testChainID),
			VerifyingContract: testContract,
		},
		Message: apitypes.TypedDataMessage{
			"fid":      attestation.FID,
			"nonce":    attestation.Nonce,
			"deadline": attestation.Deadline,
			"token":    attestation.Token.Hex(),
			"spender":  attestation.Spender.Hex(),
		},
	}

	domainHash, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	require.NoError(t, err)
	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	require.NoError(t, err)
	digest := crypto.Keccak256([]byte{0x19, 0x01}, domainHash, messageHash)

	recoverSig := make([]byte, 65)
	copy(recoverSig, sig)
	recoverSig[64] -= 27

	pubKey, err := crypto.SigToPub(digest, recoverSig)
	require.NoError(t, err)
	assert.Equal(t, attester.Address(), crypto.PubkeyToAddress(*pubKey))
}

func TestSignVoucherDayFromServerClock(t *testing.T) {
	attester := newTestAttester(t)

	fixed := time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC)
	attester.now = func() time.Time { return fixed }

	amount := big.NewInt(100_000_000_000_000) // 0.0001 ether
	voucher, sig, err := attester.SignVoucher(testChainID, testContract, 242597, testToken, amount)
	require.NoError(t, err)

	assert.Len(t, sig, 65)
	assert.Equal(t, fixed.Unix()/86400, voucher.Day.Int64())
	assert.Equal(t, fixed.Unix()+900, voucher.Deadline.Int64())
	assert.Equal(t, amount.String(), voucher.AmountWei.String())
	assert.Equal(t, uint64(242597), voucher.FID.Uint64())
}

func TestSignVoucherNeverBackdates(t *testing.T) {
	attester := newTestAttester(t)

	now := time.Now()
	voucher, _, err := attester.SignVoucher(testChainID, testContract, 1, testToken, big.NewInt(1))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, voucher.Day.Int64(), now.UTC().Unix()/86400)
}

func TestSignVoucherRejectsNonPositiveAmount(t *testing.T) {
	attester := newTestAttester(t)

	_, _, err := attester.SignVoucher(testChainID, testContract, 1, testToken, big.NewInt(0))
	assert.Error(t, err)

	_, _, err = attester.SignVoucher(testChainID, testContract, 1, testToken, nil)
	assert.Error(t, err)
}

func TestNilAttesterFailsClosed(t *testing.T) {
	var attester *AttesterService

	_, _, err := attester.SignAttestation(testChainID, testContract, 1, testToken, testSpender)
	assert.ErrorIs(t, err, ErrAttesterNotConfigured)

	_, _, err = attester.SignVoucher(testChainID, testContract, 1, testToken, big.NewInt(1))
	assert.ErrorIs(t, err, ErrAttesterNotConfigured)
}
