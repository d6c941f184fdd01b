package services

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/sirupsen/logrus"
)

// ErrAttesterNotConfigured is returned for every signing request when the
// service was constructed without a usable key. Claims must be impossible,
// not silently free, when misconfigured.
var ErrAttesterNotConfigured = errors.New("Attester not properly configured")

// maxAttestationWindow caps the configured deadline window
const maxAttestationWindow = 1800 * time.Second

// Attestation is the one-shot claim shape. The on-chain verifier consumes
// the nonce exactly once.
type Attestation struct {
	FID      *big.Int
	Nonce    *big.Int
	Deadline *big.Int
	Token    common.Address
	Spender  common.Address
}

// Voucher is the daily claim shape, honorable once per (fid, day)
type Voucher struct {
	FID       *big.Int
	Recipient common.Address
	Day       *big.Int
	AmountWei *big.Int
	Deadline  *big.Int
}

// AttesterService signs claim authorizations with the server-held key. It
// persists nothing; replay protection lives in the on-chain verifier's
// nonce and day bookkeeping.
type AttesterService struct {
	privateKey        *ecdsa.PrivateKey
	address           common.Address
	attestationWindow time.Duration
	voucherWindow     time.Duration

	now func() time.Time
}

// NewAttesterService parses the signing key and fails fast when it is
// absent or malformed. Windows above the hard cap are clamped.
func NewAttesterService(privateKeyHex string, attestationWindow, voucherWindow time.Duration) (*AttesterService, error) {
	if privateKeyHex == "" {
		return nil, fmt.Errorf("%w: signing key is not set", ErrAttesterNotConfigured)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid signing key: %v", ErrAttesterNotConfigured, err)
	}

	if attestationWindow <= 0 || attestationWindow > maxAttestationWindow {
		attestationWindow = maxAttestationWindow
	}
	if voucherWindow <= 0 || voucherWindow > maxAttestationWindow {
		voucherWindow = maxAttestationWindow
	}

	address := crypto.PubkeyToAddress(key.PublicKey)
	logrus.WithField("attester", address.Hex()).Info("✅ Attester initialized")

	return &AttesterService{
		privateKey:        key,
		address:           address,
		attestationWindow: attestationWindow,
		voucherWindow:     voucherWindow,
		now:               time.Now,
	}, nil
}

// Address returns the attester's signing address
func (s *AttesterService) Address() common.Address {
	return s.address
}

// SignAttestation builds and signs a one-shot attestation for a recorded
// revocation. The nonce is a fresh random 256-bit value per call; deadline
// is derived from the server clock, never from client input.
func (s *AttesterService) SignAttestation(chainID int64, verifyingContract string, fid uint64, token, spender string) (*Attestation, []byte, error) {
	if s == nil || s.privateKey == nil {
		return nil, nil, ErrAttesterNotConfigured
	}

	nonce, err := randomNonce()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	attestation := &Attestation{
		FID:      new(big.Int).SetUint64(fid),
		Nonce:    nonce,
		Deadline: big.NewInt(s.now().Add(s.attestationWindow).Unix()),
		Token:    common.HexToAddress(token),
		Spender:  common.HexToAddress(spender),
	}

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
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: verifyingContract,
		},
		Message: apitypes.TypedDataMessage{
			"fid":      attestation.FID,
			"nonce":    attestation.Nonce,
			"deadline": attestation.Deadline,
			"token":    attestation.Token.Hex(),
			"spender":  attestation.Spender.Hex(),
		},
	}

	sig, err := s.signTypedData(typedData)
	if err != nil {
		return nil, nil, err
	}
	return attestation, sig, nil
}

// SignVoucher builds and signs a daily voucher. day is the UTC day bucket
// at signing time; the client can never choose its own bucket.
func (s *AttesterService) SignVoucher(chainID int64, verifyingContract string, fid uint64, recipient string, amountWei *big.Int) (*Voucher, []byte, error) {
	if s == nil || s.privateKey == nil {
		return nil, nil, ErrAttesterNotConfigured
	}
	if amountWei == nil || amountWei.Sign() <= 0 {
		return nil, nil, fmt.Errorf("invalid voucher amount")
	}

	now := s.now()
	voucher := &Voucher{
		FID:       new(big.Int).SetUint64(fid),
		Recipient: common.HexToAddress(recipient),
		Day:       big.NewInt(now.Unix() / 86400),
		AmountWei: new(big.Int).Set(amountWei),
		Deadline:  big.NewInt(now.Add(s.voucherWindow).Unix()),
	}

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Voucher": {
				{Name: "fid", Type: "uint256"},
				{Name: "recipient", Type: "address"},
				{Name: "day", Type: "uint256"},
				{Name: "amountWei", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "Voucher",
		Domain: apitypes.TypedDataDomain{
			Name:              "RewardClaim",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: verifyingContract,
		},
		Message: apitypes.TypedDataMessage{
			"fid":       voucher.FID,
			"recipient": voucher.Recipient.Hex(),
			"day":       voucher.Day,
			"amountWei": voucher.AmountWei,
			"deadline":  voucher.Deadline,
		},
	}

	sig, err := s.signTypedData(typedData)
	if err != nil {
		return nil, nil, err
	}
	return voucher, sig, nil
}

// signTypedData hashes the typed data per EIP-712 and produces a 65-byte
// (r, s, v) signature with v in {27, 28}
func (s *AttesterService) signTypedData(typedData apitypes.TypedData) ([]byte, error) {
	domainHash, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	digest := crypto.Keccak256(
		[]byte{0x19, 0x01},
		domainHash,
		messageHash,
	)

	sig, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}

	// crypto.Sign yields v in {0, 1}; contracts expect {27, 28}
	sig[64] += 27
	return sig, nil
}

func randomNonce() (*big.Int, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(buf), nil
}
