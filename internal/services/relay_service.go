package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"go-backend/internal/config"
	"go-backend/internal/db"
	"go-backend/internal/metrics"
	"go-backend/internal/models"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	// ErrChainUnavailable means the RPC client for the requested chain is
	// missing or unreachable
	ErrChainUnavailable = errors.New("chain RPC unavailable")

	// ErrSubmissionReverted means the node rejected the claim transaction
	// at submission time
	ErrSubmissionReverted = errors.New("claim submission reverted")
)

const rewardClaimABI = `[
	{
		"inputs": [
			{"name": "fid", "type": "uint256"},
			{"name": "recipient", "type": "address"},
			{"name": "day", "type": "uint256"},
			{"name": "amountWei", "type": "uint256"},
			{"name": "deadline", "type": "uint256"},
			{"name": "signature", "type": "bytes"}
		],
		"name": "claimReward",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "account", "type": "address"}],
		"name": "nonces",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// receipt polling bounds; absence of a receipt is not a failure
const (
	receiptPollAttempts = 10
	receiptPollInterval = 3 * time.Second
)

// ClaimStatusNotifier pushes claim transaction status to connected clients
type ClaimStatusNotifier interface {
	PushClaimStatus(userAddress string, payload map[string]interface{})
}

// RelayService submits signed vouchers on the user's behalf through
// per-chain RPC clients
type RelayService struct {
	clients  map[int]*ethclient.Client // chainID -> client
	claimABI abi.ABI
	notifier ClaimStatusNotifier
}

// NewRelayService creates the relay adapter. Clients are attached later
// via InitializeClients so a dead RPC does not block startup wiring.
func NewRelayService() *RelayService {
	parsedABI, err := abi.JSON(strings.NewReader(rewardClaimABI))
	if err != nil {
		panic(fmt.Sprintf("invalid reward claim ABI: %v", err))
	}
	return &RelayService{
		clients:  make(map[int]*ethclient.Client),
		claimABI: parsedABI,
	}
}

// SetNotifier attaches the WebSocket push service
func (r *RelayService) SetNotifier(notifier ClaimStatusNotifier) {
	r.notifier = notifier
}

// InitializeClients dials every enabled network, trying endpoints in
// order until one answers a NetworkID probe
func (r *RelayService) InitializeClients() error {
	if config.AppConfig == nil || config.AppConfig.Blockchain.Networks == nil {
		return fmt.Errorf("blockchain networks not configured")
	}

	for networkName, networkConfig := range config.AppConfig.Blockchain.Networks {
		if !networkConfig.Enabled {
			log.Printf("⏭️  Skipping disabled network: %s", networkName)
			continue
		}

		var client *ethclient.Client
		var lastErr error
		for _, rpcEndpoint := range networkConfig.RPCEndpoints {
			candidate, err := ethclient.Dial(rpcEndpoint)
			if err != nil {
				lastErr = err
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			networkID, err := candidate.NetworkID(ctx)
			cancel()
			if err != nil {
				lastErr = err
				candidate.Close()
				continue
			}

			log.Printf("✅ Connected to %s (network ID %s) via %s", networkName, networkID.String(), rpcEndpoint)
			client = candidate
			break
		}

		if client == nil {
			return fmt.Errorf("failed to connect to %s network: %w", networkName, lastErr)
		}
		r.clients[networkConfig.ChainID] = client
	}

	log.Printf("🎉 RPC clients initialized: %d chain(s)", len(r.clients))
	return nil
}

// GetClient returns the RPC client for a chain ID
func (r *RelayService) GetClient(chainID int) (*ethclient.Client, bool) {
	client, exists := r.clients[chainID]
	return client, exists
}

// getRewardContractAddress resolves the claim contract for a network.
// A database override (global config key "reward_contract") takes
// precedence over the static network config.
func getRewardContractAddress(networkConfig *config.NetworkConfig) (string, error) {
	contract := networkConfig.RewardContract

	var globalConfig models.GlobalConfig
	if err := db.DB.Where("config_key = ?", "reward_contract").First(&globalConfig).Error; err == nil && globalConfig.ConfigValue != "" {
		if isZeroAddress(globalConfig.ConfigValue) {
			return "", fmt.Errorf("reward contract address in database is zero or empty")
		}
		return globalConfig.ConfigValue, nil
	}

	if contract == "" && config.AppConfig != nil {
		contract = config.AppConfig.Blockchain.RewardContract
	}
	if contract == "" || isZeroAddress(contract) {
		return "", fmt.Errorf("reward contract address is not configured for network %s", networkConfig.Name)
	}
	return contract, nil
}

func isZeroAddress(addr string) bool {
	trimmed := strings.TrimSpace(addr)
	return trimmed == "" || strings.EqualFold(trimmed, "0x0000000000000000000000000000000000000000")
}

// SubmitClaim relays a signed voucher as a claimReward transaction and
// returns the transaction hash. The hash is returned even when no receipt
// shows up within the polling window.
func (r *RelayService) SubmitClaim(ctx context.Context, chain string, voucher *Voucher, signature []byte) (string, error) {
	networkConfig, err := config.GetNetworkConfig(chain)
	if err != nil {
		return "", fmt.Errorf("failed to get network config: %w", err)
	}

	client, exists := r.clients[networkConfig.ChainID]
	if !exists {
		metrics.RelaySubmissions.WithLabelValues(chain, "unavailable").Inc()
		return "", fmt.Errorf("%w: no client for chain %d", ErrChainUnavailable, networkConfig.ChainID)
	}

	if networkConfig.RelayerKey == "" {
		return "", fmt.Errorf("relayer key is not configured for network %s", chain)
	}
	relayerKey, err := crypto.HexToECDSA(strings.TrimPrefix(networkConfig.RelayerKey, "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid relayer key for network %s: %w", chain, err)
	}
	relayerAddress := crypto.PubkeyToAddress(relayerKey.PublicKey)

	contractAddr, err := getRewardContractAddress(networkConfig)
	if err != nil {
		return "", err
	}
	contractAddress := common.HexToAddress(contractAddr)

	nonce, err := client.PendingNonceAt(ctx, relayerAddress)
	if err != nil {
		metrics.RelaySubmissions.WithLabelValues(chain, "unavailable").Inc()
		return "", fmt.Errorf("%w: failed to get nonce: %v", ErrChainUnavailable, err)
	}

	gasPrice, err := r.resolveGasPrice(ctx, client, networkConfig)
	if err != nil {
		metrics.RelaySubmissions.WithLabelValues(chain, "unavailable").Inc()
		return "", fmt.Errorf("%w: failed to get gas price: %v", ErrChainUnavailable, err)
	}

	gasLimit := networkConfig.GasLimit
	if gasLimit == 0 {
		gasLimit = 300000
	}

	callData, err := r.claimABI.Pack("claimReward",
		voucher.FID,
		voucher.Recipient,
		voucher.Day,
		voucher.AmountWei,
		voucher.Deadline,
		signature,
	)
	if err != nil {
		return "", fmt.Errorf("failed to pack claim call: %w", err)
	}

	legacyTx := &types.LegacyTx{
		Nonce:    nonce,
		To:       &contractAddress,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     callData,
	}
	tx := types.NewTx(legacyTx)

	chainID := big.NewInt(int64(networkConfig.ChainID))
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), relayerKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		if strings.Contains(err.Error(), "execution reverted") || strings.Contains(err.Error(), "revert") {
			metrics.RelaySubmissions.WithLabelValues(chain, "reverted").Inc()
			return "", fmt.Errorf("%w: %v", ErrSubmissionReverted, err)
		}
		metrics.RelaySubmissions.WithLabelValues(chain, "unavailable").Inc()
		return "", fmt.Errorf("%w: %v", ErrChainUnavailable, err)
	}

	txHash := signedTx.Hash()
	recipient := strings.ToLower(voucher.Recipient.Hex())
	log.Printf("🚀 Claim transaction submitted: chain=%s tx=%s", chain, txHash.Hex())
	metrics.RelaySubmissions.WithLabelValues(chain, "submitted").Inc()
	r.pushStatus(recipient, chain, txHash.Hex(), "submitted")

	go r.trackRelayerBalance(chain, client, relayerAddress)
	go r.pollReceipt(chain, client, txHash, recipient)

	return txHash.Hex(), nil
}

func (r *RelayService) resolveGasPrice(ctx context.Context, client *ethclient.Client, networkConfig *config.NetworkConfig) (*big.Int, error) {
	if networkConfig.GasPrice != "" && networkConfig.GasPrice != "auto" {
		gasPrice, ok := new(big.Int).SetString(networkConfig.GasPrice, 10)
		if !ok {
			return nil, fmt.Errorf("invalid configured gas price: %s", networkConfig.GasPrice)
		}
		return gasPrice, nil
	}

	suggested, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	// 20% headroom over the suggestion
	gasPrice := new(big.Int).Mul(suggested, big.NewInt(120))
	return gasPrice.Div(gasPrice, big.NewInt(100)), nil
}

// pollReceipt waits for the transaction receipt with bounded fixed-backoff
// polling. Giving up is not an error; the transaction may confirm later.
func (r *RelayService) pollReceipt(chain string, client *ethclient.Client, txHash common.Hash, recipient string) {
	for attempt := 1; attempt <= receiptPollAttempts; attempt++ {
		time.Sleep(receiptPollInterval)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		receipt, err := client.TransactionReceipt(ctx, txHash)
		cancel()

		if err != nil || receipt == nil {
			continue
		}

		if receipt.Status == types.ReceiptStatusSuccessful {
			log.Printf("✅ Claim transaction confirmed: tx=%s block=%d", txHash.Hex(), receipt.BlockNumber.Uint64())
			metrics.RelaySubmissions.WithLabelValues(chain, "confirmed").Inc()
			r.pushStatus(recipient, chain, txHash.Hex(), "confirmed")
		} else {
			log.Printf("❌ Claim transaction reverted on-chain: tx=%s", txHash.Hex())
			metrics.RelaySubmissions.WithLabelValues(chain, "reverted").Inc()
			r.pushStatus(recipient, chain, txHash.Hex(), "reverted")
		}
		return
	}

	log.Printf("⚠️  No receipt for tx %s after %d attempts, transaction may still confirm", txHash.Hex(), receiptPollAttempts)
}

func (r *RelayService) pushStatus(userAddress, chain, txHash, status string) {
	if r.notifier == nil {
		return
	}
	r.notifier.PushClaimStatus(userAddress, map[string]interface{}{
		"type":    "claim_status",
		"chain":   chain,
		"tx_hash": txHash,
		"status":  status,
	})
}

func (r *RelayService) trackRelayerBalance(chain string, client *ethclient.Client, relayerAddress common.Address) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	balance, err := client.BalanceAt(ctx, relayerAddress, nil)
	if err != nil {
		return
	}
	value, _ := new(big.Float).SetInt(balance).Float64()
	metrics.RelayerBalance.WithLabelValues(chain, strings.ToLower(relayerAddress.Hex())).Set(value)
}

// GetClaimNonce reads the verifier's per-account claim nonce. Callers
// treat this as advisory and fall back to zero on failure.
func (r *RelayService) GetClaimNonce(ctx context.Context, chain string, userAddress string) (*big.Int, error) {
	networkConfig, err := config.GetNetworkConfig(chain)
	if err != nil {
		return nil, fmt.Errorf("failed to get network config: %w", err)
	}

	client, exists := r.clients[networkConfig.ChainID]
	if !exists {
		return nil, fmt.Errorf("%w: no client for chain %d", ErrChainUnavailable, networkConfig.ChainID)
	}

	contractAddr, err := getRewardContractAddress(networkConfig)
	if err != nil {
		return nil, err
	}
	contractAddress := common.HexToAddress(contractAddr)

	callData, err := r.claimABI.Pack("nonces", common.HexToAddress(userAddress))
	if err != nil {
		return nil, fmt.Errorf("failed to pack nonces call: %w", err)
	}

	result, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &contractAddress,
		Data: callData,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce read failed: %v", ErrChainUnavailable, err)
	}

	values, err := r.claimABI.Unpack("nonces", result)
	if err != nil || len(values) == 0 {
		return nil, fmt.Errorf("failed to decode nonce: %v", err)
	}

	nonce, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected nonce type %T", values[0])
	}
	return nonce, nil
}

// Close releases all RPC clients
func (r *RelayService) Close() {
	for _, client := range r.clients {
		client.Close()
	}
}
