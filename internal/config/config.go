package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Blockchain BlockchainConfig `yaml:"blockchain"`
	Reward     RewardConfig     `yaml:"reward"`
	Identity   IdentityConfig   `yaml:"identity"`
	Captcha    CaptchaConfig    `yaml:"captcha"`
	PriceFeed  PriceFeedConfig  `yaml:"priceFeed"`
	NATS       NATSConfig       `yaml:"nats"`
	CORS       CORSConfig       `yaml:"cors"`
	Admin      AdminConfig      `yaml:"admin"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// BlockchainConfig blockchain configuration
type BlockchainConfig struct {
	// Global reward contract address (same for all chains); per-network
	// config can still override it
	RewardContract string `yaml:"rewardContract"`

	Networks map[string]NetworkConfig `yaml:"networks"`
}

// NetworkConfig per-network configuration
type NetworkConfig struct {
	ChainID          int      `yaml:"chainId"`
	Name             string   `yaml:"name"`
	RPCEndpoints     []string `yaml:"rpcEndpoints"`
	RewardContract   string   `yaml:"rewardContract"`   // on-chain claim verifier
	AttesterContract string   `yaml:"attesterContract"` // attestation verifier
	RelayerKey       string   `yaml:"relayerKey"`       // backend submit key (hex, no 0x)
	SubmitOnBehalf   bool     `yaml:"submitOnBehalf"`   // backend relays the claim tx
	GasLimit         uint64   `yaml:"gasLimit"`
	GasPrice         string   `yaml:"gasPrice"` // wei, optional override
	Enabled          bool     `yaml:"enabled"`
}

// RewardConfig reward and signing configuration
type RewardConfig struct {
	SigningKey         string  `yaml:"signingKey"`         // attester key (hex, no 0x)
	USDAmount          float64 `yaml:"usdAmount"`          // reward target in USD
	AttestationNetwork string  `yaml:"attestationNetwork"` // network binding the attestation domain
	AttestationWindow  int     `yaml:"attestationWindow"`  // seconds, capped at 1800
	VoucherWindow      int     `yaml:"voucherWindow"`      // seconds
}

// IdentityConfig identity directory (address -> FID) API configuration
type IdentityConfig struct {
	BaseURL string `yaml:"baseUrl"`
	APIKey  string `yaml:"apiKey"`
	Timeout int    `yaml:"timeout"` // seconds
	MaxFID  uint64 `yaml:"maxFid"`  // sanity ceiling, 0 means default
}

// CaptchaConfig CAPTCHA verification configuration
type CaptchaConfig struct {
	VerifyURL string `yaml:"verifyUrl"`
	Secret    string `yaml:"secret"`
	Timeout   int    `yaml:"timeout"` // seconds
}

// PriceFeedConfig price feed API configuration
type PriceFeedConfig struct {
	URL        string  `yaml:"url"`
	CacheTTL   int     `yaml:"cacheTtl"`   // seconds, default 60
	DefaultUSD float64 `yaml:"defaultUsd"` // cold-start fallback rate
	Timeout    int     `yaml:"timeout"`    // seconds
}

// NATSConfig NATS message server configuration
type NATSConfig struct {
	URL             string `yaml:"url"`
	Timeout         int    `yaml:"timeout"`
	EnableJetStream bool   `yaml:"enable_jetstream"`
	SubjectPrefix   string `yaml:"subject_prefix"`
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge"`
}

// AdminConfig admin API access control configuration
type AdminConfig struct {
	AllowedIPs []string `yaml:"allowedIPs"` // IPs or CIDR ranges
}

var AppConfig *Config

// LoadConfig loads the configuration file and applies env overrides
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	overrideFromEnv(&config)
	applyDefaults(&config)

	AppConfig = &config
	return nil
}

func applyDefaults(config *Config) {
	if config.Reward.AttestationWindow <= 0 {
		config.Reward.AttestationWindow = 900
	}
	if config.Reward.VoucherWindow <= 0 {
		config.Reward.VoucherWindow = 900
	}
	if config.Reward.USDAmount <= 0 {
		config.Reward.USDAmount = 0.25
	}
	if config.PriceFeed.CacheTTL <= 0 {
		config.PriceFeed.CacheTTL = 60
	}
	if config.PriceFeed.Timeout <= 0 {
		config.PriceFeed.Timeout = 10
	}
	if config.Identity.Timeout <= 0 {
		config.Identity.Timeout = 10
	}
	if config.Captcha.Timeout <= 0 {
		config.Captcha.Timeout = 10
	}
	if config.Identity.MaxFID == 0 {
		config.Identity.MaxFID = 1_000_000_000
	}
}

// overrideFromEnv applies environment variable overrides
func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if key := os.Getenv("ATTESTER_PRIVATE_KEY"); key != "" {
		config.Reward.SigningKey = key
	}
	if usd := os.Getenv("REWARD_USD_AMOUNT"); usd != "" {
		if v, err := strconv.ParseFloat(usd, 64); err == nil {
			config.Reward.USDAmount = v
		}
	}

	if apiKey := os.Getenv("IDENTITY_API_KEY"); apiKey != "" {
		config.Identity.APIKey = apiKey
	}
	if baseURL := os.Getenv("IDENTITY_BASE_URL"); baseURL != "" {
		config.Identity.BaseURL = baseURL
	}

	if secret := os.Getenv("CAPTCHA_SECRET"); secret != "" {
		config.Captcha.Secret = secret
	}
	if verifyURL := os.Getenv("CAPTCHA_VERIFY_URL"); verifyURL != "" {
		config.Captcha.VerifyURL = verifyURL
	}

	if priceURL := os.Getenv("PRICE_FEED_URL"); priceURL != "" {
		config.PriceFeed.URL = priceURL
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}

	if rewardContract := os.Getenv("REWARD_CONTRACT"); rewardContract != "" {
		config.Blockchain.RewardContract = rewardContract
	}

	// Per-network overrides, e.g. BASE_PRIVATE_KEY, BASE_RPC_ENDPOINTS.
	// A generic RELAYER_PRIVATE_KEY applies to every network that has no
	// network-specific key.
	for networkName, networkConfig := range config.Blockchain.Networks {
		envPrefix := strings.ToUpper(networkName)

		if relayerKey := os.Getenv(envPrefix + "_PRIVATE_KEY"); relayerKey != "" {
			networkConfig.RelayerKey = relayerKey
		} else if relayerKey := os.Getenv("RELAYER_PRIVATE_KEY"); relayerKey != "" && networkConfig.RelayerKey == "" {
			networkConfig.RelayerKey = relayerKey
		}

		if rpcEndpoints := os.Getenv(envPrefix + "_RPC_ENDPOINTS"); rpcEndpoints != "" {
			networkConfig.RPCEndpoints = strings.Split(rpcEndpoints, ",")
		}

		if rewardContract := os.Getenv(envPrefix + "_REWARD_CONTRACT"); rewardContract != "" {
			networkConfig.RewardContract = rewardContract
		} else if config.Blockchain.RewardContract != "" && networkConfig.RewardContract == "" {
			networkConfig.RewardContract = config.Blockchain.RewardContract
		}

		if attesterContract := os.Getenv(envPrefix + "_ATTESTER_CONTRACT"); attesterContract != "" {
			networkConfig.AttesterContract = attesterContract
		}

		if gasLimit := os.Getenv(envPrefix + "_GAS_LIMIT"); gasLimit != "" {
			if limit, err := strconv.ParseUint(gasLimit, 10, 64); err == nil {
				networkConfig.GasLimit = limit
			}
		}

		config.Blockchain.Networks[networkName] = networkConfig
	}

	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		origins := strings.Split(corsOrigins, ",")
		config.CORS.AllowedOrigins = make([]string, 0, len(origins))
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				config.CORS.AllowedOrigins = append(config.CORS.AllowedOrigins, trimmed)
			}
		}
	}
}

// GetNetworkConfig returns the configuration of an enabled network
func GetNetworkConfig(networkName string) (*NetworkConfig, error) {
	if AppConfig == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	network, exists := AppConfig.Blockchain.Networks[networkName]
	if !exists {
		return nil, fmt.Errorf("network %s not found in config", networkName)
	}

	if !network.Enabled {
		return nil, fmt.Errorf("network %s is disabled", networkName)
	}

	return &network, nil
}

// GetNetworkConfigByChainID returns an enabled network by chain ID
func GetNetworkConfigByChainID(chainID int) (*NetworkConfig, error) {
	if AppConfig == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	for _, network := range AppConfig.Blockchain.Networks {
		if network.ChainID == chainID && network.Enabled {
			return &network, nil
		}
	}

	return nil, fmt.Errorf("network with chainID %d not found or disabled", chainID)
}
