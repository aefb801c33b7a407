package config

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// MaxDistributeWallets caps how many sub-wallets a single distribution may
// create, no matter what the environment asks for.
const MaxDistributeWallets = 20

// Config contains all configuration parameters for the bot. Values are read
// from the environment; a .env file in the working directory is honored.
type Config struct {
	PrivateKey           string `envconfig:"PRIVATE_KEY" required:"true"`
	RPCEndpoint          string `envconfig:"RPC_ENDPOINT" required:"true"`
	RPCWebsocketEndpoint string `envconfig:"RPC_WEBSOCKET_ENDPOINT"`

	TokenMint string `envconfig:"TOKEN_MINT" required:"true"`
	TokenName string `envconfig:"TOKEN_NAME" default:"token"`
	PoolID    string `envconfig:"POOL_ID"`

	// Routing strategy, one of JUPITER, RAYDIUM, METEORA, METEORA_DYN.
	// Selected once at startup; never changes for the process lifetime.
	SwapRouting string `envconfig:"SWAP_ROUTING" default:"JUPITER"`

	DistributeWalletNum int `envconfig:"DISTRIBUTE_WALLET_NUM" default:"8"`

	BuyIntervalMin  int `envconfig:"BUY_INTERVAL_MIN" default:"20"`
	BuyIntervalMax  int `envconfig:"BUY_INTERVAL_MAX" default:"60"`
	SellIntervalMin int `envconfig:"SELL_INTERVAL_MIN" default:"20"`
	SellIntervalMax int `envconfig:"SELL_INTERVAL_MAX" default:"60"`

	BuyLowerPercent float64 `envconfig:"BUY_LOWER_PERCENT" default:"30"`
	BuyUpperPercent float64 `envconfig:"BUY_UPPER_PERCENT" default:"70"`

	WalletFile            string `envconfig:"WALLET_FILE" default:"data/wallets.json"`
	WalletStorePassphrase string `envconfig:"WALLET_STORE_PASSPHRASE"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `envconfig:"TELEGRAM_CHAT_ID"`
	WishWord         string `envconfig:"WISH_WORD" default:"Volume boosted for"`

	SQLitePath string `envconfig:"SQLITE_PATH"`

	// Backend base URLs are overridable so tests can point them at a local
	// server; production values are the public endpoints.
	JupiterBaseURL    string `envconfig:"JUPITER_BASE_URL" default:"https://api.jup.ag/swap/v1"`
	RaydiumBaseURL    string `envconfig:"RAYDIUM_BASE_URL" default:"https://transaction-v1.raydium.io"`
	MeteoraDLMMURL    string `envconfig:"METEORA_DLMM_URL" default:"https://dlmm-api.meteora.ag"`
	MeteoraDynammURL  string `envconfig:"METEORA_DYNAMM_URL" default:"https://amm-v2.meteora.ag"`
	SwapSlippageBps   int    `envconfig:"SWAP_SLIPPAGE_BPS" default:"100"`
}

// Load reads configuration from the environment. A .env file, if present, is
// loaded first without overriding variables already set in the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks numeric bounds and the routing selector.
func (c *Config) Validate() error {
	if c.DistributeWalletNum < 1 {
		return fmt.Errorf("DISTRIBUTE_WALLET_NUM must be at least 1")
	}
	if c.DistributeWalletNum > MaxDistributeWallets {
		c.DistributeWalletNum = MaxDistributeWallets
	}
	if c.BuyIntervalMin < 0 || c.BuyIntervalMax < c.BuyIntervalMin {
		return fmt.Errorf("buy interval bounds invalid: min=%d max=%d", c.BuyIntervalMin, c.BuyIntervalMax)
	}
	if c.SellIntervalMin < 0 || c.SellIntervalMax < c.SellIntervalMin {
		return fmt.Errorf("sell interval bounds invalid: min=%d max=%d", c.SellIntervalMin, c.SellIntervalMax)
	}
	if c.BuyLowerPercent <= 0 || c.BuyUpperPercent >= 100 || c.BuyUpperPercent < c.BuyLowerPercent {
		return fmt.Errorf("buy percent bounds invalid: lower=%.2f upper=%.2f", c.BuyLowerPercent, c.BuyUpperPercent)
	}
	switch c.SwapRouting {
	case "JUPITER", "RAYDIUM", "METEORA", "METEORA_DYN":
	default:
		return fmt.Errorf("unknown SWAP_ROUTING %q", c.SwapRouting)
	}
	if (c.SwapRouting == "METEORA_DYN" || c.SwapRouting == "RAYDIUM") && c.PoolID == "" {
		return fmt.Errorf("POOL_ID is required for %s routing", c.SwapRouting)
	}
	return nil
}

// MainWallet parses the configured main wallet credential.
func (c *Config) MainWallet() (solana.PrivateKey, error) {
	key, err := solana.PrivateKeyFromBase58(c.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid PRIVATE_KEY: %w", err)
	}
	return key, nil
}

// Mint parses the configured target token mint.
func (c *Config) Mint() (solana.PublicKey, error) {
	mint, err := solana.PublicKeyFromBase58(c.TokenMint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid TOKEN_MINT: %w", err)
	}
	return mint, nil
}
