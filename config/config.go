package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	ListenAddr string

	// Upstream services
	FastRPCURL          string
	FastRPCToken        string
	AnalyticsURL        string
	AnalyticsAuthToken  string
	FuulURL             string
	FuulAPIKey          string
	EmailOctopusURL     string
	EmailOctopusAPIKey  string
	EmailOctopusListID  string
	TokenListURL        string
	CoinGeckoURL        string
	CoinGeckoAPIKey     string
	DatabaseURL         string
	SheetsID            string
	ServiceAccountEmail string
	ServiceAccountKey   string

	// Chain access
	EthRPCURL         string
	ChainID           int64
	Permit2Address    string
	SettlementAddress string
	GasPollInterval   time.Duration
	NonceWordLimit    int

	// CLI signing
	PrivateKey      string
	DeadlineMinutes int
	JournalPath     string
}

// envAliases maps config keys to the unprefixed variable names the dApp
// deployment already uses.
var envAliases = map[string]string{
	"rpc_api_token":                "FAST_RPC_API_TOKEN",
	"analytics_db_auth_token":      "ANALYTICS_DB_AUTH_TOKEN",
	"fuul_api_key":                 "FUUL_API_KEY",
	"emailoctopus_api_key":         "EMAILOCTOPUS_API_KEY",
	"emailoctopus_list_id":         "EMAILOCTOPUS_LIST_ID",
	"dapp_db_url":                  "FAST_DAPP_DB_URL",
	"google_sheets_id":             "GOOGLE_SHEETS_ID",
	"google_service_account_email": "GOOGLE_SERVICE_ACCOUNT_EMAIL",
	"google_private_key":           "GOOGLE_PRIVATE_KEY",
	"alchemy_api_key":              "ALCHEMY_API_KEY",
}

// Load reads configuration from environment variables and config file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".fast-swap")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	// Set default values
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("rpc_url", "https://fastrpc.mev-commit.xyz")
	v.SetDefault("analytics_url", "https://analyticsdb.mev-commit.xyz/api/v1/catalogs")
	v.SetDefault("fuul_url", "https://api.fuul.xyz/api/v1")
	v.SetDefault("emailoctopus_url", "https://api.emailoctopus.com")
	v.SetDefault("token_list_url", "https://tokens.uniswap.org")
	v.SetDefault("coingecko_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("chain_id", 1)
	v.SetDefault("permit2_address", "0x000000000022D473030F116dDEE9F6B43aC78BA3")
	v.SetDefault("settlement_address", "0x0000000000000000000000000000000000000000")
	v.SetDefault("gas_poll_interval", 30*time.Second)
	v.SetDefault("nonce_word_limit", 4)
	v.SetDefault("deadline_minutes", 20)

	// Read from environment variables
	v.SetEnvPrefix("FAST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		if err := v.BindEnv(key, "FAST_"+strings.ToUpper(key), alias); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", alias, err)
		}
	}

	// Read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		ListenAddr:          v.GetString("listen_addr"),
		FastRPCURL:          strings.TrimRight(v.GetString("rpc_url"), "/"),
		FastRPCToken:        v.GetString("rpc_api_token"),
		AnalyticsURL:        strings.TrimRight(v.GetString("analytics_url"), "/"),
		AnalyticsAuthToken:  v.GetString("analytics_db_auth_token"),
		FuulURL:             strings.TrimRight(v.GetString("fuul_url"), "/"),
		FuulAPIKey:          v.GetString("fuul_api_key"),
		EmailOctopusURL:     strings.TrimRight(v.GetString("emailoctopus_url"), "/"),
		EmailOctopusAPIKey:  v.GetString("emailoctopus_api_key"),
		EmailOctopusListID:  v.GetString("emailoctopus_list_id"),
		TokenListURL:        v.GetString("token_list_url"),
		CoinGeckoURL:        strings.TrimRight(v.GetString("coingecko_url"), "/"),
		CoinGeckoAPIKey:     v.GetString("coingecko_api_key"),
		DatabaseURL:         v.GetString("dapp_db_url"),
		SheetsID:            v.GetString("google_sheets_id"),
		ServiceAccountEmail: v.GetString("google_service_account_email"),
		ServiceAccountKey:   strings.ReplaceAll(v.GetString("google_private_key"), `\n`, "\n"),
		EthRPCURL:           v.GetString("eth_rpc_url"),
		ChainID:             v.GetInt64("chain_id"),
		Permit2Address:      v.GetString("permit2_address"),
		SettlementAddress:   v.GetString("settlement_address"),
		GasPollInterval:     v.GetDuration("gas_poll_interval"),
		NonceWordLimit:      v.GetInt("nonce_word_limit"),
		PrivateKey:          v.GetString("private_key"),
		DeadlineMinutes:     v.GetInt("deadline_minutes"),
		JournalPath:         v.GetString("journal_path"),
	}

	if cfg.EthRPCURL == "" {
		if key := v.GetString("alchemy_api_key"); key != "" {
			cfg.EthRPCURL = "https://eth-mainnet.g.alchemy.com/v2/" + key
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values whose shape is known up front. Missing upstream
// credentials are not an error here: the routes depending on them report a
// configuration error on use.
func (c *Config) Validate() error {
	if c.EmailOctopusListID != "" {
		if _, err := uuid.Parse(c.EmailOctopusListID); err != nil {
			return fmt.Errorf("EMAILOCTOPUS_LIST_ID must be a UUID: %w", err)
		}
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("chain id must be positive, got %d", c.ChainID)
	}
	if c.GasPollInterval <= 0 {
		return fmt.Errorf("gas poll interval must be positive")
	}
	if c.NonceWordLimit <= 0 {
		return fmt.Errorf("nonce word limit must be positive")
	}
	return nil
}

// SheetsConfigured reports whether the feedback sheet can be written.
func (c *Config) SheetsConfigured() bool {
	return c.SheetsID != "" && c.ServiceAccountEmail != "" && c.ServiceAccountKey != ""
}
