// Package config loads the coordinator's configuration from environment
// variables (with optional config-file support), the same viper-based
// approach the relayer this was adapted from uses.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the coordinator process.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Chains   ChainsConfig   `mapstructure:"chains"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	DevMode  bool           `mapstructure:"dev_mode"`
}

// APIConfig holds the REST/WS listener configuration.
type APIConfig struct {
	Port         int           `mapstructure:"port"`
	WSPort       int           `mapstructure:"ws_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ChainsConfig holds the two chain adapters' RPC endpoints and contract
// addresses.
type ChainsConfig struct {
	EVM    EVMChainConfig    `mapstructure:"evm"`
	ChainB ChainBChainConfig `mapstructure:"chain_b"`
}

// EVMChainConfig is the EVM adapter's configuration.
type EVMChainConfig struct {
	RPCURL         string `mapstructure:"rpc_url"`
	FactoryAddress string `mapstructure:"factory_address"`
}

// ChainBChainConfig is the chain-B adapter's configuration.
type ChainBChainConfig struct {
	RPCURL string `mapstructure:"rpc_url"`
}

// UpstreamConfig holds the 1inch Fusion+ quote service's endpoint and
// credentials.
type UpstreamConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig loads configuration from an optional file plus environment
// variables, environment taking precedence.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{}

	setDefaults()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("$HOME/.swap-coordinator")
	}

	viper.AutomaticEnv()
	bindEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.ws_port", 8081)
	viper.SetDefault("api.read_timeout", "10s")
	viper.SetDefault("api.write_timeout", "30s")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("dev_mode", false)
}

// bindEnv maps the spec's flat env-var names (§5: API_PORT, WS_PORT,
// 1INCH_URL, 1INCH_API_KEY, EVM_RPC_URL, CHAIN_B_RPC_URL, DEV_MODE) onto the
// nested config keys viper.Unmarshal expects.
func bindEnv() {
	_ = viper.BindEnv("api.port", "API_PORT")
	_ = viper.BindEnv("api.ws_port", "WS_PORT")
	_ = viper.BindEnv("upstream.url", "1INCH_URL")
	_ = viper.BindEnv("upstream.api_key", "1INCH_API_KEY")
	_ = viper.BindEnv("chains.evm.rpc_url", "EVM_RPC_URL")
	_ = viper.BindEnv("chains.evm.factory_address", "EVM_FACTORY_ADDRESS")
	_ = viper.BindEnv("chains.chain_b.rpc_url", "CHAIN_B_RPC_URL")
	_ = viper.BindEnv("dev_mode", "DEV_MODE")
	_ = viper.BindEnv("logging.level", "LOG_LEVEL")
}

func validateConfig(cfg *Config) error {
	if cfg.DevMode {
		return nil
	}
	if cfg.Chains.EVM.RPCURL == "" {
		return fmt.Errorf("EVM_RPC_URL is required outside dev mode")
	}
	if cfg.Chains.ChainB.RPCURL == "" {
		return fmt.Errorf("CHAIN_B_RPC_URL is required outside dev mode")
	}
	if cfg.Upstream.URL == "" {
		return fmt.Errorf("1INCH_URL is required outside dev mode")
	}
	return nil
}
