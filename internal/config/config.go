// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Redis       RedisConfig
	Protected   ProtectedConfig
	Networks    []NetworkConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // in hours
}

type RedisConfig struct {
	Host        string
	Port        string
	Password    string
	DB          int
	LockTTLSecs int
}

// ProtectedConfig guards the reconciliation trigger endpoints, which are
// called by an operator scheduler rather than end users.
type ProtectedConfig struct {
	APIToken string
}

// NetworkConfig describes one supported chain and the marketplace contract
// deployed on it. Networks are declared with NETWORK_CHAIN_IDS plus a
// NETWORK_<chainID>_* block per chain.
type NetworkConfig struct {
	ChainID             int64
	Name                string
	RPCURL              string
	MarketplaceContract string
	CommissionPercent   int
	NativeTokenSymbol   string
	NativeTokenDecimals int
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "chainmart"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 24), // 24 hours
		},
		Redis: RedisConfig{
			Host:        getEnv("REDIS_HOST", "localhost"),
			Port:        getEnv("REDIS_PORT", "6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			LockTTLSecs: getEnvAsInt("RECONCILE_LOCK_TTL", 300),
		},
		Protected: ProtectedConfig{
			APIToken: getEnv("PROTECTED_API_TOKEN", ""),
		},
	}

	networks, err := loadNetworks()
	if err != nil {
		return nil, err
	}
	config.Networks = networks

	return config, config.Validate()
}

func loadNetworks() ([]NetworkConfig, error) {
	raw := getEnv("NETWORK_CHAIN_IDS", "")
	if raw == "" {
		return nil, nil
	}

	var networks []NetworkConfig
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		chainID, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q in NETWORK_CHAIN_IDS", part)
		}

		prefix := fmt.Sprintf("NETWORK_%d_", chainID)
		network := NetworkConfig{
			ChainID:             chainID,
			Name:                getEnv(prefix+"NAME", ""),
			RPCURL:              getEnv(prefix+"RPC_URL", ""),
			MarketplaceContract: getEnv(prefix+"MARKETPLACE_CONTRACT", ""),
			CommissionPercent:   getEnvAsInt(prefix+"COMMISSION_PERCENT", 0),
			NativeTokenSymbol:   getEnv(prefix+"NATIVE_TOKEN_SYMBOL", ""),
			NativeTokenDecimals: getEnvAsInt(prefix+"NATIVE_TOKEN_DECIMALS", 18),
		}
		if network.Name == "" {
			return nil, fmt.Errorf("%sNAME is required", prefix)
		}
		if network.RPCURL == "" {
			return nil, fmt.Errorf("%sRPC_URL is required", prefix)
		}
		if network.CommissionPercent < 0 || network.CommissionPercent > 100 {
			return nil, fmt.Errorf("%sCOMMISSION_PERCENT must be between 0 and 100", prefix)
		}
		networks = append(networks, network)
	}

	return networks, nil
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Protected.APIToken == "" && c.Environment == "production" {
		return fmt.Errorf("protected API token is required in production")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
