// config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
)

// Config 主配置结构
type Config struct {
	Network  NetworkConfig
	Vault    VaultConfig
	Database DatabaseConfig
	Server   ServerConfig
}

// NetworkConfig 执行网络配置
type NetworkConfig struct {
	Name string `env:"VAULT_NETWORK_NAME" envDefault:"localhost"`
	// 写入授权哈希的网络标识，跨网络重放依赖它拦截
	ID uint64 `env:"VAULT_NETWORK_ID" envDefault:"31337"`
}

// VaultConfig 部署配置
type VaultConfig struct {
	// 指定签名者地址；为空时默认使用部署者地址
	Signer string `env:"AUTH_SIGNER"`
	// 部署者私钥（hex 或 WIF）；为空时启动时生成临时密钥
	DeployerKey    string `env:"VAULT_DEPLOYER_KEY"`
	DeploymentFile string `env:"VAULT_DEPLOYMENT_FILE" envDefault:"deployment/deployment.json"`
	// devnet 创世时发给部署者的原生币数量（十进制）
	GenesisBalance string `env:"VAULT_GENESIS_BALANCE" envDefault:"10000"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path             string `env:"VAULT_DB_PATH" envDefault:"data/vault"`
	InMemory         bool   `env:"VAULT_DB_IN_MEMORY" envDefault:"false"`
	CacheSize        int    `env:"VAULT_DB_CACHE_SIZE" envDefault:"4096"`
	ValueLogFileSize int64  `env:"VAULT_DB_VLOG_SIZE" envDefault:"67108864"` // 64MB
}

// ServerConfig HTTP/3 服务配置
type ServerConfig struct {
	ListenAddr string `env:"VAULT_LISTEN_ADDR" envDefault:":8443"`
	CertFile   string `env:"VAULT_TLS_CERT" envDefault:"vault.crt"`
	KeyFile    string `env:"VAULT_TLS_KEY" envDefault:"vault.key"`
	LogLevel   string `env:"VAULT_LOG_LEVEL" envDefault:"info"`

	// 每个 IP 每个窗口允许的最大请求次数
	RateLimit  int           `env:"VAULT_RATE_LIMIT" envDefault:"100"`
	RateWindow time.Duration `env:"VAULT_RATE_WINDOW" envDefault:"1s"`

	// 允许通过 API 从 devnet 账户向 vault 转账
	EnableDevDeposit bool `env:"VAULT_DEV_DEPOSIT" envDefault:"true"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			Name: "localhost",
			ID:   31337,
		},
		Vault: VaultConfig{
			DeploymentFile: "deployment/deployment.json",
			GenesisBalance: "10000",
		},
		Database: DatabaseConfig{
			Path:             "data/vault",
			CacheSize:        4096,
			ValueLogFileSize: 64 << 20,
		},
		Server: ServerConfig{
			ListenAddr:       ":8443",
			CertFile:         "vault.crt",
			KeyFile:          "vault.key",
			LogLevel:         "info",
			RateLimit:        100,
			RateWindow:       time.Second,
			EnableDevDeposit: true,
		},
	}
}

// LoadFromEnv 从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return load(env.Options{})
}

// LoadFromMap 从给定的键值加载配置，不读取进程环境
func LoadFromMap(vars map[string]string) (*Config, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Vault.Signer = strings.TrimSpace(cfg.Vault.Signer)
	cfg.Vault.DeployerKey = strings.TrimSpace(cfg.Vault.DeployerKey)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 验证配置合法性
func (c *Config) Validate() error {
	if c.Network.ID == 0 {
		return fmt.Errorf("network id must be positive")
	}
	if strings.TrimSpace(c.Network.Name) == "" {
		return fmt.Errorf("network name is required")
	}
	if c.Vault.Signer != "" && !common.IsHexAddress(c.Vault.Signer) {
		return fmt.Errorf("AUTH_SIGNER %q is not a hex address", c.Vault.Signer)
	}
	if c.Database.CacheSize <= 0 {
		return fmt.Errorf("db cache size must be positive")
	}
	if c.Server.RateLimit <= 0 || c.Server.RateWindow <= 0 {
		return fmt.Errorf("rate limit and window must be positive")
	}
	return nil
}
