package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"hivefarm/crypto"

	"github.com/BurntSushi/toml"
)

// Config carries the node-level settings for a farming ledger deployment.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	LogPath       string `toml:"LogPath"`
	NetworkName   string `toml:"NetworkName"`

	// Owner administers pools and the emission rate; FeeSink collects
	// deposit fees. Both are bech32 addresses.
	Owner   string `toml:"Owner"`
	FeeSink string `toml:"FeeSink"`

	RewardSymbol  string `toml:"RewardSymbol"`
	EmissionRate  string `toml:"EmissionRate"`
	MaxSupply     string `toml:"MaxSupply"`
	GenesisHeight uint64 `toml:"GenesisHeight"`

	Referral ReferralConfig `toml:"referral"`
}

// ReferralConfig holds the commission rates, all permille.
type ReferralConfig struct {
	DefaultLevel1      uint64 `toml:"DefaultLevel1"`
	Level2             uint64 `toml:"Level2"`
	Level3             uint64 `toml:"Level3"`
	FlatDepositPermill uint64 `toml:"FlatDepositPermill"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./hivefarm-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "hivefarm-local"
	}
	if strings.TrimSpace(cfg.RewardSymbol) == "" {
		cfg.RewardSymbol = "HIVE"
	}
	if strings.TrimSpace(cfg.EmissionRate) == "" {
		cfg.EmissionRate = "0"
	}
	if strings.TrimSpace(cfg.MaxSupply) == "" {
		cfg.MaxSupply = "0"
	}
}

// Validate checks the amount strings, the addresses and the permille rates.
func (c *Config) Validate() error {
	if _, err := c.EmissionRateAmount(); err != nil {
		return err
	}
	if _, err := c.MaxSupplyAmount(); err != nil {
		return err
	}
	if c.Owner != "" {
		if _, err := crypto.DecodeAddress(c.Owner); err != nil {
			return fmt.Errorf("invalid Owner address: %w", err)
		}
	}
	if c.FeeSink != "" {
		if _, err := crypto.DecodeAddress(c.FeeSink); err != nil {
			return fmt.Errorf("invalid FeeSink address: %w", err)
		}
	}
	for name, rate := range map[string]uint64{
		"DefaultLevel1":      c.Referral.DefaultLevel1,
		"Level2":             c.Referral.Level2,
		"Level3":             c.Referral.Level3,
		"FlatDepositPermill": c.Referral.FlatDepositPermill,
	} {
		if rate > 1000 {
			return fmt.Errorf("referral rate %s exceeds 1000 permille: %d", name, rate)
		}
	}
	return nil
}

// EmissionRateAmount parses the configured per-block emission.
func (c *Config) EmissionRateAmount() (*big.Int, error) {
	return parseAmount("EmissionRate", c.EmissionRate)
}

// MaxSupplyAmount parses the reward supply cap, zero meaning uncapped.
func (c *Config) MaxSupplyAmount() (*big.Int, error) {
	return parseAmount("MaxSupply", c.MaxSupply)
}

// OwnerAddress decodes the configured owner, zero when unset.
func (c *Config) OwnerAddress() (crypto.Address, error) {
	if strings.TrimSpace(c.Owner) == "" {
		return crypto.Address{}, nil
	}
	return crypto.DecodeAddress(c.Owner)
}

// FeeSinkAddress decodes the configured fee sink, zero when unset.
func (c *Config) FeeSinkAddress() (crypto.Address, error) {
	if strings.TrimSpace(c.FeeSink) == "" {
		return crypto.Address{}, nil
	}
	return crypto.DecodeAddress(c.FeeSink)
}

func parseAmount(name, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s amount: %q", name, value)
	}
	return amount, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: ":8080",
		DataDir:       "./hivefarm-data",
		NetworkName:   "hivefarm-local",
		RewardSymbol:  "HIVE",
		EmissionRate:  "0",
		MaxSupply:     "0",
		Referral: ReferralConfig{
			DefaultLevel1:      60,
			Level2:             20,
			Level3:             10,
			FlatDepositPermill: 50,
		},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
