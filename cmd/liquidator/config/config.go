package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"

	"github.com/defistate/liquidator-go/pkg/chains"
	"github.com/defistate/liquidator-go/protocols/poolregistry"
	"github.com/defistate/liquidator-go/protocols/token"
	"github.com/defistate/liquidator-go/route"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

// SwapperKindUniswapV2 is the only adapter kind the binary can build.
const SwapperKindUniswapV2 = "uniswapv2"

// ResolverConfig tunes route search. Limits missing from the file keep
// their defaults.
type ResolverConfig struct {
	HubTraversal string       `yaml:"hub_traversal"`
	Limits       route.Limits `yaml:"limits"`
}

// PoolConfig seeds one constant-product pool. Reserves are raw base units.
// A pool without a fee can be quoted but not swapped through.
type PoolConfig struct {
	Address  common.Address `yaml:"address"`
	Token0   common.Address `yaml:"token0"`
	Token1   common.Address `yaml:"token1"`
	Fee      *uint64        `yaml:"fee"`
	Reserve0 string         `yaml:"reserve0"`
	Reserve1 string         `yaml:"reserve1"`
}

type SwapperConfig struct {
	ID      common.Address `yaml:"id"`
	Kind    string         `yaml:"kind"`
	Account common.Address `yaml:"account"`
	Pools   []PoolConfig   `yaml:"pools"`
}

// BalanceConfig credits an account at startup.
type BalanceConfig struct {
	Token   common.Address `yaml:"token"`
	Account common.Address `yaml:"account"`
	Amount  string         `yaml:"amount"`
}

type LiquidatorConfig struct {
	ChainID     *big.Int       `yaml:"chain_id"`
	ListenAddr  string         `yaml:"listen_addr"`
	MetricsAddr string         `yaml:"metrics_addr"`
	LogLevel    string         `yaml:"log_level"`
	Owner       common.Address `yaml:"owner"`
	Router      common.Address `yaml:"router"`

	// Operators may edit the pool registry alongside the owner.
	Operators []common.Address `yaml:"operators"`

	Resolver ResolverConfig          `yaml:"resolver"`
	Tokens   []token.TokenView       `yaml:"tokens"`
	Swappers []SwapperConfig         `yaml:"swappers"`
	Balances []BalanceConfig         `yaml:"balances"`
	Primary  []poolregistry.PoolEdge `yaml:"primary"`
	Hub      []poolregistry.PoolEdge `yaml:"hub"`
}

// LoadConfig reads a configuration file from the given path, unmarshals it
// into a LiquidatorConfig struct and validates it.
func LoadConfig(path string) (*LiquidatorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document.
func Parse(data []byte) (*LiquidatorConfig, error) {
	cfg := LiquidatorConfig{Resolver: ResolverConfig{Limits: route.DefaultLimits()}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *LiquidatorConfig) validate() error {
	if c.ChainID == nil {
		return errors.New("config: chain_id is required")
	}
	if !c.ChainID.IsUint64() || !chains.IsSupported(c.ChainID.Uint64()) {
		return fmt.Errorf("config: unsupported chain_id %s", c.ChainID)
	}
	if c.Owner == (common.Address{}) {
		return errors.New("config: owner is required")
	}
	if c.Router == (common.Address{}) {
		return errors.New("config: router is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := route.ParseHubTraversal(c.Resolver.HubTraversal); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Limits().Validate(); err != nil {
		return fmt.Errorf("config: resolver.limits: %w", err)
	}
	for _, t := range c.Tokens {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}

	ids := make(map[common.Address]struct{}, len(c.Swappers))
	for _, s := range c.Swappers {
		if _, dup := ids[s.ID]; dup {
			return fmt.Errorf("config: duplicate swapper id %s", s.ID.Hex())
		}
		ids[s.ID] = struct{}{}
		if s.Kind != SwapperKindUniswapV2 {
			return fmt.Errorf("config: swapper %s: unknown kind %q", s.ID.Hex(), s.Kind)
		}
		if s.Account == (common.Address{}) {
			return fmt.Errorf("config: swapper %s: account is required", s.ID.Hex())
		}
		for _, p := range s.Pools {
			if _, err := ParseAmount(p.Reserve0); err != nil {
				return fmt.Errorf("config: pool %s reserve0: %w", p.Address.Hex(), err)
			}
			if _, err := ParseAmount(p.Reserve1); err != nil {
				return fmt.Errorf("config: pool %s reserve1: %w", p.Address.Hex(), err)
			}
		}
	}
	for _, b := range c.Balances {
		if _, err := ParseAmount(b.Amount); err != nil {
			return fmt.Errorf("config: balance of %s: %w", b.Account.Hex(), err)
		}
	}
	for _, e := range append(append([]poolregistry.PoolEdge{}, c.Primary...), c.Hub...) {
		if _, ok := ids[e.Swapper]; !ok {
			return fmt.Errorf("config: edge %s names unknown swapper %s", e, e.Swapper.Hex())
		}
	}
	return nil
}

// Level maps log_level onto slog; empty means info.
func (c *LiquidatorConfig) Level() (slog.Level, error) {
	var lvl slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return lvl, nil
}

// Limits returns the configured resolver limits, or the defaults when none
// were set.
func (c *LiquidatorConfig) Limits() route.Limits {
	if c.Resolver.Limits == (route.Limits{}) {
		return route.DefaultLimits()
	}
	return c.Resolver.Limits
}

// ParseAmount parses a raw base-unit decimal amount. Empty means zero.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(uint256.Int), nil
	}
	v := new(uint256.Int)
	if err := v.SetFromDecimal(s); err != nil {
		return nil, err
	}
	return v, nil
}
