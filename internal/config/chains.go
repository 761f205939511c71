package config

import (
	"fmt"
	"os"

	"github.com/andrew-solarstorm/go-packages/common"
	"github.com/bytedance/sonic"

	"github.com/across-protocol/quote-engine/internal/domain"
)

// ChainClass buckets chains for fill-time tier lookup.
type ChainClass string

const (
	ChainClassHub    ChainClass = "HUB"
	ChainClassRollup ChainClass = "ROLLUP"
	ChainClassOther  ChainClass = "OTHER"
)

// ChainConfig is the static per-chain record: RPC endpoint, block cadence and
// the native gas token. Immutable after Load.
type ChainConfig struct {
	ChainID        uint64           `json:"chainId"`
	Name           string           `json:"name"`
	Ecosystem      domain.Ecosystem `json:"ecosystem"`
	RPCURL         string           `json:"rpcUrl"`
	Class          ChainClass       `json:"class"`
	BlockTimeSec   float64          `json:"blockTimeSec"`
	Confirmations  uint64           `json:"confirmations"`
	NativeSymbol   string           `json:"nativeSymbol"`
	NativeDecimals uint8            `json:"nativeDecimals"`
}

type ChainsConfig struct {
	Chains map[uint64]ChainConfig
}

func (c *ChainsConfig) Key() string {
	return CHAINS_CONFIG_KEY
}

func defaultChains() map[uint64]ChainConfig {
	return map[uint64]ChainConfig{
		domain.ChainIDEthereum: {
			ChainID: domain.ChainIDEthereum, Name: "ethereum", Ecosystem: domain.EcosystemEVM,
			Class: ChainClassHub, BlockTimeSec: 12, Confirmations: 2,
			NativeSymbol: "ETH", NativeDecimals: 18,
		},
		domain.ChainIDOptimism: {
			ChainID: domain.ChainIDOptimism, Name: "optimism", Ecosystem: domain.EcosystemEVM,
			Class: ChainClassRollup, BlockTimeSec: 2, Confirmations: 1,
			NativeSymbol: "ETH", NativeDecimals: 18,
		},
		domain.ChainIDPolygon: {
			ChainID: domain.ChainIDPolygon, Name: "polygon", Ecosystem: domain.EcosystemEVM,
			Class: ChainClassOther, BlockTimeSec: 2, Confirmations: 16,
			NativeSymbol: "POL", NativeDecimals: 18,
		},
		domain.ChainIDBase: {
			ChainID: domain.ChainIDBase, Name: "base", Ecosystem: domain.EcosystemEVM,
			Class: ChainClassRollup, BlockTimeSec: 2, Confirmations: 1,
			NativeSymbol: "ETH", NativeDecimals: 18,
		},
		domain.ChainIDArbitrum: {
			ChainID: domain.ChainIDArbitrum, Name: "arbitrum", Ecosystem: domain.EcosystemEVM,
			Class: ChainClassRollup, BlockTimeSec: 0.25, Confirmations: 1,
			NativeSymbol: "ETH", NativeDecimals: 18,
		},
		domain.ChainIDHyperEVM: {
			ChainID: domain.ChainIDHyperEVM, Name: "hyperevm", Ecosystem: domain.EcosystemEVM,
			Class: ChainClassOther, BlockTimeSec: 1, Confirmations: 1,
			NativeSymbol: "HYPE", NativeDecimals: 18,
		},
		domain.ChainIDHyperCore: {
			ChainID: domain.ChainIDHyperCore, Name: "hypercore", Ecosystem: domain.EcosystemEVM,
			Class: ChainClassOther, BlockTimeSec: 1, Confirmations: 1,
			NativeSymbol: "HYPE", NativeDecimals: 18,
		},
		domain.ChainIDSolana: {
			ChainID: domain.ChainIDSolana, Name: "solana", Ecosystem: domain.EcosystemSVM,
			Class: ChainClassOther, BlockTimeSec: 0.4, Confirmations: 32,
			NativeSymbol: "SOL", NativeDecimals: 9,
		},
	}
}

// Load merges defaults with RPC_URL_<chainId> env vars and an optional
// CHAINS_JSON override. Malformed overrides fail startup instead of degrading
// into empty lookups at call time.
func (c *ChainsConfig) Load() error {
	c.Chains = defaultChains()

	if raw := os.Getenv("CHAINS_JSON"); raw != "" {
		var override []ChainConfig
		if err := sonic.UnmarshalString(raw, &override); err != nil {
			return fmt.Errorf("failed to parse CHAINS_JSON: %w", err)
		}
		for _, cc := range override {
			c.Chains[cc.ChainID] = cc
		}
	}

	for id, cc := range c.Chains {
		if cc.RPCURL == "" {
			cc.RPCURL = common.GetEnvOrDefault(fmt.Sprintf("RPC_URL_%d", id), "")
			c.Chains[id] = cc
		}
	}

	return c.Validate()
}

func (c *ChainsConfig) Validate() error {
	for id, cc := range c.Chains {
		if cc.ChainID != id {
			return fmt.Errorf("chain config key %d does not match chainId %d", id, cc.ChainID)
		}
		if cc.BlockTimeSec <= 0 {
			return fmt.Errorf("chain %d has non-positive block time", id)
		}
		// HyperCore is reached through the HyperEVM precompiles and the
		// order-book snapshot API, so it carries no RPC endpoint of its own.
		if cc.Ecosystem == domain.EcosystemEVM && cc.RPCURL == "" && id != domain.ChainIDHyperCore {
			return fmt.Errorf("chain %d (%s) is missing an RPC URL", id, cc.Name)
		}
	}
	return nil
}

// Chain returns the config for a chain ID.
func (c *ChainsConfig) Chain(chainID uint64) (ChainConfig, bool) {
	cc, ok := c.Chains[chainID]
	return cc, ok
}

// ClassOf returns the fill-time class for a chain, OTHER when unknown.
func (c *ChainsConfig) ClassOf(chainID uint64) ChainClass {
	if cc, ok := c.Chains[chainID]; ok && cc.Class != "" {
		return cc.Class
	}
	return ChainClassOther
}
