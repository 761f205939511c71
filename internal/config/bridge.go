package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"

	"github.com/andrew-solarstorm/go-packages/common"
	"github.com/bytedance/sonic"

	"github.com/across-protocol/quote-engine/internal/domain"
)

// IntentConfig drives the intent-relayer strategy: where the spoke pools are
// deployed, which tokens relayers will front, and the fee schedule they charge.
type IntentConfig struct {
	SpokePools       map[uint64]string `json:"spokePools"`
	SupportedSymbols []string          `json:"supportedSymbols"`
	DestChains       []uint64          `json:"destChains"`
	// Fee schedule in basis points of the input amount.
	CapitalFeeBps float64 `json:"capitalFeeBps"`
	GasFeeBps     float64 `json:"gasFeeBps"`
	LpFeeBps      float64 `json:"lpFeeBps"`
	// MaxRelayerCapacityUsd caps a single deposit against what relayers can front.
	MaxRelayerCapacityUsd float64 `json:"maxRelayerCapacityUsd"`
}

// BurnMintConfig drives the burn-and-mint stablecoin strategy.
type BurnMintConfig struct {
	TokenMessengers map[uint64]string `json:"tokenMessengers"`
	Symbol          string            `json:"symbol"`
	TransferFeeBps  float64           `json:"transferFeeBps"`
	DestChains      []uint64          `json:"destChains"`
}

// OmnichainConfig drives the message-passing strategy. Handlers are the
// per-(chain,symbol) OFT adapter contracts; SharedDecimals is the lowest
// precision the protocol guarantees across chains for each symbol.
type OmnichainConfig struct {
	Handlers              map[uint64]map[string]string `json:"handlers"`
	SharedDecimals        map[string]uint8             `json:"sharedDecimals"`
	SupportedSymbols      []string                     `json:"supportedSymbols"`
	DestChains            []uint64                     `json:"destChains"`
	NativeFeeWei          string                       `json:"nativeFeeWei"`
	DefaultValidatorCount uint64                       `json:"defaultValidatorCount"`
}

// BridgeConfig aggregates strategy configuration plus the economic ceilings the
// engine enforces before building a transaction.
type BridgeConfig struct {
	Intent    IntentConfig    `json:"intent"`
	BurnMint  BurnMintConfig  `json:"burnMint"`
	Omnichain OmnichainConfig `json:"omnichain"`

	// DestinationGasLimits is the per-chain ceiling on simulated destination
	// call gas. Exceeding it aborts transaction construction.
	DestinationGasLimits map[uint64]uint64 `json:"destinationGasLimits"`

	// MinDepositUsd / MaxDepositUsd bound a single request.
	MinDepositUsd float64 `json:"minDepositUsd"`
	MaxDepositUsd float64 `json:"maxDepositUsd"`
}

func (c *BridgeConfig) Key() string {
	return BRIDGE_CONFIG_KEY
}

func defaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		Intent: IntentConfig{
			SpokePools: map[uint64]string{
				domain.ChainIDEthereum: "0x5c7BCd6E7De5423a257D81B442095A1a6ced35C5",
				domain.ChainIDOptimism: "0x6f26Bf09B1C792e3228e5467807a900A503c0281",
				domain.ChainIDPolygon:  "0x9295ee1d8C5b022Be115A2AD3c30C72E34e7F096",
				domain.ChainIDBase:     "0x09aea4b2242abC8bb4BB78D537A67a245A7bEC64",
				domain.ChainIDArbitrum: "0xe35e9842fceaCA96570B734083f4a58e8F7C5f2A",
				domain.ChainIDHyperEVM: "0x6A0a1d4B2B6a7E50E8dD6b3bEaB7d1fEcd0c4b6E",
			},
			SupportedSymbols:      []string{"USDC", "USDT", "WETH", "ETH"},
			DestChains:            []uint64{domain.ChainIDEthereum, domain.ChainIDOptimism, domain.ChainIDPolygon, domain.ChainIDBase, domain.ChainIDArbitrum, domain.ChainIDHyperEVM, domain.ChainIDHyperCore, domain.ChainIDSolana},
			CapitalFeeBps:         1.0,
			GasFeeBps:             2.5,
			LpFeeBps:              0.5,
			MaxRelayerCapacityUsd: 2_000_000,
		},
		BurnMint: BurnMintConfig{
			TokenMessengers: map[uint64]string{
				domain.ChainIDEthereum: "0xBd3fa81B58Ba92a82136038B25aDec7066af3155",
				domain.ChainIDOptimism: "0x2B4069517957735bE00ceE0fadAE88a26365528f",
				domain.ChainIDPolygon:  "0x9daF8c91AEFAE50b9c0E69629D3F6Ca40cA3B3FE",
				domain.ChainIDBase:     "0x1682Ae6375C4E4A97e4B583BC394c861A46D8962",
				domain.ChainIDArbitrum: "0x19330d10D9Cc8751218eaf51E8885D058642E08A",
			},
			Symbol:         "USDC",
			TransferFeeBps: 0,
			DestChains:     []uint64{domain.ChainIDEthereum, domain.ChainIDOptimism, domain.ChainIDPolygon, domain.ChainIDBase, domain.ChainIDArbitrum},
		},
		Omnichain: OmnichainConfig{
			Handlers: map[uint64]map[string]string{
				domain.ChainIDEthereum: {"USDT": "0x6C96dE32CEa08842dcc4058c14d3aaAD7Fa41dee"},
				domain.ChainIDArbitrum: {"USDT": "0x14E4A1B13bf7F943c8ff7C51fb60FA964A298D92"},
				domain.ChainIDHyperEVM: {"USDT": "0x904861a24F30EC96ea7CFC3bE9EA4B476d237e98"},
			},
			SharedDecimals:        map[string]uint8{"USDT": 6, "USDC": 6},
			SupportedSymbols:      []string{"USDT"},
			DestChains:            []uint64{domain.ChainIDEthereum, domain.ChainIDArbitrum, domain.ChainIDHyperEVM, domain.ChainIDHyperCore},
			NativeFeeWei:          "200000000000000",
			DefaultValidatorCount: 2,
		},
		DestinationGasLimits: map[uint64]uint64{
			domain.ChainIDEthereum: 500_000,
			domain.ChainIDOptimism: 2_000_000,
			domain.ChainIDPolygon:  2_000_000,
			domain.ChainIDBase:     2_000_000,
			domain.ChainIDArbitrum: 4_000_000,
			domain.ChainIDHyperEVM: 2_000_000,
		},
		MinDepositUsd: 1,
		MaxDepositUsd: 5_000_000,
	}
}

// Load starts from built-in deployments and applies the BRIDGE_JSON override
// wholesale when present. Overrides are validated eagerly.
func (c *BridgeConfig) Load() error {
	*c = defaultBridgeConfig()

	if raw := os.Getenv("BRIDGE_JSON"); raw != "" {
		if err := sonic.UnmarshalString(raw, c); err != nil {
			return fmt.Errorf("failed to parse BRIDGE_JSON: %w", err)
		}
	}

	if raw := common.GetEnvOrDefault("MAX_DEPOSIT_USD", ""); raw != "" {
		maxUsd, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("failed to parse MAX_DEPOSIT_USD: %w", err)
		}
		c.MaxDepositUsd = maxUsd
	}

	return c.Validate()
}

func (c *BridgeConfig) Validate() error {
	if len(c.Intent.SpokePools) == 0 {
		return fmt.Errorf("intent config has no spoke pool deployments")
	}
	if c.BurnMint.Symbol == "" {
		return fmt.Errorf("burn-mint config has no symbol")
	}
	if _, ok := new(big.Int).SetString(c.Omnichain.NativeFeeWei, 10); !ok {
		return fmt.Errorf("omnichain native fee %q is not an integer", c.Omnichain.NativeFeeWei)
	}
	for sym, dec := range c.Omnichain.SharedDecimals {
		if dec == 0 {
			return fmt.Errorf("omnichain shared decimals for %s must be positive", sym)
		}
	}
	if c.MinDepositUsd < 0 || c.MaxDepositUsd <= c.MinDepositUsd {
		return fmt.Errorf("deposit bounds are inverted: min=%f max=%f", c.MinDepositUsd, c.MaxDepositUsd)
	}
	return nil
}

// OmnichainNativeFee returns the parsed native fee. Validate guarantees it parses.
func (c *BridgeConfig) OmnichainNativeFee() *big.Int {
	fee, _ := new(big.Int).SetString(c.Omnichain.NativeFeeWei, 10)
	return fee
}
