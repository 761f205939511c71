package filltime

import (
	"strings"

	"github.com/across-protocol/quote-engine/internal/config"
)

// LiquidityGroup buckets token symbols by how deep relayer inventory runs.
type LiquidityGroup string

const (
	GroupStable LiquidityGroup = "STABLE"
	GroupEth    LiquidityGroup = "ETH"
	GroupOther  LiquidityGroup = "OTHER"
)

// GroupOf classifies a token symbol for tier lookup.
func GroupOf(symbol string) LiquidityGroup {
	switch strings.ToUpper(symbol) {
	case "USDC", "USDT", "DAI":
		return GroupStable
	case "ETH", "WETH":
		return GroupEth
	default:
		return GroupOther
	}
}

// tier is one (cutoff, timing) step. Cutoffs ascend within a bucket; the
// first cutoff above the requested USD amount wins.
type tier struct {
	maxUsdCutoff   float64
	p75FillSeconds int64
}

type tierKey struct {
	origin config.ChainClass
	dest   config.ChainClass
	group  LiquidityGroup
}

// tierTable holds observed p75 fill times. Deposits above every cutoff in a
// bucket, or routes with no bucket at all, fall back to the floor.
var tierTable = map[tierKey][]tier{
	{config.ChainClassRollup, config.ChainClassRollup, GroupStable}: {
		{20_000, 4}, {100_000, 12}, {1_000_000, 60},
	},
	{config.ChainClassRollup, config.ChainClassRollup, GroupEth}: {
		{20_000, 6}, {100_000, 16}, {1_000_000, 90},
	},
	{config.ChainClassRollup, config.ChainClassHub, GroupStable}: {
		{20_000, 16}, {100_000, 32}, {1_000_000, 120},
	},
	{config.ChainClassRollup, config.ChainClassHub, GroupEth}: {
		{20_000, 20}, {100_000, 45}, {1_000_000, 180},
	},
	{config.ChainClassHub, config.ChainClassRollup, GroupStable}: {
		{20_000, 16}, {100_000, 30}, {1_000_000, 90},
	},
	{config.ChainClassHub, config.ChainClassRollup, GroupEth}: {
		{20_000, 20}, {100_000, 40}, {1_000_000, 120},
	},
	{config.ChainClassRollup, config.ChainClassOther, GroupStable}: {
		{20_000, 10}, {100_000, 30}, {1_000_000, 120},
	},
	{config.ChainClassOther, config.ChainClassRollup, GroupStable}: {
		{20_000, 12}, {100_000, 40}, {1_000_000, 150},
	},
	{config.ChainClassOther, config.ChainClassOther, GroupOther}: {
		{20_000, 30}, {100_000, 90}, {1_000_000, 300},
	},
}

// lookupTiers resolves the tier bucket for a route, degrading each key
// component to OTHER before giving up.
func lookupTiers(origin, dest config.ChainClass, group LiquidityGroup) ([]tier, bool) {
	candidates := []tierKey{
		{origin, dest, group},
		{origin, dest, GroupOther},
		{origin, config.ChainClassOther, group},
		{origin, config.ChainClassOther, GroupOther},
		{config.ChainClassOther, dest, group},
		{config.ChainClassOther, dest, GroupOther},
		{config.ChainClassOther, config.ChainClassOther, group},
		{config.ChainClassOther, config.ChainClassOther, GroupOther},
	}
	for _, key := range candidates {
		if tiers, ok := tierTable[key]; ok {
			return tiers, true
		}
	}
	return nil, false
}
