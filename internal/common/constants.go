// Package common contains shared constants and the error taxonomy used across services
package common

import "github.com/ethereum/go-ethereum/common"

var (
	// Multicall3 is deployed at the same address on every supported EVM chain.
	Multicall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

	// ZeroAddress doubles as the native-currency sentinel in token configs.
	ZeroAddress = common.Address{}
)

const (
	// NativeTokenAddress marks the chain's gas token in the static registry.
	NativeTokenAddress = "0x0000000000000000000000000000000000000000"

	// DefaultBatchWindowMs is how long the balance batcher waits for
	// same-chain calls to coalesce before issuing the multicall.
	DefaultBatchWindowMs = 100

	// DefaultBalanceTTLSeconds is the cache lifetime of a latest-block balance.
	DefaultBalanceTTLSeconds = 60

	// DefaultFillTimeFloorSec is returned when no fill-time tier matches.
	DefaultFillTimeFloorSec = 10

	// SameAssetPriceTolerance is the max relative divergence tolerated between
	// independently sourced USD prices of the same symbol before the fee
	// engine retries with the fallback source.
	SameAssetPriceTolerance = 0.01
)
