package filltime

import (
	"context"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/across-protocol/quote-engine/internal/chain"
	engcommon "github.com/across-protocol/quote-engine/internal/common"
	"github.com/across-protocol/quote-engine/internal/config"
	"github.com/across-protocol/quote-engine/internal/domain"
)

const FILL_TIME_SERVICE = "fill-time-service"

// validatorSource is the one on-chain read this service needs.
type validatorSource interface {
	RequiredValidators(ctx context.Context, chainID uint64, messenger ethcommon.Address, dstChainID uint64, token ethcommon.Address) (uint64, error)
}

// Service estimates time-to-fill. Intent-style routes use the static tier
// table; message-passing routes derive the estimate from block cadence and
// the messenger's attestation quorum.
type Service struct {
	container.BaseDIInstance

	chainsCfg *config.ChainsConfig
	bridgeCfg *config.BridgeConfig
	reader    validatorSource
}

func (svc *Service) ID() string {
	return FILL_TIME_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.chainsCfg = c.GetConfig(config.CHAINS_CONFIG_KEY).(*config.ChainsConfig)
	svc.bridgeCfg = c.GetConfig(config.BRIDGE_CONFIG_KEY).(*config.BridgeConfig)
	svc.reader = c.Instance(chain.CHAIN_READER_SERVICE).(*chain.ReaderService)
	return nil
}

func (svc *Service) Start() error { return nil }
func (svc *Service) Stop() error  { return nil }

// NewServiceForTest wires a service directly, bypassing the container.
func NewServiceForTest(chains *config.ChainsConfig, bridge *config.BridgeConfig, reader validatorSource) *Service {
	return &Service{chainsCfg: chains, bridgeCfg: bridge, reader: reader}
}

// Estimate returns the p75 fill time in seconds for an intent-style route.
// Unknown routes and amounts above every cutoff return the floor.
func (svc *Service) Estimate(originChainID, destChainID uint64, tokenSymbol string, usdAmount float64) int64 {
	originClass := svc.chainsCfg.ClassOf(originChainID)
	destClass := svc.chainsCfg.ClassOf(destChainID)

	tiers, ok := lookupTiers(originClass, destClass, GroupOf(tokenSymbol))
	if !ok {
		return engcommon.DefaultFillTimeFloorSec
	}
	for _, t := range tiers {
		if usdAmount < t.maxUsdCutoff {
			return t.p75FillSeconds
		}
	}
	return engcommon.DefaultFillTimeFloorSec
}

// EstimateMessagePassing models delivery as origin finality plus destination
// execution: originBlockTime * originConfirmations + destBlockTime * (2 +
// validatorCount). The quorum read is best-effort; failures fall back to the
// configured default and only shift the estimate.
func (svc *Service) EstimateMessagePassing(ctx context.Context, originChainID, destChainID uint64, token domain.Token) int64 {
	origin, okOrigin := svc.chainsCfg.Chain(originChainID)
	dest, okDest := svc.chainsCfg.Chain(destChainID)
	if !okOrigin || !okDest {
		return engcommon.DefaultFillTimeFloorSec
	}

	validators := svc.validatorCount(ctx, originChainID, destChainID, token)

	seconds := origin.BlockTimeSec*float64(origin.Confirmations) +
		dest.BlockTimeSec*float64(2+validators)
	if seconds < engcommon.DefaultFillTimeFloorSec {
		return engcommon.DefaultFillTimeFloorSec
	}
	return int64(seconds)
}

func (svc *Service) validatorCount(ctx context.Context, originChainID, destChainID uint64, token domain.Token) uint64 {
	fallback := svc.bridgeCfg.Omnichain.DefaultValidatorCount

	handlers, ok := svc.bridgeCfg.Omnichain.Handlers[originChainID]
	if !ok {
		return fallback
	}
	messenger, ok := handlers[token.Symbol]
	if !ok || svc.reader == nil {
		return fallback
	}

	count, err := svc.reader.RequiredValidators(ctx, originChainID, ethcommon.HexToAddress(messenger), destChainID, ethcommon.HexToAddress(token.Address))
	if err != nil {
		log.Warn().Err(err).
			Uint64("origin", originChainID).
			Uint64("dest", destChainID).
			Str("token", token.Symbol).
			Msg("[fillTime] validator count read failed, using default")
		return fallback
	}
	return count
}
