package engine

import (
	"context"
	"fmt"

	"github.com/across-protocol/quote-engine/internal/domain"
)

// Routes lists the providers able to service a pair with their swap-type
// classification. Pure static-config lookup; never touches the network.
func (svc *Service) Routes(inputToken, outputToken domain.Token) []RouteInfo {
	bridgeOut, _ := svc.resolveSettlement(inputToken, outputToken)

	var out []RouteInfo
	for _, strat := range svc.registry.Eligible(inputToken, bridgeOut) {
		info := RouteInfo{Provider: strat.Kind().String()}
		for _, st := range strat.CrossSwapTypes(inputToken, bridgeOut) {
			info.SwapTypes = append(info.SwapTypes, string(st))
		}
		out = append(out, info)
	}
	return out
}

// Limits converts the configured USD deposit bounds into input token units.
// When the intent protocol services the pair, its relayer capacity caps the
// ceiling further.
func (svc *Service) Limits(ctx context.Context, inputToken, outputToken domain.Token) (*DepositLimits, error) {
	unitPrice, err := svc.prices.UnitPriceUsd(ctx, inputToken.Symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to price %s for deposit limits: %w", inputToken.Symbol, err)
	}
	if unitPrice <= 0 {
		return nil, fmt.Errorf("no USD price for %s", inputToken.Symbol)
	}

	maxUsd := svc.bridgeCfg.MaxDepositUsd
	bridgeOut, _ := svc.resolveSettlement(inputToken, outputToken)
	for _, strat := range svc.registry.Eligible(inputToken, bridgeOut) {
		if strat.Kind() == domain.ProviderIntent && svc.bridgeCfg.Intent.MaxRelayerCapacityUsd < maxUsd {
			maxUsd = svc.bridgeCfg.Intent.MaxRelayerCapacityUsd
		}
	}

	return &DepositLimits{
		MinDeposit: floatToUnits(svc.bridgeCfg.MinDepositUsd/unitPrice, inputToken.Decimals),
		MaxDeposit: floatToUnits(maxUsd/unitPrice, inputToken.Decimals),
	}, nil
}
