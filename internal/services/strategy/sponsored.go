package strategy

import (
	"context"

	engcommon "github.com/across-protocol/quote-engine/internal/common"
	"github.com/across-protocol/quote-engine/internal/domain"
)

// sponsoredStrategy decorates a base variant with the sponsored provider
// kind. Sponsorship only covers a direct bridge leg, so requests carrying an
// app fee or swap legs are rejected before any quoting happens.
type sponsoredStrategy struct {
	inner Strategy
	kind  domain.ProviderKind
}

// NewSponsoredBurnMintStrategy wraps the burn-mint variant.
func NewSponsoredBurnMintStrategy(deps Deps) Strategy {
	return &sponsoredStrategy{inner: NewBurnMintStrategy(deps), kind: domain.ProviderBurnMintSponsored}
}

// NewSponsoredOmnichainStrategy wraps the omnichain variant.
func NewSponsoredOmnichainStrategy(deps Deps) Strategy {
	return &sponsoredStrategy{inner: NewOmnichainStrategy(deps), kind: domain.ProviderOmnichainSponsored}
}

func (s *sponsoredStrategy) Kind() domain.ProviderKind {
	return s.kind
}

func (s *sponsoredStrategy) Capabilities() domain.Capabilities {
	// Sponsorship never covers swap legs, whatever the base variant can do.
	caps := s.inner.Capabilities()
	caps.SwapTypes = []domain.SwapType{domain.SwapTypeBridgeableToBridgeable}
	return caps
}

func (s *sponsoredStrategy) IsRouteSupported(inputToken, outputToken domain.Token) bool {
	return s.inner.IsRouteSupported(inputToken, outputToken)
}

func (s *sponsoredStrategy) CrossSwapTypes(inputToken, outputToken domain.Token) []domain.SwapType {
	if !s.IsRouteSupported(inputToken, outputToken) {
		return nil
	}
	return []domain.SwapType{domain.SwapTypeBridgeableToBridgeable}
}

func (s *sponsoredStrategy) QuoteExactInput(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	quote, err := s.inner.QuoteExactInput(ctx, req)
	if err != nil {
		return nil, err
	}
	quote.Provider = s.kind
	return quote, nil
}

func (s *sponsoredStrategy) QuoteForOutput(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	quote, err := s.inner.QuoteForOutput(ctx, req)
	if err != nil {
		return nil, err
	}
	quote.Provider = s.kind
	return quote, nil
}

func (s *sponsoredStrategy) BuildTransaction(ctx context.Context, swap domain.CrossSwap, quote *domain.Quote) (*domain.UnsignedTx, error) {
	if err := AssertSponsorable(swap); err != nil {
		return nil, err
	}
	return s.inner.BuildTransaction(ctx, swap, quote)
}

// AssertSponsorable rejects request shapes sponsorship cannot cover. The
// engine also runs it before quoting a sponsored variant.
func AssertSponsorable(swap domain.CrossSwap) error {
	if swap.HasAppFee() {
		return engcommon.NewInvalidParamError("sponsored routes do not support an app fee")
	}
	if swap.HasSwapLeg() {
		return engcommon.NewInvalidParamError("sponsored routes only cover a direct bridge leg")
	}
	return nil
}
