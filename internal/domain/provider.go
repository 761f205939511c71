package domain

// ProviderKind is the closed set of bridge strategy variants. Dispatch is over
// this enum and a fixed lookup table, never over free-form strategy names.
type ProviderKind uint8

const (
	ProviderIntent ProviderKind = iota
	ProviderBurnMint
	ProviderBurnMintSponsored
	ProviderOmnichain
	ProviderOmnichainSponsored

	providerKindCount
)

// ProviderKinds lists every variant in dispatch order.
func ProviderKinds() []ProviderKind {
	kinds := make([]ProviderKind, 0, providerKindCount)
	for k := ProviderKind(0); k < providerKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k ProviderKind) String() string {
	switch k {
	case ProviderIntent:
		return "intent"
	case ProviderBurnMint:
		return "burn-mint"
	case ProviderBurnMintSponsored:
		return "burn-mint-sponsored"
	case ProviderOmnichain:
		return "omnichain"
	case ProviderOmnichainSponsored:
		return "omnichain-sponsored"
	default:
		return "unknown"
	}
}

// Sponsored reports whether the variant subsidizes destination-side costs.
func (k ProviderKind) Sponsored() bool {
	return k == ProviderBurnMintSponsored || k == ProviderOmnichainSponsored
}

// SwapType classifies a route by whether each leg needs a swap around the
// bridgeable asset.
type SwapType string

const (
	SwapTypeBridgeableToBridgeable SwapType = "bridgeableToBridgeable"
	SwapTypeBridgeableToAny        SwapType = "bridgeableToAny"
	SwapTypeAnyToBridgeable        SwapType = "anyToBridgeable"
	SwapTypeAnyToAny               SwapType = "anyToAny"
)

// Capabilities describes what a strategy variant can service.
type Capabilities struct {
	Ecosystems []Ecosystem
	SwapTypes  []SwapType
}

func (c Capabilities) SupportsEcosystem(e Ecosystem) bool {
	for _, have := range c.Ecosystems {
		if have == e {
			return true
		}
	}
	return false
}

func (c Capabilities) SupportsSwapType(s SwapType) bool {
	for _, have := range c.SwapTypes {
		if have == s {
			return true
		}
	}
	return false
}
