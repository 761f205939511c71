package domain

import "math/big"

// Quote is the result of pricing one bridge route for one request. All amounts
// are integers in the stated token's decimals; OutputAmount is always in
// OutputToken.Decimals, never an intermediary's.
type Quote struct {
	InputToken           Token
	OutputToken          Token
	InputAmount          *big.Int
	OutputAmount         *big.Int
	MinOutputAmount      *big.Int
	EstimatedFillTimeSec int64
	Fees                 *SwapFees
	Provider             ProviderKind
	// Message carries provider-specific payload needed at build time
	// (e.g. the omnichain send message), opaque to callers.
	Message []byte
}

// SwapLeg describes an origin- or destination-side DEX swap around the bridge
// leg. Sponsored variants refuse requests that carry either leg.
type SwapLeg struct {
	InputToken  Token
	OutputToken Token
	SlippageTol float64
}

// CrossSwap is the request shape entering the engine.
type CrossSwap struct {
	InputToken      Token
	OutputToken     Token
	Amount          *big.Int
	Recipient       string
	Depositor       string
	AppFeePercent   float64
	AppFeeRecipient string
	OriginSwap      *SwapLeg
	DestinationSwap *SwapLeg
	IntegratorID    string
}

// HasAppFee reports whether the request carries an application fee.
func (c CrossSwap) HasAppFee() bool {
	return c.AppFeePercent > 0
}

// HasSwapLeg reports whether either side of the bridge requires a DEX swap.
func (c CrossSwap) HasSwapLeg() bool {
	return c.OriginSwap != nil || c.DestinationSwap != nil
}

// UnsignedTx is the transaction payload a strategy builder emits. Data is
// 0x-prefixed calldata for EVM chains; Value is the native amount attached.
type UnsignedTx struct {
	ChainID   uint64    `json:"chainId"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Data      string    `json:"data"`
	Value     *big.Int  `json:"value"`
	Ecosystem Ecosystem `json:"ecosystem"`
}
