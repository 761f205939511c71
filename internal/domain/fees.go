package domain

import "math/big"

// FeeComponent is one itemized fee, priced both in its own token and in USD.
// Pct, when set, is the component expressed as a fraction of the input amount.
type FeeComponent struct {
	Amount    *big.Int
	AmountUsd float64
	Token     Token
	Pct       *float64
	Details   FeeDetails
}

// FeeDetails is a closed sum type over the breakdown shapes a component can
// carry. Exactly three cases exist; consumers switch over them exhaustively
// instead of probing fields.
type FeeDetails interface {
	feeDetails()
}

// IntentFeeBreakdown itemizes an intent-relayer fee into the relayer's capital
// cost, the destination gas it fronts, and the LP fee.
type IntentFeeBreakdown struct {
	RelayerCapital FeeComponent
	DestinationGas FeeComponent
	LpFee          FeeComponent
}

// TotalBreakdown itemizes an expected-output total fee.
type TotalBreakdown struct {
	BridgeFee  FeeComponent
	AppFee     FeeComponent
	SwapImpact FeeComponent
}

// MaxTotalBreakdown itemizes a guaranteed-minimum-output total fee.
type MaxTotalBreakdown struct {
	BridgeFee     FeeComponent
	AppFee        FeeComponent
	MaxSwapImpact FeeComponent
}

func (IntentFeeBreakdown) feeDetails() {}
func (TotalBreakdown) feeDetails()     {}
func (MaxTotalBreakdown) feeDetails()  {}

// SwapFees is the reconciled fee picture for one quote. Total covers the
// expected output; TotalMax covers the guaranteed minimum output. Each total
// must equal the sum of its breakdown's components in USD.
type SwapFees struct {
	Total          FeeComponent
	TotalMax       FeeComponent
	OriginGas      FeeComponent
	DestinationGas FeeComponent
	BridgeFee      FeeComponent
	AppFee         FeeComponent
	SwapImpact     FeeComponent
	MaxSwapImpact  FeeComponent
}
