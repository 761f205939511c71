package strategy

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

const spokePoolABIJSON = `[
	{"name":"depositV3","type":"function","stateMutability":"payable","inputs":[
		{"name":"depositor","type":"address"},
		{"name":"recipient","type":"address"},
		{"name":"inputToken","type":"address"},
		{"name":"outputToken","type":"address"},
		{"name":"inputAmount","type":"uint256"},
		{"name":"outputAmount","type":"uint256"},
		{"name":"destinationChainId","type":"uint256"},
		{"name":"exclusiveRelayer","type":"address"},
		{"name":"quoteTimestamp","type":"uint32"},
		{"name":"fillDeadline","type":"uint32"},
		{"name":"exclusivityDeadline","type":"uint32"},
		{"name":"message","type":"bytes"}],
	 "outputs":[]}
]`

const tokenMessengerABIJSON = `[
	{"name":"depositForBurn","type":"function","stateMutability":"nonpayable","inputs":[
		{"name":"amount","type":"uint256"},
		{"name":"destinationDomain","type":"uint32"},
		{"name":"mintRecipient","type":"bytes32"},
		{"name":"burnToken","type":"address"}],
	 "outputs":[{"name":"nonce","type":"uint64"}]}
]`

const oftABIJSON = `[
	{"name":"send","type":"function","stateMutability":"payable","inputs":[
		{"name":"sendParam","type":"tuple","components":[
			{"name":"dstEid","type":"uint32"},
			{"name":"to","type":"bytes32"},
			{"name":"amountLD","type":"uint256"},
			{"name":"minAmountLD","type":"uint256"},
			{"name":"extraOptions","type":"bytes"},
			{"name":"composeMsg","type":"bytes"},
			{"name":"oftCmd","type":"bytes"}]},
		{"name":"fee","type":"tuple","components":[
			{"name":"nativeFee","type":"uint256"},
			{"name":"lzTokenFee","type":"uint256"}]},
		{"name":"refundAddress","type":"address"}],
	 "outputs":[]}
]`

var (
	spokePoolABI      = mustABI(spokePoolABIJSON)
	tokenMessengerABI = mustABI(tokenMessengerABIJSON)
	oftABI            = mustABI(oftABIJSON)
)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}
	return parsed
}

type depositV3Params struct {
	Depositor           ethcommon.Address
	Recipient           ethcommon.Address
	InputToken          ethcommon.Address
	OutputToken         ethcommon.Address
	InputAmount         *big.Int
	OutputAmount        *big.Int
	DestinationChainID  *big.Int
	QuoteTimestamp      uint32
	FillDeadline        uint32
	ExclusivityDeadline uint32
}

func packDepositV3(p depositV3Params) ([]byte, error) {
	data, err := spokePoolABI.Pack("depositV3",
		p.Depositor,
		p.Recipient,
		p.InputToken,
		p.OutputToken,
		p.InputAmount,
		p.OutputAmount,
		p.DestinationChainID,
		ethcommon.Address{},
		p.QuoteTimestamp,
		p.FillDeadline,
		p.ExclusivityDeadline,
		[]byte{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack depositV3: %w", err)
	}
	return data, nil
}

func packDepositForBurn(amount *big.Int, destinationDomain uint32, mintRecipient ethcommon.Address, burnToken ethcommon.Address) ([]byte, error) {
	data, err := tokenMessengerABI.Pack("depositForBurn",
		amount,
		destinationDomain,
		addressToBytes32(mintRecipient),
		burnToken,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack depositForBurn: %w", err)
	}
	return data, nil
}

type oftSendParam struct {
	DstEid       uint32   `abi:"dstEid"`
	To           [32]byte `abi:"to"`
	AmountLD     *big.Int `abi:"amountLD"`
	MinAmountLD  *big.Int `abi:"minAmountLD"`
	ExtraOptions []byte   `abi:"extraOptions"`
	ComposeMsg   []byte   `abi:"composeMsg"`
	OftCmd       []byte   `abi:"oftCmd"`
}

type oftFee struct {
	NativeFee  *big.Int `abi:"nativeFee"`
	LzTokenFee *big.Int `abi:"lzTokenFee"`
}

func packOFTSend(param oftSendParam, nativeFee *big.Int, refund ethcommon.Address) ([]byte, error) {
	data, err := oftABI.Pack("send",
		param,
		oftFee{NativeFee: nativeFee, LzTokenFee: big.NewInt(0)},
		refund,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack oft send: %w", err)
	}
	return data, nil
}

func addressToBytes32(addr ethcommon.Address) [32]byte {
	var out [32]byte
	copy(out[12:], addr[:])
	return out
}
