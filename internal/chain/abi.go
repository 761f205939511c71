package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const multicall3ABIJSON = `[
	{"name":"aggregate3","type":"function","stateMutability":"payable",
	 "inputs":[{"name":"calls","type":"tuple[]","components":[
		{"name":"target","type":"address"},
		{"name":"allowFailure","type":"bool"},
		{"name":"callData","type":"bytes"}]}],
	 "outputs":[{"name":"returnData","type":"tuple[]","components":[
		{"name":"success","type":"bool"},
		{"name":"returnData","type":"bytes"}]}]},
	{"name":"getEthBalance","type":"function","stateMutability":"view",
	 "inputs":[{"name":"addr","type":"address"}],
	 "outputs":[{"name":"balance","type":"uint256"}]}
]`

const erc20ABIJSON = `[
	{"name":"balanceOf","type":"function","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"name":"approve","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"name":"transfer","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]}
]`

// messengerABIJSON is the read surface of the omnichain messenger used for
// fill-time estimation: how many independent verifiers must attest a message
// on a given route.
const messengerABIJSON = `[
	{"name":"requiredValidators","type":"function","stateMutability":"view",
	 "inputs":[{"name":"dstChainId","type":"uint64"},{"name":"token","type":"address"}],
	 "outputs":[{"name":"","type":"uint64"}]}
]`

var (
	multicall3ABI = mustABI(multicall3ABIJSON)
	erc20ABI      = mustABI(erc20ABIJSON)
	messengerABI  = mustABI(messengerABIJSON)
)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}
	return parsed
}

// Call3 is one target call inside a Multicall3 aggregate3 batch.
type Call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Call3Result mirrors aggregate3's per-call result tuple.
type Call3Result struct {
	Success    bool
	ReturnData []byte
}

// PackBalanceOf builds ERC-20 balanceOf calldata.
func PackBalanceOf(owner common.Address) []byte {
	data, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		panic(fmt.Sprintf("failed to pack balanceOf: %v", err))
	}
	return data
}

// PackApprove builds ERC-20 approve calldata.
func PackApprove(spender common.Address, amount *big.Int) []byte {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		panic(fmt.Sprintf("failed to pack approve: %v", err))
	}
	return data
}

// PackTransfer builds ERC-20 transfer calldata.
func PackTransfer(to common.Address, amount *big.Int) []byte {
	data, err := erc20ABI.Pack("transfer", to, amount)
	if err != nil {
		panic(fmt.Sprintf("failed to pack transfer: %v", err))
	}
	return data
}

// PackGetEthBalance builds the Multicall3 native balance helper calldata.
func PackGetEthBalance(addr common.Address) []byte {
	data, err := multicall3ABI.Pack("getEthBalance", addr)
	if err != nil {
		panic(fmt.Sprintf("failed to pack getEthBalance: %v", err))
	}
	return data
}

// PackAggregate3 builds the aggregate3 calldata for a batch.
func PackAggregate3(calls []Call3) ([]byte, error) {
	data, err := multicall3ABI.Pack("aggregate3", calls)
	if err != nil {
		return nil, fmt.Errorf("failed to pack aggregate3: %w", err)
	}
	return data, nil
}

// UnpackAggregate3 decodes an aggregate3 response.
func UnpackAggregate3(data []byte) ([]Call3Result, error) {
	values, err := multicall3ABI.Unpack("aggregate3", data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack aggregate3: %w", err)
	}
	raw, ok := values[0].([]struct {
		Success    bool   `json:"success"`
		ReturnData []byte `json:"returnData"`
	})
	if !ok {
		return nil, fmt.Errorf("unexpected aggregate3 return shape %T", values[0])
	}
	results := make([]Call3Result, len(raw))
	for i, r := range raw {
		results[i] = Call3Result{Success: r.Success, ReturnData: r.ReturnData}
	}
	return results, nil
}

// UnpackUint256 decodes a single uint256 return value (balanceOf,
// getEthBalance).
func UnpackUint256(data []byte) (*big.Int, error) {
	if len(data) != 32 {
		return nil, fmt.Errorf("expected 32-byte word, got %d bytes", len(data))
	}
	return new(big.Int).SetBytes(data), nil
}

// PackRequiredValidators builds the messenger validator-count read.
func PackRequiredValidators(dstChainID uint64, token common.Address) []byte {
	data, err := messengerABI.Pack("requiredValidators", dstChainID, token)
	if err != nil {
		panic(fmt.Sprintf("failed to pack requiredValidators: %v", err))
	}
	return data
}

// UnpackRequiredValidators decodes the messenger validator-count response.
func UnpackRequiredValidators(data []byte) (uint64, error) {
	values, err := messengerABI.Unpack("requiredValidators", data)
	if err != nil {
		return 0, fmt.Errorf("failed to unpack requiredValidators: %w", err)
	}
	count, ok := values[0].(uint64)
	if !ok {
		return 0, fmt.Errorf("unexpected requiredValidators return shape %T", values[0])
	}
	return count, nil
}
