// Package vault reads the PaymentVault contract: the on-chain source of
// reservations, on-demand deposits and the pricing parameters the
// disperser meters against. All queries are read-only.
package vault

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/NilFoundation/eigenda-client/common/check"
	"github.com/NilFoundation/eigenda-client/core"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

var ErrNoReservation = errors.New("account has no reservation in the vault")

const paymentVaultABIJSON = `[
	{"type":"function","name":"getReservation","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"reservation","type":"tuple","components":[
		{"name":"symbolsPerSecond","type":"uint64"},
		{"name":"startTimestamp","type":"uint64"},
		{"name":"endTimestamp","type":"uint64"},
		{"name":"quorumNumbers","type":"bytes"},
		{"name":"quorumSplits","type":"bytes"}]}]},
	{"type":"function","name":"getOnDemandTotalDeposit","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"totalDeposit","type":"uint256"}]},
	{"type":"function","name":"pricePerSymbol","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"minNumSymbols","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"reservationPeriodInterval","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint64"}]}
]`

// EthClient is the slice of the Ethereum RPC surface the vault reader
// needs; *ethclient.Client satisfies it.
type EthClient interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// PaymentVault reads one deployment of the vault contract.
type PaymentVault struct {
	address   ethcommon.Address
	abi       abi.ABI
	ethClient EthClient
}

// NewPaymentVault wraps an existing Ethereum client.
func NewPaymentVault(address ethcommon.Address, ethClient EthClient) *PaymentVault {
	parsed, err := abi.JSON(strings.NewReader(paymentVaultABIJSON))
	check.PanicIfErr(err)
	return &PaymentVault{
		address:   address,
		abi:       parsed,
		ethClient: ethClient,
	}
}

// DialPaymentVault connects to an Ethereum RPC endpoint and wraps the
// vault at the given address.
func DialPaymentVault(ctx context.Context, rpcURL string, address ethcommon.Address) (*PaymentVault, error) {
	ethClient, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial eth rpc: %w", err)
	}
	return NewPaymentVault(address, ethClient), nil
}

type reservationResult struct {
	SymbolsPerSecond uint64
	StartTimestamp   uint64
	EndTimestamp     uint64
	QuorumNumbers    []byte
	QuorumSplits     []byte
}

// GetReservation fetches the account's reservation. Accounts without one
// yield ErrNoReservation (the vault returns the zero struct).
func (v *PaymentVault) GetReservation(ctx context.Context, account ethcommon.Address) (*core.ReservedPayment, error) {
	// the single tuple output is copied into the first field of the target
	var out struct{ Reservation reservationResult }
	if err := v.call(ctx, "getReservation", &out, account); err != nil {
		return nil, err
	}
	result := out.Reservation
	if result.SymbolsPerSecond == 0 && result.EndTimestamp == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoReservation, account)
	}

	reservation := &core.ReservedPayment{
		SymbolsPerSecond: result.SymbolsPerSecond,
		StartTimestamp:   int64(result.StartTimestamp),
		EndTimestamp:     int64(result.EndTimestamp),
		QuorumNumbers:    make([]core.QuorumID, len(result.QuorumNumbers)),
	}
	for i, q := range result.QuorumNumbers {
		reservation.QuorumNumbers[i] = core.QuorumID(q)
	}
	if len(result.QuorumSplits) == len(result.QuorumNumbers) {
		reservation.QuorumSplits = make(map[core.QuorumID]uint8, len(result.QuorumSplits))
		for i, split := range result.QuorumSplits {
			reservation.QuorumSplits[core.QuorumID(result.QuorumNumbers[i])] = split
		}
	}
	return reservation, nil
}

// GetOnDemandTotalDeposit fetches the account's cumulative on-demand
// deposit in wei.
func (v *PaymentVault) GetOnDemandTotalDeposit(ctx context.Context, account ethcommon.Address) (*big.Int, error) {
	var deposit *big.Int
	if err := v.call(ctx, "getOnDemandTotalDeposit", &deposit, account); err != nil {
		return nil, err
	}
	return deposit, nil
}

func (v *PaymentVault) PricePerSymbol(ctx context.Context) (uint64, error) {
	var price uint64
	err := v.call(ctx, "pricePerSymbol", &price)
	return price, err
}

func (v *PaymentVault) MinNumSymbols(ctx context.Context) (uint64, error) {
	var minSymbols uint64
	err := v.call(ctx, "minNumSymbols", &minSymbols)
	return minSymbols, err
}

func (v *PaymentVault) ReservationPeriodInterval(ctx context.Context) (uint64, error) {
	var interval uint64
	err := v.call(ctx, "reservationPeriodInterval", &interval)
	return interval, err
}

func (v *PaymentVault) call(ctx context.Context, method string, result any, args ...any) error {
	input, err := v.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	output, err := v.ethClient.CallContract(ctx, ethereum.CallMsg{
		To:   &v.address,
		Data: input,
	}, nil)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	if err := v.abi.UnpackIntoInterface(result, method, output); err != nil {
		return fmt.Errorf("unpack %s: %w", method, err)
	}
	return nil
}
