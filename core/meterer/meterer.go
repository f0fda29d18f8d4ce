// Package meterer holds the pure arithmetic behind reservation metering and
// on-demand pricing, shared by the accountant and its tests.
package meterer

import (
	"math/big"

	"github.com/NilFoundation/eigenda-client/core"
)

// MinNumBins is the size of the circular period buffer: the current period
// plus two pre-allocated future periods that absorb overflow.
const MinNumBins = 3

// ReservationPeriod maps a nanosecond timestamp onto its period index for
// the given window length.
func ReservationPeriod(timestampNs int64, windowSeconds uint64) uint64 {
	if timestampNs <= 0 || windowSeconds == 0 {
		return 0
	}
	return uint64(timestampNs/1e9) / windowSeconds
}

// BinIndex is the physical slot a period occupies in the circular buffer.
func BinIndex(period uint64) uint64 {
	return period % MinNumBins
}

// SymbolsCharged applies the minimum chargeable size.
func SymbolsCharged(symbols, minNumSymbols uint64) uint64 {
	return max(symbols, minNumSymbols)
}

// PaymentCharged is the wei cost of the given symbol count.
func PaymentCharged(symbols, pricePerSymbol uint64) *big.Int {
	return new(big.Int).Mul(
		new(big.Int).SetUint64(symbols),
		new(big.Int).SetUint64(pricePerSymbol),
	)
}

// PeriodBudget is the symbol allowance of one reservation period.
func PeriodBudget(symbolsPerSecond, windowSeconds uint64) uint64 {
	return symbolsPerSecond * windowSeconds
}

// ReservationCoversQuorums reports whether every requested quorum is inside
// the reservation's scope.
func ReservationCoversQuorums(reservation *core.ReservedPayment, quorums []core.QuorumID) bool {
	for _, q := range quorums {
		if !reservation.ContainsQuorum(q) {
			return false
		}
	}
	return true
}
