package meterer

import (
	"math/big"
	"testing"

	"github.com/NilFoundation/eigenda-client/core"
	"github.com/stretchr/testify/require"
)

func TestReservationPeriod(t *testing.T) {
	t.Parallel()

	require.EqualValues(t, 0, ReservationPeriod(0, 300))
	require.EqualValues(t, 0, ReservationPeriod(-5, 300))
	require.EqualValues(t, 0, ReservationPeriod(100, 0))

	// 1000s into the epoch with 300s windows is period 3
	require.EqualValues(t, 3, ReservationPeriod(1000*1e9, 300))
	require.EqualValues(t, 3, ReservationPeriod(1199*1e9, 300))
	require.EqualValues(t, 4, ReservationPeriod(1200*1e9, 300))
}

func TestBinIndex(t *testing.T) {
	t.Parallel()

	require.EqualValues(t, 0, BinIndex(0))
	require.EqualValues(t, 1, BinIndex(4))
	require.EqualValues(t, 2, BinIndex(5))
	require.EqualValues(t, BinIndex(7), BinIndex(7+MinNumBins))
}

func TestSymbolsCharged(t *testing.T) {
	t.Parallel()

	require.EqualValues(t, 4096, SymbolsCharged(1, 4096))
	require.EqualValues(t, 4096, SymbolsCharged(4096, 4096))
	require.EqualValues(t, 5000, SymbolsCharged(5000, 4096))
	require.EqualValues(t, 1, SymbolsCharged(1, 0))
}

func TestPaymentCharged(t *testing.T) {
	t.Parallel()

	// the minimum charge at the documented testnet rate
	cost := PaymentCharged(4096, 447_000_000_000)
	require.Equal(t, big.NewInt(1_830_912_000_000_000), cost)

	// products can exceed 64 bits
	huge := PaymentCharged(1<<40, 1<<40)
	require.Equal(t, new(big.Int).Lsh(big.NewInt(1), 80), huge)
}

func TestPeriodBudget(t *testing.T) {
	t.Parallel()

	require.EqualValues(t, 307_200, PeriodBudget(1024, 300))
}

func TestReservationCoversQuorums(t *testing.T) {
	t.Parallel()

	reservation := &core.ReservedPayment{QuorumNumbers: []core.QuorumID{0, 1}}

	require.True(t, ReservationCoversQuorums(reservation, nil))
	require.True(t, ReservationCoversQuorums(reservation, []core.QuorumID{0}))
	require.True(t, ReservationCoversQuorums(reservation, []core.QuorumID{0, 1}))
	require.False(t, ReservationCoversQuorums(reservation, []core.QuorumID{0, 2}))
}
