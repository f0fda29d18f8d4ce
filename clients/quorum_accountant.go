package clients

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/NilFoundation/eigenda-client/core"
	"github.com/NilFoundation/eigenda-client/core/meterer"
)

// QuorumAccountant is the advanced-mode accountant: every requested quorum
// must carry its own active reservation, metered against its own circular
// buffer with the vault's per-quorum windows and minimums. On-demand is the
// shared fallback, as in simple mode.
type QuorumAccountant struct {
	mu sync.Mutex
	commitLedger

	pricePerSymbol    uint64
	minNumSymbols     uint64
	reservationWindow uint64

	vaultParams  *core.PaymentVaultParams
	reservations map[core.QuorumID]*core.ReservedPayment
	bins         map[core.QuorumID]*periodBins

	cumulativePayment        *big.Int
	onchainCumulativePayment *big.Int
}

var _ Accountant = (*QuorumAccountant)(nil)

// NewQuorumAccountant starts empty; the first SyncPaymentState populates it
// from the server's per-quorum view.
func NewQuorumAccountant() *QuorumAccountant {
	return &QuorumAccountant{
		reservations:             make(map[core.QuorumID]*core.ReservedPayment),
		bins:                     make(map[core.QuorumID]*periodBins),
		cumulativePayment:        big.NewInt(0),
		onchainCumulativePayment: big.NewInt(0),
	}
}

func (a *QuorumAccountant) AccountBlob(
	numSymbols uint64,
	quorums []core.QuorumID,
	timestampNs int64,
) (*PaymentRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if undo, ok := a.tryReservations(numSymbols, quorums, timestampNs); ok {
		return &PaymentRecord{
			Method:   PaymentMethodReservation,
			CommitID: a.register(undo),
		}, nil
	}
	return a.tryOnDemand(numSymbols, quorums)
}

// tryReservations charges every quorum or none: partial charges are undone
// before falling back to on-demand.
func (a *QuorumAccountant) tryReservations(
	numSymbols uint64,
	quorums []core.QuorumID,
	timestampNs int64,
) (func(), bool) {
	undos := make([]func(), 0, len(quorums))
	undoAll := func() {
		for i := len(undos) - 1; i >= 0; i-- {
			undos[i]()
		}
	}

	for _, q := range quorums {
		reservation, ok := a.reservations[q]
		if !ok || !reservation.IsActive(timestampNs/1e9) {
			undoAll()
			return nil, false
		}

		window, minSymbols := a.quorumLimits(q)
		if window == 0 {
			undoAll()
			return nil, false
		}

		bins, ok := a.bins[q]
		if !ok {
			bins = &periodBins{}
			a.bins[q] = bins
		}

		period := meterer.ReservationPeriod(timestampNs, window)
		budget := meterer.PeriodBudget(reservation.SymbolsPerSecond, window)
		undo, ok := bins.charge(period, meterer.SymbolsCharged(numSymbols, minSymbols), budget)
		if !ok {
			undoAll()
			return nil, false
		}
		undos = append(undos, undo)
	}
	return undoAll, true
}

// quorumLimits resolves the metering window and minimum charge for a
// quorum, preferring the vault's per-quorum protocol config.
func (a *QuorumAccountant) quorumLimits(q core.QuorumID) (window, minSymbols uint64) {
	window, minSymbols = a.reservationWindow, a.minNumSymbols
	if a.vaultParams == nil {
		return window, minSymbols
	}
	if cfg, ok := a.vaultParams.QuorumProtocolConfigs[q]; ok {
		if cfg.ReservationRateLimitWindow > 0 {
			window = cfg.ReservationRateLimitWindow
		}
		if cfg.MinNumSymbols > 0 {
			minSymbols = cfg.MinNumSymbols
		}
	}
	return window, minSymbols
}

func (a *QuorumAccountant) tryOnDemand(numSymbols uint64, quorums []core.QuorumID) (*PaymentRecord, error) {
	var onDemandQuorums []core.QuorumID
	if a.vaultParams != nil {
		onDemandQuorums = a.vaultParams.OnDemandQuorumNumbers
	}
	for _, q := range quorums {
		if !quorumSupportsOnDemand(onDemandQuorums, q) {
			return nil, fmt.Errorf("%w: quorum %d does not support on-demand payment", ErrInsufficientFunds, q)
		}
		if cfg, ok := a.vaultParams.QuorumProtocolConfigs[q]; ok && !cfg.OnDemandEnabled {
			return nil, fmt.Errorf("%w: on-demand is disabled for quorum %d", ErrInsufficientFunds, q)
		}
	}

	symbols := meterer.SymbolsCharged(numSymbols, a.minNumSymbols)
	cost := meterer.PaymentCharged(symbols, a.pricePerSymbol)
	newTotal := new(big.Int).Add(a.cumulativePayment, cost)
	if a.onchainCumulativePayment.Cmp(newTotal) < 0 {
		return nil, fmt.Errorf("%w: need %s wei cumulative, deposited %s wei",
			ErrInsufficientFunds, newTotal, a.onchainCumulativePayment)
	}

	prev := a.cumulativePayment
	a.cumulativePayment = newTotal
	return &PaymentRecord{
		Method:            PaymentMethodOnDemand,
		CumulativePayment: new(big.Int).Set(newTotal),
		CommitID:          a.register(func() { a.cumulativePayment = prev }),
	}, nil
}

func (a *QuorumAccountant) Commit(commitID uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.commit(commitID)
}

func (a *QuorumAccountant) Rollback(commitID uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rollback(commitID)
}

func (a *QuorumAccountant) SyncPaymentState(ctx context.Context, querier PaymentStateQuerier) error {
	state, err := querier.QueryQuorumPaymentState(ctx)
	if err != nil {
		return err
	}
	a.SetQuorumPaymentState(state)
	return nil
}

// SetQuorumPaymentState adopts a server snapshot directly.
func (a *QuorumAccountant) SetQuorumPaymentState(state *core.QuorumPaymentState) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.vaultParams = state.VaultParams
	a.reservations = state.Reservations
	if a.reservations == nil {
		a.reservations = make(map[core.QuorumID]*core.ReservedPayment)
	}

	a.bins = make(map[core.QuorumID]*periodBins, len(state.PeriodRecords))
	for q, records := range state.PeriodRecords {
		bins := &periodBins{}
		bins.adopt(records)
		a.bins[q] = bins
	}

	// global fallbacks: the highest per-quorum rate parameters
	a.pricePerSymbol, a.minNumSymbols, a.reservationWindow = 0, 0, 0
	if state.VaultParams != nil {
		for _, cfg := range state.VaultParams.QuorumPaymentConfigs {
			a.pricePerSymbol = max(a.pricePerSymbol, cfg.OnDemandPricePerSymbol)
		}
		for _, cfg := range state.VaultParams.QuorumProtocolConfigs {
			a.minNumSymbols = max(a.minNumSymbols, cfg.MinNumSymbols)
			a.reservationWindow = max(a.reservationWindow, cfg.ReservationRateLimitWindow)
		}
	}

	if state.OnchainCumulativePayment != nil {
		a.onchainCumulativePayment = new(big.Int).Set(state.OnchainCumulativePayment)
	}
	if state.CumulativePayment != nil && state.CumulativePayment.Cmp(a.cumulativePayment) > 0 {
		a.cumulativePayment = new(big.Int).Set(state.CumulativePayment)
	}
}

// CumulativePayment returns a copy of the local cumulative counter.
func (a *QuorumAccountant) CumulativePayment() *big.Int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return new(big.Int).Set(a.cumulativePayment)
}

// PeriodRecords returns a copy of one quorum's circular buffer.
func (a *QuorumAccountant) PeriodRecords(q core.QuorumID) []core.PeriodRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	bins, ok := a.bins[q]
	if !ok {
		return nil
	}
	records := make([]core.PeriodRecord, meterer.MinNumBins)
	copy(records, bins[:])
	return records
}
