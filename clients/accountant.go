package clients

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/NilFoundation/eigenda-client/core"
	"github.com/NilFoundation/eigenda-client/core/meterer"
)

// PaymentMethod tags how a dispersal is paid for.
type PaymentMethod uint8

const (
	PaymentMethodReservation PaymentMethod = iota
	PaymentMethodOnDemand
)

func (m PaymentMethod) String() string {
	if m == PaymentMethodOnDemand {
		return "on-demand"
	}
	return "reservation"
}

// PaymentRecord is the outcome of one successful allocation. For
// reservation use CumulativePayment is nil; for on-demand it is the new
// cumulative total in wei. CommitID pairs the allocation with its rollback.
type PaymentRecord struct {
	Method            PaymentMethod
	CumulativePayment *big.Int
	CommitID          uint64
}

// PaymentStateQuerier is the slice of the disperser RPC surface the
// accountants resync from.
type PaymentStateQuerier interface {
	QueryPaymentState(ctx context.Context) (*core.PaymentState, error)
	QueryQuorumPaymentState(ctx context.Context) (*core.QuorumPaymentState, error)
}

// Accountant decides whether a blob rides a reservation or an on-demand
// payment and tracks the state both regimes need. Implementations are safe
// for concurrent use; every mutating operation holds one internal lock.
//
// Every successful AccountBlob must be concluded with exactly one of
// Commit (the server consumed the payment) or Rollback (it did not).
type Accountant interface {
	// AccountBlob allocates payment for numSymbols encoded symbols across
	// the given quorums at the given time. Fails with ErrInsufficientFunds
	// when neither regime can cover the blob.
	AccountBlob(numSymbols uint64, quorums []core.QuorumID, timestampNs int64) (*PaymentRecord, error)

	// Commit forgets the rollback state of a concluded allocation.
	Commit(commitID uint64)

	// Rollback atomically restores the state from before the allocation.
	Rollback(commitID uint64)

	// SyncPaymentState adopts the server's view of the account: vault
	// parameters, reservations, period records, and the cumulative
	// counter. A server cumulative total greater than the local one wins
	// (the server has counted payments the client thought failed).
	SyncPaymentState(ctx context.Context, querier PaymentStateQuerier) error
}

// periodBins is the three-slot circular buffer of one reservation: the
// current period plus two future periods, physically keyed by index mod 3.
type periodBins [meterer.MinNumBins]core.PeriodRecord

// record returns the slot for the period, re-keying a stale slot (one left
// over from an elapsed period) with zero usage. A slot claimed by a later
// period than requested is unusable and yields false.
func (b *periodBins) record(period uint64) (*core.PeriodRecord, bool) {
	rec := &b[meterer.BinIndex(period)]
	switch {
	case uint64(rec.Index) == period:
		return rec, true
	case uint64(rec.Index) < period:
		*rec = core.PeriodRecord{Index: uint32(period)}
		return rec, true
	default:
		return nil, false
	}
}

// charge books symbols into the period's bin, spilling overflow into the
// next period's bin. It returns an undo closure on success and false when
// even the spill would exceed the per-period budget.
func (b *periodBins) charge(period uint64, symbols uint64, budget uint64) (func(), bool) {
	rec, ok := b.record(period)
	if !ok {
		return nil, false
	}
	prev := *rec

	if rec.Usage+symbols <= budget {
		rec.Usage += symbols
		return func() { *rec = prev }, true
	}

	var capacity uint64
	if budget > rec.Usage {
		capacity = budget - rec.Usage
	}
	overflow := symbols - capacity
	next, ok := b.record(period + 1)
	if !ok || next.Usage+overflow > budget {
		return nil, false
	}
	prevNext := *next
	rec.Usage += capacity
	next.Usage += overflow
	return func() {
		*rec = prev
		*next = prevNext
	}, true
}

// adopt replaces bin contents with the server's records.
func (b *periodBins) adopt(records []*core.PeriodRecord) {
	*b = periodBins{}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		b[meterer.BinIndex(uint64(rec.Index))] = *rec
	}
}

// commitLedger hands out commit IDs and keeps the undo closures of open
// allocations. Embedded by both accountants; callers hold the owning lock.
type commitLedger struct {
	nextCommitID uint64
	open         map[uint64]func()
}

func (l *commitLedger) register(undo func()) uint64 {
	if l.open == nil {
		l.open = make(map[uint64]func())
	}
	l.nextCommitID++
	l.open[l.nextCommitID] = undo
	return l.nextCommitID
}

func (l *commitLedger) commit(id uint64) {
	delete(l.open, id)
}

func (l *commitLedger) rollback(id uint64) {
	if undo, ok := l.open[id]; ok {
		undo()
		delete(l.open, id)
	}
}

// ReservationAccountant is the simple-mode accountant: one reservation that
// covers a set of quorums, plus the on-demand fallback.
type ReservationAccountant struct {
	mu sync.Mutex
	commitLedger

	pricePerSymbol    uint64
	minNumSymbols     uint64
	reservationWindow uint64 // seconds per period

	onDemandQuorums []core.QuorumID
	reservation     *core.ReservedPayment
	bins            periodBins

	cumulativePayment        *big.Int
	onchainCumulativePayment *big.Int
}

var _ Accountant = (*ReservationAccountant)(nil)

// NewReservationAccountant starts empty; the first SyncPaymentState
// populates it from the server.
func NewReservationAccountant() *ReservationAccountant {
	return &ReservationAccountant{
		cumulativePayment:        big.NewInt(0),
		onchainCumulativePayment: big.NewInt(0),
	}
}

func (a *ReservationAccountant) AccountBlob(
	numSymbols uint64,
	quorums []core.QuorumID,
	timestampNs int64,
) (*PaymentRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	symbols := meterer.SymbolsCharged(numSymbols, a.minNumSymbols)

	if undo, ok := a.tryReservation(symbols, quorums, timestampNs); ok {
		return &PaymentRecord{
			Method:   PaymentMethodReservation,
			CommitID: a.register(undo),
		}, nil
	}
	return a.tryOnDemand(symbols, quorums)
}

func (a *ReservationAccountant) tryReservation(
	symbols uint64,
	quorums []core.QuorumID,
	timestampNs int64,
) (func(), bool) {
	if a.reservation == nil || a.reservationWindow == 0 {
		return nil, false
	}
	if !a.reservation.IsActive(timestampNs / 1e9) {
		return nil, false
	}
	if !meterer.ReservationCoversQuorums(a.reservation, quorums) {
		return nil, false
	}

	period := meterer.ReservationPeriod(timestampNs, a.reservationWindow)
	budget := meterer.PeriodBudget(a.reservation.SymbolsPerSecond, a.reservationWindow)
	return a.bins.charge(period, symbols, budget)
}

func (a *ReservationAccountant) tryOnDemand(symbols uint64, quorums []core.QuorumID) (*PaymentRecord, error) {
	for _, q := range quorums {
		if !quorumSupportsOnDemand(a.onDemandQuorums, q) {
			return nil, fmt.Errorf("%w: quorum %d does not support on-demand payment", ErrInsufficientFunds, q)
		}
	}

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

func (a *ReservationAccountant) Commit(commitID uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.commit(commitID)
}

func (a *ReservationAccountant) Rollback(commitID uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rollback(commitID)
}

func (a *ReservationAccountant) SyncPaymentState(ctx context.Context, querier PaymentStateQuerier) error {
	state, err := querier.QueryPaymentState(ctx)
	if err != nil {
		return err
	}
	a.SetPaymentState(state)
	return nil
}

// SetPaymentState adopts a server snapshot directly. Exposed for tests and
// for callers that already hold a snapshot.
func (a *ReservationAccountant) SetPaymentState(state *core.PaymentState) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pricePerSymbol = state.PricePerSymbol
	a.minNumSymbols = state.MinNumSymbols
	a.reservationWindow = state.ReservationWindow
	a.onDemandQuorums = state.OnDemandQuorumNumbers
	a.reservation = state.Reservation
	a.bins.adopt(state.PeriodRecords)

	if state.OnchainCumulativePayment != nil {
		a.onchainCumulativePayment = new(big.Int).Set(state.OnchainCumulativePayment)
	}
	// the server may have counted payments we saw fail; never move backwards
	if state.CumulativePayment != nil && state.CumulativePayment.Cmp(a.cumulativePayment) > 0 {
		a.cumulativePayment = new(big.Int).Set(state.CumulativePayment)
	}
}

// CumulativePayment returns a copy of the local cumulative counter.
func (a *ReservationAccountant) CumulativePayment() *big.Int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return new(big.Int).Set(a.cumulativePayment)
}

// PeriodRecords returns a copy of the circular buffer.
func (a *ReservationAccountant) PeriodRecords() []core.PeriodRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	records := make([]core.PeriodRecord, meterer.MinNumBins)
	copy(records, a.bins[:])
	return records
}

func quorumSupportsOnDemand(onDemandQuorums []core.QuorumID, quorum core.QuorumID) bool {
	for _, q := range onDemandQuorums {
		if q == quorum {
			return true
		}
	}
	return false
}
