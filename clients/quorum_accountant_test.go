package clients

import (
	"context"
	"math/big"
	"testing"

	"github.com/NilFoundation/eigenda-client/core"
	"github.com/stretchr/testify/suite"
)

func quorumState(quorums ...core.QuorumID) *core.QuorumPaymentState {
	state := &core.QuorumPaymentState{
		Reservations:  make(map[core.QuorumID]*core.ReservedPayment),
		PeriodRecords: make(map[core.QuorumID][]*core.PeriodRecord),
		VaultParams: &core.PaymentVaultParams{
			QuorumPaymentConfigs:  make(map[core.QuorumID]*core.PaymentQuorumConfig),
			QuorumProtocolConfigs: make(map[core.QuorumID]*core.PaymentQuorumProtocolConfig),
			OnDemandQuorumNumbers: []core.QuorumID{0, 1},
		},
		CumulativePayment:        big.NewInt(0),
		OnchainCumulativePayment: big.NewInt(0),
	}
	for _, q := range quorums {
		state.Reservations[q] = &core.ReservedPayment{
			SymbolsPerSecond: 1024,
			StartTimestamp:   testTimestampNs/1e9 - 1000,
			EndTimestamp:     testTimestampNs/1e9 + 1000,
			QuorumNumbers:    []core.QuorumID{q},
		}
		state.VaultParams.QuorumPaymentConfigs[q] = &core.PaymentQuorumConfig{
			ReservationSymbolsPerSecond: 1024,
			OnDemandPricePerSymbol:      testPricePerSymbol,
		}
		state.VaultParams.QuorumProtocolConfigs[q] = &core.PaymentQuorumProtocolConfig{
			MinNumSymbols:              testMinNumSymbols,
			ReservationRateLimitWindow: testWindowSeconds,
			OnDemandEnabled:            true,
		}
	}
	return state
}

type QuorumAccountantTestSuite struct {
	suite.Suite

	accountant *QuorumAccountant
}

func TestQuorumAccountantSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(QuorumAccountantTestSuite))
}

func (s *QuorumAccountantTestSuite) SetupTest() {
	s.accountant = NewQuorumAccountant()
}

func (s *QuorumAccountantTestSuite) TestEveryQuorumCharged() {
	s.accountant.SetQuorumPaymentState(quorumState(0, 1))

	record, err := s.accountant.AccountBlob(4096, []core.QuorumID{0, 1}, testTimestampNs)
	s.Require().NoError(err)
	s.Require().Equal(PaymentMethodReservation, record.Method)
	s.Require().Nil(record.CumulativePayment)

	period := uint64(testTimestampNs/1e9) / testWindowSeconds
	requireBins(s.T(), s.accountant, 0, uint32(period), 4096)
	requireBins(s.T(), s.accountant, 1, uint32(period), 4096)
}

func (s *QuorumAccountantTestSuite) TestMissingQuorumReservationFallsToOnDemand() {
	state := quorumState(0) // quorum 1 has no reservation
	state.OnchainCumulativePayment = new(big.Int).Lsh(big.NewInt(1), 80)
	s.accountant.SetQuorumPaymentState(state)

	record, err := s.accountant.AccountBlob(4096, []core.QuorumID{0, 1}, testTimestampNs)
	s.Require().NoError(err)
	s.Require().Equal(PaymentMethodOnDemand, record.Method)

	// the partial reservation charge on quorum 0 must have been undone
	records := s.accountant.PeriodRecords(0)
	for _, rec := range records {
		s.Require().Zero(rec.Usage)
	}
}

func (s *QuorumAccountantTestSuite) TestExhaustedQuorumBlocksAll() {
	period := uint64(testTimestampNs/1e9) / testWindowSeconds
	state := quorumState(0, 1)
	budget := uint64(1024) * testWindowSeconds
	state.PeriodRecords[1] = []*core.PeriodRecord{
		{Index: uint32(period), Usage: budget},
		{Index: uint32(period + 1), Usage: budget},
	}
	s.accountant.SetQuorumPaymentState(state)

	_, err := s.accountant.AccountBlob(4096, []core.QuorumID{0, 1}, testTimestampNs)
	s.Require().ErrorIs(err, ErrInsufficientFunds)

	records := s.accountant.PeriodRecords(0)
	for _, rec := range records {
		s.Require().Zero(rec.Usage, "quorum 0 must not keep a charge when quorum 1 failed")
	}
}

func (s *QuorumAccountantTestSuite) TestOnDemandDisabledQuorum() {
	state := quorumState(0)
	state.Reservations = nil
	state.OnchainCumulativePayment = new(big.Int).Lsh(big.NewInt(1), 80)
	state.VaultParams.QuorumProtocolConfigs[0].OnDemandEnabled = false
	s.accountant.SetQuorumPaymentState(state)

	_, err := s.accountant.AccountBlob(4096, []core.QuorumID{0}, testTimestampNs)
	s.Require().ErrorIs(err, ErrInsufficientFunds)
}

func (s *QuorumAccountantTestSuite) TestRollbackRestoresEveryQuorum() {
	s.accountant.SetQuorumPaymentState(quorumState(0, 1))

	record, err := s.accountant.AccountBlob(4096, []core.QuorumID{0, 1}, testTimestampNs)
	s.Require().NoError(err)

	s.accountant.Rollback(record.CommitID)
	for _, q := range []core.QuorumID{0, 1} {
		for _, rec := range s.accountant.PeriodRecords(q) {
			s.Require().Zero(rec.Usage)
		}
	}
}

func (s *QuorumAccountantTestSuite) TestSyncQueriesQuorumView() {
	querier := &fakeQuerier{quorumState: quorumState(0)}
	s.Require().NoError(s.accountant.SyncPaymentState(context.Background(), querier))
	s.Require().Equal(1, querier.quorumCalls)
	s.Require().Zero(querier.simpleCalls)
}
