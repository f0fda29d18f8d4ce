package clients

import (
	"math/big"

	disperser_rpc "github.com/Layr-Labs/eigenda/api/grpc/disperser/v2"
	"github.com/NilFoundation/eigenda-client/core"
)

// Conversions from the disperser's payment-state replies to the domain
// types the accountants consume.

func paymentStateFromProtobuf(reply *disperser_rpc.GetPaymentStateReply) *core.PaymentState {
	state := &core.PaymentState{
		CumulativePayment:        bigFromBytes(reply.GetCumulativePayment()),
		OnchainCumulativePayment: bigFromBytes(reply.GetOnchainCumulativePayment()),
	}

	if params := reply.GetPaymentGlobalParams(); params != nil {
		state.PricePerSymbol = params.GetPricePerSymbol()
		state.MinNumSymbols = params.GetMinNumSymbols()
		state.ReservationWindow = params.GetReservationWindow()
		state.OnDemandQuorumNumbers = quorumsFromProtobuf(params.GetOnDemandQuorumNumbers())
	}

	if reservation := reply.GetReservation(); reservation != nil {
		state.Reservation = reservationFromProtobuf(
			reservation.GetSymbolsPerSecond(),
			reservation.GetStartTimestamp(),
			reservation.GetEndTimestamp(),
			reservation.GetQuorumNumbers(),
			reservation.GetQuorumSplits(),
		)
	}

	for _, rec := range reply.GetPeriodRecords() {
		if rec == nil {
			continue
		}
		state.PeriodRecords = append(state.PeriodRecords, &core.PeriodRecord{
			Index: rec.GetIndex(),
			Usage: rec.GetUsage(),
		})
	}
	return state
}

func quorumPaymentStateFromProtobuf(reply *disperser_rpc.GetPaymentStateForAllQuorumsReply) *core.QuorumPaymentState {
	state := &core.QuorumPaymentState{
		Reservations:             make(map[core.QuorumID]*core.ReservedPayment),
		PeriodRecords:            make(map[core.QuorumID][]*core.PeriodRecord),
		CumulativePayment:        bigFromBytes(reply.GetCumulativePayment()),
		OnchainCumulativePayment: bigFromBytes(reply.GetOnchainCumulativePayment()),
	}

	for q, reservation := range reply.GetReservations() {
		if reservation == nil {
			continue
		}
		quorum := core.QuorumID(q)
		state.Reservations[quorum] = reservationFromProtobuf(
			reservation.GetSymbolsPerSecond(),
			reservation.GetStartTimestamp(),
			reservation.GetEndTimestamp(),
			[]uint32{q},
			nil,
		)
	}

	for q, records := range reply.GetPeriodRecords() {
		quorum := core.QuorumID(q)
		for _, rec := range records.GetRecords() {
			if rec == nil {
				continue
			}
			state.PeriodRecords[quorum] = append(state.PeriodRecords[quorum], &core.PeriodRecord{
				Index: rec.GetIndex(),
				Usage: rec.GetUsage(),
			})
		}
	}

	if params := reply.GetPaymentVaultParams(); params != nil {
		vault := &core.PaymentVaultParams{
			QuorumPaymentConfigs:  make(map[core.QuorumID]*core.PaymentQuorumConfig),
			QuorumProtocolConfigs: make(map[core.QuorumID]*core.PaymentQuorumProtocolConfig),
			OnDemandQuorumNumbers: quorumsFromProtobuf(params.GetOnDemandQuorumNumbers()),
		}
		for q, cfg := range params.GetQuorumPaymentConfigs() {
			vault.QuorumPaymentConfigs[core.QuorumID(q)] = &core.PaymentQuorumConfig{
				ReservationSymbolsPerSecond: cfg.GetReservationSymbolsPerSecond(),
				OnDemandSymbolsPerSecond:    cfg.GetOnDemandSymbolsPerSecond(),
				OnDemandPricePerSymbol:      cfg.GetOnDemandPricePerSymbol(),
			}
		}
		for q, cfg := range params.GetQuorumProtocolConfigs() {
			vault.QuorumProtocolConfigs[core.QuorumID(q)] = &core.PaymentQuorumProtocolConfig{
				MinNumSymbols:              cfg.GetMinNumSymbols(),
				ReservationAdvanceWindow:   cfg.GetReservationAdvanceWindow(),
				ReservationRateLimitWindow: cfg.GetReservationRateLimitWindow(),
				OnDemandRateLimitWindow:    cfg.GetOnDemandRateLimitWindow(),
				OnDemandEnabled:            cfg.GetOnDemandEnabled(),
			}
		}
		state.VaultParams = vault
	}
	return state
}

func reservationFromProtobuf(
	symbolsPerSecond uint64,
	startTimestamp, endTimestamp uint32,
	quorumNumbers, quorumSplits []uint32,
) *core.ReservedPayment {
	reservation := &core.ReservedPayment{
		SymbolsPerSecond: symbolsPerSecond,
		StartTimestamp:   int64(startTimestamp),
		EndTimestamp:     int64(endTimestamp),
		QuorumNumbers:    quorumsFromProtobuf(quorumNumbers),
	}
	if len(quorumSplits) == len(quorumNumbers) && len(quorumSplits) > 0 {
		reservation.QuorumSplits = make(map[core.QuorumID]uint8, len(quorumSplits))
		for i, q := range quorumNumbers {
			reservation.QuorumSplits[core.QuorumID(q)] = uint8(quorumSplits[i])
		}
	}
	return reservation
}

func quorumsFromProtobuf(quorums []uint32) []core.QuorumID {
	if len(quorums) == 0 {
		return nil
	}
	out := make([]core.QuorumID, len(quorums))
	for i, q := range quorums {
		out[i] = core.QuorumID(q)
	}
	return out
}

func bigFromBytes(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}
