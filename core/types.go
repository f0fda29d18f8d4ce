// Package core holds the domain types of the dispersal protocol and the
// canonical serialization that turns a blob header into its blob key.
package core

import (
	"errors"
	"fmt"
	"math/big"
	"slices"

	commonpb "github.com/Layr-Labs/eigenda/api/grpc/common"
	commonv2 "github.com/Layr-Labs/eigenda/api/grpc/common/v2"
	"github.com/NilFoundation/eigenda-client/encoding/bn254"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type (
	BlobVersion uint16
	QuorumID    uint8
)

var (
	ErrInvalidBlobKey     = errors.New("blob key must be 32 bytes")
	ErrUnsupportedVersion = errors.New("unsupported blob version")
	ErrInvalidQuorums     = errors.New("quorum numbers must be non-empty and free of duplicates")
	ErrInvalidTimestamp   = errors.New("payment timestamp must be positive")
	ErrInvalidCommitment  = errors.New("malformed blob commitment")
)

// supported by the disperser; extended server-side over time
var supportedBlobVersions = map[BlobVersion]struct{}{
	0: {},
}

func (v BlobVersion) IsSupported() bool {
	_, ok := supportedBlobVersions[v]
	return ok
}

// BlobStatus mirrors the disperser wire enum. The numeric codes are part of
// the protocol and must not be reordered.
type BlobStatus uint8

const (
	BlobStatusUnknown             BlobStatus = 0
	BlobStatusQueued              BlobStatus = 1
	BlobStatusEncoded             BlobStatus = 2
	BlobStatusGatheringSignatures BlobStatus = 3
	BlobStatusComplete            BlobStatus = 4
	BlobStatusFailed              BlobStatus = 5
)

func (s BlobStatus) String() string {
	switch s {
	case BlobStatusQueued:
		return "QUEUED"
	case BlobStatusEncoded:
		return "ENCODED"
	case BlobStatusGatheringSignatures:
		return "GATHERING_SIGNATURES"
	case BlobStatusComplete:
		return "COMPLETE"
	case BlobStatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the status can no longer change.
func (s BlobStatus) Terminal() bool {
	return s == BlobStatusComplete || s == BlobStatusFailed
}

// BlobKey is the durable identifier of a dispersed blob: the keccak digest
// of the canonical header tuple.
type BlobKey [32]byte

func BlobKeyFromBytes(data []byte) (BlobKey, error) {
	if len(data) != 32 {
		return BlobKey{}, fmt.Errorf("%w: got %d", ErrInvalidBlobKey, len(data))
	}
	return BlobKey(data), nil
}

func BlobKeyFromHex(s string) (BlobKey, error) {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	data, err := hexutil.Decode("0x" + s)
	if err != nil {
		return BlobKey{}, fmt.Errorf("%w: %w", ErrInvalidBlobKey, err)
	}
	return BlobKeyFromBytes(data)
}

func (k BlobKey) Bytes() []byte  { return k[:] }
func (k BlobKey) Hex() string    { return hexutil.Encode(k[:]) }
func (k BlobKey) String() string { return k.Hex() }

// BlobCommitments is the server-computed commitment triple, decompressed on
// receipt. Length is the number of 32-byte symbols in the encoded payload.
type BlobCommitments struct {
	Commitment       *bn254.G1Point
	LengthCommitment *bn254.G2Point
	LengthProof      *bn254.G2Point
	Length           uint32
}

// BlobCommitmentsFromProtobuf decompresses the gnark-compressed points of a
// commitment reply.
func BlobCommitmentsFromProtobuf(c *commonpb.BlobCommitment) (*BlobCommitments, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil commitment", ErrInvalidCommitment)
	}
	commitment, err := bn254.DeserializeG1(c.GetCommitment())
	if err != nil {
		return nil, fmt.Errorf("commitment: %w", err)
	}
	lengthCommitment, err := bn254.DeserializeG2(c.GetLengthCommitment())
	if err != nil {
		return nil, fmt.Errorf("length commitment: %w", err)
	}
	lengthProof, err := bn254.DeserializeG2(c.GetLengthProof())
	if err != nil {
		return nil, fmt.Errorf("length proof: %w", err)
	}
	return &BlobCommitments{
		Commitment:       commitment,
		LengthCommitment: lengthCommitment,
		LengthProof:      lengthProof,
		Length:           c.GetLength(),
	}, nil
}

// ToProtobuf re-compresses the commitments into the wire form.
func (c *BlobCommitments) ToProtobuf() *commonpb.BlobCommitment {
	commitment := c.Commitment.Serialize()
	lengthCommitment := c.LengthCommitment.Serialize()
	lengthProof := c.LengthProof.Serialize()
	return &commonpb.BlobCommitment{
		Commitment:       commitment[:],
		LengthCommitment: lengthCommitment[:],
		LengthProof:      lengthProof[:],
		Length:           c.Length,
	}
}

// PaymentMetadata binds a dispersal to the payer. A nil or zero
// CumulativePayment means the blob rides a reservation; otherwise it is the
// new on-demand cumulative total in wei.
type PaymentMetadata struct {
	AccountID         ethcommon.Address
	Timestamp         int64 // unix nanoseconds
	CumulativePayment *big.Int
}

// cumulativePaymentBytes is the wire form: big-endian with leading zeros
// stripped, empty for zero or reservation use.
func (pm *PaymentMetadata) cumulativePaymentBytes() []byte {
	if pm.CumulativePayment == nil || pm.CumulativePayment.Sign() == 0 {
		return nil
	}
	return pm.CumulativePayment.Bytes()
}

func (pm *PaymentMetadata) ToProtobuf() *commonv2.PaymentHeader {
	return &commonv2.PaymentHeader{
		AccountId:         pm.AccountID.Hex(),
		Timestamp:         pm.Timestamp,
		CumulativePayment: pm.cumulativePaymentBytes(),
	}
}

// BlobHeader is the canonical dispersal header. Construct it through
// NewBlobHeader so the invariants hold for blob-key derivation.
type BlobHeader struct {
	Version         BlobVersion
	QuorumNumbers   []QuorumID
	Commitments     *BlobCommitments
	PaymentMetadata PaymentMetadata
}

// NewBlobHeader validates the version, sorts the quorums, rejects empty or
// duplicated quorums, incomplete commitments and non-positive timestamps.
func NewBlobHeader(
	version BlobVersion,
	quorums []QuorumID,
	commitments *BlobCommitments,
	payment PaymentMetadata,
) (*BlobHeader, error) {
	if !version.IsSupported() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	if len(quorums) == 0 {
		return nil, ErrInvalidQuorums
	}
	sorted := slices.Clone(quorums)
	slices.Sort(sorted)
	if len(slices.Compact(sorted)) != len(sorted) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuorums, quorums)
	}
	if commitments == nil || commitments.Commitment == nil ||
		commitments.LengthCommitment == nil || commitments.LengthProof == nil {
		return nil, fmt.Errorf("%w: incomplete commitment triple", ErrInvalidCommitment)
	}
	if payment.Timestamp <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTimestamp, payment.Timestamp)
	}
	return &BlobHeader{
		Version:         version,
		QuorumNumbers:   sorted,
		Commitments:     commitments,
		PaymentMetadata: payment,
	}, nil
}

func (h *BlobHeader) ToProtobuf() *commonv2.BlobHeader {
	quorums := make([]uint32, len(h.QuorumNumbers))
	for i, q := range h.QuorumNumbers {
		quorums[i] = uint32(q)
	}
	return &commonv2.BlobHeader{
		Version:       uint32(h.Version),
		QuorumNumbers: quorums,
		Commitment:    h.Commitments.ToProtobuf(),
		PaymentHeader: h.PaymentMetadata.ToProtobuf(),
	}
}

// ReservedPayment is a prepaid bandwidth allocation, valid over
// [StartTimestamp, EndTimestamp) seconds and scoped to QuorumNumbers.
type ReservedPayment struct {
	SymbolsPerSecond uint64
	StartTimestamp   int64 // unix seconds
	EndTimestamp     int64 // unix seconds
	QuorumNumbers    []QuorumID
	QuorumSplits     map[QuorumID]uint8 // percent, summing to 100
}

// IsActive reports whether the reservation covers the given unix second.
func (r *ReservedPayment) IsActive(timestampSeconds int64) bool {
	return r.StartTimestamp <= timestampSeconds && timestampSeconds < r.EndTimestamp
}

func (r *ReservedPayment) ContainsQuorum(quorum QuorumID) bool {
	return slices.Contains(r.QuorumNumbers, quorum)
}

// PeriodRecord tracks reservation usage for one period of the circular
// buffer. Index is the absolute period number, not the slot.
type PeriodRecord struct {
	Index uint32
	Usage uint64
}

// PaymentQuorumConfig carries the vault's per-quorum rates.
type PaymentQuorumConfig struct {
	ReservationSymbolsPerSecond uint64
	OnDemandSymbolsPerSecond    uint64
	OnDemandPricePerSymbol      uint64
}

// PaymentQuorumProtocolConfig carries the vault's per-quorum protocol
// parameters.
type PaymentQuorumProtocolConfig struct {
	MinNumSymbols              uint64
	ReservationAdvanceWindow   uint64 // seconds
	ReservationRateLimitWindow uint64 // seconds
	OnDemandRateLimitWindow    uint64 // seconds
	OnDemandEnabled            bool
}

// PaymentVaultParams is the vault configuration snapshot the per-quorum
// payment state carries.
type PaymentVaultParams struct {
	QuorumPaymentConfigs  map[QuorumID]*PaymentQuorumConfig
	QuorumProtocolConfigs map[QuorumID]*PaymentQuorumProtocolConfig
	OnDemandQuorumNumbers []QuorumID
}

// PaymentState is the client-side snapshot of the server's account view in
// the single-reservation (simple) mode.
type PaymentState struct {
	PricePerSymbol           uint64
	MinNumSymbols            uint64
	ReservationWindow        uint64 // seconds per period
	OnDemandQuorumNumbers    []QuorumID
	Reservation              *ReservedPayment
	PeriodRecords            []*PeriodRecord
	CumulativePayment        *big.Int
	OnchainCumulativePayment *big.Int
}

// QuorumPaymentState is the server's account view in the per-quorum
// (advanced) mode.
type QuorumPaymentState struct {
	VaultParams              *PaymentVaultParams
	Reservations             map[QuorumID]*ReservedPayment
	PeriodRecords            map[QuorumID][]*PeriodRecord
	CumulativePayment        *big.Int
	OnchainCumulativePayment *big.Int
}
