package core

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/NilFoundation/eigenda-client/encoding/bn254"
	gnarkbn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// The tests below pin the exact ABI byte layout of the blob key by
// re-encoding the header with a hand-rolled encoder and comparing digests.
// If either encoder drifts, the keys diverge and the test fails.

func word(value *big.Int) []byte {
	out := make([]byte, 32)
	value.FillBytes(out)
	return out
}

func uintWord(value uint64) []byte {
	return word(new(big.Int).SetUint64(value))
}

// handRolledBlobKey lays the header tuple out word by word:
// outer offset, version, quorum-bytes offset, the eleven words of the
// commitments tuple, the payment-metadata hash, then the quorum bytes tail.
func handRolledBlobKey(t *testing.T, header *BlobHeader) BlobKey {
	t.Helper()

	paymentHash, err := header.PaymentMetadata.Hash()
	require.NoError(t, err)

	const headWords = 14 // version + quorum offset + 11 commitment words + payment hash

	var packed []byte
	packed = append(packed, uintWord(32)...) // the tuple itself is dynamic
	packed = append(packed, uintWord(uint64(header.Version))...)
	packed = append(packed, uintWord(headWords*32)...)

	packed = append(packed, word(header.Commitments.Commitment.X)...)
	packed = append(packed, word(header.Commitments.Commitment.Y)...)
	for _, g2 := range []*bn254.G2Point{header.Commitments.LengthCommitment, header.Commitments.LengthProof} {
		packed = append(packed, word(g2.X[0])...)
		packed = append(packed, word(g2.X[1])...)
		packed = append(packed, word(g2.Y[0])...)
		packed = append(packed, word(g2.Y[1])...)
	}
	packed = append(packed, uintWord(uint64(header.Commitments.Length))...)
	packed = append(packed, paymentHash[:]...)

	packed = append(packed, uintWord(uint64(len(header.QuorumNumbers)))...)
	quorumTail := make([]byte, 32)
	for i, q := range header.QuorumNumbers {
		quorumTail[i] = byte(q)
	}
	packed = append(packed, quorumTail...)

	return BlobKey(crypto.Keccak256Hash(packed))
}

func handRolledPaymentMetadataHash(pm *PaymentMetadata) [32]byte {
	var packed []byte
	packed = append(packed, word(new(big.Int).SetBytes(pm.AccountID.Bytes()))...)
	packed = append(packed, word(big.NewInt(pm.Timestamp))...)
	cumulative := pm.CumulativePayment
	if cumulative == nil {
		cumulative = big.NewInt(0)
	}
	packed = append(packed, word(cumulative)...)
	return [32]byte(crypto.Keccak256Hash(packed))
}

func fixtureCommitments(t *testing.T) *BlobCommitments {
	t.Helper()

	_, _, g1, g2 := gnarkbn254.Generators()
	g1Raw := g1.Bytes()
	g2Raw := g2.Bytes()

	commitment, err := bn254.DeserializeG1(g1Raw[:])
	require.NoError(t, err)
	lengthCommitment, err := bn254.DeserializeG2(g2Raw[:])
	require.NoError(t, err)
	lengthProof, err := bn254.DeserializeG2(g2Raw[:])
	require.NoError(t, err)

	return &BlobCommitments{
		Commitment:       commitment,
		LengthCommitment: lengthCommitment,
		LengthProof:      lengthProof,
		Length:           1,
	}
}

func fixtureHeader(t *testing.T) *BlobHeader {
	t.Helper()

	header, err := NewBlobHeader(0, []QuorumID{0, 1}, fixtureCommitments(t), PaymentMetadata{
		AccountID: ethcommon.HexToAddress("0x1aa8dDe2D8713Cc66E27dDD9A240B6fE9A11C471"),
		Timestamp: 1_700_000_000_000_000_000,
	})
	require.NoError(t, err)
	return header
}

func TestBlobKey_MatchesHandRolledEncoding(t *testing.T) {
	t.Parallel()

	header := fixtureHeader(t)

	blobKey, err := header.BlobKey()
	require.NoError(t, err)
	require.Equal(t, handRolledBlobKey(t, header), blobKey)
}

func TestBlobKey_Deterministic(t *testing.T) {
	t.Parallel()

	first, err := fixtureHeader(t).BlobKey()
	require.NoError(t, err)
	second, err := fixtureHeader(t).BlobKey()
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestBlobKey_SensitiveToEveryField(t *testing.T) {
	t.Parallel()

	base, err := fixtureHeader(t).BlobKey()
	require.NoError(t, err)

	perturbations := map[string]func(*BlobHeader){
		"quorums":    func(h *BlobHeader) { h.QuorumNumbers = []QuorumID{0, 2} },
		"length":     func(h *BlobHeader) { h.Commitments.Length = 2 },
		"commitment": func(h *BlobHeader) { h.Commitments.Commitment.X.Add(h.Commitments.Commitment.X, big.NewInt(1)) },
		"timestamp":  func(h *BlobHeader) { h.PaymentMetadata.Timestamp++ },
		"payment":    func(h *BlobHeader) { h.PaymentMetadata.CumulativePayment = big.NewInt(1) },
		"account": func(h *BlobHeader) {
			h.PaymentMetadata.AccountID = ethcommon.HexToAddress("0x000000000000000000000000000000000000dEaD")
		},
	}

	for name, perturb := range perturbations {
		header := fixtureHeader(t)
		perturb(header)
		key, err := header.BlobKey()
		require.NoError(t, err)
		require.NotEqual(t, base, key, "perturbing %s must change the blob key", name)
	}
}

func TestPaymentMetadataHash_MatchesHandRolledEncoding(t *testing.T) {
	t.Parallel()

	pm := &PaymentMetadata{
		AccountID:         ethcommon.HexToAddress("0x1aa8dDe2D8713Cc66E27dDD9A240B6fE9A11C471"),
		Timestamp:         1_700_000_000_000_000_000,
		CumulativePayment: big.NewInt(1_830_912_000_000_000),
	}

	hash, err := pm.Hash()
	require.NoError(t, err)
	require.Equal(t, handRolledPaymentMetadataHash(pm), hash)
}

func TestPaymentMetadataHash_NegativeTimestamp(t *testing.T) {
	t.Parallel()

	pm := &PaymentMetadata{Timestamp: -1}
	_, err := pm.Hash()
	require.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestPaymentMetadata_WireBytes(t *testing.T) {
	t.Parallel()

	empty := &PaymentMetadata{}
	require.Empty(t, empty.ToProtobuf().GetCumulativePayment())

	zero := &PaymentMetadata{CumulativePayment: big.NewInt(0)}
	require.Empty(t, zero.ToProtobuf().GetCumulativePayment())

	// big-endian, leading zeros stripped
	paid := &PaymentMetadata{CumulativePayment: big.NewInt(0x01_00_02)}
	require.Equal(t, []byte{0x01, 0x00, 0x02}, paid.ToProtobuf().GetCumulativePayment())

	wide := &PaymentMetadata{CumulativePayment: new(big.Int).SetUint64(1_830_912_000_000_000)}
	wireBytes := wide.ToProtobuf().GetCumulativePayment()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], 1_830_912_000_000_000)
	require.Equal(t, buf[8-len(wireBytes):], wireBytes)
	require.NotZero(t, wireBytes[0])
}
