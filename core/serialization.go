package core

import (
	"fmt"
	"math/big"

	"github.com/NilFoundation/eigenda-client/common/check"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// The blob key is the keccak digest of one strict ABI tuple:
//
//	(uint16 blobVersion, bytes quorumNumbers,
//	 ((uint256,uint256) commitment,
//	  (uint256[2],uint256[2]) lengthCommitment,
//	  (uint256[2],uint256[2]) lengthProof,
//	  uint32 length),
//	 bytes32 paymentMetadataHash)
//
// G2 limbs are ordered (a0, a1). Quorum numbers are one byte each, packed
// into the dynamic bytes value in ascending order. The encoding must stay
// bit-identical across client implementations; the serialization tests pin
// the byte layout.
var blobHeaderArguments = makeBlobHeaderArguments()

func makeBlobHeaderArguments() abi.Arguments {
	g2Components := []abi.ArgumentMarshaling{
		{Name: "x", Type: "uint256[2]"},
		{Name: "y", Type: "uint256[2]"},
	}
	headerType, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "blobVersion", Type: "uint16"},
		{Name: "quorumNumbers", Type: "bytes"},
		{Name: "blobCommitments", Type: "tuple", Components: []abi.ArgumentMarshaling{
			{Name: "commitment", Type: "tuple", Components: []abi.ArgumentMarshaling{
				{Name: "x", Type: "uint256"},
				{Name: "y", Type: "uint256"},
			}},
			{Name: "lengthCommitment", Type: "tuple", Components: g2Components},
			{Name: "lengthProof", Type: "tuple", Components: g2Components},
			{Name: "length", Type: "uint32"},
		}},
		{Name: "paymentMetadataHash", Type: "bytes32"},
	})
	check.PanicIfErr(err)
	return abi.Arguments{{Type: headerType, Name: "blobHeader"}}
}

var paymentMetadataArguments = makePaymentMetadataArguments()

func makePaymentMetadataArguments() abi.Arguments {
	metadataType, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "accountID", Type: "address"},
		{Name: "timestamp", Type: "uint256"},
		{Name: "cumulativePayment", Type: "uint256"},
	})
	check.PanicIfErr(err)
	return abi.Arguments{{Type: metadataType, Name: "paymentMetadata"}}
}

type abiG1Point struct {
	X *big.Int
	Y *big.Int
}

type abiG2Point struct {
	X [2]*big.Int
	Y [2]*big.Int
}

type abiBlobCommitments struct {
	Commitment       abiG1Point
	LengthCommitment abiG2Point
	LengthProof      abiG2Point
	Length           uint32
}

type abiBlobHeader struct {
	BlobVersion         uint16
	QuorumNumbers       []byte
	BlobCommitments     abiBlobCommitments
	PaymentMetadataHash [32]byte
}

type abiPaymentMetadata struct {
	AccountID         ethcommon.Address
	Timestamp         *big.Int
	CumulativePayment *big.Int
}

// Hash computes the payment-metadata digest folded into the blob key:
// keccak256 of the (address, uint256 timestamp, uint256 cumulativePayment)
// tuple. The timestamp is hashed as its value, the cumulative payment as
// the integer (zero when the blob rides a reservation).
func (pm *PaymentMetadata) Hash() ([32]byte, error) {
	if pm.Timestamp < 0 {
		return [32]byte{}, fmt.Errorf("%w: %d", ErrInvalidTimestamp, pm.Timestamp)
	}
	cumulativePayment := pm.CumulativePayment
	if cumulativePayment == nil {
		cumulativePayment = big.NewInt(0)
	}
	packed, err := paymentMetadataArguments.Pack(abiPaymentMetadata{
		AccountID:         pm.AccountID,
		Timestamp:         new(big.Int).SetInt64(pm.Timestamp),
		CumulativePayment: cumulativePayment,
	})
	if err != nil {
		return [32]byte{}, fmt.Errorf("pack payment metadata: %w", err)
	}
	return [32]byte(crypto.Keccak256Hash(packed)), nil
}

// BlobKey derives the canonical key of the header. Identical inputs yield
// identical keys; any single-bit change in any field changes the key.
func (h *BlobHeader) BlobKey() (BlobKey, error) {
	paymentHash, err := h.PaymentMetadata.Hash()
	if err != nil {
		return BlobKey{}, err
	}

	quorums := make([]byte, len(h.QuorumNumbers))
	for i, q := range h.QuorumNumbers {
		quorums[i] = byte(q)
	}

	packed, err := blobHeaderArguments.Pack(abiBlobHeader{
		BlobVersion:   uint16(h.Version),
		QuorumNumbers: quorums,
		BlobCommitments: abiBlobCommitments{
			Commitment: abiG1Point{
				X: h.Commitments.Commitment.X,
				Y: h.Commitments.Commitment.Y,
			},
			LengthCommitment: abiG2Point{
				X: h.Commitments.LengthCommitment.X,
				Y: h.Commitments.LengthCommitment.Y,
			},
			LengthProof: abiG2Point{
				X: h.Commitments.LengthProof.X,
				Y: h.Commitments.LengthProof.Y,
			},
			Length: h.Commitments.Length,
		},
		PaymentMetadataHash: paymentHash,
	})
	if err != nil {
		return BlobKey{}, fmt.Errorf("pack blob header: %w", err)
	}
	return BlobKey(crypto.Keccak256Hash(packed)), nil
}
