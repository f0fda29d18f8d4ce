// Package auth derives the account identity from the user's secp256k1 key
// and signs dispersal and payment-state requests with the domain-specific
// wrapped hashes.
package auth

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/NilFoundation/eigenda-client/core"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrInvalidKey     = errors.New("invalid secp256k1 private key")
	ErrSignatureError = errors.New("signing failed")
)

// BlobRequestSigner signs the two request kinds the disperser
// authenticates. Implementations must return 65-byte (r, s, v) signatures
// with the recovery byte normalized to 0 or 1.
type BlobRequestSigner interface {
	AccountID() ethcommon.Address
	SignBlobKey(key core.BlobKey) ([]byte, error)
	SignPaymentStateRequest(timestampNs int64) ([]byte, error)
}

// LocalBlobRequestSigner holds the key in process memory. It is immutable
// once constructed and safe for concurrent use.
type LocalBlobRequestSigner struct {
	privateKey *ecdsa.PrivateKey
	accountID  ethcommon.Address
}

var _ BlobRequestSigner = (*LocalBlobRequestSigner)(nil)

// NewLocalBlobRequestSigner parses a hex private key, with or without the
// 0x prefix.
func NewLocalBlobRequestSigner(privateKeyHex string) (*LocalBlobRequestSigner, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(privateKeyHex, "0x"), "0X")
	privateKey, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return &LocalBlobRequestSigner{
		privateKey: privateKey,
		accountID:  crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// AccountID is the address recovered from any signature this signer
// produces: keccak256 of the uncompressed public key, last 20 bytes.
func (s *LocalBlobRequestSigner) AccountID() ethcommon.Address {
	return s.accountID
}

// SignBlobKey signs the blob key digest directly.
func (s *LocalBlobRequestSigner) SignBlobKey(key core.BlobKey) ([]byte, error) {
	sig, err := crypto.Sign(key.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignatureError, err)
	}
	return normalizeRecoveryByte(sig), nil
}

// SignPaymentStateRequest signs the payment-state query digest:
// SHA256(keccak256(len_prefix(address) || be_u64(timestampNs))). Both hash
// layers are part of the wire protocol; the server silently rejects
// anything else.
func (s *LocalBlobRequestSigner) SignPaymentStateRequest(timestampNs int64) ([]byte, error) {
	digest := PaymentStateRequestDigest(s.accountID, timestampNs)
	sig, err := crypto.Sign(digest[:], s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignatureError, err)
	}
	return normalizeRecoveryByte(sig), nil
}

// PaymentStateRequestDigest builds the signed digest of a payment-state
// query: the address is length-prefixed with a single byte, the timestamp
// appended as a big-endian u64, keccak-hashed and then sha256-wrapped.
func PaymentStateRequestDigest(accountID ethcommon.Address, timestampNs int64) [32]byte {
	buf := make([]byte, 0, 1+len(accountID)+8)
	buf = append(buf, byte(len(accountID)))
	buf = append(buf, accountID.Bytes()...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(timestampNs))
	return sha256.Sum256(crypto.Keccak256(buf))
}

// the wire wants 0/1; geth's crypto.Sign already emits that, but guard
// against 27/28 from other secp256k1 backends
func normalizeRecoveryByte(sig []byte) []byte {
	if len(sig) == 65 && sig[64] >= 27 {
		sig[64] -= 27
	}
	return sig
}
