package auth

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/NilFoundation/eigenda-client/core"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// well-known throwaway key (hardhat account #0)
const (
	testPrivateKey  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAccountAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func newTestSigner(t *testing.T) *LocalBlobRequestSigner {
	t.Helper()
	signer, err := NewLocalBlobRequestSigner(testPrivateKey)
	require.NoError(t, err)
	return signer
}

func TestNewLocalBlobRequestSigner(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t)
	require.Equal(t, testAccountAddr, signer.AccountID().Hex())

	withPrefix, err := NewLocalBlobRequestSigner("0x" + testPrivateKey)
	require.NoError(t, err)
	require.Equal(t, signer.AccountID(), withPrefix.AccountID())

	_, err = NewLocalBlobRequestSigner("not-a-key")
	require.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewLocalBlobRequestSigner("")
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestSignBlobKey(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t)
	blobKey := core.BlobKey{0x01, 0x02, 0x03}

	sig, err := signer.SignBlobKey(blobKey)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	require.LessOrEqual(t, sig[64], byte(1), "recovery byte must be 0 or 1 on the wire")

	// the signature must recover to the account address
	pubkey, err := crypto.SigToPub(blobKey.Bytes(), sig)
	require.NoError(t, err)
	require.Equal(t, signer.AccountID(), crypto.PubkeyToAddress(*pubkey))
}

func TestSignPaymentStateRequest(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t)
	const timestampNs = int64(1_700_000_000_000_000_000)

	sig, err := signer.SignPaymentStateRequest(timestampNs)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	require.LessOrEqual(t, sig[64], byte(1))

	digest := PaymentStateRequestDigest(signer.AccountID(), timestampNs)
	pubkey, err := crypto.SigToPub(digest[:], sig)
	require.NoError(t, err)
	require.Equal(t, signer.AccountID(), crypto.PubkeyToAddress(*pubkey))
}

func TestPaymentStateRequestDigest(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t)
	const timestampNs = int64(42)

	// keccak over length-prefixed address plus big-endian timestamp,
	// wrapped in sha256; both layers are mandatory
	payload := []byte{20}
	payload = append(payload, signer.AccountID().Bytes()...)
	payload = binary.BigEndian.AppendUint64(payload, uint64(timestampNs))
	expected := sha256.Sum256(crypto.Keccak256(payload))

	require.Equal(t, expected, PaymentStateRequestDigest(signer.AccountID(), timestampNs))
}
