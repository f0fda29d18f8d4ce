package bn254

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func compressedG1(scalar int64) []byte {
	_, _, g1, _ := bn254.Generators()
	var point bn254.G1Affine
	point.ScalarMultiplication(&g1, big.NewInt(scalar))
	raw := point.Bytes()
	return raw[:]
}

func compressedG2(scalar int64) []byte {
	_, _, _, g2 := bn254.Generators()
	var point bn254.G2Affine
	point.ScalarMultiplication(&g2, big.NewInt(scalar))
	raw := point.Bytes()
	return raw[:]
}

func TestDeserializeG1_RoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		scalar := rapid.Int64Range(1, 1<<40).Draw(t, "scalar")
		compressed := compressedG1(scalar)

		point, err := DeserializeG1(compressed)
		if err != nil {
			t.Fatalf("deserialize failed: %v", err)
		}
		serialized := point.Serialize()
		if string(serialized[:]) != string(compressed) {
			t.Fatalf("compress(decompress(c)) != c")
		}
	})
}

func TestDeserializeG2_RoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		scalar := rapid.Int64Range(1, 1<<40).Draw(t, "scalar")
		compressed := compressedG2(scalar)

		point, err := DeserializeG2(compressed)
		if err != nil {
			t.Fatalf("deserialize failed: %v", err)
		}
		serialized := point.Serialize()
		if string(serialized[:]) != string(compressed) {
			t.Fatalf("compress(decompress(c)) != c")
		}
	})
}

func TestDeserializeG1_Infinity(t *testing.T) {
	t.Parallel()

	compressed := make([]byte, SizeG1Compressed)
	compressed[0] = 0x40

	point, err := DeserializeG1(compressed)
	require.NoError(t, err)
	require.Zero(t, point.X.Sign())
	require.Zero(t, point.Y.Sign())

	serialized := point.Serialize()
	require.Equal(t, compressed, serialized[:])
}

func TestDeserializeG1_BadLength(t *testing.T) {
	t.Parallel()

	_, err := DeserializeG1(make([]byte, 31))
	require.ErrorIs(t, err, ErrInvalidPoint)

	_, err = DeserializeG1(make([]byte, 64))
	require.ErrorIs(t, err, ErrInvalidPoint)

	_, err = DeserializeG2(make([]byte, 32))
	require.ErrorIs(t, err, ErrInvalidPoint)
}

func TestDeserializeG1_MissingFlag(t *testing.T) {
	t.Parallel()

	// a 32-byte buffer without compression bits is not a compressed point
	raw := compressedG1(7)
	raw[0] &^= byte(0b11 << 6)

	_, err := DeserializeG1(raw)
	require.ErrorIs(t, err, ErrInvalidPoint)
}

func TestDeserializeG1_NonResidue(t *testing.T) {
	t.Parallel()

	// find an x with no y solving y^2 = x^3 + 3, then expect rejection
	three := fp.NewElement(3)
	for x := uint64(1); ; x++ {
		var rhs, xe fp.Element
		xe.SetUint64(x)
		rhs.Square(&xe).Mul(&rhs, &xe).Add(&rhs, &three)
		if rhs.Legendre() != -1 {
			continue
		}

		var compressed [SizeG1Compressed]byte
		xBytes := xe.Bytes()
		copy(compressed[:], xBytes[:])
		compressed[0] |= 0x80

		_, err := DeserializeG1(compressed[:])
		require.ErrorIs(t, err, ErrNotOnCurve)
		return
	}
}
