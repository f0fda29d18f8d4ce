// Package bn254 handles the compressed BN254 points the disperser returns.
// The wire format is gnark's: the two most significant bits of the first
// byte select infinity (0x40), the lexicographically smaller y (0x80) or the
// larger y (0xC0); G1 is 32 bytes, G2 is 64 with the x1 limb first.
package bn254

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
)

const (
	SizeG1Compressed = 32
	SizeG2Compressed = 64

	flagMask         = 0b11 << 6
	flagUncompressed = 0b00 << 6
)

var (
	ErrInvalidPoint = errors.New("malformed curve point encoding")
	ErrNotOnCurve   = errors.New("encoding does not decompress to a curve point")
)

// G1Point is a decompressed G1 point. Coordinates are canonical field
// scalars; the point at infinity has X = Y = 0.
type G1Point struct {
	X *big.Int
	Y *big.Int
}

// G2Point is a decompressed G2 point over Fp2. Limb order is (a0, a1),
// i.e. X[0] + X[1]*u.
type G2Point struct {
	X [2]*big.Int
	Y [2]*big.Int
}

// DeserializeG1 decompresses a 32-byte gnark-flagged G1 encoding.
func DeserializeG1(data []byte) (*G1Point, error) {
	if len(data) != SizeG1Compressed {
		return nil, fmt.Errorf("%w: G1 wants %d bytes, got %d", ErrInvalidPoint, SizeG1Compressed, len(data))
	}
	if data[0]&flagMask == flagUncompressed {
		return nil, fmt.Errorf("%w: missing compression flag", ErrInvalidPoint)
	}

	var point bn254.G1Affine
	if _, err := point.SetBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotOnCurve, err)
	}

	return &G1Point{
		X: point.X.BigInt(new(big.Int)),
		Y: point.Y.BigInt(new(big.Int)),
	}, nil
}

// DeserializeG2 decompresses a 64-byte gnark-flagged G2 encoding.
func DeserializeG2(data []byte) (*G2Point, error) {
	if len(data) != SizeG2Compressed {
		return nil, fmt.Errorf("%w: G2 wants %d bytes, got %d", ErrInvalidPoint, SizeG2Compressed, len(data))
	}
	if data[0]&flagMask == flagUncompressed {
		return nil, fmt.Errorf("%w: missing compression flag", ErrInvalidPoint)
	}

	var point bn254.G2Affine
	if _, err := point.SetBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotOnCurve, err)
	}

	return &G2Point{
		X: [2]*big.Int{
			point.X.A0.BigInt(new(big.Int)),
			point.X.A1.BigInt(new(big.Int)),
		},
		Y: [2]*big.Int{
			point.Y.A0.BigInt(new(big.Int)),
			point.Y.A1.BigInt(new(big.Int)),
		},
	}, nil
}

// Serialize re-compresses the point into the gnark wire form.
func (p *G1Point) Serialize() [SizeG1Compressed]byte {
	var point bn254.G1Affine
	point.X.SetBigInt(p.X)
	point.Y.SetBigInt(p.Y)
	return point.Bytes()
}

// Serialize re-compresses the point into the gnark wire form.
func (p *G2Point) Serialize() [SizeG2Compressed]byte {
	var point bn254.G2Affine
	point.X.A0.SetBigInt(p.X[0])
	point.X.A1.SetBigInt(p.X[1])
	point.Y.A0.SetBigInt(p.Y[0])
	point.Y.A1.SetBigInt(p.Y[1])
	return point.Bytes()
}
