// Package codec converts raw payloads to and from the byte layout the
// disperser accepts: every 32-byte symbol must be a canonical BN254 field
// element, which is guaranteed by keeping the leading byte of each symbol
// zero and packing payload bytes into the remaining 31.
package codec

import (
	"errors"
	"fmt"
)

const (
	BytesPerSymbol       = 32
	BytesPerFieldElement = 31
)

var (
	ErrUnexpectedLength = errors.New("encoded length does not match the original length")
	ErrInvalidPadding   = errors.New("encoded symbol does not start with a zero byte")
)

// EncodeBlob inserts a zero byte before every 31-byte window of data and
// right-pads the final window with zeros, so that the result is a whole
// number of 32-byte symbols. An empty input encodes to an empty output.
func EncodeBlob(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}

	numSymbols := (len(data) + BytesPerFieldElement - 1) / BytesPerFieldElement
	encoded := make([]byte, numSymbols*BytesPerSymbol)

	for i := range numSymbols {
		start := i * BytesPerFieldElement
		end := min(start+BytesPerFieldElement, len(data))
		copy(encoded[i*BytesPerSymbol+1:], data[start:end])
	}
	return encoded
}

// DecodeBlob strips the per-symbol padding inserted by EncodeBlob. The
// original payload length must be supplied: trailing payload zeros are
// indistinguishable from pad bytes otherwise.
func DecodeBlob(encoded []byte, length int) ([]byte, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrUnexpectedLength, length)
	}
	if length == 0 {
		if len(encoded) != 0 {
			return nil, fmt.Errorf("%w: got %d encoded bytes for an empty payload", ErrUnexpectedLength, len(encoded))
		}
		return nil, nil
	}

	numSymbols := (length + BytesPerFieldElement - 1) / BytesPerFieldElement
	if len(encoded) != numSymbols*BytesPerSymbol {
		return nil, fmt.Errorf("%w: got %d encoded bytes, want %d for payload length %d",
			ErrUnexpectedLength, len(encoded), numSymbols*BytesPerSymbol, length)
	}

	decoded := make([]byte, 0, length)
	for i := range numSymbols {
		symbol := encoded[i*BytesPerSymbol : (i+1)*BytesPerSymbol]
		if symbol[0] != 0x00 {
			return nil, fmt.Errorf("%w: symbol %d", ErrInvalidPadding, i)
		}
		remaining := length - len(decoded)
		decoded = append(decoded, symbol[1:1+min(BytesPerFieldElement, remaining)]...)
	}
	return decoded, nil
}

// BlobSymbols is the number of 32-byte symbols in an encoded blob, the unit
// the disperser prices in.
func BlobSymbols(encodedLen int) uint64 {
	if encodedLen <= 0 {
		return 0
	}
	return uint64((encodedLen + BytesPerSymbol - 1) / BytesPerSymbol)
}
