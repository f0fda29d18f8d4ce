package clients

import (
	"errors"
	"fmt"

	"github.com/NilFoundation/eigenda-client/core"
)

var (
	// ErrInvalidInput covers caller mistakes: empty payloads, empty or
	// duplicated quorums, unsupported versions.
	ErrInvalidInput = errors.New("invalid dispersal input")

	// ErrInsufficientFunds means neither an active reservation nor the
	// on-demand deposit can cover the blob. Reservation exhaustion folds
	// into this.
	ErrInsufficientFunds = errors.New("insufficient funds for dispersal")

	// ErrBlobKeyMismatch means the server derived a different key for the
	// header we sent. This is fatal: it indicates a codec or field-ordering
	// bug, not a transient condition.
	ErrBlobKeyMismatch = errors.New("server blob key does not match local blob key")

	// ErrSignatureRejected means the server refused our authentication.
	ErrSignatureRejected = errors.New("server rejected the request signature")

	// ErrTransport wraps RPC failures, timeouts and disconnects. The
	// accountant has been rolled back; the caller owns the retry policy.
	ErrTransport = errors.New("disperser transport failure")

	// ErrServerFailure means the server reported FAILED for the blob.
	ErrServerFailure = errors.New("disperser reported failure")
)

// BlobKeyMismatchError carries both keys for diagnostics.
type BlobKeyMismatchError struct {
	Expected core.BlobKey
	Got      core.BlobKey
}

func (e *BlobKeyMismatchError) Error() string {
	return fmt.Sprintf("blob key mismatch: computed %s, server returned %s", e.Expected, e.Got)
}

func (e *BlobKeyMismatchError) Unwrap() error {
	return ErrBlobKeyMismatch
}
