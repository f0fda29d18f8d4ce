package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/big"
	"net"
	"sync"
	"time"

	disperser_rpc "github.com/Layr-Labs/eigenda/api/grpc/disperser/v2"
	"github.com/NilFoundation/eigenda-client/common/logging"
	"github.com/NilFoundation/eigenda-client/core"
	"github.com/NilFoundation/eigenda-client/core/auth"
	"github.com/NilFoundation/eigenda-client/encoding/codec"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	DefaultDisperserPort  = "443"
	DefaultRequestTimeout = 30 * time.Second

	// blobs can reach tens of megabytes once encoded
	maxGrpcMessageSize = 32 * 1024 * 1024
)

type DisperserClientConfig struct {
	Hostname       string        `yaml:"hostname"`
	Port           string        `yaml:"port,omitempty"`
	UseSecureGrpc  bool          `yaml:"useSecureGrpc,omitempty"`
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`
}

func NewDisperserClientConfig(hostname, port string, useSecureGrpc bool) DisperserClientConfig {
	if port == "" {
		port = DefaultDisperserPort
	}
	return DisperserClientConfig{
		Hostname:       hostname,
		Port:           port,
		UseSecureGrpc:  useSecureGrpc,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// DisperserRPC is the slice of the generated disperser stub the client
// consumes; tests substitute a fake.
type DisperserRPC interface {
	DisperseBlob(
		ctx context.Context, in *disperser_rpc.DisperseBlobRequest, opts ...grpc.CallOption,
	) (*disperser_rpc.DisperseBlobReply, error)
	GetBlobStatus(
		ctx context.Context, in *disperser_rpc.BlobStatusRequest, opts ...grpc.CallOption,
	) (*disperser_rpc.BlobStatusReply, error)
	GetBlobCommitment(
		ctx context.Context, in *disperser_rpc.BlobCommitmentRequest, opts ...grpc.CallOption,
	) (*disperser_rpc.BlobCommitmentReply, error)
	GetPaymentState(
		ctx context.Context, in *disperser_rpc.GetPaymentStateRequest, opts ...grpc.CallOption,
	) (*disperser_rpc.GetPaymentStateReply, error)
	GetPaymentStateForAllQuorums(
		ctx context.Context, in *disperser_rpc.GetPaymentStateForAllQuorumsRequest, opts ...grpc.CallOption,
	) (*disperser_rpc.GetPaymentStateForAllQuorumsReply, error)
}

// DisperserClient drives one dispersal end to end: encode, fetch the
// commitment, allocate payment, build and sign the header, submit, verify
// the server's blob key. Safe for concurrent use; the payment path
// (resync, allocate, submit) is serialized by one lock so cumulative
// payments stay strictly increasing per account.
type DisperserClient struct {
	config     DisperserClientConfig
	signer     auth.BlobRequestSigner
	accountant Accountant
	logger     zerolog.Logger
	metrics    Metrics

	conn *grpc.ClientConn
	rpc  DisperserRPC

	// held across resync -> allocate -> submit
	paymentMu sync.Mutex
}

var _ PaymentStateQuerier = (*DisperserClient)(nil)

// NewDisperserClient dials the disperser (lazily; the connection is
// established on first use) and wires the accountant to it.
func NewDisperserClient(
	config DisperserClientConfig,
	signer auth.BlobRequestSigner,
	accountant Accountant,
	metrics Metrics,
) (*DisperserClient, error) {
	creds := insecure.NewCredentials()
	if config.UseSecureGrpc {
		creds = credentials.NewTLS(&tls.Config{})
	}
	conn, err := grpc.NewClient(
		net.JoinHostPort(config.Hostname, config.Port),
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxGrpcMessageSize),
			grpc.MaxCallSendMsgSize(maxGrpcMessageSize),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	client := newDisperserClientWithRPC(config, signer, accountant, metrics, disperser_rpc.NewDisperserClient(conn))
	client.conn = conn
	return client, nil
}

// NewDisperserClientWithRPC injects a transport; used by tests and by
// callers that manage their own connection.
func NewDisperserClientWithRPC(
	config DisperserClientConfig,
	signer auth.BlobRequestSigner,
	accountant Accountant,
	metrics Metrics,
	rpc DisperserRPC,
) *DisperserClient {
	return newDisperserClientWithRPC(config, signer, accountant, metrics, rpc)
}

func newDisperserClientWithRPC(
	config DisperserClientConfig,
	signer auth.BlobRequestSigner,
	accountant Accountant,
	metrics Metrics,
	rpc DisperserRPC,
) *DisperserClient {
	if metrics == nil {
		metrics = NoopMetrics()
	}
	return &DisperserClient{
		config:     config,
		signer:     signer,
		accountant: accountant,
		logger: logging.NewLogger("disperser-client").With().
			Str(logging.FieldAccountAddress, signer.AccountID().Hex()).
			Logger(),
		metrics: metrics,
		rpc:     rpc,
	}
}

// Close tears down the connection if this client owns one.
func (c *DisperserClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// DispersalResult is the full outcome of one dispersal. Retrieval needs the
// header later, together with the original payload length, which is not
// part of the result.
type DispersalResult struct {
	Status  core.BlobStatus
	BlobKey core.BlobKey
	Header  *core.BlobHeader
}

// DisperseBlob encodes and submits data to the given quorums. It returns
// the server's status for the accepted blob together with the blob key
// under which it can be tracked and retrieved.
func (c *DisperserClient) DisperseBlob(
	ctx context.Context,
	data []byte,
	version core.BlobVersion,
	quorums []core.QuorumID,
) (core.BlobStatus, core.BlobKey, error) {
	result, err := c.DisperseBlobDetailed(ctx, data, version, quorums)
	if err != nil {
		return core.BlobStatusUnknown, core.BlobKey{}, err
	}
	return result.Status, result.BlobKey, nil
}

// DisperseBlobDetailed is DisperseBlob returning the dispersed header as
// well, for callers that persist it for retrieval.
func (c *DisperserClient) DisperseBlobDetailed(
	ctx context.Context,
	data []byte,
	version core.BlobVersion,
	quorums []core.QuorumID,
) (*DispersalResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidInput)
	}
	if len(quorums) == 0 {
		return nil, fmt.Errorf("%w: no quorums requested", ErrInvalidInput)
	}

	encoded := codec.EncodeBlob(data)
	commitments, err := c.GetBlobCommitment(ctx, encoded)
	if err != nil {
		c.metrics.RecordError(ctx, "commitment")
		return nil, err
	}

	c.paymentMu.Lock()
	defer c.paymentMu.Unlock()

	if err := c.accountant.SyncPaymentState(ctx, c); err != nil {
		c.metrics.RecordError(ctx, "payment_state")
		return nil, err
	}

	timestampNs := time.Now().UnixNano()
	record, err := c.accountant.AccountBlob(codec.BlobSymbols(len(encoded)), quorums, timestampNs)
	if err != nil {
		c.metrics.RecordError(ctx, "accountant")
		return nil, err
	}

	result, err := c.submit(ctx, encoded, version, quorums, commitments, record, timestampNs)
	if err != nil {
		c.accountant.Rollback(record.CommitID)
		c.metrics.RecordRollback(ctx)
		return nil, err
	}

	c.accountant.Commit(record.CommitID)
	c.metrics.RecordDispersal(ctx, record.Method, len(data))
	c.logger.Info().
		Str(logging.FieldBlobKey, result.BlobKey.Hex()).
		Int(logging.FieldBlobSize, len(data)).
		Str(logging.FieldBlobStatus, result.Status.String()).
		Str(logging.FieldPaymentMethod, record.Method.String()).
		Msg("blob dispersed")
	return result, nil
}

// submit covers steps 4-9 of a dispersal: header, key, signature, RPC and
// the blob-key cross-check. Any error means the payment allocation must be
// rolled back by the caller.
func (c *DisperserClient) submit(
	ctx context.Context,
	encoded []byte,
	version core.BlobVersion,
	quorums []core.QuorumID,
	commitments *core.BlobCommitments,
	record *PaymentRecord,
	timestampNs int64,
) (*DispersalResult, error) {
	header, err := core.NewBlobHeader(version, quorums, commitments, core.PaymentMetadata{
		AccountID:         c.signer.AccountID(),
		Timestamp:         timestampNs,
		CumulativePayment: record.CumulativePayment,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	blobKey, err := header.BlobKey()
	if err != nil {
		return nil, err
	}

	signature, err := c.signer.SignBlobKey(blobKey)
	if err != nil {
		return nil, err
	}

	rpcCtx, cancel := c.requestContext(ctx)
	defer cancel()
	reply, err := c.rpc.DisperseBlob(rpcCtx, &disperser_rpc.DisperseBlobRequest{
		Blob:       encoded,
		BlobHeader: header.ToProtobuf(),
		Signature:  signature,
	})
	if err != nil {
		return nil, classifyRPCError(err)
	}

	serverKey, err := core.BlobKeyFromBytes(reply.GetBlobKey())
	if err != nil {
		return nil, fmt.Errorf("server returned %w", err)
	}
	if serverKey != blobKey {
		return nil, &BlobKeyMismatchError{Expected: blobKey, Got: serverKey}
	}

	status := core.BlobStatus(reply.GetResult())
	if status == core.BlobStatusFailed || status == core.BlobStatusUnknown {
		return nil, fmt.Errorf("%w: dispersal returned status %s", ErrServerFailure, status)
	}
	return &DispersalResult{
		Status:  status,
		BlobKey: blobKey,
		Header:  header,
	}, nil
}

// GetBlobCommitment asks the server to commit to the encoded payload and
// decompresses the returned points.
func (c *DisperserClient) GetBlobCommitment(ctx context.Context, encodedData []byte) (*core.BlobCommitments, error) {
	rpcCtx, cancel := c.requestContext(ctx)
	defer cancel()
	reply, err := c.rpc.GetBlobCommitment(rpcCtx, &disperser_rpc.BlobCommitmentRequest{
		Blob: encodedData,
	})
	if err != nil {
		return nil, classifyRPCError(err)
	}

	commitments, err := core.BlobCommitmentsFromProtobuf(reply.GetBlobCommitment())
	if err != nil {
		return nil, err
	}
	if symbols := codec.BlobSymbols(len(encodedData)); uint64(commitments.Length) != symbols {
		return nil, fmt.Errorf("%w: committed length %d, encoded %d symbols",
			core.ErrInvalidCommitment, commitments.Length, symbols)
	}
	return commitments, nil
}

// GetBlobStatus fetches the dispersal status of a blob.
func (c *DisperserClient) GetBlobStatus(ctx context.Context, blobKey core.BlobKey) (core.BlobStatus, error) {
	rpcCtx, cancel := c.requestContext(ctx)
	defer cancel()
	reply, err := c.rpc.GetBlobStatus(rpcCtx, &disperser_rpc.BlobStatusRequest{
		BlobKey: blobKey.Bytes(),
	})
	if err != nil {
		return core.BlobStatusUnknown, classifyRPCError(err)
	}
	return core.BlobStatus(reply.GetStatus()), nil
}

// WaitForComplete polls the blob status until it is terminal or the
// context expires.
func (c *DisperserClient) WaitForComplete(
	ctx context.Context,
	blobKey core.BlobKey,
	pollInterval time.Duration,
) (core.BlobStatus, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.GetBlobStatus(ctx, blobKey)
		if err != nil {
			return core.BlobStatusUnknown, err
		}
		if status.Terminal() {
			if status == core.BlobStatusFailed {
				return status, fmt.Errorf("%w: blob %s", ErrServerFailure, blobKey)
			}
			return status, nil
		}
		c.logger.Debug().
			Str(logging.FieldBlobKey, blobKey.Hex()).
			Str(logging.FieldBlobStatus, status.String()).
			Msg("waiting for dispersal to complete")

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}

// QueryPaymentState fetches the signed single-reservation account view.
func (c *DisperserClient) QueryPaymentState(ctx context.Context) (*core.PaymentState, error) {
	timestampNs := time.Now().UnixNano()
	signature, err := c.signer.SignPaymentStateRequest(timestampNs)
	if err != nil {
		return nil, err
	}

	rpcCtx, cancel := c.requestContext(ctx)
	defer cancel()
	reply, err := c.rpc.GetPaymentState(rpcCtx, &disperser_rpc.GetPaymentStateRequest{
		AccountId: c.signer.AccountID().Hex(),
		Signature: signature,
		Timestamp: uint64(timestampNs),
	})
	if err != nil {
		return nil, classifyRPCError(err)
	}
	return paymentStateFromProtobuf(reply), nil
}

// QueryQuorumPaymentState fetches the signed per-quorum account view.
func (c *DisperserClient) QueryQuorumPaymentState(ctx context.Context) (*core.QuorumPaymentState, error) {
	timestampNs := time.Now().UnixNano()
	signature, err := c.signer.SignPaymentStateRequest(timestampNs)
	if err != nil {
		return nil, err
	}

	rpcCtx, cancel := c.requestContext(ctx)
	defer cancel()
	reply, err := c.rpc.GetPaymentStateForAllQuorums(rpcCtx, &disperser_rpc.GetPaymentStateForAllQuorumsRequest{
		AccountId: c.signer.AccountID().Hex(),
		Signature: signature,
		Timestamp: uint64(timestampNs),
	})
	if err != nil {
		return nil, classifyRPCError(err)
	}
	return quorumPaymentStateFromProtobuf(reply), nil
}

// PaymentInfo is a read-only snapshot of the account's payment standing.
type PaymentInfo struct {
	HasReservation           bool
	CumulativePayment        *big.Int
	OnchainCumulativePayment *big.Int
	PricePerSymbol           uint64
	MinNumSymbols            uint64
	ReservationWindow        uint64
}

// GetPaymentInfo summarizes the server's current view of the account.
func (c *DisperserClient) GetPaymentInfo(ctx context.Context) (*PaymentInfo, error) {
	state, err := c.QueryPaymentState(ctx)
	if err != nil {
		return nil, err
	}
	info := &PaymentInfo{
		HasReservation:           state.Reservation != nil,
		CumulativePayment:        state.CumulativePayment,
		OnchainCumulativePayment: state.OnchainCumulativePayment,
		PricePerSymbol:           state.PricePerSymbol,
		MinNumSymbols:            state.MinNumSymbols,
		ReservationWindow:        state.ReservationWindow,
	}
	return info, nil
}

func (c *DisperserClient) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.config.RequestTimeout)
}

func classifyRPCError(err error) error {
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return fmt.Errorf("%w: %s", ErrSignatureRejected, s.Message())
		}
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
