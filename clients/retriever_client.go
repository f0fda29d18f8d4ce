package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	retriever_rpc "github.com/Layr-Labs/eigenda/api/grpc/retriever/v2"
	"github.com/NilFoundation/eigenda-client/common/logging"
	"github.com/NilFoundation/eigenda-client/core"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

type RetrieverClientConfig struct {
	Hostname       string        `yaml:"hostname"`
	Port           string        `yaml:"port,omitempty"`
	UseSecureGrpc  bool          `yaml:"useSecureGrpc,omitempty"`
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`
}

// RetrieverRPC is the slice of the generated retriever stub the client
// consumes.
type RetrieverRPC interface {
	RetrieveBlob(
		ctx context.Context, in *retriever_rpc.BlobRequest, opts ...grpc.CallOption,
	) (*retriever_rpc.BlobReply, error)
}

// RetrieverClient fetches blobs back from the storage nodes. The caller
// supplies the header and reference block number it kept from the
// dispersal; decoding the returned bytes is done with the codec package
// and the original payload length.
type RetrieverClient struct {
	config RetrieverClientConfig
	logger zerolog.Logger

	conn *grpc.ClientConn
	rpc  RetrieverRPC
}

func NewRetrieverClient(config RetrieverClientConfig) (*RetrieverClient, error) {
	creds := insecure.NewCredentials()
	if config.UseSecureGrpc {
		creds = credentials.NewTLS(&tls.Config{})
	}
	conn, err := grpc.NewClient(
		net.JoinHostPort(config.Hostname, config.Port),
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxGrpcMessageSize)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	client := NewRetrieverClientWithRPC(config, retriever_rpc.NewRetrieverClient(conn))
	client.conn = conn
	return client, nil
}

func NewRetrieverClientWithRPC(config RetrieverClientConfig, rpc RetrieverRPC) *RetrieverClient {
	return &RetrieverClient{
		config: config,
		logger: logging.NewLogger("retriever-client"),
		rpc:    rpc,
	}
}

func (c *RetrieverClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// RetrieveBlob fetches the encoded payload of a dispersed blob from one
// quorum's storage nodes.
func (c *RetrieverClient) RetrieveBlob(
	ctx context.Context,
	header *core.BlobHeader,
	referenceBlockNumber uint32,
	quorumID core.QuorumID,
) ([]byte, error) {
	if header == nil {
		return nil, fmt.Errorf("%w: nil blob header", ErrInvalidInput)
	}

	rpcCtx := ctx
	if c.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		rpcCtx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
	}

	reply, err := c.rpc.RetrieveBlob(rpcCtx, &retriever_rpc.BlobRequest{
		BlobHeader:           header.ToProtobuf(),
		ReferenceBlockNumber: referenceBlockNumber,
		QuorumId:             uint32(quorumID),
	})
	if err != nil {
		return nil, classifyRPCError(err)
	}
	c.logger.Debug().
		Int(logging.FieldBlobSize, len(reply.GetData())).
		Msg("blob retrieved")
	return reply.GetData(), nil
}
