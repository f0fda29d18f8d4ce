package clients

import (
	"context"
	"testing"

	retriever_rpc "github.com/Layr-Labs/eigenda/api/grpc/retriever/v2"
	"github.com/NilFoundation/eigenda-client/core"
	"github.com/NilFoundation/eigenda-client/core/auth"
	"github.com/NilFoundation/eigenda-client/encoding/codec"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

type fakeRetrieverRPC struct {
	retrieveBlob func(*retriever_rpc.BlobRequest) (*retriever_rpc.BlobReply, error)
}

func (f *fakeRetrieverRPC) RetrieveBlob(
	_ context.Context, in *retriever_rpc.BlobRequest, _ ...grpc.CallOption,
) (*retriever_rpc.BlobReply, error) {
	return f.retrieveBlob(in)
}

func retrievalHeader(t *testing.T) *core.BlobHeader {
	t.Helper()

	signer, err := auth.NewLocalBlobRequestSigner(testPrivateKeyHex)
	require.NoError(t, err)

	reply := commitmentReply(1)
	commitments, err := core.BlobCommitmentsFromProtobuf(reply.GetBlobCommitment())
	require.NoError(t, err)

	header, err := core.NewBlobHeader(0, []core.QuorumID{0}, commitments, core.PaymentMetadata{
		AccountID: signer.AccountID(),
		Timestamp: testTimestampNs,
	})
	require.NoError(t, err)
	return header
}

func TestRetrieveBlob(t *testing.T) {
	t.Parallel()

	payload := []byte("Hello, EigenDA!")
	encoded := codec.EncodeBlob(payload)

	var seen *retriever_rpc.BlobRequest
	rpc := &fakeRetrieverRPC{
		retrieveBlob: func(in *retriever_rpc.BlobRequest) (*retriever_rpc.BlobReply, error) {
			seen = in
			return &retriever_rpc.BlobReply{Data: encoded}, nil
		},
	}
	client := NewRetrieverClientWithRPC(RetrieverClientConfig{Hostname: "localhost"}, rpc)

	header := retrievalHeader(t)
	data, err := client.RetrieveBlob(context.Background(), header, 1234, 0)
	require.NoError(t, err)
	require.Equal(t, encoded, data)

	require.EqualValues(t, 1234, seen.GetReferenceBlockNumber())
	require.Zero(t, seen.GetQuorumId())
	require.Equal(t, header.PaymentMetadata.AccountID,
		ethcommon.HexToAddress(seen.GetBlobHeader().GetPaymentHeader().GetAccountId()))

	decoded, err := codec.DecodeBlob(data, len(payload))
	require.NoError(t, err)
	require.Equal(t, payload, decoded)
}

func TestRetrieveBlob_NilHeader(t *testing.T) {
	t.Parallel()

	client := NewRetrieverClientWithRPC(RetrieverClientConfig{}, &fakeRetrieverRPC{})
	_, err := client.RetrieveBlob(context.Background(), nil, 0, 0)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRetrieveBlob_TransportError(t *testing.T) {
	t.Parallel()

	rpc := &fakeRetrieverRPC{
		retrieveBlob: func(*retriever_rpc.BlobRequest) (*retriever_rpc.BlobReply, error) {
			return nil, grpcstatus.Error(codes.Unavailable, "node down")
		},
	}
	client := NewRetrieverClientWithRPC(RetrieverClientConfig{}, rpc)

	_, err := client.RetrieveBlob(context.Background(), retrievalHeader(t), 0, 0)
	require.ErrorIs(t, err, ErrTransport)
}
