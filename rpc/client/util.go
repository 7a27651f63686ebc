package client

import (
	"context"

	"github.com/ValentinKolb/opexec/lib/store"
	"github.com/ValentinKolb/opexec/rpc/common"
	"github.com/ValentinKolb/opexec/rpc/serializer"
	"github.com/ValentinKolb/opexec/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	shardId    uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invoke sends a request and returns the response.
// Transport and codec failures are returned as BackendFailure, error responses are
// converted back to store errors, so their codes survive the round trip.
// A response of a successful call may still carry an error (e.g. a failed commit).
func (a *rpcClientAdapter) invoke(ctx context.Context, req *common.Message) (*common.Message, error) {
	reqBytes, err := a.serializer.Serialize(*req)
	if err != nil {
		return nil, store.Errorf(store.RetCInternalError, "rpc: failed to serialize %s request: %v", req.MsgType, err)
	}

	respBytes, err := a.transport.Send(ctx, a.shardId, reqBytes)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		Logger.Warningf("%s request to shard %d failed: %v", req.MsgType, a.shardId, err)
		return nil, store.Errorf(store.RetCBackendFailure, "rpc: %v", err)
	}

	resp := &common.Message{}
	if err := a.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, store.Errorf(store.RetCBackendFailure, "rpc: failed to deserialize response: %v", err)
	}

	// Check if the response is an error response
	if resp.MsgType == common.MsgTError {
		if err := resp.Error(); err != nil {
			return nil, err
		}
		return nil, store.NewError(store.RetCInternalError, "rpc: error response without message")
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, store.Errorf(store.RetCBackendFailure, "rpc: unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	return resp, nil
}
