package client

import (
	"context"
	"time"

	"github.com/ValentinKolb/opexec/lib/store"
	"github.com/ValentinKolb/opexec/rpc/common"
	"github.com/ValentinKolb/opexec/rpc/serializer"
	"github.com/ValentinKolb/opexec/rpc/transport"
)

// abortTimeout bounds the Abort call, which has no context of its own
const abortTimeout = 5 * time.Second

// NewRPCStore creates a new RPC store
// The function takes a shard ID, a config, a transport and a serializer as parameters
// It returns a store.ITxStore whose transactions live on the server
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.ITxStore, error) {

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &rpcStore{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// rpcTransaction is the client side of a transaction session on the server
type rpcTransaction struct {
	adapter *rpcClientAdapter
	txID    string
	done    bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (s *rpcStore) Begin(ctx context.Context) (store.ITransaction, error) {
	resp, err := s.invoke(ctx, common.NewBeginRequest())
	if err != nil {
		return nil, err
	}
	if resp.TxID == "" {
		return nil, store.NewError(store.RetCBackendFailure, "rpc: begin response without transaction id")
	}
	return &rpcTransaction{adapter: &s.rpcClientAdapter, txID: resp.TxID}, nil
}

func (t *rpcTransaction) Exec(ctx context.Context, reqs *store.RequestList, commit bool) (*store.ResultList, error) {
	if t.done {
		return nil, store.NewError(store.RetCInvalidOperation, "transaction already finished")
	}

	resp, err := t.adapter.invoke(ctx, common.NewExecRequest(t.txID, reqs, commit))
	if err != nil {
		// the server ends the session after a failed round
		t.done = true
		return nil, err
	}
	if len(resp.Results) != reqs.Size() && resp.Error() == nil {
		t.done = true
		return nil, store.Errorf(store.RetCBackendFailure, "rpc: expected %d results, got %d", reqs.Size(), len(resp.Results))
	}

	if commit || resp.Error() != nil {
		t.done = true
	}
	if resp.Results == nil && resp.Error() != nil {
		return nil, resp.Error()
	}
	return store.NewResultList(resp.Results), resp.Error()
}

func (t *rpcTransaction) Abort() error {
	if t.done {
		return nil
	}
	t.done = true

	ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
	defer cancel()
	_, err := t.adapter.invoke(ctx, common.NewAbortRequest(t.txID))
	return err
}
