package server

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/opexec/lib/store"
	"github.com/ValentinKolb/opexec/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

// NewTxStoreServerAdapter creates an adapter serving the transactions of s.
// Sessions idle for longer than sessionTimeout are aborted (0 disables the expiry).
// If s implements io.Closer it is closed together with the adapter.
func NewTxStoreServerAdapter(s store.ITxStore, sessionTimeout time.Duration) IRPCServerAdapter {
	return &txStoreServerAdapterImpl{
		store:    s,
		sessions: newSessionTable(sessionTimeout),
	}
}

type txStoreServerAdapterImpl struct {
	store    store.ITxStore
	sessions *sessionTable
}

// errSessionGone is returned for rounds of unknown or expired sessions. The transaction
// is gone, so the caller has to start over like after a conflict.
var errSessionGone = store.NewError(store.RetCConflictAbort, "transaction session expired or unknown")

// --------------------------------------------------------------------------
// Interface Methods (docu see server.IRPCServerAdapter)
// --------------------------------------------------------------------------

func (adapter *txStoreServerAdapterImpl) Handle(req *common.Message) *common.Message {
	if adapter.store == nil {
		return common.NewErrorResponse(store.RetCInternalError, "handler: store is nil")
	}
	metrics.GetOrCreateCounter(fmt.Sprintf(`opexec_rpc_requests_total{type=%q}`, req.MsgType)).Inc()

	ctx := context.Background()

	switch req.MsgType {
	case common.MsgTTxBegin:
		tx, err := adapter.store.Begin(ctx)
		if err != nil {
			return common.NewBeginResponse("", err)
		}
		return common.NewBeginResponse(adapter.sessions.open(tx), nil)

	case common.MsgTTxExec:
		var resp *common.Message
		ok := adapter.sessions.use(req.TxID, func(tx store.ITransaction) bool {
			results, err := tx.Exec(ctx, store.NewRequestListOf(req.Requests), req.Commit)
			resp = common.NewExecResponse(req.TxID, results, err)
			if err != nil && !req.Commit {
				_ = tx.Abort()
			}
			return req.Commit || err != nil
		})
		if !ok {
			return common.NewExecResponse(req.TxID, nil, errSessionGone)
		}
		return resp

	case common.MsgTTxAbort:
		return common.NewAbortResponse(adapter.sessions.abort(req.TxID))

	default:
		return common.NewErrorResponse(store.RetCUnsupportedOperation,
			fmt.Sprintf("RPC TxStoreAdapter - Unsupported message type: %s", req.MsgType))
	}
}

func (adapter *txStoreServerAdapterImpl) Close() error {
	adapter.sessions.close()
	if c, ok := adapter.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
