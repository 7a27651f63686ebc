package server

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/ValentinKolb/opexec/lib/store"
	"github.com/ValentinKolb/opexec/lib/store/bstore"
	"github.com/ValentinKolb/opexec/lib/store/lstore"
	"github.com/ValentinKolb/opexec/rpc/common"
	"github.com/ValentinKolb/opexec/rpc/serializer"
	"github.com/ValentinKolb/opexec/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, IRPCServerAdapter](),
	}
}

// RPCServer hosts one transactional store per shard and serves their transactions
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, IRPCServerAdapter]
}

// handle decodes a request, passes it to the adapter of the shard and encodes the response
func (s *RPCServer) handle(shardId uint64, req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	if adapter, ok := s.shards.Load(shardId); !ok {
		respMsg = common.NewErrorResponse(store.RetCInvalidOperation, fmt.Sprintf("shard %d not found", shardId))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(store.RetCInternalError, fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		respMsg = adapter.Handle(&msg)
	}

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize %s response: %v", respMsg.MsgType, err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(store.RetCInternalError,
			fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// newShardStore creates the store backing a shard
func (s *RPCServer) newShardStore(shard common.ServerShard) (store.ITxStore, error) {
	switch shard.Type {
	case common.ShardTypeLocalStore:
		return lstore.NewLocalStore(), nil
	case common.ShardTypeBoltStore:
		if err := os.MkdirAll(s.config.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		return bstore.New(bstore.Config{
			Path: filepath.Join(s.config.DataDir, fmt.Sprintf("shard-%d.db", shard.ShardID)),
		})
	default:
		return nil, fmt.Errorf("invalid shard type: %s", shard.Type)
	}
}

// init creates all shards and registers the transport handler
func (s *RPCServer) init() error {
	for _, shardConfig := range s.config.Shards {
		if _, exists := s.shards.Load(shardConfig.ShardID); exists {
			return fmt.Errorf("duplicate shard id %d", shardConfig.ShardID)
		}

		st, err := s.newShardStore(shardConfig)
		if err != nil {
			return fmt.Errorf("failed to create shard %d: %w", shardConfig.ShardID, err)
		}
		s.shards.Store(shardConfig.ShardID, NewTxStoreServerAdapter(st, s.config.SessionTimeout()))
		Logger.Infof("created %s for shard %d", shardConfig.Type, shardConfig.ShardID)
	}

	s.transport.RegisterHandler(s.handle)
	Logger.Infof("opexec server setup completed successfully")
	return nil
}

// Serve starts the RPC server
// This function will also initialize the shards and start the transport layer
func (s *RPCServer) Serve() error {
	Logger.Infof("Created RPC Server")
	Logger.Infof("%s", s.config.String())

	if err := s.init(); err != nil {
		return errors.Join(err, s.Close())
	}
	return errors.Join(s.transport.Listen(s.config), s.Close())
}

// Close aborts all open sessions and closes the shard stores
func (s *RPCServer) Close() error {
	var errs []error
	s.shards.Range(func(id uint64, adapter IRPCServerAdapter) bool {
		if err := adapter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("shard %d: %w", id, err))
		}
		s.shards.Delete(id)
		return true
	})
	return errors.Join(errs...)
}
