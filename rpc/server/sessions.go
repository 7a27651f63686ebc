package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/opexec/lib/store"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

var (
	sessionsOpened  = metrics.GetOrCreateCounter("opexec_rpc_sessions_opened_total")
	sessionsExpired = metrics.GetOrCreateCounter("opexec_rpc_sessions_expired_total")
)

// session is an open transaction on the server
type session struct {
	mu       sync.Mutex
	tx       store.ITransaction
	closed   bool
	lastUsed atomic.Int64 // unix nano
}

// sessionTable holds the open transactions of one shard.
// Sessions idle for longer than the timeout are aborted by a background janitor.
type sessionTable struct {
	sessions *xsync.MapOf[string, *session]
	timeout  time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// newSessionTable creates a session table. A timeout <= 0 disables the janitor.
func newSessionTable(timeout time.Duration) *sessionTable {
	t := &sessionTable{
		sessions: xsync.NewMapOf[string, *session](),
		timeout:  timeout,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if timeout > 0 {
		go t.janitor()
	}
	return t
}

// open registers tx and returns its session id
func (t *sessionTable) open(tx store.ITransaction) string {
	id := uuid.NewString()
	s := &session{tx: tx}
	s.lastUsed.Store(t.now().UnixNano())
	t.sessions.Store(id, s)
	sessionsOpened.Inc()
	return id
}

// use runs fn on the transaction of the session with the given id.
// If fn reports finished the session is removed. Unknown, expired and closed sessions
// return false without calling fn.
func (t *sessionTable) use(id string, fn func(tx store.ITransaction) (finished bool)) bool {
	s, ok := t.sessions.Load(id)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.lastUsed.Store(t.now().UnixNano())
	if fn(s.tx) {
		s.closed = true
		t.sessions.Delete(id)
	}
	return true
}

// abort aborts and removes a session, unknown ids are ignored
func (t *sessionTable) abort(id string) error {
	s, ok := t.sessions.LoadAndDelete(id)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.tx.Abort()
}

// expire aborts all sessions idle for longer than the timeout and returns their number.
// Sessions currently in use are skipped.
func (t *sessionTable) expire() int {
	deadline := t.now().Add(-t.timeout).UnixNano()
	expired := 0
	t.sessions.Range(func(id string, s *session) bool {
		if s.lastUsed.Load() > deadline || !s.mu.TryLock() {
			return true
		}
		if !s.closed && s.lastUsed.Load() <= deadline {
			s.closed = true
			t.sessions.Delete(id)
			if err := s.tx.Abort(); err != nil {
				Logger.Warningf("failed to abort expired session %s: %v", id, err)
			}
			expired++
		}
		s.mu.Unlock()
		return true
	})
	if expired > 0 {
		sessionsExpired.Add(expired)
		Logger.Debugf("expired %d idle sessions", expired)
	}
	return expired
}

// size returns the number of open sessions
func (t *sessionTable) size() int {
	return t.sessions.Size()
}

// close stops the janitor and aborts all open sessions
func (t *sessionTable) close() {
	t.stopOnce.Do(func() { close(t.stop) })
	t.sessions.Range(func(id string, _ *session) bool {
		_ = t.abort(id)
		return true
	})
}

func (t *sessionTable) janitor() {
	ticker := time.NewTicker(max(t.timeout/2, 10*time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.expire()
		}
	}
}
