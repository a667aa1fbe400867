package tcp

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/emberkv/ember/lib/snapshot"
	"github.com/emberkv/ember/lib/store"
	"github.com/emberkv/ember/server/protocol"
)

// Handler dispatches parsed commands against a Router and, for the save
// subset of STATS bookkeeping, tracks connection and command counts the
// underlying store has no notion of. Grounded on the original request
// handler's per-command switch and its connection/command accounting.
type Handler struct {
	router          *store.Router
	snapshotManager *snapshot.Manager
	startedAt       time.Time

	totalConnections  atomic.Int64
	activeConnections atomic.Int64
	totalCommands     atomic.Int64
}

// NewHandler builds a Handler over router. snapshotManager may be nil, in
// which case STATS reports no snapshot directory.
func NewHandler(router *store.Router, snapshotManager *snapshot.Manager) *Handler {
	return &Handler{
		router:          router,
		snapshotManager: snapshotManager,
		startedAt:       time.Now(),
	}
}

func (h *Handler) recordConnectionOpened() {
	h.totalConnections.Add(1)
	h.activeConnections.Add(1)
}

func (h *Handler) recordConnectionClosed() {
	h.activeConnections.Add(-1)
}

// Handle parses and dispatches one request line, returning the reply to
// write and whether the connection should be closed after writing it.
func (h *Handler) Handle(line string) (protocol.Response, bool) {
	h.totalCommands.Add(1)
	cmd := protocol.Parse(line)
	return h.dispatch(cmd)
}

func (h *Handler) dispatch(cmd protocol.Command) (protocol.Response, bool) {
	switch cmd.Name {
	case protocol.Set:
		return h.handleSet(cmd), false
	case protocol.Get:
		return h.handleGet(cmd), false
	case protocol.Del:
		return h.handleDel(cmd), false
	case protocol.Expire:
		return h.handleExpire(cmd), false
	case protocol.Ping:
		return protocol.SimpleString("PONG"), false
	case protocol.Stats:
		return h.handleStats(), false
	case protocol.Quit:
		return protocol.SimpleString("Goodbye"), true
	default:
		return protocol.Err("unknown command"), false
	}
}

func (h *Handler) handleSet(cmd protocol.Command) protocol.Response {
	if cmd.ArgCount() != 2 {
		return protocol.Err("SET requires a key and a value")
	}
	if err := h.router.Insert(cmd.Args[0], []byte(cmd.Args[1])); err != nil {
		return protocol.Err(mapStoreError(err))
	}
	return protocol.OK()
}

func (h *Handler) handleGet(cmd protocol.Command) protocol.Response {
	if cmd.ArgCount() != 1 {
		return protocol.Err("GET requires a key")
	}
	value, ok := h.router.Get(cmd.Args[0])
	if !ok {
		return protocol.NullBulk()
	}
	return protocol.Bulk(value)
}

func (h *Handler) handleDel(cmd protocol.Command) protocol.Response {
	if cmd.ArgCount() != 1 {
		return protocol.Err("DEL requires a key")
	}
	if h.router.Delete(cmd.Args[0]) {
		return protocol.Integer(1)
	}
	return protocol.Integer(0)
}

func (h *Handler) handleExpire(cmd protocol.Command) protocol.Response {
	if cmd.ArgCount() != 2 {
		return protocol.Err("EXPIRE requires a key and a ttl in milliseconds")
	}
	ttl, err := strconv.ParseInt(cmd.Args[1], 10, 64)
	if err != nil {
		return protocol.Err("ttl must be an integer number of milliseconds")
	}
	ok, storeErr := h.router.Expire(cmd.Args[0], ttl)
	if storeErr != nil {
		return protocol.Err(mapStoreError(storeErr))
	}
	if ok {
		return protocol.Integer(1)
	}
	return protocol.Integer(0)
}

func (h *Handler) handleStats() protocol.Response {
	snap := h.router.Stats()
	uptime := time.Since(h.startedAt).Round(time.Second)

	snapshotDir := "none"
	if h.snapshotManager != nil {
		snapshotDir = h.snapshotManager.Dir()
	}

	lines := []string{
		"# Server Statistics",
		fmt.Sprintf("uptime_seconds:%d", int64(uptime.Seconds())),
		fmt.Sprintf("snapshot_dir:%s", snapshotDir),
		fmt.Sprintf("shard_count:%d", h.router.ShardCount()),
		fmt.Sprintf("capacity_per_shard:%d", h.router.CapacityPerShard()),
		fmt.Sprintf("entries:%d", h.router.Size()),
		fmt.Sprintf("gets:%d", snap.Gets),
		fmt.Sprintf("hits:%d", snap.Hits),
		fmt.Sprintf("misses:%d", snap.Misses),
		fmt.Sprintf("sets:%d", snap.Sets),
		fmt.Sprintf("deletes:%d", snap.Deletes),
		fmt.Sprintf("expires:%d", snap.Expires),
		fmt.Sprintf("evictions:%d", snap.Evictions),
		fmt.Sprintf("expirations:%d", snap.Expirations),
		fmt.Sprintf("value_size_mean:%.2f", h.router.ValueSizeMean()),
		fmt.Sprintf("total_connections:%d", h.totalConnections.Load()),
		fmt.Sprintf("active_connections:%d", h.activeConnections.Load()),
		fmt.Sprintf("total_commands:%d", h.totalCommands.Load()),
	}

	return protocol.MultiLine(lines)
}

// mapStoreError renders a *store.Error as the single user-visible error
// line the wire protocol allows: TooLarge, InvalidArgument
// and Internal are the only codes a request handler surfaces this way
// (NotFound and the snapshot-only codes are not reachable from a request).
func mapStoreError(err error) string {
	storeErr, ok := err.(*store.Error)
	if !ok {
		return err.Error()
	}
	switch storeErr.Code {
	case store.CodeTooLarge:
		return fmt.Sprintf("%s too large (size=%d, limit=%d)", storeErr.Kind, storeErr.Size, storeErr.Limit)
	case store.CodeInvalidArgument:
		return storeErr.Msg
	default:
		return "internal error"
	}
}
