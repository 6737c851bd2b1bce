// Package env bundles the dependencies a command needs to reach the
// swarm. It exists purely to break the import cycle between the command
// implementations and the runtime that owns the host/DHT: the runtime
// constructs one Env and hands it to each command's Start method.
package env

import (
	"context"
	"time"

	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/host"

	logging "github.com/ipfs/go-log/v2"

	"github.com/nodecore/noderuntime/internal/dhtlocal"
	"github.com/nodecore/noderuntime/internal/pendingmap"
	"github.com/nodecore/noderuntime/internal/reqresp"
)

// Env is owned by the runtime. Command Start/Observe methods run on the
// runtime goroutine, but goroutines those commands spawn (Dial, the DHT
// queries) also read its fields after Run has set Ctx; nothing writes to
// it after that point.
type Env struct {
	Ctx context.Context

	Host host.Host
	DHT  *dht.IpfsDHT

	LocalRecords *dhtlocal.Tracker

	ReqResp *reqresp.Service
	Pending *pendingmap.Map[*reqresp.Responder]

	// KadQueryTimeout bounds each DHT query-based command (spec.md's
	// kad_query_timeout option); zero means no per-query deadline beyond
	// Ctx's own lifetime.
	KadQueryTimeout time.Duration

	// NextPendingID returns a fresh monotonically increasing pending id,
	// shared with the runtime's event-translation step.
	NextPendingID func() uint64

	Log *logging.ZapEventLogger
}
