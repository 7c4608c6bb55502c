// Package pipeline wires the writer, reader, and coordinator actors
// around one duplex IPC connection, multiplexing many in-flight
// requests over it via nonce correlation. Each actor is a single
// long-lived goroutine with its own channel mailbox; the three are
// started and torn down together by Pipeline.
package pipeline

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"go.alderamin.dev/dgrpc/internal/metrics"
	"go.alderamin.dev/dgrpc/internal/serde"
	"go.alderamin.dev/dgrpc/internal/wire"
)

// metricsSampleInterval is how often Pipeline republishes gauge metrics
// that have no natural increment/decrement call site (queue depths).
const metricsSampleInterval = 2 * time.Second

// Pipeline owns one IPC connection and the writer/reader/coordinator
// actors multiplexed over it.
type Pipeline struct {
	conn       net.Conn
	writer     *writer
	reader     *reader
	coord      *coordinator
	events     chan wire.Envelope
	encodePool *serde.EncodePool
	decodePool *serde.DecodePool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *slog.Logger
}

// Options configures a Pipeline's actor resources.
type Options struct {
	EventQueueCapacity int
	EncodePool         *serde.EncodePool
	DecodePool         *serde.DecodePool
	Logger             *slog.Logger
}

// New constructs a Pipeline around conn but does not start its actors;
// call Start to do that.
func New(conn net.Conn, opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.EventQueueCapacity <= 0 {
		opts.EventQueueCapacity = 1024
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := newWriter(conn, opts.EncodePool, opts.Logger)
	r := newReader(conn, opts.DecodePool, opts.Logger)
	events := make(chan wire.Envelope, opts.EventQueueCapacity)
	c := newCoordinator(w, r, events, opts.Logger)

	return &Pipeline{
		conn:       conn,
		writer:     w,
		reader:     r,
		coord:      c,
		events:     events,
		encodePool: opts.EncodePool,
		decodePool: opts.DecodePool,
		ctx:        ctx,
		cancel:     cancel,
		logger:     opts.Logger,
	}
}

// Start launches the writer, reader, and coordinator goroutines. Start
// must be called exactly once.
func (p *Pipeline) Start() {
	p.wg.Add(5)
	go func() { defer p.wg.Done(); p.writer.run(p.ctx) }()
	go func() { defer p.wg.Done(); p.reader.run(p.ctx) }()
	go func() { defer p.wg.Done(); p.coord.run(p.ctx) }()
	go func() { defer p.wg.Done(); p.coord.dispatchEvents(p.ctx) }()
	go func() { defer p.wg.Done(); p.sampleMetrics(p.ctx) }()
}

// sampleMetrics periodically republishes gauge metrics that have no
// natural increment/decrement call site, namely queue depths that can
// shrink without any code path "owning" the decrement (e.g. a caller's
// ctx.Done() racing a reply, or a worker picking a job off a pool's
// channel).
func (p *Pipeline) sampleMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.SetPendingTableSize(p.coord.pending.Len())
			metrics.SetEventQueueDepth(len(p.events))
			if p.encodePool != nil {
				queued, inFlight := p.encodePool.Depth()
				metrics.SetSerdePoolDepth("encode", queued, inFlight)
			}
			if p.decodePool != nil {
				queued, inFlight := p.decodePool.Depth()
				metrics.SetSerdePoolDepth("decode", queued, inFlight)
			}
		case <-ctx.Done():
			return
		}
	}
}

// SendRequest encodes and writes req, then waits for its correlated
// response (or ctx cancellation / deadline).
func (p *Pipeline) SendRequest(ctx context.Context, nonce string, req wire.Request) (wire.Envelope, error) {
	return p.coord.sendRequest(ctx, nonce, req)
}

// Events returns the channel events are delivered on, in wire arrival
// order.
func (p *Pipeline) Events() <-chan wire.Envelope {
	return p.events
}

// Close cancels the actors, closes the underlying connection, waits for
// the actors to exit, and finally closes the event channel so
// consumers ranging over Events observe end of stream. Close must be
// called at most once; callers (dgrpc.Client) guard with a sync.Once of
// their own.
func (p *Pipeline) Close() error {
	p.cancel()
	err := p.conn.Close()
	p.wg.Wait()
	close(p.events)
	return err
}
