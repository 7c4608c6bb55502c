package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.alderamin.dev/dgrpc/internal/metrics"
	"go.alderamin.dev/dgrpc/internal/pending"
	"go.alderamin.dev/dgrpc/internal/wire"
)

// writerForwardTimeout bounds how long the coordinator waits for the
// writer to accept a request before giving up on the caller's behalf.
const writerForwardTimeout = 5 * time.Second

var (
	// ErrWriterUnavailable is returned when the writer fails to encode
	// or write a request (for example, because the connection has closed).
	ErrWriterUnavailable = errors.New("pipeline: writer unavailable")
	// ErrWriterTimeout is returned when the writer did not accept a
	// request within writerForwardTimeout.
	ErrWriterTimeout = errors.New("pipeline: writer forward timed out")
)

// coordinator is the correlation authority: the single component that
// mutates the pending table. It is the inbound half's single owner
// goroutine; the handshake sentinel rewrite (READY carries no nonce on
// the wire) also lives here.
type coordinator struct {
	writer  *writer
	reader  *reader
	pending *pending.Table
	events  chan wire.Envelope
	evq     *eventFIFO
	logger  *slog.Logger
}

func newCoordinator(w *writer, r *reader, events chan wire.Envelope, logger *slog.Logger) *coordinator {
	return &coordinator{
		writer:  w,
		reader:  r,
		pending: pending.New(),
		events:  events,
		evq:     newEventFIFO(),
		logger:  logger,
	}
}

// run drains the reader's inbound channel until it closes (stream ended)
// or ctx is canceled.
func (c *coordinator) run(ctx context.Context) {
	for {
		select {
		case in, ok := <-c.reader.out:
			if !ok {
				return
			}
			c.handleInbound(in)
		case <-ctx.Done():
			return
		}
	}
}

// sendRequest inserts nonce into the pending table, forwards req to the
// writer with a bounded wait, and then waits for a reply or ctx
// cancellation. On any failure the pending entry is removed so it never
// leaks.
func (c *coordinator) sendRequest(ctx context.Context, nonce string, req wire.Request) (wire.Envelope, error) {
	replyCh := c.pending.Insert(nonce)
	metrics.SetPendingTableSize(c.pending.Len())

	forwardCtx, cancel := context.WithTimeout(ctx, writerForwardTimeout)
	defer cancel()

	if err := c.writer.send(forwardCtx, req); err != nil {
		c.pending.Remove(nonce)
		metrics.SetPendingTableSize(c.pending.Len())
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.IncError(metrics.ErrTimeout)
			return wire.Envelope{}, ErrWriterTimeout
		}
		if errors.Is(err, context.Canceled) {
			return wire.Envelope{}, err
		}
		metrics.IncError(metrics.ErrSendRequest)
		return wire.Envelope{}, fmt.Errorf("%w: %v", ErrWriterUnavailable, err)
	}

	select {
	case reply := <-replyCh:
		metrics.SetPendingTableSize(c.pending.Len())
		if reply.Err == nil && reply.Envelope.Evt == wire.EvtError {
			metrics.IncError(metrics.ErrResponseError)
		}
		cmd := req.Envelope.Cmd
		if req.Kind == wire.RequestConnect {
			cmd = "CONNECT"
		}
		metrics.IncRequestCompleted(cmd)
		return reply.Envelope, reply.Err
	case <-ctx.Done():
		c.pending.Remove(nonce)
		metrics.SetPendingTableSize(c.pending.Len())
		metrics.IncError(metrics.ErrTimeout)
		return wire.Envelope{}, ctx.Err()
	}
}

// handleInbound classifies one decoded envelope and either delivers it
// to a waiting caller or hands it to the event dispatcher. It never
// blocks: reply sinks are buffered one-shot channels, and events go
// through an in-order staging buffer drained by dispatchEvents, so a
// slow event-queue consumer cannot stall request completion.
func (c *coordinator) handleInbound(in inbound) {
	if in.err != nil {
		c.logger.Warn("inbound_frame_dropped", "error", in.err)
		return
	}

	env := in.envelope
	switch {
	case env.Evt == wire.EvtReady:
		env.Nonce = pending.ConnectSentinel
		c.deliverResponse(env)
	case env.Nonce != "":
		// A populated nonce means this is a reply to a specific waiter,
		// regardless of evt: SUBSCRIBE/UNSUBSCRIBE acks carry both a
		// nonce and the subscribed evt name, and ERROR responses to a
		// request carry the request's nonce too.
		c.deliverResponse(env)
	default:
		// No nonce and not READY: an unsolicited push event, typically
		// cmd == DISPATCH.
		c.evq.push(env)
	}
}

func (c *coordinator) deliverResponse(env wire.Envelope) {
	if !c.pending.Deliver(env.Nonce, pending.Reply{Envelope: env}) {
		metrics.IncError(metrics.ErrResponseDropped)
		c.logger.Debug("response_nonce_unmatched", "nonce", env.Nonce, "cmd", env.Cmd)
		return
	}
	metrics.SetPendingTableSize(c.pending.Len())
}

// dispatchEvents drains the staging buffer into the bounded event
// queue, awaiting queue space rather than dropping on overflow. A
// single dispatcher preserves wire arrival order; a full queue stalls
// only event delivery, never request/response correlation.
func (c *coordinator) dispatchEvents(ctx context.Context) {
	for {
		env, ok := c.evq.pop()
		if !ok {
			select {
			case <-c.evq.signal:
				continue
			case <-ctx.Done():
				return
			}
		}
		select {
		case c.events <- env:
			metrics.IncEventDelivered()
			metrics.SetEventQueueDepth(len(c.events))
		case <-ctx.Done():
			return
		}
	}
}

// eventFIFO is the in-order staging buffer between the coordinator's
// inbound loop and the bounded event queue. push never blocks, so the
// inbound loop keeps correlating responses while the dispatcher waits
// out a full event queue.
type eventFIFO struct {
	mu     sync.Mutex
	items  []wire.Envelope
	signal chan struct{}
}

func newEventFIFO() *eventFIFO {
	return &eventFIFO{signal: make(chan struct{}, 1)}
}

func (q *eventFIFO) push(env wire.Envelope) {
	q.mu.Lock()
	q.items = append(q.items, env)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *eventFIFO) pop() (wire.Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return wire.Envelope{}, false
	}
	env := q.items[0]
	q.items = q.items[1:]
	return env, true
}
