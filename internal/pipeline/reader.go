package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"go.alderamin.dev/dgrpc/internal/serde"
	"go.alderamin.dev/dgrpc/internal/wire"
)

// maxInflightDecodes bounds the number of concurrently running per-frame
// decode goroutines the reader may spawn. Unbounded spawning under an
// event flood would exhaust goroutines and memory; the reader still
// spawns one per frame (decode latency must not block subsequent reads),
// it just caps how many may be outstanding at once.
const maxInflightDecodes = 256

// inbound is a decoded envelope or the error that occurred processing
// one inbound frame, handed to the coordinator.
type inbound struct {
	envelope wire.Envelope
	err      error
}

// reader owns the read half of the byte stream and the decode pool:
// a read loop that pulls frames off the stream and hands each to a
// short-lived decode goroutine. Decodes run concurrently, but their
// results are forwarded to the coordinator in frame arrival order, so
// events reach the event queue in the order the wire delivered them.
type reader struct {
	dec    *wire.Decoder
	pool   *serde.DecodePool
	sem    *semaphore.Weighted
	out    chan inbound
	logger *slog.Logger

	wg sync.WaitGroup
}

func newReader(r io.Reader, pool *serde.DecodePool, logger *slog.Logger) *reader {
	return &reader{
		dec:    wire.NewDecoder(r),
		pool:   pool,
		sem:    semaphore.NewWeighted(maxInflightDecodes),
		out:    make(chan inbound, 64),
		logger: logger,
	}
}

// run pulls frames from the stream until ctx is canceled or the stream
// ends, spawning a bounded decode goroutine per frame. Per-frame result
// channels are queued in arrival order and drained by a forwarder
// goroutine, preserving wire order without serializing the decodes
// themselves. run closes out before returning so the coordinator can
// detect stream end.
func (r *reader) run(ctx context.Context) {
	// Buffered to the same bound as the decode semaphore, so queuing a
	// result slot below never blocks the read loop.
	results := make(chan chan inbound, maxInflightDecodes)

	var fwd sync.WaitGroup
	fwd.Add(1)
	go func() {
		defer fwd.Done()
		r.forward(ctx, results)
	}()

	defer func() {
		r.wg.Wait()
		close(results)
		fwd.Wait()
		close(r.out)
	}()

	for {
		frame, err := r.dec.Decode()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.logger.Error("ipc_read_failed", "error", err)
			}
			return
		}

		if frame.Opcode == wire.OpClose {
			r.logger.Info("ipc_close_frame_received")
			return
		}

		if err := r.sem.Acquire(ctx, 1); err != nil {
			return
		}
		result := make(chan inbound, 1)
		r.wg.Add(1)
		go r.dispatch(ctx, frame, result)
		results <- result

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// dispatch decodes one frame's payload and delivers the outcome on its
// result slot. Spawning per-frame is intentional: decode latency must
// not block subsequent reads from the stream. The result slot is
// buffered, so dispatch never blocks on a slow forwarder.
func (r *reader) dispatch(ctx context.Context, frame wire.Frame, result chan<- inbound) {
	defer r.wg.Done()
	defer r.sem.Release(1)

	env, err := r.pool.Decode(ctx, frame.Payload)
	result <- inbound{envelope: env, err: err}
}

// forward drains per-frame result slots in arrival order, dropping
// frames that failed to decode and handing the rest to the coordinator.
func (r *reader) forward(ctx context.Context, results <-chan chan inbound) {
	for result := range results {
		in := <-result
		if in.err != nil {
			r.logger.Warn("frame_decode_failed", "error", in.err)
			continue
		}
		select {
		case r.out <- in:
		case <-ctx.Done():
			return
		}
	}
}
