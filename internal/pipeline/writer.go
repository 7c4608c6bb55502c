package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.alderamin.dev/dgrpc/internal/metrics"
	"go.alderamin.dev/dgrpc/internal/serde"
	"go.alderamin.dev/dgrpc/internal/wire"
)

// Sentinel errors surfaced by the writer. dgrpc (root) wraps these into
// its own typed error values for the public API.
var (
	ErrSerialization     = errors.New("pipeline: serialization failed")
	ErrIPCWrite          = errors.New("pipeline: ipc write failed")
	ErrSerializationPool = errors.New("pipeline: serialization pool unavailable")
)

// writeJob is one request submitted to the writer's mailbox.
type writeJob struct {
	req  wire.Request
	done chan error
}

// writer owns the write half of the byte stream and the encode pool.
// One goroutine drains a channel and writes to the connection, so writes
// are strictly serial with no locking needed around the stream itself.
type writer struct {
	conn   io.Writer
	pool   *serde.EncodePool
	mbox   chan writeJob
	logger *slog.Logger
}

func newWriter(conn io.Writer, pool *serde.EncodePool, logger *slog.Logger) *writer {
	return &writer{
		conn:   conn,
		pool:   pool,
		mbox:   make(chan writeJob, 64),
		logger: logger,
	}
}

// send submits req and blocks until it has been encoded and written, or
// ctx is canceled, or the writer has stopped.
func (w *writer) send(ctx context.Context, req wire.Request) error {
	job := writeJob{req: req, done: make(chan error, 1)}
	select {
	case w.mbox <- job:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the writer's actor loop. It exits when ctx is canceled or mbox
// is closed.
func (w *writer) run(ctx context.Context) {
	for {
		select {
		case job, ok := <-w.mbox:
			if !ok {
				return
			}
			job.done <- w.writeOne(ctx, job.req)
		case <-ctx.Done():
			return
		}
	}
}

func (w *writer) writeOne(ctx context.Context, req wire.Request) error {
	frame, err := w.pool.Encode(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			metrics.IncError(metrics.ErrInternalCoordinator)
			return fmt.Errorf("%w: %v", ErrSerializationPool, err)
		}
		metrics.IncError(metrics.ErrInternalCoordinator)
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	if _, err := w.conn.Write(frame); err != nil {
		w.logger.Error("ipc_write_failed", "error", err)
		metrics.IncError(metrics.ErrInternalCoordinator)
		return fmt.Errorf("%w: %v", ErrIPCWrite, err)
	}
	return nil
}
