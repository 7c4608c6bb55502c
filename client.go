package dgrpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"go.alderamin.dev/dgrpc/internal/metrics"
	"go.alderamin.dev/dgrpc/internal/oauth2"
	"go.alderamin.dev/dgrpc/internal/pending"
	"go.alderamin.dev/dgrpc/internal/pipeline"
	"go.alderamin.dev/dgrpc/internal/serde"
	"go.alderamin.dev/dgrpc/internal/transport"
	"go.alderamin.dev/dgrpc/internal/wire"
)

// handshakeTimeout bounds how long the handshake waits for the READY event
// after the handshake frame is written.
const handshakeTimeout = 10 * time.Second

// Client is a connected Discord IPC client: one duplex connection
// multiplexed by [internal/pipeline.Pipeline], with an optional OAuth2
// token manager for authorized commands.
type Client struct {
	appID          string
	requestTimeout time.Duration

	encodePool *serde.EncodePool
	decodePool *serde.DecodePool
	pipeline   *pipeline.Pipeline
	oauth      *oauth2.Manager

	eventsOut chan Event

	authMu      sync.Mutex
	authedToken string

	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewClient discovers the local Discord IPC endpoint, performs the
// handshake, and returns a connected Client. The returned Client owns
// the connection and its actor goroutines; callers must call
// [Client.Close] when done.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	conn, err := transport.Discover()
	if err != nil {
		return nil, newError(ErrConnectionFailed, err)
	}
	return newClient(ctx, opts, conn)
}

// newClient builds a Client around an already-dialed conn, skipping
// endpoint discovery. Split out of NewClient so tests can inject a
// net.Pipe in place of a real Discord IPC socket.
func newClient(ctx context.Context, opts Options, conn net.Conn) (*Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	encodePool := serde.NewEncodePool(opts.SerializerThreads, opts.SerializerChannelBuffer)
	decodePool := serde.NewDecodePool(opts.DeserializerThreads, opts.DeserializerChannelBuffer)

	pl := pipeline.New(conn, pipeline.Options{
		EventQueueCapacity: opts.EventQueueCapacity,
		EncodePool:         encodePool,
		DecodePool:         decodePool,
		Logger:             logger,
	})
	pl.Start()

	c := &Client{
		appID:          opts.AppID,
		requestTimeout: opts.RequestTimeout,
		encodePool:     encodePool,
		decodePool:     decodePool,
		pipeline:       pl,
		eventsOut:      make(chan Event, opts.EventQueueCapacity),
		logger:         logger,
	}

	if opts.OAuth2 != nil {
		mgr, err := oauth2.New(oauth2.Config{
			ClientID:      opts.AppID,
			ClientSecret:  opts.OAuth2.ClientSecret,
			Scopes:        opts.OAuth2.Scopes,
			TokenPath:     opts.OAuth2.TokenPath,
			RefreshWindow: opts.OAuth2.RefreshWindow,
		}, logger)
		if err != nil && !errors.Is(err, oauth2.ErrNoToken) {
			_ = c.shutdown()
			return nil, newError(ErrOAuth2, err)
		}
		c.oauth = mgr
	}

	if err := c.handshake(ctx); err != nil {
		_ = c.shutdown()
		return nil, err
	}

	go c.relayEvents()

	// With a persisted token on disk the connection authenticates
	// immediately; a missing or rejected token triggers the full
	// AUTHORIZE exchange (Discord shows its consent dialog) using the
	// configured scopes.
	if c.oauth != nil {
		if err := c.bootstrapAuth(ctx, opts.OAuth2.Scopes); err != nil {
			_ = c.Close()
			return nil, err
		}
	}

	return c, nil
}

// handshake sends the Connect request and waits for the rewritten READY
// event on the connect sentinel nonce.
func (c *Client) handshake(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	reply, err := c.pipeline.SendRequest(hctx, pending.ConnectSentinel, wire.Connect(c.appID))
	if err != nil {
		return newError(ErrConnectionFailed, err)
	}
	if reply.Evt != wire.EvtReady {
		return newError(ErrConnectionFailed, fmt.Errorf("handshake did not yield READY (evt=%q)", reply.Evt))
	}
	return nil
}

// Close tears down the pipeline's actors, the serde pools, and the
// underlying connection. Close is safe to call more than once; only the
// first call's result is returned.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.shutdown()
	})
	return c.closeErr
}

func (c *Client) shutdown() error {
	err := c.pipeline.Close()
	c.encodePool.Close()
	c.decodePool.Close()
	return err
}

// classifySendError maps a pipeline-level error into the façade's typed
// [Error].
func classifySendError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, pipeline.ErrWriterTimeout):
		metrics.IncError(metrics.ErrTimeout)
		return newError(ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return newError(ErrTimeout, err)
	case errors.Is(err, pipeline.ErrWriterUnavailable):
		metrics.IncError(metrics.ErrSendRequest)
		return newError(ErrSendRequest, err)
	default:
		metrics.IncError(metrics.ErrInternalCoordinator)
		return newError(ErrInternalCoordinator, err)
	}
}
