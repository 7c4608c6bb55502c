package serde

import (
	"context"
	"encoding/json"
	"fmt"

	"go.alderamin.dev/dgrpc/internal/wire"
)

// ///////////////////////////////////////////////
// Encoder pool
// ///////////////////////////////////////////////

// EncodePool runs envelope marshaling plus frame encoding on dedicated
// worker threads. The writer actor (internal/pipeline) is the sole
// caller.
type EncodePool struct {
	pool *Pool[[]byte]
}

// NewEncodePool starts an encode pool with the given worker count and
// channel buffer depth.
func NewEncodePool(workers, chanBuffer int) *EncodePool {
	return &EncodePool{pool: NewPool[[]byte](workers, chanBuffer)}
}

// Encode marshals req to its wire envelope (or handshake body) and
// frames it. Marshaling errors are reported as serde errors; they never
// reach the wire.
func (p *EncodePool) Encode(ctx context.Context, req wire.Request) ([]byte, error) {
	return p.pool.Submit(ctx, func() ([]byte, error) {
		return encodeRequest(req)
	})
}

// Close stops the pool, waiting for in-flight jobs to finish.
func (p *EncodePool) Close() { p.pool.Close() }

// Depth reports the encode pool's queued and in-flight job counts.
func (p *EncodePool) Depth() (queued, inFlight int) { return p.pool.Depth() }

func encodeRequest(req wire.Request) ([]byte, error) {
	switch req.Kind {
	case wire.RequestConnect:
		body, err := json.Marshal(wire.HandshakePayload{V: wire.HandshakeVersion, ClientID: req.ClientID})
		if err != nil {
			return nil, fmt.Errorf("serde: marshal handshake: %w", err)
		}
		return wire.Encode(wire.Frame{Opcode: wire.OpHandshake, Payload: body})
	case wire.RequestPayload:
		body, err := json.Marshal(req.Envelope)
		if err != nil {
			return nil, fmt.Errorf("serde: marshal envelope: %w", err)
		}
		return wire.Encode(wire.Frame{Opcode: wire.OpFrame, Payload: body})
	default:
		return nil, fmt.Errorf("serde: unknown request kind %d", req.Kind)
	}
}

// ///////////////////////////////////////////////
// Decoder pool
// ///////////////////////////////////////////////

// DecodePool runs envelope unmarshaling on dedicated worker threads. The
// reader actor submits one job per inbound frame.
type DecodePool struct {
	pool *Pool[wire.Envelope]
}

// NewDecodePool starts a decode pool with the given worker count and
// channel buffer depth.
func NewDecodePool(workers, chanBuffer int) *DecodePool {
	return &DecodePool{pool: NewPool[wire.Envelope](workers, chanBuffer)}
}

// Decode unmarshals a frame payload into an Envelope.
func (p *DecodePool) Decode(ctx context.Context, payload []byte) (wire.Envelope, error) {
	return p.pool.Submit(ctx, func() (wire.Envelope, error) {
		var env wire.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return wire.Envelope{}, fmt.Errorf("serde: unmarshal envelope: %w", err)
		}
		return env, nil
	})
}

// Close stops the pool, waiting for in-flight jobs to finish.
func (p *DecodePool) Close() { p.pool.Close() }

// Depth reports the decode pool's queued and in-flight job counts.
func (p *DecodePool) Depth() (queued, inFlight int) { return p.pool.Depth() }
