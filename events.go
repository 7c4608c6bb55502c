package dgrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"go.alderamin.dev/dgrpc/internal/wire"
)

// Event is one server-pushed notification delivered off [Client.Events]:
// an evt tag (e.g. "MESSAGE_CREATE", "VOICE_STATE_UPDATE") and its raw
// data payload, left undecoded so callers can route by Evt before
// choosing a concrete type to unmarshal into.
type Event struct {
	Evt  string
	Data json.RawMessage
}

// Events returns the channel push events are delivered on, in wire
// arrival order. The channel is closed when the underlying connection
// is torn down.
func (c *Client) Events() <-chan Event {
	return c.eventsOut
}

// relayEvents translates raw wire envelopes off the pipeline's event
// channel into the façade's [Event] type until the pipeline closes it.
func (c *Client) relayEvents() {
	defer close(c.eventsOut)
	for env := range c.pipeline.Events() {
		c.eventsOut <- Event{Evt: env.Evt, Data: env.Data}
	}
}

// Do sends cmd (with optional evt and args) and decodes the response's
// data field into T. It is the escape hatch for any command the façade
// does not model with a dedicated method (e.g. SELECT_VOICE_CHANNEL,
// SET_VOICE_SETTINGS, SET_CERTIFIED_DEVICES).
func Do[T any](ctx context.Context, c *Client, cmd, evt string, args any) (T, error) {
	return do[T](c, ctx, cmd, evt, args)
}

// do is the shared request path every typed command method funnels
// through: re-authenticate the connection if the token was refreshed
// since the last AUTHENTICATE, build an envelope with a fresh nonce,
// send it through the pipeline, and decode the reply's data field
// into T.
func do[T any](c *Client, ctx context.Context, cmd, evt string, args any) (T, error) {
	if c.oauth != nil && c.oauth.HasToken() {
		if err := c.ensureAuthenticated(ctx); err != nil {
			var zero T
			return zero, err
		}
	}
	return doNoAuth[T](c, ctx, cmd, evt, args)
}

// doNoAuth is do without the re-authentication check, for the two
// commands (AUTHORIZE, AUTHENTICATE) that establish authorization
// rather than consume it.
func doNoAuth[T any](c *Client, ctx context.Context, cmd, evt string, args any) (T, error) {
	var zero T

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return zero, newError(ErrSendRequest, fmt.Errorf("marshal args: %w", err))
	}

	nonce := wire.NewNonce()
	env := wire.Envelope{Cmd: cmd, Nonce: nonce, Evt: evt, Args: argsJSON}

	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	reply, err := c.pipeline.SendRequest(reqCtx, nonce, wire.Payload(env))
	if err != nil {
		return zero, classifySendError(err)
	}

	if reply.Evt == wire.EvtError {
		var body struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if decErr := json.Unmarshal(reply.Data, &body); decErr != nil {
			return zero, newError(ErrResponseError, decErr)
		}
		return zero, newResponseError(body.Code, body.Message)
	}

	if len(reply.Data) == 0 {
		return zero, nil
	}
	if err := json.Unmarshal(reply.Data, &zero); err != nil {
		return zero, newError(ErrInternalCoordinator, fmt.Errorf("decode response data: %w", err))
	}
	return zero, nil
}

