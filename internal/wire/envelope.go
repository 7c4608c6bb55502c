package wire

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ///////////////////////////////////////////////
// Envelope
// ///////////////////////////////////////////////

// Envelope is the JSON object carried inside an OpFrame payload. Requests
// populate Cmd, Nonce, and Args; responses populate Cmd, Nonce, Evt, and
// Data; events populate Cmd "DISPATCH", Evt, and Data (no Nonce except
// the ERROR event).
type Envelope struct {
	Cmd   string          `json:"cmd"`
	Nonce string          `json:"nonce,omitempty"`
	Evt   string          `json:"evt,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Args  json.RawMessage `json:"args,omitempty"`
}

const (
	CmdDispatch = "DISPATCH"

	EvtReady = "READY"
	EvtError = "ERROR"
)

// NewNonce returns a fresh request-correlation identifier, a UUIDv4
// string per the wire format's "uuid-v4 string" requirement.
func NewNonce() string {
	return uuid.NewString()
}

// ///////////////////////////////////////////////
// Request
// ///////////////////////////////////////////////

// Request is a tagged union of the two things that can be written to the
// wire: the initial handshake, or a regular envelope. Exactly one of
// ClientID or Envelope is meaningful, selected by Kind.
type Request struct {
	Kind     RequestKind
	ClientID string
	Envelope Envelope
}

// RequestKind discriminates a Request's payload.
type RequestKind int

const (
	RequestConnect RequestKind = iota
	RequestPayload
)

// Connect builds the initial handshake request for the given Discord
// application id.
func Connect(clientID string) Request {
	return Request{Kind: RequestConnect, ClientID: clientID}
}

// Payload builds a standard envelope request.
func Payload(env Envelope) Request {
	return Request{Kind: RequestPayload, Envelope: env}
}

// ///////////////////////////////////////////////
// HandshakePayload
// ///////////////////////////////////////////////

// HandshakePayload is the JSON body of the OpHandshake frame.
type HandshakePayload struct {
	V        int    `json:"v"`
	ClientID string `json:"client_id"`
}

// HandshakeVersion is the protocol version dgrpc sends in every handshake.
const HandshakeVersion = 1
