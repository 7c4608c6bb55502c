// Package dgrpc is a client for Discord's local Rich-Presence/RPC IPC
// protocol: the same Unix-socket/named-pipe transport the Discord desktop
// client exposes to local applications for SET_ACTIVITY and the broader
// RPC command/event vocabulary.
//
// A Client multiplexes many in-flight requests over one duplex IPC
// connection, correlating each by a uuid nonce. Outbound and inbound
// JSON work runs on dedicated worker pools (internal/serde) so large
// payloads never stall the connection's single reader/writer goroutines.
// Push events (subscriptions) arrive on a bounded, backpressured queue
// obtained from [Client.Events]. The handshake READY event completes the
// connection handshake and is not delivered on that queue.
//
// The protocol core lives under internal/wire, internal/pending, and
// internal/pipeline; this package is the typed façade over it.
package dgrpc
