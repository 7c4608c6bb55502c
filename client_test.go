// Tests for Client covering handshake, activity commands, typed
// read commands, and error-response decoding, using net.Pipe() as a
// stand-in Discord IPC socket.
package dgrpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.alderamin.dev/dgrpc/internal/wire"
)

// ///////////////////////////////////////////////
// Test Helpers
// ///////////////////////////////////////////////

// readEnvelope reads one frame from conn and parses its payload as a
// generic JSON object, returning the opcode alongside it.
func readEnvelope(t *testing.T, conn net.Conn) (wire.Opcode, map[string]any) {
	t.Helper()
	dec := wire.NewDecoder(conn)
	frame, err := dec.Decode()
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(frame.Payload, &m); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return frame.Opcode, m
}

// writeEnvelope encodes env as an OpFrame and writes it to conn.
func writeEnvelope(t *testing.T, conn net.Conn, env map[string]any) {
	t.Helper()
	body, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	frame, err := wire.Encode(wire.Frame{Opcode: wire.OpFrame, Payload: body})
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	if _, err := conn.Write(frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

// testOptions returns Options sized small enough for fast tests.
func testOptions() Options {
	return Options{
		AppID:               "test-app-id",
		SerializerThreads:   1,
		DeserializerThreads: 1,
		RequestTimeout:      5 * time.Second,
		EventQueueCapacity:  16,
	}
}

// dialConnectedClient performs the handshake over a net.Pipe and returns
// a ready Client alongside the server-side conn.
func dialConnectedClient(t *testing.T) (*Client, net.Conn) {
	t.Helper()
	serverConn, clientConn := net.Pipe()

	type result struct {
		c   *Client
		err error
	}
	done := make(chan result, 1)
	go func() {
		c, err := newClient(context.Background(), testOptions(), clientConn)
		done <- result{c, err}
	}()

	opcode, m := readEnvelope(t, serverConn)
	if opcode != wire.OpHandshake {
		t.Fatalf("expected handshake opcode, got %v", opcode)
	}
	if m["client_id"] != "test-app-id" {
		t.Fatalf("expected client_id=test-app-id, got %v", m["client_id"])
	}

	writeEnvelope(t, serverConn, map[string]any{"cmd": "DISPATCH", "evt": "READY"})

	res := <-done
	if res.err != nil {
		t.Fatalf("newClient returned error: %v", res.err)
	}
	return res.c, serverConn
}

// ///////////////////////////////////////////////
// Handshake
// ///////////////////////////////////////////////

func TestNewClient_Handshake(t *testing.T) {
	c, serverConn := dialConnectedClient(t)
	defer serverConn.Close()
	defer c.Close()
}

func TestNewClient_HandshakeRejected(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()

	done := make(chan error, 1)
	go func() {
		_, err := newClient(context.Background(), testOptions(), clientConn)
		done <- err
	}()

	readEnvelope(t, serverConn)
	writeEnvelope(t, serverConn, map[string]any{
		"cmd": "DISPATCH", "evt": "ERROR",
		"data": map[string]any{"code": 4000, "message": "invalid client"},
	})

	err := <-done
	if err == nil {
		t.Fatal("expected handshake error")
	}
	var dErr *Error
	if !asError(err, &dErr) || dErr.Kind != ErrConnectionFailed {
		t.Fatalf("expected ErrConnectionFailed, got %v", err)
	}
}

// ///////////////////////////////////////////////
// SetActivity / ClearActivity
// ///////////////////////////////////////////////

func TestClient_SetActivity(t *testing.T) {
	c, serverConn := dialConnectedClient(t)
	defer serverConn.Close()
	defer c.Close()

	activity := &Activity{
		Details: "Testing",
		State:   "Running tests",
		Timestamps: &Timestamps{
			Start: 1000000,
		},
	}

	done := make(chan error, 1)
	go func() { done <- c.SetActivity(context.Background(), activity) }()

	_, m := readEnvelope(t, serverConn)
	if m["cmd"] != "SET_ACTIVITY" {
		t.Fatalf("expected cmd=SET_ACTIVITY, got %v", m["cmd"])
	}
	nonce, _ := m["nonce"].(string)
	if nonce == "" {
		t.Fatal("expected non-empty nonce")
	}
	args, ok := m["args"].(map[string]any)
	if !ok {
		t.Fatalf("expected args object, got %T", m["args"])
	}
	if pid, ok := args["pid"].(float64); !ok || int(pid) != os.Getpid() {
		t.Fatalf("expected pid=%d, got %v", os.Getpid(), args["pid"])
	}
	act, ok := args["activity"].(map[string]any)
	if !ok {
		t.Fatalf("expected activity object, got %T", args["activity"])
	}
	if act["details"] != "Testing" {
		t.Fatalf("expected details=Testing, got %v", act["details"])
	}

	writeEnvelope(t, serverConn, map[string]any{"cmd": "SET_ACTIVITY", "nonce": nonce})

	if err := <-done; err != nil {
		t.Fatalf("SetActivity returned error: %v", err)
	}
}

func TestClient_ClearActivity(t *testing.T) {
	c, serverConn := dialConnectedClient(t)
	defer serverConn.Close()
	defer c.Close()

	done := make(chan error, 1)
	go func() { done <- c.ClearActivity(context.Background()) }()

	_, m := readEnvelope(t, serverConn)
	args := m["args"].(map[string]any)
	if args["activity"] != nil {
		t.Fatalf("expected nil activity, got %v", args["activity"])
	}
	nonce := m["nonce"].(string)

	writeEnvelope(t, serverConn, map[string]any{"cmd": "SET_ACTIVITY", "nonce": nonce})

	if err := <-done; err != nil {
		t.Fatalf("ClearActivity returned error: %v", err)
	}
}

// ///////////////////////////////////////////////
// GetChannel / ResponseError
// ///////////////////////////////////////////////

func TestClient_GetChannel(t *testing.T) {
	c, serverConn := dialConnectedClient(t)
	defer serverConn.Close()
	defer c.Close()

	type result struct {
		ch  Channel
		err error
	}
	done := make(chan result, 1)
	go func() {
		ch, err := c.GetChannel(context.Background(), "354323960722227202")
		done <- result{ch, err}
	}()

	_, m := readEnvelope(t, serverConn)
	if m["cmd"] != "GET_CHANNEL" {
		t.Fatalf("expected cmd=GET_CHANNEL, got %v", m["cmd"])
	}
	args := m["args"].(map[string]any)
	if args["channel_id"] != "354323960722227202" {
		t.Fatalf("expected channel_id=354323960722227202, got %v", args["channel_id"])
	}
	nonce := m["nonce"].(string)

	writeEnvelope(t, serverConn, map[string]any{
		"cmd": "GET_CHANNEL", "nonce": nonce,
		"data": map[string]any{"id": "354323960722227202", "name": "general", "type": 0},
	})

	res := <-done
	if res.err != nil {
		t.Fatalf("GetChannel returned error: %v", res.err)
	}
	if res.ch.Name != "general" {
		t.Fatalf("expected name=general, got %v", res.ch.Name)
	}
}

func TestClient_ResponseError(t *testing.T) {
	c, serverConn := dialConnectedClient(t)
	defer serverConn.Close()
	defer c.Close()

	type result struct {
		ch  Channel
		err error
	}
	done := make(chan result, 1)
	go func() {
		ch, err := c.GetChannel(context.Background(), "bogus")
		done <- result{ch, err}
	}()

	_, m := readEnvelope(t, serverConn)
	nonce := m["nonce"].(string)

	writeEnvelope(t, serverConn, map[string]any{
		"cmd": "GET_CHANNEL", "nonce": nonce, "evt": "ERROR",
		"data": map[string]any{"code": 4000, "message": "unknown channel"},
	})

	res := <-done
	var dErr *Error
	if !asError(res.err, &dErr) {
		t.Fatalf("expected *Error, got %v", res.err)
	}
	if dErr.Kind != ErrResponseError || dErr.Code != 4000 {
		t.Fatalf("expected ResponseError code 4000, got %+v", dErr)
	}
}

// ///////////////////////////////////////////////
// Events
// ///////////////////////////////////////////////

func TestClient_Events(t *testing.T) {
	c, serverConn := dialConnectedClient(t)
	defer serverConn.Close()
	defer c.Close()

	writeEnvelope(t, serverConn, map[string]any{
		"cmd": "DISPATCH", "evt": "MESSAGE_CREATE",
		"data": map[string]any{"content": "hello"},
	})

	select {
	case ev := <-c.Events():
		if ev.Evt != "MESSAGE_CREATE" {
			t.Fatalf("expected evt=MESSAGE_CREATE, got %v", ev.Evt)
		}
		var data struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			t.Fatalf("unmarshal event data: %v", err)
		}
		if data.Content != "hello" {
			t.Fatalf("expected content=hello, got %v", data.Content)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

// ///////////////////////////////////////////////
// Nonce uniqueness
// ///////////////////////////////////////////////

func TestClient_NonceUniquePerRequest(t *testing.T) {
	c, serverConn := dialConnectedClient(t)
	defer serverConn.Close()
	defer c.Close()

	done := make(chan error, 2)
	go func() { done <- c.SetActivity(context.Background(), &Activity{Details: "a"}) }()
	go func() { done <- c.SetActivity(context.Background(), &Activity{Details: "b"}) }()

	seen := map[string]bool{}
	for range 2 {
		_, m := readEnvelope(t, serverConn)
		nonce := m["nonce"].(string)
		if seen[nonce] {
			t.Fatalf("nonce %q reused across requests", nonce)
		}
		seen[nonce] = true
		writeEnvelope(t, serverConn, map[string]any{"cmd": "SET_ACTIVITY", "nonce": nonce})
	}

	for range 2 {
		if err := <-done; err != nil {
			t.Fatalf("SetActivity returned error: %v", err)
		}
	}
}

// ///////////////////////////////////////////////
// OAuth2 startup
// ///////////////////////////////////////////////

func TestNewClient_AuthenticatesWithStoredToken(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	record, err := json.Marshal(map[string]any{
		"version":       1,
		"access_token":  "stored-token",
		"refresh_token": "refresh",
		"expires_at":    time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("marshal token record: %v", err)
	}
	if err := os.WriteFile(tokenPath, record, 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()

	opts := testOptions()
	opts.OAuth2 = &OAuth2Options{ClientSecret: "secret", Scopes: []string{"rpc"}, TokenPath: tokenPath}

	type result struct {
		c   *Client
		err error
	}
	done := make(chan result, 1)
	go func() {
		c, err := newClient(context.Background(), opts, clientConn)
		done <- result{c, err}
	}()

	opcode, _ := readEnvelope(t, serverConn)
	if opcode != wire.OpHandshake {
		t.Fatalf("expected handshake opcode, got %v", opcode)
	}
	writeEnvelope(t, serverConn, map[string]any{"cmd": "DISPATCH", "evt": "READY"})

	// A valid persisted token authenticates the connection right after
	// the handshake, with no AUTHORIZE round trip.
	_, m := readEnvelope(t, serverConn)
	if m["cmd"] != "AUTHENTICATE" {
		t.Fatalf("expected cmd=AUTHENTICATE after handshake, got %v", m["cmd"])
	}
	args, ok := m["args"].(map[string]any)
	if !ok || args["access_token"] != "stored-token" {
		t.Fatalf("expected access_token=stored-token, got %v", m["args"])
	}
	nonce := m["nonce"].(string)
	writeEnvelope(t, serverConn, map[string]any{
		"cmd": "AUTHENTICATE", "nonce": nonce,
		"data": map[string]any{"user": map[string]any{"id": "1", "username": "u"}},
	})

	res := <-done
	if res.err != nil {
		t.Fatalf("newClient returned error: %v", res.err)
	}
	defer res.c.Close()

	// Commands after authentication carry only their own args; the
	// token authenticated the connection, not each request.
	cmdDone := make(chan error, 1)
	go func() { cmdDone <- res.c.SetActivity(context.Background(), &Activity{Details: "x"}) }()

	_, m = readEnvelope(t, serverConn)
	if m["cmd"] != "SET_ACTIVITY" {
		t.Fatalf("expected cmd=SET_ACTIVITY, got %v", m["cmd"])
	}
	cmdArgs := m["args"].(map[string]any)
	if _, leaked := cmdArgs["access_token"]; leaked {
		t.Fatal("access_token must not be injected into command args")
	}
	writeEnvelope(t, serverConn, map[string]any{"cmd": "SET_ACTIVITY", "nonce": m["nonce"].(string)})

	if err := <-cmdDone; err != nil {
		t.Fatalf("SetActivity returned error: %v", err)
	}
}

// asError is a thin errors.As wrapper so call sites read naturally.
func asError(err error, target **Error) bool {
	return errors.As(err, target)
}
