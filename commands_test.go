package dgrpc

import (
	"context"
	"testing"
)

func TestClient_GetGuilds(t *testing.T) {
	c, serverConn := dialConnectedClient(t)
	defer serverConn.Close()
	defer c.Close()

	type result struct {
		guilds []Guild
		err    error
	}
	done := make(chan result, 1)
	go func() {
		guilds, err := c.GetGuilds(context.Background())
		done <- result{guilds, err}
	}()

	_, m := readEnvelope(t, serverConn)
	if m["cmd"] != "GET_GUILDS" {
		t.Fatalf("expected cmd=GET_GUILDS, got %v", m["cmd"])
	}
	nonce := m["nonce"].(string)

	writeEnvelope(t, serverConn, map[string]any{
		"cmd": "GET_GUILDS", "nonce": nonce,
		"data": map[string]any{
			"guilds": []map[string]any{
				{"id": "1", "name": "one"},
				{"id": "2", "name": "two"},
			},
		},
	})

	res := <-done
	if res.err != nil {
		t.Fatalf("GetGuilds returned error: %v", res.err)
	}
	if len(res.guilds) != 2 || res.guilds[0].Name != "one" || res.guilds[1].Name != "two" {
		t.Fatalf("unexpected guilds: %+v", res.guilds)
	}
}

func TestClient_SubscribeThenReceivesDispatch(t *testing.T) {
	c, serverConn := dialConnectedClient(t)
	defer serverConn.Close()
	defer c.Close()

	done := make(chan error, 1)
	go func() {
		done <- c.Subscribe(context.Background(), "MESSAGE_CREATE", map[string]any{"channel_id": "C"})
	}()

	_, m := readEnvelope(t, serverConn)
	if m["cmd"] != "SUBSCRIBE" || m["evt"] != "MESSAGE_CREATE" {
		t.Fatalf("expected SUBSCRIBE/MESSAGE_CREATE, got cmd=%v evt=%v", m["cmd"], m["evt"])
	}
	nonce := m["nonce"].(string)

	writeEnvelope(t, serverConn, map[string]any{
		"cmd": "SUBSCRIBE", "nonce": nonce, "evt": "MESSAGE_CREATE",
	})

	if err := <-done; err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	writeEnvelope(t, serverConn, map[string]any{
		"cmd": "DISPATCH", "evt": "MESSAGE_CREATE",
		"data": map[string]any{"content": "hi"},
	})

	ev := <-c.Events()
	if ev.Evt != "MESSAGE_CREATE" {
		t.Fatalf("expected evt=MESSAGE_CREATE, got %v", ev.Evt)
	}
}
