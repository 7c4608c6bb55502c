package dgrpc

import (
	"context"
	"testing"
)

func TestClient_SendActivityJoinInvite(t *testing.T) {
	c, serverConn := dialConnectedClient(t)
	defer serverConn.Close()
	defer c.Close()

	done := make(chan error, 1)
	go func() { done <- c.SendActivityJoinInvite(context.Background(), "user-1") }()

	_, m := readEnvelope(t, serverConn)
	if m["cmd"] != "SEND_ACTIVITY_JOIN_INVITE" {
		t.Fatalf("expected cmd=SEND_ACTIVITY_JOIN_INVITE, got %v", m["cmd"])
	}
	args := m["args"].(map[string]any)
	if args["user_id"] != "user-1" {
		t.Fatalf("expected user_id=user-1, got %v", args["user_id"])
	}
	nonce := m["nonce"].(string)

	writeEnvelope(t, serverConn, map[string]any{"cmd": "SEND_ACTIVITY_JOIN_INVITE", "nonce": nonce})

	if err := <-done; err != nil {
		t.Fatalf("SendActivityJoinInvite returned error: %v", err)
	}
}

func TestClient_CloseActivityRequest(t *testing.T) {
	c, serverConn := dialConnectedClient(t)
	defer serverConn.Close()
	defer c.Close()

	done := make(chan error, 1)
	go func() { done <- c.CloseActivityRequest(context.Background(), "user-2") }()

	_, m := readEnvelope(t, serverConn)
	if m["cmd"] != "CLOSE_ACTIVITY_REQUEST" {
		t.Fatalf("expected cmd=CLOSE_ACTIVITY_REQUEST, got %v", m["cmd"])
	}
	nonce := m["nonce"].(string)

	writeEnvelope(t, serverConn, map[string]any{"cmd": "CLOSE_ACTIVITY_REQUEST", "nonce": nonce})

	if err := <-done; err != nil {
		t.Fatalf("CloseActivityRequest returned error: %v", err)
	}
}

func TestClient_SetActivityWithButtons(t *testing.T) {
	c, serverConn := dialConnectedClient(t)
	defer serverConn.Close()
	defer c.Close()

	activity := &Activity{
		Details: "With buttons",
		Buttons: []Button{
			{Label: "GitHub", URL: "https://github.com"},
			{Label: "Website", URL: "https://example.com"},
		},
	}

	done := make(chan error, 1)
	go func() { done <- c.SetActivity(context.Background(), activity) }()

	_, m := readEnvelope(t, serverConn)
	args := m["args"].(map[string]any)
	act := args["activity"].(map[string]any)
	buttons, ok := act["buttons"].([]any)
	if !ok || len(buttons) != 2 {
		t.Fatalf("expected 2 buttons, got %v", act["buttons"])
	}
	b0 := buttons[0].(map[string]any)
	if b0["label"] != "GitHub" || b0["url"] != "https://github.com" {
		t.Fatalf("button 0 mismatch: %v", b0)
	}
	nonce := m["nonce"].(string)

	writeEnvelope(t, serverConn, map[string]any{"cmd": "SET_ACTIVITY", "nonce": nonce})

	if err := <-done; err != nil {
		t.Fatalf("SetActivity returned error: %v", err)
	}
}
