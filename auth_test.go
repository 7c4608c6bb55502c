package dgrpc

import (
	"context"
	"testing"
)

func TestClient_Authorize_RequiresOAuth2Configured(t *testing.T) {
	c, serverConn := dialConnectedClient(t)
	defer serverConn.Close()
	defer c.Close()

	err := c.Authorize(context.Background(), []string{"identify"})
	if err == nil {
		t.Fatal("expected error when OAuth2 is not configured")
	}
	var dErr *Error
	if !asError(err, &dErr) || dErr.Kind != ErrConfigFailed {
		t.Fatalf("expected ErrConfigFailed, got %v", err)
	}
}
