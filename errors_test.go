package dgrpc

import (
	"errors"
	"testing"
)

func TestError_Is_MatchesByKind(t *testing.T) {
	a := newError(ErrTimeout, errors.New("boom"))
	b := &Error{Kind: ErrTimeout}
	if !errors.Is(a, b) {
		t.Fatal("expected errors with the same Kind to match via Is")
	}
}

func TestError_Is_DifferentKindDoesNotMatch(t *testing.T) {
	a := newError(ErrTimeout, errors.New("boom"))
	b := &Error{Kind: ErrSendRequest}
	if errors.Is(a, b) {
		t.Fatal("expected errors with different Kinds not to match")
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	wrapped := newError(ErrOAuth2, inner)
	if !errors.Is(wrapped, inner) {
		t.Fatal("expected Unwrap to expose the inner error")
	}
}

func TestNewResponseError_CarriesCodeAndMessage(t *testing.T) {
	err := newResponseError(4000, "invalid client")
	if err.Kind != ErrResponseError {
		t.Fatalf("expected Kind=ErrResponseError, got %v", err.Kind)
	}
	if err.Code != 4000 || err.Message != "invalid client" {
		t.Fatalf("expected code=4000/message=invalid client, got %+v", err)
	}
}
