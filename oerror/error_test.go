package oerror

import (
	"errors"
	"testing"
)

var errSentinel = errors.New("sentinel")

func TestNewWrapsSentinel(t *testing.T) {
	err := New("loading %q: %w", "settings.toml", errSentinel)
	if !errors.Is(err, errSentinel) {
		t.Fatalf("expected %v to wrap the sentinel", err)
	}
	if err.Error() != `loading "settings.toml": sentinel` {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestNewWithoutWrap(t *testing.T) {
	err := New("plain %d", 4)
	if errors.Unwrap(err) != nil {
		t.Fatalf("expected no wrapped error, got %v", errors.Unwrap(err))
	}
}
