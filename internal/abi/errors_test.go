package abi

import "testing"

func TestServiceErrorCodeRawRoundTrip(t *testing.T) {
	codes := []ServiceErrorCode{
		CoreInternalError, PluginInternalError, NullFunctionPointer,
		InvalidString, InvalidJSON, InvalidSchema, InvalidAPI,
		NotFound, Unauthorized, Duplicate, PluginUninit, ShuttingDown,
	}
	for _, c := range codes {
		raw := c.ToRaw()
		if got := ServiceErrorFromRaw(raw); got != c {
			t.Fatalf("round trip mismatch for %s: got %s", c, got)
		}
		if got := ServiceErrorFromRaw(raw).ToRaw(); got != raw {
			t.Fatalf("raw round trip mismatch for %s: got %d, want %d", c, got, raw)
		}
	}
}

func TestNewServiceErrorSuccessIsNil(t *testing.T) {
	if err := NewServiceError(Success); err != nil {
		t.Fatalf("Success must convert to a nil error, got %v", err)
	}
}

func TestAsServiceErrorDefaultsToCoreInternalError(t *testing.T) {
	if got := AsServiceError(errPlain("boom")); got != CoreInternalError {
		t.Fatalf("plain error should default to CoreInternalError, got %s", got)
	}
	if got := AsServiceError(nil); got != Success {
		t.Fatalf("nil error should map to Success, got %s", got)
	}
}

func TestAsServiceErrorUnwraps(t *testing.T) {
	inner := NewServiceError(NotFound)
	wrapped := wrappedErr{inner: inner}
	if got := AsServiceError(wrapped); got != NotFound {
		t.Fatalf("expected unwrap to find NotFound, got %s", got)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }

type wrappedErr struct{ inner error }

func (w wrappedErr) Error() string { return "wrapped: " + w.inner.Error() }
func (w wrappedErr) Unwrap() error { return w.inner }
