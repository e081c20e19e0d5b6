package abi

import "testing"

func TestForeignStringRoundTrip(t *testing.T) {
	fs := NewForeignString("hello plugin")
	if !fs.IsValid() {
		t.Fatal("freshly created string should be valid")
	}
	got, err := fs.AsError()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello plugin" {
		t.Fatalf("got %q, want %q", got, "hello plugin")
	}
}

func TestForeignStringErrorChannel(t *testing.T) {
	fs := NewErrorString(NotFound)
	_, err := fs.AsError()
	if err == nil {
		t.Fatal("expected an error")
	}
	if AsServiceError(err) != NotFound {
		t.Fatalf("expected NotFound, got %s", AsServiceError(err))
	}
}

func TestForeignStringInvalidHandle(t *testing.T) {
	var fs ForeignString
	if fs.IsValid() {
		t.Fatal("zero-value ForeignString must not be valid")
	}
	if _, err := fs.AsError(); AsServiceError(err) != InvalidString {
		t.Fatalf("expected InvalidString, got %v", err)
	}
}

func TestForeignStringDestroy(t *testing.T) {
	fs := NewForeignString("bye")
	fs.Destroy()
	if fs.IsValid() {
		t.Fatal("destroyed string should no longer be valid")
	}
}
