package source

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

// TestOpen_UnsupportedKind verifies unknown kinds return a helpful error and
// never reach a backend constructor.
func TestOpen_UnsupportedKind(t *testing.T) {
	_, err := Open(context.Background(), Config{Kind: "fake-kind-not-registered", DSN: "x"})
	if err == nil {
		t.Fatalf("expected error for unregistered kind")
	}
}

// TestRegister_Override verifies re-registering a kind replaces the previous
// constructor, and that constructor errors bubble up through Open.
func TestRegister_Override(t *testing.T) {
	kind := "test-override"
	sentinel := errors.New("first constructor")
	Register(kind, func(ctx context.Context, cfg Config) (*sql.DB, error) {
		return nil, sentinel
	})
	replaced := errors.New("second constructor")
	Register(kind, func(ctx context.Context, cfg Config) (*sql.DB, error) {
		return nil, replaced
	})

	_, err := Open(context.Background(), Config{Kind: kind})
	if !errors.Is(err, replaced) {
		t.Fatalf("Open error = %v; want wrapped %v", err, replaced)
	}
}

// TestKinds_ContainsRegistered verifies Kinds reports registered backends.
func TestKinds_ContainsRegistered(t *testing.T) {
	kind := "test-kinds"
	Register(kind, func(ctx context.Context, cfg Config) (*sql.DB, error) {
		return nil, errors.New("unused")
	})
	found := false
	for _, k := range Kinds() {
		if k == kind {
			found = true
		}
	}
	if !found {
		t.Fatalf("registered kind %q not in Kinds: %v", kind, Kinds())
	}
}
