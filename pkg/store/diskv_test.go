package store

import (
	"context"
	"errors"
	"testing"
)

func TestDiskRoundTrip(t *testing.T) {
	base := t.TempDir()
	p, err := Load(testConfig{path: base})
	if err != nil {
		t.Fatalf("load persistence: %v", err)
	}

	if _, err := p.Read(KeyMessages); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}
	if p.Has(KeyMessages) {
		t.Fatalf("expected key to be absent")
	}

	if err := p.Write(KeyMessages, []byte(`[]`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := p.Read(KeyMessages)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != `[]` {
		t.Fatalf("unexpected value %q", got)
	}

	// A second store over the same directory sees the value (survives restart).
	reopened, err := Load(testConfig{path: base})
	if err != nil {
		t.Fatalf("reload persistence: %v", err)
	}
	if !reopened.Has(KeyMessages) {
		t.Fatalf("expected key to survive reload")
	}

	if err := p.Erase(KeyMessages); err != nil {
		t.Fatalf("erase: %v", err)
	}
	if err := p.Erase(KeyMessages); err != nil {
		t.Fatalf("erase of missing key should be a no-op, got %v", err)
	}
	if p.Has(KeyMessages) {
		t.Fatalf("expected key to be erased")
	}
}

func TestDiskKeysListsWrittenKeys(t *testing.T) {
	p, err := Load(testConfig{path: t.TempDir()})
	if err != nil {
		t.Fatalf("load persistence: %v", err)
	}
	if err := p.Write(KeyConversationID, []byte("abc")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := p.Write(KeyUser, []byte(`{}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	keys := p.Keys(context.Background())
	if len(keys) != 2 || keys[0] != KeyConversationID || keys[1] != KeyUser {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	m := NewMemory()
	val := []byte("abc")
	if err := m.Write("k", val); err != nil {
		t.Fatalf("write: %v", err)
	}
	val[0] = 'z'
	got, err := m.Read("k")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("memory store aliased caller buffer: %q", got)
	}
	_ = m.Erase("k")
	if _, err := m.Read("k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after erase, got %v", err)
	}
}
