package alert

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestContacts_SetAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.yaml")

	c, err := LoadContacts(path)
	if err != nil {
		t.Fatalf("LoadContacts on missing file: %v", err)
	}
	if err := c.Set("alice", "Alice <alice@example.com>"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set("bob", "bob@example.com"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set("bob", ""); err != nil {
		t.Fatalf("Set empty: %v", err)
	}

	reloaded, err := LoadContacts(path)
	if err != nil {
		t.Fatalf("LoadContacts: %v", err)
	}
	addr, ok := reloaded.Lookup("alice")
	if !ok || addr != "alice@example.com" {
		t.Errorf("alice = %q, %v; want bare address", addr, ok)
	}
	if _, ok := reloaded.Lookup("bob"); ok {
		t.Error("bob should have been removed")
	}
}

func TestContacts_RejectsInvalidAddress(t *testing.T) {
	c, err := LoadContacts("")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set("alice", "not an address"); !errors.Is(err, ErrInvalidContact) {
		t.Errorf("Set error = %v, want ErrInvalidContact", err)
	}
	if _, ok := c.Lookup("alice"); ok {
		t.Error("invalid address must not be stored")
	}
}

func TestContacts_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.yaml")
	if err := os.WriteFile(path, []byte("- just\n- a list\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadContacts(path); err == nil {
		t.Error("expected parse error for a YAML list")
	}
}
