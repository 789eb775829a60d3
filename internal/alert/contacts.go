package alert

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio"
	"gopkg.in/yaml.v3"
)

// ErrInvalidContact is returned for addresses that do not parse.
var ErrInvalidContact = errors.New("invalid contact address")

// Contacts maps registered labels to notification addresses. It is stored as
// a YAML mapping and rewritten atomically on every change.
type Contacts struct {
	path string

	mu      sync.RWMutex
	entries map[string]string
}

// LoadContacts reads the contact book at path. A missing file yields an
// empty book; an empty path yields an in-memory book.
func LoadContacts(path string) (*Contacts, error) {
	c := &Contacts{path: path, entries: make(map[string]string)}
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading contacts: %w", err)
	}
	if err := yaml.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("parsing contacts: %w", err)
	}
	if c.entries == nil {
		c.entries = make(map[string]string)
	}
	return c, nil
}

// Lookup returns the address stored for label.
func (c *Contacts) Lookup(label string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	addr, ok := c.entries[label]
	return addr, ok
}

// Set stores the address for label. An empty address removes the entry.
func (c *Contacts) Set(label, address string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if address == "" {
		delete(c.entries, label)
		return c.save()
	}

	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidContact, address, err)
	}
	c.entries[label] = parsed.Address
	return c.save()
}

// save must be called with mu held.
func (c *Contacts) save() error {
	if c.path == "" {
		return nil
	}
	data, err := yaml.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("encoding contacts: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o750); err != nil {
		return fmt.Errorf("writing contacts: %w", err)
	}
	if err := renameio.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("writing contacts: %w", err)
	}
	return nil
}
