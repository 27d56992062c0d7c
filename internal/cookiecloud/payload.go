package cookiecloud

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotAnObject is returned when the cookie payload is not a JSON object.
var ErrNotAnObject = errors.New("cookie payload is not a JSON object")

// CookieEntry is a single cookie as stored by the relay browser extension.
type CookieEntry struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Payload maps domain keys to cookie entries.
// Key order follows the relay document so scans and diagnostics are stable.
type Payload struct {
	keys    []string
	entries map[string][]CookieEntry
}

// NewPayload creates an empty payload.
func NewPayload() *Payload {
	return &Payload{entries: make(map[string][]CookieEntry)}
}

// Set stores entries under key, appending the key to the order on first use.
func (p *Payload) Set(key string, entries []CookieEntry) {
	if _, ok := p.entries[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.entries[key] = entries
}

// Keys returns domain keys in document order.
func (p *Payload) Keys() []string {
	keys := make([]string, len(p.keys))
	copy(keys, p.keys)
	return keys
}

// Entries returns the entries stored under key.
func (p *Payload) Entries(key string) ([]CookieEntry, bool) {
	entries, ok := p.entries[key]
	return entries, ok
}

// Len returns the number of domain keys.
func (p *Payload) Len() int {
	return len(p.keys)
}

// ParsePayload parses a JSON object of domain key -> cookie list.
// Values that are not cookie lists (for example "update_time" when the whole
// relay response is used as the payload) are skipped.
func ParsePayload(raw []byte) (*Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse cookie payload: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotAnObject
	}

	p := NewPayload()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse cookie payload: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, ErrNotAnObject
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to parse cookies for %q: %w", key, err)
		}

		var entries []CookieEntry
		if err := json.Unmarshal(value, &entries); err != nil {
			continue
		}
		p.Set(key, entries)
	}

	return p, nil
}
