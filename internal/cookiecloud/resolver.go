package cookiecloud

import (
	"fmt"
	"strings"
)

// Match describes which entries were selected for a domain and how.
type Match struct {
	Key      string
	Strategy string
	Entries  []CookieEntry
}

const (
	StrategyKey      = "key"
	StrategyAlias    = "alias"
	StrategyCrossKey = "cross-key"
)

// ResolveDomain finds the payload key for target. Exact key wins, then the
// leading-dot key, then the first key (in payload order) ending with target.
func ResolveDomain(p *Payload, target string) (string, error) {
	dotted := "." + target

	if _, ok := p.Entries(target); ok {
		return target, nil
	}
	if _, ok := p.Entries(dotted); ok {
		return dotted, nil
	}
	for _, key := range p.keys {
		if key == target || key == dotted || strings.HasSuffix(key, target) {
			return key, nil
		}
	}

	return "", &CredentialNotFoundError{Domain: target, AvailableKeys: p.Keys()}
}

// Resolve selects the cookies for target.
//
// A non-empty textual key match is used first. Otherwise each alias key is
// filtered by the entries' own domain attribute, and finally every key is
// scanned the same way. An empty selection is never returned as a match.
func Resolve(p *Payload, target string, aliases ...string) (*Match, error) {
	if key, err := ResolveDomain(p, target); err == nil {
		if entries, _ := p.Entries(key); len(entries) > 0 {
			return &Match{Key: key, Strategy: StrategyKey, Entries: entries}, nil
		}
	}

	for _, alias := range aliases {
		entries, ok := p.Entries(alias)
		if !ok {
			continue
		}
		if filtered := filterByDomain(entries, target); len(filtered) > 0 {
			return &Match{Key: alias, Strategy: StrategyAlias, Entries: filtered}, nil
		}
	}

	for _, key := range p.keys {
		if filtered := filterByDomain(p.entries[key], target); len(filtered) > 0 {
			return &Match{Key: key, Strategy: StrategyCrossKey, Entries: filtered}, nil
		}
	}

	return nil, &CredentialNotFoundError{Domain: target, AvailableKeys: p.Keys()}
}

func filterByDomain(entries []CookieEntry, target string) []CookieEntry {
	var out []CookieEntry
	for _, e := range entries {
		if e.Domain == target || e.Domain == "."+target {
			out = append(out, e)
		}
	}
	return out
}

// RenderCookieHeader joins entries as "name=value; name=value" in order.
// Values are copied byte for byte. Entries without a name are skipped.
func RenderCookieHeader(entries []CookieEntry) (string, error) {
	var b strings.Builder
	n := 0
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		if n > 0 {
			b.WriteString("; ")
		}
		b.WriteString(e.Name)
		b.WriteByte('=')
		b.WriteString(e.Value)
		n++
	}
	if n == 0 {
		return "", ErrEmptyCredential
	}
	return b.String(), nil
}

// CookieHeader resolves and renders the cookie header for target.
func CookieHeader(p *Payload, target string, aliases ...string) (string, *Match, error) {
	match, err := Resolve(p, target, aliases...)
	if err != nil {
		return "", nil, err
	}
	header, err := RenderCookieHeader(match.Entries)
	if err != nil {
		return "", match, fmt.Errorf("cookies under %q for %s: %w", match.Key, target, err)
	}
	return header, match, nil
}
