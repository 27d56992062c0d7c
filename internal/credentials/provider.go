// Package credentials decides where the WeRead session cookie comes from.
//
// A direct WEREAD_COOKIE wins. Otherwise the cookie is fetched from the
// configured CookieCloud relay. The cookie is only ever held in memory.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mrlokans/weread-sync/internal/config"
	"github.com/mrlokans/weread-sync/internal/cookiecloud"
	"github.com/mrlokans/weread-sync/internal/weread"
)

// Aliases are relay keys that may hold WeRead cookies under a non-domain name.
var Aliases = []string{"weread"}

// ErrNoSource is returned when neither a cookie nor a relay is configured.
var ErrNoSource = errors.New("no WeRead cookie found: set WEREAD_COOKIE or CookieCloud (CC_URL, CC_ID, CC_PASSWORD)")

// ConfigurationError means no usable credential source is available.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Source identifies where a credential came from.
type Source string

const (
	SourceDirect      Source = "direct"
	SourceCookieCloud Source = "cookiecloud"
)

// Relay fetches a cookie header for a domain.
type Relay interface {
	CookieHeader(ctx context.Context, target string, aliases ...string) (string, error)
}

// Provider resolves the session credential.
type Provider struct {
	directCookie string
	relay        Relay
	relayErr     error
}

// NewProvider builds a provider from configuration.
func NewProvider(cfg *config.Config) *Provider {
	p := &Provider{directCookie: strings.TrimSpace(cfg.WeRead.Cookie)}

	if cfg.CookieCloud.HasCookieCloud() {
		relay, err := cookiecloud.NewClient(cookiecloud.Options{
			BaseURL:  cfg.CookieCloud.URL,
			UUID:     cfg.CookieCloud.UUID,
			Password: cfg.CookieCloud.Password,
		})
		if err != nil {
			p.relayErr = err
		} else {
			p.relay = relay
		}
	}
	return p
}

// NewProviderWithRelay is used when the relay client is built elsewhere.
func NewProviderWithRelay(directCookie string, relay Relay) *Provider {
	return &Provider{directCookie: strings.TrimSpace(directCookie), relay: relay}
}

// Credential returns the cookie header and its source.
func (p *Provider) Credential(ctx context.Context) (weread.SessionCredential, Source, error) {
	if p.directCookie != "" {
		log.Printf("Credentials: using WEREAD_COOKIE (%s)", MaskCredential(p.directCookie))
		return weread.SessionCredential(p.directCookie), SourceDirect, nil
	}

	if p.relayErr != nil {
		return "", "", &ConfigurationError{Err: p.relayErr}
	}
	if p.relay == nil {
		return "", "", &ConfigurationError{Err: ErrNoSource}
	}

	header, err := p.relay.CookieHeader(ctx, weread.Domain, Aliases...)
	if err != nil {
		log.Printf("Credentials: CookieCloud lookup failed: %v", err)
		return "", "", &ConfigurationError{Err: fmt.Errorf("CookieCloud: %w", err)}
	}

	log.Printf("Credentials: using CookieCloud cookie (%s)", MaskCredential(header))
	return weread.SessionCredential(header), SourceCookieCloud, nil
}

// MaskCredential hides cookie values, keeping only the cookie names.
func MaskCredential(header string) string {
	var names []string
	for _, part := range strings.Split(header, ";") {
		name, _, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found || name == "" {
			continue
		}
		names = append(names, name+"=***")
	}
	if len(names) == 0 {
		return "***"
	}
	return strings.Join(names, "; ")
}
