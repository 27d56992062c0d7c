// Package cookiecloud fetches browser cookies from a CookieCloud relay server
// and selects the ones that belong to a target domain.
package cookiecloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mrlokans/weread-sync/internal/crypto"
)

const (
	// DefaultURL is the public relay used when none is configured.
	DefaultURL = "https://cookiecloud.malinkang.com/"

	defaultTimeout = 30 * time.Second
)

var (
	ErrMissingUUID       = errors.New("CookieCloud user id is not set")
	ErrInvalidResponse   = errors.New("CookieCloud returned invalid JSON")
	ErrUnreadablePayload = errors.New("unable to parse cookie_data")
)

// Options configures a relay client.
type Options struct {
	BaseURL   string
	UUID      string
	Password  string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client talks to a CookieCloud relay.
type Client struct {
	http     *resty.Client
	baseURL  string
	uuid     string
	password string
}

// NewClient creates a relay client.
func NewClient(opts Options) (*Client, error) {
	if opts.UUID == "" {
		return nil, ErrMissingUUID
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	if opts.Transport != nil {
		client.SetTransport(opts.Transport)
	}

	return &Client{
		http:     client,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		uuid:     opts.UUID,
		password: opts.Password,
	}, nil
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/get/%s", c.baseURL, c.uuid)
}

// Fetch downloads and decodes the cookie payload.
func (c *Client) Fetch(ctx context.Context) (*Payload, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"password": c.password}).
		Post(c.endpoint())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to CookieCloud: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &RelayError{StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 200)}
	}

	payload, err := decodeResponse(resp.Body(), c.password)
	if err != nil {
		return nil, err
	}

	log.Printf("CookieCloud: fetched cookies for %d domains", payload.Len())
	return payload, nil
}

// CookieHeader fetches the payload and renders the cookie header for target.
func (c *Client) CookieHeader(ctx context.Context, target string, aliases ...string) (string, error) {
	payload, err := c.Fetch(ctx)
	if err != nil {
		return "", err
	}

	header, match, err := CookieHeader(payload, target, aliases...)
	if err != nil {
		return "", err
	}

	log.Printf("CookieCloud: using %d cookies from %q (%s match)", len(match.Entries), match.Key, match.Strategy)
	return header, nil
}

func decodeResponse(body []byte, password string) (*Payload, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	raw, ok := envelope["cookie_data"]
	if !ok || isEmptyJSON(raw) {
		log.Printf("CookieCloud: response has no cookie_data, using the whole document")
		return ParsePayload(body)
	}

	return decodeCookieData(raw, password)
}

func decodeCookieData(raw json.RawMessage, password string) (*Payload, error) {
	trimmed := bytes.TrimSpace(raw)

	switch trimmed[0] {
	case '{':
		return ParsePayload(trimmed)
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadablePayload, err)
		}

		plaintext, err := crypto.DecodePayload(s, password)
		if err == nil {
			payload, perr := parsePlaintext(plaintext)
			if perr == nil {
				return payload, nil
			}
			err = perr
		}

		// Some deployments send the JSON document as a plain string.
		if payload, jerr := ParsePayload([]byte(s)); jerr == nil {
			return payload, nil
		}
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", ErrUnreadablePayload, ErrNotAnObject)
	}
}

// parsePlaintext accepts either the bare domain map or the relay's full
// {"cookie_data": {...}, "local_storage_data": {...}} document.
func parsePlaintext(plaintext string) (*Payload, error) {
	var inner map[string]json.RawMessage
	if err := json.Unmarshal([]byte(plaintext), &inner); err == nil {
		if nested, ok := inner["cookie_data"]; ok {
			nested = bytes.TrimSpace(nested)
			if len(nested) > 0 && nested[0] == '{' {
				return ParsePayload(nested)
			}
		}
	}
	return ParsePayload([]byte(plaintext))
}

func isEmptyJSON(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", `""`, "{}", "[]", "false":
		return true
	}
	return false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
