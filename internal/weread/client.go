// Package weread is a client for the private WeRead web API.
//
// Every call visits the home page first, then issues the request with the
// session cookie and classifies the errcode field of the response. Transient
// failures are retried through a RetryPolicy. Expired cookies are not.
package weread

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultBaseURL is the WeRead web origin.
	DefaultBaseURL = "https://weread.qq.com"
	// Domain is the cookie domain of the WeRead session.
	Domain = "weread.qq.com"

	defaultTimeout   = 60 * time.Second
	warmUpTimeout    = 30 * time.Second
	browseDelayBase  = 1000 * time.Millisecond
	browseDelayRange = 2000 * time.Millisecond

	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"
	acceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"
)

const (
	pathRoot         = "/"
	pathNotebooks    = "/api/user/notebook"
	pathBookInfo     = "/api/book/info"
	pathBookmarks    = "/web/book/bookmarklist"
	pathChapterInfos = "/web/book/chapterInfos"
	pathReviews      = "/web/review/list"
	pathBestReviews  = "/web/review/list/best"
	pathReadProgress = "/web/book/getProgress"
	pathShelfSync    = "/web/shelf/sync"
)

// SessionCredential is a rendered Cookie header for weread.qq.com.
type SessionCredential string

// Options configures a Client.
type Options struct {
	BaseURL     string
	Credential  SessionCredential
	Timeout     time.Duration
	Retry       *RetryPolicy
	Transport   http.RoundTripper
	BrowserTLS  bool                 // wrap the transport with a browser-like TLS fingerprint
	BrowseDelay func() time.Duration // pause before chapterInfos, 1-3s by default
}

// Client owns one HTTP session bound to one credential.
type Client struct {
	http        *resty.Client
	baseURL     string
	credential  SessionCredential
	retry       RetryPolicy
	browseDelay func() time.Duration
	initialized atomic.Bool
}

// NewClient creates a client with the credential loaded into its session.
func NewClient(opts Options) (*Client, error) {
	credential := SessionCredential(strings.TrimSpace(string(opts.Credential)))
	if credential == "" {
		return nil, ErrEmptyCredential
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}

	retry := DefaultRetryPolicy()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	browseDelay := opts.BrowseDelay
	if browseDelay == nil {
		jitter := clockJitter(browseDelayRange)
		browseDelay = func() time.Duration { return browseDelayBase + jitter() }
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))

	jar, err := sessionJar(opts.BaseURL, credential)
	if err != nil {
		return nil, err
	}
	// The jar carries the session so Set-Cookie refreshes replace it. A
	// credential it cannot hold verbatim is sent as a fixed header instead.
	client.SetCookieJar(jar)
	if jar == nil {
		client.SetHeader("Cookie", string(credential))
	}
	if opts.Transport != nil {
		client.SetTransport(opts.Transport)
	}
	if opts.BrowserTLS {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetTimeout(opts.Timeout)
	client.SetHeaders(map[string]string{
		"User-Agent":      userAgent,
		"Accept-Language": acceptLanguage,
	})

	return &Client{
		http:        client,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		credential:  credential,
		retry:       retry,
		browseDelay: browseDelay,
	}, nil
}

// sessionJar returns a cookie jar holding the credential for baseURL, or nil
// when some pair would not survive net/http's cookie sanitizing unchanged.
func sessionJar(baseURL string, credential SessionCredential) (http.CookieJar, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid WeRead base URL %q", baseURL)
	}

	var cookies []*http.Cookie
	for _, part := range strings.Split(string(credential), ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok || !validCookieName(name) || !validCookieValue(value) {
			return nil, nil
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	if len(cookies) == 0 {
		return nil, nil
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	jar.SetCookies(u, cookies)
	return jar, nil
}

func validCookieName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		b := name[i]
		if b <= ' ' || b >= 0x7f || strings.IndexByte(`()<>@,;:\"/[]?={}`, b) >= 0 {
			return false
		}
	}
	return true
}

// validCookieValue reports whether v consists of RFC 6265 cookie-octets only.
func validCookieValue(v string) bool {
	for i := 0; i < len(v); i++ {
		b := v[i]
		if b <= ' ' || b >= 0x7f || b == '"' || b == ',' || b == ';' || b == '\\' {
			return false
		}
	}
	return true
}

// Initialized reports whether any call has succeeded on this session.
func (c *Client) Initialized() bool {
	return c.initialized.Load()
}

// WarmUp loads the home page so the server sets up same-origin session state.
// Failures are logged and ignored.
func (c *Client) WarmUp(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, warmUpTimeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(navigationHeaders()).
		Get(pathRoot)
	if err != nil {
		log.Printf("WeRead: home page visit failed: %v", err)
		return false
	}
	if resp.IsError() {
		log.Printf("WeRead: home page visit returned HTTP %d", resp.StatusCode())
		return false
	}
	return true
}

func navigationHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Cache-Control":             "no-cache",
		"Pragma":                    "no-cache",
		"Sec-Ch-Ua":                 `"Google Chrome";v="135", "Not-A.Brand";v="8", "Chromium";v="135"`,
		"Sec-Ch-Ua-Mobile":          "?0",
		"Sec-Ch-Ua-Platform":        `"Windows"`,
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "same-origin",
		"Upgrade-Insecure-Requests": "1",
	}
}

// request describes a single API call.
type request struct {
	method  string
	path    string
	params  map[string]string
	body    any
	headers map[string]string
}

// send performs the request and returns the raw body. It does not look at errcode.
func (c *Client) send(ctx context.Context, r request) (*resty.Response, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json, text/plain, */*")

	params := make(map[string]string, len(r.params)+1)
	for k, v := range r.params {
		params[k] = v
	}
	params["_"] = strconv.FormatInt(time.Now().UnixMilli(), 10)
	req.SetQueryParams(params)

	if r.body != nil {
		req.SetBody(r.body)
	}
	if r.headers != nil {
		req.SetHeaders(r.headers)
	}

	resp, err := req.Execute(r.method, r.path)
	if err != nil {
		return nil, &APIError{Endpoint: r.path, Err: err}
	}
	return resp, nil
}

// call warms up the session, sends the request and classifies the response.
func (c *Client) call(ctx context.Context, r request) ([]byte, error) {
	c.WarmUp(ctx)

	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}

	body := resp.Body()
	if code, message, ok := parseErrcode(body); ok && code != 0 {
		return nil, classifyErrcode(r.path, code, message)
	}
	if resp.IsError() {
		return nil, &APIError{Endpoint: r.path, StatusCode: resp.StatusCode()}
	}
	if !json.Valid(body) {
		return nil, &StructuralMismatchError{Endpoint: r.path, Detail: "response is not JSON"}
	}

	c.initialized.Store(true)
	return body, nil
}

func decode(endpoint string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &StructuralMismatchError{Endpoint: endpoint, Detail: err.Error()}
	}
	return nil
}
