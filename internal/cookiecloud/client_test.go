package cookiecloud

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/weread-sync/internal/crypto"
)

const wereadCookies = `{"weread.qq.com":[{"name":"wr_vid","value":"42","domain":".weread.qq.com"},{"name":"wr_skey","value":"sk%3D","domain":".weread.qq.com"}]}`

func relayServer(t *testing.T, password string, body any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/get/my-uuid", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, password, r.PostForm.Get("password"))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
}

func newTestClient(t *testing.T, url, password string) *Client {
	t.Helper()
	c, err := NewClient(Options{BaseURL: url + "/", UUID: "my-uuid", Password: password})
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	t.Run("requires uuid", func(t *testing.T) {
		_, err := NewClient(Options{})
		assert.ErrorIs(t, err, ErrMissingUUID)
	})

	t.Run("defaults and trailing slash", func(t *testing.T) {
		c, err := NewClient(Options{UUID: "id"})
		require.NoError(t, err)
		assert.Equal(t, "https://cookiecloud.malinkang.com/get/id", c.endpoint())
	})
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("plain object payload", func(t *testing.T) {
		server := relayServer(t, "pw", map[string]json.RawMessage{
			"cookie_data": json.RawMessage(wereadCookies),
		})
		defer server.Close()

		header, err := newTestClient(t, server.URL, "pw").CookieHeader(ctx, "weread.qq.com")
		require.NoError(t, err)
		assert.Equal(t, "wr_vid=42; wr_skey=sk%3D", header)
	})

	t.Run("encrypted payload", func(t *testing.T) {
		ciphertext, err := crypto.EncryptRelayPayload(wereadCookies, "pw")
		require.NoError(t, err)
		server := relayServer(t, "pw", map[string]string{"cookie_data": ciphertext})
		defer server.Close()

		p, err := newTestClient(t, server.URL, "pw").Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"weread.qq.com"}, p.Keys())
	})

	t.Run("encrypted full relay document", func(t *testing.T) {
		doc := `{"cookie_data":` + wereadCookies + `,"local_storage_data":{},"update_time":"2024-01-01"}`
		ciphertext, err := crypto.EncryptRelayPayload(doc, "pw")
		require.NoError(t, err)
		server := relayServer(t, "pw", map[string]string{"encrypted": "x", "cookie_data": ciphertext})
		defer server.Close()

		p, err := newTestClient(t, server.URL, "pw").Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"weread.qq.com"}, p.Keys())
	})

	t.Run("base64 payload without password", func(t *testing.T) {
		server := relayServer(t, "", map[string]string{
			"cookie_data": base64.StdEncoding.EncodeToString([]byte(wereadCookies)),
		})
		defer server.Close()

		p, err := newTestClient(t, server.URL, "").Fetch(ctx)
		require.NoError(t, err)
		entries, ok := p.Entries("weread.qq.com")
		require.True(t, ok)
		assert.Len(t, entries, 2)
	})

	t.Run("json string payload", func(t *testing.T) {
		server := relayServer(t, "", map[string]string{"cookie_data": wereadCookies})
		defer server.Close()

		p, err := newTestClient(t, server.URL, "").Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Len())
	})

	t.Run("wrong password", func(t *testing.T) {
		ciphertext, err := crypto.EncryptRelayPayload(wereadCookies, "right")
		require.NoError(t, err)
		server := relayServer(t, "wrong", map[string]string{"cookie_data": ciphertext})
		defer server.Close()

		_, err = newTestClient(t, server.URL, "wrong").Fetch(ctx)
		var decErr *crypto.DecryptionError
		assert.ErrorAs(t, err, &decErr)
	})

	t.Run("missing cookie_data uses whole document", func(t *testing.T) {
		server := relayServer(t, "pw", json.RawMessage(wereadCookies))
		defer server.Close()

		p, err := newTestClient(t, server.URL, "pw").Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"weread.qq.com"}, p.Keys())
	})

	t.Run("non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("denied"))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL, "pw").Fetch(ctx)
		var relayErr *RelayError
		require.ErrorAs(t, err, &relayErr)
		assert.Equal(t, http.StatusForbidden, relayErr.StatusCode)
	})

	t.Run("invalid json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL, "pw").Fetch(ctx)
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("domain not present", func(t *testing.T) {
		server := relayServer(t, "pw", map[string]json.RawMessage{
			"cookie_data": json.RawMessage(`{"github.com":[{"name":"a","value":"b"}]}`),
		})
		defer server.Close()

		_, err := newTestClient(t, server.URL, "pw").CookieHeader(ctx, "weread.qq.com", "weread")
		var nf *CredentialNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, []string{"github.com"}, nf.AvailableKeys)
	})
}

func TestParsePayload(t *testing.T) {
	t.Run("preserves key and entry order", func(t *testing.T) {
		p, err := ParsePayload([]byte(`{"b.com":[{"name":"2","value":""},{"name":"1","value":""}],"a.com":[]}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"b.com", "a.com"}, p.Keys())
		entries, _ := p.Entries("b.com")
		assert.Equal(t, "2", entries[0].Name)
		assert.Equal(t, "1", entries[1].Name)
	})

	t.Run("skips non-list values", func(t *testing.T) {
		p, err := ParsePayload([]byte(`{"update_time":"2024","x.com":[{"name":"a","value":"b"}],"encrypted":true}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"x.com"}, p.Keys())
	})

	t.Run("rejects arrays", func(t *testing.T) {
		_, err := ParsePayload([]byte(`[]`))
		assert.ErrorIs(t, err, ErrNotAnObject)
	})
}
