package credentials

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/weread-sync/internal/config"
	"github.com/mrlokans/weread-sync/internal/cookiecloud"
	"github.com/mrlokans/weread-sync/internal/crypto"
)

type fakeRelay struct {
	header string
	err    error
	calls  int
	target string
}

func (f *fakeRelay) CookieHeader(_ context.Context, target string, _ ...string) (string, error) {
	f.calls++
	f.target = target
	return f.header, f.err
}

func TestCredential(t *testing.T) {
	ctx := context.Background()

	t.Run("direct cookie wins", func(t *testing.T) {
		relay := &fakeRelay{header: "from=relay"}
		p := NewProviderWithRelay("  wr_vid=1; wr_skey=2  ", relay)

		cred, source, err := p.Credential(ctx)
		require.NoError(t, err)
		assert.Equal(t, "wr_vid=1; wr_skey=2", string(cred))
		assert.Equal(t, SourceDirect, source)
		assert.Zero(t, relay.calls)
	})

	t.Run("relay used without direct cookie", func(t *testing.T) {
		relay := &fakeRelay{header: "wr_vid=1"}
		p := NewProviderWithRelay("", relay)

		cred, source, err := p.Credential(ctx)
		require.NoError(t, err)
		assert.Equal(t, "wr_vid=1", string(cred))
		assert.Equal(t, SourceCookieCloud, source)
		assert.Equal(t, "weread.qq.com", relay.target)
	})

	t.Run("relay failure is a configuration error", func(t *testing.T) {
		notFound := &cookiecloud.CredentialNotFoundError{Domain: "weread.qq.com", AvailableKeys: []string{"github.com"}}
		p := NewProviderWithRelay("", &fakeRelay{err: notFound})

		_, _, err := p.Credential(ctx)
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		var nf *cookiecloud.CredentialNotFoundError
		assert.ErrorAs(t, err, &nf)
		assert.Contains(t, err.Error(), "github.com")
	})

	t.Run("no source", func(t *testing.T) {
		p := NewProvider(&config.Config{})

		_, _, err := p.Credential(ctx)
		assert.ErrorIs(t, err, ErrNoSource)
	})
}

func TestNewProviderWithCookieCloud(t *testing.T) {
	doc := `{"weread":[{"name":"wr_vid","value":"7","domain":".weread.qq.com"},{"name":"other","value":"x","domain":".qq.com"}]}`
	ciphertext, err := crypto.EncryptRelayPayload(doc, "pw")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"cookie_data": ciphertext})
	}))
	defer server.Close()

	cfg := &config.Config{CookieCloud: config.CookieCloud{URL: server.URL, UUID: "id", Password: "pw"}}

	cred, source, err := NewProvider(cfg).Credential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wr_vid=7", string(cred))
	assert.Equal(t, SourceCookieCloud, source)
}

func TestMaskCredential(t *testing.T) {
	assert.Equal(t, "wr_vid=***; wr_skey=***", MaskCredential("wr_vid=123; wr_skey=secret"))
	assert.Equal(t, "***", MaskCredential("garbage"))
	assert.Equal(t, "***", MaskCredential(""))
}
