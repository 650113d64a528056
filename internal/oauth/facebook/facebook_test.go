package facebook

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthURL(t *testing.T) {
	t.Parallel()
	raw, state, err := AuthURL(Config{
		AppID:       "1234567890",
		RedirectURL: "https://bot.example.com/oauth/callback",
		Scopes:      []string{"pages_messaging"},
		State:       "xyz",
	})
	require.NoError(t, err)
	assert.Equal(t, "xyz", state)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.facebook.com", u.Host)
	assert.True(t, strings.HasSuffix(u.Path, "/dialog/oauth"))

	q := u.Query()
	assert.Equal(t, "1234567890", q.Get("client_id"))
	assert.Equal(t, "https://bot.example.com/oauth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "pages_messaging", q.Get("scope"))
	assert.Equal(t, "xyz", q.Get("state"))
}

func TestAuthURLDefaults(t *testing.T) {
	t.Parallel()
	raw, state, err := AuthURL(Config{AppID: "1", RedirectURL: "http://localhost:8080/cb"})
	require.NoError(t, err)
	assert.NotEmpty(t, state)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(DefaultScopes, " "), u.Query().Get("scope"))
	assert.Equal(t, state, u.Query().Get("state"))
}

func TestAuthURLValidation(t *testing.T) {
	t.Parallel()
	_, _, err := AuthURL(Config{RedirectURL: "https://x.example"})
	require.ErrorIs(t, err, ErrMissingAppID)

	for _, bad := range []string{"", "/relative", "ftp://x.example/cb", "https://"} {
		_, _, err = AuthURL(Config{AppID: "1", RedirectURL: bad})
		require.ErrorIs(t, err, ErrInvalidRedirectURL, bad)
	}
}
