// Package facebook builds the Facebook login dialog URL for the page the
// chatbot is connected to. No token exchange happens here.
package facebook

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	fbendpoint "golang.org/x/oauth2/facebook"
)

// DefaultScopes are the page permissions the chatbot needs.
var DefaultScopes = []string{"pages_show_list", "pages_messaging", "pages_manage_metadata"}

var (
	ErrMissingAppID       = errors.New("facebook: app id is required")
	ErrInvalidRedirectURL = errors.New("facebook: redirect url must be an absolute http(s) url")
)

type Config struct {
	AppID       string
	RedirectURL string
	Scopes      []string // DefaultScopes when empty
	// State is echoed back on redirect. A random value is generated when empty.
	State string
}

func (c Config) oauth2() (*oauth2.Config, error) {
	appID := strings.TrimSpace(c.AppID)
	if appID == "" {
		return nil, ErrMissingAppID
	}
	u, err := url.Parse(strings.TrimSpace(c.RedirectURL))
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidRedirectURL
	}
	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	return &oauth2.Config{
		ClientID:    appID,
		RedirectURL: u.String(),
		Scopes:      scopes,
		Endpoint:    fbendpoint.Endpoint,
	}, nil
}

// AuthURL returns the login dialog URL and the state embedded in it.
func AuthURL(cfg Config) (authURL, state string, err error) {
	oc, err := cfg.oauth2()
	if err != nil {
		return "", "", err
	}
	state = strings.TrimSpace(cfg.State)
	if state == "" {
		state = uuid.NewString()
	}
	return oc.AuthCodeURL(state), state, nil
}

// Instructions is the text printed by the CLI next to the URL.
func Instructions(authURL string) string {
	return fmt.Sprintf("Open this URL in a browser, approve the requested permissions,\nthen copy the \"code\" parameter from the redirect:\n\n%s\n", authURL)
}
