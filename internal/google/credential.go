package google

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
)

// Credential is an OAuth credential as obtained by the external
// authorization flow: the token plus the scopes the user granted.
type Credential struct {
	Token *oauth2.Token
	// GrantedScopes are the scopes actually granted, which may be fewer
	// than requested when the user unchecks boxes on the consent screen.
	GrantedScopes []string
}

// HTTPClient returns an HTTP client authenticated with the credential.
// HTTP/2 is disabled to avoid protocol errors against the Google APIs.
func (c *Credential) HTTPClient(ctx context.Context) *http.Client {
	conf := oauthConfig()
	client := oauth2.NewClient(ctx, conf.TokenSource(ctx, c.Token))

	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			ForceAttemptHTTP2: false,
		}
	}
	return client
}

// oauthConfig returns the OAuth2 configuration shared by all Google
// services. Client id and secret come from the environment.
func oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		Endpoint:     googleauth.Endpoint,
		Scopes:       DefaultOAuthScopes,
	}
}

// LoadCredential reads a stored credential for the user. The token file
// holds the access token, refresh token and the granted scopes, written by
// the authorization flow:
//
//	<access-token> <refresh-token> <scope>[,<scope>...]
func LoadCredential(path string) (*Credential, error) {
	slurp, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no stored Google OAuth token: %w", err)
	}

	f := strings.Fields(strings.TrimSpace(string(slurp)))
	if len(f) < 2 {
		return nil, fmt.Errorf("invalid token file format in %s", path)
	}

	cred := &Credential{
		Token: &oauth2.Token{
			AccessToken:  f[0],
			TokenType:    "Bearer",
			RefreshToken: f[1],
		},
	}
	if len(f) > 2 {
		cred.GrantedScopes = strings.Split(f[2], ",")
	}
	return cred, nil
}

// DefaultCredentialPath is where the authorization flow stores tokens.
func DefaultCredentialPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "google.token"
	}
	return filepath.Join(home, ".cache", "inboxplan", "google.token")
}
