package mastodon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/abdulachik/doomsayer/internal/state"
)

// App describes an application to register with an instance.
type App struct {
	ClientName   string
	RedirectURIs string
	Scopes       string
	Website      string
}

// Registration is a registered application awaiting authorization.
type Registration struct {
	Base         string
	App          App
	ClientID     string
	ClientSecret string

	client *Client
}

// registerResponse is the response from POST /api/v1/apps.
type registerResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// RegisterApplication registers app with the instance at base.
func (c *Client) RegisterApplication(ctx context.Context, base string, app App) (*Registration, error) {
	base = strings.TrimRight(base, "/")

	form := url.Values{
		"client_name":   {app.ClientName},
		"redirect_uris": {app.RedirectURIs},
		"scopes":        {app.Scopes},
	}
	if app.Website != "" {
		form.Set("website", app.Website)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		endpoint(base, "/api/v1/apps"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp registerResponse
	if err := c.do(c.httpClient, req, &resp); err != nil {
		return nil, err
	}
	if resp.ClientID == "" || resp.ClientSecret == "" {
		return nil, errors.New("response missing client credentials")
	}

	return &Registration{
		Base:         base,
		App:          app,
		ClientID:     resp.ClientID,
		ClientSecret: resp.ClientSecret,
		client:       c,
	}, nil
}

func (r *Registration) oauthConfig() *oauth2.Config {
	var scopes []string
	if r.App.Scopes != "" {
		scopes = strings.Fields(r.App.Scopes)
	}
	return &oauth2.Config{
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
		RedirectURL:  r.App.RedirectURIs,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   endpoint(r.Base, "/oauth/authorize"),
			TokenURL:  endpoint(r.Base, "/oauth/token"),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthorizationURL returns the URL the operator visits, while logged in as
// the bot account, to obtain an authorization code.
func (r *Registration) AuthorizationURL() string {
	return r.oauthConfig().AuthCodeURL("")
}

// ExchangeCode trades an authorization code for an access credential.
func (r *Registration) ExchangeCode(ctx context.Context, code string) (state.Credential, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return state.Credential{}, errors.New("exchange code: authorization code is empty")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client.httpClient)
	tok, err := r.oauthConfig().Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			return state.Credential{}, fmt.Errorf("exchange code: %w",
				newAPIError(rerr.Response.StatusCode, rerr.Body))
		}
		return state.Credential{}, fmt.Errorf("exchange code: %w", err)
	}

	return state.Credential{
		Base:         r.Base,
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
		Redirect:     r.App.RedirectURIs,
		Token:        tok.AccessToken,
	}, nil
}
