// Package register runs the one-time interactive authorization that gives
// the bot its access credential.
package register

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/abdulachik/doomsayer/internal/mastodon"
	"github.com/abdulachik/doomsayer/internal/state"
)

const (
	// DefaultClientName is the application name shown on the instance.
	DefaultClientName = "doomsayer"

	// DefaultWebsite is the informational homepage sent with the application.
	DefaultWebsite = "https://github.com/deifactor/doomsayer"
)

// Authorization is a registered application waiting for the operator's code.
type Authorization interface {
	AuthorizationURL() string
	ExchangeCode(ctx context.Context, code string) (state.Credential, error)
}

// Registerer registers an application with an instance.
type Registerer interface {
	Register(ctx context.Context, base string, app mastodon.App) (Authorization, error)
}

// MastodonRegisterer adapts mastodon.Client to Registerer.
type MastodonRegisterer struct {
	Client *mastodon.Client
}

// Register implements Registerer.
func (m MastodonRegisterer) Register(ctx context.Context, base string, app mastodon.App) (Authorization, error) {
	reg, err := m.Client.RegisterApplication(ctx, base, app)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Flow walks the operator through registration.
type Flow struct {
	registerer  Registerer
	instanceURL string
	app         mastodon.App
	in          *bufio.Reader
	out         io.Writer
}

// Config holds configuration for the registration flow.
type Config struct {
	Registerer  Registerer
	InstanceURL string
	ClientName  string
	Website     string
	In          io.Reader
	Out         io.Writer
}

// New creates a registration flow.
func New(cfg Config) *Flow {
	name := cfg.ClientName
	if name == "" {
		name = DefaultClientName
	}
	website := cfg.Website
	if website == "" {
		website = DefaultWebsite
	}

	return &Flow{
		registerer:  cfg.Registerer,
		instanceURL: cfg.InstanceURL,
		app: mastodon.App{
			ClientName:   name,
			RedirectURIs: mastodon.OutOfBandRedirect,
			Scopes:       mastodon.ScopeWrite,
			Website:      website,
		},
		in:  bufio.NewReader(cfg.In),
		out: cfg.Out,
	}
}

// Run registers the application, asks the operator for an authorization code
// and returns a fresh state holding the resulting credential. Nothing is
// persisted here.
func (f *Flow) Run(ctx context.Context) (state.State, error) {
	slog.Info("registering application", "instance", f.instanceURL, "client_name", f.app.ClientName)

	auth, err := f.registerer.Register(ctx, f.instanceURL, f.app)
	if err != nil {
		return state.State{}, fmt.Errorf("register application: %w", err)
	}

	fmt.Fprintf(f.out, "Visit this link while logged in as the bot: %s\n", auth.AuthorizationURL())
	fmt.Fprint(f.out, "Paste the code you got from your instance: ")

	code, err := f.readCode()
	if err != nil {
		return state.State{}, err
	}

	cred, err := auth.ExchangeCode(ctx, code)
	if err != nil {
		return state.State{}, fmt.Errorf("obtain access token: %w", err)
	}

	return state.New(cred), nil
}

func (f *Flow) readCode() (string, error) {
	line, err := f.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read authorization code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return "", errors.New("read authorization code: no code entered")
	}
	return code, nil
}
