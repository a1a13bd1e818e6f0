package poster

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abdulachik/doomsayer/internal/mastodon"
	"github.com/abdulachik/doomsayer/internal/state"
)

// MastodonPoster posts statuses to a Mastodon instance.
type MastodonPoster struct {
	client     *mastodon.Client
	credential state.Credential
}

// MastodonConfig holds configuration for the Mastodon poster.
type MastodonConfig struct {
	Client     *mastodon.Client
	Credential state.Credential
}

// NewMastodonPoster creates a new Mastodon poster.
func NewMastodonPoster(cfg MastodonConfig) *MastodonPoster {
	client := cfg.Client
	if client == nil {
		client = mastodon.New(mastodon.Config{})
	}
	return &MastodonPoster{
		client:     client,
		credential: cfg.Credential,
	}
}

// Platform returns the platform name.
func (m *MastodonPoster) Platform() string {
	return "mastodon"
}

// ValidateCredentials checks the stored credential against the instance.
func (m *MastodonPoster) ValidateCredentials(ctx context.Context) error {
	name, err := m.client.VerifyCredentials(ctx, m.credential)
	if err != nil {
		return fmt.Errorf("verify credentials: %w", err)
	}
	slog.Debug("credentials valid", "instance", m.credential.Base, "app", name)
	return nil
}

// Post publishes content as a new status.
func (m *MastodonPoster) Post(ctx context.Context, content PostContent) (*PostResult, error) {
	status, err := m.client.PostStatus(ctx, m.credential, content.Text, content.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("post status: %w", err)
	}

	slog.Info("posted to Mastodon",
		"uri", status.URI,
		"url", status.URL,
	)

	return &PostResult{
		PostID:  status.ID,
		URI:     status.URI,
		PostURL: status.URL,
	}, nil
}
