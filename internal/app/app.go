package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/abdulachik/doomsayer/internal/bot"
	"github.com/abdulachik/doomsayer/internal/config"
	"github.com/abdulachik/doomsayer/internal/history"
	"github.com/abdulachik/doomsayer/internal/mastodon"
	"github.com/abdulachik/doomsayer/internal/notify"
	"github.com/abdulachik/doomsayer/internal/poster"
	"github.com/abdulachik/doomsayer/internal/register"
	"github.com/abdulachik/doomsayer/internal/state"
	"github.com/abdulachik/doomsayer/internal/toots"
)

// App is the main application container holding all dependencies.
type App struct {
	Config  *config.Config
	Client  *mastodon.Client
	History *history.Store
	Bot     *bot.Bot
}

// Options carries the per-invocation inputs.
type Options struct {
	StatePath string
	TootsPath string
	DryRun    bool
	In        io.Reader
	Out       io.Writer
}

// New creates a new application instance with all dependencies wired up.
// The post history is opened only when configured; a history that cannot be
// opened is logged and skipped.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	client := mastodon.New(mastodon.Config{Timeout: cfg.HTTPTimeout})

	a := &App{
		Config: cfg,
		Client: client,
	}

	var recorder bot.Recorder
	if cfg.HistoryPath != "" && !opts.DryRun {
		store, err := history.Open(ctx, cfg.HistoryPath)
		if err != nil {
			slog.Warn("post history disabled", "path", cfg.HistoryPath, "error", err)
		} else {
			a.History = store
			recorder = store
		}
	}

	flow := register.New(register.Config{
		Registerer:  register.MastodonRegisterer{Client: client},
		InstanceURL: cfg.InstanceURL,
		ClientName:  cfg.ClientName,
		Website:     cfg.ClientWebsite,
		In:          opts.In,
		Out:         opts.Out,
	})

	a.Bot = bot.New(bot.Config{
		StatePath: opts.StatePath,
		Toots:     toots.NewSource(opts.TootsPath),
		Registrar: registrar{cfg: cfg, flow: flow},
		NewPoster: func(cred state.Credential) poster.Poster {
			return poster.NewMastodonPoster(poster.MastodonConfig{
				Client:     client,
				Credential: cred,
			})
		},
		Recorder: recorder,
		Notifier: notify.NewLogNotifier(nil),
		DryRun:   opts.DryRun,
		Out:      opts.Out,
	})

	return a, nil
}

// registrar checks the registration settings before starting the flow. They
// are not needed once a credential exists, since posting uses the instance
// stored with it.
type registrar struct {
	cfg  *config.Config
	flow *register.Flow
}

func (r registrar) Run(ctx context.Context) (state.State, error) {
	if err := r.cfg.ValidateForRegistration(); err != nil {
		return state.State{}, fmt.Errorf("validate config: %w", err)
	}
	return r.flow.Run(ctx)
}

// Close closes all resources.
func (a *App) Close() error {
	if a.History != nil {
		return a.History.Close()
	}
	return nil
}
