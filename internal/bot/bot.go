// Package bot runs one invocation of the posting bot: load or create the
// state, then publish at most one line from the toots file.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/abdulachik/doomsayer/internal/history"
	"github.com/abdulachik/doomsayer/internal/notify"
	"github.com/abdulachik/doomsayer/internal/poster"
	"github.com/abdulachik/doomsayer/internal/state"
	"github.com/abdulachik/doomsayer/internal/toots"
)

// Outcome is what a run did.
type Outcome int

const (
	OutcomeRegistered Outcome = iota + 1
	OutcomePosted
	OutcomeExhausted
	OutcomeDryRun
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRegistered:
		return "registered"
	case OutcomePosted:
		return "posted"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeDryRun:
		return "dry-run"
	default:
		return "unknown"
	}
}

// ErrNoStateForDryRun is returned by a dry run when the bot has not been
// registered yet.
var ErrNoStateForDryRun = errors.New("no state file; run without --dry-run to register first")

// Registrar obtains a fresh state through the interactive registration.
type Registrar interface {
	Run(ctx context.Context) (state.State, error)
}

// PosterFactory builds a poster for a stored credential.
type PosterFactory func(cred state.Credential) poster.Poster

// Recorder stores published posts. Implemented by *history.Store.
type Recorder interface {
	RecordPost(ctx context.Context, p history.RecordPostParams) (int64, error)
}

// Result describes a completed run.
type Result struct {
	Outcome Outcome
	Index   int
	Text    string
	Post    *poster.PostResult
}

// Bot performs a single run.
type Bot struct {
	statePath string
	toots     *toots.Source
	registrar Registrar
	newPoster PosterFactory
	recorder  Recorder
	notifier  notify.Notifier
	dryRun    bool
	out       io.Writer
}

// Config holds bot configuration.
type Config struct {
	StatePath string
	Toots     *toots.Source
	Registrar Registrar
	NewPoster PosterFactory

	// Recorder is optional.
	Recorder Recorder

	// Notifier defaults to a LogNotifier.
	Notifier notify.Notifier

	// DryRun prints the next line to Out without posting or saving.
	DryRun bool
	Out    io.Writer
}

// New creates a new bot.
func New(cfg Config) *Bot {
	n := cfg.Notifier
	if n == nil {
		n = notify.NewLogNotifier(nil)
	}
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}

	return &Bot{
		statePath: cfg.StatePath,
		toots:     cfg.Toots,
		registrar: cfg.Registrar,
		newPoster: cfg.NewPoster,
		recorder:  cfg.Recorder,
		notifier:  n,
		dryRun:    cfg.DryRun,
		out:       out,
	}
}

// Run loads the state, registering when none exists, and otherwise posts the
// next line. Any returned error means the state file was not advanced.
func (b *Bot) Run(ctx context.Context) (*Result, error) {
	slog.Info("loading state", "path", b.statePath)

	st, err := state.Load(b.statePath)
	switch {
	case errors.Is(err, state.ErrNotFound):
		slog.Info("state file not found", "path", b.statePath)
		if b.dryRun {
			return nil, ErrNoStateForDryRun
		}
		return b.register(ctx)
	case err != nil:
		return nil, fmt.Errorf("load state: %w", err)
	}

	slog.Debug("loaded state", "state", st)

	return b.postNext(ctx, st)
}

func (b *Bot) register(ctx context.Context) (*Result, error) {
	st, err := b.registrar.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("registration: %w", err)
	}

	if err := state.Save(b.statePath, st); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	slog.Info("registration successful, the first post happens on the next run", "path", b.statePath)
	b.notify(ctx, "registered", "Credential saved to "+b.statePath+".")

	return &Result{Outcome: OutcomeRegistered}, nil
}

func (b *Bot) postNext(ctx context.Context, st state.State) (*Result, error) {
	idx := st.NextIndex()

	slog.Info("reading next toot", "path", b.toots.Path(), "index", idx)
	text, ok, err := b.toots.Line(idx)
	if err != nil {
		slog.Error("could not read toot", "index", idx, "error", err)
		return nil, fmt.Errorf("read toot %d: %w", idx, err)
	}

	if !ok {
		return b.exhausted(ctx, st, idx)
	}

	if b.dryRun {
		fmt.Fprintf(b.out, "Next toot (index %d):\n%s\n", idx, text)
		return &Result{Outcome: OutcomeDryRun, Index: idx, Text: text}, nil
	}

	slog.Info("tooting", "index", idx, "text", text)

	p := b.newPoster(st.Credential)
	res, err := p.Post(ctx, poster.PostContent{
		Text:           text,
		IdempotencyKey: IdempotencyKey(st.Credential, idx, text),
	})
	if err != nil {
		slog.Error("toot failed", "index", idx, "error", err)
		return nil, fmt.Errorf("post toot %d: %w", idx, err)
	}

	slog.Info("toot successful", "index", idx, "uri", res.URI)

	if err := state.Save(b.statePath, st.Advance(idx)); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	b.record(ctx, p.Platform(), idx, text, res)

	return &Result{Outcome: OutcomePosted, Index: idx, Text: text, Post: res}, nil
}

// exhausted handles the steady state where every line has been posted.
// The state is rewritten with unchanged values.
func (b *Bot) exhausted(ctx context.Context, st state.State, idx int) (*Result, error) {
	slog.Info("all out of toots", "index", idx, "path", b.toots.Path())

	if b.dryRun {
		fmt.Fprintf(b.out, "Out of content: no line at index %d.\n", idx)
		return &Result{Outcome: OutcomeExhausted, Index: idx}, nil
	}

	if err := state.Save(b.statePath, st); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	b.notify(ctx, "out of content",
		"Every line of "+b.toots.Path()+" has been posted; append more to resume.")

	return &Result{Outcome: OutcomeExhausted, Index: idx}, nil
}

func (b *Bot) record(ctx context.Context, platform string, idx int, text string, res *poster.PostResult) {
	if b.recorder == nil {
		return
	}
	_, err := b.recorder.RecordPost(ctx, history.RecordPostParams{
		TootIndex: idx,
		Text:      text,
		Platform:  platform,
		StatusID:  res.PostID,
		URI:       res.URI,
		URL:       res.PostURL,
	})
	if err != nil {
		slog.Warn("failed to record post", "error", err)
	}
}

func (b *Bot) notify(ctx context.Context, subject, body string) {
	if err := b.notifier.Send(ctx, notify.Notification{Subject: subject, Body: body}); err != nil {
		slog.Warn("failed to send notification", "subject", subject, "error", err)
	}
}

// IdempotencyKey derives a stable key for posting text at idx with cred, so
// resubmitting the same line after an ambiguous failure is deduplicated by
// the instance.
func IdempotencyKey(cred state.Credential, idx int, text string) string {
	name := cred.Base + "\x00" + cred.ClientID + "\x00" + strconv.Itoa(idx) + "\x00" + text
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
