package state

import (
	"fmt"
	"log/slog"
	"strconv"
)

// Redacted replaces credential values in every textual rendering.
const Redacted = "[REDACTED]"

// Credential is the access credential issued by a Mastodon instance.
// It is persisted as-is but never rendered through fmt or slog.
type Credential struct {
	Base         string `json:"base"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Redirect     string `json:"redirect"`
	Token        string `json:"token"`
}

// String implements fmt.Stringer.
func (c Credential) String() string { return Redacted }

// GoString implements fmt.GoStringer.
func (c Credential) GoString() string { return Redacted }

// Format implements fmt.Formatter so that every verb, including %+v and %#v,
// prints the redaction marker.
func (c Credential) Format(f fmt.State, verb rune) {
	_, _ = f.Write([]byte(Redacted))
}

// LogValue implements slog.LogValuer.
func (c Credential) LogValue() slog.Value {
	return slog.StringValue(Redacted)
}

// State is the record persisted between runs.
type State struct {
	Credential Credential `json:"access_token"`

	// LastSuccessfulIndex is the zero-based index of the last line that was
	// posted. Nil means nothing has been posted yet.
	LastSuccessfulIndex *int `json:"last_successful_toot"`
}

// New returns a freshly registered state with no posts recorded.
func New(cred Credential) State {
	return State{Credential: cred}
}

// NextIndex returns the index of the next line to post.
func (s State) NextIndex() int {
	if s.LastSuccessfulIndex == nil {
		return 0
	}
	return *s.LastSuccessfulIndex + 1
}

// Advance returns a copy of s recording idx as the last successful post.
func (s State) Advance(idx int) State {
	s.LastSuccessfulIndex = &idx
	return s
}

// Equal reports whether two states hold the same values.
func (s State) Equal(o State) bool {
	if s.Credential != o.Credential {
		return false
	}
	if s.LastSuccessfulIndex == nil || o.LastSuccessfulIndex == nil {
		return s.LastSuccessfulIndex == o.LastSuccessfulIndex
	}
	return *s.LastSuccessfulIndex == *o.LastSuccessfulIndex
}

func (s State) indexString() string {
	if s.LastSuccessfulIndex == nil {
		return "none"
	}
	return strconv.Itoa(*s.LastSuccessfulIndex)
}

// String implements fmt.Stringer.
func (s State) String() string {
	return fmt.Sprintf("State{access_token: %s, last_successful_toot: %s}", Redacted, s.indexString())
}

// GoString implements fmt.GoStringer.
func (s State) GoString() string { return s.String() }

// Format implements fmt.Formatter. All verbs render the redacted form.
func (s State) Format(f fmt.State, verb rune) {
	_, _ = f.Write([]byte(s.String()))
}

// LogValue implements slog.LogValuer.
func (s State) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("access_token", Redacted)}
	if s.LastSuccessfulIndex == nil {
		attrs = append(attrs, slog.String("last_successful_toot", "none"))
	} else {
		attrs = append(attrs, slog.Int("last_successful_toot", *s.LastSuccessfulIndex))
	}
	return slog.GroupValue(attrs...)
}
