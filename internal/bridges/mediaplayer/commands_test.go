package mediaplayer

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const commandConfig = `{
	"command_play_topic": "p/cmd",
	"command_pause_topic": "p/cmd",
	"command_pause_payload": "HOLD",
	"command_next_topic": "p/cmd",
	"command_previous_topic": "p/cmd",
	"command_volume_topic": "p/volume/set",
	"command_seek_position_topic": "p/seek",
	"command_playmedia_topic": "p/media"
}`

type stubResolver struct {
	resolved ResolvedMedia
	err      error
	calls    []string
}

func (r *stubResolver) IsMediaSourceID(id string) bool { return strings.HasPrefix(id, MediaSourceScheme) }

func (r *stubResolver) Resolve(_ context.Context, id string) (ResolvedMedia, error) {
	r.calls = append(r.calls, id)
	return r.resolved, r.err
}

func newCommandPlayer(t *testing.T, resolver MediaResolver, obs StateObserver) (*Player, *MockTransport) {
	t.Helper()
	transport := NewMockTransport()
	p, err := NewPlayer(PlayerOptions{
		Identity:  "kitchen",
		Transport: transport,
		Resolver:  resolver,
		Observer:  obs,
	})
	if err != nil {
		t.Fatalf("NewPlayer() error: %v", err)
	}
	p.Start()
	t.Cleanup(func() { _ = p.Dispose(context.Background()) })
	configure(t, p, kitchenTopic, commandConfig)
	return p, transport
}

func TestExecute_FixedIntents(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"play default", Play(), "Play"},
		{"pause configured", Pause(), "HOLD"},
		{"next default", Next(), "Next"},
		{"previous default", Previous(), "Previous"},
		{"instance override", Command{Intent: IntentPlay, Payload: "resume"}, "resume"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, transport := newCommandPlayer(t, nil, nil)
			if err := p.Execute(context.Background(), tt.cmd); err != nil {
				t.Fatalf("Execute() error: %v", err)
			}
			pubs := transport.PublishedTo("p/cmd")
			if len(pubs) != 1 || pubs[0].Payload != tt.want {
				t.Errorf("published = %+v, want %q", pubs, tt.want)
			}
		})
	}
}

func TestExecute_CapabilityUnavailable(t *testing.T) {
	transport := NewMockTransport()
	p := newTestPlayer(t, transport, "kitchen", nil)
	configure(t, p, kitchenTopic, kitchenConfig)

	cmds := []Command{Pause(), Next(), Previous(), SetVolume(0.5), Seek(10), PlayMedia("music", "x")}
	for _, cmd := range cmds {
		if err := p.Execute(context.Background(), cmd); !errors.Is(err, ErrCapabilityUnavailable) {
			t.Errorf("Execute(%s) error = %v, want ErrCapabilityUnavailable", cmd.Intent, err)
		}
	}
	if pubs := transport.Published(); len(pubs) != 0 {
		t.Errorf("published = %+v, want no publish calls", pubs)
	}
}

func TestExecute_Unconfigured(t *testing.T) {
	transport := NewMockTransport()
	p := newTestPlayer(t, transport, "kitchen", nil)

	if err := p.Execute(context.Background(), Play()); !errors.Is(err, ErrCapabilityUnavailable) {
		t.Errorf("Execute(Play) error = %v, want ErrCapabilityUnavailable", err)
	}
	if len(transport.Published()) != 0 {
		t.Error("unconfigured player must not publish")
	}
}

func TestExecute_SetVolume(t *testing.T) {
	tests := []struct {
		level    float64
		wantText string
		wantSnap float64
	}{
		{0.456, "0.46", 0.46},
		{1, "1.0", 1},
		{0, "0.0", 0},
		{0.3, "0.3", 0.3},
	}
	for _, tt := range tests {
		obs := &MockObserver{}
		p, transport := newCommandPlayer(t, nil, obs)
		before := obs.Count()

		if err := p.Execute(context.Background(), SetVolume(tt.level)); err != nil {
			t.Fatalf("Execute(SetVolume(%v)) error: %v", tt.level, err)
		}
		pubs := transport.PublishedTo("p/volume/set")
		if len(pubs) != 1 || pubs[0].Payload != tt.wantText {
			t.Errorf("SetVolume(%v) published %+v, want %q", tt.level, pubs, tt.wantText)
		}
		if got := p.Snapshot().Volume; got != tt.wantSnap {
			t.Errorf("SetVolume(%v) snapshot volume = %v, want %v", tt.level, got, tt.wantSnap)
		}
		if obs.Count()-before != 1 {
			t.Errorf("SetVolume(%v) notifications = %d, want 1", tt.level, obs.Count()-before)
		}
	}
}

func TestExecute_SetVolumeOptimisticOnPublishFailure(t *testing.T) {
	p, transport := newCommandPlayer(t, nil, nil)
	transport.SetPublishError(errors.New("offline"))

	err := p.Execute(context.Background(), SetVolume(0.7))
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Execute() error = %v, want ErrTransport", err)
	}
	if got := p.Snapshot().Volume; got != 0.7 {
		t.Errorf("Volume = %v, optimistic update expected", got)
	}
}

func TestExecute_InvalidArguments(t *testing.T) {
	p, transport := newCommandPlayer(t, nil, nil)

	for _, cmd := range []Command{SetVolume(-0.1), SetVolume(1.5), Seek(-1), PlayMedia("music", ""), {Intent: Intent(42)}} {
		if err := p.Execute(context.Background(), cmd); !errors.Is(err, ErrInvalidCommand) {
			t.Errorf("Execute(%+v) error = %v, want ErrInvalidCommand", cmd, err)
		}
	}
	if len(transport.Published()) != 0 {
		t.Error("invalid commands must not publish")
	}
}

func TestExecute_Seek(t *testing.T) {
	obs := &MockObserver{}
	p, transport := newCommandPlayer(t, nil, obs)
	before := obs.Count()

	if err := p.Execute(context.Background(), Seek(93.5)); err != nil {
		t.Fatalf("Execute(Seek) error: %v", err)
	}
	pubs := transport.PublishedTo("p/seek")
	if len(pubs) != 1 || pubs[0].Payload != "93.5" {
		t.Errorf("published = %+v, want \"93.5\"", pubs)
	}
	if obs.Count() != before {
		t.Error("Seek must not change the snapshot")
	}
	if p.Snapshot().Position != nil {
		t.Error("Seek must not set position locally")
	}
}

func TestExecute_PlayMedia(t *testing.T) {
	t.Run("pass through", func(t *testing.T) {
		resolver := &stubResolver{}
		p, transport := newCommandPlayer(t, resolver, nil)

		if err := p.Execute(context.Background(), PlayMedia("music", "http://nas/a.mp3")); err != nil {
			t.Fatalf("Execute() error: %v", err)
		}
		pubs := transport.PublishedTo("p/media")
		want := `{"media_type":"music","media_id":"http://nas/a.mp3"}`
		if len(pubs) != 1 || pubs[0].Payload != want {
			t.Errorf("published = %+v, want %s", pubs, want)
		}
		if len(resolver.calls) != 0 {
			t.Errorf("resolver called for plain id: %v", resolver.calls)
		}
	})

	t.Run("resolved", func(t *testing.T) {
		resolver := &stubResolver{resolved: ResolvedMedia{URL: "http://media/x.jpg", MimeType: "image/jpeg"}}
		p, transport := newCommandPlayer(t, resolver, nil)

		if err := p.Execute(context.Background(), PlayMedia("image", "media-source://x.jpg")); err != nil {
			t.Fatalf("Execute() error: %v", err)
		}
		pubs := transport.PublishedTo("p/media")
		want := `{"media_type":"image/jpeg","media_id":"http://media/x.jpg"}`
		if len(pubs) != 1 || pubs[0].Payload != want {
			t.Errorf("published = %+v, want %s", pubs, want)
		}
	})

	t.Run("unresolvable", func(t *testing.T) {
		resolver := &stubResolver{err: ErrMediaUnresolvable}
		p, transport := newCommandPlayer(t, resolver, nil)

		err := p.Execute(context.Background(), PlayMedia("music", "media-source://missing"))
		if !errors.Is(err, ErrMediaUnresolvable) {
			t.Errorf("Execute() error = %v, want ErrMediaUnresolvable", err)
		}
		if len(transport.Published()) != 0 {
			t.Error("unresolvable media must not publish")
		}
	})
}

func TestExecute_TransportError(t *testing.T) {
	p, transport := newCommandPlayer(t, nil, nil)
	cause := errors.New("connection lost")
	transport.SetPublishError(cause)

	err := p.Execute(context.Background(), Play())
	if !errors.Is(err, ErrTransport) || !errors.Is(err, cause) {
		t.Errorf("Execute() error = %v, want ErrTransport wrapping cause", err)
	}
}

func TestExecute_ContextCancelled(t *testing.T) {
	p, _ := newCommandPlayer(t, nil, nil)

	release := make(chan struct{})
	defer close(release)
	p.mailbox.post(func(context.Context) { <-release })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Execute(ctx, Play()); !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestParseIntent(t *testing.T) {
	tests := []struct {
		in      string
		want    Intent
		wantErr bool
	}{
		{"play", IntentPlay, false},
		{"PAUSE", IntentPause, false},
		{" next ", IntentNext, false},
		{"previous", IntentPrevious, false},
		{"set_volume", IntentSetVolume, false},
		{"seek", IntentSeek, false},
		{"play_media", IntentPlayMedia, false},
		{"rewind", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseIntent(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidCommand) {
				t.Errorf("ParseIntent(%q) error = %v, want ErrInvalidCommand", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseIntent(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}
