package mediaplayer

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Intent is a high-level command a user can issue.
type Intent int

const (
	IntentPlay Intent = iota + 1
	IntentPause
	IntentNext
	IntentPrevious
	IntentSetVolume
	IntentSeek
	IntentPlayMedia
)

var intentNames = map[Intent]string{
	IntentPlay:      "play",
	IntentPause:     "pause",
	IntentNext:      "next",
	IntentPrevious:  "previous",
	IntentSetVolume: "set_volume",
	IntentSeek:      "seek",
	IntentPlayMedia: "play_media",
}

// fixedRoles maps intents that publish a configured payload to their role.
var fixedRoles = map[Intent]TopicRole{
	IntentPlay:     RoleCmdPlay,
	IntentPause:    RoleCmdPause,
	IntentNext:     RoleCmdNext,
	IntentPrevious: RoleCmdPrevious,
}

// String returns the wire name of the intent.
func (i Intent) String() string {
	if name, ok := intentNames[i]; ok {
		return name
	}
	return fmt.Sprintf("Intent(%d)", int(i))
}

// ParseIntent parses a wire name such as "play" or "set_volume".
func ParseIntent(s string) (Intent, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for intent, name := range intentNames {
		if name == want {
			return intent, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown intent %q", ErrInvalidCommand, s)
}

// Command is one intent with its arguments.
type Command struct {
	Intent Intent

	// Payload overrides the configured payload of a fixed intent.
	Payload string

	Volume    float64
	Position  float64
	MediaType string
	MediaID   string
}

// Play returns a play command.
func Play() Command { return Command{Intent: IntentPlay} }

// Pause returns a pause command.
func Pause() Command { return Command{Intent: IntentPause} }

// Next returns a next-track command.
func Next() Command { return Command{Intent: IntentNext} }

// Previous returns a previous-track command.
func Previous() Command { return Command{Intent: IntentPrevious} }

// SetVolume returns a volume command; level must be within [0, 1].
func SetVolume(level float64) Command { return Command{Intent: IntentSetVolume, Volume: level} }

// Seek returns a seek command to an absolute position in seconds.
func Seek(seconds float64) Command { return Command{Intent: IntentSeek, Position: seconds} }

// PlayMedia returns a play-media command.
func PlayMedia(mediaType, mediaID string) Command {
	return Command{Intent: IntentPlayMedia, MediaType: mediaType, MediaID: mediaID}
}

// Validate checks the command's arguments without looking at any topic map.
func (c Command) Validate() error {
	switch c.Intent {
	case IntentPlay, IntentPause, IntentNext, IntentPrevious:
		return nil
	case IntentSetVolume:
		if math.IsNaN(c.Volume) || c.Volume < 0 || c.Volume > 1 {
			return fmt.Errorf("%w: volume %v outside [0, 1]", ErrInvalidCommand, c.Volume)
		}
	case IntentSeek:
		if math.IsNaN(c.Position) || math.IsInf(c.Position, 0) || c.Position < 0 {
			return fmt.Errorf("%w: seek position %v", ErrInvalidCommand, c.Position)
		}
	case IntentPlayMedia:
		if c.MediaID == "" {
			return fmt.Errorf("%w: media id is required", ErrInvalidCommand)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidCommand, c.Intent)
	}
	return nil
}

// execute runs on the mailbox goroutine, so p.topics needs no lock.
func (p *Player) execute(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cmd.Validate(); err != nil {
		return err
	}

	if role, ok := fixedRoles[cmd.Intent]; ok {
		topic, err := p.commandTopic(role)
		if err != nil {
			return err
		}
		payload := cmd.Payload
		if payload == "" {
			payload = p.topics.Payload(role)
		}
		return p.publish(ctx, topic, []byte(payload))
	}

	switch cmd.Intent {
	case IntentSetVolume:
		topic, err := p.commandTopic(RoleCmdVolumeSet)
		if err != nil {
			return err
		}
		level := math.Round(cmd.Volume*100) / 100

		p.mu.Lock()
		p.snap.Volume = level
		snap := p.snap.clone()
		p.mu.Unlock()
		p.notify(snap)

		return p.publish(ctx, topic, EncodeNumber(level))

	case IntentSeek:
		topic, err := p.commandTopic(RoleCmdSeek)
		if err != nil {
			return err
		}
		return p.publish(ctx, topic, EncodeNumber(cmd.Position))

	case IntentPlayMedia:
		topic, err := p.commandTopic(RoleCmdPlayMedia)
		if err != nil {
			return err
		}
		mediaType, mediaID := cmd.MediaType, cmd.MediaID
		if p.resolver != nil && p.resolver.IsMediaSourceID(mediaID) {
			resolved, err := p.resolver.Resolve(ctx, mediaID)
			if err != nil {
				return err
			}
			mediaType, mediaID = resolved.MimeType, resolved.URL
		}
		payload, err := EncodePlayMedia(mediaType, mediaID)
		if err != nil {
			return err
		}
		return p.publish(ctx, topic, payload)
	}

	return fmt.Errorf("%w: %s", ErrInvalidCommand, cmd.Intent)
}

func (p *Player) commandTopic(role TopicRole) (string, error) {
	topic, ok := p.topics.Topic(role)
	if !ok {
		return "", fmt.Errorf("%w: %s has no %s topic", ErrCapabilityUnavailable, p.identity, role)
	}
	return topic, nil
}

func (p *Player) publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.transport.Publish(topic, payload, false); err != nil {
		return fmt.Errorf("%w: publish %s: %w", ErrTransport, topic, err)
	}
	p.logger.Debug("command published",
		"identity", p.identity,
		"topic", topic,
	)
	return nil
}
