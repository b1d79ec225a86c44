package mediaplayer

import (
	"context"
	"time"
)

// SubscriptionHandle identifies one live subscription returned by Transport.
type SubscriptionHandle interface {
	Topic() string
}

// MessageHandler receives messages for a subscription. It runs on the
// transport's delivery goroutine and must not block.
type MessageHandler func(topic string, payload []byte)

// Transport is the bus the bridge rides on.
type Transport interface {
	Subscribe(topic string, handler MessageHandler) (SubscriptionHandle, error)
	Unsubscribe(handle SubscriptionHandle) error
	Publish(topic string, payload []byte, retained bool) error
}

// DeviceRecord is the registry's view of a known device.
type DeviceRecord struct {
	Identity       string
	Name           string
	DiscoveryTopic string
}

// Registry is the known-device inventory. CreateIfAbsent must be atomic so
// two discoveries of one identity create a single record.
type Registry interface {
	Exists(identity string) bool
	CreateIfAbsent(ctx context.Context, identity, discoveryTopic string) (created bool, err error)
	Remove(ctx context.Context, identity string) (DeviceRecord, error)
	List(ctx context.Context) ([]DeviceRecord, error)
}

// ResolvedMedia is a playable location for a media-source reference.
type ResolvedMedia struct {
	URL      string
	MimeType string
}

// MediaResolver turns media-source references into playable URLs.
type MediaResolver interface {
	IsMediaSourceID(id string) bool
	Resolve(ctx context.Context, id string) (ResolvedMedia, error)
}

// StateObserver is notified after every snapshot change. It is called from
// the player's goroutine and must not block.
type StateObserver interface {
	OnStateChanged(identity string, snap Snapshot)
}

// Logger is the logging surface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock returns the current time; tests substitute a fixed one.
type Clock func() time.Time
