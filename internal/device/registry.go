package device

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger is the logging interface used by the Registry.
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

// Registry caches media player records over a Repository.
//
// Reads are served from the cache, which RefreshCache fills at startup.
// Writes go through writeMu so a lookup followed by an insert is atomic.
//
// All methods are safe for concurrent use.
type Registry struct {
	repo Repository

	cache   map[string]*MediaPlayer
	cacheMu sync.RWMutex

	// writeMu serialises CreateIfAbsent and Remove.
	writeMu sync.Mutex

	logger Logger
}

// NewRegistry creates a registry over repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*MediaPlayer),
		logger: noopLogger{},
	}
}

// SetLogger sets the registry logger. nil restores the no-op logger.
func (r *Registry) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.logger = logger
}

// RefreshCache reloads all records from the repository.
func (r *Registry) RefreshCache(ctx context.Context) error {
	players, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading media players: %w", err)
	}

	cache := make(map[string]*MediaPlayer, len(players))
	for i := range players {
		p := players[i]
		cache[p.Identity] = &p
	}

	r.cacheMu.Lock()
	r.cache = cache
	r.cacheMu.Unlock()

	r.logger.Info("media player cache refreshed", "count", len(players))
	return nil
}

// Exists reports whether a record is cached for identity.
func (r *Registry) Exists(identity string) bool {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	_, ok := r.cache[identity]
	return ok
}

// Get returns a copy of the record for identity.
func (r *Registry) Get(ctx context.Context, identity string) (*MediaPlayer, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[identity]
	r.cacheMu.RUnlock()
	if ok {
		p := *cached
		return &p, nil
	}

	player, err := r.repo.GetByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	p := *player
	r.cache[identity] = &p
	r.cacheMu.Unlock()

	return player, nil
}

// List returns copies of all cached records ordered by identity.
func (r *Registry) List() []MediaPlayer {
	r.cacheMu.RLock()
	players := make([]MediaPlayer, 0, len(r.cache))
	for _, p := range r.cache {
		players = append(players, *p)
	}
	r.cacheMu.RUnlock()

	sort.Slice(players, func(i, j int) bool { return players[i].Identity < players[j].Identity })
	return players
}

// CreateIfAbsent atomically creates a record unless one exists.
//
// created is true only for the caller that inserted the record; concurrent
// callers with the same identity get false and no error. The Name defaults
// to the identity.
func (r *Registry) CreateIfAbsent(ctx context.Context, identity, discoveryTopic string) (player *MediaPlayer, created bool, err error) {
	if err := ValidateIdentity(identity); err != nil {
		return nil, false, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if existing, err := r.Get(ctx, identity); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrDeviceNotFound) {
		return nil, false, err
	}

	player = &MediaPlayer{
		Identity:       identity,
		Name:           identity,
		DiscoveryTopic: discoveryTopic,
		CreatedAt:      time.Now().UTC(),
	}

	err = r.repo.Create(ctx, player)
	if errors.Is(err, ErrDeviceExists) {
		// Another process wrote the row; adopt it.
		existing, getErr := r.repo.GetByIdentity(ctx, identity)
		if getErr != nil {
			return nil, false, getErr
		}
		r.store(existing)
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	r.store(player)
	r.logger.Info("media player registered", "identity", identity, "discovery_topic", discoveryTopic)

	p := *player
	return &p, true, nil
}

// Remove deletes the record for identity and returns it.
func (r *Registry) Remove(ctx context.Context, identity string) (*MediaPlayer, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	player, err := r.Get(ctx, identity)
	if err != nil {
		return nil, err
	}

	if err := r.repo.Delete(ctx, identity); err != nil && !errors.Is(err, ErrDeviceNotFound) {
		return nil, err
	}

	r.cacheMu.Lock()
	delete(r.cache, identity)
	r.cacheMu.Unlock()

	r.logger.Info("media player removed", "identity", identity)
	return player, nil
}

func (r *Registry) store(p *MediaPlayer) {
	c := *p
	r.cacheMu.Lock()
	r.cache[p.Identity] = &c
	r.cacheMu.Unlock()
}
