// Package prefsource is the single shared preference loader. Several surfaces
// need the same record on one page load (layout theme, dashboard, customizer
// sidebar, studio), so concurrent loads per user id collapse into one backend
// call and land in a small cache that is invalidated explicitly on save.
package prefsource

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"finsight/internal/backend"
	"finsight/internal/models"
)

// Loader loads merged preference records by user id.
type Loader struct {
	client *backend.Client
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[string]models.Preferences
}

// New creates a Loader backed by the given client.
func New(client *backend.Client) *Loader {
	return &Loader{
		client: client,
		cache:  make(map[string]models.Preferences),
	}
}

// Load returns the merged preference record for the user, from cache when
// available. Every enumerated field of the result is a valid option.
func (l *Loader) Load(ctx context.Context, userID string) (models.Preferences, error) {
	if userID == "" {
		userID = models.DefaultUserID
	}

	l.mu.RLock()
	cached, ok := l.cache[userID]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	return l.fetch(ctx, userID)
}

// Reload bypasses the cache and refreshes the entry, for explicit user loads.
func (l *Loader) Reload(ctx context.Context, userID string) (models.Preferences, error) {
	if userID == "" {
		userID = models.DefaultUserID
	}
	l.Invalidate(userID)
	return l.fetch(ctx, userID)
}

// Invalidate drops the cached record for the user. Call after every save.
func (l *Loader) Invalidate(userID string) {
	l.mu.Lock()
	delete(l.cache, userID)
	l.mu.Unlock()
}

func (l *Loader) fetch(ctx context.Context, userID string) (models.Preferences, error) {
	v, err, _ := l.group.Do(userID, func() (any, error) {
		prefs, err := l.client.GetPreferences(ctx, userID)
		if err != nil {
			return models.Preferences{}, err
		}
		merged := models.Merge(prefs)
		l.mu.Lock()
		l.cache[userID] = merged
		l.mu.Unlock()
		return merged, nil
	})
	if err != nil {
		return models.Preferences{}, err
	}
	return v.(models.Preferences), nil
}
