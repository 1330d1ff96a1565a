// Package prefcache persists the customizer's UI-only preferences locally,
// one JSON file per key. Load and save both swallow storage failures so a
// broken disk never reaches the user.
package prefcache

import (
	"encoding/json"
	"path/filepath"

	"github.com/rs/zerolog"

	"finsight/internal/models"
	"finsight/internal/services/storage"
)

// DefaultKey is the storage key used when the caller does not supply one.
const DefaultKey = "user_prefs"

// Store reads and writes UI preference records under a settings directory.
type Store struct {
	storage *storage.Storage
	log     zerolog.Logger
}

// New creates a Store over the given storage.
func New(st *storage.Storage, logger zerolog.Logger) *Store {
	return &Store{storage: st, log: logger}
}

// Saved is a partially populated record as read from disk. Nil fields were
// absent and must not override the caller's current values.
type Saved struct {
	Tone          *string `json:"tone"`
	Length        *string `json:"length"`
	IncludeCharts *bool   `json:"include_charts"`
}

// ApplyTo overlays the saved fields onto base, field by field. Values outside
// the option lists are ignored.
func (sv Saved) ApplyTo(base models.UIPreferences) models.UIPreferences {
	out := base
	if sv.Tone != nil && contains(models.ToneOptions, *sv.Tone) {
		out.Tone = *sv.Tone
	}
	if sv.Length != nil && contains(models.LengthOptions, *sv.Length) {
		out.Length = *sv.Length
	}
	if sv.IncludeCharts != nil {
		out.IncludeCharts = *sv.IncludeCharts
	}
	return out
}

func contains(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}

// Load reads the record stored under key. The second return is false when
// nothing usable is stored; storage errors are treated the same as absence.
func (s *Store) Load(key string) (Saved, bool) {
	data, err := s.storage.ReadFile(s.path(key))
	if err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("no saved ui preferences")
		return Saved{}, false
	}

	var saved Saved
	if err := json.Unmarshal(data, &saved); err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("could not parse saved ui preferences")
		return Saved{}, false
	}
	return saved, true
}

// Save writes the record under key. Failures are logged and dropped.
func (s *Store) Save(key string, prefs models.UIPreferences) {
	data, err := json.Marshal(prefs)
	if err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("could not encode ui preferences")
		return
	}
	if err := s.storage.WriteFile(s.path(key), data, 0644); err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("could not persist ui preferences")
	}
}

// path confines keys to the settings directory.
func (s *Store) path(key string) string {
	if key == "" {
		key = DefaultKey
	}
	return filepath.Join(s.storage.BaseDir(), filepath.Base(key)+".json")
}
