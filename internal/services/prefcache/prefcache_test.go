package prefcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/internal/models"
	"finsight/internal/services/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := storage.New(t.TempDir())
	require.NoError(t, err)
	return New(st, zerolog.Nop())
}

func TestLoadMissingKey(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.Load(DefaultKey)
	assert.False(t, ok, "nothing saved yet")
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s := newTestStore(t)

	s.Save(DefaultKey, models.UIPreferences{Tone: "informal", Length: "long", IncludeCharts: false})

	saved, ok := s.Load(DefaultKey)
	require.True(t, ok)

	applied := saved.ApplyTo(models.DefaultUIPreferences())
	assert.Equal(t, "informal", applied.Tone)
	assert.Equal(t, "long", applied.Length)
	assert.False(t, applied.IncludeCharts)
}

func TestApplyToIgnoresInvalidValues(t *testing.T) {
	tone := "sarcastic"
	length := "long"
	saved := Saved{Tone: &tone, Length: &length}

	base := models.UIPreferences{Tone: "informal", Length: "short", IncludeCharts: true}
	applied := saved.ApplyTo(base)

	assert.Equal(t, "informal", applied.Tone, "invalid tone must not override the base")
	assert.Equal(t, "long", applied.Length)
	assert.True(t, applied.IncludeCharts, "absent include_charts must keep the base value")
}

func TestApplyToPartialRecord(t *testing.T) {
	s := newTestStore(t)

	// Only include_charts present, the way an older save might look.
	path := filepath.Join(s.storage.BaseDir(), DefaultKey+".json")
	require.NoError(t, os.WriteFile(path, []byte(`{"include_charts":false}`), 0644))

	saved, ok := s.Load(DefaultKey)
	require.True(t, ok)

	applied := saved.ApplyTo(models.DefaultUIPreferences())
	assert.Equal(t, "formal", applied.Tone)
	assert.Equal(t, "short", applied.Length)
	assert.False(t, applied.IncludeCharts)
}

func TestLoadBrokenJSON(t *testing.T) {
	s := newTestStore(t)

	path := filepath.Join(s.storage.BaseDir(), DefaultKey+".json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, ok := s.Load(DefaultKey)
	assert.False(t, ok, "broken JSON counts as absence")
}

func TestCustomKeysAreIndependent(t *testing.T) {
	s := newTestStore(t)

	s.Save("alice_prefs", models.UIPreferences{Tone: "informal", Length: "short", IncludeCharts: true})

	_, ok := s.Load(DefaultKey)
	assert.False(t, ok)

	saved, ok := s.Load("alice_prefs")
	require.True(t, ok)
	assert.Equal(t, "informal", *saved.Tone)
}

func TestKeyIsConfinedToSettingsDir(t *testing.T) {
	s := newTestStore(t)

	s.Save("../escape", models.UIPreferences{Tone: "formal", Length: "short", IncludeCharts: true})

	_, err := os.Stat(filepath.Join(s.storage.BaseDir(), "escape.json"))
	assert.NoError(t, err, "path traversal in the key must collapse to the base name")
}
