package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediastream/config"
)

func TestParseStringList(t *testing.T) {
	t.Parallel()

	got, err := config.ParseStringList(`[".mp4", ".mkv"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{".mp4", ".mkv"}, got)

	got, err = config.ParseStringList(" .mp4 , .mov ")
	require.NoError(t, err)
	assert.Equal(t, []string{".mp4", ".mov"}, got)

	_, err = config.ParseStringList("")
	assert.Error(t, err)

	_, err = config.ParseStringList(".mp4,,.mov")
	assert.Error(t, err, "empty entries are rejected")

	_, err = config.ParseStringList(".mp4,.mp4")
	assert.Error(t, err, "duplicates are rejected")

	_, err = config.ParseStringList(`["unterminated`)
	assert.Error(t, err)

	// An expression is never evaluated, only parsed.
	_, err = config.ParseStringList(`["a"] + ["b"]`)
	assert.Error(t, err)
}

func TestParseAccounts(t *testing.T) {
	t.Parallel()

	got, err := config.ParseAccounts(`{"alice": "correcthorse", "roberto": "batterystaple"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": "correcthorse", "roberto": "batterystaple"}, got)

	got, err = config.ParseAccounts("alice:correcthorse")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": "correcthorse"}, got)

	_, err = config.ParseAccounts(`{"alice": "correcthorse", "alice": "other-pass"}`)
	assert.Error(t, err, "duplicate usernames are rejected")

	_, err = config.ParseAccounts("al:correcthorse")
	assert.Error(t, err, "short usernames are rejected")

	_, err = config.ParseAccounts("alice:short")
	assert.Error(t, err, "short passwords are rejected")

	_, err = config.ParseAccounts("alice")
	assert.Error(t, err, "missing password separator is rejected")
}

func TestLoadValidation(t *testing.T) {
	mediaRoot := t.TempDir()

	t.Setenv("MEDIA_ROOT", mediaRoot)
	t.Setenv("SESSION_DURATION", "900")
	t.Setenv("FILE_FORMATS", ".MP4,.mkv")
	t.Setenv("ACCOUNTS", "alice:correcthorse")

	s, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, s.SessionDuration)
	assert.Equal(t, []string{".mp4", ".mkv"}, s.FileFormats, "formats are lower-cased")
	assert.Equal(t, int64(config.DefaultChunkSize), s.ChunkSize)
	assert.Equal(t, config.DefaultLockoutThreshold, s.LockoutThreshold)

	t.Setenv("SESSION_DURATION", "60")
	_, err = config.Load()
	assert.Error(t, err, "durations below the floor are rejected")

	t.Setenv("SESSION_DURATION", "900")
	t.Setenv("FILE_FORMATS", "mp4")
	_, err = config.Load()
	assert.Error(t, err, "extensions must be dot-prefixed")

	t.Setenv("FILE_FORMATS", ".mp4")
	t.Setenv("MEDIA_ROOT", "")
	_, err = config.Load()
	assert.Error(t, err, "media root is required")
}
