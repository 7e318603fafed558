package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 30*time.Second, cfg.Borrowing.AvailabilityCacheTTL)
	assert.Equal(t, time.UTC, cfg.Borrowing.Location())
	assert.Equal(t, "0 8 * * *", cfg.Queue.ReminderCronSpec)
	assert.True(t, cfg.Queue.EventsEnabled)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("BORROWING_TIMEZONE", "Asia/Ho_Chi_Minh")
	t.Setenv("BORROWING_AVAILABILITY_TTL", "0s")
	t.Setenv("QUEUE_EVENTS_ENABLED", "false")
	t.Setenv("DB_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Borrowing.Location().String())
	assert.Zero(t, cfg.Borrowing.AvailabilityCacheTTL)
	assert.False(t, cfg.Queue.EventsEnabled)
	assert.Equal(t, 5432, cfg.Database.Port, "unparsable values fall back to the default")
}

func TestValidate(t *testing.T) {
	t.Run("unknown timezone", func(t *testing.T) {
		t.Setenv("BORROWING_TIMEZONE", "Mars/Olympus")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("production needs secrets", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		_, err := Load()
		assert.Error(t, err)

		t.Setenv("JWT_SECRET", "s3cr3t")
		t.Setenv("DB_PASSWORD", "pw")
		_, err = Load()
		assert.NoError(t, err)
	})

	t.Run("negative ttl", func(t *testing.T) {
		cfg := &Config{Borrowing: BorrowingConfig{Timezone: "UTC", AvailabilityCacheTTL: -time.Second}}
		assert.Error(t, cfg.Validate())
	})
}
