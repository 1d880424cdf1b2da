package config

import (
	"testing"
	"time"

	"niverbot/announcer"
	"niverbot/dal"
	"niverbot/messages"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DISCORD_TOKEN", "GUILD_ID", "DATABASE_URL", "MONGO_URI", "MONGO_DATABASE",
		"TIMEZONE", "ANNOUNCE_SCHEDULE", "ANNOUNCE_RETRY", "SAVE_COOLDOWN",
		"BOT_LANGUAGE", "KEEPALIVE_ADDR", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "secret")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, dal.Config{DSN: "mongodb://localhost:27017", MongoDatabase: dal.DefaultMongoDatabase}, cfg.Database)
	assert.Equal(t, announcer.DefaultLocation, cfg.Location)
	assert.Equal(t, announcer.DefaultSchedule, cfg.Schedule)
	assert.Equal(t, announcer.DefaultRetryInterval, cfg.RetryInterval)
	assert.Zero(t, cfg.Cooldown)
	assert.Equal(t, messages.Portuguese, cfg.Language)
	assert.Empty(t, cfg.KeepaliveAddr)
	assert.Equal(t, log.InfoLevel, cfg.LogLevel)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("DATABASE_URL", "env.db")

	cfg, err := Load([]string{
		"-token", "flag-token",
		"-db", "birthdays.json",
		"-guild", "123",
		"-timezone", "America/Sao_Paulo",
		"-schedule", "0 9 * * *",
		"-retry", "30s",
		"-cooldown", "72h",
		"-lang", "en",
		"-keepalive", ":8080",
		"-log-level", "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "flag-token", cfg.Token)
	assert.Equal(t, "birthdays.json", cfg.Database.DSN)
	assert.Equal(t, "123", cfg.GuildID)
	assert.Equal(t, "America/Sao_Paulo", cfg.Location.String())
	assert.Equal(t, "0 9 * * *", cfg.Schedule)
	assert.Equal(t, 30*time.Second, cfg.RetryInterval)
	assert.Equal(t, 72*time.Hour, cfg.Cooldown)
	assert.Equal(t, messages.English, cfg.Language)
	assert.Equal(t, ":8080", cfg.KeepaliveAddr)
	assert.Equal(t, log.DebugLevel, cfg.LogLevel)
}

func TestLoad_DatabaseURLWinsOverMongoURI(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "secret")
	t.Setenv("DATABASE_URL", "niver.db")
	t.Setenv("MONGO_URI", "mongodb://localhost")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "niver.db", cfg.Database.DSN)
}

func TestLoad_Missing(t *testing.T) {
	clearEnv(t)

	_, err := Load([]string{"-db", "niver.db"})
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = Load([]string{"-token", "secret"})
	assert.ErrorIs(t, err, ErrMissingDSN)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	base := []string{"-token", "secret", "-db", "niver.db"}

	for _, extra := range [][]string{
		{"-timezone", "Mars/Olympus_Mons"},
		{"-schedule", "every now and then"},
		{"-retry", "0s"},
		{"-retry", "soon"},
		{"-cooldown", "-1h"},
		{"-log-level", "loud"},
		{"-unknown"},
	} {
		_, err := Load(append(append([]string{}, base...), extra...))
		assert.Error(t, err, extra)
	}
}
