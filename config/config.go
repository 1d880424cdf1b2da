// Package config reads the bot's settings from flags, the environment and an
// optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"niverbot/announcer"
	"niverbot/dal"
	"niverbot/messages"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

var (
	ErrMissingToken = errors.New("-token or DISCORD_TOKEN must be provided")
	ErrMissingDSN   = errors.New("-db, DATABASE_URL or MONGO_URI must be provided")
)

// Config holds everything main needs to start the bot.
type Config struct {
	Token         string
	GuildID       string
	Database      dal.Config
	Location      *time.Location
	Schedule      string
	RetryInterval time.Duration
	Cooldown      time.Duration
	Language      messages.Language
	KeepaliveAddr string
	LogLevel      log.Level
}

// Load parses args (without the program name) on top of the environment.
// A .env file in the working directory is read first if it exists; variables
// already set in the environment win.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	flags := flag.NewFlagSet("niverbot", flag.ContinueOnError)

	token := flags.String(
		"token",
		os.Getenv("DISCORD_TOKEN"),
		"Bot access token.",
	)
	guildID := flags.String(
		"guild",
		os.Getenv("GUILD_ID"),
		"Test guild ID. If not set, slash commands will be registered globally.",
	)
	dsn := flags.String(
		"db",
		firstEnv("DATABASE_URL", "MONGO_URI"),
		"Database to use: a mongodb:// URI, a .json file or an SQLite path.",
	)
	mongoDatabase := flags.String(
		"mongo-db",
		envOr("MONGO_DATABASE", dal.DefaultMongoDatabase),
		"MongoDB database name.",
	)
	timezone := flags.String(
		"timezone",
		os.Getenv("TIMEZONE"),
		"IANA time zone birthdays are evaluated in. Defaults to a fixed UTC-3.",
	)
	schedule := flags.String(
		"schedule",
		envOr("ANNOUNCE_SCHEDULE", announcer.DefaultSchedule),
		"Cron spec for birthday checks.",
	)
	retry := flags.String(
		"retry",
		envOr("ANNOUNCE_RETRY", announcer.DefaultRetryInterval.String()),
		"How long to wait before checking again after a database failure.",
	)
	cooldown := flags.String(
		"cooldown",
		envOr("SAVE_COOLDOWN", "0s"),
		"How long members must wait between birthday changes. 0 disables it.",
	)
	lang := flags.String(
		"lang",
		envOr("BOT_LANGUAGE", string(messages.Portuguese)),
		"Language for bot replies (pt or en).",
	)
	keepalive := flags.String(
		"keepalive",
		os.Getenv("KEEPALIVE_ADDR"),
		"Address for the keep-alive HTTP server, e.g. :8080. Disabled if empty.",
	)
	logLevel := flags.String(
		"log-level",
		envOr("LOG_LEVEL", log.InfoLevel.String()),
		"Log level.",
	)

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Token:         *token,
		GuildID:       *guildID,
		Database:      dal.Config{DSN: *dsn, MongoDatabase: *mongoDatabase},
		Location:      announcer.DefaultLocation,
		Schedule:      *schedule,
		Language:      messages.ParseLanguage(*lang),
		KeepaliveAddr: *keepalive,
	}

	if cfg.Token == "" {
		return Config{}, ErrMissingToken
	}
	if cfg.Database.DSN == "" {
		return Config{}, ErrMissingDSN
	}

	var err error
	if *timezone != "" {
		if cfg.Location, err = time.LoadLocation(*timezone); err != nil {
			return Config{}, fmt.Errorf("invalid timezone %q: %w", *timezone, err)
		}
	}
	if _, err = cron.ParseStandard(cfg.Schedule); err != nil {
		return Config{}, fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.RetryInterval, err = positiveDuration("retry", *retry); err != nil {
		return Config{}, err
	}
	if cfg.Cooldown, err = time.ParseDuration(*cooldown); err != nil || cfg.Cooldown < 0 {
		return Config{}, fmt.Errorf("invalid cooldown %q", *cooldown)
	}
	if cfg.LogLevel, err = log.ParseLevel(*logLevel); err != nil {
		return Config{}, fmt.Errorf("invalid log level: %w", err)
	}

	return cfg, nil
}

func positiveDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %v %q", name, value)
	}
	return d, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}
