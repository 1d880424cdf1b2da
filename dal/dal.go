package dal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"niverbot/models"
)

var (
	// ErrUnavailable wraps any failure of the underlying storage engine.
	// Callers treat it as transient.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrNotFound is returned when a looked up record doesn't exist.
	ErrNotFound = errors.New("not found")
)

// Store persists birthdays keyed by user and announcement settings keyed by
// guild. Implementations must make each operation atomic per key.
type Store interface {
	// UpsertBirthday inserts or overwrites the birthday of b.UserID.
	UpsertBirthday(ctx context.Context, b models.Birthday) error
	// RemoveBirthday deletes a user's birthday, reporting whether one existed.
	RemoveBirthday(ctx context.Context, userID string) (bool, error)
	GetBirthday(ctx context.Context, userID string) (*models.Birthday, error)
	// Birthdays returns every registered birthday in no particular order.
	Birthdays(ctx context.Context) ([]models.Birthday, error)

	GuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error)
	GuildConfigs(ctx context.Context) ([]models.GuildConfig, error)
	SetChannel(ctx context.Context, guildID, channelID string) error
	SetRole(ctx context.Context, guildID, roleID string) error
	// MarkAnnounced records date as the last day the guild was handled,
	// creating the guild's config if needed.
	MarkAnnounced(ctx context.Context, guildID, date string) error

	Close() error
}

// Config selects and configures a storage backend.
type Config struct {
	// DSN is a mongodb:// URI, a path to a .json file (optionally file://),
	// or a sqlite database path (optionally sqlite://).
	DSN string
	// MongoDatabase is the database used for mongodb DSNs.
	MongoDatabase string
}

// Open connects to the backend named by cfg.DSN.
func Open(ctx context.Context, cfg Config) (Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)

	switch {
	case dsn == "":
		return nil, errors.New("dal: empty DSN")
	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		return OpenMongo(ctx, dsn, cfg.MongoDatabase)
	case strings.HasPrefix(dsn, "file://"):
		return OpenFile(strings.TrimPrefix(dsn, "file://"))
	case strings.HasSuffix(dsn, ".json"):
		return OpenFile(dsn)
	default:
		return OpenSQLite(strings.TrimPrefix(dsn, "sqlite://"))
	}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
