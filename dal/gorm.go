package dal

import (
	"context"
	"errors"

	"niverbot/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormStore keeps birthdays in a SQLite database through gorm.
type GormStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) and migrates the database at path.
func OpenSQLite(path string) (*GormStore, error) {
	db, err := gorm.Open(
		sqlite.Open(path),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		return nil, unavailable(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, unavailable(err)
	}
	// sqlite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	log.WithField("path", path).Println("Connected to database.")

	if err := db.AutoMigrate(&models.Birthday{}, &models.GuildConfig{}); err != nil {
		sqlDB.Close()
		return nil, unavailable(err)
	}
	log.Println("Migrated database.")

	return &GormStore{db: db}, nil
}

// UpsertBirthday inserts or updates the given birthday.
func (s *GormStore) UpsertBirthday(ctx context.Context, b models.Birthday) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"nome", "data", "updated_at"}),
	}).Create(&b).Error
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// RemoveBirthday hard deletes the user's birthday so a later upsert starts
// from a clean row.
func (s *GormStore) RemoveBirthday(ctx context.Context, userID string) (bool, error) {
	result := s.db.WithContext(ctx).
		Unscoped().
		Where(&models.Birthday{UserID: userID}).
		Delete(&models.Birthday{})
	if result.Error != nil {
		return false, unavailable(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetBirthday gets the birthday for the given user.
func (s *GormStore) GetBirthday(ctx context.Context, userID string) (*models.Birthday, error) {
	var birthday models.Birthday
	err := s.db.WithContext(ctx).
		Where(&models.Birthday{UserID: userID}).
		Take(&birthday).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return &birthday, nil
}

func (s *GormStore) Birthdays(ctx context.Context) ([]models.Birthday, error) {
	var birthdays []models.Birthday
	if err := s.db.WithContext(ctx).Find(&birthdays).Error; err != nil {
		return nil, unavailable(err)
	}
	return birthdays, nil
}

// GuildConfig returns the saved settings for the given guild.
func (s *GormStore) GuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	var config models.GuildConfig
	err := s.db.WithContext(ctx).
		Where(&models.GuildConfig{GuildID: guildID}).
		Take(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return &config, nil
}

func (s *GormStore) GuildConfigs(ctx context.Context) ([]models.GuildConfig, error) {
	var configs []models.GuildConfig
	if err := s.db.WithContext(ctx).Find(&configs).Error; err != nil {
		return nil, unavailable(err)
	}
	return configs, nil
}

// SetChannel inserts or updates the guild's announcement channel.
func (s *GormStore) SetChannel(ctx context.Context, guildID, channelID string) error {
	return s.upsertGuildColumn(ctx, models.GuildConfig{GuildID: guildID, ChannelID: channelID}, "channel_id")
}

// SetRole inserts or updates the guild's birthday role.
func (s *GormStore) SetRole(ctx context.Context, guildID, roleID string) error {
	return s.upsertGuildColumn(ctx, models.GuildConfig{GuildID: guildID, RoleID: roleID}, "role_id")
}

func (s *GormStore) MarkAnnounced(ctx context.Context, guildID, date string) error {
	return s.upsertGuildColumn(
		ctx,
		models.GuildConfig{GuildID: guildID, LastAnnouncementDate: date},
		"last_announcement_date",
	)
}

func (s *GormStore) upsertGuildColumn(ctx context.Context, config models.GuildConfig, column string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{column}),
	}).Create(&config).Error
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
