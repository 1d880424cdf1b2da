package dal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"niverbot/models"
)

type fileContents struct {
	Birthdays map[string]models.Birthday    `json:"aniversarios"`
	Guilds    map[string]models.GuildConfig `json:"config"`
}

// FileStore keeps everything in a single JSON document on disk. Every
// mutation rewrites the file; a failed write leaves memory untouched.
type FileStore struct {
	mu   sync.RWMutex
	path string
	data fileContents
}

// OpenFile loads the store at path. A missing file is an empty store.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{
		path: path,
		data: fileContents{
			Birthdays: make(map[string]models.Birthday),
			Guilds:    make(map[string]models.GuildConfig),
		},
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, unavailable(err)
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("dal: decoding %s: %w", path, err)
	}
	if s.data.Birthdays == nil {
		s.data.Birthdays = make(map[string]models.Birthday)
	}
	if s.data.Guilds == nil {
		s.data.Guilds = make(map[string]models.GuildConfig)
	}

	return s, nil
}

func (s *FileStore) UpsertBirthday(_ context.Context, b models.Birthday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.data.Birthdays[b.UserID]
	s.data.Birthdays[b.UserID] = models.Birthday{Name: b.Name, Date: b.Date}

	if err := s.save(); err != nil {
		if existed {
			s.data.Birthdays[b.UserID] = previous
		} else {
			delete(s.data.Birthdays, b.UserID)
		}
		return err
	}
	return nil
}

func (s *FileStore) RemoveBirthday(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.data.Birthdays[userID]
	if !existed {
		return false, nil
	}

	delete(s.data.Birthdays, userID)
	if err := s.save(); err != nil {
		s.data.Birthdays[userID] = previous
		return false, err
	}
	return true, nil
}

func (s *FileStore) GetBirthday(_ context.Context, userID string) (*models.Birthday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	birthday, ok := s.data.Birthdays[userID]
	if !ok {
		return nil, ErrNotFound
	}
	birthday.UserID = userID
	return &birthday, nil
}

func (s *FileStore) Birthdays(_ context.Context) ([]models.Birthday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	birthdays := make([]models.Birthday, 0, len(s.data.Birthdays))
	for userID, birthday := range s.data.Birthdays {
		birthday.UserID = userID
		birthdays = append(birthdays, birthday)
	}
	return birthdays, nil
}

func (s *FileStore) GuildConfig(_ context.Context, guildID string) (*models.GuildConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	config, ok := s.data.Guilds[guildID]
	if !ok {
		return nil, ErrNotFound
	}
	config.GuildID = guildID
	return &config, nil
}

func (s *FileStore) GuildConfigs(_ context.Context) ([]models.GuildConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := make([]models.GuildConfig, 0, len(s.data.Guilds))
	for guildID, config := range s.data.Guilds {
		config.GuildID = guildID
		configs = append(configs, config)
	}
	return configs, nil
}

func (s *FileStore) SetChannel(_ context.Context, guildID, channelID string) error {
	return s.updateGuild(guildID, func(c *models.GuildConfig) { c.ChannelID = channelID })
}

func (s *FileStore) SetRole(_ context.Context, guildID, roleID string) error {
	return s.updateGuild(guildID, func(c *models.GuildConfig) { c.RoleID = roleID })
}

func (s *FileStore) MarkAnnounced(_ context.Context, guildID, date string) error {
	return s.updateGuild(guildID, func(c *models.GuildConfig) { c.LastAnnouncementDate = date })
}

func (s *FileStore) updateGuild(guildID string, update func(*models.GuildConfig)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.data.Guilds[guildID]
	config := previous
	update(&config)
	s.data.Guilds[guildID] = config

	if err := s.save(); err != nil {
		if existed {
			s.data.Guilds[guildID] = previous
		} else {
			delete(s.data.Guilds, guildID)
		}
		return err
	}
	return nil
}

// save writes through a temporary file so readers never see a partial document.
func (s *FileStore) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return unavailable(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return unavailable(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return unavailable(err)
	}
	if err := tmp.Close(); err != nil {
		return unavailable(err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
