// Package announcer posts birthday announcements once per day per guild.
package announcer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"niverbot/dal"
	"niverbot/dates"
	"niverbot/models"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var (
	// ErrMemberNotFound means the user isn't part of the guild.
	ErrMemberNotFound = errors.New("member not found")
	// ErrChannelNotFound means the announcement channel no longer exists.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrIncomplete means some of a guild's announcements failed and the
	// guild was left unmarked so the next tick tries again.
	ErrIncomplete = errors.New("announcements incomplete")
)

// Defaults used when Options leaves a field empty.
const (
	DefaultSchedule      = "@every 1h"
	DefaultRetryInterval = 5 * time.Minute
)

// DefaultLocation is the fixed UTC-3 offset birthdays are evaluated in.
var DefaultLocation = dates.DefaultLocation

// Member is a guild member as seen by the announcer.
type Member struct {
	UserID      string
	DisplayName string
	AvatarURL   string
}

// Directory resolves guild membership.
type Directory interface {
	// Member returns ErrMemberNotFound when the user isn't in the guild.
	Member(ctx context.Context, guildID, userID string) (Member, error)
}

// Notifier delivers a single announcement.
type Notifier interface {
	// Announce returns ErrChannelNotFound when channelID is gone.
	Announce(ctx context.Context, channelID string, member Member) error
}

// RoleSyncer gives the birthday role to celebrants and takes it from
// everyone else.
type RoleSyncer interface {
	SyncRole(ctx context.Context, guildID, roleID string, celebrantIDs []string) error
}

// Options configures a Scheduler.
type Options struct {
	// Schedule is a cron spec ("@every 1h", "0 * * * *") for regular ticks.
	Schedule string
	// RetryInterval is waited instead of Schedule after storage failures.
	RetryInterval time.Duration
	// Location decides which calendar day "today" is.
	Location *time.Location
	// Roles is optional.
	Roles  RoleSyncer
	Logger logrus.FieldLogger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Report summarises one tick.
type Report struct {
	Date      string
	Guilds    int
	Announced int
}

// Scheduler runs the daily birthday check.
type Scheduler struct {
	store     dal.Store
	directory Directory
	notifier  Notifier
	roles     RoleSyncer

	schedule cron.Schedule
	retry    cron.Schedule
	location *time.Location
	log      logrus.FieldLogger
	now      func() time.Time

	mu sync.Mutex
	// delivered remembers who was announced today in guilds that couldn't be
	// marked yet, so retries don't repeat them.
	delivered map[string]deliveries
}

type deliveries struct {
	date  string
	users map[string]bool
}

// New creates a scheduler reading from store and announcing through notifier.
func New(store dal.Store, directory Directory, notifier Notifier, opts Options) (*Scheduler, error) {
	if opts.Schedule == "" {
		opts.Schedule = DefaultSchedule
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	if opts.Location == nil {
		opts.Location = DefaultLocation
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	schedule, err := cron.ParseStandard(opts.Schedule)
	if err != nil {
		return nil, fmt.Errorf("announcer: invalid schedule %q: %w", opts.Schedule, err)
	}

	return &Scheduler{
		store:     store,
		directory: directory,
		notifier:  notifier,
		roles:     opts.Roles,
		schedule:  schedule,
		retry:     cron.Every(opts.RetryInterval),
		location:  opts.Location,
		log:       opts.Logger,
		now:       opts.Now,
		delivered: make(map[string]deliveries),
	}, nil
}

// Run ticks immediately and then on every activation of the schedule until
// ctx is cancelled. Ticks never overlap.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("Started birthday announcer.")

	for {
		next := s.schedule
		if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
			switch {
			case errors.Is(err, dal.ErrUnavailable):
				next = s.retry
				s.log.WithError(err).Warn("Storage unavailable, retrying birthday check soon.")
			case errors.Is(err, ErrIncomplete):
				next = s.retry
				s.log.WithError(err).Warn("Some announcements failed, retrying birthday check soon.")
			default:
				s.log.WithError(err).Error("Birthday check failed.")
			}
		}

		now := s.now()
		timer := time.NewTimer(next.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("Stopped birthday announcer.")
			return
		case <-timer.C:
		}
	}
}

// Tick announces today's birthdays in every configured guild that hasn't
// been handled today. Storage failures while loading abort the tick before
// anything is marked. Guilds where a lookup or send failed for any reason
// other than a missing member or channel stay unmarked.
func (s *Scheduler) Tick(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().In(s.location)
	today := dates.FromTime(now).String()
	log := s.log.WithFields(logrus.Fields{"run": uuid.NewString(), "date": today})

	report := Report{Date: today}

	configs, err := s.store.GuildConfigs(ctx)
	if err != nil {
		return report, fmt.Errorf("loading guild configs: %w", err)
	}
	birthdays, err := s.store.Birthdays(ctx)
	if err != nil {
		return report, fmt.Errorf("loading birthdays: %w", err)
	}

	todays := birthdaysOn(now, birthdays, log)

	var errs []error
	for _, config := range configs {
		announced, handled, err := s.checkGuild(ctx, config, today, todays, log.WithField("guild", config.GuildID))
		report.Announced += announced
		if err != nil {
			errs = append(errs, err)
		}
		if handled {
			report.Guilds++
		}
	}

	log.WithFields(logrus.Fields{
		"guilds":    report.Guilds,
		"announced": report.Announced,
	}).Infof("Birthday check executed for %v.", today)

	return report, errors.Join(errs...)
}

// checkGuild handles one guild, reporting how many members were announced
// and whether the guild was due today.
func (s *Scheduler) checkGuild(
	ctx context.Context,
	config models.GuildConfig,
	today string,
	todays []models.Birthday,
	log logrus.FieldLogger,
) (int, bool, error) {
	var (
		celebrants []Member
		lookupErrs []error
		resolved   bool
	)
	resolve := func() []Member {
		if !resolved {
			celebrants, lookupErrs = s.members(ctx, config.GuildID, todays, log)
			resolved = true
		}
		return celebrants
	}

	if config.RoleID != "" && s.roles != nil {
		members := resolve()
		ids := make([]string, len(members))
		for i, member := range members {
			ids[i] = member.UserID
		}
		if err := s.roles.SyncRole(ctx, config.GuildID, config.RoleID, ids); err != nil {
			log.WithError(err).WithField("role", config.RoleID).Warn("Failed to sync birthday role")
		}
	}

	if !config.HasChannel() || config.LastAnnouncementDate == today {
		delete(s.delivered, config.GuildID)
		return 0, false, nil
	}

	done := s.delivered[config.GuildID]
	if done.date != today {
		done = deliveries{date: today, users: make(map[string]bool)}
	}

	errs := lookupErrs
	announced := 0
	for _, member := range resolve() {
		if done.users[member.UserID] {
			continue
		}
		err := s.notifier.Announce(ctx, config.ChannelID, member)
		if errors.Is(err, ErrChannelNotFound) {
			log.WithField("channel", config.ChannelID).Warn("Can't announce birthdays, channel not found")
			break
		}
		if err != nil {
			log.WithError(err).WithField("user", member.UserID).Error("Failed to announce birthday")
			errs = append(errs, fmt.Errorf("announcing %v: %w", member.UserID, err))
			continue
		}
		done.users[member.UserID] = true
		announced++
	}

	if len(errs) > 0 {
		s.delivered[config.GuildID] = done
		return announced, true, fmt.Errorf("guild %v: %w: %w", config.GuildID, ErrIncomplete, errors.Join(errs...))
	}

	if err := s.store.MarkAnnounced(ctx, config.GuildID, today); err != nil {
		s.delivered[config.GuildID] = done
		log.WithError(err).Error("Failed to mark guild as announced")
		return announced, true, fmt.Errorf("marking guild %v: %w", config.GuildID, err)
	}
	delete(s.delivered, config.GuildID)

	return announced, true, nil
}

// members resolves today's celebrants in guildID. Users who left are
// skipped; other lookup failures are returned.
func (s *Scheduler) members(
	ctx context.Context,
	guildID string,
	birthdays []models.Birthday,
	log logrus.FieldLogger,
) ([]Member, []error) {
	var (
		members []Member
		errs    []error
	)
	for _, birthday := range birthdays {
		member, err := s.directory.Member(ctx, guildID, birthday.UserID)
		if errors.Is(err, ErrMemberNotFound) {
			continue
		}
		if err != nil {
			log.WithError(err).WithField("user", birthday.UserID).Warn("Failed to look up member")
			errs = append(errs, fmt.Errorf("looking up %v: %w", birthday.UserID, err))
			continue
		}
		if member.DisplayName == "" {
			member.DisplayName = birthday.Name
		}
		members = append(members, member)
	}
	return members, errs
}

func birthdaysOn(day time.Time, birthdays []models.Birthday, log logrus.FieldLogger) []models.Birthday {
	var matches []models.Birthday
	for _, birthday := range birthdays {
		date, err := birthday.DayMonth()
		if err != nil {
			log.WithError(err).WithField("user", birthday.UserID).Warn("Ignoring stored birthday")
			continue
		}
		if date.OccursOn(day) {
			matches = append(matches, birthday)
		}
	}
	return matches
}
