// Package commands implements what each bot command does, independent of
// how Discord delivers it.
package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"niverbot/dal"
	"niverbot/dates"
	"niverbot/models"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrCooldown     = errors.New("birthday changed too recently")
	ErrAdminRole    = errors.New("role grants administrator permissions")
	ErrNoBirthdays  = errors.New("no birthdays registered")
)

// PageSize is how many birthdays are listed per page.
const PageSize = 5

// CooldownError reports when a user may change their birthday again.
type CooldownError struct {
	LastChange time.Time
	NextChange time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%v: next change allowed at %v", ErrCooldown, e.NextChange.Format(time.RFC3339))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldown
}

// Actor is the member invoking a command.
type Actor struct {
	UserID  string
	IsAdmin bool
}

// Options configures a Service.
type Options struct {
	// Location decides which day "today" is for Next. Defaults to
	// dates.DefaultLocation.
	Location *time.Location
	// Cooldown is the minimum time between a user's own changes. Zero
	// disables it.
	Cooldown time.Duration
	Now      func() time.Time
}

// Service runs commands against a store.
type Service struct {
	store    dal.Store
	location *time.Location
	cooldown time.Duration
	now      func() time.Time

	mu         sync.Mutex
	lastChange map[string]time.Time
}

// New creates a Service.
func New(store dal.Store, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = dates.DefaultLocation
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:      store,
		location:   opts.Location,
		cooldown:   opts.Cooldown,
		now:        opts.Now,
		lastChange: make(map[string]time.Time),
	}
}

// Saved describes a stored birthday.
type Saved struct {
	Date    dates.DayMonth
	Created bool
}

// Register saves the caller's own birthday.
func (s *Service) Register(ctx context.Context, userID, name, input string) (Saved, error) {
	date, err := dates.Parse(input)
	if err != nil {
		return Saved{}, err
	}
	release, err := s.reserve(userID)
	if err != nil {
		return Saved{}, err
	}

	saved, err := s.save(ctx, userID, name, date)
	if err != nil {
		release()
		return Saved{}, err
	}
	return saved, nil
}

// AdminAdd saves someone else's birthday. Cooldowns don't apply.
func (s *Service) AdminAdd(ctx context.Context, actor Actor, userID, name, input string) (Saved, error) {
	if !actor.IsAdmin {
		return Saved{}, ErrUnauthorized
	}
	date, err := dates.Parse(input)
	if err != nil {
		return Saved{}, err
	}
	return s.save(ctx, userID, name, date)
}

func (s *Service) save(ctx context.Context, userID, name string, date dates.DayMonth) (Saved, error) {
	_, err := s.store.GetBirthday(ctx, userID)
	created := errors.Is(err, dal.ErrNotFound)
	if err != nil && !created {
		return Saved{}, err
	}

	err = s.store.UpsertBirthday(ctx, models.Birthday{
		UserID: userID,
		Name:   name,
		Date:   date.String(),
	})
	if err != nil {
		return Saved{}, err
	}

	return Saved{Date: date, Created: created}, nil
}

// Remove deletes the caller's birthday, reporting whether there was one.
func (s *Service) Remove(ctx context.Context, userID string) (bool, error) {
	release, err := s.reserve(userID)
	if err != nil {
		return false, err
	}

	removed, err := s.store.RemoveBirthday(ctx, userID)
	if err != nil || !removed {
		release()
	}
	return removed, err
}

// Lookup returns a user's birthday, or nil if they haven't registered.
func (s *Service) Lookup(ctx context.Context, userID string) (*models.Birthday, error) {
	birthday, err := s.store.GetBirthday(ctx, userID)
	if errors.Is(err, dal.ErrNotFound) {
		return nil, nil
	}
	return birthday, err
}

// Page is one page of the birthday list.
type Page struct {
	Birthdays []models.Birthday
	// Number is zero based.
	Number int
	Count  int
	Total  int
}

// List returns the requested page of birthdays in calendar order. Out of
// range pages are clamped.
func (s *Service) List(ctx context.Context, page int) (Page, error) {
	birthdays, err := s.store.Birthdays(ctx)
	if err != nil {
		return Page{}, err
	}
	if len(birthdays) == 0 {
		return Page{}, ErrNoBirthdays
	}

	sortBirthdays(birthdays)

	count := (len(birthdays) + PageSize - 1) / PageSize
	page = min(max(page, 0), count-1)

	start := page * PageSize
	end := min(start+PageSize, len(birthdays))

	return Page{
		Birthdays: birthdays[start:end],
		Number:    page,
		Count:     count,
		Total:     len(birthdays),
	}, nil
}

// Upcoming is the next birthday date and everyone celebrating on it.
type Upcoming struct {
	Birthdays []models.Birthday
	Date      dates.DayMonth
	Days      int
}

// Next finds the closest upcoming birthday, counting today as 0 days away.
func (s *Service) Next(ctx context.Context) (Upcoming, error) {
	birthdays, err := s.store.Birthdays(ctx)
	if err != nil {
		return Upcoming{}, err
	}

	today := s.now().In(s.location)
	var upcoming Upcoming
	found := false

	for _, birthday := range birthdays {
		date, err := birthday.DayMonth()
		if err != nil {
			continue
		}

		days := dates.DaysUntilNext(today, date)
		switch {
		case !found || days < upcoming.Days:
			upcoming = Upcoming{Birthdays: []models.Birthday{birthday}, Date: date, Days: days}
			found = true
		case days == upcoming.Days:
			upcoming.Birthdays = append(upcoming.Birthdays, birthday)
		}
	}

	if !found {
		return Upcoming{}, ErrNoBirthdays
	}
	sortBirthdays(upcoming.Birthdays)
	return upcoming, nil
}

// SetChannel sets the guild's announcement channel.
func (s *Service) SetChannel(ctx context.Context, actor Actor, guildID, channelID string) error {
	if !actor.IsAdmin {
		return ErrUnauthorized
	}
	return s.store.SetChannel(ctx, guildID, channelID)
}

// SetRole sets the role given to members on their birthday. Roles granting
// administrator permissions are refused.
func (s *Service) SetRole(ctx context.Context, actor Actor, guildID, roleID string, grantsAdmin bool) error {
	if !actor.IsAdmin {
		return ErrUnauthorized
	}
	if grantsAdmin {
		return ErrAdminRole
	}
	return s.store.SetRole(ctx, guildID, roleID)
}

// reserve checks userID's cooldown and claims the change slot in one step.
// release gives the slot back when the change didn't happen.
func (s *Service) reserve(userID string) (release func(), err error) {
	if s.cooldown <= 0 {
		return func() {}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	last, hadLast := s.lastChange[userID]
	if hadLast {
		if next := last.Add(s.cooldown); now.Before(next) {
			return nil, &CooldownError{LastChange: last, NextChange: next}
		}
	}
	s.lastChange[userID] = now

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.lastChange[userID].Equal(now) {
			return
		}
		if hadLast {
			s.lastChange[userID] = last
		} else {
			delete(s.lastChange, userID)
		}
	}, nil
}

// sortBirthdays orders by day and month, then name. Unparseable dates go last.
func sortBirthdays(birthdays []models.Birthday) {
	sort.SliceStable(birthdays, func(i, j int) bool {
		a, errA := birthdays[i].DayMonth()
		b, errB := birthdays[j].DayMonth()
		switch {
		case errA != nil || errB != nil:
			return errA == nil && errB != nil
		case a != b:
			return a.Less(b)
		case birthdays[i].Name != birthdays[j].Name:
			return birthdays[i].Name < birthdays[j].Name
		default:
			return birthdays[i].UserID < birthdays[j].UserID
		}
	})
}
