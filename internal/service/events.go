package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jask/eventdesk/internal/database"
	"github.com/jask/eventdesk/internal/database/repository"
)

const defaultLocation = "To be announced"

var (
	EventFormats = []string{"In Person", "Online", "Hybrid"}
	EventTypes   = []string{"Conference", "Workshop", "Networking", "Expo"}
)

// EventService owns event lifecycle rules. Dates and times entered by the
// organiser are interpreted in Location.
type EventService struct {
	Events   *repository.EventRepo
	Tickets  *repository.TicketRepo
	Location *time.Location
	Now      func() time.Time
}

type CreateEventInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Date        string `json:"date"` // 2006-01-02
	Location    string `json:"location"`
}

// UpdateDetailsInput mirrors the event details form: dates are 2006-01-02,
// times are hh:mm on a 12-hour clock with a separate AM/PM marker.
type UpdateDetailsInput struct {
	Name                string `json:"name"`
	Description         string `json:"description"`
	StartDate           string `json:"startDate"`
	StartTime           string `json:"startTime"`
	StartAmPm           string `json:"startAmPm"`
	EndDate             string `json:"endDate"`
	EndTime             string `json:"endTime"`
	EndAmPm             string `json:"endAmPm"`
	Format              string `json:"format"`
	Type                string `json:"type"`
	Location            string `json:"location"`
	AllowAccessAfterEnd bool   `json:"allowAccessAfterEnd"`
	IsPrivate           bool   `json:"isPrivate"`
	PreEventAccessDate  string `json:"preEventAccessDate"`
	PreEventAccessTime  string `json:"preEventAccessTime"`
	PreEventAccessAmPm  string `json:"preEventAccessAmPm"`
}

func (s *EventService) loc() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

func (s *EventService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create stores a new event with the default ticket types.
func (s *EventService) Create(ctx context.Context, owner string, in CreateEventInput) (repository.Event, error) {
	var v validator
	name := strings.TrimSpace(in.Name)
	location := strings.TrimSpace(in.Location)
	v.check(owner != "", "owner", "is required")
	v.check(len([]rune(name)) >= 2, "name", "must be at least 2 characters")
	v.check(len([]rune(location)) >= 2, "location", "must be at least 2 characters")

	var date time.Time
	if strings.TrimSpace(in.Date) == "" {
		v.check(false, "date", "is required")
	} else {
		d, err := parseLocalDate(in.Date, s.loc())
		v.check(err == nil, "date", "must be YYYY-MM-DD")
		if err == nil {
			today := startOfDay(s.now(), s.loc())
			v.check(!d.Before(today), "date", "must not be in the past")
			date = d
		}
	}
	if err := v.err(); err != nil {
		return repository.Event{}, err
	}

	id := uuid.NewString()
	e := repository.Event{
		ID:          id,
		OwnerID:     owner,
		Name:        name,
		Description: nullableStr(in.Description),
		StartsAt:    date.UTC(),
		Location:    location,
		Format:      EventFormats[0],
		IsPrivate:   true,
		ChartKey:    "event-" + id,
	}
	if err := s.Events.Insert(ctx, e); err != nil {
		return repository.Event{}, fmt.Errorf("insert event: %w", err)
	}
	defaults, err := database.DefaultTicketTypes(id)
	if err != nil {
		return repository.Event{}, err
	}
	for _, t := range defaults {
		if err := s.Tickets.Insert(ctx, t); err != nil {
			return repository.Event{}, fmt.Errorf("insert default ticket %q: %w", t.Name, err)
		}
	}
	got, err := s.Events.Get(ctx, id)
	if err != nil || got == nil {
		return e, err
	}
	return *got, nil
}

// Get returns the event if owner owns it.
func (s *EventService) Get(ctx context.Context, owner, id string) (repository.Event, error) {
	e, err := s.Events.Get(ctx, id)
	if err != nil {
		return repository.Event{}, err
	}
	if e == nil {
		return repository.Event{}, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if e.OwnerID != owner {
		return repository.Event{}, fmt.Errorf("event %s: %w", id, ErrForbidden)
	}
	return *e, nil
}

// ListForOwner is the dashboard listing, soonest first.
func (s *EventService) ListForOwner(ctx context.Context, owner string) ([]repository.Event, error) {
	events, err := s.Events.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []repository.Event{}
	}
	return events, nil
}

func (s *EventService) UpdateDetails(ctx context.Context, owner, id string, in UpdateDetailsInput) (repository.Event, error) {
	e, err := s.Get(ctx, owner, id)
	if err != nil {
		return repository.Event{}, err
	}

	var v validator
	name := strings.TrimSpace(in.Name)
	v.check(name != "", "name", "Event name is required")

	start, err := composeTime(in.StartDate, in.StartTime, in.StartAmPm, s.loc())
	v.check(err == nil, "start", errText(err))

	var end *time.Time
	if strings.TrimSpace(in.EndDate) != "" {
		t, err := composeTime(in.EndDate, in.EndTime, in.EndAmPm, s.loc())
		v.check(err == nil, "end", errText(err))
		if err == nil {
			v.check(!t.Before(start), "end", "must not be before the start")
			end = &t
		}
	}

	var preAccess *time.Time
	if strings.TrimSpace(in.PreEventAccessDate) != "" {
		t, err := composeTime(in.PreEventAccessDate, in.PreEventAccessTime, in.PreEventAccessAmPm, s.loc())
		v.check(err == nil, "preEventAccess", errText(err))
		if err == nil {
			preAccess = &t
		}
	}

	format := strings.TrimSpace(in.Format)
	if format == "" {
		format = e.Format
	}
	v.check(containsFold(EventFormats, format), "format", "must be one of "+strings.Join(EventFormats, ", "))

	typ := strings.TrimSpace(in.Type)
	if strings.HasPrefix(typ, "Please Select") {
		typ = ""
	}
	v.check(typ == "" || containsFold(EventTypes, typ), "type", "must be one of "+strings.Join(EventTypes, ", "))

	if err := v.err(); err != nil {
		return repository.Event{}, err
	}

	location := strings.TrimSpace(in.Location)
	if location == "" {
		location = defaultLocation
	}
	e.Name = name
	if in.Description != "" {
		e.Description = nullableStr(in.Description)
	}
	e.StartsAt = start
	e.EndsAt = end
	e.Location = location
	e.Format = canonical(EventFormats, format)
	e.Type = nullableStr(canonical(EventTypes, typ))
	e.AllowAccessAfterEnd = in.AllowAccessAfterEnd
	e.IsPrivate = in.IsPrivate
	e.PreEventAccessAt = preAccess

	if err := s.Events.Update(ctx, e); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.Event{}, fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return repository.Event{}, err
	}
	return s.Get(ctx, owner, id)
}

// Delete removes the event and its ticket types.
func (s *EventService) Delete(ctx context.Context, owner, id string) error {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	if err := s.Events.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return err
	}
	return nil
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func containsFold(list []string, s string) bool {
	return canonical(list, s) != ""
}

// canonical returns the list entry equal to s ignoring case, or "".
func canonical(list []string, s string) string {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return v
		}
	}
	return ""
}
