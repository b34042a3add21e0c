package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jask/eventdesk/internal/database/repository"
)

//go:embed seed.yaml
var seedYAML []byte

// SeedTicket is a ticket type template.
type SeedTicket struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	PriceCents  int64  `yaml:"price_cents"`
	Quantity    int    `yaml:"quantity"`
}

type SeedEvent struct {
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	Location      string `yaml:"location"`
	Format        string `yaml:"format"`
	Type          string `yaml:"type"`
	StartsInDays  int    `yaml:"starts_in_days"`
	StartTime     string `yaml:"start_time"`
	DurationHours int    `yaml:"duration_hours"`
}

type Seed struct {
	TicketTypes []SeedTicket `yaml:"ticket_types"`
	Events      []SeedEvent  `yaml:"events"`
}

// LoadSeed parses the embedded seed file.
func LoadSeed() (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(seedYAML, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}
	return s, nil
}

// DefaultTicketTypes returns the ticket types a new event starts with.
func DefaultTicketTypes(eventID string) ([]repository.TicketType, error) {
	s, err := LoadSeed()
	if err != nil {
		return nil, err
	}
	out := make([]repository.TicketType, 0, len(s.TicketTypes))
	for i, st := range s.TicketTypes {
		t := repository.TicketType{
			ID:         uuid.NewString(),
			EventID:    eventID,
			Name:       st.Name,
			PriceCents: st.PriceCents,
			Quantity:   st.Quantity,
			SortOrder:  i,
		}
		if st.Description != "" {
			d := st.Description
			t.Description = &d
		}
		out = append(out, t)
	}
	return out, nil
}

// SeedDefaults inserts the demo events for owner when the store is empty.
// It is idempotent and safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB, owner string) error {
	events := repository.NewEventRepo(db)
	if n, err := events.Count(ctx); err != nil || n > 0 {
		return err
	}
	s, err := LoadSeed()
	if err != nil {
		return err
	}
	today := Now().Truncate(24 * time.Hour)
	tickets := repository.NewTicketRepo(db)
	for _, se := range s.Events {
		start, err := time.Parse("15:04", se.StartTime)
		if err != nil {
			return fmt.Errorf("seed %q: start time: %w", se.Name, err)
		}
		startsAt := today.AddDate(0, 0, se.StartsInDays).Add(time.Duration(start.Hour())*time.Hour + time.Duration(start.Minute())*time.Minute)
		endsAt := startsAt.Add(time.Duration(se.DurationHours) * time.Hour)
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("event:"+owner+":"+se.Name)).String()
		e := repository.Event{
			ID:        id,
			OwnerID:   owner,
			Name:      se.Name,
			StartsAt:  startsAt,
			EndsAt:    &endsAt,
			Location:  se.Location,
			Format:    se.Format,
			IsPrivate: true,
			ChartKey:  "event-" + id,
		}
		if se.Description != "" {
			d := se.Description
			e.Description = &d
		}
		if se.Type != "" {
			typ := se.Type
			e.Type = &typ
		}
		if err := events.Insert(ctx, e); err != nil {
			return fmt.Errorf("seed event %q: %w", se.Name, err)
		}
		defaults, err := DefaultTicketTypes(id)
		if err != nil {
			return err
		}
		for _, t := range defaults {
			if err := tickets.Insert(ctx, t); err != nil {
				return fmt.Errorf("seed tickets for %q: %w", se.Name, err)
			}
		}
	}
	return nil
}
