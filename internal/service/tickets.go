package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jask/eventdesk/internal/database/repository"
)

// TicketService manages an event's ticket types. Every call checks that owner
// owns the event first.
type TicketService struct {
	Events  *EventService
	Tickets *repository.TicketRepo
}

// TicketInput is the ticket form. Price is a dollar amount such as "$25.50";
// SalesEndDate is 2006-01-02 and may be empty.
type TicketInput struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Price            string `json:"price"`
	Quantity         int    `json:"quantity"`
	SalesEndDate     string `json:"salesEndDate"`
	SalesEndTime     string `json:"salesEndTime"`
	SalesEndAmPm     string `json:"salesEndAmPm"`
	RequiresApproval bool   `json:"requiresApproval"`
}

func (s *TicketService) validate(ev repository.Event, in TicketInput) (repository.TicketType, error) {
	var v validator
	name := strings.TrimSpace(in.Name)
	v.check(name != "", "name", "is required")

	var price int64
	if strings.TrimSpace(in.Price) == "" {
		v.check(false, "price", "is required")
	} else {
		cents, err := dollarsToCents(in.Price)
		v.check(err == nil, "price", "must be a dollar amount")
		v.check(err != nil || cents >= 0, "price", "must not be negative")
		price = cents
	}
	v.check(in.Quantity > 0, "quantity", "must be greater than zero")

	var salesEnd *time.Time
	if strings.TrimSpace(in.SalesEndDate) != "" {
		t, err := composeTime(in.SalesEndDate, in.SalesEndTime, in.SalesEndAmPm, s.Events.loc())
		v.check(err == nil, "salesEnd", errText(err))
		if err == nil {
			limit := ev.StartsAt
			if ev.EndsAt != nil {
				limit = *ev.EndsAt
			}
			v.check(!t.After(limit), "salesEnd", "must not be after the event ends")
			salesEnd = &t
		}
	}
	if err := v.err(); err != nil {
		return repository.TicketType{}, err
	}
	return repository.TicketType{
		EventID:          ev.ID,
		Name:             name,
		Description:      nullableStr(in.Description),
		PriceCents:       price,
		Quantity:         in.Quantity,
		SalesEndAt:       salesEnd,
		RequiresApproval: in.RequiresApproval,
	}, nil
}

func (s *TicketService) Create(ctx context.Context, owner, eventID string, in TicketInput) (repository.TicketType, error) {
	ev, err := s.Events.Get(ctx, owner, eventID)
	if err != nil {
		return repository.TicketType{}, err
	}
	t, err := s.validate(ev, in)
	if err != nil {
		return repository.TicketType{}, err
	}
	t.ID = uuid.NewString()
	if t.SortOrder, err = s.Tickets.NextSortOrder(ctx, eventID); err != nil {
		return repository.TicketType{}, err
	}
	if err := s.Tickets.Insert(ctx, t); err != nil {
		return repository.TicketType{}, fmt.Errorf("insert ticket type: %w", err)
	}
	return s.get(ctx, eventID, t.ID)
}

func (s *TicketService) Update(ctx context.Context, owner, eventID, ticketID string, in TicketInput) (repository.TicketType, error) {
	ev, err := s.Events.Get(ctx, owner, eventID)
	if err != nil {
		return repository.TicketType{}, err
	}
	if _, err := s.get(ctx, eventID, ticketID); err != nil {
		return repository.TicketType{}, err
	}
	t, err := s.validate(ev, in)
	if err != nil {
		return repository.TicketType{}, err
	}
	t.ID = ticketID
	if err := s.Tickets.Update(ctx, t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.TicketType{}, fmt.Errorf("ticket type %s: %w", ticketID, ErrNotFound)
		}
		return repository.TicketType{}, err
	}
	return s.get(ctx, eventID, ticketID)
}

// List returns the event's ticket types in display order.
func (s *TicketService) List(ctx context.Context, owner, eventID string) ([]repository.TicketType, error) {
	if _, err := s.Events.Get(ctx, owner, eventID); err != nil {
		return nil, err
	}
	out, err := s.Tickets.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []repository.TicketType{}
	}
	return out, nil
}

func (s *TicketService) Delete(ctx context.Context, owner, eventID, ticketID string) error {
	if _, err := s.Events.Get(ctx, owner, eventID); err != nil {
		return err
	}
	if _, err := s.get(ctx, eventID, ticketID); err != nil {
		return err
	}
	if err := s.Tickets.Delete(ctx, ticketID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("ticket type %s: %w", ticketID, ErrNotFound)
		}
		return err
	}
	return nil
}

// Reorder sets the display order to ids. Unknown or foreign ids reject the
// whole request.
func (s *TicketService) Reorder(ctx context.Context, owner, eventID string, ids []string) ([]repository.TicketType, error) {
	if _, err := s.Events.Get(ctx, owner, eventID); err != nil {
		return nil, err
	}
	var v validator
	v.check(len(ids) > 0, "ids", "must not be empty")
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		v.check(!seen[id], "ids", "must not repeat "+id)
		seen[id] = true
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	if err := s.Tickets.Reorder(ctx, eventID, ids); err != nil {
		if errors.Is(err, repository.ErrForeignTicket) {
			return nil, &ValidationError{Fields: map[string]string{"ids": err.Error()}}
		}
		return nil, err
	}
	return s.Tickets.ListByEvent(ctx, eventID)
}

func (s *TicketService) get(ctx context.Context, eventID, ticketID string) (repository.TicketType, error) {
	t, err := s.Tickets.Get(ctx, ticketID)
	if err != nil {
		return repository.TicketType{}, err
	}
	if t == nil || t.EventID != eventID {
		return repository.TicketType{}, fmt.Errorf("ticket type %s: %w", ticketID, ErrNotFound)
	}
	return *t, nil
}
