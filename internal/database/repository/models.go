package repository

import "time"

// Event represents an events row.
type Event struct {
	ID                  string     `json:"id"`
	OwnerID             string     `json:"ownerId"`
	Name                string     `json:"name"`
	Description         *string    `json:"description,omitempty"`
	StartsAt            time.Time  `json:"startsAt"`
	EndsAt              *time.Time `json:"endsAt,omitempty"`
	Location            string     `json:"location"`
	Format              string     `json:"format"`
	Type                *string    `json:"type,omitempty"`
	AllowAccessAfterEnd bool       `json:"allowAccessAfterEnd"`
	IsPrivate           bool       `json:"isPrivate"`
	PreEventAccessAt    *time.Time `json:"preEventAccessAt,omitempty"`
	ChartKey            string     `json:"chartKey"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// TicketType represents a ticket_types row.
type TicketType struct {
	ID               string     `json:"id"`
	EventID          string     `json:"eventId"`
	Name             string     `json:"name"`
	Description      *string    `json:"description,omitempty"`
	PriceCents       int64      `json:"priceCents"`
	Quantity         int        `json:"quantity"`
	SalesEndAt       *time.Time `json:"salesEndAt,omitempty"`
	RequiresApproval bool       `json:"requiresApproval"`
	SortOrder        int        `json:"sortOrder"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}
