package testdata

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/jask/eventdesk/internal/database/repository"
)

// Repos bundles repos used by Generate.
type Repos struct {
	Events  *repository.EventRepo
	Tickets *repository.TicketRepo
}

var (
	topics    = []string{"AI", "Cloud", "Design", "Data", "Security", "Product", "Growth", "Robotics"}
	kinds     = []string{"Summit", "Workshop", "Meetup", "Expo", "Masterclass", "Night"}
	venues    = []string{"Town Hall", "Convention Center", "Online", "Rooftop Bar", "Innovation Hub", "City Library"}
	formats   = []string{"In Person", "Online", "Hybrid"}
	types     = []string{"Conference", "Workshop", "Networking", "Expo"}
	ticketSet = []struct {
		name  string
		cents int64
	}{
		{"Early Bird", 2500}, {"General Admission", 5000}, {"VIP", 20000}, {"Student", 1500},
	}
)

// Generate inserts n sample events for owner, each with one to three ticket
// types. seed makes the output reproducible.
func Generate(ctx context.Context, repos Repos, owner string, n int, seed uint64) ([]repository.Event, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	base := time.Now().UTC().Truncate(time.Hour)

	out := make([]repository.Event, 0, n)
	for i := 0; i < n; i++ {
		start := base.AddDate(0, 0, 1+rng.IntN(120)).Add(time.Duration(8+rng.IntN(10)) * time.Hour)
		end := start.Add(time.Duration(2+rng.IntN(7)) * time.Hour)
		typ := types[rng.IntN(len(types))]
		id := uuid.NewString()
		ev := repository.Event{
			ID:        id,
			OwnerID:   owner,
			Name:      fmt.Sprintf("%s %s", topics[rng.IntN(len(topics))], kinds[rng.IntN(len(kinds))]),
			StartsAt:  start,
			EndsAt:    &end,
			Location:  venues[rng.IntN(len(venues))],
			Format:    formats[rng.IntN(len(formats))],
			Type:      &typ,
			IsPrivate: rng.IntN(4) == 0,
			ChartKey:  "event-" + id,
		}
		if err := repos.Events.Insert(ctx, ev); err != nil {
			return out, fmt.Errorf("insert event %d: %w", i, err)
		}
		for j, tt := range rng.Perm(len(ticketSet))[:1+rng.IntN(3)] {
			t := repository.TicketType{
				ID:         uuid.NewString(),
				EventID:    id,
				Name:       ticketSet[tt].name,
				PriceCents: ticketSet[tt].cents,
				Quantity:   10 * (1 + rng.IntN(30)),
				SortOrder:  j,
			}
			if err := repos.Tickets.Insert(ctx, t); err != nil {
				return out, fmt.Errorf("insert ticket type for event %d: %w", i, err)
			}
		}
		out = append(out, ev)
	}
	return out, nil
}
