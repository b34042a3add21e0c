package testdata

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/eventdesk/internal/database"
	"github.com/jask/eventdesk/internal/database/repository"
)

func TestGenerate(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := database.OpenMigrated(filepath.Join(t.TempDir(), "gen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repos := Repos{Events: repository.NewEventRepo(db), Tickets: repository.NewTicketRepo(db)}
	events, err := Generate(ctx, repos, "demo", 25, 7)
	require.NoError(t, err)
	require.Len(t, events, 25)

	listed, err := repos.Events.ListByOwner(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, listed, 25)
	for i := 1; i < len(listed); i++ {
		require.False(t, listed[i].StartsAt.Before(listed[i-1].StartsAt))
	}
	for _, ev := range events {
		tickets, err := repos.Tickets.ListByEvent(ctx, ev.ID)
		require.NoError(t, err)
		require.NotEmpty(t, tickets)
		require.LessOrEqual(t, len(tickets), 3)
		require.True(t, ev.EndsAt.After(ev.StartsAt))
	}
}
