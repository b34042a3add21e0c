package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jask/eventdesk/internal/designer"
	"github.com/jask/eventdesk/internal/designer/relay"
)

type memoryRegion struct {
	mu     sync.Mutex
	region string
}

func (m *memoryRegion) LastRegion() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.region, nil
}

func (m *memoryRegion) SaveLastRegion(r string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.region = r
	return nil
}

// newDesignerService wires a hub whose loader fails for the regions in down.
func newDesignerService(t *testing.T, down ...designer.Region) (*DesignerService, services) {
	t.Helper()
	s := newServices(t)
	globals := &designer.Globals{}
	factory := relay.NewFactory(relay.NewMemoryStore(), zerolog.Nop())
	loader := designer.LoaderFunc(func(_ context.Context, r designer.Region) error {
		for _, d := range down {
			if d == r {
				return errors.New("unreachable")
			}
		}
		globals.Install(factory)
		return nil
	})
	hub := designer.NewHub(loader, designer.WithGlobals(globals))
	svc := &DesignerService{
		Events:    s.events,
		Hub:       hub,
		SecretKey: "sk-test",
		Prefs:     &memoryRegion{},
		Relay:     factory,
	}
	t.Cleanup(svc.CloseAll)
	return svc, s
}

func TestDesignerOpenRemembersRegion(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	svc, s := newDesignerService(t, designer.RegionNA)

	ev, err := s.events.Create(ctx, "u1", CreateEventInput{Name: "Gala", Date: "2030-05-01", Location: "Hall"})
	require.NoError(t, err)

	st, err := svc.Open(ctx, "u1", ev.ID, OpenDesignerInput{})
	require.NoError(t, err)
	require.True(t, st.Rendered)
	require.Regexp(t, `^chart-designer-[0-9a-f]{12}$`, st.Container)
	require.Equal(t, ev.ChartKey, st.ChartKey)
	require.Equal(t, designer.RegionEU, st.Region)
	require.Equal(t, []designer.Region{designer.RegionNA}, st.Attempts)

	last, err := svc.Prefs.LastRegion()
	require.NoError(t, err)
	require.Equal(t, "eu", last)

	// The remembered region is the next starting point.
	svc.StartRegion = func(remembered string) designer.Region { return designer.Region(remembered) }
	st2, err := svc.Open(ctx, "u1", ev.ID, OpenDesignerInput{Container: "second"})
	require.NoError(t, err)
	require.Equal(t, designer.RegionEU, st2.Region)
	require.Empty(t, st2.Attempts)
}

func TestDesignerSelectionAndOwnership(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	svc, s := newDesignerService(t)

	ev, err := s.events.Create(ctx, "u1", CreateEventInput{Name: "Gala", Date: "2030-05-01", Location: "Hall"})
	require.NoError(t, err)

	_, err = svc.Open(ctx, "u1", ev.ID, OpenDesignerInput{Container: "c1", Mode: "select", MaxSelected: 2})
	require.NoError(t, err)

	_, err = svc.Open(ctx, "u2", ev.ID, OpenDesignerInput{Container: "c1"})
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Status("u2", "c1")
	require.ErrorIs(t, err, ErrForbidden)
	require.ErrorIs(t, svc.Select(ctx, "u2", "c1", "A-1"), ErrForbidden)

	require.NoError(t, svc.Select(ctx, "u1", "c1", "A-1"))
	require.NoError(t, svc.Select(ctx, "u1", "c1", "A-2"))
	require.ErrorIs(t, svc.Select(ctx, "u1", "c1", "A-3"), relay.ErrLimit)
	require.Eventually(t, func() bool {
		st, err := svc.Status("u1", "c1")
		return err == nil && len(st.Selection) == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, svc.Deselect(ctx, "u1", "c1", "A-1"))
	require.Eventually(t, func() bool {
		st, err := svc.Status("u1", "c1")
		return err == nil && len(st.Selection) == 1 && st.Selection[0] == "A-2"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, svc.Close(ctx, "u1", ev.ID, "c1"))
	_, err = svc.Status("u1", "c1")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, svc.Close(ctx, "u1", ev.ID, "c1"))
}

func TestDesignerOpenErrors(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	svc, s := newDesignerService(t, designer.DefaultRegions...)

	ev, err := s.events.Create(ctx, "u1", CreateEventInput{Name: "Gala", Date: "2030-05-01", Location: "Hall"})
	require.NoError(t, err)

	_, err = svc.Open(ctx, "u1", ev.ID, OpenDesignerInput{Mode: "edit"})
	require.Contains(t, validationFields(t, err), "mode")

	st, err := svc.Open(ctx, "u1", ev.ID, OpenDesignerInput{Container: "c1"})
	require.ErrorIs(t, err, designer.ErrRegionsExhausted)
	require.False(t, st.Rendered)
	require.Len(t, st.Attempts, 4)

	svc.SecretKey = ""
	_, err = svc.Open(ctx, "u1", ev.ID, OpenDesignerInput{Container: "c2"})
	require.ErrorIs(t, err, designer.ErrConfiguration)

	_, err = svc.Open(ctx, "u1", "missing", OpenDesignerInput{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDesignerRejectedOpenReleasesContainer(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	svc, s := newDesignerService(t)

	ev1, err := s.events.Create(ctx, "u1", CreateEventInput{Name: "Gala", Date: "2030-05-01", Location: "Hall"})
	require.NoError(t, err)
	ev2, err := s.events.Create(ctx, "u2", CreateEventInput{Name: "Expo", Date: "2030-06-01", Location: "Pier"})
	require.NoError(t, err)

	svc.SecretKey = ""
	_, err = svc.Open(ctx, "u1", ev1.ID, OpenDesignerInput{Container: "c9"})
	require.ErrorIs(t, err, designer.ErrConfiguration)
	require.Empty(t, svc.Hub.Containers())
	_, err = svc.Status("u1", "c9")
	require.ErrorIs(t, err, ErrNotFound)

	svc.SecretKey = "sk-test"
	st, err := svc.Open(ctx, "u2", ev2.ID, OpenDesignerInput{Container: "c9"})
	require.NoError(t, err)
	require.True(t, st.Rendered)
}

func TestDesignerRejectedReopenShowsError(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	svc, s := newDesignerService(t)

	ev, err := s.events.Create(ctx, "u1", CreateEventInput{Name: "Gala", Date: "2030-05-01", Location: "Hall"})
	require.NoError(t, err)
	_, err = svc.Open(ctx, "u1", ev.ID, OpenDesignerInput{Container: "c1"})
	require.NoError(t, err)

	svc.SecretKey = ""
	_, err = svc.Open(ctx, "u1", ev.ID, OpenDesignerInput{Container: "c1"})
	require.ErrorIs(t, err, designer.ErrConfiguration)

	st, err := svc.Status("u1", "c1")
	require.NoError(t, err)
	require.True(t, st.Rendered)
	require.Contains(t, st.Error, "secret key is empty")
	_, err = svc.Open(ctx, "u2", ev.ID, OpenDesignerInput{Container: "c1"})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestDesignerCloseChecksEvent(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	svc, s := newDesignerService(t)

	gala, err := s.events.Create(ctx, "u1", CreateEventInput{Name: "Gala", Date: "2030-05-01", Location: "Hall"})
	require.NoError(t, err)
	expo, err := s.events.Create(ctx, "u1", CreateEventInput{Name: "Expo", Date: "2030-06-01", Location: "Pier"})
	require.NoError(t, err)

	_, err = svc.Open(ctx, "u1", gala.ID, OpenDesignerInput{Container: "c1"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Close(ctx, "u1", expo.ID, "c1"), ErrNotFound)
	st, err := svc.Status("u1", "c1")
	require.NoError(t, err)
	require.True(t, st.Rendered)

	require.NoError(t, svc.Close(ctx, "u1", gala.ID, "c1"))
	require.Empty(t, svc.Hub.Containers())
}
