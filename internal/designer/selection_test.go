package designer

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	sets [][]string
}

func (r *recorder) deliver(labels []string) {
	r.mu.Lock()
	r.sets = append(r.sets, append([]string{}, labels...))
	r.mu.Unlock()
}

func (r *recorder) all() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string{}, r.sets...)
}

func newTestBridge(rec *recorder) (*Bridge, *fakeHandle, *Metrics) {
	m := NewMetrics(nil)
	b := newBridge(zerolog.Nop(), m, 0, rec.deliver)
	h := &fakeHandle{id: 1, log: &eventLog{}}
	b.attach(h)
	return b, h, m
}

func TestBridgeDeliversFullSet(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	b, h, _ := newTestBridge(rec)

	h.setSelected("A-1", "A-2", "B-7")
	b.Notify()
	b.Wait()
	require.Equal(t, [][]string{{"A-1", "A-2", "B-7"}}, rec.all())

	h.setSelected()
	b.Notify()
	b.Wait()
	require.Len(t, rec.all(), 2)
	require.Empty(t, rec.all()[1])
}

func TestBridgeDropsStaleResult(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	b, h, _ := newTestBridge(rec)
	h.setSelected("A-1")

	// seq 2 already delivered; a late answer for seq 1 must not overwrite it
	b.mu.Lock()
	b.issued, b.delivered = 2, 2
	b.mu.Unlock()
	b.inflight.Add(1)
	b.query(h, 1)
	require.Empty(t, rec.all())

	b.mu.Lock()
	b.issued = 3
	b.mu.Unlock()
	b.inflight.Add(1)
	b.query(h, 3)
	require.Equal(t, [][]string{{"A-1"}}, rec.all())
}

func TestBridgeQueryErrorHealsOnNextNotification(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	b, h, m := newTestBridge(rec)
	h.listErrs = []error{errors.New("widget busy")}
	h.setSelected("C-3")

	b.Notify()
	b.Wait()
	require.Empty(t, rec.all())
	require.Equal(t, 1.0, testutil.ToFloat64(m.QueryErrors))

	b.Notify()
	b.Wait()
	require.Equal(t, [][]string{{"C-3"}}, rec.all())
}

func TestDetachedBridgeIgnoresNotify(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	b, h, _ := newTestBridge(rec)
	h.setSelected("A-1")

	b.detach()
	b.Notify()
	b.Wait()
	require.Empty(t, rec.all())
}

func TestBridgeConvergesOnFinalSelection(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	b, h, _ := newTestBridge(rec)

	for i := 0; i < 50; i++ {
		h.setSelected(fmt.Sprintf("R-%d", i))
		b.Notify()
	}
	b.Wait()
	// one more notification after the dust settles always lands
	b.Notify()
	b.Wait()

	sets := rec.all()
	require.NotEmpty(t, sets)
	require.Equal(t, []string{"R-49"}, sets[len(sets)-1])
}

func TestGuardRecoversPanic(t *testing.T) {
	t.Parallel()
	err := guard(func() error { panic("boom") })
	require.ErrorContains(t, err, "boom")
	require.NoError(t, guard(func() error { return nil }))
}
