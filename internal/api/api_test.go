package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jask/eventdesk/internal/database"
	"github.com/jask/eventdesk/internal/database/repository"
	"github.com/jask/eventdesk/internal/designer"
	"github.com/jask/eventdesk/internal/designer/relay"
	"github.com/jask/eventdesk/internal/llm"
	"github.com/jask/eventdesk/internal/service"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(newTestHandler(t))
	t.Cleanup(ts.Close)
	return ts
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.OpenMigrated(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	events := &service.EventService{
		Events:   repository.NewEventRepo(db),
		Tickets:  repository.NewTicketRepo(db),
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC) },
	}
	globals := &designer.Globals{}
	factory := relay.NewFactory(relay.NewMemoryStore(), zerolog.Nop())
	loader := designer.LoaderFunc(func(_ context.Context, r designer.Region) error {
		if r == designer.RegionNA {
			return errors.New("cdn down")
		}
		globals.Install(factory)
		return nil
	})
	designers := &service.DesignerService{
		Events:    events,
		Hub:       designer.NewHub(loader, designer.WithGlobals(globals)),
		SecretKey: "sk-test",
		Relay:     factory,
	}
	t.Cleanup(designers.CloseAll)

	reg := prometheus.NewRegistry()
	srv := NewServer(reg)
	srv.Events = events
	srv.Tickets = &service.TicketService{Events: events, Tickets: repository.NewTicketRepo(db)}
	srv.Layout = &service.LayoutService{Provider: llm.NewHeuristicProvider()}
	srv.Designer = designers
	srv.Gatherer = reg
	return srv.Handler()
}

func do(t *testing.T, ts *httptest.Server, user, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeInto[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, sonic.Unmarshal(data, &v), string(data))
	return v
}

func createEvent(t *testing.T, ts *httptest.Server, user string) repository.Event {
	t.Helper()
	resp, data := do(t, ts, user, http.MethodPost, "/api/events", `{"name":"Launch","date":"2030-02-01","location":"Main Hall"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	return decodeInto[repository.Event](t, data)
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	resp, data := do(t, ts, "", http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, string(data))
}

func TestAnonymousCallerGetsCookie(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, data := do(t, ts, "", http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `[]`, string(data))

	var uid *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == userCookie {
			uid = c
		}
	}
	require.NotNil(t, uid)
	require.True(t, strings.HasPrefix(uid.Value, "anon-"))

	// The cookie identifies the same owner on the next request.
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/events", strings.NewReader(`{"name":"Mine","date":"2030-03-01","location":"Hall"}`))
	require.NoError(t, err)
	req.AddCookie(uid)
	created, err := ts.Client().Do(req)
	require.NoError(t, err)
	_ = created.Body.Close()
	require.Equal(t, http.StatusCreated, created.StatusCode)

	req, err = http.NewRequest(http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	req.AddCookie(uid)
	listed, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer listed.Body.Close()
	body, err := io.ReadAll(listed.Body)
	require.NoError(t, err)
	require.Len(t, decodeInto[[]repository.Event](t, body), 1)
}

func TestEventEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ev := createEvent(t, ts, "u1")
	require.Equal(t, "event-"+ev.ID, ev.ChartKey)

	resp, data := do(t, ts, "u1", http.MethodGet, "/api/events/"+ev.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, ev.ID, decodeInto[repository.Event](t, data).ID)

	resp, _ = do(t, ts, "u2", http.MethodGet, "/api/events/"+ev.ID, "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = do(t, ts, "u1", http.MethodGet, "/api/events/nope", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, data = do(t, ts, "u1", http.MethodPatch, "/api/events/"+ev.ID,
		`{"name":"Launch Party","startDate":"2030-02-01","startTime":"7:30","startAmPm":"PM","format":"Online"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	updated := decodeInto[repository.Event](t, data)
	require.Equal(t, 19, updated.StartsAt.Hour())
	require.Equal(t, "To be announced", updated.Location)

	resp, data = do(t, ts, "u1", http.MethodPost, "/api/events", `{"name":"X","date":"2029-01-01","location":"Y"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeInto[errorBody](t, data)
	require.Equal(t, "validation failed", body.Error)
	require.Contains(t, body.Fields, "name")
	require.Contains(t, body.Fields, "date")

	resp, _ = do(t, ts, "u1", http.MethodPost, "/api/events", `{"name":`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, ts, "u1", http.MethodDelete, "/api/events/"+ev.ID, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, ts, "u1", http.MethodGet, "/api/events/"+ev.ID, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOversizedBodyRejected(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t)
	big := `{"name":"` + strings.Repeat("a", maxRequestBodySize) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewReader([]byte(big)))
	req.Header.Set(userHeader, "u1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestTicketEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ev := createEvent(t, ts, "u1")
	base := "/api/events/" + ev.ID + "/tickets"

	resp, data := do(t, ts, "u1", http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decodeInto[[]repository.TicketType](t, data), 2)

	resp, data = do(t, ts, "u1", http.MethodPost, base, `{"name":"Student","price":"$12.50","quantity":30}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	student := decodeInto[repository.TicketType](t, data)
	require.Equal(t, int64(1250), student.PriceCents)

	resp, data = do(t, ts, "u1", http.MethodPatch, base+"/"+student.ID, `{"name":"Student","price":"10","quantity":0}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, decodeInto[errorBody](t, data).Fields, "quantity")

	resp, data = do(t, ts, "u1", http.MethodPost, base+"/reorder", `{"ids":["`+student.ID+`","other"]}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(data))

	resp, _ = do(t, ts, "u1", http.MethodDelete, base+"/"+student.ID, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestLayoutSuggestionEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, data := do(t, ts, "u1", http.MethodPost, "/api/layout-suggestions", `{
		"venueData": "Conference hall, 40m by 25m, stage at the front",
		"audienceData": "300 attendees from the tech industry",
		"seatingType": "conference",
		"seatConstraints": "at most 12 seats per row",
		"safetyRequirements": "Two emergency exits at the back"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	out := decodeInto[llm.LayoutResponse](t, data)
	require.NotEmpty(t, out.LayoutDescription)
	require.NotEmpty(t, out.OptimizationRationale)
	require.True(t, llm.ValidDataURI(out.LayoutDiagram))

	resp, data = do(t, ts, "u1", http.MethodPost, "/api/layout-suggestions", `{"seatingType":"standing"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, decodeInto[errorBody](t, data).Fields, "seatingType")
}

func TestDesignerEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ev := createEvent(t, ts, "u1")

	resp, data := do(t, ts, "u1", http.MethodPost, "/api/events/"+ev.ID+"/designer", `{"container":"c1","mode":"select"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	st := decodeInto[designer.Status](t, data)
	require.True(t, st.Rendered)
	require.Equal(t, designer.RegionEU, st.Region)

	resp, _ = do(t, ts, "u1", http.MethodPost, "/api/designer/c1/objects/A-1", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Eventually(t, func() bool {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/designer/c1", nil)
		if err != nil {
			return false
		}
		req.Header.Set(userHeader, "u1")
		resp, err := ts.Client().Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var st designer.Status
		data, err := io.ReadAll(resp.Body)
		return err == nil && sonic.Unmarshal(data, &st) == nil && len(st.Selection) == 1
	}, time.Second, 10*time.Millisecond)

	resp, _ = do(t, ts, "u2", http.MethodGet, "/api/designer/c1", "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = do(t, ts, "u1", http.MethodDelete, "/api/designer/c1/objects/A-1", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, ts, "u1", http.MethodDelete, "/api/events/"+ev.ID+"/designer", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, ts, "u1", http.MethodDelete, "/api/events/"+ev.ID+"/designer?container=c1", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, ts, "u1", http.MethodGet, "/api/designer/c1", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, data = do(t, ts, "u1", http.MethodPost, "/api/events/"+ev.ID+"/designer", `{"container":"c2","region":"mars"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(data))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	do(t, ts, "u1", http.MethodGet, "/api/events", "")

	resp, data := do(t, ts, "", http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(data), `eventdesk_http_requests_total{code="200",route="GET /api/events"} 1`)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()
	cases := map[error]int{
		&service.ValidationError{Fields: map[string]string{"a": "b"}}: http.StatusBadRequest,
		service.ErrNotFound:          http.StatusNotFound,
		service.ErrForbidden:         http.StatusForbidden,
		designer.ErrConfiguration:    http.StatusUnprocessableEntity,
		designer.ErrRegionsExhausted: http.StatusBadGateway,
		designer.ErrConstruction:     http.StatusBadGateway,
		relay.ErrLimit:               http.StatusConflict,
		errors.New("boom"):           http.StatusInternalServerError,
	}
	for err, want := range cases {
		require.Equal(t, want, statusFor(err), err.Error())
	}
}
