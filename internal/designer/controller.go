package designer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LoadState tracks the vendor script for one session.
type LoadState int

const (
	LoadNotRequested LoadState = iota
	LoadLoading
	LoadLoaded
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadNotRequested:
		return "not_requested"
	case LoadLoading:
		return "loading"
	case LoadLoaded:
		return "loaded"
	case LoadFailed:
		return "failed"
	}
	return "unknown"
}

func (s LoadState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *LoadState) UnmarshalText(b []byte) error {
	for _, v := range []LoadState{LoadNotRequested, LoadLoading, LoadLoaded, LoadFailed} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown load state %q", b)
}

// OpenParams identifies a session. Opening with different params replaces the
// current session; opening with identical params joins it.
type OpenParams struct {
	ChartKey    string
	SecretKey   string
	Region      Region
	Mode        Mode
	MaxSelected int
}

// Status is a snapshot for the host surface.
type Status struct {
	Container string    `json:"container"`
	Open      bool      `json:"open"`
	ChartKey  string    `json:"chartKey,omitempty"`
	Region    Region    `json:"region,omitempty"`
	LoadState LoadState `json:"loadState"`
	Fallback  string    `json:"fallback,omitempty"`
	Attempts  []Region  `json:"attempts"`
	Rendered  bool      `json:"rendered"`
	Error     string    `json:"error,omitempty"`
	Selection []string  `json:"selection"`
}

type session struct {
	params   OpenParams
	fallback *Fallback
	state    LoadState
	handle   Handle
	bridge   *Bridge
	err      error
	closed   bool
	done     chan struct{}
}

// Controller owns the widget embedded in one container. All session state is
// guarded by mu; script loads run without it and their outcome is discarded
// once the session they belong to is closed or replaced.
type Controller struct {
	container    string
	loader       Loader
	globals      *Globals
	regions      RegionSet
	language     string
	features     []string
	queryTimeout time.Duration
	onSelection  func(container string, labels []string)
	log          zerolog.Logger
	metrics      *Metrics

	mu       sync.Mutex
	cur      *session
	rejected error
	retired  bool

	selMu     sync.Mutex
	selection []string
}

type Option func(*Controller)

func WithGlobals(g *Globals) Option { return func(c *Controller) { c.globals = g } }
func WithRegions(r RegionSet) Option { return func(c *Controller) { c.regions = r } }
func WithLogger(l zerolog.Logger) Option { return func(c *Controller) { c.log = l } }
func WithMetrics(m *Metrics) Option { return func(c *Controller) { c.metrics = m } }
func WithLanguage(lang string) Option { return func(c *Controller) { c.language = lang } }
func WithFeatures(f []string) Option { return func(c *Controller) { c.features = f } }
func WithQueryTimeout(d time.Duration) Option {
	return func(c *Controller) { c.queryTimeout = d }
}

// WithSelectionHandler forwards every delivered selection set. fn must not call
// back into the controller.
func WithSelectionHandler(fn func(container string, labels []string)) Option {
	return func(c *Controller) { c.onSelection = fn }
}

func NewController(container string, loader Loader, opts ...Option) *Controller {
	c := &Controller{
		container: container,
		loader:    loader,
		regions:   DefaultRegions,
		language:  "en",
		features:  DefaultFeatures,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.globals == nil {
		c.globals = ProcessGlobals()
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	c.log = c.log.With().Str("container", container).Logger()
	return c
}

func (c *Controller) Container() string { return c.container }

// Open starts or joins a session and blocks until the widget is rendered, the
// attempt fails, or ctx ends. When ctx ends first the session keeps loading in
// the background and renders if it is still open when the script arrives.
func (c *Controller) Open(ctx context.Context, p OpenParams) (Status, error) {
	p, err := c.normalize(p)
	if err != nil {
		return c.reject(p, err)
	}

	c.mu.Lock()
	if c.retired {
		c.mu.Unlock()
		return c.Status(), fmt.Errorf("%w: container %s was closed", ErrSessionClosed, c.container)
	}
	c.rejected = nil
	s := c.cur
	if s == nil || s.closed || s.params != p {
		c.teardownLocked("replaced")
		s = &session{
			params:   p,
			fallback: NewFallback(c.regions, p.Region),
			done:     make(chan struct{}),
		}
		c.cur = s
		c.setSelection(nil)
		go c.run(context.WithoutCancel(ctx), s)
	}
	c.mu.Unlock()

	select {
	case <-s.done:
	case <-ctx.Done():
		return c.Status(), ctx.Err()
	}
	return c.Status(), c.outcome(s)
}

// reject records a configuration error so Status keeps reporting it. The
// current session, if any, is left alone.
func (c *Controller) reject(p OpenParams, err error) (Status, error) {
	c.mu.Lock()
	c.rejected = err
	c.mu.Unlock()
	c.log.Warn().Err(err).Str("chart_key", p.ChartKey).Msg("designer open rejected")
	return c.Status(), err
}

// Close destroys the current handle, if any, exactly once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked("closed")
	c.cur = nil
	c.setSelection(nil)
}

// retire closes the controller for good. Opens that were already on their way
// in fail with ErrSessionClosed instead of starting an untracked session.
func (c *Controller) retire() {
	c.mu.Lock()
	c.retired = true
	c.mu.Unlock()
	c.Close()
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	st := Status{Container: c.container, Attempts: []Region{}}
	if s := c.cur; s != nil && !s.closed {
		st.Open = true
		st.ChartKey = s.params.ChartKey
		st.Region = s.fallback.Current()
		st.LoadState = s.state
		st.Fallback = s.fallback.State().String()
		st.Attempts = s.fallback.Attempts()
		st.Rendered = s.handle != nil
		if s.err != nil {
			st.Error = s.err.Error()
		}
	}
	if st.Error == "" && c.rejected != nil {
		st.Error = c.rejected.Error()
	}
	c.mu.Unlock()
	st.Selection = c.Selection()
	return st
}

// Selection returns the last delivered selection set.
func (c *Controller) Selection() []string {
	c.selMu.Lock()
	defer c.selMu.Unlock()
	return append([]string{}, c.selection...)
}

func (c *Controller) normalize(p OpenParams) (OpenParams, error) {
	p.ChartKey = strings.TrimSpace(p.ChartKey)
	if p.ChartKey == "" {
		return p, fmt.Errorf("%w: chart key is empty", ErrConfiguration)
	}
	if strings.TrimSpace(p.SecretKey) == "" {
		return p, fmt.Errorf("%w: secret key is empty", ErrConfiguration)
	}
	if p.Region == "" && len(c.regions) > 0 {
		p.Region = c.regions[0]
	}
	r, err := c.regions.Parse(string(p.Region))
	if err != nil {
		return p, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	p.Region = r
	if p.Mode == "" {
		p.Mode = ModeDesigner
	}
	if p.MaxSelected < 0 {
		p.MaxSelected = 0
	}
	return p, nil
}

func (c *Controller) run(ctx context.Context, s *session) {
	defer close(s.done)
	if c.load(ctx, s) {
		c.construct(s)
	}
}

func (c *Controller) live(s *session) bool { return c.cur == s && !s.closed }

// load drives the fallback machine until a region succeeds or all are exhausted.
func (c *Controller) load(ctx context.Context, s *session) bool {
	c.mu.Lock()
	if !c.live(s) {
		c.mu.Unlock()
		return false
	}
	if _, ok := c.globals.Factory(); ok {
		s.fallback.Succeed()
		s.state = LoadLoaded
		c.mu.Unlock()
		c.log.Debug().Msg("vendor library already installed")
		return true
	}
	s.state = LoadLoading
	region := s.fallback.Current()
	c.mu.Unlock()

	for {
		c.metrics.LoadAttempts.WithLabelValues(string(region)).Inc()
		c.log.Info().Str("region", string(region)).Msg("loading designer script")
		err := guard(func() error { return c.loader.Load(ctx, region) })

		c.mu.Lock()
		if !c.live(s) {
			c.mu.Unlock()
			c.log.Debug().Str("region", string(region)).Msg("session gone before load finished; ignoring result")
			return false
		}
		if err == nil {
			s.fallback.Succeed()
			s.state = LoadLoaded
			c.mu.Unlock()
			c.log.Info().Str("region", string(region)).Msg("designer script loaded")
			return true
		}

		c.metrics.LoadFailures.WithLabelValues(string(region)).Inc()
		next, ok := s.fallback.Fail()
		if !ok {
			s.state = LoadFailed
			s.err = fmt.Errorf("%w (tried %s): %w", ErrRegionsExhausted, joinRegions(s.fallback.Attempts()), err)
			c.log.Error().Err(s.err).Msg("designer script unavailable")
			c.mu.Unlock()
			c.metrics.Exhausted.Inc()
			return false
		}
		c.mu.Unlock()

		c.metrics.Fallbacks.Inc()
		c.log.Warn().Err(err).Str("failed", string(region)).Str("next", string(next)).Msg("trying alternative region")
		region = next
	}
}

func (c *Controller) construct(s *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live(s) || s.handle != nil {
		return
	}

	factory, ok := c.globals.Factory()
	if !ok {
		s.err = fmt.Errorf("%w: vendor library reported success but installed no factory", ErrConfiguration)
		c.log.Error().Err(s.err).Msg("designer unavailable")
		return
	}

	cfg := WidgetConfig{
		Container:   c.container,
		ChartKey:    s.params.ChartKey,
		SecretKey:   s.params.SecretKey,
		Region:      s.fallback.Current(),
		Language:    c.language,
		Features:    c.features,
		Mode:        s.params.Mode,
		MaxSelected: s.params.MaxSelected,
	}
	bridge := newBridge(c.log, c.metrics, c.queryTimeout, c.deliverSelection)

	var handle Handle
	err := guard(func() error {
		w, err := factory.NewWidget(cfg)
		if err != nil {
			return err
		}
		w.OnSelectionChanged(bridge.Notify)
		handle, err = w.Render(c.container)
		return err
	})
	if err == nil && handle == nil {
		err = errors.New("render returned no handle")
	}
	if err != nil {
		if handle != nil {
			c.destroy(handle)
		}
		s.err = fmt.Errorf("%w: %w", ErrConstruction, err)
		c.metrics.ConstructionErrors.Inc()
		c.log.Error().Err(s.err).Str("chart_key", cfg.ChartKey).Msg("designer construction failed")
		return
	}

	bridge.attach(handle)
	s.handle, s.bridge = handle, bridge
	c.metrics.Constructions.Inc()
	c.log.Info().Str("chart_key", cfg.ChartKey).Str("region", string(cfg.Region)).Msg("designer rendered")
}

func (c *Controller) outcome(s *session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.err
}

// teardownLocked ends the current session: the bridge stops delivering and the
// handle, if one exists, is destroyed once. Destroy errors are only logged.
func (c *Controller) teardownLocked(reason string) {
	s := c.cur
	if s == nil || s.closed {
		return
	}
	s.closed = true
	if s.bridge != nil {
		s.bridge.detach()
	}
	if s.handle == nil {
		return
	}
	h := s.handle
	s.handle = nil
	c.destroy(h)
	c.log.Info().Str("reason", reason).Msg("designer destroyed")
}

func (c *Controller) destroy(h Handle) {
	c.metrics.Destroys.Inc()
	if err := guard(h.Destroy); err != nil {
		c.metrics.TeardownErrors.Inc()
		c.log.Warn().Err(fmt.Errorf("%w: %w", ErrTeardown, err)).Msg("destroy failed; container released anyway")
	}
}

func (c *Controller) deliverSelection(labels []string) {
	cp := c.setSelection(labels)
	if c.onSelection != nil {
		c.onSelection(c.container, cp)
	}
}

func (c *Controller) setSelection(labels []string) []string {
	cp := append([]string{}, labels...)
	c.selMu.Lock()
	c.selection = cp
	c.selMu.Unlock()
	return cp
}

func joinRegions(rs []Region) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
