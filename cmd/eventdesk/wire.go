package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/jask/eventdesk/internal/api"
	"github.com/jask/eventdesk/internal/config"
	"github.com/jask/eventdesk/internal/database"
	"github.com/jask/eventdesk/internal/database/repository"
	"github.com/jask/eventdesk/internal/designer"
	"github.com/jask/eventdesk/internal/designer/relay"
	"github.com/jask/eventdesk/internal/llm"
	"github.com/jask/eventdesk/internal/prefs"
	"github.com/jask/eventdesk/internal/secrets"
	"github.com/jask/eventdesk/internal/service"
)

// app holds everything a command needs; Close releases it in reverse order.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	db       *sql.DB
	registry *prometheus.Registry
	store    relay.Store
	loc      *time.Location

	events   *service.EventService
	tickets  *service.TicketService
	layout   *service.LayoutService
	designer *service.DesignerService
	maint    *service.MaintenanceService
}

func buildApp(ctx context.Context, cfg config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.loc = time.Local
	if cfg.UI.Timezone != "" {
		loc, err := time.LoadLocation(cfg.UI.Timezone)
		if err != nil {
			log.Warn().Err(err).Str("timezone", cfg.UI.Timezone).Msg("using local timezone")
		} else {
			a.loc = loc
		}
	}

	db, err := database.OpenMigrated(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.db = db
	if cfg.Database.Seed {
		if err := database.SeedDefaults(ctx, db, cfg.UI.Owner); err != nil {
			a.Close()
			return nil, fmt.Errorf("seed defaults: %w", err)
		}
	}

	keys, err := secrets.Default()
	if err != nil {
		log.Warn().Err(err).Msg("secret store unavailable")
	}

	provider, err := llm.New(ctx, llm.Options{
		Provider: cfg.LLM.Provider,
		APIKey:   keys.Resolve(secrets.OpenAIKey, cfg.LLM.APIKeyEnv, cfg.LLM.APIKey),
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.Timeout,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	provider = llm.Instrument(cfg.LLM.Provider, provider, llm.NewMetrics(a.registry))

	if cfg.Redis.URL != "" {
		rs, err := relay.NewRedisStore(ctx, cfg.Redis.URL, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("selection relay: %w", err)
		}
		a.store = rs
	} else {
		a.store = relay.NewMemoryStore()
	}
	factory := relay.NewFactory(a.store, log)

	loader := &designer.HTTPLoader{
		Client:      &http.Client{},
		URLTemplate: cfg.Designer.ScriptURL,
		Timeout:     cfg.Designer.LoadTimeout,
		Globals:     designer.ProcessGlobals(),
		Factory:     factory,
	}
	hub := designer.NewHub(loader,
		designer.WithRegions(cfg.RegionSet()),
		designer.WithLanguage(cfg.Designer.Language),
		designer.WithQueryTimeout(cfg.Designer.QueryTimeout),
		designer.WithLogger(log),
		designer.WithMetrics(designer.NewMetrics(a.registry)),
	)

	eventRepo := repository.NewEventRepo(db)
	ticketRepo := repository.NewTicketRepo(db)
	a.events = &service.EventService{Events: eventRepo, Tickets: ticketRepo, Location: a.loc}
	a.tickets = &service.TicketService{Events: a.events, Tickets: ticketRepo}
	a.layout = &service.LayoutService{Provider: provider, Log: log}
	a.designer = &service.DesignerService{
		Events:      a.events,
		Hub:         hub,
		SecretKey:   keys.Resolve(secrets.DesignerSecret, cfg.Designer.SecretKeyEnv, cfg.Designer.SecretKey),
		StartRegion: cfg.StartRegion,
		Prefs:       prefs.Dir(""),
		Relay:       factory,
		OpenTimeout: cfg.Designer.OpenTimeout,
		Log:         log,
	}
	a.maint = &service.MaintenanceService{DB: db}
	if a.designer.SecretKey == "" {
		log.Warn().Str("env", cfg.Designer.SecretKeyEnv).Msg("designer secret key not configured; opening the designer will fail")
	}
	return a, nil
}

func (a *app) server() *api.Server {
	s := api.NewServer(a.registry)
	s.Events = a.events
	s.Tickets = a.tickets
	s.Layout = a.layout
	s.Designer = a.designer
	s.Gatherer = a.registry
	s.Log = a.log
	return s
}

func (a *app) Close() {
	if a.designer != nil {
		a.designer.CloseAll()
	}
	if c, ok := a.store.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn().Err(err).Msg("close selection relay")
		}
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
