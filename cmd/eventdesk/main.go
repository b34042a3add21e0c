package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jask/eventdesk/internal/config"
	"github.com/jask/eventdesk/internal/database"
	"github.com/jask/eventdesk/internal/database/repository"
	"github.com/jask/eventdesk/internal/llm"
	"github.com/jask/eventdesk/internal/logging"
	"github.com/jask/eventdesk/internal/secrets"
	"github.com/jask/eventdesk/internal/testdata"
	"github.com/jask/eventdesk/internal/tui"
)

const (
	Version = "0.1.0"
	appName = "eventdesk"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Event management dashboard with a seating designer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				return os.Setenv("EVENTDESK_CONFIG", configPath)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (TOML)")

	cmd.AddCommand(serveCmd(), tuiCmd(), suggestCmd(), secretCmd(), migrateCmd(), seedCmd(), resetCmd(), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})
	return cmd
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// withApp loads config, builds the logger and the app, and runs fn.
func withApp(ctx context.Context, quietLogs bool, fn func(*app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := zerolog.Nop()
	var closer io.Closer
	if !quietLogs || strings.EqualFold(cfg.Log.Output, "file") {
		log, closer, err = logging.New(cfg.Log)
		if err != nil {
			return err
		}
		defer closer.Close()
	}
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, false, func(a *app) error {
				if addr == "" {
					addr = a.cfg.Server.Addr
				}
				srv := &http.Server{
					Addr:              addr,
					Handler:           a.server().Handler(),
					ReadHeaderTimeout: 10 * time.Second,
				}
				errc := make(chan error, 1)
				go func() { errc <- srv.ListenAndServe() }()
				a.log.Info().Str("addr", addr).Str("version", Version).Msg("eventdesk ready")

				select {
				case err := <-errc:
					return err
				case <-ctx.Done():
				}
				a.log.Info().Msg("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, true, func(a *app) error {
				p := tea.NewProgram(tui.New(ctx, a.cfg, tui.Services{
					Events:      a.events,
					Tickets:     a.tickets,
					Designer:    a.designer,
					Maintenance: a.maint,
				}, a.loc), tea.WithAltScreen(), tea.WithContext(ctx))
				_, err := p.Run()
				return err
			})
		},
	}
}

func suggestCmd() *cobra.Command {
	var req llm.LayoutRequest
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest a seating layout and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), false, func(a *app) error {
				resp, err := a.layout.Suggest(cmd.Context(), req)
				if err != nil {
					return err
				}
				out, err := sonic.ConfigStd.MarshalIndent(resp, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return err
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.VenueData, "venue", "", "Venue dimensions and features")
	f.StringVar(&req.AudienceData, "audience", "", "Expected audience")
	f.StringVar(&req.SeatingType, "seating", "theater", "conference, theater, classroom or banquet")
	f.StringVar(&req.SeatConstraints, "constraints", "", "Seat constraints")
	f.StringVar(&req.SafetyRequirements, "safety", "", "Safety requirements")
	return cmd
}

func secretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage stored credentials (designer, openai)",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <name> [value]",
		Short: "Store a credential; reads it from stdin when value is omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := secrets.Default()
			if err != nil {
				return err
			}
			value := ""
			if len(args) == 2 {
				value = args[1]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				value = line
			}
			value = strings.TrimSpace(value)
			if value == "" {
				return fmt.Errorf("empty value for %s", args[0])
			}
			if err := store.Set(args[0], value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", args[0])
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := secrets.Default()
			if err != nil {
				return err
			}
			return store.Delete(args[0])
		},
	})
	return cmd
}

func migrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or with --down, roll back) database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if down {
				return database.MigrateDown(cfg.Database.Path)
			}
			return database.RunMigrations(cfg.Database.Path)
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "Roll back every migration")
	return cmd
}

func seedCmd() *cobra.Command {
	var (
		demo int
		seed uint64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the default demo events, plus --demo generated ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), false, func(a *app) error {
				ctx := cmd.Context()
				if err := database.SeedDefaults(ctx, a.db, a.cfg.UI.Owner); err != nil {
					return err
				}
				if demo <= 0 {
					return nil
				}
				if seed == 0 {
					seed = uint64(time.Now().UnixNano())
				}
				events, err := testdata.Generate(ctx, testdata.Repos{
					Events:  repository.NewEventRepo(a.db),
					Tickets: repository.NewTicketRepo(a.db),
				}, a.cfg.UI.Owner, demo, seed)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "generated %d events for %s\n", len(events), a.cfg.UI.Owner)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&demo, "demo", 0, "Number of random events to generate")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (default: time based)")
	return cmd
}

func resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every event and ticket type",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset deletes all data; pass --yes to confirm")
			}
			return withApp(cmd.Context(), false, func(a *app) error {
				return a.maint.Reset(cmd.Context())
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}
