package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/eventdesk/internal/database"
)

// MaintenanceService houses destructive actions surfaced through the CLI and TUI.
type MaintenanceService struct {
	DB *sql.DB
}

// Reset wipes every event and ticket type. The schema stays so the app can keep running.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, t := range []string{"ticket_types", "events"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	return nil
}
