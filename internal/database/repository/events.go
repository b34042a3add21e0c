package repository

import (
	"context"
	"database/sql"
	"errors"
)

// EventRepo handles events.
type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, owner_id, name, description, starts_at, ends_at, location, format, type,
 allow_access_after_end, is_private, pre_event_access_at, chart_key, created_at, updated_at`

func (r *EventRepo) Insert(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO events(
	 id, owner_id, name, description, starts_at, ends_at, location, format, type,
	 allow_access_after_end, is_private, pre_event_access_at, chart_key, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`,
		e.ID, e.OwnerID, e.Name, e.Description, e.StartsAt, e.EndsAt, e.Location, e.Format, e.Type,
		e.AllowAccessAfterEnd, e.IsPrivate, e.PreEventAccessAt, e.ChartKey)
	return err
}

// Update writes every mutable column. It reports sql.ErrNoRows when id is unknown.
func (r *EventRepo) Update(ctx context.Context, e Event) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE events SET
	 name = ?, description = ?, starts_at = ?, ends_at = ?, location = ?, format = ?, type = ?,
	 allow_access_after_end = ?, is_private = ?, pre_event_access_at = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`,
		e.Name, e.Description, e.StartsAt, e.EndsAt, e.Location, e.Format, e.Type,
		e.AllowAccessAfterEnd, e.IsPrivate, e.PreEventAccessAt, e.ID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *EventRepo) Get(ctx context.Context, id string) (*Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// ListByOwner returns the owner's events, soonest first.
func (r *EventRepo) ListByOwner(ctx context.Context, ownerID string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events WHERE owner_id = ? ORDER BY starts_at, name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EventRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// Delete removes the event and, by cascade, its ticket types.
func (r *EventRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// scanner handles both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row scanner) (Event, error) {
	var e Event
	var description, typ sql.NullString
	var ends, preAccess sql.NullTime
	if err := row.Scan(&e.ID, &e.OwnerID, &e.Name, &description, &e.StartsAt, &ends, &e.Location, &e.Format, &typ,
		&e.AllowAccessAfterEnd, &e.IsPrivate, &preAccess, &e.ChartKey, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Event{}, err
	}
	if description.Valid {
		e.Description = &description.String
	}
	if typ.Valid {
		e.Type = &typ.String
	}
	if ends.Valid {
		e.EndsAt = &ends.Time
	}
	if preAccess.Valid {
		e.PreEventAccessAt = &preAccess.Time
	}
	return e, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
