package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrForeignTicket is returned by Reorder when an id does not belong to the event.
var ErrForeignTicket = errors.New("ticket type does not belong to event")

// TicketRepo handles ticket types.
type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `id, event_id, name, description, price_cents, quantity, sales_end_at,
 requires_approval, sort_order, created_at, updated_at`

func (r *TicketRepo) Insert(ctx context.Context, t TicketType) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO ticket_types(
	 id, event_id, name, description, price_cents, quantity, sales_end_at, requires_approval, sort_order,
	 created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`,
		t.ID, t.EventID, t.Name, t.Description, t.PriceCents, t.Quantity, t.SalesEndAt, t.RequiresApproval, t.SortOrder)
	return err
}

func (r *TicketRepo) Update(ctx context.Context, t TicketType) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE ticket_types SET
	 name = ?, description = ?, price_cents = ?, quantity = ?, sales_end_at = ?, requires_approval = ?,
	 updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`,
		t.Name, t.Description, t.PriceCents, t.Quantity, t.SalesEndAt, t.RequiresApproval, t.ID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *TicketRepo) Get(ctx context.Context, id string) (*TicketType, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM ticket_types WHERE id = ?`, id)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TicketRepo) ListByEvent(ctx context.Context, eventID string) ([]TicketType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+ticketColumns+` FROM ticket_types WHERE event_id = ? ORDER BY sort_order, created_at`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TicketType
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// NextSortOrder returns the position after the event's last ticket type.
func (r *TicketRepo) NextSortOrder(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order) + 1, 0) FROM ticket_types WHERE event_id = ?`, eventID).Scan(&n)
	return n, err
}

func (r *TicketRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ticket_types WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// Reorder assigns sort_order by position in ids, atomically.
func (r *TicketRepo) Reorder(ctx context.Context, eventID string, ids []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for i, id := range ids {
		res, err := tx.ExecContext(ctx, `UPDATE ticket_types SET sort_order = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND event_id = ?`, i, id, eventID)
		if err == nil {
			err = expectOne(res)
		}
		if err != nil {
			_ = tx.Rollback()
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrForeignTicket, id)
			}
			return err
		}
	}
	return tx.Commit()
}

func scanTicket(row scanner) (TicketType, error) {
	var t TicketType
	var description sql.NullString
	var salesEnd sql.NullTime
	if err := row.Scan(&t.ID, &t.EventID, &t.Name, &description, &t.PriceCents, &t.Quantity, &salesEnd,
		&t.RequiresApproval, &t.SortOrder, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return TicketType{}, err
	}
	if description.Valid {
		t.Description = &description.String
	}
	if salesEnd.Valid {
		t.SalesEndAt = &salesEnd.Time
	}
	return t, nil
}
