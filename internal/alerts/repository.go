package alerts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists alerts.
type Repository interface {
	Create(ctx context.Context, alert Alert) (Alert, error)
	Get(ctx context.Context, id int64) (Alert, error)
	// ListByUser returns the rider's alerts ordered by id.
	ListByUser(ctx context.Context, userID int64) ([]Alert, error)
}

// PostgresRepository stores alerts in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed alert repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const alertColumns = `id, user_id, ride_id, alert_type, occurred_at, location_lat, location_lng, COALESCE(location_address, ''), tx_hash, created_at`

// Create inserts an alert.
func (r *PostgresRepository) Create(ctx context.Context, alert Alert) (Alert, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO alerts (user_id, ride_id, alert_type, occurred_at, location_lat, location_lng, location_address, tx_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9) RETURNING id`,
		alert.UserID, alert.RideID, alert.Type, alert.Timestamp.UTC(), alert.Location.Lat, alert.Location.Lng,
		alert.Location.Address, alert.TxHash, alert.CreatedAt.UTC())
	if err := row.Scan(&alert.ID); err != nil {
		return Alert{}, err
	}
	return alert, nil
}

// Get fetches an alert by id.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (Alert, error) {
	return scanAlert(r.db.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
}

// ListByUser lists a rider's alerts.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]Alert, error) {
	rows, err := r.db.Query(ctx, `SELECT `+alertColumns+` FROM alerts WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, alert)
	}
	return out, rows.Err()
}

func scanAlert(row pgx.Row) (Alert, error) {
	var a Alert
	if err := row.Scan(&a.ID, &a.UserID, &a.RideID, &a.Type, &a.Timestamp, &a.Location.Lat, &a.Location.Lng,
		&a.Location.Address, &a.TxHash, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Alert{}, ErrAlertNotFound
		}
		return Alert{}, err
	}
	return a, nil
}
