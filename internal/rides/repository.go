package rides

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists rides.
type Repository interface {
	// Create stores a new ride and assigns its id.
	Create(ctx context.Context, ride Ride) (Ride, error)
	Get(ctx context.Context, id int64) (Ride, error)
	// ListByUser returns the rider's rides ordered by id.
	ListByUser(ctx context.Context, userID int64) ([]Ride, error)
	UpdateStatus(ctx context.Context, id int64, status Status, txHash string) (Ride, error)
}

// PostgresRepository stores rides in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed ride repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const rideColumns = `id, user_id, driver_id, pickup_location, destination, status, COALESCE(blockchain_tx, ''), fare::text, scheduled_at, created_at, updated_at`

// Create inserts a ride.
func (r *PostgresRepository) Create(ctx context.Context, ride Ride) (Ride, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO rides (user_id, driver_id, pickup_location, destination, status, blockchain_tx, fare, scheduled_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7::numeric, $8, $9, $10) RETURNING id`,
		ride.UserID, ride.DriverID, ride.PickupLocation, ride.Destination, string(ride.Status), ride.BlockchainTx,
		ride.Fare.StringFixed(2), ride.ScheduledAt, ride.CreatedAt.UTC(), ride.UpdatedAt.UTC())
	if err := row.Scan(&ride.ID); err != nil {
		return Ride{}, err
	}
	return ride, nil
}

// Get fetches a ride by id.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (Ride, error) {
	return scanRide(r.db.QueryRow(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, id))
}

// ListByUser lists a rider's rides.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]Ride, error) {
	rows, err := r.db.Query(ctx, `SELECT `+rideColumns+` FROM rides WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ride)
	}
	return out, rows.Err()
}

// UpdateStatus sets the status and, when txHash is non-empty, the tx hash.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int64, status Status, txHash string) (Ride, error) {
	return scanRide(r.db.QueryRow(ctx, `UPDATE rides
        SET status = $1, blockchain_tx = COALESCE(NULLIF($2, ''), blockchain_tx), updated_at = $3
        WHERE id = $4 RETURNING `+rideColumns,
		string(status), txHash, time.Now().UTC(), id))
}

func scanRide(row pgx.Row) (Ride, error) {
	var (
		ride   Ride
		status string
		fare   string
	)
	if err := row.Scan(&ride.ID, &ride.UserID, &ride.DriverID, &ride.PickupLocation, &ride.Destination, &status,
		&ride.BlockchainTx, &fare, &ride.ScheduledAt, &ride.CreatedAt, &ride.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ride{}, ErrRideNotFound
		}
		return Ride{}, err
	}
	amount, err := decimal.NewFromString(fare)
	if err != nil {
		return Ride{}, err
	}
	ride.Fare = amount
	ride.Status = Status(status)
	return ride, nil
}
