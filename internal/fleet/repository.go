package fleet

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads drivers. Drivers are provisioned by migrations.
type Repository interface {
	// VerifiedDrivers returns drivers verified on chain, ordered by id.
	VerifiedDrivers(ctx context.Context) ([]Driver, error)
	Get(ctx context.Context, id int64) (Driver, error)
}

// PostgresRepository reads drivers from PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed driver repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const driverColumns = `id, name, license_number, rating, verified_on_chain, COALESCE(blockchain_tx, ''), created_at, updated_at`

// VerifiedDrivers lists verified drivers by id.
func (r *PostgresRepository) VerifiedDrivers(ctx context.Context) ([]Driver, error) {
	rows, err := r.db.Query(ctx, `SELECT `+driverColumns+` FROM drivers WHERE verified_on_chain ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}

// Get fetches a driver by id.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (Driver, error) {
	return scanDriver(r.db.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id))
}

func scanDriver(row pgx.Row) (Driver, error) {
	var d Driver
	if err := row.Scan(&d.ID, &d.Name, &d.LicenseNumber, &d.Rating, &d.VerifiedOnChain, &d.BlockchainTx, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Driver{}, ErrDriverNotFound
		}
		return Driver{}, err
	}
	return d, nil
}
