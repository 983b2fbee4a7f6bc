package chain

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists verification log entries. The tx hash is the unique
// key used to apply later status transitions.
type Repository interface {
	Create(ctx context.Context, entry LogEntry) (LogEntry, error)
	GetByTxHash(ctx context.Context, txHash string) (LogEntry, error)
	// List returns all entries, newest first.
	List(ctx context.Context) ([]LogEntry, error)
	UpdateStatus(ctx context.Context, txHash string, update Update) (LogEntry, error)
}

// PostgresRepository stores log entries in the verification_logs table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const logColumns = `id, entity_type, entity_id, tx_hash, status, block_number, gas_used, created_at, verified_at`

// Create inserts a log entry and returns it with its assigned id.
func (r *PostgresRepository) Create(ctx context.Context, entry LogEntry) (LogEntry, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO verification_logs (entity_type, entity_id, tx_hash, status, block_number, gas_used, created_at, verified_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		string(entry.EntityType), entry.EntityID, entry.TxHash, string(entry.Status), entry.BlockNumber, entry.GasUsed, entry.CreatedAt.UTC(), entry.VerifiedAt)
	if err := row.Scan(&entry.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return LogEntry{}, ErrDuplicateTxHash
		}
		return LogEntry{}, err
	}
	return entry, nil
}

// GetByTxHash fetches the entry for a tx hash.
func (r *PostgresRepository) GetByTxHash(ctx context.Context, txHash string) (LogEntry, error) {
	return scanEntry(r.db.QueryRow(ctx, `SELECT `+logColumns+` FROM verification_logs WHERE tx_hash = $1`, txHash))
}

// List returns every entry ordered newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]LogEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+logColumns+` FROM verification_logs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// UpdateStatus settles the pending entry matching txHash. Settled entries
// are never rewritten.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, txHash string, update Update) (LogEntry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `UPDATE verification_logs
        SET status = $1, block_number = $2, gas_used = $3, verified_at = $4
        WHERE tx_hash = $5 AND status = $6 RETURNING `+logColumns,
		string(update.Status), update.BlockNumber, update.GasUsed, update.VerifiedAt.UTC(), txHash, string(StatusPending)))
	if !errors.Is(err, ErrLogNotFound) {
		return entry, err
	}
	current, err := r.GetByTxHash(ctx, txHash)
	if err != nil {
		return LogEntry{}, err
	}
	return current, ErrAlreadySettled
}

func scanEntry(row pgx.Row) (LogEntry, error) {
	var (
		entry      LogEntry
		entityType string
		status     string
	)
	if err := row.Scan(&entry.ID, &entityType, &entry.EntityID, &entry.TxHash, &status, &entry.BlockNumber, &entry.GasUsed, &entry.CreatedAt, &entry.VerifiedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LogEntry{}, ErrLogNotFound
		}
		return LogEntry{}, err
	}
	entry.EntityType = EntityType(entityType)
	entry.Status = Status(status)
	entry.CreatedAt = entry.CreatedAt.UTC()
	return entry, nil
}
