package infra

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Resources are the optional backing services. A nil field means the
// service is not configured and in-memory fallbacks are used.
type Resources struct {
	DB    *pgxpool.Pool
	Cache *redis.Client
	MQ    *RabbitMQ
}

// Endpoints lists the connection URLs. Empty URLs are skipped.
type Endpoints struct {
	AppName     string
	DatabaseURL string
	RedisURL    string
	AMQPURL     string
	Exchanges   []string
}

// Open connects every configured backing service and applies migrations.
// On failure anything already opened is closed.
func Open(ctx context.Context, ep Endpoints, logger *slog.Logger) (*Resources, error) {
	res := &Resources{}
	if ep.DatabaseURL != "" {
		db, err := NewPostgresPool(ctx, ep.DatabaseURL, ep.AppName)
		if err != nil {
			return nil, err
		}
		res.DB = db
		if err := Migrate(ctx, db, logger); err != nil {
			res.Close()
			return nil, err
		}
	}
	if ep.RedisURL != "" {
		cache, err := NewRedisClient(ctx, ep.RedisURL)
		if err != nil {
			res.Close()
			return nil, err
		}
		res.Cache = cache
	}
	if ep.AMQPURL != "" {
		mq, err := NewRabbitMQ(ctx, ep.AMQPURL, logger, ep.Exchanges...)
		if err != nil {
			res.Close()
			return nil, err
		}
		res.MQ = mq
	}
	return res, nil
}

// Close releases every open connection.
func (r *Resources) Close() error {
	var errs []error
	if r.MQ != nil {
		errs = append(errs, r.MQ.Close())
	}
	if r.Cache != nil {
		errs = append(errs, r.Cache.Close())
	}
	if r.DB != nil {
		r.DB.Close()
	}
	return errors.Join(errs...)
}
