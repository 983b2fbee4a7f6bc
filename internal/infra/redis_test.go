package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/trust-ride/trust_ride/internal/logging"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if _, err := NewRedisClient(ctx, ""); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewRedisClient(ctx, "://bad"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}

func TestOpenWithRedisOnly(t *testing.T) {
	mr := miniredis.RunT(t)
	res, err := Open(context.Background(), Endpoints{RedisURL: "redis://" + mr.Addr()}, logging.Discard())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if res.DB != nil || res.MQ != nil || res.Cache == nil {
		t.Fatalf("unexpected resources %+v", res)
	}
	if err := res.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
