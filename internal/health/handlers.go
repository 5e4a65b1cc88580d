package health

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/kopi-pos/internal/common"
)

var draining atomic.Bool

// SetReady flips readiness. The API clears it when shutdown begins so the
// load balancer drains the instance before the listener closes.
func SetReady(v bool) { draining.Store(!v) }

// Checker checks the backing stores.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Deps checks the live Postgres pool and Redis client.
type Deps struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
}

func (d Deps) PingDB(ctx context.Context, timeout time.Duration) error {
	if d.DB == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.DB.Ping(ctx)
}

func (d Deps) PingRedis(ctx context.Context, timeout time.Duration) error {
	if d.Redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Redis.Ping(ctx).Err()
}

// Handler serves /health/live and /health/ready.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// Ready checks Postgres and Redis in parallel. Both are needed: orders live in
// Postgres, carts and checkout locks in Redis.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if draining.Load() || h.Checker == nil {
		common.JSON(w, http.StatusServiceUnavailable, readiness{Status: "draining"})
		return
	}

	var dbErr, redisErr error
	var g errgroup.Group
	g.Go(func() error { dbErr = h.Checker.PingDB(r.Context(), orDefault(h.DBTimeout, 500*time.Millisecond)); return nil })
	g.Go(func() error {
		redisErr = h.Checker.PingRedis(r.Context(), orDefault(h.RedisTimeout, 300*time.Millisecond))
		return nil
	})
	_ = g.Wait()

	out := readiness{Status: "ok", Checks: map[string]string{"db": checkResult(dbErr), "redis": checkResult(redisErr)}}
	status := http.StatusOK
	if dbErr != nil || redisErr != nil {
		out.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	common.JSON(w, status, out)
}

func checkResult(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
