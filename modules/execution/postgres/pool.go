package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// NewPool parses dsn, connects, and pings.
func NewPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// poolCollectors exposes pgx pool statistics as Prometheus gauges.
func poolCollectors(pool *pgxpool.Pool) []prometheus.Collector {
	gauge := func(name, help string, fn func(*pgxpool.Stat) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: name,
			Help: help,
		}, func() float64 {
			return fn(pool.Stat())
		})
	}
	return []prometheus.Collector{
		gauge("riddhi_pgxpool_acquired_conns", "Number of currently acquired connections in the pool",
			func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
		gauge("riddhi_pgxpool_idle_conns", "Number of idle connections in the pool",
			func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
		gauge("riddhi_pgxpool_total_conns", "Total number of connections in the pool",
			func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
		gauge("riddhi_pgxpool_max_conns", "Maximum number of connections in the pool",
			func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
	}
}
