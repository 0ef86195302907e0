package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NordCoder/Watchtower/internal/domain/watch"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PGConfig struct {
	URL               string        `mapstructure:"dsn"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout"`
}

type PGStore struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
	log          *zap.Logger
}

var _ watch.SnapshotStore = (*PGStore)(nil)

func NewPostgres(ctx context.Context, cfg PGConfig, log *zap.Logger) (*PGStore, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pcfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		pcfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(hctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if log == nil {
		log = zap.L()
	}
	return &PGStore{
		pool:         pool,
		queryTimeout: cfg.QueryTimeout,
		log:          log.With(zap.String("component", "snapshot.postgres")),
	}, nil
}

func (s *PGStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

const (
	qLoad = `SELECT record FROM watches ORDER BY seq;`

	qClear = `DELETE FROM watches;`

	qInsert = `INSERT INTO watches (id, seq, record) VALUES ($1, $2, $3);`
)

func (s *PGStore) Load(ctx context.Context) ([]watch.Watch, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, qLoad)
	if err != nil {
		return nil, fmt.Errorf("query watches: %w", err)
	}
	defer rows.Close()

	var out []watch.Watch
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan watch: %w", err)
		}
		var w watch.Watch
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", watch.ErrCorruptSnapshot, err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.log.Info("snapshot loaded", zap.Int("watches", len(out)))
	return out, nil
}

// Save replaces the stored set wholesale inside one transaction; the table
// always reflects a complete snapshot, never a partial write.
func (s *PGStore) Save(ctx context.Context, watches []watch.Watch) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, qClear); err != nil {
		return fmt.Errorf("clear watches: %w", err)
	}

	batch := &pgx.Batch{}
	for _, w := range watches {
		raw, err := json.Marshal(w)
		if err != nil {
			return fmt.Errorf("marshal watch %s: %w", w.ID, err)
		}
		batch.Queue(qInsert, w.ID, int64(w.Seq), raw)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert watches: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PGStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
