package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/cookdex/cookdex/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// for unit testing.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool, for shared caches.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS recipes (
	id              TEXT PRIMARY KEY,
	url             TEXT NOT NULL UNIQUE,
	host            TEXT NOT NULL,
	title           TEXT NOT NULL,
	total_time      TEXT NOT NULL,
	yields          TEXT NOT NULL,
	image           TEXT NOT NULL,
	ingredients     JSONB NOT NULL,
	instructions    JSONB NOT NULL,
	nutrients       JSONB NOT NULL,
	scraper_version TEXT NOT NULL DEFAULT '',
	status          INTEGER NOT NULL,
	last_fetched    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS fetch_runs (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	urls        INTEGER NOT NULL,
	report      JSONB,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_recipes_status ON recipes(status);
CREATE INDEX IF NOT EXISTS idx_fetch_runs_started_at ON fetch_runs(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgRecipeColumns = `id, url, host, title, total_time, yields, image,
	ingredients, instructions, nutrients, scraper_version, status, last_fetched`

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgRecipeColumns+` FROM recipes WHERE id = $1`, id)
	rec, err := scanPgRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get recipe %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, rec *model.Record) error {
	ingredients, instructions, nutrients, err := marshalSequences(rec)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO recipes (`+pgRecipeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			url = EXCLUDED.url,
			host = EXCLUDED.host,
			title = EXCLUDED.title,
			total_time = EXCLUDED.total_time,
			yields = EXCLUDED.yields,
			image = EXCLUDED.image,
			ingredients = EXCLUDED.ingredients,
			instructions = EXCLUDED.instructions,
			nutrients = EXCLUDED.nutrients,
			scraper_version = EXCLUDED.scraper_version,
			status = EXCLUDED.status,
			last_fetched = EXCLUDED.last_fetched`,
		rec.ID, rec.URL, rec.Host, rec.Title, rec.TotalTime, rec.Yields, rec.Image,
		ingredients, instructions, nutrients, rec.ScraperVersion, int(rec.Status),
		rec.LastFetched.UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert recipe %s", rec.ID)
}

func (s *PostgresStore) All(ctx context.Context) ([]model.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pgRecipeColumns+` FROM recipes`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list recipes")
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		rec, err := scanPgRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan recipe")
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list recipes iterate")
}

func (s *PostgresStore) EraseAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE recipes, fetch_runs`); err != nil {
		return eris.Wrap(err, "postgres: erase all")
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, mode string, urls int) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Mode:      mode,
		URLs:      urls,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fetch_runs (id, mode, urls, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.Mode, run.URLs, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, report model.Report) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE fetch_runs SET report = $1, finished_at = $2 WHERE id = $3`,
		string(reportJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, mode, urls, report, started_at, finished_at
		 FROM fetch_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var reportJSON *string
		var finished *time.Time
		if err := rows.Scan(&run.ID, &run.Mode, &run.URLs, &reportJSON, &run.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if reportJSON != nil {
			if err := json.Unmarshal([]byte(*reportJSON), &run.Report); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal report")
			}
		}
		if finished != nil {
			run.FinishedAt = *finished
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRecord(row pgx.Row) (*model.Record, error) {
	var rec model.Record
	var ingredients, instructions, nutrients string
	var status int

	err := row.Scan(&rec.ID, &rec.URL, &rec.Host, &rec.Title, &rec.TotalTime,
		&rec.Yields, &rec.Image, &ingredients, &instructions, &nutrients,
		&rec.ScraperVersion, &status, &rec.LastFetched)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(ingredients), &rec.Ingredients); err != nil {
		return nil, eris.Wrap(err, "unmarshal ingredients")
	}
	if err := json.Unmarshal([]byte(instructions), &rec.Instructions); err != nil {
		return nil, eris.Wrap(err, "unmarshal instructions")
	}
	if err := json.Unmarshal([]byte(nutrients), &rec.Nutrients); err != nil {
		return nil, eris.Wrap(err, "unmarshal nutrients")
	}
	rec.Status = model.Status(status)
	return &rec, nil
}
