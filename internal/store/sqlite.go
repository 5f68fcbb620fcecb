package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/cookdex/cookdex/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS recipes (
	id              TEXT PRIMARY KEY,
	url             TEXT NOT NULL UNIQUE,
	host            TEXT NOT NULL,
	title           TEXT NOT NULL,
	total_time      TEXT NOT NULL,
	yields          TEXT NOT NULL,
	image           TEXT NOT NULL,
	ingredients     TEXT NOT NULL,
	instructions    TEXT NOT NULL,
	nutrients       TEXT NOT NULL,
	scraper_version TEXT NOT NULL DEFAULT '',
	status          INTEGER NOT NULL,
	last_fetched    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS fetch_runs (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	urls        INTEGER NOT NULL,
	report      TEXT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_recipes_status ON recipes(status);
CREATE INDEX IF NOT EXISTS idx_fetch_runs_started_at ON fetch_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const recipeColumns = `id, url, host, title, total_time, yields, image,
	ingredients, instructions, nutrients, scraper_version, status, last_fetched`

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get recipe %s", id)
	}
	return rec, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, rec *model.Record) error {
	ingredients, instructions, nutrients, err := marshalSequences(rec)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recipes (`+recipeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			host = excluded.host,
			title = excluded.title,
			total_time = excluded.total_time,
			yields = excluded.yields,
			image = excluded.image,
			ingredients = excluded.ingredients,
			instructions = excluded.instructions,
			nutrients = excluded.nutrients,
			scraper_version = excluded.scraper_version,
			status = excluded.status,
			last_fetched = excluded.last_fetched`,
		rec.ID, rec.URL, rec.Host, rec.Title, rec.TotalTime, rec.Yields, rec.Image,
		ingredients, instructions, nutrients, rec.ScraperVersion, int(rec.Status),
		rec.LastFetched.UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert recipe %s", rec.ID)
}

func (s *SQLiteStore) All(ctx context.Context) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recipeColumns+` FROM recipes`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list recipes")
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan recipe")
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list recipes iterate")
}

func (s *SQLiteStore) EraseAll(ctx context.Context) error {
	for _, stmt := range []string{`DELETE FROM recipes`, `DELETE FROM fetch_runs`} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "sqlite: erase all (%s)", stmt)
		}
	}
	return nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, mode string, urls int) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Mode:      mode,
		URLs:      urls,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fetch_runs (id, mode, urls, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Mode, run.URLs, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, report model.Report) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE fetch_runs SET report = ?, finished_at = ? WHERE id = ?`,
		string(reportJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, urls, report, started_at, finished_at
		 FROM fetch_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var reportJSON sql.NullString
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.Mode, &run.URLs, &reportJSON, &run.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if reportJSON.Valid {
			if err := json.Unmarshal([]byte(reportJSON.String), &run.Report); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal report")
			}
		}
		if finished.Valid {
			run.FinishedAt = finished.Time
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func marshalSequences(rec *model.Record) (ingredients, instructions, nutrients string, err error) {
	b, err := json.Marshal(rec.Ingredients)
	if err != nil {
		return "", "", "", eris.Wrap(err, "marshal ingredients")
	}
	ingredients = string(b)
	b, err = json.Marshal(rec.Instructions)
	if err != nil {
		return "", "", "", eris.Wrap(err, "marshal instructions")
	}
	instructions = string(b)
	b, err = json.Marshal(rec.Nutrients)
	if err != nil {
		return "", "", "", eris.Wrap(err, "marshal nutrients")
	}
	nutrients = string(b)
	return ingredients, instructions, nutrients, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*model.Record, error) {
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
