package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/cookdex/cookdex/internal/fetch"
	"github.com/cookdex/cookdex/internal/pipeline"
	"github.com/cookdex/cookdex/internal/scrape"
	"github.com/cookdex/cookdex/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "cookdex.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// env bundles the store and pipeline a command operates on.
type env struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

func (e *env) Close() {
	_ = e.Store.Close()
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	client := scrape.NewHTTPClient(scrape.HTTPOptions{
		UserAgent:    cfg.Scrape.UserAgent,
		MaxRetries:   cfg.Scrape.MaxRetries,
		RatePerHost:  rate.Limit(cfg.Scrape.RatePerHost),
		RateBurst:    cfg.Scrape.RateBurst,
		MaxBodyBytes: cfg.Scrape.MaxBodyBytes,
	})
	scraper := scrape.NewSchemaOrg(client)

	sched := fetch.NewScheduler(scraper,
		cfg.Fetch.Connections,
		time.Duration(cfg.Fetch.TimeoutSecs)*time.Second,
	)

	p := pipeline.New(st, sched)
	p.IncludeIncomplete = cfg.Output.IncludeIncomplete

	return &env{Store: st, Pipeline: p}, nil
}
