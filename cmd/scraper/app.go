package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"jobscout-engine/internal/cache"
	"jobscout-engine/internal/config"
	"jobscout-engine/internal/messaging"
	"jobscout-engine/internal/scrape"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
	"jobscout-engine/internal/secrets"
	"jobscout-engine/internal/store"
	"jobscout-engine/internal/transport"
)

// app holds everything that lives across scheduled runs. The governor is
// shared so back-to-back runs keep the spacing too.
type app struct {
	cfg    config.Config
	log    *zap.Logger
	runner *scrape.Runner

	db     *store.DB
	pg     *pgxpool.Pool
	pgSink *store.PostgresSink
	pub    *messaging.Publisher
	cache  *cache.DetailCache
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	tcfg := transport.Config{
		Timeout:       cfg.Scraper.RequestTimeout,
		ProxyURL:      cfg.Proxy.URL,
		ProxyUsername: cfg.Proxy.Username,
	}
	if cfg.Proxy.URL != "" && cfg.Proxy.Username != "" {
		acct := secrets.ProxyKeyringAccount(cfg.Proxy.KeyringAccount, cfg.Proxy.Username, cfg.Proxy.URL)
		pw, err := secrets.GetProxyPassword(acct)
		if err != nil {
			return nil, fmt.Errorf("proxy %s: %w", acct, err)
		}
		tcfg.ProxyPassword = pw
	}
	tr, err := transport.New(tcfg, logger)
	if err != nil {
		return nil, err
	}

	ropts := []scrape.RunnerOption{
		scrape.WithBaseURL(cfg.Scraper.BaseURL),
		scrape.WithRetryPolicy(scrape.RetryPolicy{
			MaxAttempts: cfg.Scraper.MaxAttempts,
			BaseDelay:   cfg.Scraper.RetryBaseDelay,
			MaxDelay:    8 * cfg.Scraper.RetryBaseDelay,
		}),
	}

	if cfg.Cache.RedisURL != "" {
		c, err := cache.New(cfg.Cache.RedisURL, cfg.Cache.TTL, logger)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.cache = c
		if err := c.Ping(ctx); err != nil {
			logger.Warn("detail cache unreachable; every detail page will be fetched", zap.Error(err))
		}
		ropts = append(ropts, scrape.WithDetailCache(c))
	}

	if cfg.Store.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0o755); err != nil {
			return nil, err
		}
		db, err := store.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.db = db
		if err := store.Migrate(db.Pool); err != nil {
			return nil, fmt.Errorf("migrate %s: %w", cfg.Store.SQLitePath, err)
		}
	}

	if cfg.Store.PostgresURL != "" {
		pool, err := store.NewPostgresPool(ctx, cfg.Store.PostgresURL)
		if err != nil {
			return nil, err
		}
		a.pg = pool
		if a.pgSink, err = store.NewPostgresSink(ctx, pool, logger); err != nil {
			return nil, err
		}
	}

	if cfg.NATS.URL != "" {
		if a.pub, err = messaging.NewPublisher(cfg.NATS.URL, cfg.NATS.Subject, cfg.Scraper.RequestTimeout, logger); err != nil {
			return nil, err
		}
	}

	a.runner = scrape.NewRunner(tr, util.NewGovernor(cfg.Scraper.RequestInterval), logger, ropts...)
	ok = true
	return a, nil
}

// RunOnce performs one scrape with the configured input, fans records out to
// every configured sink and writes the result document.
func (a *app) RunOnce(ctx context.Context) error {
	in := a.cfg.Input
	fs, err := in.Filters()
	if err != nil {
		return err
	}
	opt := scrape.Options{
		MaxResults:    in.Limit(),
		FetchDetails:  in.FetchDetails(),
		TierCap:       a.cfg.Scraper.TierCap,
		DetailWorkers: a.cfg.Scraper.DetailWorkers,
	}

	var sinks []types.Sink
	var sqliteSink *store.Sink
	if a.db != nil {
		sqliteSink = store.NewSink(a.db, a.log)
		sinks = append(sinks, sqliteSink)
	}
	if a.pgSink != nil {
		sinks = append(sinks, a.pgSink)
	}
	if a.pub != nil {
		sinks = append(sinks, a.pub)
	}

	res, runErr := a.runner.Collect(ctx, fs, opt, sinks...)

	if a.db != nil {
		// ctx may already be cancelled; the run record is still worth keeping
		bg := context.WithoutCancel(ctx)
		if err := store.SaveRun(bg, a.db.Pool, res.Summary, sqliteSink.Added()); err != nil {
			a.log.Error("saving run summary failed", zap.Error(err))
		}
		if a.cfg.Store.Retention > 0 {
			n, err := store.CleanupOldJobs(bg, a.db.Pool, a.cfg.Store.Retention)
			if err != nil {
				a.log.Warn("retention cleanup failed", zap.Error(err))
			} else if n > 0 {
				a.log.Info("removed expired jobs", zap.Int64("count", n))
			}
		}
	}

	if err := a.writeResult(res); err != nil {
		a.log.Error("writing result failed", zap.String("path", a.cfg.Output.Path), zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func (a *app) writeResult(res scrape.Result) error {
	path := a.cfg.Output.Path
	if path == "" || path == "-" {
		return writeJSON(os.Stdout, res)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := writeJSON(f, res); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (a *app) Close() {
	if a.pub != nil {
		a.pub.Close()
		a.pub = nil
	}
	if a.pg != nil {
		a.pg.Close()
		a.pg = nil
	}
	if a.cache != nil {
		_ = a.cache.Close()
		a.cache = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("closing dataset failed", zap.Error(err))
		}
		a.db = nil
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
