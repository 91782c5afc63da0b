package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/scheduler"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/secrets"
	"jobscout-engine/internal/store"
)

func main() {
	var (
		cfgPath   = flag.String("config", "scraper.yml", "run file (YAML)")
		envPath   = flag.String("env", ".env", "optional dotenv file")
		debug     = flag.Bool("debug", false, "development logging")
		initCfg   = flag.Bool("init", false, "write a starter run file and exit")
		list      = flag.String("list", "", "print stored jobs for a window (24h, 7d, all) and exit")
		setPw     = flag.Bool("proxy-password-stdin", false, "read the proxy password from stdin into the keychain and exit")
		delPw     = flag.Bool("proxy-password-delete", false, "remove the proxy password from the keychain and exit")
		lastRun   = flag.Bool("last-run", false, "print the most recent run summary and exit")
		scheduled = flag.Bool("cron", false, "keep running on schedule.cron instead of a single run")
	)
	flag.Parse()

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *initCfg {
		created, err := config.EnsureConfig(*cfgPath)
		if err != nil {
			logger.Fatal("config bootstrap failed", zap.String("path", *cfgPath), zap.Error(err))
		}
		if created {
			logger.Info("wrote starter run file", zap.String("path", *cfgPath))
		} else {
			logger.Info("run file already exists", zap.String("path", *cfgPath))
		}
		return
	}

	if err := config.LoadDotEnv(*envPath); err != nil {
		logger.Fatal("dotenv load failed", zap.String("path", *envPath), zap.Error(err))
	}
	raw, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("config load failed", zap.String("path", *cfgPath), zap.Error(err))
	}
	config.OverlayEnv(&raw)
	cfg, v := config.NormalizeAndValidate(raw)
	for _, w := range v.Warnings {
		logger.Warn("config", zap.String("warning", w))
	}
	if err := v.Err(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *setPw:
		if err := storeProxyPassword(cfg); err != nil {
			logger.Fatal("storing proxy password failed", zap.Error(err))
		}
		logger.Info("proxy password saved to keychain")
		return
	case *delPw:
		acct := secrets.ProxyKeyringAccount(cfg.Proxy.KeyringAccount, cfg.Proxy.Username, cfg.Proxy.URL)
		if err := secrets.DeleteProxyPassword(acct); err != nil {
			logger.Fatal("removing proxy password failed", zap.String("account", acct), zap.Error(err))
		}
		logger.Info("proxy password removed from keychain", zap.String("account", acct))
		return
	case *lastRun:
		if err := printLastRun(ctx, cfg, os.Stdout); err != nil {
			logger.Fatal("reading last run failed", zap.Error(err))
		}
		return
	case *list != "":
		if err := listStored(ctx, cfg, *list); err != nil {
			logger.Fatal("listing stored jobs failed", zap.Error(err))
		}
		return
	}

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer app.Close()

	if !*scheduled {
		if err := app.RunOnce(ctx); err != nil {
			logger.Error("run failed", zap.Error(err))
			app.Close()
			os.Exit(1)
		}
		return
	}

	if strings.TrimSpace(cfg.Schedule.Cron) == "" {
		logger.Fatal("-cron needs schedule.cron in the run file")
	}
	sched, err := scheduler.New(cfg.Schedule.Cron, "linkedin-scrape", logger)
	if err != nil {
		logger.Fatal("scheduler", zap.Error(err))
	}
	if err := sched.Run(ctx, cfg.Schedule.RunOnStart, app.RunOnce); err != nil {
		logger.Fatal("scheduler stopped", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func storeProxyPassword(cfg config.Config) error {
	if cfg.Proxy.URL == "" {
		return fmt.Errorf("proxy.url is not set")
	}
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return err
		}
		return fmt.Errorf("no password on stdin")
	}
	acct := secrets.ProxyKeyringAccount(cfg.Proxy.KeyringAccount, cfg.Proxy.Username, cfg.Proxy.URL)
	return secrets.SetProxyPassword(acct, strings.TrimRight(sc.Text(), "\r\n"))
}

func openDataset(cfg config.Config) (*store.DB, error) {
	if cfg.Store.SQLitePath == "" {
		return nil, fmt.Errorf("store.sqlite_path is not set")
	}
	db, err := store.Open(cfg.Store.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db.Pool); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func printLastRun(ctx context.Context, cfg config.Config, w io.Writer) error {
	db, err := openDataset(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sum, added, ok, err := store.LastRun(ctx, db.Pool)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no runs recorded in %s", cfg.Store.SQLitePath)
	}
	return writeJSON(w, struct {
		types.Summary
		Added int `json:"added"`
	}{sum, added})
}

func listStored(ctx context.Context, cfg config.Config, window string) error {
	db, err := openDataset(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	jobs, err := store.ListJobs(ctx, db.Pool, store.ListJobsOpts{Window: window, Limit: 500})
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, jobs)
}
