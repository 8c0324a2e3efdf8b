package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/wangchlxt/Swarm-sub001/internal/app"
	"github.com/wangchlxt/Swarm-sub001/internal/build"
	"github.com/wangchlxt/Swarm-sub001/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("find home directory: %w", err)
	}
	defaultDataDir := filepath.Join(home, ".swarm")

	var (
		dataDir    = flag.String("datadir", defaultDataDir, "Directory for the database and logs")
		configPath = flag.String("config", "", "TOML config file (default: <datadir>/swarmd.toml)")
		dbPath     = flag.String("db", "", "Path to SQLite database (overrides config)")
		logLevel   = flag.String("loglevel", "", "Log level, or TAG=level pairs (overrides config)")
		dirPath    = flag.String("directory", "", "YAML directory of users, groups and projects (overrides config)")
		fixtures   = flag.String("fixtures", "", "YAML change fixtures for the in-memory version store (overrides config)")
		workers    = flag.Int("workers", 0, "Number of task workers (overrides config)")
	)
	flag.Parse()

	path := *configPath
	if path == "" {
		path = filepath.Join(*dataDir, "swarmd.toml")
	}

	cfg, err := config.Load(path, config.Default(*dataDir))
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *dirPath != "" {
		cfg.Directory.Path = *dirPath
	}
	if *fixtures != "" {
		cfg.Versions.Fixtures = *fixtures
	}
	if *workers > 0 {
		cfg.Worker.Count = *workers
	}

	logFile := build.NewRotatingLogWriter()
	err = logFile.Init(build.LogRotatorConfig{
		LogDir:         cfg.Log.Dir,
		MaxLogFiles:    cfg.Log.MaxFiles,
		MaxLogFileSize: cfg.Log.MaxSizeMB,
	})
	if err != nil {
		return err
	}
	defer logFile.Close()

	loggers := build.NewSubLoggers(os.Stdout, logFile)
	app.UseLoggers(loggers)
	log := loggers.Logger("SWRD")
	if err := loggers.SetLevels(cfg.Log.Level); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer cancel()

	a, err := app.New(ctx, cfg, app.Deps{})
	if err != nil {
		return err
	}
	defer a.Close()

	log.InfoS(ctx, "swarmd started", "db", cfg.Database.Path,
		"workers", cfg.Worker.Count, "lock", cfg.Lock.Backend,
		"directory", cfg.Directory.Path)

	if err := a.Run(ctx); err != nil {
		return err
	}

	log.InfoS(ctx, "swarmd stopped")

	return nil
}
