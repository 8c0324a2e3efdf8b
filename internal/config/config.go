// Package config loads the daemon configuration from a TOML file layered
// over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration written as "30s" or "1h30m" in the file.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// Lock backends.
const (
	LockMemory = "memory"
	LockSQLite = "sqlite"
)

type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Log       LogConfig       `toml:"log"`
	Worker    WorkerConfig    `toml:"worker"`
	Queue     QueueConfig     `toml:"queue"`
	Review    ReviewConfig    `toml:"review"`
	Import    ImportConfig    `toml:"import"`
	Lock      LockConfig      `toml:"lock"`
	Mail      MailConfig      `toml:"mail"`
	Webhook   WebhookConfig   `toml:"webhook"`
	Directory DirectoryConfig `toml:"directory"`
	Versions  VersionsConfig  `toml:"versions"`
	Activity  ActivityConfig  `toml:"activity"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Dir string `toml:"dir"`

	// Level is a single level or TAG=level pairs.
	Level     string `toml:"level"`
	MaxFiles  int    `toml:"max_files"`
	MaxSizeMB int    `toml:"max_size_mb"`
}

type WorkerConfig struct {
	Count         int      `toml:"count"`
	PollInterval  Duration `toml:"poll_interval"`
	BatchSize     int      `toml:"batch_size"`
	PurgeInterval Duration `toml:"purge_interval"`
}

type QueueConfig struct {
	MaxPending         int      `toml:"max_pending"`
	TTL                Duration `toml:"ttl"`
	MaxAttempts        int      `toml:"max_attempts"`
	DeliveredRetention Duration `toml:"delivered_retention"`
}

type ReviewConfig struct {
	DisableCommit        bool     `toml:"disable_commit"`
	DisableSelfApprove   bool     `toml:"disable_self_approve"`
	AllowAuthorChange    bool     `toml:"allow_author_change"`
	MaxFiles             int      `toml:"max_files"`
	DescriptionSyncDelay Duration `toml:"description_sync_delay"`
}

type ImportConfig struct {
	// User is the service account whose changes are delayed.
	User  string   `toml:"user"`
	Delay Duration `toml:"delay"`
}

type LockConfig struct {
	// Backend is sqlite or memory. Memory locks only exclude callers in
	// one process, so the CLI and daemon must share sqlite locks.
	Backend string   `toml:"backend"`
	Lease   Duration `toml:"lease"`
}

type MailConfig struct {
	Host    string `toml:"host"`
	Sender  string `toml:"sender"`
	Domain  string `toml:"domain"`
	BaseURL string `toml:"base_url"`
}

type WebhookConfig struct {
	CallbackBase string   `toml:"callback_base"`
	Timeout      Duration `toml:"timeout"`
}

type DirectoryConfig struct {
	Path string `toml:"path"`

	// Watch reloads the file when it changes.
	Watch bool `toml:"watch"`
}

type VersionsConfig struct {
	// Fixtures is a YAML file of changes served by the in-memory store.
	Fixtures string `toml:"fixtures"`
}

type ActivityConfig struct {
	// Follow lists streams whose new records the daemon logs.
	Follow []string `toml:"follow"`
}

// Default returns the defaults with everything stored under dataDir.
func Default(dataDir string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir, "swarm.db"),
		},
		Log: LogConfig{
			Dir:       filepath.Join(dataDir, "logs"),
			Level:     "info",
			MaxFiles:  10,
			MaxSizeMB: 20,
		},
		Worker: WorkerConfig{
			Count:         4,
			PollInterval:  Duration(time.Second),
			BatchSize:     32,
			PurgeInterval: Duration(10 * time.Minute),
		},
		Queue: QueueConfig{
			MaxPending:         10000,
			TTL:                Duration(7 * 24 * time.Hour),
			MaxAttempts:        5,
			DeliveredRetention: Duration(24 * time.Hour),
		},
		Review: ReviewConfig{
			MaxFiles:             1000,
			DescriptionSyncDelay: Duration(3 * time.Second),
		},
		Import: ImportConfig{
			Delay: Duration(5 * time.Second),
		},
		Lock: LockConfig{
			Backend: LockSQLite,
			Lease:   Duration(10 * time.Minute),
		},
		Mail: MailConfig{
			Host:   "localhost",
			Sender: "swarm@localhost",
		},
		Webhook: WebhookConfig{
			Timeout: Duration(30 * time.Second),
		},
	}
}

// Load reads path over defaults. A missing or empty file leaves the
// defaults as they are.
func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path is required")
	}
	if strings.TrimSpace(c.Directory.Path) == "" && c.Directory.Watch {
		return errors.New("directory.watch needs directory.path")
	}

	switch {
	case c.Worker.Count <= 0:
		return fmt.Errorf("worker.count must be > 0, got %d",
			c.Worker.Count)
	case c.Worker.BatchSize <= 0:
		return fmt.Errorf("worker.batch_size must be > 0, got %d",
			c.Worker.BatchSize)
	case c.Worker.PollInterval <= 0:
		return errors.New("worker.poll_interval must be positive")
	case c.Queue.MaxPending <= 0:
		return errors.New("queue.max_pending must be > 0")
	case c.Queue.MaxAttempts <= 0:
		return errors.New("queue.max_attempts must be > 0")
	case c.Queue.TTL <= 0:
		return errors.New("queue.ttl must be positive")
	case c.Review.MaxFiles < 0:
		return errors.New("review.max_files must be >= 0")
	case c.Import.Delay < 0 || c.Review.DescriptionSyncDelay < 0:
		return errors.New("delays must be >= 0")
	case c.Webhook.Timeout <= 0:
		return errors.New("webhook.timeout must be positive")
	}

	switch c.Lock.Backend {
	case LockMemory:
	case LockSQLite:
		if c.Lock.Lease <= 0 {
			return errors.New("lock.lease must be positive")
		}
	default:
		return fmt.Errorf("invalid lock.backend: %q", c.Lock.Backend)
	}

	return nil
}
