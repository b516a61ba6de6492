package config

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// DefaultAddress is the address the server listens on, unless configured
// otherwise.
const DefaultAddress = ":8080"

// Config represents the application configuration, backed by a filesystem for
// persistence.
type Config struct {
	Server     Server
	Scheduler  Scheduler
	Playground Playground
	Uploads    Uploads

	fs   vfs.FileSystem
	path string
}

// NewConfig creates a new Config instance with the specified filesystem
// and configuration file path.
func NewConfig(fs vfs.FileSystem, path string) *Config {
	return &Config{fs: fs, path: path}
}

// Load reads and parses the configuration file from the filesystem.
// If the file doesn't exist, it initializes with an empty configuration.
func (c *Config) Load() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed creating configuration directory: %w", err)
	}

	configJSON, err := vfs.ReadFile(c.fs, c.path)
	if err != nil && !vfs.IsErrNotExist(err) {
		return fmt.Errorf("failed reading configuration file: %w", err)
	}

	// Ensure that unmarshalling JSON doesn't fail if the file doesn't exist or is empty.
	if len(configJSON) == 0 {
		configJSON = []byte("{}")
	}

	if err = json.Unmarshal(configJSON, c); err != nil {
		return fmt.Errorf("failed parsing configuration file: %w", err)
	}

	return nil
}

// Path returns the filesystem path where the configuration is stored.
func (c *Config) Path() string {
	return c.path
}

// Save writes the current configuration to the filesystem as JSON.
func (c *Config) Save() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed creating configuration directory: %w", err)
	}
	configJSON, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed serializing configuration data: %w", err)
	}
	if err = vfs.WriteFile(c.fs, c.path, configJSON, 0o644); err != nil {
		return fmt.Errorf("failed writing configuration file: %w", err)
	}

	return nil
}

// Server defines configuration options specific to the HTTP server.
type Server struct {
	// Address is the network address in [host]:port format the server will listen on.
	Address sql.Null[string] `json:"address"`
}

// Scheduler defines the sizes of the worker pools.
type Scheduler struct {
	// ParallelWorkers is the number of workers of the pool that runs
	// CPU-bound work. Default: number of CPUs.
	ParallelWorkers sql.Null[int] `json:"parallel_workers"`
	// BlockingWorkers is the maximum number of concurrent tasks of the pool
	// that runs blocking work. Default: 10 times the number of CPUs.
	BlockingWorkers sql.Null[int] `json:"blocking_workers"`
}

// Playground defines options of the demonstration pipelines.
type Playground struct {
	// ItemDelay is the simulated processing time of each item of the
	// /parallel-flux endpoint. It serializes from/to Go duration strings.
	ItemDelay sql.Null[time.Duration] `json:"item_delay"`
}

// Uploads defines where uploaded files are stored.
type Uploads struct {
	// Dir is the directory where uploaded files are written.
	Dir sql.Null[string] `json:"dir"`
	// DB is the path of the SQLite database that records uploads.
	DB sql.Null[string] `json:"db"`
	// MaxSize is the maximum size of an uploaded file in bytes.
	MaxSize sql.Null[int64] `json:"max_size"`
}

type cfgWrapper struct {
	Server     srvCfgWrapper   `json:"server"`
	Scheduler  schedCfgWrapper `json:"scheduler"`
	Playground pgCfgWrapper    `json:"playground"`
	Uploads    upCfgWrapper    `json:"uploads"`
}
type srvCfgWrapper struct {
	Address string `json:"address,omitempty"`
}
type schedCfgWrapper struct {
	ParallelWorkers int `json:"parallel_workers,omitempty"`
	BlockingWorkers int `json:"blocking_workers,omitempty"`
}
type pgCfgWrapper struct {
	ItemDelay string `json:"item_delay,omitempty"`
}
type upCfgWrapper struct {
	Dir     string `json:"dir,omitempty"`
	DB      string `json:"db,omitempty"`
	MaxSize int64  `json:"max_size,omitempty"`
}

// MarshalJSON implements custom JSON marshaling to convert sql.Null values
// to their underlying types, omitting invalid/null fields from the output.
func (c Config) MarshalJSON() ([]byte, error) {
	w := cfgWrapper{}

	if c.Server.Address.Valid {
		w.Server.Address = c.Server.Address.V
	}

	if c.Scheduler.ParallelWorkers.Valid {
		w.Scheduler.ParallelWorkers = c.Scheduler.ParallelWorkers.V
	}
	if c.Scheduler.BlockingWorkers.Valid {
		w.Scheduler.BlockingWorkers = c.Scheduler.BlockingWorkers.V
	}

	if c.Playground.ItemDelay.Valid {
		w.Playground.ItemDelay = c.Playground.ItemDelay.V.String()
	}

	if c.Uploads.Dir.Valid {
		w.Uploads.Dir = c.Uploads.Dir.V
	}
	if c.Uploads.DB.Valid {
		w.Uploads.DB = c.Uploads.DB.V
	}
	if c.Uploads.MaxSize.Valid {
		w.Uploads.MaxSize = c.Uploads.MaxSize.V
	}

	//nolint:wrapcheck // This is fine.
	return json.Marshal(w)
}

// UnmarshalJSON implements custom JSON unmarshaling to convert plain values
// into sql.Null types and parse duration strings into time.Duration values.
func (c *Config) UnmarshalJSON(data []byte) error {
	var w cfgWrapper
	if err := json.Unmarshal(data, &w); err != nil {
		//nolint:wrapcheck // This is fine.
		return err
	}

	if w.Server.Address != "" {
		c.Server.Address = sql.Null[string]{V: w.Server.Address, Valid: true}
	}

	if w.Scheduler.ParallelWorkers < 0 {
		return errors.New("parallel workers must be positive")
	}
	if w.Scheduler.ParallelWorkers > 0 {
		c.Scheduler.ParallelWorkers = sql.Null[int]{V: w.Scheduler.ParallelWorkers, Valid: true}
	}
	if w.Scheduler.BlockingWorkers < 0 {
		return errors.New("blocking workers must be positive")
	}
	if w.Scheduler.BlockingWorkers > 0 {
		c.Scheduler.BlockingWorkers = sql.Null[int]{V: w.Scheduler.BlockingWorkers, Valid: true}
	}

	if w.Playground.ItemDelay != "" {
		dur, err := time.ParseDuration(w.Playground.ItemDelay)
		if err != nil {
			return fmt.Errorf("failed parsing item delay: %w", err)
		}
		if dur < 0 {
			return errors.New("item delay must not be negative")
		}
		c.Playground.ItemDelay = sql.Null[time.Duration]{V: dur, Valid: true}
	}

	if w.Uploads.Dir != "" {
		c.Uploads.Dir = sql.Null[string]{V: w.Uploads.Dir, Valid: true}
	}
	if w.Uploads.DB != "" {
		c.Uploads.DB = sql.Null[string]{V: w.Uploads.DB, Valid: true}
	}
	if w.Uploads.MaxSize < 0 {
		return errors.New("maximum upload size must be positive")
	}
	if w.Uploads.MaxSize > 0 {
		c.Uploads.MaxSize = sql.Null[int64]{V: w.Uploads.MaxSize, Valid: true}
	}

	return nil
}

// SetDefaults sets default configuration values if they weren't set already.
// Upload files and the database are stored under dataDir.
func (c *Config) SetDefaults(dataDir string) {
	if !c.Server.Address.Valid {
		c.Server.Address = sql.Null[string]{V: DefaultAddress, Valid: true}
	}
	if !c.Scheduler.ParallelWorkers.Valid {
		c.Scheduler.ParallelWorkers = sql.Null[int]{V: runtime.NumCPU(), Valid: true}
	}
	if !c.Scheduler.BlockingWorkers.Valid {
		c.Scheduler.BlockingWorkers = sql.Null[int]{V: 10 * runtime.NumCPU(), Valid: true}
	}
	if !c.Playground.ItemDelay.Valid {
		c.Playground.ItemDelay = sql.Null[time.Duration]{V: 500 * time.Millisecond, Valid: true}
	}
	if !c.Uploads.Dir.Valid {
		c.Uploads.Dir = sql.Null[string]{V: filepath.Join(dataDir, "uploads"), Valid: true}
	}
	if !c.Uploads.DB.Valid {
		c.Uploads.DB = sql.Null[string]{V: filepath.Join(dataDir, "rxplay.db"), Valid: true}
	}
	if !c.Uploads.MaxSize.Valid {
		c.Uploads.MaxSize = sql.Null[int64]{V: 32 << 20, Valid: true}
	}
}
