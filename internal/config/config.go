// Package config loads client settings from config.json, the environment and
// command-line flags, in that order of precedence (lowest first).
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrylevesque/starseeker/internal/kvstore"
	"github.com/harrylevesque/starseeker/internal/utils"
)

const (
	DefaultAPIURL   = "https://hstc-api.testing.keyholding.com"
	DefaultFileName = "config.json"
	DefaultLogName  = "starseeker.log"
)

var ErrHelp = errors.New("help requested")

// Duration is a time.Duration that reads and writes JSON as "15s" strings.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var ms int64
		if err2 := json.Unmarshal(data, &ms); err2 != nil {
			return fmt.Errorf("duration must be a string like \"30s\" or milliseconds: %s", data)
		}
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) D() time.Duration { return time.Duration(d) }

type Config struct {
	APIURL        string `json:"apiUrl"`
	APIKey        string `json:"apiKey"`
	DataDir       string `json:"dataDir"`
	Store         string `json:"store"`
	PostgresDSN   string `json:"postgresDsn"`
	EncryptStore  bool   `json:"encryptStore"`
	MasterKeyPath string `json:"masterKeyPath"`
	LogFile       string `json:"logFile"`

	RequestTimeout Duration `json:"requestTimeout"`
	MinimumLoading Duration `json:"minimumLoading"`
	StaleTime      Duration `json:"staleTime"`
	CacheTime      Duration `json:"cacheTime"`
	Retry          int      `json:"retry"`

	// ProbeURL is fetched with HEAD to decide internet reachability. Empty
	// means the API URL.
	ProbeURL      string   `json:"probeUrl"`
	ProbeInterval Duration `json:"probeInterval"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Config {
	return Config{
		APIURL:         DefaultAPIURL,
		DataDir:        utils.GetDataDir(),
		Store:          kvstore.BackendFile,
		RequestTimeout: Duration(15 * time.Second),
		MinimumLoading: Duration(2 * time.Second),
		StaleTime:      Duration(30 * time.Second),
		CacheTime:      Duration(time.Hour),
		Retry:          2,
		ProbeInterval:  Duration(10 * time.Second),
	}
}

// Path locates the config file: $STARSEEKER_CONFIG if set, otherwise
// config.json in $STARSEEKER_DATA_DIR or the default data dir.
func Path(lookup func(string) (string, bool)) string {
	if v, ok := lookup("STARSEEKER_CONFIG"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	dir := utils.GetDataDir()
	if v, ok := lookup("STARSEEKER_DATA_DIR"); ok && strings.TrimSpace(v) != "" {
		dir = strings.TrimSpace(v)
	}
	return filepath.Join(dir, DefaultFileName)
}

// Load reads path over the defaults and then applies environment overrides.
// A missing file is not an error. Fields absent from the file keep their
// defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from STARSEEKER_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(name string, dst *string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("STARSEEKER_API_URL", &c.APIURL)
	set("STARSEEKER_API_KEY", &c.APIKey)
	set("STARSEEKER_DATA_DIR", &c.DataDir)
	set("STARSEEKER_STORE", &c.Store)
	set("STARSEEKER_PG_DSN", &c.PostgresDSN)
}

// ParseFlags applies command-line overrides on top of c and returns the
// remaining positional arguments.
func (c Config) ParseFlags(name string, args []string) (Config, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))

	fs.StringVar(&c.APIURL, "api-url", c.APIURL, "StarSeeker API base URL")
	fs.StringVar(&c.APIKey, "api-key", c.APIKey, "API key sent as x-api-key")
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "Directory for the local store and logs")
	fs.StringVar(&c.Store, "store", c.Store, "Local store backend: file|memory|postgres")
	fs.StringVar(&c.PostgresDSN, "pg-dsn", c.PostgresDSN, "PostgreSQL DSN for the postgres store")
	fs.BoolVar(&c.EncryptStore, "encrypt", c.EncryptStore, "Encrypt the file store with the master key")
	fs.StringVar(&c.MasterKeyPath, "master-key", c.MasterKeyPath, "Master key file (default <data-dir>/master.key)")
	fs.StringVar(&c.LogFile, "log", c.LogFile, "Log file (default <data-dir>/"+DefaultLogName+")")
	timeout := fs.Duration("request-timeout", c.RequestTimeout.D(), "HTTP request timeout")
	minimum := fs.Duration("min-loading", c.MinimumLoading.D(), "Minimum time a loading indicator stays visible")
	retry := fs.Int("retry", c.Retry, "Retries for failed API reads")
	help := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, nil, ErrHelp
		}
		return Config{}, nil, err
	}
	if *help {
		return Config{}, nil, ErrHelp
	}
	c.RequestTimeout = Duration(*timeout)
	c.MinimumLoading = Duration(*minimum)
	c.Retry = *retry
	return c, fs.Args(), c.Validate()
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return errors.New("api url is required")
	}
	switch c.Store {
	case kvstore.BackendFile, kvstore.BackendMemory:
	case kvstore.BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres store needs a DSN")
		}
	default:
		return fmt.Errorf("invalid store: %s", c.Store)
	}
	if c.RequestTimeout <= 0 || c.StaleTime < 0 || c.CacheTime < 0 || c.ProbeInterval <= 0 {
		return errors.New("timeouts and intervals must be positive")
	}
	if c.Retry < 0 {
		return errors.New("retry must not be negative")
	}
	return nil
}

// StoreOptions maps the config onto kvstore.Open options.
func (c Config) StoreOptions() kvstore.Options {
	opts := kvstore.Options{
		Backend:     c.Store,
		DataDir:     c.DataDir,
		PostgresDSN: c.PostgresDSN,
	}
	if c.EncryptStore {
		opts.MasterKeyPath = c.MasterKeyPath
		if opts.MasterKeyPath == "" {
			opts.MasterKeyPath = filepath.Join(c.DataDir, "master.key")
		}
	}
	return opts
}

// LogPath returns LogFile, or DefaultLogName in the data dir when unset.
func (c Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.DataDir, DefaultLogName)
}

// Probe returns the reachability URL.
func (c Config) Probe() string {
	if c.ProbeURL != "" {
		return c.ProbeURL
	}
	return c.APIURL
}
