package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrylevesque/starseeker/internal/kvstore"
	"github.com/harrylevesque/starseeker/internal/utils"
)

func noEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"STARSEEKER_API_URL", "STARSEEKER_API_KEY", "STARSEEKER_DATA_DIR", "STARSEEKER_STORE", "STARSEEKER_PG_DSN"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	noEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL || cfg.Retry != 2 || cfg.StaleTime.D() != 30*time.Second || cfg.CacheTime.D() != time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MinimumLoading.D() != 2*time.Second {
		t.Fatalf("minimum loading = %s", cfg.MinimumLoading.D())
	}
}

func TestLoadFileKeepsDefaultsForAbsentFields(t *testing.T) {
	noEnv(t)
	path := filepath.Join(t.TempDir(), DefaultFileName)
	os.WriteFile(path, []byte(`{"apiUrl":"http://localhost:9000","staleTime":"5s","minimumLoading":500}`), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != "http://localhost:9000" || cfg.StaleTime.D() != 5*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.MinimumLoading.D() != 500*time.Millisecond {
		t.Fatalf("millisecond duration not parsed: %s", cfg.MinimumLoading.D())
	}
	if cfg.Retry != 2 || cfg.Store != kvstore.BackendFile {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadRejectsBadFile(t *testing.T) {
	noEnv(t)
	path := filepath.Join(t.TempDir(), DefaultFileName)
	os.WriteFile(path, []byte(`{"staleTime":"soon"}`), 0600)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	noEnv(t)
	t.Setenv("STARSEEKER_API_KEY", "k1")
	t.Setenv("STARSEEKER_STORE", "memory")
	path := filepath.Join(t.TempDir(), DefaultFileName)
	os.WriteFile(path, []byte(`{"apiKey":"file-key","store":"file"}`), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIKey != "k1" || cfg.Store != kvstore.BackendMemory {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestParseFlags(t *testing.T) {
	base := Defaults()
	cfg, rest, err := base.ParseFlags("starseeker", []string{"-api-key", "abc", "-retry", "0", "-encrypt", "gates"})
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if cfg.APIKey != "abc" || cfg.Retry != 0 || !cfg.EncryptStore {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if len(rest) != 1 || rest[0] != "gates" {
		t.Fatalf("rest = %v", rest)
	}
	if base.APIKey != "" {
		t.Fatalf("base config modified")
	}

	opts := cfg.StoreOptions()
	if opts.MasterKeyPath != filepath.Join(cfg.DataDir, "master.key") {
		t.Fatalf("master key path = %q", opts.MasterKeyPath)
	}

	if _, _, err := base.ParseFlags("starseeker", []string{"-help"}); !errors.Is(err, ErrHelp) {
		t.Fatalf("expected ErrHelp, got %v", err)
	}
	if _, _, err := base.ParseFlags("starseeker", []string{"-store", "s3"}); err == nil {
		t.Fatalf("expected invalid store error")
	}
}

func TestValidatePostgresNeedsDSN(t *testing.T) {
	cfg := Defaults()
	cfg.Store = kvstore.BackendPostgres
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error without DSN")
	}
	cfg.PostgresDSN = "postgres://localhost/starseeker"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestPath(t *testing.T) {
	env := func(m map[string]string) func(string) (string, bool) {
		return func(k string) (string, bool) {
			v, ok := m[k]
			return v, ok
		}
	}
	if got := Path(env(nil)); got != filepath.Join(utils.GetDataDir(), DefaultFileName) {
		t.Fatalf("default path = %q", got)
	}
	if got := Path(env(map[string]string{"STARSEEKER_DATA_DIR": "/srv/ss"})); got != filepath.Join("/srv/ss", DefaultFileName) {
		t.Fatalf("data dir path = %q", got)
	}
	got := Path(env(map[string]string{"STARSEEKER_DATA_DIR": "/srv/ss", "STARSEEKER_CONFIG": "/etc/ss.json"}))
	if got != "/etc/ss.json" {
		t.Fatalf("explicit path = %q", got)
	}
}

func TestLogPath(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = "/srv/ss"
	if got := cfg.LogPath(); got != filepath.Join("/srv/ss", DefaultLogName) {
		t.Fatalf("default log path = %q", got)
	}
	cfg.LogFile = "/var/log/ss.log"
	if got := cfg.LogPath(); got != "/var/log/ss.log" {
		t.Fatalf("explicit log path = %q", got)
	}
}
