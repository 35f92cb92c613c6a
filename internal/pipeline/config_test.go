package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/gifcut/internal/sweep"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigEnv, "")

	cfg, path, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if path != "" {
		t.Fatalf("unexpected config path %q", path)
	}
	if !filepath.IsAbs(cfg.DataDir) || filepath.Base(cfg.DataDir) != "data" {
		t.Fatalf("data dir not absolute: %q", cfg.DataDir)
	}
	if cfg.OutputDir != filepath.Join(cfg.DataDir, "gifs") || cfg.CacheDir != filepath.Join(cfg.DataDir, "cache") {
		t.Fatalf("derived dirs wrong: %+v", cfg)
	}
	if cfg.Retention.UploadMaxAge.Duration != time.Hour || cfg.Retention.OutputMaxAge.Duration != 24*time.Hour {
		t.Fatalf("unexpected retention defaults: %+v", cfg.Retention)
	}
	if cfg.PublicPrefix != "/gifs" || cfg.RequestTimeout.Duration != 5*time.Minute {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigEnv, "")
	toml := `
data_dir = "store"
public_prefix = "media/gifs/"
listen_addr = "127.0.0.1:8080"
request_timeout = "90s"

[retention]
upload_max_age = "30m"
output_max_age = "48h"

[log]
level = "DEBUG"
format = "json"
`
	if err := os.WriteFile(filepath.Join(dir, "gifcut.toml"), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GIFCUT_LISTEN_ADDR", ":9999")
	t.Setenv("GIFCUT_CACHE_MAX_AGE", "2h")
	t.Setenv("GIFCUT_METRICS_ENABLED", "false")

	cfg, path, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if filepath.Base(path) != "gifcut.toml" {
		t.Fatalf("unexpected config path %q", path)
	}
	if filepath.Base(cfg.DataDir) != "store" || cfg.PublicPrefix != "/media/gifs" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.ListenAddr != ":9999" || cfg.MetricsEnabled {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.RequestTimeout.Duration != 90*time.Second ||
		cfg.Retention.UploadMaxAge.Duration != 30*time.Minute ||
		cfg.Retention.OutputMaxAge.Duration != 48*time.Hour ||
		cfg.Retention.CacheMaxAge.Duration != 2*time.Hour {
		t.Fatalf("durations wrong: %+v %+v", cfg.RequestTimeout, cfg.Retention)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("log config wrong: %+v", cfg.Log)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigEnv, "")

	if _, _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("unknown_key = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(bad); err == nil {
		t.Fatalf("expected error for unknown key")
	}

	t.Setenv("GIFCUT_REQUEST_TIMEOUT", "soon")
	if _, _, err := Load(""); err == nil || !strings.Contains(err.Error(), "GIFCUT_REQUEST_TIMEOUT") {
		t.Fatalf("expected env parse error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}

	cfg.RequestTimeout = Duration{}
	cfg.FFmpegPath = " "
	cfg.Log.Format = "xml"
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, want := range []string{"request_timeout", "ffmpeg_path", "log format"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestPolicies(t *testing.T) {
	cfg := Default()
	cfg.DataDir = t.TempDir()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	seen := map[string]time.Duration{}
	for _, p := range cfg.Policies() {
		seen[p.Dir] = p.MaxAge
	}
	if seen[cfg.UploadDir] != time.Hour || seen[cfg.OutputDir] != 24*time.Hour || seen[cfg.CacheDir] != 24*time.Hour {
		t.Fatalf("unexpected policies: %v", seen)
	}
}

func TestPolicies_CacheSweepKeepsLockFiles(t *testing.T) {
	cfg := Default()
	if err := cfg.SetDataDir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-48 * time.Hour)
	video := filepath.Join(cfg.CacheDir, "abc123.mp4")
	lock := filepath.Join(cfg.CacheDir, "abc123.lock")
	for _, p := range []string{video, lock} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatal(err)
		}
	}

	sweep.All(context.Background(), cfg.Policies(), time.Now(), nil)
	if _, err := os.Stat(video); !os.IsNotExist(err) {
		t.Fatalf("stale cached video survived: %v", err)
	}
	if _, err := os.Stat(lock); err != nil {
		t.Fatalf("lock file swept: %v", err)
	}
}
