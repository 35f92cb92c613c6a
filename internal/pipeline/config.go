package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/forPelevin/gifcut/internal/logging"
)

// ConfigEnv names the environment variable holding the config file path.
const ConfigEnv = "GIFCUT_CONFIG"

const projectConfigFile = "gifcut.toml"

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration struct{ time.Duration }

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type Retention struct {
	UploadMaxAge Duration `toml:"upload_max_age"`
	CacheMaxAge  Duration `toml:"cache_max_age"`
	OutputMaxAge Duration `toml:"output_max_age"`
	Interval     Duration `toml:"interval"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	DataDir        string   `toml:"data_dir"`
	PublicPrefix   string   `toml:"public_prefix"`
	ListenAddr     string   `toml:"listen_addr"`
	RequestTimeout Duration `toml:"request_timeout"`
	MetricsEnabled bool     `toml:"metrics_enabled"`

	YtDlpPath   string `toml:"ytdlp_path"`
	FFmpegPath  string `toml:"ffmpeg_path"`
	FFprobePath string `toml:"ffprobe_path"`
	GifskiPath  string `toml:"gifski_path"`

	Retention Retention `toml:"retention"`
	Log       Log       `toml:"log"`

	// Derived from DataDir by normalize.
	CacheDir  string `toml:"-"`
	UploadDir string `toml:"-"`
	OutputDir string `toml:"-"`
	WorkDir   string `toml:"-"`
}

func Default() Config {
	return Config{
		DataDir:        "data",
		PublicPrefix:   "/gifs",
		ListenAddr:     ":3000",
		RequestTimeout: Duration{5 * time.Minute},
		MetricsEnabled: true,

		YtDlpPath:   "yt-dlp",
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		GifskiPath:  "gifski",

		Retention: Retention{
			UploadMaxAge: Duration{time.Hour},
			CacheMaxAge:  Duration{24 * time.Hour},
			OutputMaxAge: Duration{24 * time.Hour},
			Interval:     Duration{10 * time.Minute},
		},
		Log: Log{Level: "info", Format: "auto"},
	}
}

// Load builds the effective configuration: defaults, then the TOML file,
// then GIFCUT_* environment overrides. It returns the config file path that
// was read, or "" when none was found.
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}
	if resolved != "" {
		f, err := os.Open(resolved)
		if err != nil {
			return nil, "", fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		dec := toml.NewDecoder(f)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, "", fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, "", err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

// resolveConfigPath picks the explicit path, then $GIFCUT_CONFIG, then
// ./gifcut.toml. An explicit path that does not exist is an error.
func resolveConfigPath(path string) (string, error) {
	explicit := strings.TrimSpace(path)
	if explicit == "" {
		explicit = strings.TrimSpace(os.Getenv(ConfigEnv))
	}
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(abs); err != nil {
			return "", fmt.Errorf("stat config: %w", err)
		}
		return abs, nil
	}

	abs, err := filepath.Abs(projectConfigFile)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		return abs, nil
	case err == nil, errors.Is(err, fs.ErrNotExist):
		return "", nil
	default:
		return "", fmt.Errorf("stat config: %w", err)
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(key string, dst *Duration) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		if err := dst.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	}

	str("GIFCUT_DATA_DIR", &c.DataDir)
	str("GIFCUT_PUBLIC_PREFIX", &c.PublicPrefix)
	str("GIFCUT_LISTEN_ADDR", &c.ListenAddr)
	str("GIFCUT_YTDLP_PATH", &c.YtDlpPath)
	str("GIFCUT_FFMPEG_PATH", &c.FFmpegPath)
	str("GIFCUT_FFPROBE_PATH", &c.FFprobePath)
	str("GIFCUT_GIFSKI_PATH", &c.GifskiPath)
	str("GIFCUT_LOG_LEVEL", &c.Log.Level)
	str("GIFCUT_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("GIFCUT_METRICS_ENABLED"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("GIFCUT_METRICS_ENABLED: %w", err)
		}
		c.MetricsEnabled = b
	}

	for key, dst := range map[string]*Duration{
		"GIFCUT_REQUEST_TIMEOUT": &c.RequestTimeout,
		"GIFCUT_UPLOAD_MAX_AGE":  &c.Retention.UploadMaxAge,
		"GIFCUT_CACHE_MAX_AGE":   &c.Retention.CacheMaxAge,
		"GIFCUT_OUTPUT_MAX_AGE":  &c.Retention.OutputMaxAge,
		"GIFCUT_SWEEP_INTERVAL":  &c.Retention.Interval,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) normalize() error {
	dataDir, err := expandPath(c.DataDir)
	if err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	c.DataDir = dataDir
	c.CacheDir = filepath.Join(dataDir, "cache")
	c.UploadDir = filepath.Join(dataDir, "uploads")
	c.OutputDir = filepath.Join(dataDir, "gifs")
	c.WorkDir = filepath.Join(dataDir, "work")

	c.PublicPrefix = "/" + strings.Trim(strings.TrimSpace(c.PublicPrefix), "/")
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.PublicPrefix == "/" {
		errs = append(errs, errors.New("public_prefix must not be the root path"))
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}
	if c.RequestTimeout.Duration <= 0 {
		errs = append(errs, errors.New("request_timeout must be > 0"))
	}
	for name, v := range map[string]string{
		"ytdlp_path":   c.YtDlpPath,
		"ffmpeg_path":  c.FFmpegPath,
		"ffprobe_path": c.FFprobePath,
	} {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	for name, d := range map[string]Duration{
		"retention.upload_max_age": c.Retention.UploadMaxAge,
		"retention.cache_max_age":  c.Retention.CacheMaxAge,
		"retention.output_max_age": c.Retention.OutputMaxAge,
		"retention.interval":       c.Retention.Interval,
	} {
		if d.Duration < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0", name))
		}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "auto", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log format: unsupported value %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// SetDataDir moves every data directory under dir.
func (c *Config) SetDataDir(dir string) error {
	c.DataDir = dir
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

// EnsureDirectories creates the data directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.CacheDir, c.UploadDir, c.OutputDir, c.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(filepath.Clean(p))
}
