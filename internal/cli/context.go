package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forPelevin/gifcut/internal/logging"
	"github.com/forPelevin/gifcut/internal/pipeline"
	"github.com/forPelevin/gifcut/internal/types"
)

type globalOptions struct {
	configPath string
	dataDir    string
	logLevel   string
	logFormat  string
}

// load resolves the configuration and builds the logger. Flags win over the
// config file and environment.
func (o *globalOptions) load() (*pipeline.Config, *slog.Logger, error) {
	cfg, _, err := pipeline.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	if o.dataDir != "" {
		if err := cfg.SetDataDir(o.dataDir); err != nil {
			return nil, nil, fmt.Errorf("config: %w", err)
		}
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	return cfg, logger, nil
}

// formatError renders categorized failures with their field details and
// remediation hint.
func formatError(err error) string {
	var e *types.Error
	if !errors.As(err, &e) {
		return "error: " + err.Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "error: %s: %s", e.Category, e.Message)
	if len(e.Fields) > 1 {
		for _, f := range e.Fields {
			fmt.Fprintf(&b, "\n  %s: %s", f.Field, f.Message)
		}
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, "\nhint: %s", e.Hint)
	}
	return b.String()
}

func exitCode(err error) int {
	var e *types.Error
	if errors.As(err, &e) && e.Category == types.CategoryInvalidRequest {
		return 2
	}
	return 1
}
