// Package sweep deletes directory entries older than a retention threshold.
package sweep

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/gifcut/internal/metrics"
	"github.com/forPelevin/gifcut/internal/types"
)

type Result struct {
	Dir     string
	Removed []string
	Errors  []EntryError
}

type EntryError struct {
	Path string
	Err  error
}

// Sweep deletes the direct children of p.Dir whose modification time is
// before now-p.MaxAge. Per-entry failures are logged and collected; they never
// stop the sweep. Entries that disappear concurrently are ignored.
func Sweep(p types.RetentionPolicy, now time.Time, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	res := Result{Dir: p.Dir}
	if strings.TrimSpace(p.Dir) == "" || p.MaxAge <= 0 {
		return res
	}

	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			res.Errors = append(res.Errors, EntryError{Path: p.Dir, Err: err})
			logger.Warn("read retention dir failed", "dir", p.Dir, "error", err)
		}
		return res
	}

	cutoff := now.Add(-p.MaxAge)
	for _, e := range entries {
		if p.Skip != nil && p.Skip(e.Name()) {
			continue
		}
		path := filepath.Join(p.Dir, e.Name())
		info, err := e.Info()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				res.Errors = append(res.Errors, EntryError{Path: path, Err: err})
			}
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			res.Errors = append(res.Errors, EntryError{Path: path, Err: err})
			logger.Warn("remove stale entry failed", "path", path, "error", err)
			continue
		}
		res.Removed = append(res.Removed, path)
		logger.Debug("removed stale entry", "path", path, "age", now.Sub(info.ModTime()).Round(time.Second))
	}

	label := filepath.Base(p.Dir)
	metrics.SweepDeletedTotal.WithLabelValues(label).Add(float64(len(res.Removed)))
	metrics.SweepErrorsTotal.WithLabelValues(label).Add(float64(len(res.Errors)))
	return res
}

// All sweeps every policy in order.
func All(ctx context.Context, policies []types.RetentionPolicy, now time.Time, logger *slog.Logger) []Result {
	metrics.SweepRunsTotal.Inc()
	results := make([]Result, 0, len(policies))
	for _, p := range policies {
		if ctx.Err() != nil {
			break
		}
		results = append(results, Sweep(p, now, logger))
	}
	return results
}
