// Package acquire resolves a request's source into a local file: remote
// videos through an identifier-keyed download cache, uploads as single-use
// files with opaque names.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/forPelevin/gifcut/internal/domain/validate"
	"github.com/forPelevin/gifcut/internal/metrics"
	"github.com/forPelevin/gifcut/internal/ports"
	"github.com/forPelevin/gifcut/internal/types"
)

const (
	cacheExt = ".mp4"
	lockExt  = ".lock"

	lockRetry = 100 * time.Millisecond
)

type Config struct {
	CacheDir  string
	UploadDir string
}

type Acquirer struct {
	cfg     Config
	fetcher ports.Fetcher
	logger  *slog.Logger

	flight singleflight.Group
}

func New(cfg Config, fetcher ports.Fetcher, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Acquirer{cfg: cfg, fetcher: fetcher, logger: logger}
}

// CachePath is the deterministic location of a remote video in the cache.
func (a *Acquirer) CachePath(id string) string {
	return filepath.Join(a.cfg.CacheDir, id+cacheExt)
}

// Remote returns the cached copy of id, downloading it first when absent.
// Concurrent calls for the same id download at most once, including across
// processes sharing the cache directory.
func (a *Acquirer) Remote(ctx context.Context, id string) (types.SourceFile, error) {
	if !validate.IsCanonicalIdentifier(id) {
		return types.SourceFile{}, types.InvalidRequest(types.FieldError{Field: "identifier", Message: "identifier is not a canonical video id"})
	}
	path := a.CachePath(id)
	if sf, ok := a.cached(id, path); ok {
		a.logger.Debug("cache hit", "id", id)
		metrics.RemoteCacheHits.Inc()
		return sf, nil
	}

	for {
		ch := a.flight.DoChan(id, func() (any, error) { return a.fill(ctx, id) })
		select {
		case <-ctx.Done():
			return types.SourceFile{}, ctx.Err()
		case r := <-ch:
			if r.Err == nil {
				return r.Val.(types.SourceFile), nil
			}
			// The request that led the download gave up; this one still has
			// time, so it takes over.
			if r.Shared && ctx.Err() == nil && types.CategoryOf(r.Err) == types.CategoryTimeout {
				continue
			}
			return types.SourceFile{}, r.Err
		}
	}
}

// fill downloads id into the cache under the cross-process entry lock.
func (a *Acquirer) fill(ctx context.Context, id string) (types.SourceFile, error) {
	path := a.CachePath(id)
	unlock, err := a.lockEntry(ctx, id)
	if err != nil {
		return types.SourceFile{}, err
	}
	defer unlock()

	// A peer may have finished the download while we waited.
	if sf, ok := a.cached(id, path); ok {
		a.logger.Debug("cache filled by peer", "id", id)
		metrics.RemoteCacheHits.Inc()
		return sf, nil
	}

	// Readers only ever see the renamed, complete file. yt-dlp leaves
	// "<dest>.part" behind when interrupted.
	tmpPath := filepath.Join(a.cfg.CacheDir, "."+id+"-"+uuid.NewString()+cacheExt)
	defer func() {
		_ = os.Remove(tmpPath)
		_ = os.Remove(tmpPath + ".part")
	}()

	a.logger.Info("fetching remote video", "id", id)
	if err := a.fetcher.Fetch(ctx, id, tmpPath); err != nil {
		metrics.RemoteFetchesTotal.WithLabelValues(string(types.CategoryOf(err))).Inc()
		return types.SourceFile{}, err
	}
	metrics.RemoteFetchesTotal.WithLabelValues("ok").Inc()
	if err := os.Rename(tmpPath, path); err != nil {
		return types.SourceFile{}, types.InternalIO("store downloaded video", err)
	}

	sf, ok := a.cached(id, path)
	if !ok {
		return types.SourceFile{}, types.InternalIO("downloaded video vanished", fmt.Errorf("stat %s", path))
	}
	a.logger.Info("remote video cached", "id", id, "size", humanize.IBytes(uint64(sf.SizeBytes)))
	return sf, nil
}

// Evict deletes the cached copy src was served from. A copy that has been
// replaced since src was handed out is left alone.
func (a *Acquirer) Evict(ctx context.Context, src types.SourceFile) error {
	if src.Origin != types.OriginRemoteCache || !validate.IsCanonicalIdentifier(src.Token) {
		return nil
	}
	unlock, err := a.lockEntry(ctx, src.Token)
	if err != nil {
		return err
	}
	defer unlock()

	path := a.CachePath(src.Token)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return types.InternalIO("stat cached video", err)
	}
	if info.Size() != src.SizeBytes || !info.ModTime().Equal(src.ModTime) {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return types.InternalIO("evict cached video", err)
	}
	a.logger.Info("evicted cached video", "id", src.Token)
	return nil
}

// lockEntry takes the per-identifier lock file shared by every process using
// the cache directory.
func (a *Acquirer) lockEntry(ctx context.Context, id string) (func(), error) {
	if err := os.MkdirAll(a.cfg.CacheDir, 0o755); err != nil {
		return nil, types.InternalIO("create cache dir", err)
	}
	fl := flock.New(filepath.Join(a.cfg.CacheDir, id+lockExt))
	locked, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, types.InternalIO("lock cache entry", err)
	}
	if !locked {
		return nil, types.InternalIO("lock cache entry", errors.New("lock not acquired"))
	}
	return func() { _ = fl.Unlock() }, nil
}

// IsLockFile reports whether name is a cache entry lock. Lock files must
// outlive the entries they guard, so retention skips them.
func IsLockFile(name string) bool {
	return strings.HasSuffix(name, lockExt)
}

func (a *Acquirer) cached(id, path string) (types.SourceFile, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return types.SourceFile{}, false
	}
	return types.SourceFile{
		Path:      path,
		Origin:    types.OriginRemoteCache,
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
		Token:     id,
	}, true
}

// Upload writes u under a fresh random name and returns a release func that
// deletes it. The release func is safe to call more than once.
func (a *Acquirer) Upload(ctx context.Context, u types.Upload) (types.SourceFile, func(), error) {
	noop := func() {}
	if err := ctx.Err(); err != nil {
		return types.SourceFile{}, noop, err
	}
	ext, ok := validate.UploadExtension(u.FileName)
	if !ok {
		return types.SourceFile{}, noop, types.InvalidRequest(types.FieldError{Field: "fileName", Message: "unsupported file extension"})
	}
	if err := os.MkdirAll(a.cfg.UploadDir, 0o755); err != nil {
		return types.SourceFile{}, noop, types.InternalIO("create upload dir", err)
	}

	token := uuid.NewString()
	path := filepath.Join(a.cfg.UploadDir, token+ext)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return types.SourceFile{}, noop, types.InternalIO("create upload file", err)
	}
	release := sync.OnceFunc(func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			a.logger.Warn("remove upload failed", "path", path, "error", err)
		}
	})
	if _, err := f.Write(u.Bytes); err != nil {
		_ = f.Close()
		release()
		return types.SourceFile{}, noop, types.InternalIO("write upload file", err)
	}
	if err := f.Close(); err != nil {
		release()
		return types.SourceFile{}, noop, types.InternalIO("close upload file", err)
	}

	a.logger.Debug("upload stored", "token", token, "size", humanize.IBytes(uint64(len(u.Bytes))))
	return types.SourceFile{
		Path:      path,
		Origin:    types.OriginTransientUpload,
		SizeBytes: int64(len(u.Bytes)),
		Token:     token,
	}, release, nil
}
