package pipeline

import (
	"context"
	"log/slog"

	"github.com/forPelevin/gifcut/internal/acquire"
	"github.com/forPelevin/gifcut/internal/deps"
	"github.com/forPelevin/gifcut/internal/domain/validate"
	"github.com/forPelevin/gifcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/gifcut/internal/ports/adapters/gifski"
	"github.com/forPelevin/gifcut/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/gifcut/internal/runner"
	"github.com/forPelevin/gifcut/internal/store"
	"github.com/forPelevin/gifcut/internal/sweep"
	"github.com/forPelevin/gifcut/internal/transcode"
	"github.com/forPelevin/gifcut/internal/types"
	"github.com/forPelevin/gifcut/internal/usecase"
)

// Service is the wired conversion pipeline.
type Service struct {
	Config  *Config
	Logger  *slog.Logger
	Store   *store.Store
	Sweeper *sweep.Runner

	uc usecase.Usecase
}

// New wires the adapters for cfg. It creates the data directories but does
// not start background work.
func New(cfg *Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	run := runner.New()
	video := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath, run)
	fetcher := ytdlp.New(cfg.YtDlpPath, validate.MaxSourceSeconds, run)
	optimizer := gifski.New(cfg.GifskiPath, run)

	st, err := store.New(cfg.OutputDir, cfg.PublicPrefix)
	if err != nil {
		return nil, err
	}

	uc := usecase.New(usecase.Deps{
		Sources: acquire.New(acquire.Config{
			CacheDir:  cfg.CacheDir,
			UploadDir: cfg.UploadDir,
		}, fetcher, logger.With("component", "acquire")),
		Prober: video,
		Transcoder: transcode.New(transcode.Deps{
			Baseline:  video,
			Frames:    video,
			Optimizer: optimizer,
		}, cfg.WorkDir, logger.With("component", "transcode")),
		Store:  st,
		Logger: logger.With("component", "convert"),
	})

	return &Service{
		Config:  cfg,
		Logger:  logger,
		Store:   st,
		Sweeper: sweep.NewRunner(cfg.Policies(), cfg.Retention.Interval.Duration, logger.With("component", "sweep")),
		uc:      uc,
	}, nil
}

// Convert runs one conversion request.
func (s *Service) Convert(ctx context.Context, req types.ConversionRequest) (types.ConversionResult, error) {
	return s.uc.Convert(ctx, req)
}

// Policies lists the retention rule of every data directory. Scratch frame
// directories share the upload threshold; cache lock files are never swept.
func (c *Config) Policies() []types.RetentionPolicy {
	return []types.RetentionPolicy{
		{Dir: c.UploadDir, MaxAge: c.Retention.UploadMaxAge.Duration},
		{Dir: c.WorkDir, MaxAge: c.Retention.UploadMaxAge.Duration},
		{Dir: c.CacheDir, MaxAge: c.Retention.CacheMaxAge.Duration, Skip: acquire.IsLockFile},
		{Dir: c.OutputDir, MaxAge: c.Retention.OutputMaxAge.Duration},
	}
}

// Requirements lists the external tools the configuration points at.
func (c *Config) Requirements() []deps.Requirement {
	return []deps.Requirement{
		{Name: "yt-dlp", Command: c.YtDlpPath, Description: "remote video download", VersionArgs: []string{"--version"}},
		{Name: "ffmpeg", Command: c.FFmpegPath, Description: "segment decode and baseline GIF encode", VersionArgs: []string{"-version"}},
		{Name: "ffprobe", Command: c.FFprobePath, Description: "video stream and duration probe", VersionArgs: []string{"-version"}},
		{Name: "gifski", Command: c.GifskiPath, Description: "optimized GIF encode", Optional: true, VersionArgs: []string{"--version"}},
	}
}
