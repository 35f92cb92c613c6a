package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/forPelevin/gifcut/internal/domain/naming"
	"github.com/forPelevin/gifcut/internal/domain/validate"
	"github.com/forPelevin/gifcut/internal/metrics"
	"github.com/forPelevin/gifcut/internal/ports"
	"github.com/forPelevin/gifcut/internal/types"
)

type Deps struct {
	Sources    ports.SourceAcquirer
	Prober     ports.Prober
	Transcoder ports.Transcoder
	Store      ports.ArtifactStore

	Logger *slog.Logger
	Now    func() time.Time
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return Usecase{d: d}
}

// Convert runs one request through validation, acquisition, probing and
// rendering. Every returned error is a *types.Error or a context error.
func (u Usecase) Convert(ctx context.Context, req types.ConversionRequest) (res types.ConversionResult, err error) {
	started := u.d.Now()
	metrics.ConversionsInProgress.Inc()
	defer func() {
		metrics.ConversionsInProgress.Dec()
		outcome := "ok"
		if err != nil {
			outcome = string(types.CategoryOf(err))
		}
		metrics.ConversionsTotal.WithLabelValues(string(req.Source), outcome).Inc()
		metrics.ConversionDuration.WithLabelValues(string(req.Source)).Observe(u.d.Now().Sub(started).Seconds())
	}()

	req, err = validate.Request(req)
	if err != nil {
		return types.ConversionResult{}, err
	}
	log := u.d.Logger.With("source", req.Source, "start", req.Start, "duration", req.Duration)

	src, release, err := u.acquire(ctx, req)
	if err != nil {
		log.Warn("acquire failed", "category", types.CategoryOf(err), "error", err)
		return types.ConversionResult{}, err
	}
	defer release()
	log = log.With("token", src.Token)

	src, err = u.probe(ctx, src)
	if err != nil {
		log.Warn("probe failed", "category", types.CategoryOf(err), "error", err)
		u.discard(ctx, log, src, err)
		return types.ConversionResult{}, err
	}
	if err := validate.Segment(req.Start, req.Duration, src.DurationSeconds); err != nil {
		return types.ConversionResult{}, err
	}

	name := naming.Artifact(req.Source, src.Token, req.Start, req.Duration, u.d.Now())
	partial, err := u.d.Store.Partial(name)
	if err != nil {
		return types.ConversionResult{}, types.InternalIO("prepare output", err)
	}

	seg := types.Segment{Source: src.Path, Start: req.Start, Duration: req.Duration}
	tier, err := u.d.Transcoder.Render(ctx, seg, partial)
	if err != nil {
		log.Error("render failed", "category", types.CategoryOf(err), "error", err)
		return types.ConversionResult{}, err
	}

	art, err := u.d.Store.Commit(partial, name)
	if err != nil {
		return types.ConversionResult{}, types.AsError(err)
	}
	metrics.ArtifactBytes.Observe(float64(art.Size))
	log.Info("gif ready", "name", art.Name, "tier", tier, "size", humanize.IBytes(uint64(art.Size)),
		"elapsed", u.d.Now().Sub(started).Round(time.Millisecond))

	return types.ConversionResult{
		Name:       art.Name,
		PublicPath: u.d.Store.PublicPath(art.Name),
		ByteSize:   art.Size,
		Source:     req.Source,
		Tier:       tier,
	}, nil
}

func (u Usecase) acquire(ctx context.Context, req types.ConversionRequest) (types.SourceFile, func(), error) {
	if req.Source == types.SourceUpload {
		return u.d.Sources.Upload(ctx, req.Upload)
	}
	src, err := u.d.Sources.Remote(ctx, req.Identifier)
	return src, func() {}, err
}

// discard evicts a cached remote source that failed probing so the next
// request downloads it again. Uploads are removed by their release func.
func (u Usecase) discard(ctx context.Context, log *slog.Logger, src types.SourceFile, cause error) {
	if src.Origin != types.OriginRemoteCache || types.CategoryOf(cause) == types.CategoryTimeout {
		return
	}
	if err := u.d.Sources.Evict(ctx, src); err != nil {
		log.Warn("evict cached source failed", "path", src.Path, "error", err)
	}
}

// probe fills in what ffprobe reports about src. Tool failures mean the file
// is not a usable video.
func (u Usecase) probe(ctx context.Context, src types.SourceFile) (types.SourceFile, error) {
	isVideo, err := u.d.Prober.IsVideo(ctx, src.Path)
	if err != nil {
		return src, notAVideo(ctx, err)
	}
	if !isVideo {
		return src, types.SourceInvalid("the file does not contain a video stream", nil)
	}
	src.IsVideo = true

	seconds, err := u.d.Prober.Duration(ctx, src.Path)
	if err != nil {
		return src, notAVideo(ctx, err)
	}
	src.DurationSeconds = seconds
	return src, validate.SourceDuration(seconds)
}

func notAVideo(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return types.SourceInvalid("the file is not a valid video", err)
}
