// Package transcode renders a trimmed segment into a GIF.
//
// Rendering is a small state machine:
//
//	TryOptimized -> (success | fallback) -> Baseline -> (success | fatal)
//
// The optimized tier extracts frames into a scratch directory and hands them
// to a dedicated encoder. The baseline tier is a single filter-graph pass and
// is the only tier whose failure reaches the caller.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/forPelevin/gifcut/internal/metrics"
	"github.com/forPelevin/gifcut/internal/ports"
	"github.com/forPelevin/gifcut/internal/types"
)

// FPS is the output frame rate of both tiers.
const FPS = 15

type state int

const (
	stateOptimized state = iota
	stateBaseline
)

func (s state) String() string {
	if s == stateOptimized {
		return "optimized"
	}
	return "baseline"
}

type Deps struct {
	Baseline  ports.BaselineEncoder
	Frames    ports.FrameExtractor
	Optimizer ports.FrameEncoder // optional
}

type Transcoder struct {
	d       Deps
	workDir string
	logger  *slog.Logger
}

// New returns a transcoder that creates scratch directories under workDir.
func New(d Deps, workDir string, logger *slog.Logger) *Transcoder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transcoder{d: d, workDir: workDir, logger: logger}
}

// Render writes seg to out and reports which tier produced it. On error no
// file is left at out.
func (t *Transcoder) Render(ctx context.Context, seg types.Segment, out string) (types.Tier, error) {
	st := stateBaseline
	if t.d.Optimizer != nil && t.d.Frames != nil && t.d.Optimizer.Available() {
		st = stateOptimized
	}
	log := t.logger.With("start", seg.Start, "duration", seg.Duration)

	for {
		log.Debug("render", "state", st)
		switch st {
		case stateOptimized:
			err := t.optimized(ctx, seg, out)
			if err == nil {
				metrics.TierRendersTotal.WithLabelValues(string(types.TierOptimized)).Inc()
				return types.TierOptimized, nil
			}
			removePartial(out)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Warn("optimized encode failed, falling back to baseline", "error", err)
			metrics.TierFallbacksTotal.Inc()
			st = stateBaseline

		case stateBaseline:
			err := t.d.Baseline.EncodeGIF(ctx, seg, out)
			if err == nil {
				err = checkOutput(out)
			}
			if err != nil {
				removePartial(out)
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				return "", types.ConversionFailed(err)
			}
			metrics.TierRendersTotal.WithLabelValues(string(types.TierBaseline)).Inc()
			return types.TierBaseline, nil

		default:
			return "", fmt.Errorf("transcode: unknown state %d", st)
		}
	}
}

func (t *Transcoder) optimized(ctx context.Context, seg types.Segment, out string) error {
	if err := os.MkdirAll(t.workDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	scratch, err := os.MkdirTemp(t.workDir, "frames-")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			t.logger.Warn("remove scratch dir failed", "dir", scratch, "error", err)
		}
	}()

	frames, err := t.d.Frames.ExtractFrames(ctx, seg, scratch)
	if err != nil {
		return fmt.Errorf("extract frames: %w", err)
	}
	if len(frames) == 0 {
		return errors.New("extract frames: no frames")
	}
	if err := t.d.Optimizer.EncodeFrames(ctx, frames, FPS, out); err != nil {
		return err
	}
	return checkOutput(out)
}

func checkOutput(out string) error {
	info, err := os.Stat(out)
	if err != nil {
		return fmt.Errorf("encoder produced no output: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("encoder produced an empty file")
	}
	return nil
}

func removePartial(out string) {
	_ = os.Remove(out)
}
