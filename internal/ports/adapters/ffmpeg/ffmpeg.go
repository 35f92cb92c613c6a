package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/forPelevin/gifcut/internal/runner"
	"github.com/forPelevin/gifcut/internal/types"
)

// Fixed rendering parameters shared by every encode path.
const (
	FPS   = 15
	Width = 480
)

const framePattern = "frame-%05d.png"

var (
	scaleFilter   = fmt.Sprintf("fps=%d,scale='min(%d,iw)':-2:flags=lanczos", FPS, Width)
	paletteFilter = scaleFilter + ",split[s0][s1];[s0]palettegen=stats_mode=diff[p];[s1][p]paletteuse=dither=bayer:bayer_scale=5"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
	run     *runner.Runner
}

func New(ffmpegPath, ffprobePath string, r *runner.Runner) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if r == nil {
		r = runner.New()
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath, run: r}
}

// IsVideo reports whether path holds at least one decodable video stream.
func (a *Adapter) IsVideo(ctx context.Context, path string) (bool, error) {
	res, err := a.run.Run(ctx, runner.Command{
		Name: a.ffprobe,
		Args: []string{
			"-v", "error",
			"-select_streams", "v:0",
			"-show_entries", "stream=codec_type",
			"-of", "default=noprint_wrappers=1:nokey=1",
			path,
		},
		MaxOutput: 4096,
	})
	if err != nil {
		return false, fmt.Errorf("ffprobe stream type: %w", err)
	}
	return firstLine(res.Stdout) == "video", nil
}

func (a *Adapter) Duration(ctx context.Context, path string) (float64, error) {
	res, err := a.run.Run(ctx, runner.Command{
		Name: a.ffprobe,
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			path,
		},
		MaxOutput: 4096,
	})
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	return parseDuration(res.Stdout)
}

// EncodeGIF renders the segment with a single palettegen/paletteuse pass.
func (a *Adapter) EncodeGIF(ctx context.Context, seg types.Segment, out string) error {
	args := windowArgs(seg)
	args = append(args,
		"-vf", paletteFilter,
		"-loop", "0",
		"-f", "gif",
		out,
	)
	if _, err := a.run.Run(ctx, runner.Command{Name: a.ffmpeg, Args: args}); err != nil {
		return fmt.Errorf("ffmpeg encode gif: %w", err)
	}
	return nil
}

func (a *Adapter) ExtractFrames(ctx context.Context, seg types.Segment, dir string) ([]string, error) {
	args := windowArgs(seg)
	args = append(args,
		"-vf", scaleFilter,
		"-start_number", "1",
		filepath.Join(dir, framePattern),
	)
	if _, err := a.run.Run(ctx, runner.Command{Name: a.ffmpeg, Args: args}); err != nil {
		return nil, fmt.Errorf("ffmpeg extract frames: %w", err)
	}
	frames, err := filepath.Glob(filepath.Join(dir, "frame-*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(frames)
	if len(frames) == 0 {
		return nil, fmt.Errorf("ffmpeg extract frames: no frames written to %s", dir)
	}
	return frames, nil
}

// windowArgs seeks on the input side and bounds the read to the requested
// duration. Both encode paths share it so their trimming is identical.
func windowArgs(seg types.Segment) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-ss", fmtSeconds(seg.Start),
		"-t", fmtSeconds(seg.Duration),
		"-i", seg.Source,
		"-an",
	}
}

func parseDuration(out string) (float64, error) {
	s := firstLine(out)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return sec, nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
