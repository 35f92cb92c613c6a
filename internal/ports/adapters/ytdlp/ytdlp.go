package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/forPelevin/gifcut/internal/runner"
	"github.com/forPelevin/gifcut/internal/types"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// formatSelector prefers a capped-quality single mp4 and falls back
	// across delivery variants.
	formatSelector = "best[height<=720][ext=mp4]/best[height<=720]/best"

	watchURL = "https://www.youtube.com/watch?v="
)

var blockedMarkers = []string{
	"sign in to confirm",
	"not a bot",
	"http error 403",
	"403: forbidden",
	"http error 429",
	"too many requests",
	"rate-limit",
	"rate limit",
	"confirm your age",
}

var unavailableMarkers = []string{
	"video unavailable",
	"private video",
	"has been removed",
	"unsupported url",
	"is not a valid url",
	"incomplete youtube id",
}

type Adapter struct {
	bin         string
	maxDuration float64
	run         *runner.Runner
}

// New returns a fetcher that refuses videos longer than maxDuration seconds
// before downloading them. A zero maxDuration disables the filter.
func New(binPath string, maxDuration float64, r *runner.Runner) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	if r == nil {
		r = runner.New()
	}
	return &Adapter{bin: binPath, maxDuration: maxDuration, run: r}
}

func (a *Adapter) Fetch(ctx context.Context, id, dest string) error {
	_, err := a.run.Run(ctx, runner.Command{Name: a.bin, Args: a.args(id, dest)})
	if err != nil {
		return classify(err)
	}
	info, statErr := os.Stat(dest)
	if statErr != nil || info.Size() == 0 {
		// yt-dlp exits cleanly when --match-filter rejects the video.
		return types.SourceInvalid(
			fmt.Sprintf("video is unavailable or longer than %g seconds", a.maxDuration),
			statErr,
		)
	}
	return nil
}

func (a *Adapter) args(id, dest string) []string {
	args := []string{
		"--user-agent", userAgent,
		"--extractor-args", "youtube:player_client=android,web",
		"--no-check-certificate",
		"--no-playlist",
		"--no-mtime",
		"--no-progress",
		"-f", formatSelector,
	}
	if a.maxDuration > 0 {
		args = append(args, "--match-filter", fmt.Sprintf("duration <= %g", a.maxDuration))
	}
	return append(args, "-o", dest, watchURL+id)
}

// classify maps a failed yt-dlp run onto the error taxonomy using its
// diagnostic text.
func classify(err error) error {
	var rerr *runner.Error
	if !errors.As(err, &rerr) {
		return types.SourceInvalid("could not download the video", err)
	}
	switch rerr.Kind {
	case runner.KindCanceled:
		return err
	case runner.KindNotFound, runner.KindStart:
		return types.InternalIO("the video downloader is not available", err)
	}

	diag := strings.ToLower(rerr.Stderr)
	for _, m := range blockedMarkers {
		if strings.Contains(diag, m) {
			return types.SourceBlocked(err)
		}
	}
	for _, m := range unavailableMarkers {
		if strings.Contains(diag, m) {
			return types.SourceInvalid("the video is unavailable", err)
		}
	}
	return types.SourceInvalid("could not download the video", err)
}
