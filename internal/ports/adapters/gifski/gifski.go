package gifski

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/forPelevin/gifcut/internal/runner"
)

// Quality is the fixed gifski quality target (1-100).
const Quality = 90

type Adapter struct {
	bin string
	run *runner.Runner
}

func New(binPath string, r *runner.Runner) *Adapter {
	if binPath == "" {
		binPath = "gifski"
	}
	if r == nil {
		r = runner.New()
	}
	return &Adapter{bin: binPath, run: r}
}

// Available reports whether the gifski binary can be resolved. It is checked
// per call so installing gifski takes effect without a restart.
func (a *Adapter) Available() bool {
	return runner.Available(a.bin)
}

func (a *Adapter) EncodeFrames(ctx context.Context, frames []string, fps int, out string) error {
	if len(frames) == 0 {
		return errors.New("gifski: no frames")
	}
	args := []string{
		"--output", out,
		"--fps", strconv.Itoa(fps),
		"--quality", strconv.Itoa(Quality),
		"--quiet",
	}
	args = append(args, frames...)
	if _, err := a.run.Run(ctx, runner.Command{Name: a.bin, Args: args}); err != nil {
		return fmt.Errorf("gifski encode: %w", err)
	}
	return nil
}
