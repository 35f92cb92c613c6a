// Package runner executes external command-line tools without a shell.
//
// Each invocation is described by a Command, keeps only a bounded tail of its
// stdout and stderr, runs in its own process group, and is terminated
// together with its children when the context ends.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultMaxOutput is the number of trailing bytes kept per output stream.
const DefaultMaxOutput = 64 * 1024

const defaultWaitDelay = 5 * time.Second

type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string

	// MaxOutput bounds the retained tail of stdout and stderr each.
	MaxOutput int
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

type Result struct {
	Stdout    string
	Stderr    string
	Truncated bool
	Elapsed   time.Duration
}

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindStart
	KindExit
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not-found"
	case KindStart:
		return "start"
	case KindExit:
		return "exit"
	case KindCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the classified failure of a Command.
type Error struct {
	Kind     Kind
	Name     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Name, e.Kind)
	if e.Kind == KindExit {
		msg = fmt.Sprintf("%s: exit status %d", e.Name, e.ExitCode)
	}
	if e.Err != nil && e.Kind != KindExit {
		msg += ": " + e.Err.Error()
	}
	if d := e.Diagnostic(); d != "" {
		msg += "\n" + d
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Diagnostic returns the last few non-empty stderr lines.
func (e *Error) Diagnostic() string {
	return lastLines(e.Stderr, 8)
}

// IsKind reports whether err is a runner error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

type Runner struct {
	// WaitDelay bounds how long Run waits for output pipes after the
	// process group was killed.
	WaitDelay time.Duration
}

func New() *Runner {
	return &Runner{WaitDelay: defaultWaitDelay}
}

// Available reports whether name resolves to an executable.
func Available(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}

func (r *Runner) Run(ctx context.Context, c Command) (Result, error) {
	path, err := exec.LookPath(c.Name)
	if err != nil {
		return Result{}, &Error{Kind: KindNotFound, Name: c.Name, Err: err}
	}

	limit := c.MaxOutput
	if limit <= 0 {
		limit = DefaultMaxOutput
	}
	stdout := newTailBuffer(limit)
	stderr := newTailBuffer(limit)

	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = c.Env
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}
	setProcessGroup(cmd)

	start := time.Now()
	runErr := cmd.Run()
	res := Result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.Truncated() || stderr.Truncated(),
		Elapsed:   time.Since(start),
	}
	if runErr == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, &Error{Kind: KindCanceled, Name: c.Name, Stderr: res.Stderr, Err: ctxErr}
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return res, &Error{Kind: KindExit, Name: c.Name, ExitCode: exitErr.ExitCode(), Stderr: res.Stderr, Err: runErr}
	}
	return res, &Error{Kind: KindStart, Name: c.Name, Stderr: res.Stderr, Err: runErr}
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	out := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(out) < n; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			out = append(out, l)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return strings.Join(out, "\n")
}
