//go:build integration

package itest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

const cliTimeout = 30 * time.Second

type robustCase struct {
	name            string
	args            func(t *testing.T, repoRoot string) []string
	env             map[string]string
	wantContains    []string
	wantNotContains []string
}

type cliRunResult struct {
	exitCode int
	output   string
}

func TestRobustness_ArgsValidation(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name:         "no args",
			args:         staticArgs("convert"),
			wantContains: []string{"accepts 1 arg(s), received 0"},
		},
		{
			name:         "too many args",
			args:         staticArgs("convert", "dQw4w9WgXcQ", "extra"),
			wantContains: []string{"accepts 1 arg(s), received 2"},
		},
		{
			name:         "unknown flag",
			args:         staticArgs("convert", "dQw4w9WgXcQ", "--wat"),
			wantContains: []string{"unknown flag: --wat"},
		},
		{
			name:         "duration too long",
			args:         staticArgs("convert", "dQw4w9WgXcQ", "--duration", "31"),
			wantContains: []string{"duration must be between 1 and 30 seconds"},
		},
		{
			name:         "negative start",
			args:         staticArgs("convert", "dQw4w9WgXcQ", "--start", "-1"),
			wantContains: []string{"start time must be a number >= 0"},
		},
		{
			name:         "malformed timestamp",
			args:         staticArgs("convert", "dQw4w9WgXcQ", "--start", "1:75"),
			wantContains: []string{`invalid timestamp "1:75"`},
		},
		{
			name:         "foreign host",
			args:         staticArgs("convert", "https://vimeo.com/123456"),
			wantContains: []string{"unrecognized video URL"},
		},
		{
			name:         "serve takes no args",
			args:         staticArgs("serve", "extra"),
			wantContains: []string{`unknown command "extra"`},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func TestRobustness_InvalidInputMedia(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name: "non media file",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				p := filepath.Join(t.TempDir(), "notes.mp4")
				if err := os.WriteFile(p, []byte("plain text, not a video"), 0o644); err != nil {
					t.Fatalf("write fixture: %v", err)
				}
				return []string{"convert", p}
			},
			wantContains: []string{"SourceInvalid", "the file is not a valid video"},
		},
		{
			name: "disallowed extension",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				p := filepath.Join(t.TempDir(), "notes.txt")
				if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
					t.Fatalf("write fixture: %v", err)
				}
				return []string{"convert", p}
			},
			wantContains: []string{"file type not allowed"},
		},
		{
			name: "input is directory",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				return []string{"convert", t.TempDir()}
			},
			wantContains: []string{"is not a regular file"},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func TestRobustness_ConfigHardening(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name:         "missing explicit config",
			args:         staticArgs("convert", "dQw4w9WgXcQ", "--config", "/nonexistent/gifcut.toml"),
			wantContains: []string{"config: stat config:"},
		},
		{
			name:         "bad duration env",
			args:         staticArgs("sweep"),
			env:          map[string]string{"GIFCUT_CACHE_MAX_AGE": "soon"},
			wantContains: []string{"GIFCUT_CACHE_MAX_AGE"},
		},
		{
			name:         "bad log level",
			args:         staticArgs("list", "--log-level", "loud"),
			wantContains: []string{"config:"},
		},
		{
			name:         "root public prefix",
			args:         staticArgs("list"),
			env:          map[string]string{"GIFCUT_PUBLIC_PREFIX": "/"},
			wantContains: []string{"public_prefix must not be the root path"},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func runRobustCases(t *testing.T, repoRoot string, cases []robustCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := runCLI(t, repoRoot, tc.args(t, repoRoot), tc.env)
			if res.exitCode == 0 {
				t.Fatalf("expected non-zero exit code, got 0\noutput:\n%s", res.output)
			}
			for _, want := range tc.wantContains {
				if !strings.Contains(res.output, want) {
					t.Fatalf("expected output to contain %q\noutput:\n%s", want, res.output)
				}
			}
			for _, notWant := range tc.wantNotContains {
				if strings.Contains(res.output, notWant) {
					t.Fatalf("expected output to not contain %q\noutput:\n%s", notWant, res.output)
				}
			}
		})
	}
}

func runCLI(t *testing.T, repoRoot string, args []string, env map[string]string) cliRunResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	cmdArgs := append([]string{"run", "./cmd/gifcut"}, args...)
	cmd := exec.CommandContext(ctx, "go", cmdArgs...)
	cmd.Dir = repoRoot
	cmd.Env = mergeEnv(
		os.Environ(),
		map[string]string{
			"NO_COLOR":        "1",
			"TERM":            "dumb",
			"GIFCUT_CONFIG":   "",
			"GIFCUT_DATA_DIR": t.TempDir(),
		},
		env,
	)

	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("command timed out after %s: go %s", cliTimeout, strings.Join(cmdArgs, " "))
	}

	res := cliRunResult{output: string(out)}
	if err == nil {
		res.exitCode = 0
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
		return res
	}

	t.Fatalf("run command: %v\noutput:\n%s", err, string(out))
	return cliRunResult{}
}

func mergeEnv(base []string, overrides ...map[string]string) []string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		env[kv[:i]] = kv[i+1:]
	}

	for _, set := range overrides {
		for k, v := range set {
			env[k] = v
		}
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}

// mustRepoRoot walks up from the test's working directory to the module root
// so `go run ./cmd/gifcut` resolves.
func mustRepoRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("working directory: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("no go.mod above the test directory")
		}
		dir = parent
	}
}

func staticArgs(args ...string) func(t *testing.T, _ string) []string {
	clone := append([]string(nil), args...)
	return func(t *testing.T, _ string) []string {
		t.Helper()
		return append([]string(nil), clone...)
	}
}
