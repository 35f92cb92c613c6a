package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/forPelevin/gifcut/internal/runner"
	"github.com/forPelevin/gifcut/internal/types"
)

func TestArgs(t *testing.T) {
	a := New("", 600, nil)
	got := strings.Join(a.args("abc123", "/cache/abc123.mp4"), " ")
	for _, want := range []string{
		"--user-agent Mozilla/5.0",
		"--extractor-args youtube:player_client=android,web",
		"-f " + formatSelector,
		"--match-filter duration <= 600",
		"--no-mtime",
		"-o /cache/abc123.mp4 https://www.youtube.com/watch?v=abc123",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("args %q missing %q", got, want)
		}
	}
	if strings.Contains(strings.Join(New("", 0, nil).args("x", "y"), " "), "--match-filter") {
		t.Fatalf("match filter should be omitted without a ceiling")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.Category
	}{
		{
			name: "bot check",
			err:  &runner.Error{Kind: runner.KindExit, ExitCode: 1, Stderr: "ERROR: [youtube] abc: Sign in to confirm you're not a bot"},
			want: types.CategorySourceBlocked,
		},
		{
			name: "forbidden",
			err:  &runner.Error{Kind: runner.KindExit, ExitCode: 1, Stderr: "ERROR: unable to download video data: HTTP Error 403: Forbidden"},
			want: types.CategorySourceBlocked,
		},
		{
			name: "throttled",
			err:  &runner.Error{Kind: runner.KindExit, ExitCode: 1, Stderr: "HTTP Error 429: Too Many Requests"},
			want: types.CategorySourceBlocked,
		},
		{
			name: "unavailable",
			err:  &runner.Error{Kind: runner.KindExit, ExitCode: 1, Stderr: "ERROR: [youtube] abc: Video unavailable"},
			want: types.CategorySourceInvalid,
		},
		{
			name: "generic",
			err:  &runner.Error{Kind: runner.KindExit, ExitCode: 1, Stderr: "ERROR: something odd"},
			want: types.CategorySourceInvalid,
		},
		{
			name: "missing binary",
			err:  &runner.Error{Kind: runner.KindNotFound, Name: "yt-dlp", Err: errors.New("not found")},
			want: types.CategoryInternalIO,
		},
		{
			name: "canceled",
			err:  &runner.Error{Kind: runner.KindCanceled, Err: context.Canceled},
			want: types.CategoryTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if c := types.CategoryOf(got); c != tt.want {
				t.Fatalf("category = %s, want %s (%v)", c, tt.want, got)
			}
			var e *types.Error
			if tt.want == types.CategorySourceBlocked && (!errors.As(got, &e) || e.Hint == "") {
				t.Fatalf("blocked error must carry a hint: %v", got)
			}
		})
	}
}

func TestFetch_WithFakeBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	dir := t.TempDir()
	ok := writeScript(t, dir, "ytdlp-ok", `
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then printf 'data' > "$2"; fi
  shift
done
`)
	filtered := writeScript(t, dir, "ytdlp-filtered", `echo "abc123 does not pass filter (duration <= 600), skipping .."`)

	dest := filepath.Join(dir, "abc123.mp4")
	if err := New(ok, 600, nil).Fetch(context.Background(), "abc123", dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if b, _ := os.ReadFile(dest); string(b) != "data" {
		t.Fatalf("unexpected downloaded content %q", b)
	}

	err := New(filtered, 600, nil).Fetch(context.Background(), "abc123", filepath.Join(dir, "other.mp4"))
	if types.CategoryOf(err) != types.CategorySourceInvalid {
		t.Fatalf("filtered video should be SourceInvalid, got %v", err)
	}
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return p
}
