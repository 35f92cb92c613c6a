//go:build unix

package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRun_Success(t *testing.T) {
	r := New()
	res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo out; echo err >&2"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "out" {
		t.Fatalf("stdout = %q", res.Stdout)
	}
	if strings.TrimSpace(res.Stderr) != "err" {
		t.Fatalf("stderr = %q", res.Stderr)
	}
	if res.Truncated {
		t.Fatalf("unexpected truncation")
	}
}

func TestRun_ExitCodeAndDiagnostic(t *testing.T) {
	r := New()
	_, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo first >&2; echo second >&2; exit 3"}})
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *Error, got %T %v", err, err)
	}
	if rerr.Kind != KindExit || rerr.ExitCode != 3 {
		t.Fatalf("unexpected error: kind=%s code=%d", rerr.Kind, rerr.ExitCode)
	}
	if rerr.Diagnostic() != "first\nsecond" {
		t.Fatalf("diagnostic = %q", rerr.Diagnostic())
	}
	if !strings.Contains(err.Error(), "exit status 3") {
		t.Fatalf("error text = %q", err.Error())
	}
}

func TestRun_NotFound(t *testing.T) {
	r := New()
	_, err := r.Run(context.Background(), Command{Name: "definitely-not-a-real-binary-xyz"})
	if !IsKind(err, KindNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestRun_CanceledKillsProcess(t *testing.T) {
	r := &Runner{WaitDelay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, Command{Name: "sh", Args: []string{"-c", "sleep 30 & wait"}})
	if !IsKind(err, KindCanceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline in chain, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("cancellation took too long: %s", elapsed)
	}
}

func TestRun_OutputBounded(t *testing.T) {
	r := New()
	res, err := r.Run(context.Background(), Command{
		Name:      "sh",
		Args:      []string{"-c", "i=0; while [ $i -lt 200 ]; do echo line$i; i=$((i+1)); done"},
		MaxOutput: 64,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Stdout) != 64 {
		t.Fatalf("expected 64 retained bytes, got %d", len(res.Stdout))
	}
	if !res.Truncated {
		t.Fatalf("expected truncated flag")
	}
	if !strings.HasSuffix(res.Stdout, "line199\n") {
		t.Fatalf("expected tail to be kept, got %q", res.Stdout)
	}
}

func TestTailBuffer(t *testing.T) {
	b := newTailBuffer(5)
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("de"))
	if b.String() != "abcde" || b.Truncated() {
		t.Fatalf("unexpected state %q truncated=%v", b.String(), b.Truncated())
	}
	_, _ = b.Write([]byte("fg"))
	if b.String() != "cdefg" || !b.Truncated() {
		t.Fatalf("unexpected state %q truncated=%v", b.String(), b.Truncated())
	}
	_, _ = b.Write([]byte("0123456789"))
	if b.String() != "56789" {
		t.Fatalf("unexpected state %q", b.String())
	}
}

func TestLastLines(t *testing.T) {
	in := "a\n\nb\nc\n  \nd\n"
	if got := lastLines(in, 2); got != "c\nd" {
		t.Fatalf("lastLines = %q", got)
	}
}
