package naming

import (
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forPelevin/gifcut/internal/types"
)

var safeName = regexp.MustCompile(`^[A-Za-z0-9_.-]+\.gif$`)

func TestArtifact_Remote(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 30, 45, 123_000_000, time.UTC)
	got := Artifact(types.SourceRemote, "abc123", 10, 5, now)
	prefix := "abc123_10_5_" + "1770892245123" + "-"
	if !strings.HasPrefix(got, prefix) {
		t.Fatalf("unexpected name %q, want prefix %q", got, prefix)
	}
	if len(got) != len(prefix)+6+len(Ext) {
		t.Fatalf("unexpected suffix length: %s", got)
	}
	if !safeName.MatchString(got) {
		t.Fatalf("name is not path safe: %s", got)
	}
}

func TestArtifact_Upload(t *testing.T) {
	now := time.Unix(0, 0)
	got := Artifact(types.SourceUpload, "2b1e7c1a-9f7e-4d0e-8a55-6a8c1b6d7e10", 2.5, 3, now)
	if !strings.HasPrefix(got, "upload_2b1e7c1a-9f7e-4d0e-8a55-6a8c1b6d7e10_2.5_3_0-") {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestArtifact_HostileToken(t *testing.T) {
	got := Artifact(types.SourceRemote, "../../etc/passwd", 0, 1, time.Unix(1, 0))
	if strings.Contains(got, "/") || strings.Contains(got, "..") {
		t.Fatalf("name leaks path separators: %q", got)
	}
	if !safeName.MatchString(got) {
		t.Fatalf("name is not path safe: %s", got)
	}
}

func TestArtifact_UniqueUnderConcurrency(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	const n = 200
	names := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names <- Artifact(types.SourceRemote, "abc123", 10, 5, now)
		}()
	}
	wg.Wait()
	close(names)

	seen := make(map[string]struct{}, n)
	for name := range names {
		if _, dup := seen[name]; dup {
			t.Fatalf("duplicate name %q", name)
		}
		seen[name] = struct{}{}
	}
}

func TestNormalizeSegment(t *testing.T) {
	tests := map[string]string{
		"abc123":          "abc123",
		"dQw4w9WgXcQ":     "dQw4w9WgXcQ",
		"a_b-c":           "a_b-c",
		"  My Video.mp4 ": "My-Video-mp4",
		"___":             "___",
		"ёжик":            "",
		"../x":            "x",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := normalizeSegment(in); got != want {
				t.Fatalf("normalizeSegment(%q) = %q, want %q", in, got, want)
			}
		})
	}
}
