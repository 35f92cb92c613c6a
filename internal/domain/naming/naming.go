package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/forPelevin/gifcut/internal/types"
)

const (
	Ext          = ".gif"
	UploadMarker = "upload"
)

var seq atomic.Uint64

// Artifact builds the output file name for a conversion. The name embeds the
// source token, the requested window and a millisecond timestamp, and ends in
// a short hash suffix so concurrent requests never collide.
func Artifact(kind types.SourceKind, token string, start, dur float64, now time.Time) string {
	src := normalizeSegment(token)
	if src == "" {
		src = "source"
	}
	if kind == types.SourceUpload {
		src = UploadMarker + "_" + src
	}
	ms := now.UTC().UnixMilli()
	seed := fmt.Sprintf("%s|%d|%d", src, now.UTC().UnixNano(), seq.Add(1))
	return fmt.Sprintf("%s_%s_%s_%d-%s%s", src, formatSeconds(start), formatSeconds(dur), ms, hash(seed)[:6], Ext)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// normalizeSegment keeps letters, digits, '-' and '_' and folds everything
// else to a single '-'.
func normalizeSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '_':
			b.WriteRune(r)
			prevDash = false
		case r == '-':
			b.WriteRune(r)
			prevDash = true
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
