package validate

import (
	"fmt"
	"math"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/forPelevin/gifcut/internal/types"
)

const (
	MinDuration = 1.0
	MaxDuration = 30.0

	// MaxUploadBytes is the upload size ceiling (100 MiB).
	MaxUploadBytes = 100 << 20

	// MaxSourceSeconds is the longest source video accepted.
	MaxSourceSeconds = 600.0
)

var allowedExtensions = []string{"mp4", "webm", "mov", "avi", "mkv", "flv", "mpeg", "mpg", "wmv", "3gp"}

var allowedMIMETypes = map[string]struct{}{
	"video/mp4":                {},
	"video/webm":               {},
	"video/quicktime":          {},
	"video/x-msvideo":          {},
	"video/x-matroska":         {},
	"video/x-flv":              {},
	"video/mpeg":               {},
	"video/x-ms-wmv":           {},
	"video/3gpp":               {},
	"application/octet-stream": {},
}

// Request checks r without touching disk or network. On success it returns
// r with Identifier replaced by its canonical form.
func Request(r types.ConversionRequest) (types.ConversionRequest, error) {
	var fields []types.FieldError

	switch r.Source {
	case types.SourceRemote:
		id, err := ExtractIdentifier(r.Identifier)
		if err != nil {
			fields = append(fields, types.FieldError{Field: "identifier", Message: err.Error()})
		}
		r.Identifier = id
	case types.SourceUpload:
		fields = append(fields, uploadFields(r.Upload)...)
	default:
		fields = append(fields, types.FieldError{Field: "sourceKind", Message: fmt.Sprintf("unknown source kind %q", r.Source)})
	}

	fields = append(fields, windowFields(r.Start, r.Duration)...)

	if len(fields) > 0 {
		return r, types.InvalidRequest(fields...)
	}
	return r, nil
}

func windowFields(start, dur float64) []types.FieldError {
	var fields []types.FieldError
	if math.IsNaN(start) || math.IsInf(start, 0) || start < 0 {
		fields = append(fields, types.FieldError{Field: "startTime", Message: "start time must be a number >= 0"})
	}
	if math.IsNaN(dur) || dur < MinDuration || dur > MaxDuration {
		fields = append(fields, types.FieldError{
			Field:   "duration",
			Message: fmt.Sprintf("duration must be between %g and %g seconds", MinDuration, MaxDuration),
		})
	}
	return fields
}

func uploadFields(u types.Upload) []types.FieldError {
	var fields []types.FieldError
	switch size := len(u.Bytes); {
	case size == 0:
		fields = append(fields, types.FieldError{Field: "file", Message: "file is empty"})
	case size > MaxUploadBytes:
		fields = append(fields, types.FieldError{
			Field:   "file",
			Message: fmt.Sprintf("file size exceeds maximum of %s", humanize.IBytes(MaxUploadBytes)),
		})
	}
	if _, ok := UploadExtension(u.FileName); !ok {
		fields = append(fields, types.FieldError{
			Field:   "fileName",
			Message: "file type not allowed; supported formats: " + strings.Join(allowedExtensions, ", "),
		})
	}
	if !AllowedMIMEType(u.MIMEType) {
		fields = append(fields, types.FieldError{Field: "mimeType", Message: fmt.Sprintf("invalid file MIME type %q", u.MIMEType)})
	}
	return fields
}

// UploadExtension returns the lowercased extension of name including the dot
// when it is in the container allow-list.
func UploadExtension(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	bare := strings.TrimPrefix(ext, ".")
	for _, a := range allowedExtensions {
		if bare == a {
			return ext, true
		}
	}
	return "", false
}

// AllowedMIMEType reports whether the declared content type is acceptable.
// The check is advisory; the prober decides whether the file is a video.
func AllowedMIMEType(declared string) bool {
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return false
	}
	_, ok := allowedMIMETypes[mt]
	return ok
}

var extensionMIMETypes = map[string]string{
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"flv":  "video/x-flv",
	"mpeg": "video/mpeg",
	"mpg":  "video/mpeg",
	"wmv":  "video/x-ms-wmv",
	"3gp":  "video/3gpp",
}

// MIMETypeFor returns the accepted content type for a file name, or
// application/octet-stream when the extension is not on the allow-list.
// It does not consult the host's MIME database.
func MIMETypeFor(name string) string {
	ext, ok := UploadExtension(name)
	if !ok {
		return "application/octet-stream"
	}
	return extensionMIMETypes[strings.TrimPrefix(ext, ".")]
}

// AllowedExtensions returns the container allow-list.
func AllowedExtensions() []string {
	return append([]string(nil), allowedExtensions...)
}

// Segment checks a validated window against the probed source duration.
func Segment(start, dur, sourceSeconds float64) error {
	const epsilon = 1e-3
	if start+dur > sourceSeconds+epsilon {
		msg := fmt.Sprintf("segment %s-%s exceeds the video length %s",
			FormatTimestamp(start), FormatTimestamp(start+dur), FormatTimestamp(sourceSeconds))
		return types.InvalidRequest(types.FieldError{Field: "startTime", Message: msg})
	}
	return nil
}

// SourceDuration checks a probed duration against the accepted range.
func SourceDuration(seconds float64) error {
	if math.IsNaN(seconds) || seconds <= 0 {
		return types.SourceInvalid("the video has no playable duration", nil)
	}
	if seconds > MaxSourceSeconds {
		return types.SourceInvalid(fmt.Sprintf("video is longer than %s", FormatTimestamp(MaxSourceSeconds)), nil)
	}
	return nil
}
