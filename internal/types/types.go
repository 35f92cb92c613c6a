package types

import "time"

type SourceKind string

const (
	SourceRemote SourceKind = "remote"
	SourceUpload SourceKind = "upload"
)

type OriginKind string

const (
	OriginRemoteCache     OriginKind = "remote-cache"
	OriginTransientUpload OriginKind = "transient-upload"
)

// Upload is a client-submitted file held in memory until the acquirer persists it.
type Upload struct {
	Bytes    []byte
	FileName string
	MIMEType string
}

type ConversionRequest struct {
	Source     SourceKind
	Identifier string
	Upload     Upload

	Start    float64
	Duration float64
}

type SourceFile struct {
	Path      string
	Origin    OriginKind
	SizeBytes int64
	ModTime   time.Time

	// Token identifies the source in artifact names: the remote identifier or
	// the opaque upload token.
	Token string

	DurationSeconds float64
	IsVideo         bool
}

// Segment is the [Start, Start+Duration) window of a local source file.
type Segment struct {
	Source   string
	Start    float64
	Duration float64
}

type Tier string

const (
	TierOptimized Tier = "optimized"
	TierBaseline  Tier = "baseline"
)

type ConversionResult struct {
	Name       string     `json:"name"`
	PublicPath string     `json:"outputUrl"`
	ByteSize   int64      `json:"fileSizeBytes"`
	Source     SourceKind `json:"source"`
	Tier       Tier       `json:"tier"`
}

type RetentionPolicy struct {
	Dir    string
	MaxAge time.Duration

	// Skip, when set, exempts entries by base name.
	Skip func(name string) bool
}

// Artifact is one entry of the output store.
type Artifact struct {
	Name    string
	Size    int64
	ModTime time.Time
}
