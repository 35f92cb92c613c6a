package ports

import (
	"context"

	"github.com/forPelevin/gifcut/internal/types"
)

// Fetcher downloads the remote video id into dest.
type Fetcher interface {
	Fetch(ctx context.Context, id, dest string) error
}

type Prober interface {
	IsVideo(ctx context.Context, path string) (bool, error)
	Duration(ctx context.Context, path string) (float64, error)
}

// BaselineEncoder renders a segment to a GIF in a single filter-graph pass.
type BaselineEncoder interface {
	EncodeGIF(ctx context.Context, seg types.Segment, out string) error
}

// FrameExtractor decodes a segment to numbered still frames inside dir and
// returns their paths in order.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, seg types.Segment, dir string) ([]string, error)
}

// FrameEncoder assembles still frames into a GIF.
type FrameEncoder interface {
	Available() bool
	EncodeFrames(ctx context.Context, frames []string, fps int, out string) error
}

type SourceAcquirer interface {
	Remote(ctx context.Context, id string) (types.SourceFile, error)
	// Upload persists u and returns a release func that deletes it.
	Upload(ctx context.Context, u types.Upload) (types.SourceFile, func(), error)
	// Evict drops a cached remote source that turned out to be unusable.
	Evict(ctx context.Context, src types.SourceFile) error
}

type Transcoder interface {
	Render(ctx context.Context, seg types.Segment, out string) (types.Tier, error)
}

type ArtifactStore interface {
	Partial(name string) (string, error)
	Commit(partial, name string) (types.Artifact, error)
	PublicPath(name string) string
}
