// Package store is the flat output directory of rendered GIFs. File names are
// the only index.
package store

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forPelevin/gifcut/internal/domain/naming"
	"github.com/forPelevin/gifcut/internal/types"
)

const partialPrefix = ".partial-"

var ErrInvalidName = errors.New("invalid artifact name")

type Store struct {
	dir    string
	prefix string
}

// New returns a store rooted at dir whose artifacts are published under
// publicPrefix (for example "/gifs").
func New(dir, publicPrefix string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Store{dir: dir, prefix: "/" + strings.Trim(publicPrefix, "/")}, nil
}

func (s *Store) Dir() string { return s.dir }

// Partial returns a hidden path in the store directory where name can be
// rendered before Commit publishes it.
func (s *Store) Partial(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, partialPrefix+name), nil
}

// Commit atomically publishes a rendered partial under name.
func (s *Store) Commit(partial, name string) (types.Artifact, error) {
	if err := checkName(name); err != nil {
		return types.Artifact{}, err
	}
	dst := filepath.Join(s.dir, name)
	if err := os.Rename(partial, dst); err != nil {
		_ = os.Remove(partial)
		return types.Artifact{}, types.InternalIO("publish artifact", err)
	}
	return s.Stat(name)
}

func (s *Store) PublicPath(name string) string {
	return path.Join(s.prefix, name)
}

// Path resolves name to its file in the store.
func (s *Store) Path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

func (s *Store) Stat(name string) (types.Artifact, error) {
	p, err := s.Path(name)
	if err != nil {
		return types.Artifact{}, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return types.Artifact{}, err
	}
	return types.Artifact{Name: name, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (s *Store) Open(name string) (*os.File, error) {
	p, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// List returns published artifacts, newest first.
func (s *Store) List() ([]types.Artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []types.Artifact
	for _, e := range entries {
		if !e.Type().IsRegular() || checkName(e.Name()) != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, types.Artifact{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].Name > out[j].Name
		}
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

// checkName accepts only plain, visible base names with the artifact
// extension.
func checkName(name string) error {
	switch {
	case name == "", name != filepath.Base(name), strings.ContainsAny(name, `/\`):
		return ErrInvalidName
	case strings.HasPrefix(name, "."):
		return ErrInvalidName
	case !strings.HasSuffix(name, naming.Ext):
		return ErrInvalidName
	}
	return nil
}
