package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kilupskalvis/mosgal/internal/models"
)

// Seeker discovers files. The returned sequence is lazy, finite and may be
// consumed only once.
type Seeker interface {
	Seek() iter.Seq2[*models.FileRecord, error]
}

// DirSeeker walks Root recursively and yields one record per file whose
// name ends in one of Extensions (case-sensitive) and whose full path
// contains none of the Exclude substrings. Directories named in
// ExcludeDirs are not descended into.
type DirSeeker struct {
	Root        string
	Extensions  []string
	Exclude     []string
	ExcludeDirs []string

	used bool
}

// Seek walks the directory tree. Records carry the slash-separated path
// relative to Root as their source.
func (s *DirSeeker) Seek() iter.Seq2[*models.FileRecord, error] {
	return func(yield func(*models.FileRecord, error) bool) {
		if s.used {
			yield(nil, ErrSeekerExhausted)
			return
		}
		s.used = true

		root, err := s.checkRoot()
		if err != nil {
			yield(nil, err)
			return
		}

		stopped := false
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				if path != root && slices.Contains(s.ExcludeDirs, d.Name()) {
					return fs.SkipDir
				}
				return nil
			}

			if !s.Matches(path) {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return fmt.Errorf("relative path of %s: %w", path, err)
			}

			if !yield(models.NewFileRecord(filepath.ToSlash(rel), path), nil) {
				stopped = true
				return fs.SkipAll
			}
			return nil
		})

		if walkErr != nil && !stopped {
			yield(nil, fmt.Errorf("walk %s: %w", root, walkErr))
		}
	}
}

// Matches reports whether path passes the extension and exclusion rules
func (s *DirSeeker) Matches(path string) bool {
	for _, e := range s.Exclude {
		if e != "" && strings.Contains(path, e) {
			return false
		}
	}

	name := filepath.Base(path)
	for _, ext := range s.Extensions {
		if strings.HasSuffix(name, "."+ext) {
			return true
		}
	}
	return false
}

func (s *DirSeeker) checkRoot() (string, error) {
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", s.Root, err)
	}

	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}
	if err != nil {
		return "", fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, root)
	}
	return root, nil
}

// StaticSeeker yields a fixed list of records, in order
type StaticSeeker struct {
	Records []*models.FileRecord

	used bool
}

// Seek yields the records
func (s *StaticSeeker) Seek() iter.Seq2[*models.FileRecord, error] {
	return func(yield func(*models.FileRecord, error) bool) {
		if s.used {
			yield(nil, ErrSeekerExhausted)
			return
		}
		s.used = true

		for _, r := range s.Records {
			if !yield(r, nil) {
				return
			}
		}
	}
}
