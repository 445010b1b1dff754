package pipeline

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// touch creates an empty file (and its parents) under root
func touch(t *testing.T, root string, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, nil, 0644))
	return path
}

func seekSources(t *testing.T, s Seeker) []string {
	t.Helper()
	var sources []string
	for rec, err := range s.Seek() {
		require.NoError(t, err)
		sources = append(sources, rec.Source)
	}
	return sources
}

func TestDirSeeker_MatchesExtensions(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "iceland/a.jpg")
	touch(t, root, "iceland/b.JPG")
	touch(t, root, "iceland/c.png")
	touch(t, root, "iceland/notes.txt")
	touch(t, root, "d.jpeg")

	s := &DirSeeker{Root: root, Extensions: []string{"jpg", "jpeg"}}
	sources := seekSources(t, s)

	// extension matching is case-sensitive
	assert.Equal(t, []string{"d.jpeg", "iceland/a.jpg"}, sources)
}

func TestDirSeeker_RecordsCarryPaths(t *testing.T) {
	root := t.TempDir()
	path := touch(t, root, "album/a.jpg")

	s := &DirSeeker{Root: root, Extensions: []string{"jpg"}}
	for rec, err := range s.Seek() {
		require.NoError(t, err)
		assert.Equal(t, "album/a.jpg", rec.Source)
		abs, _ := filepath.Abs(path)
		assert.Equal(t, abs, rec.Path)
		assert.Empty(t, rec.Attributes)
	}
}

func TestDirSeeker_ExcludeSubstring(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "keep/a.jpg")
	touch(t, root, "keep/a.thumb.jpg")
	touch(t, root, "private/b.jpg")

	s := &DirSeeker{Root: root, Extensions: []string{"jpg"}, Exclude: []string{".thumb.", "private"}}
	assert.Equal(t, []string{"keep/a.jpg"}, seekSources(t, s))
}

func TestDirSeeker_ExcludeDirsSkipsSubtree(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "album/a.jpg")
	touch(t, root, "drafts/b.jpg")
	touch(t, root, "album/drafts/c.jpg")
	touch(t, root, "drafts-2021/d.jpg")

	s := &DirSeeker{Root: root, Extensions: []string{"jpg"}, ExcludeDirs: []string{"drafts"}}
	assert.Equal(t, []string{"album/a.jpg", "drafts-2021/d.jpg"}, seekSources(t, s))
}

func TestDirSeeker_MissingRoot(t *testing.T) {
	s := &DirSeeker{Root: filepath.Join(t.TempDir(), "nope"), Extensions: []string{"jpg"}}

	var errs []error
	for rec, err := range s.Seek() {
		assert.Nil(t, rec)
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], ErrRootNotFound))
}

func TestDirSeeker_RootIsFile(t *testing.T) {
	root := t.TempDir()
	file := touch(t, root, "a.jpg")

	s := &DirSeeker{Root: file, Extensions: []string{"jpg"}}
	for _, err := range s.Seek() {
		assert.ErrorIs(t, err, ErrRootNotFound)
	}
}

func TestDirSeeker_NotRestartable(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.jpg")

	s := &DirSeeker{Root: root, Extensions: []string{"jpg"}}
	assert.Len(t, seekSources(t, s), 1)

	for _, err := range s.Seek() {
		assert.ErrorIs(t, err, ErrSeekerExhausted)
	}
}

func TestDirSeeker_EarlyStop(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.jpg")
	touch(t, root, "b.jpg")
	touch(t, root, "c.jpg")

	s := &DirSeeker{Root: root, Extensions: []string{"jpg"}}
	count := 0
	for _, err := range s.Seek() {
		require.NoError(t, err)
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestDirSeeker_Deterministic(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"b/2.jpg", "a/1.jpg", "b/1.jpg", "c.jpg"} {
		touch(t, root, rel)
	}

	first := seekSources(t, &DirSeeker{Root: root, Extensions: []string{"jpg"}})
	second := seekSources(t, &DirSeeker{Root: root, Extensions: []string{"jpg"}})
	assert.Equal(t, first, second)
}

func TestDirSeeker_UnreadableDirectoryIsError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := t.TempDir()
	touch(t, root, "a/1.jpg")
	locked := filepath.Join(root, "b")
	touch(t, root, "b/2.jpg")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	var walkErr error
	for _, err := range (&DirSeeker{Root: root, Extensions: []string{"jpg"}}).Seek() {
		if err != nil {
			walkErr = err
		}
	}
	require.Error(t, walkErr)
	assert.ErrorIs(t, walkErr, fs.ErrPermission)
	assert.Contains(t, walkErr.Error(), locked)

	// the skip policy covers transform errors only
	fe := &Fetcher{Seeker: &DirSeeker{Root: root, Extensions: []string{"jpg"}}, Policy: PolicySkip}
	_, err := fe.All()
	assert.ErrorIs(t, err, fs.ErrPermission)
}
