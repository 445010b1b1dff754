package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func source(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, os.WriteFile(src, []byte("jpeg bytes"), 0644))
	return src
}

func TestFSPlacer_Copy(t *testing.T) {
	src := source(t)
	dest := t.TempDir()
	p, err := NewFSPlacer(StrategyCopy)
	require.NoError(t, err)

	url, err := p.Place(context.Background(), src, dest, "img/iceland-a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "img/iceland-a.jpg", url)

	data, err := os.ReadFile(filepath.Join(dest, "img", "iceland-a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	info, err := os.Lstat(filepath.Join(dest, "img", "iceland-a.jpg"))
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())
}

func TestFSPlacer_Link(t *testing.T) {
	src := source(t)
	dest := t.TempDir()
	p, err := NewFSPlacer(StrategyLink)
	require.NoError(t, err)

	for range 2 {
		_, err = p.Place(context.Background(), src, dest, "img/a.jpg")
		require.NoError(t, err)
	}

	target, err := os.Readlink(filepath.Join(dest, "img", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, src, target)
}

func TestNewFSPlacer(t *testing.T) {
	p, err := NewFSPlacer("")
	require.NoError(t, err)
	assert.Equal(t, StrategyCopy, p.Strategy)

	_, err = NewFSPlacer("teleport")
	assert.Error(t, err)
}

func TestFSPlacer_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, _ := NewFSPlacer(StrategyCopy)

	_, err := p.Place(ctx, source(t), t.TempDir(), "img/a.jpg")
	assert.ErrorIs(t, err, context.Canceled)
}

// mockUploader records uploads
type mockUploader struct {
	bucket, key, file, contentType string
	err                            error
}

func (m *mockUploader) FPutObject(ctx context.Context, bucket, key, file string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	m.bucket, m.key, m.file, m.contentType = bucket, key, file, opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: key}, m.err
}

func TestS3Placer_Place(t *testing.T) {
	mock := &mockUploader{}
	p := newS3Placer(mock, "photos", "/gallery/", "https://cdn.example.com/photos/")

	url, err := p.Place(context.Background(), "/pics/a.jpg", "/unused", "img/iceland-a.jpg")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/photos/gallery/img/iceland-a.jpg", url)
	assert.Equal(t, "photos", mock.bucket)
	assert.Equal(t, "gallery/img/iceland-a.jpg", mock.key)
	assert.Equal(t, "/pics/a.jpg", mock.file)
	assert.Equal(t, "image/jpeg", mock.contentType)
}

func TestS3Placer_UploadError(t *testing.T) {
	boom := errors.New("access denied")
	p := newS3Placer(&mockUploader{err: boom}, "photos", "", "http://localhost:9000/photos")

	_, err := p.Place(context.Background(), "/pics/a.jpg", "", "img/a.jpg")
	assert.ErrorIs(t, err, boom)
}

func TestS3Placer_KeyWithoutPrefix(t *testing.T) {
	p := newS3Placer(&mockUploader{}, "photos", "", "")
	assert.Equal(t, "img/a.jpg", p.Key("/img/a.jpg"))
}

func TestNewS3Placer_RequiresBucket(t *testing.T) {
	_, err := NewS3Placer(S3Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)

	p, err := NewS3Placer(S3Config{Endpoint: "localhost:9000", Bucket: "photos"})
	require.NoError(t, err)
	assert.Equal(t, "s3 photos/", p.Describe())
}
