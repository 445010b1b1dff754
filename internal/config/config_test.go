package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kilupskalvis/mosgal/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_CreatesLayout(t *testing.T) {
	root := t.TempDir()

	cfg, err := Initialize(root)
	require.NoError(t, err)

	for _, dir := range []string{cfg.GalleryPath(), cfg.ThumbsPath(), cfg.PagesPath(), cfg.TemplatesPath()} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}
	assert.FileExists(t, cfg.ConfigPath())
	assert.NoError(t, cfg.Validate())
}

func TestInitialize_Twice(t *testing.T) {
	root := t.TempDir()
	_, err := Initialize(root)
	require.NoError(t, err)

	_, err = Initialize(root)
	assert.Error(t, err)
}

func TestInitialize_MissingRoot(t *testing.T) {
	_, err := Initialize(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, pipeline.ErrRootNotFound)
}

func TestFindRoot_WalksUp(t *testing.T) {
	root := t.TempDir()
	_, err := Initialize(root)
	require.NoError(t, err)

	nested := filepath.Join(root, "iceland", "day1")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := FindRoot(nested)
	require.NoError(t, err)

	want, _ := filepath.Abs(root)
	assert.Equal(t, want, found)
}

func TestFindRoot_NotGallery(t *testing.T) {
	_, err := FindRoot(t.TempDir())
	assert.ErrorIs(t, err, ErrNotGallery)
}

func TestLoad_RoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg, err := Initialize(root)
	require.NoError(t, err)

	cfg.Site.Name = "Holidays"
	cfg.Crawl.OnError = "skip"
	cfg.Catalog.Backend = "bolt"
	require.NoError(t, cfg.Save())

	loaded, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, "Holidays", loaded.Site.Name)
	assert.Equal(t, pipeline.PolicySkip, loaded.Policy())
	assert.Equal(t, "bolt", loaded.Catalog.Backend)
	assert.Equal(t, cfg.Collections, loaded.Collections)
	assert.Equal(t, cfg.Thumbnails, loaded.Thumbnails)
	assert.Equal(t, cfg.Root(), loaded.Root())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := Initialize(root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(cfg.ConfigPath(), []byte("[site]\nname = \"Trips\"\n"), 0644))

	loaded, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, "Trips", loaded.Site.Name)
	assert.Equal(t, "small", loaded.Site.PictureThumbnail)
	assert.Equal(t, Default().Crawl.Extensions, loaded.Crawl.Extensions)
	assert.Len(t, loaded.Collections, 4)
}

func TestLoad_S3CredentialsFromEnv(t *testing.T) {
	root := t.TempDir()
	cfg, err := Initialize(root)
	require.NoError(t, err)

	cfg.Assets.Strategy = "s3"
	cfg.Assets.S3.Endpoint = "localhost:9000"
	cfg.Assets.S3.Bucket = "gallery"
	require.NoError(t, cfg.Save())

	t.Setenv(EnvS3AccessKey, "minio")
	t.Setenv(EnvS3SecretKey, "minio123")

	loaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "minio", loaded.Assets.S3.AccessKey)
	assert.Equal(t, "minio123", loaded.Assets.S3.SecretKey)
}

func TestLoad_InvalidConfig(t *testing.T) {
	root := t.TempDir()
	cfg, err := Initialize(root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(cfg.ConfigPath(), []byte("[catalog]\nbackend = \"mongo\"\n"), 0644))

	_, err = Load(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"unknown policy", func(c *Config) { c.Crawl.OnError = "retry" }, "on_error"},
		{"no extensions", func(c *Config) { c.Crawl.Extensions = nil }, "extensions"},
		{"bad mode", func(c *Config) { c.Thumbnails[0].Mode = "stretch" }, "stretch"},
		{"crop without height", func(c *Config) { c.Thumbnails[2].Height = 0 }, "needs width and height"},
		{"bad anchor", func(c *Config) { c.Thumbnails[2].Anchor = "middle" }, "middle"},
		{"duplicate thumbnail", func(c *Config) { c.Thumbnails[1].Name = "small" }, "defined twice"},
		{"duplicate collection", func(c *Config) { c.Collections[1].Name = "album" }, "defined twice"},
		{"collection without attribute", func(c *Config) { c.Collections[0].Attribute = "" }, "no attribute"},
		{"unknown index", func(c *Config) { c.Site.Index = []string{"people"} }, "people"},
		{"unknown tile thumbnail", func(c *Config) { c.Site.TileThumbnail = "huge" }, "huge"},
		{"unknown strategy", func(c *Config) { c.Assets.Strategy = "ftp" }, "ftp"},
		{"s3 without bucket", func(c *Config) { c.Assets.Strategy = "s3" }, "bucket"},
		{"zero colors", func(c *Config) { c.Colors.Count = 0 }, "colors.count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_OriginalPictureFull(t *testing.T) {
	cfg := Default()
	cfg.Site.PictureFull = ""
	assert.NoError(t, cfg.Validate())
}

func TestThumbnailLookup(t *testing.T) {
	cfg := Default()

	tag, ok := cfg.Thumbnail("tag")
	require.True(t, ok)
	assert.Equal(t, 300, tag.Width)
	assert.Equal(t, 225, tag.Height)

	_, ok = cfg.Thumbnail("nope")
	assert.False(t, ok)
}

func TestParse_ArrayTablesReplaceDefaults(t *testing.T) {
	cfg, err := parse([]byte(`
[[collections]]
name = "album"
attribute = "parent_directory"

[site]
index = ["album"]
`))
	require.NoError(t, err)

	require.Len(t, cfg.Collections, 1)
	assert.Equal(t, "album", cfg.Collections[0].Name)
	assert.Len(t, cfg.Thumbnails, 3)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Webhooks(t *testing.T) {
	cfg := Default()
	cfg.Notify.Webhooks = []string{"https://hooks.example.com/gallery"}
	assert.NoError(t, cfg.Validate())

	cfg.Notify.Webhooks = []string{"ftp://example.com"}
	assert.ErrorContains(t, cfg.Validate(), "notify.webhooks")
}
