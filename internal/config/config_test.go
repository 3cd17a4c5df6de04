package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dspacex/msview/internal/scene"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Full(t *testing.T) {
	path := writeFile(t, "msview.yaml", `
server:
  url: ws://dspacex:7681
  dial_timeout: 5s
  partition_cache_size: 16
decomposition:
  dataset_id: 1
  category: param
  field: x
  mode: isomap
  k: 8
  persistence_level: 3
model:
  sample_count: 20
  validate: true
view:
  camera: perspective
log:
  level: debug
  format: json
metrics:
  addr: ":9090"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ws://dspacex:7681", cfg.Server.URL)
	assert.Equal(t, 5*time.Second, cfg.Server.DialTimeout)
	assert.Equal(t, 16, cfg.Server.PartitionCacheSize)
	assert.Equal(t, scene.Descriptor{
		DatasetID: 1, Category: "param", Field: "x", Mode: "isomap", K: 8, PersistenceLevel: 3,
	}, cfg.Decomposition)
	assert.Equal(t, 20, cfg.Model.SampleCount)
	assert.Equal(t, 1, cfg.Model.ScrubSampleCount, "default applied")
	assert.True(t, cfg.Model.Validate)
	assert.Equal(t, "perspective", cfg.View.Camera)
	assert.Equal(t, 1024, cfg.View.Width)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("server: ["))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.View.Camera = "fisheye"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Decomposition = scene.Descriptor{DatasetID: 1, Category: "param", Field: "x", K: 0}
	assert.Error(t, cfg.Validate())

	cfg.Decomposition.K = 4
	cfg.Decomposition.PersistenceLevel = -1
	assert.Error(t, cfg.Validate())
}

func TestLoadDescriptor(t *testing.T) {
	path := writeFile(t, "decomposition.yaml", `
dataset_id: 2
category: qoi
field: y
k: 15
persistence_level: 4
`)
	d, err := LoadDescriptor(path)
	require.NoError(t, err)
	assert.Equal(t, 15, d.K)
	assert.Equal(t, "qoi", d.Category)

	bad := writeFile(t, "bad.yaml", "k: 0\n")
	_, err = LoadDescriptor(bad)
	assert.Error(t, err)

	_, err = LoadDescriptor(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}
