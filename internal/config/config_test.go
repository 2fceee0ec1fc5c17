package config

import (
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Recommend.TopN)
	assert.Equal(t, 3, cfg.Recommend.TopClusters)
	assert.Equal(t, 5, cfg.Recommend.ReposPerCluster)
	assert.Equal(t, "cosine", cfg.Recommend.SimilarityMethod)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv(PathEnvVar, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "repomatch.yaml")
	want := Default()
	want.Account.Username = "alice"
	want.Recommend.TopN = 7
	want.Recommend.SimilarityMethod = "euclidean"
	want.Storage.DBPath = "/tmp/repos.db"
	want.Batch.RatePerSecond = 1.5
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, Save(path, Default()))
	t.Setenv("REPOMATCH_RECOMMEND__TOP_N", "25")
	t.Setenv("REPOMATCH_BATCH__RATE_PER_SECOND", "2.5")
	t.Setenv("REPOMATCH_LOGGING__FORMAT", "console")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Recommend.TopN)
	assert.Equal(t, 2.5, cfg.Batch.RatePerSecond)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Recommend.TopN = 0
	cfg.Storage.DBPath = ""
	cfg.Batch.Concurrency = 0

	err := cfg.Validate()
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 3)
	assert.Contains(t, err.Error(), "recommend.top_n")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "storage.db_path", envKey("REPOMATCH_STORAGE__DB_PATH"))
	assert.Equal(t, "batch.rate_per_second", envKey("REPOMATCH_BATCH__RATE_PER_SECOND"))
}

func TestSaveEmptyPath(t *testing.T) {
	assert.Error(t, Save("", Default()))
}
