package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix namespaces environment overrides, e.g. REPOMATCH_STORAGE__DB_PATH.
	EnvPrefix = "REPOMATCH_"
	// PathEnvVar names a config file when no path is given.
	PathEnvVar = "REPOMATCH_CONFIG"
	// DefaultPath is used when neither a path nor PathEnvVar is set.
	DefaultPath = "repomatch.yaml"
)

// Config is the application's configuration model.
type Config struct {
	Account   AccountConfig   `yaml:"account" koanf:"account"`
	Recommend RecommendConfig `yaml:"recommend" koanf:"recommend"`
	Storage   StorageConfig   `yaml:"storage" koanf:"storage"`
	Logging   LoggingConfig   `yaml:"logging" koanf:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" koanf:"metrics"`
	Batch     BatchConfig     `yaml:"batch" koanf:"batch"`
}

type AccountConfig struct {
	// Default user for `recommend` when no username argument is given.
	Username string `yaml:"username" koanf:"username"`
}

type RecommendConfig struct {
	TopN             int    `yaml:"top_n" koanf:"top_n"`
	TopClusters      int    `yaml:"top_clusters" koanf:"top_clusters"`
	ReposPerCluster  int    `yaml:"repos_per_cluster" koanf:"repos_per_cluster"`
	SimilarityMethod string `yaml:"similarity_method" koanf:"similarity_method"` // cosine | euclidean
	MaxFeatures      int    `yaml:"max_features" koanf:"max_features"`
}

type StorageConfig struct {
	DBPath string `yaml:"db_path" koanf:"db_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"` // json | console
}

type MetricsConfig struct {
	// Empty disables the metrics server.
	Addr string `yaml:"addr" koanf:"addr"`
}

type BatchConfig struct {
	Concurrency   int     `yaml:"concurrency" koanf:"concurrency"`
	RatePerSecond float64 `yaml:"rate_per_second" koanf:"rate_per_second"` // 0 = unlimited
	Burst         int     `yaml:"burst" koanf:"burst"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Recommend: RecommendConfig{TopN: 10, TopClusters: 3, ReposPerCluster: 5, SimilarityMethod: "cosine", MaxFeatures: 100},
		Storage:   StorageConfig{DBPath: "./repomatch.db"},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
		Batch:     BatchConfig{Concurrency: 4, RatePerSecond: 20, Burst: 4},
	}
}

// Load layers defaults, the YAML file at path and REPOMATCH_* environment
// variables, in that order. A .env file in the working directory is read
// first. An empty path falls back to $REPOMATCH_CONFIG, then to
// repomatch.yaml if it exists.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps REPOMATCH_BATCH__RATE_PER_SECOND to batch.rate_per_second.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath
	}
	return ""
}

// Validate reports every out-of-range setting at once.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.Recommend.TopN <= 0 {
		result = multierror.Append(result, fmt.Errorf("recommend.top_n must be > 0, got %d", c.Recommend.TopN))
	}
	if c.Recommend.TopClusters < 0 {
		result = multierror.Append(result, fmt.Errorf("recommend.top_clusters must be >= 0, got %d", c.Recommend.TopClusters))
	}
	if c.Recommend.ReposPerCluster < 0 {
		result = multierror.Append(result, fmt.Errorf("recommend.repos_per_cluster must be >= 0, got %d", c.Recommend.ReposPerCluster))
	}
	if c.Recommend.MaxFeatures < 0 {
		result = multierror.Append(result, fmt.Errorf("recommend.max_features must be >= 0, got %d", c.Recommend.MaxFeatures))
	}
	if c.Storage.DBPath == "" {
		result = multierror.Append(result, errors.New("storage.db_path is required"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	if c.Batch.Concurrency < 1 {
		result = multierror.Append(result, fmt.Errorf("batch.concurrency must be >= 1, got %d", c.Batch.Concurrency))
	}
	if c.Batch.RatePerSecond < 0 {
		result = multierror.Append(result, fmt.Errorf("batch.rate_per_second must be >= 0, got %v", c.Batch.RatePerSecond))
	}
	return result.ErrorOrNil()
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
