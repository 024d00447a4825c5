package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/agenthands/snapdiff/internal/core/model"
)

type ServerConfig struct {
	Port int `toml:"port"`
	// SelfHosts are host names that address this process when paired with Port.
	SelfHosts []string `toml:"self_hosts"`
}

type RemoteConfig struct {
	PollIntervalMs         int `toml:"poll_interval_ms"`
	TimeoutSeconds         int `toml:"timeout_seconds"`
	SnapshotTimeoutSeconds int `toml:"snapshot_timeout_seconds"`
}

func (r RemoteConfig) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalMs) * time.Millisecond
}

func (r RemoteConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

func (r RemoteConfig) SnapshotTimeout() time.Duration {
	return time.Duration(r.SnapshotTimeoutSeconds) * time.Second
}

// MethodsConfig names the remote operations invoked through the job protocol.
type MethodsConfig struct {
	ListViews     string `toml:"list_views"`
	Snapshot      string `toml:"snapshot"`
	ProjectInfo   string `toml:"project_info"`
	ViewInfo      string `toml:"view_info"`
	DiffSnapshots string `toml:"diff_snapshots"`
}

// Fallback policies for the row-set cross-check after a collaborator diff.
const (
	FallbackNoMatch      = "no_match"
	FallbackZeroModified = "zero_modified"
	FallbackAlways       = "always"
	FallbackNever        = "never"
)

type CompareConfig struct {
	CollaboratorEndpoint string        `toml:"collaborator_endpoint"`
	Fallback             string        `toml:"fallback"`
	DefaultCategories    []interface{} `toml:"default_categories"`
	IncludeAnalytic      bool          `toml:"include_analytic"`
	IncludeHidden        bool          `toml:"include_hidden"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type SelfConfig struct {
	SnapshotDir string `toml:"snapshot_dir"`
}

type Config struct {
	Server    ServerConfig            `toml:"server"`
	Remote    RemoteConfig            `toml:"remote"`
	Methods   MethodsConfig           `toml:"methods"`
	Compare   CompareConfig           `toml:"compare"`
	Tolerance model.ToleranceSettings `toml:"tolerance"`
	Memgraph  MemgraphConfig          `toml:"memgraph"`
	Self      SelfConfig              `toml:"self"`
}

// Default returns a complete configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      5300,
			SelfHosts: []string{"localhost", "127.0.0.1", "::1"},
		},
		Remote: RemoteConfig{
			PollIntervalMs:         300,
			TimeoutSeconds:         60,
			SnapshotTimeoutSeconds: 90,
		},
		Methods: MethodsConfig{
			ListViews:     "list_views",
			Snapshot:      "snapshot_view_elements",
			ProjectInfo:   "get_project_info",
			ViewInfo:      "get_view_info",
			DiffSnapshots: "diff_snapshots",
		},
		Compare: CompareConfig{
			Fallback: FallbackNoMatch,
		},
		Tolerance: model.ToleranceSettings{
			MaxDiffs: 100,
		},
	}
}

// Load reads a TOML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to defaults otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate rejects values the engine cannot work with.
func (c *Config) Validate() error {
	switch c.Compare.Fallback {
	case FallbackNoMatch, FallbackZeroModified, FallbackAlways, FallbackNever:
	default:
		return fmt.Errorf("invalid compare.fallback %q", c.Compare.Fallback)
	}
	if c.Remote.PollIntervalMs <= 0 {
		return fmt.Errorf("remote.poll_interval_ms must be positive")
	}
	if c.Remote.TimeoutSeconds <= 0 || c.Remote.SnapshotTimeoutSeconds <= 0 {
		return fmt.Errorf("remote timeouts must be positive")
	}
	if c.Tolerance.NumericEpsilon < 0 {
		return fmt.Errorf("tolerance.numeric_epsilon must not be negative")
	}
	return nil
}

// ApplyEnv overrides configuration from environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := getenv("SNAPDIFF_COLLABORATOR"); v != "" {
		c.Compare.CollaboratorEndpoint = v
	}
	if v := getenv("SNAPDIFF_FALLBACK"); v != "" {
		c.Compare.Fallback = strings.ToLower(v)
	}
	if v := getenv("SNAPDIFF_SNAPSHOT_DIR"); v != "" {
		c.Self.SnapshotDir = v
	}
	if v := getenv("MEMGRAPH_URI"); v != "" {
		c.Memgraph.URI = v
	}
	if v := getenv("MEMGRAPH_USER"); v != "" {
		c.Memgraph.User = v
	}
	if v := getenv("MEMGRAPH_PASSWORD"); v != "" {
		c.Memgraph.Password = v
	}
}
