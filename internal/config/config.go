// Package config loads catgraph settings from .catgraph.yaml and CATGRAPH_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Benny93/catgraph/internal/category"
	"github.com/Benny93/catgraph/internal/typecat"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CATGRAPH"

// Config groups the application settings.
type Config struct {
	Log       LogConfig
	Index     IndexConfig
	Hierarchy HierarchyConfig
	Policy    PolicyConfig
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string // trace, debug, info, warn, error
	Format string // console or json
}

// IndexConfig configures the declaration index.
type IndexConfig struct {
	Dir     string // relative to the repository root unless absolute
	Workers int    // 0 means one per CPU
}

// HierarchyConfig configures the type hierarchy.
type HierarchyConfig struct {
	Top string // qualified name of the root type
}

// PolicyConfig configures bottom-up linearization of type categories.
type PolicyConfig struct {
	Priority       string
	InterfaceOrder string
	Strategy       string
}

// Load reads the configuration. An explicit path must exist; otherwise
// .catgraph.yaml is looked up in the working directory and then $HOME, and a
// missing file is not an error. Environment variables take precedence over
// the file: CATGRAPH_LOG_LEVEL overrides log.level.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".catgraph")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Index: IndexConfig{
			Dir:     v.GetString("index.dir"),
			Workers: v.GetInt("index.workers"),
		},
		Hierarchy: HierarchyConfig{
			Top: v.GetString("hierarchy.top"),
		},
		Policy: PolicyConfig{
			Priority:       v.GetString("policy.priority"),
			InterfaceOrder: v.GetString("policy.interface_order"),
			Strategy:       v.GetString("policy.strategy"),
		},
	}

	if _, err := cfg.BottomUpPolicy(); err != nil {
		return nil, err
	}
	if cfg.Index.Workers < 0 {
		return nil, fmt.Errorf("index.workers must not be negative, got %d", cfg.Index.Workers)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("index.dir", ".catgraph")
	v.SetDefault("index.workers", 0)
	v.SetDefault("hierarchy.top", "Object")
	v.SetDefault("policy.priority", string(typecat.DefaultBottomUp.Priority))
	v.SetDefault("policy.interface_order", string(typecat.DefaultBottomUp.InterfaceOrder))
	v.SetDefault("policy.strategy", typecat.DefaultBottomUp.Strategy.String())
}

// BottomUpPolicy parses the policy section.
func (c *Config) BottomUpPolicy() (typecat.Policy, error) {
	priority, err := typecat.ParsePriority(c.Policy.Priority)
	if err != nil {
		return typecat.Policy{}, fmt.Errorf("policy.priority: %w", err)
	}
	order, err := typecat.ParseInterfaceOrder(c.Policy.InterfaceOrder)
	if err != nil {
		return typecat.Policy{}, fmt.Errorf("policy.interface_order: %w", err)
	}
	strategy, err := category.ParseStrategy(c.Policy.Strategy)
	if err != nil {
		return typecat.Policy{}, fmt.Errorf("policy.strategy: %w", err)
	}
	return typecat.Policy{Priority: priority, InterfaceOrder: order, Strategy: strategy}, nil
}

// IndexPath returns the index directory for the repository at repoPath.
func (c *Config) IndexPath(repoPath string) string {
	if filepath.IsAbs(c.Index.Dir) {
		return c.Index.Dir
	}
	return filepath.Join(repoPath, c.Index.Dir)
}
