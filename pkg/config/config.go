// Package config loads and validates the opsforge configuration file: the
// endpoints of the consumed services, the history database location, and the
// engine's execution settings.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/opsforge/opsforge/pkg/telemetry"
)

// DefaultAgentServices is the set of cluster agent services expected to
// exist in every datacenter.
var DefaultAgentServices = []string{
	"cn-agent",
	"net-agent",
	"vm-agent",
	"config-agent",
	"firewall-agent",
	"metrics-agent",
}

// Config is the opsforge configuration.
type Config struct {
	// DirectoryURL is the service directory endpoint.
	DirectoryURL string `yaml:"directory_url" validate:"required,url"`

	// ImagesURL is the local image service endpoint.
	ImagesURL string `yaml:"images_url" validate:"required,url"`

	// TopologyURL is the network-topology service endpoint.
	TopologyURL string `yaml:"topology_url" validate:"required,url"`

	// ImageSource is the remote source images are imported from.
	ImageSource string `yaml:"image_source" validate:"required,url"`

	// ApplicationUUID is the directory application owning agent services.
	ApplicationUUID string `yaml:"application_uuid" validate:"required,uuid"`

	// HistoryPath is the history database file path.
	HistoryPath string `yaml:"history_path" validate:"required"`

	// Concurrency bounds how many procedures execute at once.
	Concurrency int `yaml:"concurrency" validate:"gte=0"`

	// AgentServices overrides the default desired agent service set.
	AgentServices []string `yaml:"agent_services"`

	// Logging configures structured logging.
	Logging telemetry.LoggingConfig `yaml:"logging"`

	// Metrics configures metrics collection.
	Metrics telemetry.MetricsConfig `yaml:"metrics"`

	// Tracing configures tracing.
	Tracing telemetry.TracingConfig `yaml:"tracing"`
}

// Default returns the configuration defaults applied before the file is
// read.
func Default() Config {
	tel := telemetry.DefaultConfig()
	return Config{
		ImageSource:   "https://images.example.com",
		HistoryPath:   "/var/db/opsforge/history.db",
		Concurrency:   4,
		AgentServices: DefaultAgentServices,
		Logging:       tel.Logging,
		Metrics:       tel.Metrics,
		Tracing:       tel.Tracing,
	}
}

// Load reads, decodes and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
