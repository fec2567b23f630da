package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AgentConfig holds configuration for the scheduling agent.
type AgentConfig struct {
	APIURL    string            `yaml:"api_url"`    // Control-plane API base URL
	AuthToken string            `yaml:"auth_token"` // Agent-scoped credential
	Name      string            `yaml:"name"`       // Agent name (default "agent")
	Labels    string            `yaml:"labels"`     // Literal-list string, e.g. "['prod', 'gpu']"
	EnvVars   map[string]string `yaml:"env_vars"`   // Environment overrides for deployed runs

	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json

	PollInterval  time.Duration `yaml:"poll_interval"`  // Discovery poll interval
	MaxConcurrent int           `yaml:"max_concurrent"` // Executor pool size

	HealthAddr  string `yaml:"health_addr"`  // Health/metrics listen address; empty disables
	Backend     string `yaml:"backend"`      // Deployment backend: local, ecs, none
	JournalPath string `yaml:"journal_path"` // SQLite deploy journal path; empty disables
}

// DefaultAgentConfig returns sensible defaults.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		APIURL:        "http://localhost:4200/graphql",
		Name:          "agent",
		LogLevel:      "info",
		LogFormat:     "text",
		PollInterval:  10 * time.Second,
		MaxConcurrent: 4,
		Backend:       "none",
	}
}

// Load builds an AgentConfig from defaults, an optional YAML file, and
// FLOWAGENT_* environment variables, in that order of precedence.
func Load(path string) (AgentConfig, error) {
	cfg := DefaultAgentConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *AgentConfig) {
	if v := os.Getenv("FLOWAGENT_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("FLOWAGENT_AUTH_TOKEN"); v != "" {
		cfg.AuthToken = v
	}
	if v := os.Getenv("FLOWAGENT_NAME"); v != "" {
		cfg.Name = v
	}
	if v := os.Getenv("FLOWAGENT_LABELS"); v != "" {
		cfg.Labels = v
	}
	if v := os.Getenv("FLOWAGENT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// ParseLabels parses the literal-list label config value ("['a', 'b']") into
// a label slice. A bare comma-separated list is accepted too. Empty input
// yields no labels.
func ParseLabels(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")

	var labels []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, `'"`)
		if part != "" {
			labels = append(labels, part)
		}
	}
	return labels
}
