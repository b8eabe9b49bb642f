package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a YAML file. ${ENV_VAR}
// references in the file are expanded before parsing, so secrets can stay
// out of the file itself.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", configPath)
	}

	expanded := expandEnvVars(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR} with the environment value. Unset variables
// expand to the empty string; validate catches required fields left empty.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "savenote"
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = "INFO"
	}
	if cfg.Service.Environment == "" {
		cfg.Service.Environment = "development"
	}
	if cfg.Webhook.Listen == "" {
		cfg.Webhook.Listen = DefaultListen
	}
	if cfg.Webhook.Path == "" {
		cfg.Webhook.Path = DefaultPath
	}
	if cfg.Webhook.MaxBodySize <= 0 {
		cfg.Webhook.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "./data"
	}
}

func validate(cfg *Config) error {
	if cfg.Webhook.Path == "" || cfg.Webhook.Path[0] != '/' {
		return fmt.Errorf("webhook path must begin with /: %q", cfg.Webhook.Path)
	}

	// Fail closed: production demands both halves of the webhook handshake.
	if cfg.Service.Production() {
		if cfg.Webhook.Secret == "" {
			return fmt.Errorf("webhook secret is required in production")
		}
		if cfg.Webhook.VerifyToken == "" {
			return fmt.Errorf("webhook verify_token is required in production")
		}
	}

	if cfg.Dedupe.Enabled && cfg.Dedupe.Addr == "" {
		return fmt.Errorf("dedupe is enabled but no redis addr is configured")
	}

	return nil
}
