// Package config holds the process-wide configuration. It is loaded once
// at startup and passed into every client and server constructor; nothing
// below cmd reads ambient environment state.
package config

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teamlenshq/teamlens/internal"
)

// Platform holds the credentials and endpoint for one platform
// integration. An empty token means the platform is not connected and is
// omitted from the tool registry rather than erroring.
type Platform struct {
	// Token is the OAuth bearer token. Supports 1Password op:// secret
	// references, resolved at load time.
	Token string `yaml:"token"`

	// BaseURL overrides the platform's default API endpoint. Primarily
	// for tests; empty means the platform default.
	BaseURL string `yaml:"baseURL"`
}

// Connected reports whether the platform has credentials.
func (p Platform) Connected() bool {
	return p.Token != ""
}

// Config is the full process configuration.
type Config struct {
	Slack     Platform `yaml:"slack"`
	Azure     Platform `yaml:"azure"`
	Atlassian Platform `yaml:"atlassian"`
	GitHub    Platform `yaml:"github"`
}

// Load reads configuration from r.
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading config data: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &config, nil
}

// LoadFile loads configuration from a YAML file, applies environment
// variable overrides, and resolves secret references. A missing file is
// not an error; the configuration then comes from the environment alone.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	config := &Config{}

	if path != "" {
		f, err := os.Open(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error opening config file: %w", err)
		}
		if err == nil {
			defer f.Close()
			config, err = Load(f)
			if err != nil {
				return nil, err
			}
		}
	}

	config.applyEnv()

	if err := config.resolveSecrets(ctx); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnv lets environment variables override file values, matching how
// the OAuth layer hands tokens to a deployed process.
func (c *Config) applyEnv() {
	overlay := func(p *Platform, tokenVar, urlVar string) {
		if v := os.Getenv(tokenVar); v != "" {
			p.Token = v
		}
		if v := os.Getenv(urlVar); v != "" {
			p.BaseURL = v
		}
	}
	overlay(&c.Slack, "SLACK_TOKEN", "SLACK_BASE_URL")
	overlay(&c.Azure, "AZURE_TOKEN", "AZURE_BASE_URL")
	overlay(&c.Atlassian, "ATLASSIAN_TOKEN", "ATLASSIAN_BASE_URL")
	overlay(&c.GitHub, "GITHUB_TOKEN", "GITHUB_BASE_URL")
}

func (c *Config) resolveSecrets(ctx context.Context) error {
	for _, p := range []*Platform{&c.Slack, &c.Azure, &c.Atlassian, &c.GitHub} {
		resolved, _, err := internal.ResolveSecretReference(ctx, p.Token)
		if err != nil {
			return fmt.Errorf("error resolving token: %w", err)
		}
		p.Token = resolved
	}
	return nil
}
