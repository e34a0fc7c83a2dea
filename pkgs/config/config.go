// Package config loads and validates local account configuration: which
// providers exist, where their IMAP endpoints live, and how each account
// authenticates. How an OAuth token in the secret field was obtained is not
// this package's concern.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/unimail/unimail/pkgs/engine"
)

const (
	// EnvConfigJSONPath overrides the default config file location.
	EnvConfigJSONPath = "UNIMAIL_CONFIG_JSON"

	defaultConfigDir  = ".unimail"
	defaultConfigName = "config.json"
)

// Endpoint holds the IMAP transport settings for one account.
type Endpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`

	// SSL enables implicit TLS. Leaving it off is only meant for local
	// test servers.
	SSL bool `json:"ssl"`
}

// Auth holds how the account proves its identity.
type Auth struct {
	// Method is "password" or "oauth".
	Method string `json:"method"`
	// Secret is the password, app password, or resolved OAuth access
	// token, depending on Method.
	Secret string `json:"secret,omitempty"`
}

// AccountConfig holds one mail account.
type AccountConfig struct {
	Name string `json:"name"`
	// Email doubles as the login username.
	Email string `json:"email"`
	// Provider labels the account kind (gmail, outlook, imap, ...).
	Provider string `json:"provider,omitempty"`

	IMAP Endpoint `json:"imap"`
	Auth Auth     `json:"auth"`
}

// Credential converts the account into the immutable credential the engine
// session is constructed from.
func (a *AccountConfig) Credential() engine.Credential {
	provider := a.Provider
	if provider == "" {
		provider = "imap"
	}
	method := engine.AuthPassword
	if strings.EqualFold(a.Auth.Method, string(engine.AuthOAuth)) {
		method = engine.AuthOAuth
	}
	return engine.Credential{
		Email:    a.Email,
		Provider: provider,
		Host:     a.IMAP.Host,
		Port:     a.IMAP.Port,
		UseTLS:   a.IMAP.SSL,
		Method:   method,
		Secret:   a.Auth.Secret,
	}
}

// Config holds the application configuration.
//
// Accounts is a map keyed by account name. DefaultAccount selects the
// account when none is specified.
type Config struct {
	Accounts       map[string]AccountConfig `json:"accounts"`
	DefaultAccount string                   `json:"default_account,omitempty"`
}

// RootConfig wraps the app config under a "mail" key so the file can be
// shared with other tools.
type RootConfig struct {
	Mail Config `json:"mail"`
}

// DefaultConfigPath returns the standard config location under the user's
// home directory.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, defaultConfigDir, defaultConfigName), nil
}

// LoadConfig reads configuration from the path in EnvConfigJSONPath, falling
// back to the default location.
func LoadConfig() (*Config, error) {
	path := strings.TrimSpace(os.Getenv(EnvConfigJSONPath))
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads configuration from a JSON file path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return parseRootConfig(data)
}

// SaveConfig saves configuration to a JSON file path.
func SaveConfig(path string, root *RootConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetAccount returns an account by name or email. An empty identifier
// resolves to the default account, or deterministically to the first account
// by key order.
func (c *Config) GetAccount(identifier string) (*AccountConfig, error) {
	if len(c.Accounts) == 0 {
		return nil, fmt.Errorf("no accounts configured")
	}

	if identifier == "" {
		if c.DefaultAccount != "" {
			identifier = c.DefaultAccount
		} else {
			keys := make([]string, 0, len(c.Accounts))
			for k := range c.Accounts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			identifier = keys[0]
		}
	}

	if acc, ok := c.Accounts[identifier]; ok {
		if acc.Name == "" {
			acc.Name = identifier
		}
		return &acc, nil
	}

	for name, acc := range c.Accounts {
		if acc.Name == identifier || acc.Email == identifier {
			if acc.Name == "" {
				acc.Name = name
			}
			return &acc, nil
		}
	}

	return nil, fmt.Errorf("account not found: %s", identifier)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("no accounts configured")
	}

	for name, acc := range c.Accounts {
		if acc.Name == "" {
			acc.Name = name
		}
		if acc.Email == "" {
			return fmt.Errorf("account %s: email is required", acc.Name)
		}
		if acc.IMAP.Host == "" {
			return fmt.Errorf("account %s: imap.host is required", acc.Name)
		}
		if acc.IMAP.Port <= 0 || acc.IMAP.Port > 65535 {
			return fmt.Errorf("account %s: imap.port %d is out of range", acc.Name, acc.IMAP.Port)
		}
		switch strings.ToLower(acc.Auth.Method) {
		case "", "password", "oauth":
		default:
			return fmt.Errorf("account %s: unknown auth method %q", acc.Name, acc.Auth.Method)
		}
	}

	if c.DefaultAccount != "" {
		if _, ok := c.Accounts[c.DefaultAccount]; !ok {
			return fmt.Errorf("default_account not found: %s", c.DefaultAccount)
		}
	}

	return nil
}

// ExampleRootConfig returns an example configuration for "init".
func ExampleRootConfig() *RootConfig {
	return &RootConfig{
		Mail: Config{
			DefaultAccount: "personal",
			Accounts: map[string]AccountConfig{
				"personal": {
					Name:     "Personal",
					Email:    "user@gmail.com",
					Provider: "gmail",
					IMAP: Endpoint{
						Host: "imap.gmail.com",
						Port: 993,
						SSL:  true,
					},
					Auth: Auth{
						Method: "password",
						Secret: "app-password-here",
					},
				},
				"work": {
					Name:     "Work",
					Email:    "user@example.com",
					Provider: "outlook",
					IMAP: Endpoint{
						Host: "outlook.office365.com",
						Port: 993,
						SSL:  true,
					},
					Auth: Auth{
						Method: "oauth",
					},
				},
			},
		},
	}
}

// --- internal helpers ---

func parseRootConfig(data []byte) (*Config, error) {
	var root RootConfig
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := &root.Mail
	if cfg.Accounts == nil {
		return nil, fmt.Errorf("missing required key: mail.accounts")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
