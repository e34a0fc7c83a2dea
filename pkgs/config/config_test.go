package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimail/unimail/pkgs/engine"
)

const sampleConfigJSON = `{
  "mail": {
    "default_account": "personal",
    "accounts": {
      "personal": {
        "email": "user@gmail.com",
        "provider": "gmail",
        "imap": {"host": "imap.gmail.com", "port": 993, "ssl": true},
        "auth": {"method": "password", "secret": "app-password"}
      },
      "work": {
        "name": "Work",
        "email": "user@example.com",
        "provider": "outlook",
        "imap": {"host": "outlook.office365.com", "port": 993, "ssl": true},
        "auth": {"method": "oauth", "secret": "access-token"}
      }
    }
  }
}`

func writeSampleConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfigJSON), 0600))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	cfg, err := LoadConfigFile(writeSampleConfig(t))
	require.NoError(t, err)

	assert.Len(t, cfg.Accounts, 2)
	assert.Equal(t, "personal", cfg.DefaultAccount)
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	t.Setenv(EnvConfigJSONPath, writeSampleConfig(t))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Len(t, cfg.Accounts, 2)
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestParseMissingAccountsKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mail": {}}`), 0600))

	_, err := LoadConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mail.accounts")
}

func TestGetAccountDefault(t *testing.T) {
	cfg, err := LoadConfigFile(writeSampleConfig(t))
	require.NoError(t, err)

	acc, err := cfg.GetAccount("")
	require.NoError(t, err)
	assert.Equal(t, "user@gmail.com", acc.Email)
	assert.Equal(t, "personal", acc.Name, "map key backfills a missing name")
}

func TestGetAccountFirstKeyWhenNoDefault(t *testing.T) {
	cfg := &Config{Accounts: map[string]AccountConfig{
		"zeta":  {Email: "z@example.com"},
		"alpha": {Email: "a@example.com"},
	}}

	acc, err := cfg.GetAccount("")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", acc.Email)
}

func TestGetAccountByNameAndEmail(t *testing.T) {
	cfg, err := LoadConfigFile(writeSampleConfig(t))
	require.NoError(t, err)

	byKey, err := cfg.GetAccount("work")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", byKey.Email)

	byEmail, err := cfg.GetAccount("user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Work", byEmail.Name)

	_, err = cfg.GetAccount("nobody")
	assert.Error(t, err)
}

func TestGetAccountNoAccounts(t *testing.T) {
	cfg := &Config{}
	_, err := cfg.GetAccount("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "no accounts",
			cfg:     Config{},
			wantErr: "no accounts",
		},
		{
			name: "missing email",
			cfg: Config{Accounts: map[string]AccountConfig{
				"a": {IMAP: Endpoint{Host: "h", Port: 993}},
			}},
			wantErr: "email is required",
		},
		{
			name: "missing host",
			cfg: Config{Accounts: map[string]AccountConfig{
				"a": {Email: "a@b.c", IMAP: Endpoint{Port: 993}},
			}},
			wantErr: "imap.host is required",
		},
		{
			name: "port out of range",
			cfg: Config{Accounts: map[string]AccountConfig{
				"a": {Email: "a@b.c", IMAP: Endpoint{Host: "h", Port: 70000}},
			}},
			wantErr: "out of range",
		},
		{
			name: "unknown auth method",
			cfg: Config{Accounts: map[string]AccountConfig{
				"a": {Email: "a@b.c", IMAP: Endpoint{Host: "h", Port: 993}, Auth: Auth{Method: "kerberos"}},
			}},
			wantErr: "unknown auth method",
		},
		{
			name: "dangling default account",
			cfg: Config{
				Accounts: map[string]AccountConfig{
					"a": {Email: "a@b.c", IMAP: Endpoint{Host: "h", Port: 993}},
				},
				DefaultAccount: "b",
			},
			wantErr: "default_account not found",
		},
		{
			name: "valid",
			cfg: Config{Accounts: map[string]AccountConfig{
				"a": {Email: "a@b.c", IMAP: Endpoint{Host: "h", Port: 993}, Auth: Auth{Method: "oauth"}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCredentialMapping(t *testing.T) {
	acc := AccountConfig{
		Email:    "user@example.com",
		Provider: "outlook",
		IMAP:     Endpoint{Host: "outlook.office365.com", Port: 993, SSL: true},
		Auth:     Auth{Method: "OAuth", Secret: "token"},
	}

	cred := acc.Credential()
	assert.Equal(t, "user@example.com", cred.Email)
	assert.Equal(t, "outlook", cred.Provider)
	assert.Equal(t, "outlook.office365.com:993", cred.Addr())
	assert.True(t, cred.UseTLS)
	assert.Equal(t, engine.AuthOAuth, cred.Method)
	assert.Equal(t, "token", cred.Secret)
}

func TestCredentialDefaults(t *testing.T) {
	acc := AccountConfig{Email: "user@example.com", IMAP: Endpoint{Host: "h", Port: 143}}

	cred := acc.Credential()
	assert.Equal(t, "imap", cred.Provider)
	assert.Equal(t, engine.AuthPassword, cred.Method)
}

func TestSaveConfigRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	require.NoError(t, SaveConfig(path, ExampleRootConfig()))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Accounts, 2)
	assert.Equal(t, "personal", cfg.DefaultAccount)
}
