package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// DefaultSecretFile is read when no other credentials source is given
	DefaultSecretFile = "secret.json"

	// KeyringService groups the scraper's secrets in the OS keychain
	KeyringService = "review-scraper"
)

// Credentials are the site login
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Credentials resolves the login, in order: username and password settings,
// the credentials file, secret.json in the working directory, then the OS
// keychain when a keyring account is set. Having none is a ConfigError.
func (c *Config) Credentials() (Credentials, error) {
	if c.Username != "" && c.Password != "" {
		return Credentials{Username: c.Username, Password: c.Password}, nil
	}

	if c.CredentialsFile != "" {
		return readCredentialsFile(c.CredentialsFile)
	}

	if _, err := os.Stat(DefaultSecretFile); err == nil {
		return readCredentialsFile(DefaultSecretFile)
	}

	if account := strings.TrimSpace(c.KeyringAccount); account != "" {
		pw, err := keyring.Get(KeyringService, account)
		if err == nil && strings.TrimSpace(pw) != "" {
			username := c.Username
			if username == "" {
				username = account
			}
			return Credentials{Username: username, Password: pw}, nil
		}
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return Credentials{}, configErr(err, "failed to read keychain entry %q", account)
		}
	}

	return Credentials{}, configErr(nil, "no credentials: pass --username and --password, a credentials file, create %s, or set a keyring account", DefaultSecretFile)
}

func readCredentialsFile(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, configErr(err, "failed to read credentials file %s", path)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, configErr(err, "invalid credentials file %s", path)
	}
	if creds.Username == "" || creds.Password == "" {
		return Credentials{}, configErr(nil, "credentials file %s needs username and password", path)
	}
	return creds, nil
}

// StorePassword saves a password in the OS keychain under account
func StorePassword(account, password string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	if err := keyring.Set(KeyringService, account, password); err != nil {
		return fmt.Errorf("failed to store password: %w", err)
	}
	return nil
}
