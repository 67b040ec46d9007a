// Package config builds the application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvToken   = "GH_TOKEN"
	EnvOwner   = "REPO_OWNER"
	EnvRepo    = "REPO_NAME"
	EnvLogPath = "TRAFFIC_LOG"
)

// DefaultLogPath is used when TRAFFIC_LOG is unset. It is relative to the
// working directory, normally the checkout the log is committed to.
const DefaultLogPath = "traffic_data.csv"

// ErrMissingEnv is wrapped by Load when required variables are unset.
var ErrMissingEnv = errors.New("missing required environment variables")

// Config holds the values a sync run needs. It is built once at start and
// passed down explicitly.
type Config struct {
	Token   string
	Owner   string
	Repo    string
	LogPath string
}

// Load reads configuration from environment variables.
// Every missing required variable is named in the returned error.
func Load() (*Config, error) {
	cfg := &Config{
		Token:   os.Getenv(EnvToken),
		Owner:   os.Getenv(EnvOwner),
		Repo:    os.Getenv(EnvRepo),
		LogPath: LogPath(),
	}

	var missing []string
	for _, v := range []struct{ name, value string }{
		{EnvToken, cfg.Token},
		{EnvOwner, cfg.Owner},
		{EnvRepo, cfg.Repo},
	} {
		if v.value == "" {
			missing = append(missing, v.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	return cfg, nil
}

// LogPath returns the traffic log location from the environment or the default.
func LogPath() string {
	if v := os.Getenv(EnvLogPath); v != "" {
		return v
	}
	return DefaultLogPath
}

// LoadEnvFile loads variables from a dotenv file without overriding ones
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
