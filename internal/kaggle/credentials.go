package kaggle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envUsername  = "KAGGLE_USERNAME"
	envKey       = "KAGGLE_KEY"
	envConfigDir = "KAGGLE_CONFIG_DIR"
)

// Credentials are a Kaggle username and API key (HTTP basic auth).
type Credentials struct {
	Username string `json:"username"`
	Key      string `json:"key"`
	// Source names where the pair was found; never serialized.
	Source string `json:"-"`
}

func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.Username) != "" && strings.TrimSpace(c.Key) != ""
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing files
// are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ResolveCredentials picks the first complete pair among: environment
// variables, the explicit (config file) pair, then kaggle.json in
// $KAGGLE_CONFIG_DIR or ~/.kaggle. The zero value is returned when nothing is
// found; the listing can still be tried anonymously.
func ResolveCredentials(explicit Credentials) (Credentials, error) {
	env := Credentials{Username: os.Getenv(envUsername), Key: os.Getenv(envKey), Source: "env"}
	if env.Valid() {
		return env, nil
	}
	if explicit.Valid() {
		explicit.Source = "config"
		return explicit, nil
	}

	path := kaggleJSONPath()
	if path == "" {
		return Credentials{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, nil
		}
		return Credentials{}, err
	}
	var fc Credentials
	if err := json.Unmarshal(b, &fc); err != nil {
		return Credentials{}, fmt.Errorf("kaggle: parse %s: %w", path, err)
	}
	if !fc.Valid() {
		return Credentials{}, fmt.Errorf("kaggle: %s: username and key are required", path)
	}
	fc.Source = path
	return fc, nil
}

func kaggleJSONPath() string {
	if dir := strings.TrimSpace(os.Getenv(envConfigDir)); dir != "" {
		return filepath.Join(dir, "kaggle.json")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".kaggle", "kaggle.json")
}
