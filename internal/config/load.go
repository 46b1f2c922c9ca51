package config

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is read from the working directory when present.
const DefaultEnvFile = ".env"

// ParseFile strictly decodes a JSON or YAML config file. Unknown keys,
// including secrets placed in the file, are rejected.
func ParseFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jb, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(jb)) == 0 {
		return &Config{}, nil
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, errors.New("invalid config: trailing data")
		}
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv adds variables from envFile to the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(envFile string) error {
	if strings.TrimSpace(envFile) == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "load %s", envFile)
	}
	return nil
}

// Read builds the config from the optional file at path and the environment.
// The result is not validated.
func Read(path, envFile string) (*Config, error) {
	cfg := &Config{}
	if strings.TrimSpace(path) != "" {
		var err error
		if cfg, err = ParseFile(path); err != nil {
			return nil, err
		}
	}
	if err := LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "read environment")
	}
	return cfg, nil
}

// Load reads and validates the config.
func Load(path, envFile string) (*Config, Resolved, error) {
	cfg, err := Read(path, envFile)
	if err != nil {
		return nil, Resolved{}, err
	}
	res, err := Validate(cfg)
	if err != nil {
		return nil, Resolved{}, err
	}
	return cfg, res, nil
}
