// ABOUTME: Server configuration loaded from GEOTWIN_* environment variables plus an optional YAML tuning file.
// ABOUTME: Enforces the security constraint that non-loopback binds require an auth token.
package server

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrRemoteWithoutToken = errors.New(
		"GEOTWIN_ALLOW_REMOTE is true but GEOTWIN_AUTH_TOKEN is not set; refusing to start without authentication",
	)
	ErrNonLoopbackBind = errors.New(
		"GEOTWIN_BIND is a non-loopback address but GEOTWIN_ALLOW_REMOTE is not true; set GEOTWIN_ALLOW_REMOTE=true and GEOTWIN_AUTH_TOKEN to allow remote access",
	)
)

// Config holds server configuration loaded from environment variables.
type Config struct {
	Bind        string // socket address (GEOTWIN_BIND, default: 127.0.0.1:8050)
	DataDir     string // data directory (GEOTWIN_DATA_DIR, default: ~/.geotwin)
	AllowRemote bool   // allow non-loopback connections (GEOTWIN_ALLOW_REMOTE)
	AuthToken   string // bearer token for remote access (GEOTWIN_AUTH_TOKEN)
	Tuning      Tuning // stage tuning, optionally loaded from GEOTWIN_TUNING_FILE
}

// Tuning holds the stage adapters' knobs, loadable from a YAML file.
type Tuning struct {
	StrainPoints int     `yaml:"strain_points"`  // simulation curve samples
	SampleRateHz float64 `yaml:"sample_rate_hz"` // modal sampling frequency
	Refinement   int     `yaml:"refinement"`     // geomodel grid refinement
}

// ConfigFromEnv loads configuration from GEOTWIN_* environment variables
// with defaults, validating the remote-access constraint.
func ConfigFromEnv() (*Config, error) {
	dataDir := os.Getenv("GEOTWIN_DATA_DIR")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "/tmp"
		}
		dataDir = filepath.Join(homeDir, ".geotwin")
	}

	cfg := &Config{
		Bind:      envOrDefault("GEOTWIN_BIND", "127.0.0.1:8050"),
		DataDir:   dataDir,
		AuthToken: os.Getenv("GEOTWIN_AUTH_TOKEN"),
	}
	if v := os.Getenv("GEOTWIN_ALLOW_REMOTE"); v == "true" || v == "1" || v == "yes" {
		cfg.AllowRemote = true
	}

	if cfg.AllowRemote && cfg.AuthToken == "" {
		return nil, ErrRemoteWithoutToken
	}
	if !cfg.AllowRemote && !isLoopbackBind(cfg.Bind) {
		return nil, ErrNonLoopbackBind
	}

	if tuningPath := os.Getenv("GEOTWIN_TUNING_FILE"); tuningPath != "" {
		tuning, err := LoadTuning(tuningPath)
		if err != nil {
			return nil, err
		}
		cfg.Tuning = *tuning
	}

	// GEOTWIN_SAMPLE_RATE overrides the tuning file's sampling frequency.
	if v := os.Getenv("GEOTWIN_SAMPLE_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("GEOTWIN_SAMPLE_RATE %q: must be a positive number", v)
		}
		cfg.Tuning.SampleRateHz = rate
	}

	return cfg, nil
}

// LoadTuning reads stage tuning from a YAML file.
func LoadTuning(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning file: %w", err)
	}
	var t Tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	if t.StrainPoints < 0 || t.SampleRateHz < 0 || t.Refinement < 0 {
		return nil, fmt.Errorf("tuning file %s: values must be non-negative", path)
	}
	return &t, nil
}

// LoadDotEnv applies KEY=VALUE pairs from a dotenv file to the process
// environment. Variables already set win over file values; a missing file
// is not an error.
func LoadDotEnv(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := parseEnvLine(line)
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}

// parseEnvLine splits one dotenv line into a key/value pair, skipping
// blanks and # comments and stripping a matched pair of quotes around the
// value.
func parseEnvLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}

	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}

	value = strings.TrimSpace(value)
	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
		value = value[1 : len(value)-1]
	}
	return key, value, true
}

// isLoopbackBind reports whether the bind address resolves to a loopback
// interface. Unparseable addresses count as non-loopback.
func isLoopbackBind(bind string) bool {
	host, _, err := net.SplitHostPort(bind)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
