// Package config loads the client configuration from the data directory,
// falling back to built-in defaults when no file exists.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "10s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	APIBase   string `yaml:"api_base"`
	SocketURL string `yaml:"socket_url"`
	DataDir   string `yaml:"data_dir"`
	Theme     string `yaml:"theme"`

	// HeartbeatTimeout is T from the liveness watchdog: a Live connection
	// with no ping/pong observed for longer than T is force-closed.
	HeartbeatTimeout Duration `yaml:"heartbeat_timeout"`
	ReconnectWait    Duration `yaml:"reconnect_wait"`
	PageSize         int      `yaml:"page_size"`
}

// Default returns the built-in configuration pointing at the public Kuttalk
// service.
func Default() Config {
	return Config{
		APIBase:          "https://api.kuttalk.kro.kr",
		SocketURL:        "wss://api.kuttalk.kro.kr/ws",
		DataDir:          "~/.kuttalk",
		Theme:            "default_theme",
		HeartbeatTimeout: Duration(10 * time.Second),
		ReconnectWait:    Duration(2 * time.Second),
		PageSize:         20,
	}
}

// Load reads the config file at path, layering it over the defaults. A
// missing file is not an error; pure defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ResolveDataDir expands the leading ~ and creates the directory if needed.
func (c Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}

// DefaultPath is where Load looks when no -config flag is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".kuttalk", "config.yaml")
}
