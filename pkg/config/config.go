package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDirname  = "caddy-pretty-print"
	DefaultFilename = "config.yaml"
)

// File holds defaults for the command line flags. Every key is optional.
type File struct {
	Color  string   `yaml:"color,omitempty"` // "auto" | "always" | "never"
	Strict *bool    `yaml:"strict,omitempty"`
	Hosts  []string `yaml:"hosts,omitempty"`
	Since  string   `yaml:"since,omitempty"`
	Until  string   `yaml:"until,omitempty"`
	Width  *int     `yaml:"width,omitempty"`
}

// DefaultPath returns <user config dir>/caddy-pretty-print/config.yaml, or ""
// when the user config dir is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, DefaultDirname, DefaultFilename)
}

func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg File
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config yaml")
	}
	return &cfg, nil
}

func LoadOptional(path string) (*File, error) {
	if path == "" {
		return &File{}, nil
	}
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, errors.Wrap(err, "stat config")
	}
	return LoadFromFile(path)
}
